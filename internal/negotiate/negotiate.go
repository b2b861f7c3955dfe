// Package negotiate implements proactive content negotiation over
// Accept-style request headers: quality-value ranking for media types,
// content codings and charsets, language matching, and media type pattern
// matching for request bodies.
package negotiate

import (
	"mime"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/language"
)

// Spec is one ranked alternative from an Accept-style header.
type Spec struct {
	// Value is the alternative, lower-cased, without parameters.
	Value string
	// Q is the quality value in [0, 1]; 0 means explicitly refused.
	Q float64
	// order is the position in the header, used to break quality ties.
	order int
}

// Parse splits an Accept-style header into its ranked alternatives.
// Malformed elements are skipped; a missing q defaults to 1.
func Parse(header string) []Spec {
	if header == "" {
		return nil
	}
	parts := strings.Split(header, ",")
	specs := make([]Spec, 0, len(parts))
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		value := part
		q := 1.0
		if j := strings.IndexByte(part, ';'); j >= 0 {
			value = strings.TrimSpace(part[:j])
			for _, param := range strings.Split(part[j+1:], ";") {
				k, v, ok := strings.Cut(strings.TrimSpace(param), "=")
				if !ok || !strings.EqualFold(strings.TrimSpace(k), "q") {
					continue
				}
				parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
				if err != nil || parsed < 0 || parsed > 1 {
					continue
				}
				q = parsed
			}
		}
		if value == "" {
			continue
		}
		specs = append(specs, Spec{
			Value: strings.ToLower(value),
			Q:     q,
			order: i,
		})
	}
	return specs
}

// ranked returns the specs ordered by quality descending, header order
// ascending, with refused (q=0) alternatives dropped.
func ranked(specs []Spec) []Spec {
	out := make([]Spec, 0, len(specs))
	for _, s := range specs {
		if s.Q > 0 {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Q != out[j].Q {
			return out[i].Q > out[j].Q
		}
		return out[i].order < out[j].order
	})
	return out
}

// MediaType returns the best media type among the offers for the parsed
// Accept header, or "" when none is acceptable. Offers may be full media
// types or extension shorthands ("json"). An absent header accepts the
// first offer.
func MediaType(specs []Spec, offers ...string) string {
	if len(offers) == 0 {
		return ""
	}
	full := make([]string, len(offers))
	for i, offer := range offers {
		full[i] = ResolveType(offer)
	}
	if len(specs) == 0 {
		return offers[0]
	}
	for _, spec := range ranked(specs) {
		for i, offer := range full {
			if offer != "" && mediaMatch(spec.Value, offer) {
				return offers[i]
			}
		}
	}
	return ""
}

// mediaMatch reports whether the media range pattern from an Accept header
// matches the concrete media type.
func mediaMatch(pattern, mediatype string) bool {
	if pattern == "*/*" {
		return true
	}
	pt, ps, ok := strings.Cut(pattern, "/")
	if !ok {
		return false
	}
	mt, ms, ok := strings.Cut(mediatype, "/")
	if !ok {
		return false
	}
	if pt != "*" && !strings.EqualFold(pt, mt) {
		return false
	}
	return ps == "*" || strings.EqualFold(ps, ms)
}

// Encoding returns the best content coding among the offers for the parsed
// Accept-Encoding header. An absent header accepts the first offer;
// identity is acceptable unless explicitly refused.
func Encoding(specs []Spec, offers ...string) string {
	if len(offers) == 0 {
		return ""
	}
	if len(specs) == 0 {
		return offers[0]
	}
	for _, spec := range ranked(specs) {
		for _, offer := range offers {
			if spec.Value == "*" || strings.EqualFold(spec.Value, offer) {
				return offer
			}
		}
	}
	if !refused(specs, "identity") {
		for _, offer := range offers {
			if strings.EqualFold(offer, "identity") {
				return offer
			}
		}
	}
	return ""
}

// Charset returns the best charset among the offers for the parsed
// Accept-Charset header. An absent header accepts the first offer.
func Charset(specs []Spec, offers ...string) string {
	if len(offers) == 0 {
		return ""
	}
	if len(specs) == 0 {
		return offers[0]
	}
	for _, spec := range ranked(specs) {
		for _, offer := range offers {
			if spec.Value == "*" || strings.EqualFold(spec.Value, offer) {
				return offer
			}
		}
	}
	return ""
}

// refused reports whether the given value is explicitly refused (q=0),
// directly or via a q=0 wildcard.
func refused(specs []Spec, value string) bool {
	for _, s := range specs {
		if s.Q == 0 && (s.Value == "*" || strings.EqualFold(s.Value, value)) {
			return true
		}
	}
	return false
}

// Language returns the best language among the offers for the raw
// Accept-Language header, using BCP 47 matching. An absent header accepts
// the first offer.
func Language(header string, offers ...string) string {
	if len(offers) == 0 {
		return ""
	}
	if header == "" {
		return offers[0]
	}
	desired, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(desired) == 0 {
		if strings.Contains(header, "*") {
			return offers[0]
		}
		return ""
	}

	supported := make([]language.Tag, 0, len(offers))
	indexes := make([]int, 0, len(offers))
	for i, offer := range offers {
		tag, err := language.Parse(offer)
		if err != nil {
			continue
		}
		supported = append(supported, tag)
		indexes = append(indexes, i)
	}
	if len(supported) == 0 {
		return ""
	}

	matcher := language.NewMatcher(supported)
	_, idx, conf := matcher.Match(desired...)
	if conf == language.No {
		if strings.Contains(header, "*") {
			return offers[0]
		}
		return ""
	}
	return offers[indexes[idx]]
}

// Match matches a concrete media type against patterns: exact types,
// extension shorthands ("json"), wildcards ("text/*", "*/*"), and suffixes
// ("+json"). It returns the first matching pattern, or "".
func Match(mediatype string, patterns ...string) string {
	mediatype = strings.ToLower(mediatype)
	for _, pattern := range patterns {
		if typeMatch(mediatype, strings.ToLower(pattern)) {
			return pattern
		}
	}
	return ""
}

// typeMatch reports whether one pattern matches the media type.
func typeMatch(mediatype, pattern string) bool {
	switch {
	case pattern == "":
		return false
	case strings.HasPrefix(pattern, "+"):
		// suffix form, e.g. "+json" matches "application/vnd.api+json"
		return strings.HasSuffix(mediatype, pattern)
	case !strings.Contains(pattern, "/"):
		full := ResolveType(pattern)
		return full != "" && full == mediatype
	default:
		return mediaMatch(pattern, mediatype)
	}
}

// ResolveType expands an extension or shorthand into a bare media type.
// Values already containing "/" are lower-cased and stripped of parameters.
func ResolveType(t string) string {
	if strings.Contains(t, "/") {
		mediatype, _, err := mime.ParseMediaType(t)
		if err != nil {
			return ""
		}
		return mediatype
	}
	switch t {
	case "html":
		return "text/html"
	case "text", "txt":
		return "text/plain"
	case "json":
		return "application/json"
	case "bin":
		return "application/octet-stream"
	}
	if full := mime.TypeByExtension("." + t); full != "" {
		mediatype, _, err := mime.ParseMediaType(full)
		if err == nil {
			return mediatype
		}
	}
	return ""
}

// Package fresh implements HTTP conditional-request freshness checking over
// the client's If-None-Match/If-Modified-Since headers and the response's
// ETag/Last-Modified validators.
package fresh

import (
	"net/http"
	"strings"
)

// Fresh reports whether the client's cached representation is still valid.
// A request with no conditional headers is never fresh, and an end-to-end
// reload (Cache-Control: no-cache) always bypasses freshness.
func Fresh(reqHeader, resHeader http.Header) bool {
	modifiedSince := reqHeader.Get("If-Modified-Since")
	noneMatch := reqHeader.Get("If-None-Match")
	if modifiedSince == "" && noneMatch == "" {
		return false
	}

	if hasNoCache(reqHeader.Get("Cache-Control")) {
		return false
	}

	if noneMatch != "" && noneMatch != "*" {
		etag := resHeader.Get("ETag")
		if etag == "" || !etagMatches(noneMatch, etag) {
			return false
		}
	}

	if modifiedSince != "" {
		lastModified := resHeader.Get("Last-Modified")
		if lastModified == "" {
			return false
		}
		lm, err := http.ParseTime(lastModified)
		if err != nil {
			return false
		}
		ms, err := http.ParseTime(modifiedSince)
		if err != nil {
			return false
		}
		if lm.After(ms) {
			return false
		}
	}

	return true
}

// etagMatches reports whether any entity tag in the If-None-Match list
// matches the response ETag, comparing weakly: W/ prefixes are ignored.
func etagMatches(noneMatch, etag string) bool {
	target := strings.TrimPrefix(etag, "W/")
	for _, tag := range strings.Split(noneMatch, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if strings.TrimPrefix(tag, "W/") == target {
			return true
		}
	}
	return false
}

// hasNoCache reports whether the Cache-Control value carries a no-cache
// directive as a full token.
func hasNoCache(cacheControl string) bool {
	if cacheControl == "" {
		return false
	}
	for _, directive := range strings.Split(cacheControl, ",") {
		name, _, _ := strings.Cut(strings.TrimSpace(directive), "=")
		if strings.EqualFold(strings.TrimSpace(name), "no-cache") {
			return true
		}
	}
	return false
}

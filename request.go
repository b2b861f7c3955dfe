package kawa

import (
	"mime"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"github.com/dmitrymomot/kawa/internal/fresh"
	"github.com/dmitrymomot/kawa/internal/negotiate"
)

// Request is the read/derive-oriented view over the incoming request. All
// derived values (host, protocol, ips, content type) are computed from the
// underlying request on demand; only the parsed query string and the parsed
// Accept header are cached.
type Request struct {
	r   *http.Request
	ctx *Context

	// originalURL is captured verbatim at context creation, before any
	// middleware can rewrite the URL. Needed for absolute-URL
	// reconstruction in Href.
	originalURL string

	queryCache    url.Values
	queryCacheKey string

	acceptSpecs  []negotiate.Spec
	acceptParsed bool
}

// Raw returns the underlying *http.Request.
func (c *Request) Raw() *http.Request { return c.r }

// Header returns the request header map.
func (c *Request) Header() http.Header { return c.r.Header }

// Get returns the first value of the given request header field,
// case-insensitively. Referrer and Referer are interchangeable.
func (c *Request) Get(field string) string {
	switch textproto.CanonicalMIMEHeaderKey(field) {
	case "Referer", "Referrer":
		if v := c.r.Header.Get("Referer"); v != "" {
			return v
		}
		return c.r.Header.Get("Referrer")
	}
	return c.r.Header.Get(field)
}

// Method returns the request method.
func (c *Request) Method() string { return c.r.Method }

// SetMethod overrides the request method, for method-override middleware.
func (c *Request) SetMethod(method string) { c.r.Method = method }

// URL returns the request URL as path plus query string.
func (c *Request) URL() string { return c.r.URL.RequestURI() }

// SetURL replaces the request URL. The original URL captured at context
// creation is not affected.
func (c *Request) SetURL(rawurl string) error {
	u, err := url.ParseRequestURI(rawurl)
	if err != nil {
		return err
	}
	c.r.URL = u
	return nil
}

// OriginalURL returns the request URL as it arrived, before any middleware
// rewrites.
func (c *Request) OriginalURL() string { return c.originalURL }

// Href returns the full absolute request URL, reconstructed from the
// negotiated protocol, the host, and the original URL.
func (c *Request) Href() string {
	if strings.Contains(c.originalURL, "://") {
		return c.originalURL
	}
	return c.Origin() + c.originalURL
}

// Path returns the request path.
func (c *Request) Path() string { return c.r.URL.Path }

// SetPath overrides the request path, preserving the query string.
func (c *Request) SetPath(path string) {
	c.r.URL.Path = path
	c.r.URL.RawPath = ""
}

// Querystring returns the raw query string, without the leading "?".
func (c *Request) Querystring() string { return c.r.URL.RawQuery }

// SetQuerystring replaces the raw query string.
func (c *Request) SetQuerystring(qs string) { c.r.URL.RawQuery = qs }

// Search returns the query string including the leading "?", or the empty
// string when there is no query.
func (c *Request) Search() string {
	if c.r.URL.RawQuery == "" {
		return ""
	}
	return "?" + c.r.URL.RawQuery
}

// SetSearch replaces the query string; a leading "?" is optional.
func (c *Request) SetSearch(search string) {
	c.SetQuerystring(strings.TrimPrefix(search, "?"))
}

// Query returns the parsed query string. The result is cached and reused as
// long as the raw query string is unchanged; rewriting the query string
// invalidates the cache.
func (c *Request) Query() url.Values {
	qs := c.r.URL.RawQuery
	if c.queryCache != nil && c.queryCacheKey == qs {
		return c.queryCache
	}
	vals, err := url.ParseQuery(qs)
	if err != nil && vals == nil {
		vals = url.Values{}
	}
	c.queryCache = vals
	c.queryCacheKey = qs
	return vals
}

// SetQuery replaces the query string with the encoding of the given values.
func (c *Request) SetQuery(values url.Values) {
	c.SetQuerystring(values.Encode())
}

// Host returns the request host (hostname:port). When the application
// trusts proxies, X-Forwarded-Host takes precedence.
func (c *Request) Host() string {
	var host string
	if c.ctx.app.proxy {
		host = firstForwarded(c.Get("X-Forwarded-Host"))
	}
	if host == "" {
		host = c.r.Host
	}
	return host
}

// Hostname returns the host without the port.
func (c *Request) Hostname() string {
	host := c.Host()
	if host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return strings.Trim(host, "[]")
}

// Origin returns the origin of the request URL (protocol://host).
func (c *Request) Origin() string {
	return c.Protocol() + "://" + c.Host()
}

// Protocol returns the negotiated request protocol: "https" when the
// transport connection is encrypted, else the value of X-Forwarded-Proto
// when proxies are trusted, else "http".
func (c *Request) Protocol() string {
	if c.r.TLS != nil {
		return "https"
	}
	if !c.ctx.app.proxy {
		return "http"
	}
	if proto := firstForwarded(c.Get("X-Forwarded-Proto")); proto != "" {
		return proto
	}
	return "http"
}

// Secure reports whether the negotiated protocol is https.
func (c *Request) Secure() bool { return c.Protocol() == "https" }

// Subdomains returns the subdomains of the host, ordered from closest to the
// registered domain outward. The two rightmost labels are considered the
// registered domain and are excluded; IP addresses have no subdomains.
func (c *Request) Subdomains() []string {
	host := c.Hostname()
	if host == "" || net.ParseIP(host) != nil {
		return nil
	}
	labels := strings.Split(host, ".")
	if len(labels) <= 2 {
		return nil
	}
	labels = labels[:len(labels)-2]
	// closest subdomain first
	for i, j := 0, len(labels)-1; i < j; i, j = i+1, j-1 {
		labels[i], labels[j] = labels[j], labels[i]
	}
	return labels
}

// IPs returns the proxy address chain from X-Forwarded-For when proxies are
// trusted, otherwise the single socket address.
func (c *Request) IPs() []string {
	if c.ctx.app.proxy {
		if fwd := c.Get("X-Forwarded-For"); fwd != "" {
			parts := strings.Split(fwd, ",")
			ips := make([]string, 0, len(parts))
			for _, p := range parts {
				if p = strings.TrimSpace(p); p != "" {
					ips = append(ips, p)
				}
			}
			if len(ips) > 0 {
				return ips
			}
		}
	}
	return []string{c.socketIP()}
}

// IP returns the request's originating address.
func (c *Request) IP() string {
	if ips := c.IPs(); len(ips) > 0 {
		return ips[0]
	}
	return ""
}

// socketIP returns the remote address of the transport connection.
func (c *Request) socketIP() string {
	if host, _, err := net.SplitHostPort(c.r.RemoteAddr); err == nil {
		return host
	}
	return c.r.RemoteAddr
}

// Length returns the request Content-Length, or -1 when not declared.
func (c *Request) Length() int64 {
	v := c.Get("Content-Length")
	if v == "" {
		return -1
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return -1
	}
	return n
}

// Type returns the request media type, void of parameters such as charset.
func (c *Request) Type() string {
	ct := c.Get("Content-Type")
	if ct == "" {
		return ""
	}
	mediatype, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return ""
	}
	return mediatype
}

// Charset returns the charset declared by the request Content-Type, if any.
func (c *Request) Charset() string {
	ct := c.Get("Content-Type")
	if ct == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(ct)
	if err != nil {
		return ""
	}
	return params["charset"]
}

// Is matches the request Content-Type against the given patterns (exact
// media type, extension shorthand like "json", wildcard like "text/*", or
// suffix like "+json") and returns the first pattern that matches. It
// returns the empty string when there is no request body or no match; with
// no patterns it returns the bare content type.
func (c *Request) Is(patterns ...string) string {
	if c.Length() <= 0 && c.Get("Transfer-Encoding") == "" {
		return ""
	}
	ct := c.Type()
	if ct == "" {
		return ""
	}
	if len(patterns) == 0 {
		return ct
	}
	return negotiate.Match(ct, patterns...)
}

// accept returns the parsed Accept header, parsing it at most once.
func (c *Request) accept() []negotiate.Spec {
	if !c.acceptParsed {
		c.acceptSpecs = negotiate.Parse(c.Get("Accept"))
		c.acceptParsed = true
	}
	return c.acceptSpecs
}

// Accepts returns the best media type match among the offers (full types or
// extension shorthands), honoring quality values with header order breaking
// ties, or the empty string when none is acceptable.
func (c *Request) Accepts(offers ...string) string {
	return negotiate.MediaType(c.accept(), offers...)
}

// AcceptsEncodings returns the best content-coding match among the offers.
func (c *Request) AcceptsEncodings(offers ...string) string {
	return negotiate.Encoding(negotiate.Parse(c.Get("Accept-Encoding")), offers...)
}

// AcceptsCharsets returns the best charset match among the offers.
func (c *Request) AcceptsCharsets(offers ...string) string {
	return negotiate.Charset(negotiate.Parse(c.Get("Accept-Charset")), offers...)
}

// AcceptsLanguages returns the best language match among the offers.
func (c *Request) AcceptsLanguages(offers ...string) string {
	return negotiate.Language(c.Get("Accept-Language"), offers...)
}

// Fresh reports whether the client's cache is still valid with respect to
// the response's validators. Only GET and HEAD requests with a success or
// 304 response status can be fresh; anything else is stale, so that
// cache-validation headers never mask real errors.
func (c *Request) Fresh() bool {
	method := c.r.Method
	if method != http.MethodGet && method != http.MethodHead {
		return false
	}
	status := c.ctx.res.Status()
	if (status >= 200 && status < 300) || status == http.StatusNotModified {
		return fresh.Fresh(c.r.Header, c.ctx.res.Header())
	}
	return false
}

// Stale is the inverse of Fresh.
func (c *Request) Stale() bool { return !c.Fresh() }

// Idempotent reports whether the request method is idempotent.
func (c *Request) Idempotent() bool {
	switch c.r.Method {
	case http.MethodGet, http.MethodHead, http.MethodPut,
		http.MethodDelete, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

// firstForwarded returns the first element of a comma-separated forwarded
// header value.
func firstForwarded(value string) string {
	if value == "" {
		return ""
	}
	if i := strings.IndexByte(value, ','); i >= 0 {
		value = value[:i]
	}
	return strings.TrimSpace(value)
}

package kawa

import "net/http"

// emptyStatuses are status codes that must not carry a response body.
var emptyStatuses = map[int]bool{
	http.StatusNoContent:    true,
	http.StatusResetContent: true,
	http.StatusNotModified:  true,
}

// redirectStatuses are status codes for which a Location header is meaningful.
var redirectStatuses = map[int]bool{
	http.StatusMultipleChoices:   true,
	http.StatusMovedPermanently:  true,
	http.StatusFound:             true,
	http.StatusSeeOther:          true,
	http.StatusUseProxy:          true,
	http.StatusTemporaryRedirect: true,
	http.StatusPermanentRedirect: true,
}

// statusEmpty reports whether code forbids a response body.
func statusEmpty(code int) bool { return emptyStatuses[code] }

// statusRedirect reports whether code is a redirect status.
func statusRedirect(code int) bool { return redirectStatuses[code] }

// statusRecognized reports whether code is in the IANA status code registry.
func statusRecognized(code int) bool { return http.StatusText(code) != "" }

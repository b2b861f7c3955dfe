package kawa

import (
	"net/http"
	"strings"
)

// Header-field capability of the Response. All lookups are case-insensitive.
// Every mutating operation is a silent no-op once header bytes have been
// committed to the wire: late writes must never raise.

// Header returns the response header map.
func (r *Response) Header() http.Header { return r.w.Header() }

// HeaderSent reports whether header bytes have been committed.
func (r *Response) HeaderSent() bool { return r.w.Written() }

// Get returns the first value of the given response header field, or the
// empty string when absent.
func (r *Response) Get(field string) string { return r.w.Header().Get(field) }

// Has reports whether the given header field is set.
func (r *Response) Has(field string) bool {
	return r.w.Header().Get(field) != ""
}

// Set replaces the given header field with the given value(s).
func (r *Response) Set(field string, values ...string) {
	if r.HeaderSent() {
		return
	}
	h := r.w.Header()
	h.Del(field)
	for _, v := range values {
		h.Add(field, v)
	}
}

// SetHeaders sets each field/value pair from the map.
func (r *Response) SetHeaders(headers map[string]string) {
	if r.HeaderSent() {
		return
	}
	for field, value := range headers {
		r.w.Header().Set(field, value)
	}
}

// Append adds the given value(s) to the header field, merging with any
// existing values instead of overwriting them.
func (r *Response) Append(field string, values ...string) {
	if r.HeaderSent() {
		return
	}
	for _, v := range values {
		r.w.Header().Add(field, v)
	}
}

// Remove deletes the given header field.
func (r *Response) Remove(field string) {
	if r.HeaderSent() {
		return
	}
	r.w.Header().Del(field)
}

// Vary merges the given field into the Vary header without duplicating an
// existing token. A "*" wipes out any previous field list.
func (r *Response) Vary(fields ...string) {
	if r.HeaderSent() {
		return
	}
	current := r.Get("Vary")
	if current == "*" {
		return
	}
	tokens := []string{}
	if current != "" {
		for _, t := range strings.Split(current, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tokens = append(tokens, t)
			}
		}
	}
	for _, field := range fields {
		if field == "*" {
			r.Set("Vary", "*")
			return
		}
		exists := false
		for _, t := range tokens {
			if strings.EqualFold(t, field) {
				exists = true
				break
			}
		}
		if !exists {
			tokens = append(tokens, field)
		}
	}
	if len(tokens) > 0 {
		r.Set("Vary", strings.Join(tokens, ", "))
	}
}

// FlushHeaders commits the status line and all headers set so far to the
// wire, ahead of the body. Headers become immutable afterwards.
func (r *Response) FlushHeaders() {
	if !r.w.Written() {
		r.w.WriteHeader(r.status)
	}
	r.w.Flush()
}

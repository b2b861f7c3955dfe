package kawa

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Response is the read/write view over the outgoing response. Its body can
// hold one of five variants: nil (no content), string (text), []byte
// (binary), io.Reader (stream), or any other value (structured, serialized
// as JSON at finalization). Setters enforce the status/body coupling rules:
// empty-body statuses null the body, a nil body forces 204, and a first body
// on the implicit default status forces 200.
type Response struct {
	w   *responseWriter
	ctx *Context

	status  int
	message string
	body    any

	// explicitStatus distinguishes a status deliberately set by middleware
	// from the implicit 404 default.
	explicitStatus bool
}

// Writer returns the underlying transport response writer.
func (r *Response) Writer() http.ResponseWriter { return r.w }

// Status returns the response status code.
func (r *Response) Status() int { return r.status }

// SetStatus sets the response status code. Unrecognized codes panic; the
// panic is recovered at the dispatch boundary and turned into a 500. Setting
// an empty-body status discards any existing body. A no-op after the header
// has been sent.
func (r *Response) SetStatus(code int) {
	if r.HeaderSent() {
		return
	}
	if !statusRecognized(code) {
		panic(fmt.Sprintf("kawa: invalid status code %d", code))
	}
	r.explicitStatus = true
	r.status = code
	r.message = ""
	if r.body != nil && statusEmpty(code) {
		r.SetBody(nil)
	}
}

// ExplicitStatus reports whether middleware deliberately set the status.
func (r *Response) ExplicitStatus() bool { return r.explicitStatus }

// Message returns the response status message: the explicitly set one, or
// the registry reason phrase for the current status.
func (r *Response) Message() string {
	if r.message != "" {
		return r.message
	}
	return http.StatusText(r.status)
}

// SetMessage overrides the response status message. It is only reflected in
// the null-body fallback text; HTTP/1.1 on this transport always sends the
// standard reason phrase on the wire.
func (r *Response) SetMessage(message string) { r.message = message }

// Body returns the current response body value.
func (r *Response) Body() any { return r.body }

// SetBody sets the response body and applies the coupling rules from the
// body kind: status, content type (only when not already set explicitly),
// and content length. Replacing a stream body releases the previous stream
// unless the new value is the same object.
func (r *Response) SetBody(value any) {
	prev := r.body
	r.body = value

	// release a replaced stream
	if pc, ok := prev.(io.Closer); ok && !sameBody(prev, value) {
		pc.Close()
	}

	if value == nil {
		if !statusEmpty(r.status) {
			r.SetStatus(http.StatusNoContent)
		}
		r.Remove("Content-Type")
		r.Remove("Content-Length")
		r.Remove("Transfer-Encoding")
		return
	}

	if !r.explicitStatus {
		r.SetStatus(http.StatusOK)
	}

	setType := !r.Has("Content-Type")

	switch b := value.(type) {
	case string:
		if setType {
			if looksLikeHTML(b) {
				r.SetType("html")
			} else {
				r.SetType("text")
			}
		}
		r.SetLength(int64(len(b)))
	case []byte:
		if setType {
			r.SetType("bin")
		}
		r.SetLength(int64(len(b)))
	case io.Reader:
		if prev != nil && !sameBody(prev, value) {
			r.Remove("Content-Length")
		}
		if setType {
			r.SetType("bin")
		}
	default:
		r.Remove("Content-Length")
		if setType {
			r.SetType("json")
		}
	}
}

// Length returns the response Content-Length: the declared header value if
// present, otherwise the byte length derived from the current body. Streams
// and absent bodies have unknown length, reported as -1.
func (r *Response) Length() int64 {
	if v := r.Get("Content-Length"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return -1
		}
		return n
	}
	switch b := r.body.(type) {
	case nil:
		return -1
	case string:
		return int64(len(b))
	case []byte:
		return int64(len(b))
	case io.Reader:
		return -1
	default:
		buf, err := json.Marshal(b)
		if err != nil {
			return -1
		}
		return int64(len(buf))
	}
}

// SetLength sets the Content-Length header.
func (r *Response) SetLength(n int64) {
	r.Set("Content-Length", strconv.FormatInt(n, 10))
}

// Type returns the response media type, void of parameters such as charset.
func (r *Response) Type() string {
	ct := r.Get("Content-Type")
	if ct == "" {
		return ""
	}
	mediatype, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return ""
	}
	return mediatype
}

// SetType sets the Content-Type from a full media type, an extension, or a
// shorthand like "html", "text", "json", "bin". An unresolvable type removes
// the header.
func (r *Response) SetType(t string) {
	if ct := resolveContentType(t); ct != "" {
		r.Set("Content-Type", ct)
	} else {
		r.Remove("Content-Type")
	}
}

// LastModified returns the Last-Modified header as a time, or the zero time
// when absent or malformed.
func (r *Response) LastModified() time.Time {
	v := r.Get("Last-Modified")
	if v == "" {
		return time.Time{}
	}
	t, err := http.ParseTime(v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// SetLastModified sets the Last-Modified header in HTTP date format.
func (r *Response) SetLastModified(t time.Time) {
	r.Set("Last-Modified", t.UTC().Format(http.TimeFormat))
}

// ETag returns the response ETag header value.
func (r *Response) ETag() string { return r.Get("ETag") }

// SetETag sets the ETag header, quoting the tag if not already quoted.
func (r *Response) SetETag(tag string) {
	if !strings.HasPrefix(tag, "\"") && !strings.HasPrefix(tag, "W/\"") {
		tag = strconv.Quote(tag)
	}
	r.Set("ETag", tag)
}

// Attachment marks the response as a downloadable file. A non-empty filename
// sets the content type from its extension and is carried, safely encoded,
// in the Content-Disposition header.
func (r *Response) Attachment(filename string) {
	if filename == "" {
		r.Set("Content-Disposition", "attachment")
		return
	}
	if ext := filepath.Ext(filename); len(ext) > 1 {
		r.SetType(ext[1:])
	}
	disposition := mime.FormatMediaType("attachment", map[string]string{
		"filename": filepath.Base(filename),
	})
	r.Set("Content-Disposition", disposition)
}

// Redirect performs a redirect to the given target. The literal "back"
// redirects to the request Referrer, falling back to alt or "/". The status
// is forced to 302 unless already a redirect status, and the body is an
// HTML anchor or a plain-text line depending on what the requester accepts.
func (r *Response) Redirect(target string, alt ...string) {
	if target == "back" {
		target = r.ctx.req.Get("Referrer")
		if target == "" && len(alt) > 0 {
			target = alt[0]
		}
		if target == "" {
			target = "/"
		}
	}
	encoded := encodeLocation(target)
	r.Set("Location", encoded)

	if !statusRedirect(r.status) {
		r.SetStatus(http.StatusFound)
	}

	if r.ctx.req.Accepts("html") != "" {
		escaped := html.EscapeString(encoded)
		r.SetType("html")
		r.SetBody("Redirecting to <a href=\"" + escaped + "\">" + escaped + "</a>.")
		return
	}
	r.SetType("text")
	r.SetBody("Redirecting to " + encoded + ".")
}

// Writable reports whether the response can still be written to: it has not
// been finalized and the transport connection is still alive.
func (r *Response) Writable() bool {
	if r.w.finished {
		return false
	}
	return r.ctx.req.r.Context().Err() == nil
}

// looksLikeHTML reports whether the text body starts with markup.
func looksLikeHTML(s string) bool {
	return strings.HasPrefix(strings.TrimLeft(s, " \t\r\n"), "<")
}

// releaseBody closes a stream body, if any, and clears the body without
// applying the status/body coupling rules. Finalization paths that abandon
// the body use it so a stream is released on every exit.
func (r *Response) releaseBody() {
	if cl, ok := r.body.(io.Closer); ok {
		cl.Close()
	}
	r.body = nil
}

// sameBody reports whether two body values are the same object. Values of
// non-comparable dynamic types are never the same object.
func sameBody(a, b any) bool {
	if b == nil {
		return false
	}
	if !reflect.ValueOf(a).Comparable() || !reflect.ValueOf(b).Comparable() {
		return false
	}
	return a == b
}

// resolveContentType expands an extension or shorthand into a full media
// type. Values already containing "/" pass through unchanged.
func resolveContentType(t string) string {
	if strings.Contains(t, "/") {
		return t
	}
	switch t {
	case "html":
		return "text/html; charset=utf-8"
	case "text", "txt":
		return "text/plain; charset=utf-8"
	case "json":
		return "application/json; charset=utf-8"
	case "bin":
		return "application/octet-stream"
	}
	return mime.TypeByExtension("." + t)
}

// encodeLocation percent-encodes the redirect target the way a URL
// serializer would, leaving it untouched when it does not parse.
func encodeLocation(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	return u.String()
}

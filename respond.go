package kawa

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
)

// respond commits the context's final state to the transport response. It
// runs exactly once per request, after the middleware chain completed
// without error.
func (c *Context) respond() {
	res := c.res
	if !res.Writable() {
		res.releaseBody()
		return
	}
	w := res.w
	code := res.status

	// empty-body status: discard any body, end with no payload
	if statusEmpty(code) {
		res.SetBody(nil)
		w.WriteHeader(code)
		w.finished = true
		return
	}

	// HEAD carries no body regardless of what was set, but the length of
	// the would-be body is still declared when headers are open
	if c.req.Method() == http.MethodHead {
		if !w.Written() && !res.Has("Content-Length") {
			if n := res.Length(); n >= 0 {
				res.SetLength(n)
			}
		}
		res.releaseBody()
		w.WriteHeader(code)
		w.finished = true
		return
	}

	body := res.body

	// null body: fall back to the status message as plain text
	if body == nil {
		msg := res.Message()
		if msg == "" {
			msg = strconv.Itoa(code)
		}
		if !w.Written() {
			res.SetType("text")
			res.SetLength(int64(len(msg)))
		}
		c.end(code, []byte(msg))
		return
	}

	switch b := body.(type) {
	case string:
		c.end(code, []byte(b))
	case []byte:
		c.end(code, b)
	case io.Reader:
		w.WriteHeader(code)
		err := copyBody(c.req.r.Context(), w, b)
		w.finished = true
		// copyBody closed the stream on every exit; detach it so onerror
		// cannot close it a second time
		res.body = nil
		if err != nil {
			c.onerror(err)
		}
	default:
		buf, err := json.Marshal(b)
		if err != nil {
			c.onerror(err)
			return
		}
		if !w.Written() {
			res.SetLength(int64(len(buf)))
		}
		c.end(code, buf)
	}
}

// end writes the status line and the final payload, marking the response
// finished. Write failures are transport-level errors and are funneled into
// onerror for observability; by then headers are sent, so no further
// response bytes are attempted.
func (c *Context) end(code int, payload []byte) {
	w := c.res.w
	w.WriteHeader(code)
	_, err := w.Write(payload)
	w.finished = true
	if err != nil {
		c.onerror(err)
	}
}

// onerror is the single error boundary for one request. Errors from any
// middleware layer, from finalization, and from the transport all arrive
// here; the error is always forwarded to the application's error listeners,
// and an error response is written when the response is still open.
func (c *Context) onerror(err error) {
	if err == nil {
		return
	}
	res := c.res

	// when nothing more can be written, mark the error so listeners can
	// tell no error response was sent for it
	sent := res.HeaderSent() || !res.Writable()
	if sent {
		err = &headersSentError{err: err}
	}

	// observability first, and unconditionally
	c.app.emitError(err, c)

	// an abandoned stream body is released on every path through here
	res.releaseBody()

	if sent {
		return
	}

	// discard everything middleware set; keep only what the error carries
	h := res.Header()
	for field := range h {
		delete(h, field)
	}
	for field, value := range errHeaders(err) {
		h.Set(field, value)
	}

	code := errStatusCode(err)
	msg := errMessage(err)
	if msg == "" {
		msg = http.StatusText(code)
	}

	res.status = code
	res.explicitStatus = true
	res.Set("Content-Type", "text/plain; charset=utf-8")
	res.SetLength(int64(len(msg)))

	w := res.w
	w.WriteHeader(code)
	w.Write([]byte(msg))
	w.finished = true
}

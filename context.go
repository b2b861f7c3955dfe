package kawa

import (
	"context"

	"github.com/dmitrymomot/kawa/core/cookie"
)

// Context binds one request view and one response view to a single transport
// request/response pair for the lifetime of one HTTP exchange. The three
// objects form a closed triangle: each can reach the other two and the
// owning application.
//
// A context moves through four states: created (implicit 404, empty body),
// dispatching (the middleware chain is running), finalizing (respond or
// onerror is committing the final state), and sent (the transport response
// has ended). Writes after sent are silently dropped.
type Context struct {
	app *Application
	req *Request
	res *Response

	state map[string]any
	jar   *cookie.Jar
}

// App returns the owning application.
func (c *Context) App() *Application { return c.app }

// Request returns the request view.
func (c *Context) Request() *Request { return c.req }

// Response returns the response view.
func (c *Context) Response() *Response { return c.res }

// Context returns the request-scoped context, canceled when the client goes
// away. Middleware doing asynchronous work should honor it.
func (c *Context) Context() context.Context {
	return c.req.r.Context()
}

// State returns the free-form per-request state shared across middleware.
// The map is allocated lazily and is safe to mutate: the chain is
// sequential, so there is no concurrent access within one request.
func (c *Context) State() map[string]any {
	if c.state == nil {
		c.state = make(map[string]any)
	}
	return c.state
}

// Cookies returns the cookie jar for this exchange, built once on first use.
// It signs with the application keys and marks cookies secure when the
// negotiated protocol is https.
func (c *Context) Cookies() *cookie.Jar {
	if c.jar == nil {
		c.jar = cookie.NewJar(c.res.w, c.req.r, c.app.keys, c.req.Secure())
	}
	return c.jar
}

// Throw builds an HTTPError for the given status, suitable for returning
// from middleware. Client errors (4xx) are exposable by default.
func (c *Context) Throw(status int, message ...string) error {
	msg := ""
	if len(message) > 0 {
		msg = message[0]
	}
	return NewHTTPError(status, msg)
}

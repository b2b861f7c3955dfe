package kawa

// Middleware is one layer of the onion. It receives the request context and a
// continuation that runs everything registered after it. A middleware fully
// controls when execution passes downstream: code before next() runs on the
// way in, code after next() runs after every inner layer has completed.
type Middleware func(c *Context, next Next) error

// Next resumes the downstream portion of the middleware chain. It must be
// invoked at most once per request; a second invocation fails with
// ErrNextCalledTwice.
type Next func() error

// compose folds a middleware stack into a single middleware preserving strict
// onion nesting: stack[0] wraps stack[1], which wraps stack[2], and so on.
// The final continuation is next (or a no-op when next is nil).
func compose(stack []Middleware) Middleware {
	return func(c *Context, next Next) error {
		// lastIndex guards against a middleware re-running the remainder
		// of the chain within one request.
		lastIndex := -1

		var dispatch func(i int) error
		dispatch = func(i int) error {
			if i <= lastIndex {
				return ErrNextCalledTwice
			}
			lastIndex = i

			if i == len(stack) {
				if next == nil {
					return nil
				}
				return next()
			}

			return stack[i](c, func() error { return dispatch(i + 1) })
		}

		return dispatch(0)
	}
}

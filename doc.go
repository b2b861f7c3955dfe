// Package kawa implements the per-request execution core of a minimal HTTP
// framework: a unified context over one request/response pair, an onion of
// middleware mutating that context, and a deterministic finalization step
// committing the context's final state to the wire exactly once.
//
// # Basic Usage
//
//	app := kawa.New(kawa.WithKeys("secret-key"))
//
//	app.Use(func(c *kawa.Context, next kawa.Next) error {
//		start := time.Now()
//		if err := next(); err != nil {
//			return err
//		}
//		c.Response().Set("X-Response-Time", time.Since(start).String())
//		return nil
//	})
//
//	app.Use(func(c *kawa.Context, next kawa.Next) error {
//		c.Response().SetBody("Hello World")
//		return next()
//	})
//
//	http.ListenAndServe(":8080", app.Callback())
//
// # Middleware
//
// A middleware receives the context and a continuation. Everything before
// next() runs on the way downstream, everything after runs once all inner
// middleware completed, producing strict before/after nesting even across
// asynchronous work. Returning an error from any layer aborts the chain and
// routes into the context's single error boundary, which writes a
// well-formed error response and notifies the application's error
// listeners.
//
// # Errors
//
// Errors may carry an HTTP status, response headers, and an expose flag by
// implementing the corresponding methods; HTTPError does all three. The
// message of a non-exposable error never reaches the client: it is replaced
// by the generic reason phrase for the resolved status.
//
// # Settings
//
// The application carries process-wide settings: env (informational), proxy
// (trust X-Forwarded-* headers), keys (cookie signing), and silent
// (suppress the default error log). They can be set via options or loaded
// from the environment with NewFromEnv.
package kawa

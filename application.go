package kawa

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/dmitrymomot/kawa/core/config"
	"github.com/dmitrymomot/kawa/core/logger"
)

// ErrorListener observes every error funneled through a context's error
// boundary, whether or not an error response could still be written.
type ErrorListener func(err error, c *Context)

// Application holds the process-wide configuration and the middleware
// chain. Create it once at startup; register middleware and error listeners
// before serving. The middleware list is effectively read-only during
// dispatch, so appending while requests are in flight must be avoided.
type Application struct {
	env    string
	proxy  bool
	keys   []string
	silent bool
	logger *slog.Logger

	middleware []Middleware
	listeners  []ErrorListener
}

// Option configures an Application during creation.
type Option func(*Application)

// WithEnv sets the environment name. Informational only.
func WithEnv(env string) Option {
	return func(a *Application) {
		if env != "" {
			a.env = env
		}
	}
}

// WithProxy sets whether X-Forwarded-* headers are trusted for protocol,
// host, and client address resolution.
func WithProxy(trust bool) Option {
	return func(a *Application) { a.proxy = trust }
}

// WithKeys sets the cookie-signing keys. The first key signs, all keys
// verify, so keys can be rotated by prepending a new one.
func WithKeys(keys ...string) Option {
	return func(a *Application) { a.keys = keys }
}

// WithSilent suppresses the default diagnostic log on unhandled errors.
func WithSilent(silent bool) Option {
	return func(a *Application) { a.silent = silent }
}

// WithLogger sets the logger used by the default error listener.
func WithLogger(log *slog.Logger) Option {
	return func(a *Application) {
		if log != nil {
			a.logger = log
		}
	}
}

// New creates a new application with the given options.
func New(opts ...Option) *Application {
	app := &Application{
		env:    "development",
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// Config holds the application settings loadable from the environment.
type Config struct {
	Env    string   `env:"APP_ENV" envDefault:"development"`
	Proxy  bool     `env:"APP_PROXY" envDefault:"false"`
	Keys   []string `env:"APP_KEYS" envSeparator:","`
	Silent bool     `env:"APP_SILENT" envDefault:"false"`
}

// NewFromEnv creates a new application configured from environment
// variables, with any options applied on top.
func NewFromEnv(opts ...Option) (*Application, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	return NewFromConfig(cfg, opts...), nil
}

// NewFromConfig creates a new application from an explicit configuration.
func NewFromConfig(cfg Config, opts ...Option) *Application {
	base := []Option{
		WithEnv(cfg.Env),
		WithProxy(cfg.Proxy),
		WithKeys(cfg.Keys...),
		WithSilent(cfg.Silent),
	}
	return New(append(base, opts...)...)
}

// Env returns the environment name.
func (a *Application) Env() string { return a.env }

// Proxy reports whether X-Forwarded-* headers are trusted.
func (a *Application) Proxy() bool { return a.proxy }

// Keys returns the cookie-signing keys.
func (a *Application) Keys() []string { return a.keys }

// Silent reports whether the default error log is suppressed.
func (a *Application) Silent() bool { return a.silent }

// Use appends a middleware to the chain and returns the application for
// chaining. A nil middleware is a programming error and panics.
func (a *Application) Use(m Middleware) *Application {
	if m == nil {
		panic("kawa: middleware must not be nil")
	}
	a.middleware = append(a.middleware, m)
	return a
}

// OnError subscribes a listener to the application's error notification
// channel. Registering any listener replaces the default diagnostic log.
func (a *Application) OnError(fn ErrorListener) *Application {
	if fn == nil {
		panic("kawa: error listener must not be nil")
	}
	a.listeners = append(a.listeners, fn)
	return a
}

// Callback builds the request listener: a handler that creates a fresh
// context per request, runs the composed middleware chain against it, and
// finalizes the response exactly once — via respond on success, via the
// context error boundary on any failure, including panics.
func (a *Application) Callback() http.Handler {
	stack := make([]Middleware, len(a.middleware))
	copy(stack, a.middleware)
	fn := compose(stack)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := a.NewContext(w, r)
		a.handle(c, fn)
	})
}

// NewContext builds the context triangle for one transport request/response
// pair: fresh request and response views back-referencing the context and
// the application, response seeded with the implicit 404 status and an
// empty body, and the original URL captured before middleware can rewrite
// it.
func (a *Application) NewContext(w http.ResponseWriter, r *http.Request) *Context {
	c := &Context{app: a}

	originalURL := r.RequestURI
	if originalURL == "" {
		originalURL = r.URL.RequestURI()
	}

	c.req = &Request{
		r:           r,
		ctx:         c,
		originalURL: originalURL,
	}
	c.res = &Response{
		w:      newResponseWriter(w),
		ctx:    c,
		status: http.StatusNotFound,
	}
	return c
}

// handle runs the composed chain and finalizes. Panics from any middleware
// layer are recovered here, wrapped with their stack trace, and funneled
// into the same error boundary as returned errors.
func (a *Application) handle(c *Context, fn Middleware) {
	defer func() {
		if p := recover(); p != nil {
			c.onerror(&panicError{value: p, stack: debug.Stack()})
		}
	}()

	if err := fn(c, nil); err != nil {
		c.onerror(err)
		return
	}
	c.respond()
}

// emitError forwards an error to the registered listeners, or to the
// default diagnostic log when none are registered.
func (a *Application) emitError(err error, c *Context) {
	if len(a.listeners) == 0 {
		a.logError(err, c)
		return
	}
	for _, fn := range a.listeners {
		fn(err, c)
	}
}

// logError is the default error listener. Exposable errors are expected,
// client-facing failures and are not logged; everything else is an
// operational anomaly.
func (a *Application) logError(err error, c *Context) {
	if a.silent || errExposed(err) {
		return
	}
	attrs := []slog.Attr{
		logger.Error(err),
		logger.Method(c.req.Method()),
		logger.Path(c.req.Path()),
		logger.StatusCode(errStatusCode(err)),
	}
	var pe PanicError
	if errors.As(err, &pe) {
		attrs = append(attrs, slog.String("stack", string(pe.Stack())))
	}
	a.logger.LogAttrs(context.Background(), slog.LevelError, "kawa: unhandled error", attrs...)
}

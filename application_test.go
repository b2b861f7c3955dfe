package kawa_test

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/kawa"
)

func serve(app *kawa.Application, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	app.Callback().ServeHTTP(w, r)
	return w
}

func TestApplicationDefaults(t *testing.T) {
	t.Parallel()

	t.Run("empty chain responds 404", func(t *testing.T) {
		t.Parallel()

		app := kawa.New()
		w := serve(app, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Not Found", w.Body.String())
		assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	})

	t.Run("options configure the application", func(t *testing.T) {
		t.Parallel()

		app := kawa.New(
			kawa.WithEnv("production"),
			kawa.WithProxy(true),
			kawa.WithKeys("k1", "k2"),
			kawa.WithSilent(true),
		)

		assert.Equal(t, "production", app.Env())
		assert.True(t, app.Proxy())
		assert.Equal(t, []string{"k1", "k2"}, app.Keys())
		assert.True(t, app.Silent())
	})

	t.Run("from explicit config", func(t *testing.T) {
		t.Parallel()

		app := kawa.NewFromConfig(kawa.Config{
			Env:   "staging",
			Proxy: true,
			Keys:  []string{"secret"},
		})

		assert.Equal(t, "staging", app.Env())
		assert.True(t, app.Proxy())
		assert.Equal(t, []string{"secret"}, app.Keys())
	})
}

func TestApplicationUse(t *testing.T) {
	t.Parallel()

	t.Run("chains and returns the application", func(t *testing.T) {
		t.Parallel()

		app := kawa.New()
		got := app.Use(func(c *kawa.Context, next kawa.Next) error { return next() })
		assert.Same(t, app, got)
	})

	t.Run("nil middleware panics", func(t *testing.T) {
		t.Parallel()

		assert.PanicsWithValue(t, "kawa: middleware must not be nil", func() {
			kawa.New().Use(nil)
		})
	})
}

func TestMiddlewareDispatch(t *testing.T) {
	t.Parallel()

	t.Run("onion ordering", func(t *testing.T) {
		t.Parallel()

		var trace []string
		step := func(name string) kawa.Middleware {
			return func(c *kawa.Context, next kawa.Next) error {
				trace = append(trace, name+" in")
				if err := next(); err != nil {
					return err
				}
				trace = append(trace, name+" out")
				return nil
			}
		}

		app := kawa.New()
		app.Use(step("a")).Use(step("b")).Use(step("c"))
		app.Use(func(c *kawa.Context, next kawa.Next) error {
			c.Response().SetBody("done")
			return nil
		})

		serve(app, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, []string{"a in", "b in", "c in", "c out", "b out", "a out"}, trace)
	})

	t.Run("downstream sees upstream state before it runs", func(t *testing.T) {
		t.Parallel()

		app := kawa.New()
		app.Use(func(c *kawa.Context, next kawa.Next) error {
			c.State()["user"] = "alice"
			return next()
		})
		app.Use(func(c *kawa.Context, next kawa.Next) error {
			c.Response().SetBody("hello " + c.State()["user"].(string))
			return nil
		})

		w := serve(app, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, "hello alice", w.Body.String())
	})

	t.Run("short circuit skips downstream", func(t *testing.T) {
		t.Parallel()

		reached := false
		app := kawa.New()
		app.Use(func(c *kawa.Context, next kawa.Next) error {
			c.Response().SetBody("blocked")
			return nil
		})
		app.Use(func(c *kawa.Context, next kawa.Next) error {
			reached = true
			return next()
		})

		w := serve(app, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.False(t, reached)
		assert.Equal(t, "blocked", w.Body.String())
	})

	t.Run("double next fails the request", func(t *testing.T) {
		t.Parallel()

		var seen error
		app := kawa.New(kawa.WithSilent(true))
		app.OnError(func(err error, c *kawa.Context) { seen = err })
		app.Use(func(c *kawa.Context, next kawa.Next) error {
			if err := next(); err != nil {
				return err
			}
			return next()
		})

		w := serve(app, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.ErrorIs(t, seen, kawa.ErrNextCalledTwice)
	})

	t.Run("middleware registered after callback does not run", func(t *testing.T) {
		t.Parallel()

		app := kawa.New()
		app.Use(func(c *kawa.Context, next kawa.Next) error {
			c.Response().SetBody("first")
			return nil
		})
		h := app.Callback()
		app.Use(func(c *kawa.Context, next kawa.Next) error {
			c.Response().SetBody("second")
			return nil
		})

		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, "first", w.Body.String())
	})
}

func TestErrorBoundary(t *testing.T) {
	t.Parallel()

	t.Run("plain error responds 500 without leaking the message", func(t *testing.T) {
		t.Parallel()

		app := kawa.New(kawa.WithSilent(true))
		app.Use(func(c *kawa.Context, next kawa.Next) error {
			return errors.New("database password rejected")
		})

		w := serve(app, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Internal Server Error", w.Body.String())
	})

	t.Run("http error controls status and message", func(t *testing.T) {
		t.Parallel()

		app := kawa.New()
		app.Use(func(c *kawa.Context, next kawa.Next) error {
			return c.Throw(http.StatusBadRequest, "missing id")
		})

		w := serve(app, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "missing id", w.Body.String())
	})

	t.Run("error wipes previously set headers and keeps its own", func(t *testing.T) {
		t.Parallel()

		app := kawa.New()
		app.Use(func(c *kawa.Context, next kawa.Next) error {
			c.Response().Set("X-Custom", "value")
			c.Response().SetETag("abc")
			return kawa.ErrTooManyRequests.WithHeader("Retry-After", "30")
		})

		w := serve(app, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Empty(t, w.Header().Get("X-Custom"))
		assert.Empty(t, w.Header().Get("ETag"))
		assert.Equal(t, "30", w.Header().Get("Retry-After"))
	})

	t.Run("panic is recovered into a 500", func(t *testing.T) {
		t.Parallel()

		var seen error
		app := kawa.New(kawa.WithSilent(true))
		app.OnError(func(err error, c *kawa.Context) { seen = err })
		app.Use(func(c *kawa.Context, next kawa.Next) error {
			panic("boom")
		})

		w := serve(app, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)

		var pe kawa.PanicError
		require.ErrorAs(t, seen, &pe)
		assert.Equal(t, "boom", pe.Value())
		assert.NotEmpty(t, pe.Stack())
	})

	t.Run("panicked error keeps its http identity", func(t *testing.T) {
		t.Parallel()

		app := kawa.New()
		app.Use(func(c *kawa.Context, next kawa.Next) error {
			panic(kawa.ErrForbidden)
		})

		w := serve(app, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "Forbidden", w.Body.String())
	})

	t.Run("listener is notified even when headers were sent", func(t *testing.T) {
		t.Parallel()

		var seen error
		app := kawa.New()
		app.OnError(func(err error, c *kawa.Context) { seen = err })
		app.Use(func(c *kawa.Context, next kawa.Next) error {
			c.Response().FlushHeaders()
			return errors.New("too late")
		})

		w := serve(app, httptest.NewRequest(http.MethodGet, "/", nil))

		// headers were already committed with the pre-error status
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.EqualError(t, seen, "too late")
		assert.True(t, kawa.HeadersSent(seen))
	})

	t.Run("marker is absent when the error response was written", func(t *testing.T) {
		t.Parallel()

		var seen error
		app := kawa.New(kawa.WithSilent(true))
		app.OnError(func(err error, c *kawa.Context) { seen = err })
		app.Use(func(c *kawa.Context, next kawa.Next) error {
			return errors.New("early failure")
		})

		w := serve(app, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.False(t, kawa.HeadersSent(seen))
	})

	t.Run("nil listener panics", func(t *testing.T) {
		t.Parallel()

		assert.PanicsWithValue(t, "kawa: error listener must not be nil", func() {
			kawa.New().OnError(nil)
		})
	})
}

func TestDefaultErrorLog(t *testing.T) {
	t.Parallel()

	t.Run("unexpected errors are logged", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		app := kawa.New(kawa.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
		app.Use(func(c *kawa.Context, next kawa.Next) error {
			return errors.New("kaboom")
		})

		serve(app, httptest.NewRequest(http.MethodGet, "/broken", nil))

		out := buf.String()
		assert.Contains(t, out, "unhandled error")
		assert.Contains(t, out, "kaboom")
		assert.Contains(t, out, "path=/broken")
	})

	t.Run("exposable errors are not logged", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		app := kawa.New(kawa.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
		app.Use(func(c *kawa.Context, next kawa.Next) error {
			return kawa.ErrBadRequest
		})

		serve(app, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Empty(t, buf.String())
	})

	t.Run("silent suppresses the default log", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		app := kawa.New(
			kawa.WithSilent(true),
			kawa.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
		)
		app.Use(func(c *kawa.Context, next kawa.Next) error {
			return errors.New("kaboom")
		})

		serve(app, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Empty(t, buf.String())
	})

	t.Run("registered listener replaces the default log", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		notified := false
		app := kawa.New(kawa.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
		app.OnError(func(err error, c *kawa.Context) { notified = true })
		app.Use(func(c *kawa.Context, next kawa.Next) error {
			return errors.New("kaboom")
		})

		serve(app, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.True(t, notified)
		assert.Empty(t, buf.String())
	})
}

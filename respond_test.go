package kawa_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/kawa"
)

func handlerApp(fn kawa.Middleware) *kawa.Application {
	app := kawa.New(kawa.WithSilent(true))
	app.Use(fn)
	return app
}

func TestRespondBodies(t *testing.T) {
	t.Parallel()

	t.Run("string body", func(t *testing.T) {
		t.Parallel()

		app := handlerApp(func(c *kawa.Context, next kawa.Next) error {
			c.Response().SetBody("hello world")
			return nil
		})
		w := serve(app, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "hello world", w.Body.String())
		assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Equal(t, "11", w.Header().Get("Content-Length"))
	})

	t.Run("bytes body", func(t *testing.T) {
		t.Parallel()

		app := handlerApp(func(c *kawa.Context, next kawa.Next) error {
			c.Response().SetBody([]byte("raw"))
			return nil
		})
		w := serve(app, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, "raw", w.Body.String())
		assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))
	})

	t.Run("stream body is piped and closed", func(t *testing.T) {
		t.Parallel()

		body := &closeTracker{Reader: strings.NewReader("streamed bytes")}
		app := handlerApp(func(c *kawa.Context, next kawa.Next) error {
			c.Response().SetBody(body)
			return nil
		})
		w := serve(app, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, "streamed bytes", w.Body.String())
		assert.True(t, body.closed)
		assert.Empty(t, w.Header().Get("Content-Length"))
	})

	t.Run("stream body is released when the chain errors", func(t *testing.T) {
		t.Parallel()

		body := &closeTracker{Reader: strings.NewReader("never sent")}
		app := handlerApp(func(c *kawa.Context, next kawa.Next) error {
			c.Response().SetBody(body)
			return errors.New("handler failed")
		})
		w := serve(app, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Internal Server Error", w.Body.String())
		assert.True(t, body.closed)
	})

	t.Run("stream body is released on HEAD finalization", func(t *testing.T) {
		t.Parallel()

		body := &closeTracker{Reader: strings.NewReader("never sent")}
		app := handlerApp(func(c *kawa.Context, next kawa.Next) error {
			c.Response().SetBody(body)
			return nil
		})
		w := serve(app, httptest.NewRequest(http.MethodHead, "/", nil))

		assert.Empty(t, w.Body.String())
		assert.True(t, body.closed)
	})

	t.Run("stream body is released when headers were already sent", func(t *testing.T) {
		t.Parallel()

		body := &closeTracker{Reader: strings.NewReader("never sent")}
		app := handlerApp(func(c *kawa.Context, next kawa.Next) error {
			c.Response().FlushHeaders()
			c.Response().SetBody(body)
			return errors.New("too late")
		})
		serve(app, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.True(t, body.closed)
	})

	t.Run("structured body is json", func(t *testing.T) {
		t.Parallel()

		app := handlerApp(func(c *kawa.Context, next kawa.Next) error {
			c.Response().SetBody(map[string]any{"id": 7, "name": "kawa"})
			return nil
		})
		w := serve(app, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.JSONEq(t, `{"id":7,"name":"kawa"}`, w.Body.String())
		assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	})

	t.Run("unmarshalable body becomes an error response", func(t *testing.T) {
		t.Parallel()

		var seen error
		app := kawa.New(kawa.WithSilent(true))
		app.OnError(func(err error, c *kawa.Context) { seen = err })
		app.Use(func(c *kawa.Context, next kawa.Next) error {
			c.Response().SetBody(map[string]any{"fn": func() {}})
			return nil
		})
		w := serve(app, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		require.Error(t, seen)
	})
}

func TestRespondStatusOnly(t *testing.T) {
	t.Parallel()

	t.Run("null body falls back to the status message", func(t *testing.T) {
		t.Parallel()

		app := handlerApp(func(c *kawa.Context, next kawa.Next) error {
			c.Response().SetStatus(http.StatusTeapot)
			return nil
		})
		w := serve(app, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusTeapot, w.Code)
		assert.Equal(t, "I'm a teapot", w.Body.String())
		assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	})

	t.Run("custom message is the fallback body", func(t *testing.T) {
		t.Parallel()

		app := handlerApp(func(c *kawa.Context, next kawa.Next) error {
			c.Response().SetStatus(http.StatusOK)
			c.Response().SetMessage("All Good")
			return nil
		})
		w := serve(app, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, "All Good", w.Body.String())
	})

	t.Run("empty statuses carry no body", func(t *testing.T) {
		t.Parallel()

		for _, code := range []int{http.StatusNoContent, http.StatusResetContent, http.StatusNotModified} {
			app := handlerApp(func(c *kawa.Context, next kawa.Next) error {
				c.Response().SetBody("should vanish")
				c.Response().SetStatus(code)
				return nil
			})
			w := serve(app, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, code, w.Code)
			assert.Empty(t, w.Body.String())
			assert.Empty(t, w.Header().Get("Content-Type"))
		}
	})
}

func TestRespondHead(t *testing.T) {
	t.Parallel()

	t.Run("body is dropped but its length is declared", func(t *testing.T) {
		t.Parallel()

		app := handlerApp(func(c *kawa.Context, next kawa.Next) error {
			c.Response().SetBody("hello")
			return nil
		})
		w := serve(app, httptest.NewRequest(http.MethodHead, "/", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Body.String())
		assert.Equal(t, "5", w.Header().Get("Content-Length"))
	})

	t.Run("structured body length is its serialized size", func(t *testing.T) {
		t.Parallel()

		app := handlerApp(func(c *kawa.Context, next kawa.Next) error {
			c.Response().SetBody(map[string]int{"n": 1})
			return nil
		})
		w := serve(app, httptest.NewRequest(http.MethodHead, "/", nil))

		assert.Empty(t, w.Body.String())
		assert.Equal(t, "7", w.Header().Get("Content-Length"))
	})

	t.Run("stream body leaves length unknown", func(t *testing.T) {
		t.Parallel()

		app := handlerApp(func(c *kawa.Context, next kawa.Next) error {
			c.Response().SetBody(strings.NewReader("stream"))
			return nil
		})
		w := serve(app, httptest.NewRequest(http.MethodHead, "/", nil))

		assert.Empty(t, w.Body.String())
		assert.Empty(t, w.Header().Get("Content-Length"))
	})
}

func TestRespondFlushHeaders(t *testing.T) {
	t.Parallel()

	t.Run("early flush freezes the status line", func(t *testing.T) {
		t.Parallel()

		app := handlerApp(func(c *kawa.Context, next kawa.Next) error {
			c.Response().SetStatus(http.StatusOK)
			c.Response().FlushHeaders()
			c.Response().SetBody("after flush")
			return nil
		})
		w := serve(app, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "after flush", w.Body.String())
	})
}

func TestRespondCanceledRequest(t *testing.T) {
	t.Parallel()

	t.Run("nothing is written", func(t *testing.T) {
		t.Parallel()

		app := handlerApp(func(c *kawa.Context, next kawa.Next) error {
			c.Response().SetBody("never sent")
			return nil
		})

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		ctx, cancel := context.WithCancel(r.Context())
		cancel()
		w := serve(app, r.WithContext(ctx))

		assert.Empty(t, w.Body.String())
	})

	t.Run("stream body is still released", func(t *testing.T) {
		t.Parallel()

		body := &closeTracker{Reader: strings.NewReader("never sent")}
		app := handlerApp(func(c *kawa.Context, next kawa.Next) error {
			c.Response().SetBody(body)
			return nil
		})

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		ctx, cancel := context.WithCancel(r.Context())
		cancel()
		serve(app, r.WithContext(ctx))

		assert.True(t, body.closed)
	})
}

func TestStreamCopyHonorsDisconnect(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx, cancel := context.WithCancel(r.Context())

	var seen error
	app := kawa.New(kawa.WithSilent(true))
	app.OnError(func(err error, c *kawa.Context) { seen = err })
	app.Use(func(c *kawa.Context, next kawa.Next) error {
		c.Response().SetBody(io.MultiReader(
			strings.NewReader(strings.Repeat("x", 64<<10)),
			cancelingReader{cancel: cancel},
		))
		return nil
	})

	serve(app, r.WithContext(ctx))

	assert.ErrorIs(t, seen, context.Canceled)
}

// cancelingReader simulates the client disconnecting mid-stream.
type cancelingReader struct{ cancel context.CancelFunc }

func (r cancelingReader) Read(p []byte) (int, error) {
	r.cancel()
	return 0, nil
}

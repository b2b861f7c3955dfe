package middleware

import (
	"github.com/google/uuid"

	"github.com/dmitrymomot/kawa"
)

// RequestIDKey is the state key under which the request ID is stored.
const RequestIDKey = "request_id"

// RequestIDConfig configures the request ID middleware.
type RequestIDConfig struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(c *kawa.Context) bool
	// Generator creates new request IDs (default: UUID v4)
	Generator func() string
	// HeaderName specifies the header name for the request ID (default: "X-Request-Id")
	HeaderName string
	// UseExisting determines whether to use an existing request ID from the incoming request
	UseExisting bool
}

// RequestID creates a request ID middleware with default configuration.
// It generates a new UUID for each request and includes it in both the
// context state and the response headers.
func RequestID() kawa.Middleware {
	return RequestIDWithConfig(RequestIDConfig{})
}

// RequestIDWithConfig creates a request ID middleware with custom
// configuration. The ID is stored in the context state and added to the
// response headers before downstream middleware runs, so handlers and the
// logging middleware can pick it up.
func RequestIDWithConfig(cfg RequestIDConfig) kawa.Middleware {
	if cfg.HeaderName == "" {
		cfg.HeaderName = "X-Request-Id"
	}

	if cfg.Generator == nil {
		cfg.Generator = func() string {
			return uuid.New().String()
		}
	}

	return func(c *kawa.Context, next kawa.Next) error {
		if cfg.Skip != nil && cfg.Skip(c) {
			return next()
		}

		var requestID string
		if cfg.UseExisting {
			requestID = c.Request().Get(cfg.HeaderName)
		}
		if requestID == "" {
			requestID = cfg.Generator()
		}

		c.State()[RequestIDKey] = requestID
		c.Response().Set(cfg.HeaderName, requestID)

		return next()
	}
}

// GetRequestID retrieves the request ID from the context state.
// Returns the request ID and a boolean indicating whether it was found.
func GetRequestID(c *kawa.Context) (string, bool) {
	id, ok := c.State()[RequestIDKey].(string)
	return id, ok
}

package middleware

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/kawa"
	"github.com/dmitrymomot/kawa/core/logger"
)

// LoggingConfig configures the request logging middleware.
type LoggingConfig struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(c *kawa.Context) bool

	// Logger is the slog logger to use (default: slog.Default())
	Logger *slog.Logger

	// LogLevel for request logging (default: slog.LevelInfo)
	LogLevel slog.Level

	// SlowRequestThreshold logs slow requests at warning level (default: 5s)
	SlowRequestThreshold time.Duration

	// Component name for structured logging (default: "http")
	Component string
}

// Logging creates a request logging middleware with default configuration.
// It logs one line per request after the downstream chain decided the
// response.
func Logging() kawa.Middleware {
	return LoggingWithConfig(LoggingConfig{})
}

// LoggingWithLogger creates a logging middleware with a custom logger.
func LoggingWithLogger(log *slog.Logger) kawa.Middleware {
	return LoggingWithConfig(LoggingConfig{Logger: log})
}

// LoggingWithConfig creates a request logging middleware with custom
// configuration. It runs around the rest of the chain: the downstream error,
// if any, is logged and then returned unchanged so the application's error
// boundary still handles it.
func LoggingWithConfig(cfg LoggingConfig) kawa.Middleware {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.LogLevel == 0 {
		cfg.LogLevel = slog.LevelInfo
	}
	if cfg.SlowRequestThreshold <= 0 {
		cfg.SlowRequestThreshold = 5 * time.Second
	}
	if cfg.Component == "" {
		cfg.Component = "http"
	}

	return func(c *kawa.Context, next kawa.Next) error {
		if cfg.Skip != nil && cfg.Skip(c) {
			return next()
		}

		start := time.Now()
		err := next()
		duration := time.Since(start)

		req := c.Request()
		res := c.Response()

		attrs := []slog.Attr{
			logger.Component(cfg.Component),
			logger.Event("request"),
			logger.Method(req.Method()),
			logger.Path(req.Path()),
			logger.StatusCode(res.Status()),
			logger.ClientIP(req.IP()),
			logger.UserAgent(req.Get("User-Agent")),
			logger.Latency(duration),
		}
		if id, ok := GetRequestID(c); ok {
			attrs = append(attrs, logger.RequestID(id))
		}

		level := cfg.LogLevel
		switch {
		case err != nil || res.Status() >= 500:
			level = slog.LevelError
			attrs = append(attrs, logger.Error(err))
		case res.Status() >= 400:
			level = slog.LevelWarn
		case duration > cfg.SlowRequestThreshold:
			level = slog.LevelWarn
			attrs = append(attrs, slog.Bool("slow_request", true))
		}

		cfg.Logger.LogAttrs(c.Context(), level, "HTTP request completed", attrs...)
		return err
	}
}

// Package middleware provides ready-made middleware for kawa applications.
//
// Each middleware follows the same pattern: a zero-config constructor for
// the common case and a WithConfig variant for customization, where every
// config supports a Skip predicate.
//
//	app := kawa.New()
//	app.Use(middleware.RequestID())
//	app.Use(middleware.Logging())
//
//	app.Use(middleware.LoggingWithConfig(middleware.LoggingConfig{
//		Skip: func(c *kawa.Context) bool {
//			return c.Request().Path() == "/health"
//		},
//		SlowRequestThreshold: 2 * time.Second,
//	}))
package middleware

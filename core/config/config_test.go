package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/kawa/core/config"
)

type serverConfig struct {
	Addr    string `env:"TEST_SERVER_ADDR" envDefault:":8080"`
	Workers int    `env:"TEST_SERVER_WORKERS" envDefault:"4"`
}

type keysConfig struct {
	Keys []string `env:"TEST_SIGNING_KEYS" envSeparator:","`
}

func TestLoad(t *testing.T) {
	t.Run("parses environment into struct", func(t *testing.T) {
		t.Setenv("TEST_SERVER_ADDR", ":9090")
		t.Setenv("TEST_SERVER_WORKERS", "8")

		var cfg serverConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, ":9090", cfg.Addr)
		assert.Equal(t, 8, cfg.Workers)
	})

	t.Run("caches per type", func(t *testing.T) {
		var first serverConfig
		require.NoError(t, config.Load(&first))

		// Changing the environment after first load must not affect the
		// cached value.
		t.Setenv("TEST_SERVER_ADDR", ":1234")

		var second serverConfig
		require.NoError(t, config.Load(&second))
		assert.Equal(t, first, second)
	})

	t.Run("splits list values", func(t *testing.T) {
		t.Setenv("TEST_SIGNING_KEYS", "new,old")

		var cfg keysConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, []string{"new", "old"}, cfg.Keys)
	})

	t.Run("rejects non-pointer target", func(t *testing.T) {
		assert.ErrorIs(t, config.Load(serverConfig{}), config.ErrInvalidConfig)
	})

	t.Run("rejects nil target", func(t *testing.T) {
		var cfg *serverConfig
		assert.ErrorIs(t, config.Load(cfg), config.ErrInvalidConfig)
	})
}

func TestMustLoad(t *testing.T) {
	t.Run("panics on invalid target", func(t *testing.T) {
		assert.Panics(t, func() { config.MustLoad(42) })
	})
}

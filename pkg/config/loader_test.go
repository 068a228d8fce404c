package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trestleapp/trestle/pkg/config"
)

type serverConfig struct {
	Host string `env:"TEST_CFG_HOST" envDefault:"localhost"`
	Port int    `env:"TEST_CFG_PORT" envDefault:"8080"`
}

type requiredConfig struct {
	Token string `env:"TEST_CFG_REQUIRED_TOKEN,required"`
}

type cachedConfig struct {
	Value string `env:"TEST_CFG_CACHED" envDefault:"first"`
}

func TestLoad(t *testing.T) {
	// Environment manipulation via t.Setenv forbids t.Parallel here.

	t.Run("defaults applied", func(t *testing.T) {
		var cfg serverConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "localhost", cfg.Host)
		assert.Equal(t, 8080, cfg.Port)
	})

	t.Run("missing required variable fails", func(t *testing.T) {
		var cfg requiredConfig
		err := config.Load(&cfg)
		require.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("nil pointer rejected", func(t *testing.T) {
		require.ErrorIs(t, config.Load[serverConfig](nil), config.ErrNilPointer)
	})

	t.Run("second load returns cached value", func(t *testing.T) {
		t.Setenv("TEST_CFG_CACHED", "first")

		var cfg cachedConfig
		require.NoError(t, config.Load(&cfg))
		require.Equal(t, "first", cfg.Value)

		t.Setenv("TEST_CFG_CACHED", "second")

		var again cachedConfig
		require.NoError(t, config.Load(&again))
		assert.Equal(t, "first", again.Value, "cached config must not re-read the environment")
	})
}

func TestMustLoad(t *testing.T) {
	t.Run("panics on failure", func(t *testing.T) {
		assert.Panics(t, func() {
			var cfg requiredConfig
			config.MustLoad(&cfg)
		})
	})

	t.Run("returns config on success", func(t *testing.T) {
		var cfg serverConfig
		assert.NotPanics(t, func() { config.MustLoad(&cfg) })
		assert.Equal(t, "localhost", cfg.Host)
	})
}

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port     int    `env:"TEST_CFG_PORT" envDefault:"8080"`
	BaseURL  string `env:"TEST_CFG_BASE_URL" envDefault:"http://localhost:8000/api"`
	LogLevel string `env:"TEST_CFG_LOG_LEVEL" envDefault:"info"`
	Degraded bool   `env:"TEST_CFG_DEGRADED" envDefault:"false"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	err := Load(&cfg)

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "http://localhost:8000/api", cfg.BaseURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Degraded)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "9090")
	t.Setenv("TEST_CFG_BASE_URL", "https://api.example.com")
	t.Setenv("TEST_CFG_LOG_LEVEL", "debug")
	t.Setenv("TEST_CFG_DEGRADED", "true")

	var cfg testConfig
	err := Load(&cfg)

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "https://api.example.com", cfg.BaseURL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Degraded)
}

type requiredConfig struct {
	APIKey string `env:"TEST_CFG_API_KEY,required"`
}

func TestLoad_RequiredFieldMissing(t *testing.T) {
	var cfg requiredConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_InvalidType(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "not-a-number")

	var cfg testConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoadFrom_UsesGivenEnvironment(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "7070")

	var cfg testConfig
	err := LoadFrom(&cfg, map[string]string{"TEST_CFG_LOG_LEVEL": "warn"})

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port, "process environment must be ignored")
	assert.Equal(t, "warn", cfg.LogLevel)
}

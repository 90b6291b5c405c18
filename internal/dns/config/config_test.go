package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/knadh/koanf/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, defaultListen, cfg.Listen)
	assert.Equal(t, defaultUpstream, cfg.Upstream)
	assert.False(t, cfg.DoH)
	assert.False(t, cfg.Debug)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DNS_ENV", "dev")
	t.Setenv("DNS_LOG_LEVEL", "debug")
	t.Setenv("DNS_LISTEN", "127.0.0.1:9953")
	t.Setenv("DNS_UPSTREAM", "9.9.9.9")
	t.Setenv("DNS_DOH", "true")
	t.Setenv("DNS_DEBUG", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "127.0.0.1:9953", cfg.Listen)
	assert.Equal(t, "9.9.9.9", cfg.Upstream)
	assert.True(t, cfg.DoH)
	assert.True(t, cfg.Debug)
}

func TestLoad_InvalidEnvValue(t *testing.T) {
	t.Setenv("DNS_ENV", "staging")
	_, err := Load()
	require.Error(t, err)
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	t.Setenv("DNS_LOG_LEVEL", "trace")
	_, err := Load()
	require.Error(t, err)
}

func TestLoad_WhenDefaultLoaderFails(t *testing.T) {
	orig := defaultLoader
	defaultLoader = func(k *koanf.Koanf) error {
		return errors.New("mocked default load error")
	}
	defer func() { defaultLoader = orig }()

	_, err := Load()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "mocked default load error"))
}

func TestLoad_WhenEnvLoaderFails(t *testing.T) {
	orig := envLoader
	envLoader = func(k *koanf.Koanf) error {
		return errors.New("mocked env load error")
	}
	defer func() { envLoader = orig }()

	_, err := Load()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "mocked env load error"))
}

// Package config loads AppConfig from environment defaults (via koanf)
// and validates the result, so that command-line flag parsing in cmd/
// can layer overrides on top of a known-good baseline.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// defaultListen and defaultUpstream mirror listener.DefaultAddr and
// upstream.DefaultUpstreamHost; config stays a leaf package so it does
// not import the gateway packages that consume it.
const (
	defaultListen   = "127.0.0.1:1053"
	defaultUpstream = "1.1.1.1"
)

// AppConfig holds the forwarder's full runtime configuration.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel is the structured logger's minimum level.
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// Listen is the loopback host:port the ingress UDP socket binds to.
	Listen string `koanf:"listen" validate:"required"`

	// Upstream is the upstream host (UDP-relay mode) or URL (DoH mode).
	Upstream string `koanf:"upstream" validate:"required"`

	// DoH selects DNS-over-HTTPS transport over plain UDP relay.
	DoH bool `koanf:"doh"`

	// Debug injects a fixed artificial delay into every forwarding task,
	// to make concurrent interleaving observable.
	Debug bool `koanf:"debug"`
}

// Default holds the baseline configuration applied before environment
// variables and CLI flags are layered on top.
var Default = AppConfig{
	Env:      "prod",
	LogLevel: "info",
	Listen:   defaultListen,
	Upstream: defaultUpstream,
	DoH:      false,
	Debug:    false,
}

// envLoader loads environment variables prefixed "DNS_", lower-casing keys
// and stripping the prefix. This flat AppConfig shape maps each field's
// koanf tag onto an env var directly (DNS_LOG_LEVEL -> log_level), so no
// separator translation is needed.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "DNS_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "DNS_"))
			return key, strings.TrimSpace(value)
		},
	}), nil)
}

var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(Default, "koanf"), nil)
}

// Load builds an AppConfig from Default overridden by DNS_-prefixed
// environment variables, then validates the result. CLI flag overrides,
// if any, are applied by the caller after Load returns.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("load default config: %w", err)
	}
	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

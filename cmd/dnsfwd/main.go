package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/quietloop/dnsfwd/internal/dns/common/clock"
	"github.com/quietloop/dnsfwd/internal/dns/common/log"
	"github.com/quietloop/dnsfwd/internal/dns/config"
	"github.com/quietloop/dnsfwd/internal/dns/gateways/listener"
	"github.com/quietloop/dnsfwd/internal/dns/gateways/upstream"
	"github.com/quietloop/dnsfwd/internal/dns/gateways/wire"
	"github.com/quietloop/dnsfwd/internal/dns/repos/summary"
	"github.com/quietloop/dnsfwd/internal/dns/services/forwarder"
)

const version = "0.1.0-dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// cliFlags holds parsed command-line flag values. Each is left at its zero
// value when unset, and applyCLIOverrides treats the zero value as "not
// passed", so a flag explicitly set to its zero value overrides nothing.
type cliFlags struct {
	listen   string
	upstream string
	logLevel string
	doh      bool
	debug    bool
}

func parseFlags() cliFlags {
	var f cliFlags
	flag.StringVar(&f.listen, "listen", "", "Override loopback bind address")
	flag.StringVar(&f.upstream, "upstream", "", "Override upstream host (UDP) or URL (DoH)")
	flag.StringVar(&f.logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
	flag.BoolVar(&f.doh, "doh", false, "Use DNS-over-HTTPS transport instead of UDP relay")
	flag.BoolVar(&f.debug, "debug", false, "Inject an artificial delay into every forwarding task")
	flag.Parse()
	return f
}

// applyCLIOverrides layers non-zero CLI flags on top of the environment
// loaded config. Booleans only override toward true: a boolean flag passed
// as false cannot be told apart from one left unset.
func applyCLIOverrides(cfg *config.AppConfig, f cliFlags) {
	if f.listen != "" {
		cfg.Listen = f.listen
	}
	if f.upstream != "" {
		cfg.Upstream = f.upstream
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if f.doh {
		cfg.DoH = true
	}
	if f.debug {
		cfg.Debug = true
	}
}

func run() error {
	flags := parseFlags()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyCLIOverrides(cfg, flags)

	if err := log.Configure(cfg.Env, cfg.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	logger := log.GetLogger()

	logger.Info(map[string]any{
		"version":  version,
		"env":      cfg.Env,
		"listen":   cfg.Listen,
		"upstream": cfg.Upstream,
		"doh":      cfg.DoH,
		"debug":    cfg.Debug,
	}, "dnsfwd: starting")

	l, err := buildListener(cfg, logger)
	if err != nil {
		return fmt.Errorf("build listener: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := l.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("listener exited: %w", err)
	}

	logger.Info(nil, "dnsfwd: stopped gracefully")
	return nil
}

// buildListener wires the codec, upstream transport, summary sink, and
// forwarder into a Listener bound to cfg.Listen. Split out from run so
// tests can exercise the wiring without going through signal handling.
func buildListener(cfg *config.AppConfig, logger log.Logger) (*listener.Listener, error) {
	transportType := upstream.TransportUDP
	if cfg.DoH {
		transportType = upstream.TransportDoH
	}
	upstreamTransport, err := upstream.NewTransport(transportType, cfg.Upstream)
	if err != nil {
		return nil, fmt.Errorf("build upstream transport: %w", err)
	}

	fwd := forwarder.New(forwarder.Options{
		Codec:     wire.NewCodec(),
		Transport: upstreamTransport,
		Sink:      summary.NewFileSink(summary.DefaultPath, logger),
		Logger:    logger,
		Clock:     &clock.RealClock{},
		DoH:       cfg.DoH,
		Debug:     cfg.Debug,
	})

	return listener.New(cfg.Listen, fwd, logger), nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/haukened/zonefwd/internal/dns/common/clock"
	"github.com/haukened/zonefwd/internal/dns/common/log"
	"github.com/haukened/zonefwd/internal/dns/common/metrics"
	"github.com/haukened/zonefwd/internal/dns/config"
	"github.com/haukened/zonefwd/internal/dns/domain"
	"github.com/haukened/zonefwd/internal/dns/gateways/transport"
	"github.com/haukened/zonefwd/internal/dns/gateways/upstream"
	"github.com/haukened/zonefwd/internal/dns/repos/recordcache"
	"github.com/haukened/zonefwd/internal/dns/repos/zone"
	"github.com/haukened/zonefwd/internal/dns/repos/zonestore"
	"github.com/haukened/zonefwd/internal/dns/services/janitor"
	"github.com/haukened/zonefwd/internal/dns/services/resolver"
)

const defaultShutdownTimeout = 10 * time.Second

// Application holds all the components of the DNS server
type Application struct {
	config    *config.AppConfig
	transport transport.ServerTransport
	handler   *resolver.Handler
	cache     *recordcache.Cache
	janitor   *janitor.Janitor
	metrics   *metrics.Server
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log.Info(map[string]any{
		"version":    version,
		"env":        cfg.Env,
		"log_level":  cfg.LogLevel,
		"port":       cfg.Port,
		"zone_dir":   cfg.ZoneDir,
		"upstream":   cfg.Upstream,
		"forward":    cfg.Forward,
		"cache_size": cfg.CacheSize,
		"cache_file": cfg.CacheFile,
	}, "Starting zonefwd server")

	app, err := buildApplication(cfg)
	if err != nil {
		if errors.Is(err, domain.ErrConfig) {
			log.Fatal(map[string]any{"error": err}, "Invalid zone configuration")
		}
		log.Error(map[string]any{"error": err}, "Failed to build application")
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Error(map[string]any{"error": err}, "Server failed")
		return err
	}

	log.Info(nil, "zonefwd server stopped gracefully")
	return nil
}

// buildApplication constructs all components and wires them together
func buildApplication(cfg *config.AppConfig) (*Application, error) {
	clk := clock.RealClock{}
	logger := log.GetLogger()

	zones, err := zone.LoadDirectory(cfg.ZoneDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load zone directory: %w", err)
	}
	store := zonestore.New(zones)
	log.Info(map[string]any{
		"zone_dir": cfg.ZoneDir,
		"zones":    store.Len(),
	}, "Zone store initialized")
	for _, origin := range store.Origins() {
		log.Debug(map[string]any{
			"origin":  origin,
			"records": zones[origin].Count(),
		}, "Serving zone")
	}

	cache, err := openCache(cfg, clk, logger)
	if err != nil {
		return nil, err
	}

	var forwarder *resolver.Forwarder
	if cfg.Forward {
		forwarder, err = newForwarder(cfg, cache, clk, logger)
		if err != nil {
			return nil, err
		}
	} else {
		log.Info(map[string]any{"disabled": true}, "Forwarding disabled")
	}

	synth := resolver.NewSynthesizer(resolver.SynthesizerOptions{
		Zones:              store,
		Logger:             logger,
		RecursionAvailable: cfg.Forward,
		StrictQType:        cfg.StrictQType,
	})
	handler := resolver.NewHandler(resolver.HandlerOptions{
		Synthesizer: synth,
		Forwarder:   forwarder,
		Clock:       clk,
		Logger:      logger,
	})

	udp, err := transport.NewTransport(transport.TransportUDP, cfg.ListenAddr(), cfg.Workers, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	app := &Application{
		config:    cfg,
		transport: udp,
		handler:   handler,
		cache:     cache,
		janitor: janitor.New(janitor.Options{
			Cache:    cache,
			Interval: cfg.SweepInterval,
			Clock:    clk,
			Logger:   logger,
		}),
	}

	if cfg.MetricsAddr != "" {
		app.metrics, err = metrics.Listen(cfg.MetricsAddr, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to listen for metrics: %w", err)
		}
	}
	return app, nil
}

// openCache creates the record cache and restores its last snapshot. A
// snapshot that cannot be read only costs the cached answers.
func openCache(cfg *config.AppConfig, clk clock.Clock, logger log.Logger) (*recordcache.Cache, error) {
	cache, err := recordcache.New(cfg.CacheSize, clk, recordcache.NewBoltPersister(cfg.CacheFile), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create record cache: %w", err)
	}
	if err := cache.Restore(); err != nil {
		log.Warn(map[string]any{
			"cache_file": cfg.CacheFile,
			"error":      err.Error(),
		}, "Could not restore record cache")
	}
	return cache, nil
}

func newForwarder(cfg *config.AppConfig, cache *recordcache.Cache, clk clock.Clock, logger log.Logger) (*resolver.Forwarder, error) {
	client, err := upstream.NewClient(upstream.Options{
		Server:  cfg.Upstream,
		Timeout: cfg.UpstreamTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream client: %w", err)
	}
	log.Info(map[string]any{
		"server":  client.Server(),
		"timeout": cfg.UpstreamTimeout,
	}, "Upstream DNS client configured")

	return resolver.NewForwarder(resolver.ForwarderOptions{
		Cache:    cache,
		Upstream: client,
		Clock:    clk,
		Logger:   logger,
	}), nil
}

// Run starts the DNS server and blocks until context is cancelled
func (app *Application) Run(ctx context.Context) error {
	if err := app.transport.Start(ctx, app.handler); err != nil {
		if app.metrics != nil {
			_ = app.metrics.Close()
		}
		return fmt.Errorf("failed to start UDP transport: %w", err)
	}

	log.Info(map[string]any{
		"address":   app.transport.Address(),
		"transport": "UDP",
	}, "DNS server started")

	go app.janitor.Run(ctx)

	metricsDone := make(chan struct{})
	if app.metrics != nil {
		go func() {
			defer close(metricsDone)
			if err := app.metrics.Serve(ctx); err != nil {
				log.Warn(map[string]any{"error": err}, "Metrics endpoint failed")
			}
		}()
	} else {
		close(metricsDone)
	}

	<-ctx.Done()
	log.Info(nil, "Shutdown initiated")

	if err := app.transport.Stop(); err != nil {
		log.Warn(map[string]any{"error": err}, "Error during transport shutdown")
	}

	timeout := time.After(defaultShutdownTimeout)
	for _, done := range []<-chan struct{}{app.janitor.Done(), metricsDone} {
		select {
		case <-done:
		case <-timeout:
			log.Warn(map[string]any{"timeout": defaultShutdownTimeout}, "Shutdown timeout exceeded")
			return fmt.Errorf("shutdown timeout")
		}
	}

	log.Info(map[string]any{
		"entries":  app.cache.Len(),
		"queries":  metrics.Queries.Get(),
		"nxdomain": metrics.ResponseCount(domain.RCodeNXDomain),
		"servfail": metrics.ResponseCount(domain.RCodeServFail),
	}, "Graceful shutdown completed")
	return nil
}

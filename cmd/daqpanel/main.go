// Package main is the entry point for the daqpanel server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"daqpanel/internal/config"
	"daqpanel/internal/gateway"
	"daqpanel/internal/logger"
	"daqpanel/internal/observability"
	"daqpanel/internal/server"
	"daqpanel/internal/server/handlers"
	"daqpanel/internal/statuscache"
	"daqpanel/internal/store"
	"daqpanel/internal/store/postgres"
	"daqpanel/internal/webhook"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

func main() {
	// Parse flags
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	configPath := flag.String("config", "", "Path to config file (default: daqpanel.yaml in current directory)")
	flag.Parse()

	// Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	slogger := logger.New(cfg.LogLevel)

	// Setup Database
	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.Close()

	// Run migrations if requested
	if *migrateFlag {
		log.Println("Running database migrations...")
		if err := postgres.Migrate(db.DB()); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migrations completed successfully")
	}

	// Tracing
	shutdownTracer, err := observability.InitTracer(ctx, "daqpanel", cfg.OTELEndpoint)
	if err != nil {
		log.Fatalf("Failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Printf("Failed to shutdown tracer: %v", err)
		}
	}()

	// Metrics
	metricsHandler, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to init metrics: %v", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			log.Printf("Failed to shutdown metrics: %v", err)
		}
	}()

	// Upstream gateway and the poller that keeps the cache warm.
	daq := gateway.New(cfg.DAQAPIURL, cfg.DAQAPITimeout, slogger)
	cache := statuscache.New(daq, statuscache.Options{
		DiscoveryInterval: cfg.DiscoveryInterval,
		RefreshInterval:   cfg.RefreshInterval,
		PollConcurrency:   cfg.PollConcurrency,
		LogBuffer:         cfg.LogBuffer,
	}, slogger)

	cache.Start(ctx)

	// Observable gauges query state only when scraped.
	meter := otel.Meter("daqpanel")
	_, err = meter.Int64ObservableGauge("daqpanel.cache.clients",
		metric.WithDescription("Number of known DAQ clients in the status cache"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			obs.Observe(int64(cache.CacheSize()))
			return nil
		}),
	)
	if err != nil {
		log.Printf("Failed to register cache size metric: %v", err)
	}
	_, err = meter.Int64ObservableGauge("daqpanel.runs.active",
		metric.WithDescription("Number of runs currently in the RUNNING state"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			count, err := db.CountRunsByStatus(ctx, store.RunStatusRunning)
			if err != nil {
				log.Printf("Failed to count active runs: %v", err)
				return nil // Don't crash metrics scrape on DB error
			}
			obs.Observe(count)
			return nil
		}),
	)
	if err != nil {
		log.Printf("Failed to register active runs metric: %v", err)
	}

	notifier := webhook.New(db, slogger)
	h := handlers.New(db, cache, daq, notifier, slogger)

	// Start Server
	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	srv := server.New(addr, h, cfg.AdminGroup, metricsHandler)

	go func() {
		slogger.Info("daqpanel starting", "addr", addr, "daq_api", cfg.DAQAPIURL)
		if err := srv.Run(ctx); err != nil {
			slogger.Error("server stopped", "error", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slogger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	// Stop the poller after the server so in-flight reads keep a live cache.
	cache.Stop()
	slogger.Info("server exited properly")
}

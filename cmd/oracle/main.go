// Package main is the entry point for the yield oracle, a scheduled service
// that polls yield-bearing protocols, aggregates their metrics and serves the
// results over a read-only HTTP API.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourorg/yield-oracle/internal/api"
	"github.com/yourorg/yield-oracle/internal/cache"
	"github.com/yourorg/yield-oracle/internal/chain"
	"github.com/yourorg/yield-oracle/internal/circuitbreaker"
	"github.com/yourorg/yield-oracle/internal/collector"
	"github.com/yourorg/yield-oracle/internal/config"
	"github.com/yourorg/yield-oracle/internal/integrity"
	"github.com/yourorg/yield-oracle/internal/metrics"
	"github.com/yourorg/yield-oracle/internal/oracle"
	"github.com/yourorg/yield-oracle/internal/otel"
	"github.com/yourorg/yield-oracle/internal/publish"
	"github.com/yourorg/yield-oracle/internal/registry"
	"github.com/yourorg/yield-oracle/internal/store"
	"github.com/yourorg/yield-oracle/internal/validate"
)

// startTime records when the service was initialized for uptime reporting
var startTime = time.Now()

func main() {
	setupLogging()

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		logrus.Fatal("DATABASE_URL is required")
	}

	shutdownTracer := otel.InitTracer(cfg.OtelEndpoint)
	defer shutdownTracer()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logrus.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logrus.Fatalf("Failed to apply migrations: %v", err)
	}

	snapCache, err := cache.New(cfg.RedisURL, cfg.RedisPassword)
	if err != nil {
		logrus.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer snapCache.Close()

	reader, err := chain.Dial(ctx, cfg.RPCEndpoint, cfg.CallTimeout)
	if err != nil {
		logrus.Fatalf("Failed to connect to Ethereum RPC: %v", err)
	}
	defer reader.Close()

	reg, err := registry.Load(cfg.ProtocolsJSON)
	if err != nil {
		logrus.Fatalf("Failed to load protocol registry: %v", err)
	}
	logrus.WithField("protocols", reg.Len()).Info("Protocol registry loaded")

	promMetrics := metrics.Register()
	breaker := circuitbreaker.New()

	col := collector.New(reader, breaker).
		WithValidation(validate.DefaultOptions()).
		WithMetrics(promMetrics).
		WithProxy(chain.NewProxyReader(cfg.CallTimeout))

	// Cache TTL matches the scheduling interval: one missed cycle and
	// readers fall back to the durable store.
	pub := publish.New(db, snapCache, cfg.CycleInterval).WithMetrics(promMetrics)
	orch := oracle.New(reg, col, pub).WithMetrics(promMetrics)

	signer, err := integrity.NewSigner()
	if err != nil {
		logrus.Fatalf("Failed to initialize snapshot signer: %v", err)
	}

	scheduler := startScheduler(orch, cfg.CycleInterval)
	defer scheduler.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      buildRouter(cfg, db, snapCache, reg, breaker, signer),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.WithField("port", cfg.Port).Info("Starting yield oracle API")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Server failed: %v", err)
		}
	}()

	waitForShutdown(srv)
}

// startScheduler runs one collection cycle immediately, then repeats on the
// configured interval. Overlapping runs are skipped, not queued.
func startScheduler(orch *oracle.Orchestrator, interval time.Duration) *cron.Cron {
	runOnce := func() {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		defer cancel()

		if _, err := orch.RunCycle(ctx); err != nil {
			logrus.Errorf("Collection cycle failed: %v", err)
		}
	}

	go runOnce()

	scheduler := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))
	if _, err := scheduler.AddFunc("@every "+interval.String(), runOnce); err != nil {
		logrus.Fatalf("Failed to schedule collection cycle: %v", err)
	}
	scheduler.Start()

	logrus.WithField("interval", interval.String()).Info("Collection scheduler started")
	return scheduler
}

func buildRouter(cfg config.Config, db *store.Store, snapCache *cache.Cache,
	reg *registry.Registry, breaker *circuitbreaker.Breaker, signer *integrity.Signer) http.Handler {

	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)

	r := chi.NewRouter()
	r.Use(api.Recover)
	r.Use(api.RequestLogger)

	r.Get("/healthz", api.Health())
	r.Get("/readyz", api.Ready(db))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(api.RateLimit(limiter))
		r.Get("/status", api.Status(reg, breaker, startTime))
		r.Get("/yield/latest", api.Latest(snapCache, db))
		r.Get("/yield/latest/signed", api.LatestSigned(snapCache, db, signer))
		r.Get("/yield/protocols/{id}/history", api.ProtocolHistory(db, reg))
	})

	return r
}

// setupLogging configures the logging for the application
func setupLogging() {
	logFormat := strings.ToLower(os.Getenv("LOG_FORMAT"))
	logLevel := strings.ToLower(os.Getenv("LOG_LEVEL"))

	switch logFormat {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	switch logLevel {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "warn":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
}

// waitForShutdown blocks until SIGINT or SIGTERM, then drains the server.
func waitForShutdown(srv *http.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("Forced shutdown: %v", err)
	}
	logrus.Info("Server stopped")
}

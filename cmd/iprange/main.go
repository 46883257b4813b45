package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	"iprange/internal/api"
	"iprange/internal/auth"
	"iprange/internal/discovery"
	awscollector "iprange/internal/discovery/aws"
	"iprange/internal/observability"
)

func main() {
	logger := observability.NewLogger(observability.ConfigFromEnv())

	configPath := flag.String("config", "", "path to YAML config file")
	addrFlag := flag.String("addr", "", "listen address (host:port), overrides config")
	migrate := flag.String("migrate", "", "run migrations: 'up' to apply, 'status' to show status")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if *addrFlag != "" {
		cfg.Addr = *addrFlag
	}

	// Initialize Sentry if DSN is provided
	sentryEnabled := false
	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      envOr("SENTRY_ENVIRONMENT", "production"),
			Release:          envOr("APP_VERSION", "dev"),
			TracesSampleRate: 1.0,
			AttachStacktrace: true,
		})
		if err != nil {
			logger.Warn("sentry initialization failed", "error", err)
		} else {
			logger.Info("sentry initialized",
				"environment", envOr("SENTRY_ENVIRONMENT", "production"),
				"release", envOr("APP_VERSION", "dev"),
			)
			sentryEnabled = true
		}
	}

	// Handle migrations CLI before starting server
	if *migrate != "" {
		runMigrationsCLI(logger, cfg, *migrate)
		return
	}

	// Select storage based on build tags and config (see store_*.go in this package).
	store := selectStore(logger, cfg)

	metricsCfg := observability.MetricsConfigFromEnv()
	var metrics *observability.Metrics
	if metricsCfg.Enabled {
		metrics = observability.NewMetrics(metricsCfg)
		logger.Info("metrics enabled",
			"namespace", metricsCfg.Namespace,
			"version", metricsCfg.Version,
		)
	} else {
		logger.Info("metrics disabled")
	}

	rateCfg := api.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	}
	if rateCfg.Enabled() {
		logger.Info("rate limiting configured",
			"requests_per_second", rateCfg.RequestsPerSecond,
			"burst", rateCfg.Burst,
		)
	} else {
		logger.Info("rate limiting disabled")
	}

	// Bootstrap an API key from configuration. With no key configured the
	// API runs unauthenticated.
	keyStore := bootstrapKeyStore(logger, cfg)

	syncService := discovery.NewSyncService(store, logger, metrics)
	if cfg.AWS.Enabled {
		var opts []awscollector.Option
		if cfg.AWS.Region != "" {
			opts = append(opts, awscollector.WithRegion(cfg.AWS.Region))
		}
		if cfg.AWS.AccountID != "" {
			opts = append(opts, awscollector.WithAccountID(cfg.AWS.AccountID))
		}
		syncService.RegisterCollector(awscollector.New(opts...))
		logger.Info("aws discovery enabled", "region", cfg.AWS.Region)
	}

	mux := http.NewServeMux()
	srv := api.NewServer(mux, store, logger, metrics, syncService)
	srv.SetVersion(envOr("APP_VERSION", "dev"))
	srv.RegisterRoutes(keyStore)

	// Order: metrics (outermost) -> requestID -> logging -> rateLimiting
	handler := api.ApplyMiddlewares(
		mux,
		observability.MetricsMiddleware(metrics),
		api.RequestIDMiddleware(),
		api.LoggingMiddleware(logger),
		api.RateLimitMiddleware(rateCfg, logger),
	)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("iprange listening", "addr", cfg.Addr, "auth_enabled", keyStore != nil)
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	}

	logger.Info("shutting down server", "timeout", cfg.ShutdownTimeout.String())
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	} else {
		logger.Info("server stopped gracefully")
	}

	if err := store.Close(); err != nil {
		logger.Error("error closing store", "error", err)
	}

	if sentryEnabled {
		sentry.Flush(2 * time.Second)
	}

	logger.Info("shutdown complete")
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// bootstrapKeyStore imports the configured API key into an in-memory key
// store. Returns nil when no key is configured, which disables auth.
func bootstrapKeyStore(logger observability.Logger, cfg *Config) auth.KeyStore {
	if cfg.APIKey == "" {
		logger.Warn("no API key configured; API runs unauthenticated (set IPRANGE_API_KEY)")
		return nil
	}
	key, err := auth.ImportAPIKey(cfg.APIKey, auth.GenerateAPIKeyOptions{
		Name:   "bootstrap",
		Scopes: cfg.APIKeyScopes,
	})
	if err != nil {
		logger.Error("invalid IPRANGE_API_KEY; API runs unauthenticated", "error", err)
		return nil
	}
	ks := auth.NewMemoryKeyStore()
	if err := ks.Create(context.Background(), key); err != nil {
		logger.Error("failed to store bootstrap API key", "error", err)
		return nil
	}
	logger.Info("bootstrap API key imported",
		"prefix", key.Prefix,
		"scopes", cfg.APIKeyScopes,
	)
	return ks
}

// runMigrationsCLI executes migration commands.
func runMigrationsCLI(logger observability.Logger, cfg *Config, cmd string) {
	switch cmd {
	case "up":
		// Initializing the store runs pending migrations, then show status.
		st := selectStore(logger, cfg)
		_ = st.Close()
		runMigrationsCLI(logger, cfg, "status")
	case "status":
		status := "migrations status not available in this build"
		if s := sqliteStatus(cfg); s != "" {
			status = s
		}
		if s := postgresStatus(cfg); s != "" {
			status = s
		}
		logger.Info("migrations status", "status", status)
	default:
		logger.Warn("unknown migrate command", "command", cmd)
	}
}

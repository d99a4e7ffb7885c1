/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the quote engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse configuration from the environment
  2. Build the zap logger
  3. Open the SQLite store (with retry while a previous instance
     releases its lock)
  4. Create API handler and reprice scheduler
  5. Configure HTTP router
  6. Start server with graceful shutdown

CONFIGURATION (environment):
  PORT               HTTP server port (default: 8080)
  DB_PATH            SQLite database path (default: quotes.db)
                     Use ":memory:" for an in-memory database
  LOG_LEVEL          debug | info | warn | error (default: info)
  ALLOWED_ORIGINS    Comma-separated CORS origins (default: local dev)
  REPRICE_INTERVAL   Scheduler sweep interval (default: 1h)
  REPRICE_ENABLED    Whether the scheduler runs (default: true)

COMMAND-LINE FLAGS (override the environment):
  -port    HTTP server port
  -db      SQLite database path

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the reprice scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  DB_PATH=./data/quotes.db ./server

  # Run with in-memory database on another port
  DB_PATH=:memory: PORT=3000 ./server

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/warp/quote-engine/api"
	"github.com/warp/quote-engine/store/sqlite"
)

type config struct {
	Port            int           `env:"PORT" envDefault:"8080"`
	DBPath          string        `env:"DB_PATH" envDefault:"quotes.db"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envSeparator:","`
	RepriceInterval time.Duration `env:"REPRICE_INTERVAL" envDefault:"1h"`
	RepriceEnabled  bool          `env:"REPRICE_ENABLED" envDefault:"true"`
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse config: %v\n", err)
		os.Exit(1)
	}

	// Flags beat the environment for quick local runs.
	port := flag.Int("port", 0, "HTTP server port (overrides PORT)")
	dbPath := flag.String("db", "", "SQLite database path (overrides DB_PATH)")
	flag.Parse()
	if *port != 0 {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	store, err := openStore(cfg.DBPath, logger)
	if err != nil {
		logger.Fatal("failed to open database", zap.String("path", cfg.DBPath), zap.Error(err))
	}
	defer store.Close()

	handler := api.NewHandler(store, logger)

	scheduler := api.NewRepriceScheduler(store, logger)
	scheduler.CheckInterval = cfg.RepriceInterval
	scheduler.Enabled = cfg.RepriceEnabled
	scheduler.Start()
	defer scheduler.Stop()

	router := api.NewRouter(handler, cfg.AllowedOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.Port),
			zap.String("db", cfg.DBPath))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}

// openStore opens the SQLite store, retrying while a restarting previous
// instance still holds the file lock.
func openStore(path string, logger *zap.Logger) (*sqlite.Store, error) {
	retryPolicy := backoff.NewExponentialBackOff()
	retryPolicy.MaxElapsedTime = 30 * time.Second
	retryPolicy.MaxInterval = 5 * time.Second

	var store *sqlite.Store
	err := backoff.RetryNotify(
		func() error {
			var err error
			store, err = sqlite.New(path)
			return err
		},
		retryPolicy,
		func(err error, next time.Duration) {
			logger.Warn("database not ready, retrying",
				zap.Error(err), zap.Duration("in", next))
		},
	)
	return store, err
}

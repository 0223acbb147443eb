// main is the entry point of the Students API application.
//
// STARTUP SEQUENCE:
//  1. Load configuration from a YAML file
//  2. Initialise the logger
//  3. Connect to (and set up) the configured database
//  4. Register all HTTP routes
//  5. Start the HTTP server in a separate goroutine
//  6. Block the main goroutine until an OS signal (Ctrl+C / kill) arrives
//  7. Gracefully shut down: finish in-flight requests, then exit
//
// RUNNING THE SERVER:
//
//	go run ./cmd/students-api --config=config/local.yaml
//
// or (with the environment variable):
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/students-api
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aanand-mishra/students-console/internal/config"
	"github.com/aanand-mishra/students-console/internal/http/server"
	"github.com/aanand-mishra/students-console/internal/logging"
	"github.com/aanand-mishra/students-console/internal/storage"
	"github.com/aanand-mishra/students-console/internal/storage/postgres"
	"github.com/aanand-mishra/students-console/internal/storage/sqlite"
)

const version = "1.1.0"

func main() {
	// ── 1. Load Config ────────────────────────────────────────────────────
	cfg := config.MustLoad()

	// ── 2. Initialise Logger ──────────────────────────────────────────────
	// Handlers log through the default logger, so install it globally.
	log := logging.Setup(cfg.Env)
	slog.SetDefault(log)

	log.Info("starting students-api",
		slog.String("env", cfg.Env),
		slog.String("version", version),
		slog.String("storage_driver", cfg.Storage.Driver),
	)

	// ── 3. Initialise Storage (Database) ──────────────────────────────────
	// We hold the result as the storage.Storage INTERFACE; the rest of the
	// code never learns which backend it is talking to.
	store, err := openStorage(cfg)
	if err != nil {
		log.Error("failed to initialise storage",
			slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	log.Info("storage initialised")

	// ── 4. Register HTTP Routes ───────────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	srv := &http.Server{
		Addr:    cfg.HTTPServer.Addr,
		Handler: server.NewRouter(store, log, reg),

		// Production hardening — set timeouts to prevent slow-client attacks.
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ── 5. Start Server in a Goroutine ────────────────────────────────────
	// ListenAndServe blocks forever, so it runs in its own goroutine and
	// the graceful-shutdown code below stays reachable.
	go func() {
		log.Info("server started", slog.String("address", cfg.HTTPServer.Addr))

		if err := srv.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			log.Error("server encountered an error",
				slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// ── 6. Wait for Shutdown Signal ───────────────────────────────────────
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	log.Info("shutdown signal received, stopping server...")

	// ── 7. Graceful Shutdown ──────────────────────────────────────────────
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("failed to shutdown server gracefully",
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("server stopped gracefully")
}

func openStorage(cfg *config.Config) (storage.Storage, error) {
	if cfg.Storage.Driver == config.DriverPostgres {
		store, err := postgres.New(cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	store, err := sqlite.New(cfg.StoragePath)
	if err != nil {
		return nil, err
	}
	return store, nil
}

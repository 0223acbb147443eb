// main is the entry point of the students console: a small web page
// that lists, searches, filters and edits students through the students
// API.
//
// STARTUP SEQUENCE:
//  1. Load configuration from a YAML file
//  2. Initialise the logger and the message catalogs
//  3. Build the API client, the local cache and the view-model
//  4. Wire the controller and the HTTP routes
//  5. Load the student list once, then serve the page
//  6. Block until an OS signal arrives, then shut down gracefully
//
// RUNNING THE CONSOLE:
//
//	go run ./cmd/students-console --config=config/console.yaml
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
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aanand-mishra/students-console/internal/client"
	"github.com/aanand-mishra/students-console/internal/config"
	"github.com/aanand-mishra/students-console/internal/logging"
	"github.com/aanand-mishra/students-console/internal/ui/cache"
	"github.com/aanand-mishra/students-console/internal/ui/controller"
	"github.com/aanand-mishra/students-console/internal/ui/handlers"
	"github.com/aanand-mishra/students-console/internal/ui/i18n"
	"github.com/aanand-mishra/students-console/internal/ui/render"
	"github.com/aanand-mishra/students-console/internal/ui/viewmodel"
)

const version = "1.1.0"

func main() {
	// ── 1. Load Config ────────────────────────────────────────────────────
	cfg := config.MustLoadConsole()

	// ── 2. Logger and Catalogs ────────────────────────────────────────────
	log := logging.Setup(cfg.Env)
	slog.SetDefault(log)

	log.Info("starting students-console",
		slog.String("env", cfg.Env),
		slog.String("version", version),
		slog.String("api_url", cfg.Console.APIURL),
	)

	bundle, err := i18n.Load(log)
	if err != nil {
		log.Error("failed to load message catalogs", slog.String("error", err.Error()))
		os.Exit(1)
	}
	l := bundle.Localizer(cfg.Console.Locale)

	// Validate has already checked the zone name.
	loc, err := time.LoadLocation(cfg.Console.Timezone)
	if err != nil {
		log.Error("failed to load timezone", slog.String("error", err.Error()))
		os.Exit(1)
	}

	renderer, err := render.NewRenderer(loc)
	if err != nil {
		log.Error("failed to parse templates", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// ── 3. Client, Cache, View-model ──────────────────────────────────────
	api := client.New(cfg.Console.APIURL, cfg.Console.RequestTimeout, log)
	records := cache.New()
	page := viewmodel.NewPage()

	// ── 4. Controller and Routes ──────────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	ctrl := controller.New(api, records, controller.PageWidgets(page), l, log, reg)
	console := handlers.NewConsole(ctrl, page, records, renderer, l, log)

	srv := &http.Server{
		Addr:    cfg.Console.Addr,
		Handler: handlers.NewRouter(console, log, reg),

		ReadTimeout: 10 * time.Second,
		// A write waits for the API call behind it.
		WriteTimeout: cfg.Console.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ── 5. Initial Load, then Serve ───────────────────────────────────────
	// A failed first load is shown on the page; the operator can reload.
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), cfg.Console.RequestTimeout)
	_ = ctrl.LoadAll(loadCtx)
	cancelLoad()

	go func() {
		log.Info("console started", slog.String("address", cfg.Console.Addr))

		if err := srv.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			log.Error("console server encountered an error",
				slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// ── 6. Wait for Shutdown Signal ───────────────────────────────────────
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	log.Info("shutdown signal received, stopping console...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("failed to shutdown console gracefully",
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("console stopped gracefully")
}

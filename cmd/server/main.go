package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/orgmark/internal/api"
	"github.com/dgallion1/orgmark/internal/config"
	"github.com/dgallion1/orgmark/internal/directory"
	"github.com/dgallion1/orgmark/internal/metrics"
	"github.com/dgallion1/orgmark/internal/pagetext"
	"github.com/dgallion1/orgmark/internal/pgstore"
	"github.com/dgallion1/orgmark/internal/pipeline"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()

	// Initialize the directory store.
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open directory store", "error", err)
		os.Exit(1)
	}
	instrumented := metrics.InstrumentStore(store, m)

	// The document is optional; page endpoints answer 503 without it.
	var pages pagetext.Source
	if cfg.DocumentPath != "" {
		pages, err = pagetext.Open(cfg.DocumentPath)
		if err != nil {
			log.Error("failed to open document", "path", cfg.DocumentPath, "error", err)
			os.Exit(1)
		}
		log.Info("document loaded", "path", cfg.DocumentPath, "pages", pages.NumPages())
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, instrumented, log, m)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(instrumented, orch, pages, m, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		if pages != nil {
			pages.Close()
		}
		store.Close()
	}()

	log.Info("starting orgmark", "port", cfg.Port, "persistent", cfg.DatabaseURL != "")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-stopped
}

// openStore connects to PostgreSQL, or falls back to an in-memory store
// when no database is configured.
func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (directory.Store, error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory directory")
		return directory.NewMemoryStore(), nil
	}
	s, err := pgstore.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := s.Initialize(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

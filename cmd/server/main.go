package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docoutline/internal/api"
	"github.com/dgallion1/docoutline/internal/config"
	"github.com/dgallion1/docoutline/internal/parser"
	"github.com/dgallion1/docoutline/internal/pipeline"
	"github.com/dgallion1/docoutline/internal/store"
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

	// Initialize stores.
	index, err := store.OpenSQLite(cfg.ResultDB)
	if err != nil {
		log.Error("failed to open result index", "path", cfg.ResultDB, "error", err)
		os.Exit(1)
	}

	var sinks store.Multi
	if cfg.OutputDir != "" {
		dir, err := store.NewDirSink(cfg.OutputDir)
		if err != nil {
			log.Warn("output directory unavailable, not writing result files", "dir", cfg.OutputDir, "error", err)
		} else {
			sinks = append(sinks, dir)
		}
	}
	var remote *store.HTTPSink
	if cfg.SinkURL != "" {
		remote = store.NewHTTPSink(cfg.SinkURL, cfg.SinkAPIKey)
		sinks = append(sinks, remote)
	}
	var sink store.Sink
	if len(sinks) > 0 {
		sink = sinks
	}

	// Initialize pipeline.
	stats := pipeline.NewLatencyStats(time.Hour, cfg.StatsWindow)
	worker := pipeline.NewWorker(pipeline.WorkerConfig{
		Params:     cfg.Outline,
		ParserOpts: parser.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext},
		Index:      index,
		Sink:       sink,
		Stats:      stats,
	}, log)
	orch := pipeline.NewOrchestrator(cfg, worker, stats, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, index, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()

		if remote != nil {
			remote.Close()
		}
		index.Close()
	}()

	log.Info("starting docoutline", "port", cfg.Port, "workers", cfg.WorkerCount, "result_db", cfg.ResultDB)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

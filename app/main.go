package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/secnews/app/api"
	"github.com/lysyi3m/secnews/app/cfg"
	"github.com/lysyi3m/secnews/app/database"
	"github.com/lysyi3m/secnews/app/feed"
	"github.com/lysyi3m/secnews/app/pipeline"
	"github.com/lysyi3m/secnews/app/scheduler"
	"github.com/lysyi3m/secnews/app/storage"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("Fatal error", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	appCfg, err := cfg.Load(args)
	if err != nil {
		return err
	}
	if appCfg == nil {
		// Help was shown
		return nil
	}

	setupLogging(appCfg.Debug)

	slog.Info("Starting SecNews",
		"version", appCfg.Version,
		"serve", appCfg.Serve,
		"retention_days", appCfg.RetentionDays,
		"max_workers", appCfg.MaxWorkers,
		"concurrency", !appCfg.DisableConcurrency)

	sources, err := feed.LoadSources(appCfg.SourcesFile)
	if err != nil {
		return err
	}
	slog.Debug("Sources loaded", "count", len(sources), "file", appCfg.SourcesFile)

	var articles database.ArticleRepository
	if appCfg.DBPath != "" {
		db, err := database.NewConnection(appCfg.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open search index: %w", err)
		}
		defer db.Close()
		articles = database.NewArticleRepository(db)
	}

	p := pipeline.New(appCfg, sources, &http.Client{}, articles)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !appCfg.Serve {
		report, err := p.Run(ctx)
		if err != nil {
			return err
		}
		fmt.Println(report.Render())
		return nil
	}

	return serve(ctx, appCfg, p, articles)
}

func serve(ctx context.Context, appCfg *cfg.Cfg, p *pipeline.Pipeline, articles database.ArticleRepository) error {
	runScheduled := func() {
		_, err := p.Run(ctx)
		if errors.Is(err, storage.ErrLocked) {
			slog.Warn("Previous run still in progress, skipping", "error", err)
		} else if err != nil {
			slog.Error("Scheduled run failed", "error", err)
		}
	}

	sched, err := scheduler.New(appCfg.Schedule, runScheduled)
	if err != nil {
		return err
	}

	handler := api.NewHandler(p, articles, appCfg.Version)
	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      api.NewServer(handler, appCfg.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	go runScheduled()
	sched.Start()

	var serveErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case serveErr = <-serverErrChan:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	sched.Stop()
	slog.Info("SecNews shutdown complete")

	return serveErr
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

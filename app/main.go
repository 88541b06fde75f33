package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/news-digest/app/api"
	"github.com/lysyi3m/news-digest/app/book"
	"github.com/lysyi3m/news-digest/app/cfg"
	"github.com/lysyi3m/news-digest/app/database"
	"github.com/lysyi3m/news-digest/app/feed"
	"github.com/lysyi3m/news-digest/app/hn"
	"github.com/lysyi3m/news-digest/app/images"
	"github.com/lysyi3m/news-digest/app/limiter"
	"github.com/lysyi3m/news-digest/app/publish"
	"github.com/lysyi3m/news-digest/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	slog.Info("Starting News Digest", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "migration_version", version, "dirty", dirty)

	runRepo := database.NewRunRepository(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	configCache := feed.NewConfigCache(appCfg.SourcesDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load source configurations", "dir", appCfg.SourcesDir, "error", err)
		os.Exit(1)
	}
	if err := configCache.Watch(ctx); err != nil {
		slog.Warn("Source hot reload disabled", "dir", appCfg.SourcesDir, "error", err)
	}
	slog.Info("Sources loaded", "count", configCache.GetConfigCount(), "enabled", len(configCache.GetEnabledConfigs()))

	// Every outbound request of a run shares one in-flight cap.
	httpClient := &http.Client{Transport: limiter.NewTransport(http.DefaultTransport, appCfg.MaxConcurrentFetches)}

	transcoder := images.NewTranscoder(httpClient, appCfg.UserAgent, appCfg.HTTPTimeout)
	feedFetcher := feed.NewFetcher(httpClient, feed.NewParser(), feed.NewFilterer(),
		feed.NewContentExtractor(httpClient, appCfg.UserAgent), transcoder,
		appCfg.UserAgent, appCfg.MaxConcurrentFetches)

	hnClient := hn.NewClient(httpClient, appCfg.HNAPIBase, appCfg.UserAgent, appCfg.HTTPTimeout)
	storyFetcher := hn.NewFetcher(hnClient, hn.NewBuilder(hnClient, appCfg.HNFetchReplies), appCfg.MaxConcurrentFetches)

	assembler := book.NewAssembler(book.Metadata{
		Identifier: appCfg.BookIdentifier,
		Title:      appCfg.BookTitle,
		Language:   appCfg.BookLanguage,
		Author:     appCfg.BookAuthor,
	})
	artifacts := publish.NewArtifacts(appCfg.OutputDir)

	pipeline := tasks.NewPipeline(configCache, feedFetcher, storyFetcher, assembler, book.NewEpubWriter(),
		publish.NewConverter(appCfg.ConverterBin, appCfg.ConverterTimeout), artifacts,
		tasks.PipelineConfig{StoryCount: appCfg.HNItemCount, Concurrency: appCfg.MaxConcurrentFetches})

	runner := tasks.NewRunner()
	controller := tasks.NewController(pipeline, runner, runRepo, appCfg.Cooldown, appCfg.DefaultItemCount)

	scheduler := tasks.NewScheduler(controller, appCfg.ScheduleHour, appCfg.DefaultItemCount, appCfg.Settle)
	scheduler.Start()

	mailer := publish.NewMailer(publish.MailerConfig{
		Host:      appCfg.SMTPHost,
		Port:      appCfg.SMTPPort,
		User:      appCfg.SMTPUser,
		Password:  appCfg.SMTPPassword,
		DefaultTo: appCfg.KindleEmail,
	})

	handler := api.NewHandler(controller, runRepo, artifacts, mailer, configCache)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	// WriteTimeout stays zero: downloads and the status stream are long-lived.
	httpServer := &http.Server{
		Addr:        ":" + appCfg.Port,
		Handler:     server,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig)
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down")

	scheduler.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// A run in progress owns the output file; let it finish.
	if err := controller.Wait(shutdownCtx); err != nil {
		slog.Warn("Last run ended with an error", "error", err)
	}

	slog.Info("Shutdown complete")
}

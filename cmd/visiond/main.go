// Vision daemon - drives the capture loop, policy engine, and WebSocket connections
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/uivision/bot/internal/capture"
	"github.com/uivision/bot/internal/config"
	"github.com/uivision/bot/internal/input"
	"github.com/uivision/bot/internal/ocr"
	"github.com/uivision/bot/internal/policy"
	"github.com/uivision/bot/internal/region"
	"github.com/uivision/bot/internal/runner"
	"github.com/uivision/bot/internal/server"
	"github.com/uivision/bot/internal/vision"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	cfg := config.Load()

	regions, err := region.Load(cfg.RegionsFile)
	if err != nil {
		slog.Error("failed to load regions", "file", cfg.RegionsFile, "error", err)
		os.Exit(1)
	}
	if len(regions) == 0 {
		slog.Warn("no regions configured", "file", cfg.RegionsFile)
	}

	rules, err := policy.Load(cfg.PoliciesFile)
	if err != nil {
		slog.Error("failed to load policies", "file", cfg.PoliciesFile, "error", err)
		os.Exit(1)
	}

	// OCR is optional: without tesseract, hybrid fusion degrades to
	// template-only confidence.
	var engine ocr.Engine
	if eng, err := ocr.NewTesseract(cfg.TesseractBin, cfg.OCRLanguage); err != nil {
		slog.Warn("OCR unavailable", "error", err)
	} else {
		engine = eng
	}

	analyzer, err := vision.NewAnalyzer(regions, cfg.TemplateDir, engine,
		vision.Aggregation(cfg.Aggregation))
	if err != nil {
		slog.Error("failed to create analyzer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = analyzer.Close() }()

	clicker, err := input.New()
	if err != nil {
		slog.Warn("click backend unavailable, clicks disabled", "error", err)
		cfg.ClickEnabled = false
	}
	gate := input.NewGate(clicker, cfg.ClickEnabled)

	run := runner.New(cfg, capture.New(), analyzer, policy.NewEngine(rules), gate)
	srv := server.New(run, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run.Start(ctx); err != nil {
		slog.Error("runner start error", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("vision daemon starting",
			"http", cfg.HTTPAddr,
			"regions", len(regions),
			"policies", len(rules),
			"clicks", gate.IsEnabled())
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}

	run.Stop()
	slog.Info("shutdown complete")
}

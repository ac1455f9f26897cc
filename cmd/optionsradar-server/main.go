package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"optionsradar/internal/app"
	"optionsradar/internal/config"
	"optionsradar/internal/httpapi"
	"optionsradar/internal/store"
	"optionsradar/internal/util"
)

func main() {
	// Load config.
	cfgPath := "config/optionsradar.yaml"
	if p := os.Getenv("OPTIONSRADAR_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)

	// Open storage.
	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		log.Fatalf("creating data dir: %v", err)
	}
	slots, err := store.NewSQLiteSlots(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening slot store: %v", err)
	}
	defer slots.Close()

	archive := store.NewArchive(cfg.Storage.DataDir)

	a := app.New(slots, archive, logger)
	srv := httpapi.NewServer(a, archive, logger, cfg.View.PageSize,
		cfg.Demo.URL, time.Duration(cfg.Demo.TimeoutSecs)*time.Second)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: srv.Handler(),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		logger.Info("optionsradar server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stevemurr/friends-server/config"
	"github.com/stevemurr/friends-server/friends"
	"github.com/stevemurr/friends-server/handler"
	"github.com/stevemurr/friends-server/log"
	"github.com/stevemurr/friends-server/store"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath, ".env")
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	log.SetVerbose(cfg.Verbose)

	if err := run(cfg); err != nil {
		log.Fatalf("%v", err)
	}
}

// run serves until SIGINT or SIGTERM. The store is closed on every return
// path once it has been opened.
func run(cfg *config.Config) error {
	db, err := store.New(cfg.StoreBackend, cfg.DataFile)
	if err != nil {
		return fmt.Errorf("failed to create store (backend=%s): %w", cfg.StoreBackend, err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warnf("failed to close store: %v", err)
		}
	}()

	svc, err := friends.NewService(db)
	if err != nil {
		return fmt.Errorf("failed to open friends collection: %w", err)
	}
	// Persist the initialized document so the data file exists from startup.
	if err := db.Sync(); err != nil {
		return fmt.Errorf("failed to write %s: %w", cfg.DataFile, err)
	}

	server := &http.Server{
		Addr: cfg.Addr(),
		Handler: handler.New(svc, handler.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			MaxUploadBytes: cfg.MaxUploadBytes(),
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Friends server starting on %s (store=%s, data=%s)", cfg.Addr(), cfg.StoreBackend, cfg.DataFile)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Infof("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

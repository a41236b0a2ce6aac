// Command server runs the readings ingestion service: it accepts sensor
// submissions over HTTP, persists them to SQLite with batched durability
// flushes, and sweeps rows past the retention horizon.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/homewx/homewx/pkg/config"
	"github.com/homewx/homewx/pkg/server"
)

const (
	serverReadTimeout  = 10 * time.Second
	serverWriteTimeout = 10 * time.Second
	shutdownTimeout    = 30 * time.Second
)

func main() {
	log.Println("Starting homewx server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	log.Printf("Configuration: db=%s retention=%dd commit_every=%d cleanup_every=%d/%v",
		cfg.DBFile, cfg.RetentionDays, cfg.CommitEvery, cfg.CleanupEvery, cfg.CleanupInterval)

	store, reader, err := server.InitializeStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()
	defer reader.Close()

	handlers := server.InitializeHandlers(cfg, store, reader)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		handlers.Hub.Run(ctx)
	}()
	log.Println("WebSocket hub started for the live readings feed")

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.NewRouter(handlers),
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
	}

	go func() {
		log.Printf("Server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutdown signal received...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown warning: %v", err)
	}

	// No new requests past this point; force the pending batch to disk so
	// a clean shutdown never loses accepted rows.
	if err := handlers.Writer.Flush(shutdownCtx); err != nil {
		log.Printf("Final flush failed: %v", err)
	}

	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("All background tasks stopped cleanly")
	case <-time.After(5 * time.Second):
		log.Println("Some background tasks did not stop in time (forcing exit)")
	}

	log.Println("Server exited cleanly")
}

/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the counter book server. Handles configuration,
  dependency wiring, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (env vars, optional .env file)
  2. Build the logger
  3. Open the SQLite snapshot store
  4. Hydrate the in-memory book and hook fire-and-forget saves
  5. Configure HTTP router
  6. Start server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Write a final snapshot and close the store
  4. Exit

ENVIRONMENT:
  HTTP_HOST, HTTP_PORT, DB_PATH, BACKUP_DIR, APP_ENV, LOG_LEVEL,
  ALLOW_NEGATIVE_STOCK, STRICT_PRODUCT_REFS. See config/config.go.

SEE ALSO:
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Snapshot persistence
*/
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/counterbook/pos-engine/api"
	"github.com/counterbook/pos-engine/config"
	"github.com/counterbook/pos-engine/ledger"
	"github.com/counterbook/pos-engine/logger"
	"github.com/counterbook/pos-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	store, err := sqlite.New(cfg.Store.DBPath, log)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Store.DBPath).Msg("failed to open store")
	}
	defer store.Close()

	book := ledger.NewBook(cfg.Posting.Policy())
	if err := store.Load(book); err != nil {
		log.Fatal().Err(err).Msg("failed to load snapshot")
	}
	book.SetOnChange(func() { store.SaveAsync(book) })

	handler := api.NewHandler(book, cfg.Store.BackupDir, log)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", cfg.HTTP.Addr()).
			Str("db", cfg.Store.DBPath).
			Bool("allow_negative_stock", cfg.Posting.AllowNegativeStock).
			Bool("strict_product_refs", cfg.Posting.StrictProductRefs).
			Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	// Final synchronous snapshot so in-flight async saves cannot be the
	// last word.
	if err := store.Save(book); err != nil {
		log.Error().Err(err).Msg("final snapshot failed")
	}

	log.Info().Msg("server stopped")
}

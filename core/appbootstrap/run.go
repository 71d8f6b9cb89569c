package appbootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cyberincident/api"
	"cyberincident/config"
	"cyberincident/core/store"
	"cyberincident/core/utils"
)

// Run boots the whole application: config, database, migrations, HTTP.
// It blocks until SIGINT/SIGTERM and then drains in-flight requests.
func Run(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := utils.NewLogger()
	logger.Printf("starting cyberincident (env=%s, driver=%s)", cfg.AppEnv, cfg.DBDriver)

	db, err := store.NewDB(cfg, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := store.ApplyMigrations(ctx, db, logger); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	if err := os.MkdirAll(cfg.Uploads.Dir, 0o700); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}

	deps := composeRuntime(cfg, db, logger)
	server := api.NewServer(cfg, deps, logger)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("listening on %s", cfg.ListenAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Printf("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
		return err
	}
	logger.Printf("stopped")
	return nil
}

// Command httpd runs the safeguard HTTP service.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/havenmind/safeguard/internal/bootstrap"
	"github.com/havenmind/safeguard/internal/logger"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	appLog, err := bootstrap.CreateLogger(cfg)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() {
		_ = appLog.Sync()
	}()

	appLog.Info("Starting safeguard service",
		logger.String("version", cfg.Service.Version),
		logger.Int("port", cfg.Service.Port))

	db, err := bootstrap.SetupDatabase(cfg, appLog)
	if err != nil {
		appLog.Fatal("failed to set up database", logger.Error(err))
	}
	defer func() {
		if closeErr := db.DB.Close(); closeErr != nil {
			appLog.Warn("failed to close database", logger.Error(closeErr))
		}
	}()

	components, err := bootstrap.SetupService(cfg, db, appLog)
	if err != nil {
		appLog.Fatal("failed to set up service", logger.Error(err))
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- components.Server.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		appLog.Error("server error", logger.Error(err))
		os.Exit(1)
	case sig := <-shutdown:
		appLog.Info("shutdown signal received", logger.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := components.Server.Shutdown(ctx); err != nil {
			appLog.Error("graceful shutdown failed", logger.Error(err))
			os.Exit(1)
		}

		appLog.Info("server stopped gracefully")
	}
}

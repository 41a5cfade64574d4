package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"gambit-server/internal/config"
	"gambit-server/internal/history"
	"gambit-server/internal/logging"
	"gambit-server/internal/server"
)

func gracefulShutdown(customServer *server.Server, httpServer *http.Server, logger *zap.Logger, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	logger.Info("shutdown_signal", zap.String("note", "press Ctrl+C again to force"))
	stop() // Allow Ctrl+C to force shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Custom shutdown logic (stop clocks, close the archive)
	if err := customServer.Shutdown(ctx); err != nil {
		logger.Error("server_shutdown_error", zap.Error(err))
	}

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("http_shutdown_error", zap.Error(err))
	}

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("config error: %s", err))
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("logger error: %s", err))
	}
	defer logger.Sync()

	// The archive is optional; without DATABASE_URL finished matches are
	// simply not recorded.
	var archive *history.Repository
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		archive, err = history.New(ctx, cfg.DatabaseURL)
		cancel()
		if err != nil {
			logger.Fatal("history_init_error", zap.Error(err))
		}
	}

	customServer, httpServer := server.NewServer(cfg, logger, archive)

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(customServer, httpServer, logger, done)

	logger.Info("server_listen", zap.Int("port", cfg.Port))
	err = httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	logger.Info("shutdown_complete")
}

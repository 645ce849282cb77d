package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lookkg/internal/config"
	"lookkg/internal/logger"
	"lookkg/internal/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg *config.Config
	log *zap.Logger
)

// rootCmd runs the API server when no subcommand is given
var rootCmd = &cobra.Command{
	Use:           "lookkg",
	Short:         "Look.kg marketplace API",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		var err error
		log, err = logger.New(cfg.Server.Env)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = log.Sync()
	},
	RunE: runServe,
}

// serveCmd starts the HTTP server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func gracefulShutdown(apiServer *server.Server, logger *zap.Logger, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// The context is used to inform the server it has 30 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := apiServer.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	logger.Info("Server exiting")

	done <- true
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	log.Info("Starting Look.kg API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("storage_driver", cfg.Storage.Driver),
	)

	backend, err := server.OpenBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	log.Info("Database health check", zap.Any("health", backend.Health(ctx)))

	store, err := server.OpenStorage(ctx, cfg)
	if err != nil {
		_ = backend.Close()
		return err
	}

	redisClient := server.NewRedisClient(ctx, cfg.Redis, log)

	srv, err := server.NewServer(cfg, log, backend, store, redisClient)
	if err != nil {
		_ = redisClient.Close()
		_ = backend.Close()
		return err
	}

	done := make(chan bool, 1)
	go gracefulShutdown(srv, log, done)

	log.Info("Server listening", zap.String("addr", srv.Addr))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	<-done
	log.Info("Graceful shutdown complete")
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

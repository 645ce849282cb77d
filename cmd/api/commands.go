package main

import (
	"errors"
	"fmt"

	"lookkg/internal/config"
	"lookkg/internal/database"
	"lookkg/internal/server"
	"lookkg/internal/service"
	"lookkg/internal/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var errMigrationsNeedPostgres = errors.New("migrations only apply to the postgres driver")

// migrateCmd groups the schema migration commands
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the PostgreSQL schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: withDatabase(func(db database.Service) error {
		return database.RunMigrations(db.DB(), log)
	}),
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: withDatabase(func(db database.Service) error {
		return database.RollbackMigration(db.DB(), log)
	}),
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the migration status",
	RunE: withDatabase(func(db database.Service) error {
		return database.GetMigrationStatus(db.DB())
	}),
}

func withDatabase(fn func(db database.Service) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if cfg.Database.Driver != config.DriverPostgres {
			return errMigrationsNeedPostgres
		}

		db, err := database.New(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		return fn(db)
	}
}

// seedCmd loads the sample accounts and then the sample catalog
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert sample users and products",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		backend, err := server.OpenBackend(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer backend.Close()

		// Seeded products use local placeholder images, so nothing is ever queued
		cleaner := storage.NewCleaner(storage.NewMemoryStorage(""), config.CleanupConfig{Workers: 1, QueueSize: 1}, log)
		defer cleaner.Close()

		users := service.NewUserService(backend.Users, cfg.JWT.Secret, 0, log)
		products := service.NewProductService(backend.Products, backend.Categories, backend.Users, backend.Tx, cleaner, log)

		createdUsers, err := users.Seed(ctx)
		if err != nil {
			return fmt.Errorf("failed to seed users: %w", err)
		}
		createdProducts, err := products.Seed(ctx)
		if err != nil {
			return fmt.Errorf("failed to seed products: %w", err)
		}

		log.Info("Seed complete",
			zap.Int("users", len(createdUsers)),
			zap.Int("products", len(createdProducts)),
		)
		return nil
	},
}

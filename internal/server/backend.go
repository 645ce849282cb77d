package server

import (
	"context"
	"fmt"
	"time"

	"lookkg/internal/config"
	"lookkg/internal/database"
	"lookkg/internal/repository"
	"lookkg/internal/storage"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Backend groups the repositories of one storage engine
type Backend struct {
	Products   repository.ProductRepository
	Categories repository.CategoryRepository
	Users      repository.UserRepository
	Tx         repository.Transactor

	health func(ctx context.Context) map[string]string
	close  func() error
}

// Health reports the state of the underlying database
func (b *Backend) Health(ctx context.Context) map[string]string {
	return b.health(ctx)
}

// Close releases the database connection
func (b *Backend) Close() error {
	return b.close()
}

// OpenBackend connects to the database selected by cfg.Database.Driver and
// prepares its schema
func OpenBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Backend, error) {
	switch cfg.Database.Driver {
	case config.DriverMongo:
		client, err := database.ConnectMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		backend, err := NewMongoBackend(ctx, client, cfg.Mongo)
		if err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		logger.Info("Using mongo backend", zap.String("database", cfg.Mongo.Database))
		return backend, nil

	case config.DriverPostgres:
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := database.RunMigrations(db.DB(), logger); err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Info("Using postgres backend", zap.String("host", cfg.Database.Host))
		return NewPostgresBackend(db), nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

// NewPostgresBackend builds the SQL repositories on an open connection pool
func NewPostgresBackend(db database.Service) *Backend {
	sqlDB := db.DB()
	return &Backend{
		Products:   repository.NewProductRepository(sqlDB),
		Categories: repository.NewCategoryRepository(sqlDB),
		Users:      repository.NewUserRepository(sqlDB),
		Tx:         repository.NewSQLTransactor(sqlDB),
		health:     db.Health,
		close:      db.Close,
	}
}

// NewMongoBackend builds the document repositories and makes sure their indexes exist
func NewMongoBackend(ctx context.Context, client *mongo.Client, cfg config.MongoConfig) (*Backend, error) {
	mdb := client.Database(cfg.Database)
	if err := database.EnsureIndexes(ctx, mdb); err != nil {
		return nil, err
	}

	return &Backend{
		Products:   repository.NewMongoProductRepository(mdb),
		Categories: repository.NewMongoCategoryRepository(mdb),
		Users:      repository.NewMongoUserRepository(mdb),
		Tx:         repository.NewMongoTransactor(client, cfg.Transactions),
		health: func(ctx context.Context) map[string]string {
			ctx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()
			if err := client.Ping(ctx, nil); err != nil {
				return map[string]string{"status": "down", "error": err.Error()}
			}
			return map[string]string{"status": "up"}
		},
		close: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return client.Disconnect(ctx)
		},
	}, nil
}

// OpenStorage builds the object store selected by cfg.Storage.Driver
func OpenStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.Storage.Driver {
	case config.StorageS3:
		return storage.NewS3Storage(ctx, cfg.Storage)
	case config.StorageMemory:
		base := cfg.Storage.PublicBaseURL
		if base == "" {
			base = fmt.Sprintf("http://localhost:%s%s", cfg.Server.Port, memoryObjectsPath)
		}
		return storage.NewMemoryStorage(base), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"lookkg/internal/config"
	custommiddleware "lookkg/internal/middleware"
	"lookkg/internal/service"
	"lookkg/internal/storage"
	"lookkg/internal/transport"
	"lookkg/internal/web"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// memoryObjectsPath serves objects of the in-memory store in development
const memoryObjectsPath = "/uploads"

type Server struct {
	*http.Server
	config  *config.Config
	logger  *zap.Logger
	backend *Backend
	cleaner *storage.Cleaner
	redis   *redis.Client
}

// NewServer wires services and handlers onto backend and store. redisClient
// may be nil, in which case uploads are not rate limited. The server owns
// backend and redisClient and releases them in Close.
func NewServer(cfg *config.Config, logger *zap.Logger, backend *Backend, store storage.Storage, redisClient *redis.Client) (*Server, error) {
	router := chi.NewRouter()

	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.PrometheusMetrics())
	router.Use(custommiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins, !cfg.Server.IsProduction()))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		db := backend.Health(r.Context())
		status := http.StatusOK
		if db["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		custommiddleware.RespondWithJSON(w, status, map[string]interface{}{
			"status":   http.StatusText(status),
			"database": db,
			"storage":  cfg.Storage.Driver,
		})
	})
	router.Handle("/metrics", promhttp.Handler())

	if mem, ok := store.(*storage.MemoryStorage); ok {
		router.Get(memoryObjectsPath+"/*", serveMemoryObject(mem))
	}

	cleaner := storage.NewCleaner(store, cfg.Cleanup, logger)
	tokenExpiry := time.Duration(cfg.JWT.Expiry) * time.Hour

	// Initialize services
	userService := service.NewUserService(backend.Users, cfg.JWT.Secret, tokenExpiry, logger)
	productService := service.NewProductService(backend.Products, backend.Categories, backend.Users, backend.Tx, cleaner, logger)
	uploadService := service.NewUploadService(store, backend.Users, cleaner, cfg.Upload.MaxBytes, logger)

	// Initialize handlers
	userHandler := transport.NewUserHandler(userService, logger)
	productHandler := transport.NewProductHandler(productService, logger)
	uploadHandler := transport.NewUploadHandler(uploadService, cfg.Upload.MaxBytes, logger)
	webHandler, err := web.NewHandler(productService, userService, tokenExpiry, cfg.Server.IsProduction(), logger)
	if err != nil {
		cleaner.Close()
		return nil, err
	}

	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)
	sellerMiddleware := custommiddleware.RequireSellerOrAdmin(logger)
	rateLimit := func(next http.Handler) http.Handler { return next }
	if redisClient != nil {
		rateLimit = custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.Upload.RequestsPerWindow,
			Window:            cfg.Upload.Window,
			KeyPrefix:         "ratelimit:upload",
		}, logger)
	}

	// Register routes
	userHandler.RegisterRoutes(router, authMiddleware)
	productHandler.RegisterRoutes(router, authMiddleware, sellerMiddleware)
	uploadHandler.RegisterRoutes(router, authMiddleware, rateLimit)
	webHandler.RegisterRoutes(router)

	return &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config:  cfg,
		logger:  logger,
		backend: backend,
		cleaner: cleaner,
		redis:   redisClient,
	}, nil
}

// NewRedisClient creates the client used for upload rate limiting and checks
// that Redis answers. The client is returned even when the ping fails since
// the limiter lets requests through while Redis is down.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis is unreachable, uploads will not be rate limited", zap.String("addr", cfg.Addr()), zap.Error(err))
	}
	return client
}

// Close drains pending image deletions and releases the backend and Redis
func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	s.cleaner.Close()

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	if err := s.backend.Close(); err != nil {
		s.logger.Error("Failed to close database connection", zap.Error(err))
	}

	_ = s.logger.Sync()
	return nil
}

func serveMemoryObject(store *storage.MemoryStorage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "*")
		if unescaped, err := url.PathUnescape(key); err == nil {
			key = unescaped
		}

		obj, ok := store.Get(key)
		if !ok {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", obj.ContentType)
		w.Header().Set("Cache-Control", "public, max-age=86400")
		_, _ = w.Write(obj.Data)
	}
}

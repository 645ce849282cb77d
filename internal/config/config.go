package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"

	StorageS3     = "s3"
	StorageMemory = "memory"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Storage  StorageConfig
	Upload   UploadConfig
	Cleanup  CleanupConfig
	CORS     CORSConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type MongoConfig struct {
	URI          string
	Database     string
	Transactions bool
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Expiry int // in hours
}

type StorageConfig struct {
	Driver          string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	PublicBaseURL   string
}

type UploadConfig struct {
	MaxBytes          int64
	RequestsPerWindow int
	Window            time.Duration
}

type CleanupConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

// DSN returns the PostgreSQL connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.Schema,
	)
}

// Addr returns the Redis host:port address
func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// IsProduction reports whether the server runs in production mode
func (c ServerConfig) IsProduction() bool {
	return c.Env == "production"
}

func Load() *Config {
	// .env is optional; real environment variables always win
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not read .env file: %v", err)
	}

	v := viper.New()
	v.AutomaticEnv()

	// Set defaults
	v.SetDefault("SERVER_PORT", "5000")
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SCHEMA", "public")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "lookkg")
	v.SetDefault("MONGO_TRANSACTIONS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JWT_EXPIRY_HOURS", 24*30)
	v.SetDefault("STORAGE_DRIVER", StorageS3)
	v.SetDefault("AWS_REGION", "us-west-2")
	v.SetDefault("S3_BUCKET", "lookkg-images")
	v.SetDefault("UPLOAD_MAX_BYTES", 5*1024*1024)
	v.SetDefault("UPLOAD_RATE_LIMIT", 30)
	v.SetDefault("UPLOAD_RATE_WINDOW", time.Minute)
	v.SetDefault("CLEANUP_WORKERS", 2)
	v.SetDefault("CLEANUP_QUEUE_SIZE", 64)
	v.SetDefault("CLEANUP_TIMEOUT", 15*time.Second)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")

	return &Config{
		Server: ServerConfig{
			Port: v.GetString("SERVER_PORT"),
			Env:  v.GetString("SERVER_ENV"),
		},
		Database: DatabaseConfig{
			Driver:   v.GetString("DB_DRIVER"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Database: v.GetString("DB_DATABASE"),
			Schema:   v.GetString("DB_SCHEMA"),
		},
		Mongo: MongoConfig{
			URI:          v.GetString("MONGO_URI"),
			Database:     v.GetString("MONGO_DATABASE"),
			Transactions: v.GetBool("MONGO_TRANSACTIONS"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
			Expiry: v.GetInt("JWT_EXPIRY_HOURS"),
		},
		Storage: StorageConfig{
			Driver:          v.GetString("STORAGE_DRIVER"),
			Region:          v.GetString("AWS_REGION"),
			Bucket:          v.GetString("S3_BUCKET"),
			AccessKeyID:     v.GetString("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("AWS_SECRET_ACCESS_KEY"),
			Endpoint:        v.GetString("S3_ENDPOINT"),
			PublicBaseURL:   v.GetString("S3_PUBLIC_URL"),
		},
		Upload: UploadConfig{
			MaxBytes:          v.GetInt64("UPLOAD_MAX_BYTES"),
			RequestsPerWindow: v.GetInt("UPLOAD_RATE_LIMIT"),
			Window:            v.GetDuration("UPLOAD_RATE_WINDOW"),
		},
		Cleanup: CleanupConfig{
			Workers:   v.GetInt("CLEANUP_WORKERS"),
			QueueSize: v.GetInt("CLEANUP_QUEUE_SIZE"),
			Timeout:   v.GetDuration("CLEANUP_TIMEOUT"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
	}
}

// Validate checks settings that would otherwise fail later at request time
func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case DriverPostgres, DriverMongo:
	default:
		errs = append(errs, fmt.Errorf("unknown DB_DRIVER %q", c.Database.Driver))
	}

	switch c.Storage.Driver {
	case StorageS3, StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver))
	}

	if c.JWT.Secret == "" && c.Server.IsProduction() {
		errs = append(errs, errors.New("JWT_SECRET is required in production"))
	}

	if c.Upload.MaxBytes <= 0 {
		errs = append(errs, errors.New("UPLOAD_MAX_BYTES must be positive"))
	}

	if c.Cleanup.Workers < 1 {
		errs = append(errs, errors.New("CLEANUP_WORKERS must be at least 1"))
	}

	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

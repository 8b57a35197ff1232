package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	gemcert "github.com/powerbrainlabs/diamond-erp-back-end"
	"github.com/powerbrainlabs/diamond-erp-back-end/factory"
	"github.com/powerbrainlabs/diamond-erp-back-end/internal"
	"github.com/powerbrainlabs/diamond-erp-back-end/internal/objstore"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	sugar := logger.Sugar()

	config := loadConfig()
	if err := config.Validate(); err != nil {
		sugar.Fatalf("invalid configuration: %v", err)
	}
	if err := internal.ValidateDatabaseConfig(config.Database); err != nil {
		sugar.Fatalf("invalid database configuration: %v", err)
	}
	if err := internal.ValidateStorageConfig(config.Storage); err != nil {
		sugar.Fatalf("invalid storage configuration: %v", err)
	}

	pool, err := createDatabasePool(config.Database)
	if err != nil {
		sugar.Fatalf("failed to create database pool: %v", err)
	}
	defer pool.Close()

	ctx := context.Background()
	store, err := objstore.New(ctx, config.Storage)
	if err != nil {
		sugar.Fatalf("failed to create object store: %v", err)
	}
	if err := store.EnsureBuckets(ctx, config.Storage.StagingBucket, config.Storage.PermanentBucket); err != nil {
		sugar.Fatalf("failed to ensure buckets: %v", err)
	}

	engine, err := factory.NewEngine(config, pool, store)
	if err != nil {
		sugar.Fatalf("failed to assemble engine: %v", err)
	}

	if getEnv("SEED_ON_STARTUP", "false") == "true" {
		if err := engine.Seed(ctx); err != nil {
			sugar.Fatalf("failed to seed defaults: %v", err)
		}
	}

	server := NewServer(engine.Schemas, engine.Attributes, engine.Types, engine.Forms, engine.Issuer, engine.Certificates, store, config.Storage)
	server.SetHealthCheck(func(ctx context.Context) error {
		if err := internal.PostgresHealthCheck(ctx, pool, 0); err != nil {
			return err
		}
		return internal.StorageHealthCheck(ctx, config.Storage, 0)
	})
	server.RegisterRoutes()

	port := getEnv("PORT", "8080")
	sugar.Infow("starting server", "port", port)
	if err := server.Start(port); err != nil {
		sugar.Fatalf("server error: %v", err)
	}
}

func loadConfig() *gemcert.Config {
	config := gemcert.DefaultConfig()

	config.Database.Host = getEnv("DB_HOST", config.Database.Host)
	config.Database.Port = getEnvInt("DB_PORT", config.Database.Port)
	config.Database.Database = getEnv("DB_NAME", config.Database.Database)
	config.Database.Username = getEnv("DB_USER", config.Database.Username)
	config.Database.Password = getEnv("DB_PASSWORD", config.Database.Password)
	config.Database.SSLMode = getEnv("DB_SSL_MODE", config.Database.SSLMode)
	config.Database.MaxConnections = getEnvInt("DB_MAX_CONNECTIONS", config.Database.MaxConnections)

	config.Storage.Endpoint = getEnv("S3_ENDPOINT", config.Storage.Endpoint)
	config.Storage.Region = getEnv("S3_REGION", config.Storage.Region)
	config.Storage.AccessKey = getEnv("S3_ACCESS_KEY", config.Storage.AccessKey)
	config.Storage.SecretKey = getEnv("S3_SECRET_KEY", config.Storage.SecretKey)
	config.Storage.UsePathStyle = getEnv("S3_PATH_STYLE", "true") == "true"
	config.Storage.StagingBucket = getEnv("S3_STAGING_BUCKET", config.Storage.StagingBucket)
	config.Storage.PermanentBucket = getEnv("S3_PERMANENT_BUCKET", config.Storage.PermanentBucket)

	config.Numbering.Prefix = getEnv("CERT_NUMBER_PREFIX", config.Numbering.Prefix)
	config.Numbering.SequenceWidth = getEnvInt("CERT_NUMBER_WIDTH", config.Numbering.SequenceWidth)

	return config
}

// createDatabasePool creates a PostgreSQL connection pool from config
func createDatabasePool(config gemcert.DatabaseConfig) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		config.Username,
		config.Password,
		config.Host,
		config.Port,
		config.Database,
		config.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(config.MaxConnections)
	poolConfig.MinConns = int32(config.MaxIdleConns)
	poolConfig.MaxConnLifetime = config.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = config.ConnMaxIdleTime
	poolConfig.ConnConfig.ConnectTimeout = config.Timeout

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

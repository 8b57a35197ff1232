package internal

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	gemcert "github.com/powerbrainlabs/diamond-erp-back-end"
)

// ValidateDatabaseConfig performs basic sanity checks on Postgres settings.
func ValidateDatabaseConfig(cfg gemcert.DatabaseConfig) error {
	if cfg.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("database.port must be a valid TCP port")
	}
	if cfg.MaxConnections <= 0 {
		return fmt.Errorf("database.maxConnections must be greater than 0")
	}
	return nil
}

// ValidateStorageConfig performs basic sanity checks on object storage
// settings.
func ValidateStorageConfig(cfg gemcert.StorageConfig) error {
	if cfg.AccessKey != "" && cfg.SecretKey == "" {
		return fmt.Errorf("storage accessKey provided without secretKey")
	}
	if cfg.SecretKey != "" && cfg.AccessKey == "" {
		return fmt.Errorf("storage secretKey provided without accessKey")
	}
	if cfg.StagingBucket == "" || cfg.PermanentBucket == "" {
		return fmt.Errorf("storage buckets must be configured")
	}
	return nil
}

// PostgresHealthCheck pings the database through the shared pool. timeout
// may be 0 to use a sensible default (5s).
func PostgresHealthCheck(ctx context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	if _, err := pool.Exec(ctx, "SELECT 1"); err != nil {
		return fmt.Errorf("postgres simple query failed: %w", err)
	}
	return nil
}

// StorageHealthCheck attempts a best-effort HTTP ping against the configured
// storage endpoint. It only succeeds for endpoints that accept anonymous
// HEAD requests (e.g., MinIO setups); for AWS S3 this often returns 403 but
// still validates DNS resolution and TLS.
func StorageHealthCheck(ctx context.Context, cfg gemcert.StorageConfig, timeout time.Duration) error {
	if cfg.Endpoint == "" {
		// Hosted S3: nothing to probe without signing a request.
		return nil
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := &http.Client{Timeout: timeout}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, cfg.Endpoint, nil)
	if err != nil {
		return fmt.Errorf("storage health request build failed: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("storage health request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		return nil
	}
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("storage endpoint reachable but returned auth error: %d", resp.StatusCode)
	}
	return fmt.Errorf("storage endpoint returned unexpected status: %d", resp.StatusCode)
}

package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	gemcert "github.com/powerbrainlabs/diamond-erp-back-end"
)

type typePool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// TypeRegistry lists certificate types and backs group-slug validation.
type TypeRegistry struct {
	pool    typePool
	table   string
	nowFunc func() time.Time
}

func NewTypeRegistry(pool typePool, tables gemcert.TableNames) *TypeRegistry {
	return &TypeRegistry{pool: pool, table: tables.CertificateTypes, nowFunc: time.Now}
}

func (r *TypeRegistry) withClock(now func() time.Time) {
	if now == nil {
		return
	}
	r.nowFunc = now
}

func (r *TypeRegistry) ListTypes(ctx context.Context) ([]*gemcert.CertificateType, error) {
	query := fmt.Sprintf(
		`SELECT uuid, name, slug, display_order, is_active FROM %s
			WHERE is_deleted = FALSE AND is_active = TRUE ORDER BY display_order`,
		sanitizeIdentifier(r.table),
	)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list certificate types: %w", err)
	}
	defer rows.Close()

	types := []*gemcert.CertificateType{}
	for rows.Next() {
		var ct gemcert.CertificateType
		if err := rows.Scan(&ct.UUID, &ct.Name, &ct.Slug, &ct.DisplayOrder, &ct.IsActive); err != nil {
			return nil, fmt.Errorf("scan certificate type: %w", err)
		}
		types = append(types, &ct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate certificate types: %w", err)
	}
	return types, nil
}

func (r *TypeRegistry) TypeExists(ctx context.Context, slug string) (bool, error) {
	if slug == "" {
		return false, nil
	}
	query := fmt.Sprintf(
		`SELECT EXISTS(SELECT 1 FROM %s WHERE slug = $1 AND is_deleted = FALSE)`,
		sanitizeIdentifier(r.table),
	)
	var exists bool
	if err := r.pool.QueryRow(ctx, query, slug).Scan(&exists); err != nil {
		return false, fmt.Errorf("check certificate type: %w", err)
	}
	return exists, nil
}

// Ensure inserts the type when its slug is not present yet. Used by seeding.
func (r *TypeRegistry) Ensure(ctx context.Context, ct *gemcert.CertificateType) error {
	now := r.nowFunc().UTC()
	query := fmt.Sprintf(
		`INSERT INTO %s (uuid, name, slug, display_order, is_active, is_deleted, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7)
			ON CONFLICT (slug) DO NOTHING`,
		sanitizeIdentifier(r.table),
	)
	if _, err := r.pool.Exec(ctx, query, ct.UUID, ct.Name, ct.Slug, ct.DisplayOrder, ct.IsActive, now, now); err != nil {
		return fmt.Errorf("ensure certificate type: %w", err)
	}
	return nil
}

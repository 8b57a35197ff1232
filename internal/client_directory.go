package internal

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	gemcert "github.com/powerbrainlabs/diamond-erp-back-end"
)

type clientPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ClientDirectory is the existence lookup into the client roster. Client
// management lives in another service; issuance only confirms the target
// exists and picks up the display name.
type ClientDirectory struct {
	pool  clientPool
	table string
}

func NewClientDirectory(pool clientPool, tables gemcert.TableNames) *ClientDirectory {
	return &ClientDirectory{pool: pool, table: tables.Clients}
}

func (d *ClientDirectory) FindClient(ctx context.Context, id uuid.UUID) (*gemcert.ClientSummary, error) {
	query := fmt.Sprintf(
		`SELECT uuid, name, COALESCE(email, '') FROM %s WHERE uuid = $1 AND is_deleted = FALSE`,
		sanitizeIdentifier(d.table),
	)
	var c gemcert.ClientSummary
	err := d.pool.QueryRow(ctx, query, id).Scan(&c.UUID, &c.Name, &c.Email)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find client: %w", err)
	}
	return &c, nil
}

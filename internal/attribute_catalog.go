package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	gemcert "github.com/powerbrainlabs/diamond-erp-back-end"
)

type attributePool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// AttributeCatalog stores the option values feeding schema dropdowns, keyed
// by (group, type). Rows are soft-deleted so issued certificates keep their
// historical values.
type AttributeCatalog struct {
	pool    attributePool
	table   string
	types   typeSource
	nowFunc func() time.Time
}

func NewAttributeCatalog(pool attributePool, tables gemcert.TableNames, types typeSource) *AttributeCatalog {
	return &AttributeCatalog{
		pool:    pool,
		table:   tables.Attributes,
		types:   types,
		nowFunc: time.Now,
	}
}

func (c *AttributeCatalog) withClock(now func() time.Time) {
	if now == nil {
		return
	}
	c.nowFunc = now
}

const attributeColumns = "uuid, group_name, attr_type, name, hardness, ri, sg, created_by, created_at, updated_at"

func scanAttribute(row pgx.Row) (*gemcert.Attribute, error) {
	var (
		a           gemcert.Attribute
		createdJSON []byte
	)
	err := row.Scan(&a.UUID, &a.Group, &a.Type, &a.Name, &a.Hardness, &a.RI, &a.SG,
		&createdJSON, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(createdJSON) > 0 {
		if err := json.Unmarshal(createdJSON, &a.CreatedBy); err != nil {
			return nil, fmt.Errorf("unmarshal created_by: %w", err)
		}
	}
	return &a, nil
}

func (c *AttributeCatalog) nameTaken(ctx context.Context, group, attrType, name string, exclude uuid.UUID) (bool, error) {
	query := fmt.Sprintf(
		`SELECT EXISTS(SELECT 1 FROM %s
			WHERE group_name = $1 AND attr_type = $2 AND lower(name) = lower($3)
			AND is_deleted = FALSE AND uuid <> $4)`,
		sanitizeIdentifier(c.table),
	)
	var taken bool
	if err := c.pool.QueryRow(ctx, query, group, attrType, name, exclude).Scan(&taken); err != nil {
		return false, fmt.Errorf("check attribute name: %w", err)
	}
	return taken, nil
}

func (c *AttributeCatalog) Create(ctx context.Context, who gemcert.Identity, group, attrType string, req *gemcert.AttributeCreate) (*gemcert.Attribute, error) {
	if req == nil || req.Name == "" {
		return nil, gemcert.NewValidationError("name", "name cannot be empty")
	}
	if attrType == "" {
		return nil, gemcert.NewValidationError("type", "type cannot be empty")
	}

	exists, err := c.types.TypeExists(ctx, group)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, gemcert.NewInvalidGroupError(group)
	}

	taken, err := c.nameTaken(ctx, group, attrType, req.Name, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, gemcert.NewDuplicateNameError("attribute", req.Name)
	}

	now := c.nowFunc().UTC()
	attr := &gemcert.Attribute{
		UUID:      uuid.New(),
		Group:     group,
		Type:      attrType,
		Name:      req.Name,
		Hardness:  req.Hardness,
		RI:        req.RI,
		SG:        req.SG,
		CreatedBy: who,
		CreatedAt: now,
		UpdatedAt: now,
	}

	createdJSON, err := json.Marshal(attr.CreatedBy)
	if err != nil {
		return nil, fmt.Errorf("marshal created_by: %w", err)
	}
	query := fmt.Sprintf(
		`INSERT INTO %s (uuid, group_name, attr_type, name, hardness, ri, sg, is_deleted, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8, $9, $10)`,
		sanitizeIdentifier(c.table),
	)
	_, err = c.pool.Exec(ctx, query, attr.UUID, attr.Group, attr.Type, attr.Name,
		attr.Hardness, attr.RI, attr.SG, createdJSON, attr.CreatedAt, attr.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, gemcert.NewDuplicateNameError("attribute", attr.Name)
		}
		return nil, fmt.Errorf("insert attribute: %w", err)
	}
	return attr, nil
}

func (c *AttributeCatalog) List(ctx context.Context, group, attrType, search string) ([]*gemcert.Attribute, error) {
	where := "is_deleted = FALSE"
	args := []any{}
	if group != "" {
		args = append(args, group)
		where += fmt.Sprintf(" AND group_name = $%d", len(args))
	}
	if attrType != "" {
		args = append(args, attrType)
		where += fmt.Sprintf(" AND attr_type = $%d", len(args))
	}
	if search != "" {
		args = append(args, likePattern(search))
		where += fmt.Sprintf(" AND name ILIKE $%d", len(args))
	}

	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE %s ORDER BY created_at DESC`,
		attributeColumns, sanitizeIdentifier(c.table), where,
	)
	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attributes: %w", err)
	}
	defer rows.Close()

	attrs := []*gemcert.Attribute{}
	for rows.Next() {
		attr, err := scanAttribute(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attribute row: %w", err)
		}
		attrs = append(attrs, attr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attribute rows: %w", err)
	}
	return attrs, nil
}

func (c *AttributeCatalog) get(ctx context.Context, id uuid.UUID) (*gemcert.Attribute, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE uuid = $1 AND is_deleted = FALSE`,
		attributeColumns, sanitizeIdentifier(c.table),
	)
	attr, err := scanAttribute(c.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, gemcert.NewAttributeNotFoundError(id.String())
		}
		return nil, fmt.Errorf("get attribute: %w", err)
	}
	return attr, nil
}

func (c *AttributeCatalog) Update(ctx context.Context, id uuid.UUID, req *gemcert.AttributeUpdate) (*gemcert.Attribute, error) {
	attr, err := c.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return attr, nil
	}

	if req.Name != nil && *req.Name != attr.Name {
		if *req.Name == "" {
			return nil, gemcert.NewValidationError("name", "name cannot be empty")
		}
		taken, err := c.nameTaken(ctx, attr.Group, attr.Type, *req.Name, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, gemcert.NewDuplicateNameError("attribute", *req.Name)
		}
		attr.Name = *req.Name
	}
	if req.Hardness != nil {
		attr.Hardness = req.Hardness
	}
	if req.RI != nil {
		attr.RI = req.RI
	}
	if req.SG != nil {
		attr.SG = req.SG
	}
	attr.UpdatedAt = c.nowFunc().UTC()

	query := fmt.Sprintf(
		`UPDATE %s SET name = $2, hardness = $3, ri = $4, sg = $5, updated_at = $6
			WHERE uuid = $1 AND is_deleted = FALSE`,
		sanitizeIdentifier(c.table),
	)
	tag, err := c.pool.Exec(ctx, query, id, attr.Name, attr.Hardness, attr.RI, attr.SG, attr.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, gemcert.NewDuplicateNameError("attribute", attr.Name)
		}
		return nil, fmt.Errorf("update attribute: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, gemcert.NewAttributeNotFoundError(id.String())
	}
	return attr, nil
}

func (c *AttributeCatalog) Delete(ctx context.Context, id uuid.UUID) error {
	query := fmt.Sprintf(
		`UPDATE %s SET is_deleted = TRUE, updated_at = $2 WHERE uuid = $1 AND is_deleted = FALSE`,
		sanitizeIdentifier(c.table),
	)
	tag, err := c.pool.Exec(ctx, query, id, c.nowFunc().UTC())
	if err != nil {
		return fmt.Errorf("delete attribute: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return gemcert.NewAttributeNotFoundError(id.String())
	}
	return nil
}

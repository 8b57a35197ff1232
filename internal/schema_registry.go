package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	gemcert "github.com/powerbrainlabs/diamond-erp-back-end"
)

type schemaPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// SchemaRegistry is the Postgres-backed store of category schemas. Field
// definitions live in a JSONB column; the row carries the searchable
// metadata.
type SchemaRegistry struct {
	pool    schemaPool
	table   string
	query   gemcert.QueryConfig
	nowFunc func() time.Time
}

func NewSchemaRegistry(pool schemaPool, tables gemcert.TableNames, query gemcert.QueryConfig) *SchemaRegistry {
	return &SchemaRegistry{
		pool:    pool,
		table:   tables.CategorySchemas,
		query:   normalizePaging(query),
		nowFunc: time.Now,
	}
}

func (r *SchemaRegistry) withClock(now func() time.Time) {
	if now == nil {
		return
	}
	r.nowFunc = now
}

const schemaColumns = "uuid, name, group_name, description, description_template, fields, is_active, created_by, created_at, updated_at"

func scanSchema(row pgx.Row) (*gemcert.CategorySchema, error) {
	var (
		s           gemcert.CategorySchema
		fieldsJSON  []byte
		createdJSON []byte
	)
	err := row.Scan(&s.UUID, &s.Name, &s.Group, &s.Description, &s.DescriptionTemplate,
		&fieldsJSON, &s.IsActive, &createdJSON, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(fieldsJSON) > 0 {
		if err := json.Unmarshal(fieldsJSON, &s.Fields); err != nil {
			return nil, fmt.Errorf("unmarshal schema fields: %w", err)
		}
	}
	if len(createdJSON) > 0 {
		if err := json.Unmarshal(createdJSON, &s.CreatedBy); err != nil {
			return nil, fmt.Errorf("unmarshal created_by: %w", err)
		}
	}
	return &s, nil
}

// normalizeFields assigns missing field ids and rewrites display_order from
// array position. Field types must come from the known set.
func normalizeFields(fields []gemcert.FieldDefinition) ([]gemcert.FieldDefinition, error) {
	normalized := make([]gemcert.FieldDefinition, len(fields))
	for i, f := range fields {
		if f.FieldName == "" {
			return nil, gemcert.NewValidationError("field_name", "field_name cannot be empty")
		}
		if !f.FieldType.Valid() {
			return nil, gemcert.NewValidationError(f.FieldName, fmt.Sprintf("unknown field type '%s'", f.FieldType))
		}
		if f.FieldID == "" {
			f.FieldID = uuid.NewString()
		}
		f.DisplayOrder = i
		normalized[i] = f
	}
	return normalized, nil
}

func (r *SchemaRegistry) nameTaken(ctx context.Context, name string, exclude uuid.UUID) (bool, error) {
	query := fmt.Sprintf(
		`SELECT EXISTS(SELECT 1 FROM %s WHERE lower(name) = lower($1) AND is_deleted = FALSE AND uuid <> $2)`,
		sanitizeIdentifier(r.table),
	)
	var taken bool
	if err := r.pool.QueryRow(ctx, query, name, exclude).Scan(&taken); err != nil {
		return false, fmt.Errorf("check schema name: %w", err)
	}
	return taken, nil
}

func (r *SchemaRegistry) Create(ctx context.Context, who gemcert.Identity, req *gemcert.SchemaCreate) (*gemcert.CategorySchema, error) {
	if req == nil || req.Name == "" {
		return nil, gemcert.NewValidationError("name", "name cannot be empty")
	}
	if req.Group == "" {
		return nil, gemcert.NewValidationError("group", "group cannot be empty")
	}

	fields, err := normalizeFields(req.Fields)
	if err != nil {
		return nil, err
	}
	if _, err := gemcert.CompileFields(fields); err != nil {
		return nil, gemcert.NewSchemaInvalidError("field definitions do not form a valid schema", err)
	}

	taken, err := r.nameTaken(ctx, req.Name, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, gemcert.NewDuplicateNameError("category schema", req.Name)
	}

	now := r.nowFunc().UTC()
	schema := &gemcert.CategorySchema{
		UUID:                uuid.New(),
		Name:                req.Name,
		Group:               req.Group,
		Description:         req.Description,
		DescriptionTemplate: req.DescriptionTemplate,
		Fields:              fields,
		IsActive:            true,
		CreatedBy:           who,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if req.IsActive != nil {
		schema.IsActive = *req.IsActive
	}

	if err := r.insert(ctx, schema); err != nil {
		return nil, err
	}
	return schema, nil
}

func (r *SchemaRegistry) insert(ctx context.Context, s *gemcert.CategorySchema) error {
	fieldsJSON, err := json.Marshal(s.Fields)
	if err != nil {
		return fmt.Errorf("marshal schema fields: %w", err)
	}
	createdJSON, err := json.Marshal(s.CreatedBy)
	if err != nil {
		return fmt.Errorf("marshal created_by: %w", err)
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (uuid, name, group_name, description, description_template, fields, is_active, is_deleted, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8, $9, $10)`,
		sanitizeIdentifier(r.table),
	)
	_, err = r.pool.Exec(ctx, query, s.UUID, s.Name, s.Group, s.Description, s.DescriptionTemplate,
		fieldsJSON, s.IsActive, createdJSON, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return gemcert.NewDuplicateNameError("category schema", s.Name)
		}
		return fmt.Errorf("insert schema: %w", err)
	}
	return nil
}

func (r *SchemaRegistry) Get(ctx context.Context, id uuid.UUID) (*gemcert.CategorySchema, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE uuid = $1 AND is_deleted = FALSE`,
		schemaColumns, sanitizeIdentifier(r.table),
	)
	schema, err := scanSchema(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, gemcert.NewSchemaNotFoundError(id.String())
		}
		return nil, fmt.Errorf("get schema: %w", err)
	}
	return schema, nil
}

func (r *SchemaRegistry) List(ctx context.Context, q *gemcert.SchemaQuery) (*gemcert.SchemaPage, error) {
	if q == nil {
		q = &gemcert.SchemaQuery{}
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := clampLimit(q.Limit, r.query)

	where := "is_deleted = FALSE"
	args := []any{}
	if q.Group != "" {
		args = append(args, q.Group)
		where += fmt.Sprintf(" AND group_name = $%d", len(args))
	}
	if q.IsActive != nil {
		args = append(args, *q.IsActive)
		where += fmt.Sprintf(" AND is_active = $%d", len(args))
	}
	if q.Search != "" {
		args = append(args, likePattern(q.Search))
		where += fmt.Sprintf(" AND (name ILIKE $%d OR description ILIKE $%d)", len(args), len(args))
	}

	sortBy := "created_at"
	if q.SortBy == "name" {
		sortBy = "name"
	}
	order := "DESC"
	if q.Order == "asc" {
		order = "ASC"
	}

	table := sanitizeIdentifier(r.table)

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, table, where)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count schemas: %w", err)
	}

	args = append(args, limit, (page-1)*limit)
	listQuery := fmt.Sprintf(
		`SELECT %s FROM %s WHERE %s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		schemaColumns, table, where, sortBy, order, len(args)-1, len(args),
	)
	rows, err := r.pool.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	defer rows.Close()

	schemas := []*gemcert.CategorySchema{}
	for rows.Next() {
		schema, err := scanSchema(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schema row: %w", err)
		}
		schemas = append(schemas, schema)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schema rows: %w", err)
	}

	totalPages := pageCount(total, limit)
	return &gemcert.SchemaPage{
		Data:       schemas,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1 && total > 0,
	}, nil
}

func (r *SchemaRegistry) Update(ctx context.Context, id uuid.UUID, req *gemcert.SchemaUpdate) (*gemcert.CategorySchema, error) {
	schema, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return schema, nil
	}

	if req.Name != nil && *req.Name != schema.Name {
		if *req.Name == "" {
			return nil, gemcert.NewValidationError("name", "name cannot be empty")
		}
		taken, err := r.nameTaken(ctx, *req.Name, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, gemcert.NewDuplicateNameError("category schema", *req.Name)
		}
		schema.Name = *req.Name
	}
	if req.Description != nil {
		schema.Description = *req.Description
	}
	if req.DescriptionTemplate != nil {
		schema.DescriptionTemplate = *req.DescriptionTemplate
	}
	if req.IsActive != nil {
		schema.IsActive = *req.IsActive
	}
	schema.UpdatedAt = r.nowFunc().UTC()

	query := fmt.Sprintf(
		`UPDATE %s SET name = $2, description = $3, description_template = $4, is_active = $5, updated_at = $6
			WHERE uuid = $1 AND is_deleted = FALSE`,
		sanitizeIdentifier(r.table),
	)
	tag, err := r.pool.Exec(ctx, query, id, schema.Name, schema.Description,
		schema.DescriptionTemplate, schema.IsActive, schema.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, gemcert.NewDuplicateNameError("category schema", schema.Name)
		}
		return nil, fmt.Errorf("update schema: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, gemcert.NewSchemaNotFoundError(id.String())
	}
	return schema, nil
}

func (r *SchemaRegistry) Delete(ctx context.Context, id uuid.UUID) error {
	query := fmt.Sprintf(
		`UPDATE %s SET is_deleted = TRUE, updated_at = $2 WHERE uuid = $1 AND is_deleted = FALSE`,
		sanitizeIdentifier(r.table),
	)
	tag, err := r.pool.Exec(ctx, query, id, r.nowFunc().UTC())
	if err != nil {
		return fmt.Errorf("delete schema: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return gemcert.NewSchemaNotFoundError(id.String())
	}
	return nil
}

func (r *SchemaRegistry) ReplaceFields(ctx context.Context, id uuid.UUID, fields []gemcert.FieldDefinition) (*gemcert.CategorySchema, error) {
	schema, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	normalized, err := normalizeFields(fields)
	if err != nil {
		return nil, err
	}
	if _, err := gemcert.CompileFields(normalized); err != nil {
		return nil, gemcert.NewSchemaInvalidError("field definitions do not form a valid schema", err)
	}

	schema.Fields = normalized
	schema.UpdatedAt = r.nowFunc().UTC()
	if err := r.writeFields(ctx, schema); err != nil {
		return nil, err
	}
	return schema, nil
}

// ReorderFields moves the named fields to the front in the given order.
// Fields missing from the list keep their relative order and follow at the
// end. Unknown ids are ignored.
func (r *SchemaRegistry) ReorderFields(ctx context.Context, id uuid.UUID, fieldIDs []string) (*gemcert.CategorySchema, error) {
	schema, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]gemcert.FieldDefinition, len(schema.Fields))
	for _, f := range schema.Fields {
		byID[f.FieldID] = f
	}

	reordered := make([]gemcert.FieldDefinition, 0, len(schema.Fields))
	seen := make(map[string]bool, len(fieldIDs))
	for _, fid := range fieldIDs {
		f, ok := byID[fid]
		if !ok || seen[fid] {
			continue
		}
		seen[fid] = true
		reordered = append(reordered, f)
	}
	for _, f := range schema.Fields {
		if !seen[f.FieldID] {
			reordered = append(reordered, f)
		}
	}
	for i := range reordered {
		reordered[i].DisplayOrder = i
	}

	schema.Fields = reordered
	schema.UpdatedAt = r.nowFunc().UTC()
	if err := r.writeFields(ctx, schema); err != nil {
		return nil, err
	}
	return schema, nil
}

func (r *SchemaRegistry) writeFields(ctx context.Context, schema *gemcert.CategorySchema) error {
	fieldsJSON, err := json.Marshal(schema.Fields)
	if err != nil {
		return fmt.Errorf("marshal schema fields: %w", err)
	}
	query := fmt.Sprintf(
		`UPDATE %s SET fields = $2, updated_at = $3 WHERE uuid = $1 AND is_deleted = FALSE`,
		sanitizeIdentifier(r.table),
	)
	tag, err := r.pool.Exec(ctx, query, schema.UUID, fieldsJSON, schema.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update schema fields: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return gemcert.NewSchemaNotFoundError(schema.UUID.String())
	}
	return nil
}

// Duplicate copies a schema under a " (Copy)" name with fresh ids. The copy
// starts inactive so it never competes with the source for issuance.
func (r *SchemaRegistry) Duplicate(ctx context.Context, who gemcert.Identity, id uuid.UUID) (*gemcert.CategorySchema, error) {
	source, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := r.nowFunc().UTC()
	copied := *source
	copied.UUID = uuid.New()
	copied.Name = source.Name + " (Copy)"
	copied.IsActive = false
	copied.CreatedBy = who
	copied.CreatedAt = now
	copied.UpdatedAt = now
	copied.Fields = make([]gemcert.FieldDefinition, len(source.Fields))
	for i, f := range source.Fields {
		f.FieldID = uuid.NewString()
		copied.Fields[i] = f
	}

	if err := r.insert(ctx, &copied); err != nil {
		return nil, err
	}
	return &copied, nil
}

func (r *SchemaRegistry) ActiveForGroup(ctx context.Context, group string) (*gemcert.CategorySchema, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE group_name = $1 AND is_active = TRUE AND is_deleted = FALSE
			ORDER BY updated_at DESC LIMIT 1`,
		schemaColumns, sanitizeIdentifier(r.table),
	)
	schema, err := scanSchema(r.pool.QueryRow(ctx, query, group))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get active schema: %w", err)
	}
	sort.SliceStable(schema.Fields, func(i, j int) bool {
		return schema.Fields[i].DisplayOrder < schema.Fields[j].DisplayOrder
	})
	return schema, nil
}

func (r *SchemaRegistry) ListAvailable(ctx context.Context, group string) ([]gemcert.SchemaSummary, error) {
	query := fmt.Sprintf(
		`SELECT uuid, name, group_name, is_active FROM %s
			WHERE group_name = $1 AND is_deleted = FALSE ORDER BY created_at DESC`,
		sanitizeIdentifier(r.table),
	)
	rows, err := r.pool.Query(ctx, query, group)
	if err != nil {
		return nil, fmt.Errorf("list available schemas: %w", err)
	}
	defer rows.Close()

	summaries := []gemcert.SchemaSummary{}
	for rows.Next() {
		var s gemcert.SchemaSummary
		if err := rows.Scan(&s.UUID, &s.Name, &s.Group, &s.IsActive); err != nil {
			return nil, fmt.Errorf("scan schema summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schema summaries: %w", err)
	}
	return summaries, nil
}

package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	gemcert "github.com/powerbrainlabs/diamond-erp-back-end"
)

type certPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// CertificateRepo is the row-level store for issued certificates. Field
// values are a JSONB document; object references are stored as
// "bucket/key" strings.
type CertificateRepo struct {
	pool    certPool
	table   string
	query   gemcert.QueryConfig
	nowFunc func() time.Time
}

func NewCertificateRepo(pool certPool, tables gemcert.TableNames, query gemcert.QueryConfig) *CertificateRepo {
	return &CertificateRepo{
		pool:    pool,
		table:   tables.Certifications,
		query:   normalizePaging(query),
		nowFunc: time.Now,
	}
}

func (r *CertificateRepo) withClock(now func() time.Time) {
	if now == nil {
		return
	}
	r.nowFunc = now
}

const certColumns = "uuid, certificate_number, cert_type, client_id, category_id, fields, photo, brand_logo, rear_brand_logo, is_rejected, created_by, created_at, updated_at"

func refToText(ref *gemcert.ObjectRef) any {
	if ref == nil || ref.IsZero() {
		return nil
	}
	return ref.String()
}

func textToRef(s *string) *gemcert.ObjectRef {
	if s == nil {
		return nil
	}
	ref, ok := gemcert.ParseObjectRef(*s)
	if !ok {
		return nil
	}
	return &ref
}

func scanCertificate(row pgx.Row) (*gemcert.Certificate, error) {
	var (
		c           gemcert.Certificate
		fieldsJSON  []byte
		createdJSON []byte
		photo       *string
		brandLogo   *string
		rearLogo    *string
	)
	err := row.Scan(&c.UUID, &c.CertificateNumber, &c.Type, &c.ClientID, &c.CategoryID,
		&fieldsJSON, &photo, &brandLogo, &rearLogo, &c.IsRejected,
		&createdJSON, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(fieldsJSON) > 0 {
		if err := json.Unmarshal(fieldsJSON, &c.Fields); err != nil {
			return nil, fmt.Errorf("unmarshal certificate fields: %w", err)
		}
	}
	if len(createdJSON) > 0 {
		if err := json.Unmarshal(createdJSON, &c.CreatedBy); err != nil {
			return nil, fmt.Errorf("unmarshal created_by: %w", err)
		}
	}
	c.Photo = textToRef(photo)
	c.BrandLogo = textToRef(brandLogo)
	c.RearBrandLogo = textToRef(rearLogo)
	return &c, nil
}

// Insert writes all certificates in one transaction. Either every record
// lands or none do; a duplicate certificate number surfaces as a unique
// violation the caller can classify with isUniqueViolation.
func (r *CertificateRepo) Insert(ctx context.Context, certs ...*gemcert.Certificate) error {
	if len(certs) == 0 {
		return nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // no-op if committed

	query := fmt.Sprintf(
		`INSERT INTO %s (uuid, certificate_number, cert_type, client_id, category_id, fields, photo, brand_logo, rear_brand_logo, is_rejected, is_deleted, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, FALSE, $11, $12, $13)`,
		sanitizeIdentifier(r.table),
	)

	now := r.nowFunc().UTC()
	for _, c := range certs {
		c.CreatedAt = now
		c.UpdatedAt = now

		fieldsJSON, err := json.Marshal(c.Fields)
		if err != nil {
			return fmt.Errorf("marshal certificate fields: %w", err)
		}
		createdJSON, err := json.Marshal(c.CreatedBy)
		if err != nil {
			return fmt.Errorf("marshal created_by: %w", err)
		}

		_, err = tx.Exec(ctx, query, c.UUID, c.CertificateNumber, c.Type, c.ClientID, c.CategoryID,
			fieldsJSON, refToText(c.Photo), refToText(c.BrandLogo), refToText(c.RearBrandLogo),
			c.IsRejected, createdJSON, c.CreatedAt, c.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert certificate %s: %w", c.CertificateNumber, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *CertificateRepo) GetByID(ctx context.Context, id uuid.UUID) (*gemcert.Certificate, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE uuid = $1 AND is_deleted = FALSE`,
		certColumns, sanitizeIdentifier(r.table),
	)
	cert, err := scanCertificate(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, gemcert.NewCertificateNotFoundError(id.String())
		}
		return nil, fmt.Errorf("get certificate: %w", err)
	}
	return cert, nil
}

func (r *CertificateRepo) List(ctx context.Context, q *gemcert.CertificateQuery) ([]*gemcert.Certificate, int64, error) {
	if q == nil {
		q = &gemcert.CertificateQuery{}
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := clampLimit(q.Limit, r.query)

	where := "is_deleted = FALSE"
	args := []any{}
	if q.Type != "" {
		args = append(args, q.Type)
		where += fmt.Sprintf(" AND cert_type = $%d", len(args))
	}
	if q.Search != "" {
		args = append(args, likePattern(q.Search))
		where += fmt.Sprintf(" AND certificate_number ILIKE $%d", len(args))
	}

	table := sanitizeIdentifier(r.table)

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, table, where)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count certificates: %w", err)
	}

	args = append(args, limit, (page-1)*limit)
	listQuery := fmt.Sprintf(
		`SELECT %s FROM %s WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		certColumns, table, where, len(args)-1, len(args),
	)
	rows, err := r.pool.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list certificates: %w", err)
	}
	defer rows.Close()

	certs := []*gemcert.Certificate{}
	for rows.Next() {
		cert, err := scanCertificate(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan certificate row: %w", err)
		}
		certs = append(certs, cert)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate certificate rows: %w", err)
	}
	return certs, total, nil
}

func (r *CertificateRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := fmt.Sprintf(
		`UPDATE %s SET is_deleted = TRUE, updated_at = $2 WHERE uuid = $1 AND is_deleted = FALSE`,
		sanitizeIdentifier(r.table),
	)
	tag, err := r.pool.Exec(ctx, query, id, r.nowFunc().UTC())
	if err != nil {
		return fmt.Errorf("delete certificate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return gemcert.NewCertificateNotFoundError(id.String())
	}
	return nil
}

func (r *CertificateRepo) CountByType(ctx context.Context) ([]gemcert.TypeStats, error) {
	query := fmt.Sprintf(
		`SELECT cert_type, COUNT(*) FROM %s WHERE is_deleted = FALSE GROUP BY cert_type ORDER BY cert_type`,
		sanitizeIdentifier(r.table),
	)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count by type: %w", err)
	}
	defer rows.Close()

	stats := []gemcert.TypeStats{}
	for rows.Next() {
		var s gemcert.TypeStats
		if err := rows.Scan(&s.Type, &s.Count); err != nil {
			return nil, fmt.Errorf("scan stats row: %w", err)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats rows: %w", err)
	}
	return stats, nil
}

// pageCount mirrors the pagination math used by the listing services.
func pageCount(total int64, limit int) int {
	return int(math.Ceil(float64(total) / float64(limit)))
}

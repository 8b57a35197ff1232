package internal

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	gemcert "github.com/powerbrainlabs/diamond-erp-back-end"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// normalizePaging fills zero or inconsistent paging settings with the stock
// limits so a zero-value QueryConfig behaves like DefaultConfig().Query.
func normalizePaging(q gemcert.QueryConfig) gemcert.QueryConfig {
	if q.DefaultPageSize <= 0 {
		q.DefaultPageSize = defaultPageSize
	}
	if q.MaxPageSize < q.DefaultPageSize {
		q.MaxPageSize = maxPageSize
		if q.MaxPageSize < q.DefaultPageSize {
			q.MaxPageSize = q.DefaultPageSize
		}
	}
	return q
}

// clampLimit resolves a requested page limit against the paging settings.
func clampLimit(limit int, q gemcert.QueryConfig) int {
	if limit <= 0 {
		return q.DefaultPageSize
	}
	if limit > q.MaxPageSize {
		return q.MaxPageSize
	}
	return limit
}

func sanitizeIdentifier(name string) string {
	if name == "" {
		return ""
	}
	parts := strings.Split(name, ".")
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.Trim(part, " \"")
		if trimmed == "" {
			continue
		}
		clean = append(clean, trimmed)
	}
	if len(clean) == 0 {
		clean = []string{name}
	}
	return pgx.Identifier(clean).Sanitize()
}

// likePattern escapes LIKE metacharacters and wraps the term for a
// substring match.
func likePattern(term string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
	return "%" + escaped + "%"
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

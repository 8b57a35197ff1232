package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	gemcert "github.com/powerbrainlabs/diamond-erp-back-end"
)

// NumberAllocator derives certificate numbers of the form
// <prefix><YYMMDD><zero-padded sequence>, one counter row per UTC date.
// Uniqueness comes from the counter store's atomic increment; a crashed
// request leaves a gap, never a duplicate.
type NumberAllocator struct {
	counters gemcert.CounterStore
	prefix   string
	width    int
	nowFunc  func() time.Time
}

func NewNumberAllocator(counters gemcert.CounterStore, cfg gemcert.NumberingConfig) *NumberAllocator {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "G"
	}
	width := cfg.SequenceWidth
	if width < 4 || width > 5 {
		width = 5
	}
	return &NumberAllocator{
		counters: counters,
		prefix:   prefix,
		width:    width,
		nowFunc:  time.Now,
	}
}

func (a *NumberAllocator) withClock(now func() time.Time) {
	if now == nil {
		return
	}
	a.nowFunc = now
}

// Next allocates the next certificate number for today (UTC).
func (a *NumberAllocator) Next(ctx context.Context) (string, error) {
	dateKey := a.nowFunc().UTC().Format("060102")
	seq, err := a.counters.IncrementAndGet(ctx, a.prefix+dateKey)
	if err != nil {
		return "", fmt.Errorf("increment counter for %s: %w", dateKey, err)
	}

	limit := int64(1)
	for i := 0; i < a.width; i++ {
		limit *= 10
	}
	if seq >= limit {
		return "", gemcert.NewAllocationExhaustedError(dateKey)
	}

	return fmt.Sprintf("%s%s%0*d", a.prefix, dateKey, a.width, seq), nil
}

type counterPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGCounterStore implements the per-key counter with a single upsert
// statement, so concurrent allocations serialize on the row without an
// explicit transaction.
type PGCounterStore struct {
	pool  counterPool
	table string
}

func NewPGCounterStore(pool counterPool, tables gemcert.TableNames) *PGCounterStore {
	return &PGCounterStore{pool: pool, table: tables.Counters}
}

func (s *PGCounterStore) IncrementAndGet(ctx context.Context, key string) (int64, error) {
	table := sanitizeIdentifier(s.table)
	query := fmt.Sprintf(
		`INSERT INTO %s (counter_key, seq) VALUES ($1, 1)
			ON CONFLICT (counter_key) DO UPDATE SET seq = %s.seq + 1
			RETURNING seq`,
		table, table,
	)
	var seq int64
	if err := s.pool.QueryRow(ctx, query, key).Scan(&seq); err != nil {
		return 0, fmt.Errorf("increment counter: %w", err)
	}
	return seq, nil
}

package internal

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gemcert "github.com/powerbrainlabs/diamond-erp-back-end"
)

// memCounterStore is a process-local CounterStore for allocator tests.
type memCounterStore struct {
	mu   sync.Mutex
	seqs map[string]int64
}

func newMemCounterStore() *memCounterStore {
	return &memCounterStore{seqs: map[string]int64{}}
}

func (s *memCounterStore) IncrementAndGet(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seqs[key]++
	return s.seqs[key], nil
}

func TestNumberAllocatorFormat(t *testing.T) {
	counters := newMemCounterStore()
	allocator := NewNumberAllocator(counters, gemcert.NumberingConfig{Prefix: "G", SequenceWidth: 5})
	allocator.withClock(func() time.Time {
		return time.Date(2025, 8, 17, 10, 30, 0, 0, time.UTC)
	})

	number, err := allocator.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "G25081700001", number)

	number, err = allocator.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "G25081700002", number)
}

func TestNumberAllocatorWidthFour(t *testing.T) {
	counters := newMemCounterStore()
	allocator := NewNumberAllocator(counters, gemcert.NumberingConfig{Prefix: "G", SequenceWidth: 4})
	allocator.withClock(func() time.Time {
		return time.Date(2025, 8, 17, 0, 0, 0, 0, time.UTC)
	})

	number, err := allocator.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "G2508170001", number)
}

func TestNumberAllocatorDefaults(t *testing.T) {
	counters := newMemCounterStore()
	allocator := NewNumberAllocator(counters, gemcert.NumberingConfig{SequenceWidth: 9})
	allocator.withClock(func() time.Time {
		return time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	})

	number, err := allocator.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "G25010200001", number)
}

func TestNumberAllocatorDateRollsCounter(t *testing.T) {
	counters := newMemCounterStore()
	allocator := NewNumberAllocator(counters, gemcert.NumberingConfig{Prefix: "G", SequenceWidth: 5})

	day := time.Date(2025, 8, 17, 23, 59, 0, 0, time.UTC)
	allocator.withClock(func() time.Time { return day })

	number, err := allocator.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "G25081700001", number)

	day = day.Add(2 * time.Minute)
	number, err = allocator.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "G25081800001", number, "new date starts a fresh sequence")
}

func TestNumberAllocatorExhausted(t *testing.T) {
	counters := newMemCounterStore()
	counters.seqs["G250817"] = 9999

	allocator := NewNumberAllocator(counters, gemcert.NumberingConfig{Prefix: "G", SequenceWidth: 4})
	allocator.withClock(func() time.Time {
		return time.Date(2025, 8, 17, 0, 0, 0, 0, time.UTC)
	})

	_, err := allocator.Next(context.Background())
	require.Error(t, err)
	assert.True(t, gemcert.IsAllocationExhausted(err))
}

func TestNumberAllocatorConcurrentDistinct(t *testing.T) {
	counters := newMemCounterStore()
	allocator := NewNumberAllocator(counters, gemcert.NumberingConfig{Prefix: "G", SequenceWidth: 5})
	allocator.withClock(func() time.Time {
		return time.Date(2025, 8, 17, 12, 0, 0, 0, time.UTC)
	})

	const workers = 50
	results := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			number, err := allocator.Next(context.Background())
			assert.NoError(t, err)
			results <- number
		}()
	}
	wg.Wait()
	close(results)

	seen := map[string]bool{}
	for number := range results {
		assert.False(t, seen[number], "duplicate number %s", number)
		seen[number] = true
	}
	assert.Len(t, seen, workers)
}

func TestPGCounterStoreIncrement(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	mock.MatchExpectationsInOrder(true)

	store := NewPGCounterStore(mock, gemcert.DefaultTableNames())

	mock.ExpectQuery(`INSERT INTO "certificate_counters"`).
		WithArgs("G250817").
		WillReturnRows(pgxmock.NewRows([]string{"seq"}).AddRow(int64(7)))

	seq, err := store.IncrementAndGet(context.Background(), "G250817")
	require.NoError(t, err)
	assert.Equal(t, int64(7), seq)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGCounterStoreError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPGCounterStore(mock, gemcert.DefaultTableNames())

	mock.ExpectQuery(`INSERT INTO "certificate_counters"`).
		WithArgs("G250817").
		WillReturnError(fmt.Errorf("connection refused"))

	_, err = store.IncrementAndGet(context.Background(), "G250817")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "increment counter")

	require.NoError(t, mock.ExpectationsWereMet())
}

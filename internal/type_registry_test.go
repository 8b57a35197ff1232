package internal

import (
	"context"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gemcert "github.com/powerbrainlabs/diamond-erp-back-end"
)

// The certificate_types table declares created_at/updated_at NOT NULL with
// no default, so Ensure must supply both or the first seeded type dies with
// a not-null violation on a freshly initialized database.
func TestTypeRegistryEnsureSuppliesTimestamps(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	registry := NewTypeRegistry(mock, gemcert.DefaultTableNames())
	registry.withClock(testClock)

	ct := &gemcert.CertificateType{
		UUID:         uuid.New(),
		Name:         "Single Diamond",
		Slug:         "single_diamond",
		DisplayOrder: 0,
		IsActive:     true,
	}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "certificate_types" (uuid, name, slug, display_order, is_active, is_deleted, created_at, updated_at)`)).
		WithArgs(ct.UUID, "Single Diamond", "single_diamond", 0, true, testClock(), testClock()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, registry.Ensure(context.Background(), ct))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTypeRegistryEnsureIdempotent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	registry := NewTypeRegistry(mock, gemcert.DefaultTableNames())
	registry.withClock(testClock)

	ct := &gemcert.CertificateType{UUID: uuid.New(), Name: "Navaratna", Slug: "navaratna", DisplayOrder: 5, IsActive: true}

	// Slug already present: ON CONFLICT DO NOTHING affects zero rows, which
	// is still a success for seeding.
	mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT (slug) DO NOTHING`)).
		WithArgs(ct.UUID, "Navaratna", "navaratna", 5, true, testClock(), testClock()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	require.NoError(t, registry.Ensure(context.Background(), ct))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTypeRegistryListTypes(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	registry := NewTypeRegistry(mock, gemcert.DefaultTableNames())

	rows := pgxmock.NewRows([]string{"uuid", "name", "slug", "display_order", "is_active"}).
		AddRow(uuid.New(), "Single Diamond", "single_diamond", 0, true).
		AddRow(uuid.New(), "Navaratna", "navaratna", 5, true)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT uuid, name, slug, display_order, is_active FROM "certificate_types"`)).
		WillReturnRows(rows)

	types, err := registry.ListTypes(context.Background())
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, "single_diamond", types[0].Slug)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTypeRegistryTypeExistsEmptySlug(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	registry := NewTypeRegistry(mock, gemcert.DefaultTableNames())

	exists, err := registry.TypeExists(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

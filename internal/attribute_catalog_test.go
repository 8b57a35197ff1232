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

type stubTypes struct {
	slugs map[string]bool
}

func (s *stubTypes) TypeExists(_ context.Context, slug string) (bool, error) {
	return s.slugs[slug], nil
}

func TestAttributeCatalogCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	mock.MatchExpectationsInOrder(true)

	catalog := NewAttributeCatalog(mock, gemcert.DefaultTableNames(), &stubTypes{slugs: map[string]bool{"gemstone": true}})
	catalog.withClock(testClock)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM "attributes"`)).
		WithArgs("gemstone", "gemstone", "Ruby", uuid.Nil).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	hardness := 9.0
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "attributes"`)).
		WithArgs(pgxmock.AnyArg(), "gemstone", "gemstone", "Ruby",
			&hardness, (*float64)(nil), (*float64)(nil),
			pgxmock.AnyArg(), testClock(), testClock()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	attr, err := catalog.Create(context.Background(), testIdentity(), "gemstone", "gemstone",
		&gemcert.AttributeCreate{Name: "Ruby", Hardness: &hardness})
	require.NoError(t, err)

	assert.Equal(t, "Ruby", attr.Name)
	assert.Equal(t, "gemstone", attr.Group)
	require.NotNil(t, attr.Hardness)
	assert.Equal(t, 9.0, *attr.Hardness)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttributeCatalogCreateInvalidGroup(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	catalog := NewAttributeCatalog(mock, gemcert.DefaultTableNames(), &stubTypes{slugs: map[string]bool{}})

	_, err = catalog.Create(context.Background(), testIdentity(), "meteorite", "color",
		&gemcert.AttributeCreate{Name: "Blue"})
	require.Error(t, err)

	certErr, ok := gemcert.AsCertError(err)
	require.True(t, ok)
	assert.Equal(t, gemcert.ErrCodeInvalidGroup, certErr.Code)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttributeCatalogCreateDuplicateName(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	catalog := NewAttributeCatalog(mock, gemcert.DefaultTableNames(), &stubTypes{slugs: map[string]bool{"diamond": true}})

	// Case-insensitive: "ruby" collides with a stored "Ruby".
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM "attributes"`)).
		WithArgs("diamond", "color", "ruby", uuid.Nil).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	_, err = catalog.Create(context.Background(), testIdentity(), "diamond", "color",
		&gemcert.AttributeCreate{Name: "ruby"})
	require.Error(t, err)
	assert.True(t, gemcert.IsConflict(err))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttributeCatalogList(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	catalog := NewAttributeCatalog(mock, gemcert.DefaultTableNames(), &stubTypes{})

	createdJSON := []byte(`{"user_id":"u-1","name":"Tester","email":""}`)
	rows := pgxmock.NewRows([]string{
		"uuid", "group_name", "attr_type", "name", "hardness", "ri", "sg",
		"created_by", "created_at", "updated_at",
	}).
		AddRow(uuid.New(), "gemstone", "gemstone", "Ruby", (*float64)(nil), (*float64)(nil), (*float64)(nil),
			createdJSON, testClock(), testClock()).
		AddRow(uuid.New(), "gemstone", "gemstone", "Sapphire", (*float64)(nil), (*float64)(nil), (*float64)(nil),
			createdJSON, testClock(), testClock())

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "attributes" WHERE is_deleted = FALSE AND group_name = $1 AND attr_type = $2 AND name ILIKE $3`)).
		WithArgs("gemstone", "gemstone", "%a%").
		WillReturnRows(rows)

	attrs, err := catalog.List(context.Background(), "gemstone", "gemstone", "a")
	require.NoError(t, err)

	require.Len(t, attrs, 2)
	assert.Equal(t, "Ruby", attrs[0].Name)
	assert.Equal(t, "Tester", attrs[0].CreatedBy.Name)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttributeCatalogUpdateRename(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	mock.MatchExpectationsInOrder(true)

	catalog := NewAttributeCatalog(mock, gemcert.DefaultTableNames(), &stubTypes{})
	catalog.withClock(testClock)

	id := uuid.New()
	createdJSON := []byte(`{"user_id":"u-1","name":"Tester","email":""}`)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM "attributes" WHERE uuid = $1`)).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{
			"uuid", "group_name", "attr_type", "name", "hardness", "ri", "sg",
			"created_by", "created_at", "updated_at",
		}).AddRow(id, "gemstone", "gemstone", "Ruby", (*float64)(nil), (*float64)(nil), (*float64)(nil),
			createdJSON, testClock(), testClock()))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM "attributes"`)).
		WithArgs("gemstone", "gemstone", "Star Ruby", id).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	ri := 1.77
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "attributes" SET name = $2`)).
		WithArgs(id, "Star Ruby", (*float64)(nil), &ri, (*float64)(nil), testClock()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	name := "Star Ruby"
	attr, err := catalog.Update(context.Background(), id, &gemcert.AttributeUpdate{Name: &name, RI: &ri})
	require.NoError(t, err)

	assert.Equal(t, "Star Ruby", attr.Name)
	require.NotNil(t, attr.RI)
	assert.Equal(t, 1.77, *attr.RI)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttributeCatalogDeleteMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	catalog := NewAttributeCatalog(mock, gemcert.DefaultTableNames(), &stubTypes{})
	catalog.withClock(testClock)

	id := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "attributes" SET is_deleted = TRUE`)).
		WithArgs(id, testClock()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = catalog.Delete(context.Background(), id)
	require.Error(t, err)
	assert.True(t, gemcert.IsNotFound(err))

	require.NoError(t, mock.ExpectationsWereMet())
}

package internal

import (
	"context"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gemcert "github.com/powerbrainlabs/diamond-erp-back-end"
)

func testCertificate(number string) *gemcert.Certificate {
	return &gemcert.Certificate{
		UUID:              uuid.New(),
		CertificateNumber: number,
		Type:              "single_diamond",
		ClientID:          uuid.New(),
		Fields: gemcert.FieldValues{
			"shape":  gemcert.StringValue("Round"),
			"weight": gemcert.StringValue("1.02ct"),
		},
		Photo:     &gemcert.ObjectRef{Bucket: "certificates", Key: "photos/a.jpg"},
		CreatedBy: testIdentity(),
	}
}

// anyInsertArgs matches the 13 insert parameters without constraining their
// values; pgxmock v4 treats a missing WithArgs as "expect zero arguments".
func anyInsertArgs() []interface{} {
	args := make([]interface{}, 13)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestCertificateRepoInsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	mock.MatchExpectationsInOrder(true)

	repo := NewCertificateRepo(mock, gemcert.DefaultTableNames(), gemcert.QueryConfig{})
	repo.withClock(testClock)

	cert := testCertificate("G25081700001")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "certifications"`)).
		WithArgs(cert.UUID, "G25081700001", "single_diamond", cert.ClientID, (*uuid.UUID)(nil),
			pgxmock.AnyArg(), "certificates/photos/a.jpg", nil, nil,
			false, pgxmock.AnyArg(), testClock(), testClock()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err = repo.Insert(context.Background(), cert)
	require.NoError(t, err)
	assert.Equal(t, testClock(), cert.CreatedAt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCertificateRepoInsertBatchSharesTransaction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	mock.MatchExpectationsInOrder(true)

	repo := NewCertificateRepo(mock, gemcert.DefaultTableNames(), gemcert.QueryConfig{})
	repo.withClock(testClock)

	first := testCertificate("G25081700001")
	second := testCertificate("G25081700002")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "certifications"`)).
		WithArgs(anyInsertArgs()...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "certifications"`)).
		WithArgs(anyInsertArgs()...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err = repo.Insert(context.Background(), first, second)
	require.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCertificateRepoInsertSurfacesUniqueViolation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	mock.MatchExpectationsInOrder(true)

	repo := NewCertificateRepo(mock, gemcert.DefaultTableNames(), gemcert.QueryConfig{})
	repo.withClock(testClock)

	cert := testCertificate("G25081700001")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "certifications"`)).
		WithArgs(anyInsertArgs()...).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "ux_certifications_number"})
	mock.ExpectRollback()

	err = repo.Insert(context.Background(), cert)
	require.Error(t, err)
	assert.True(t, isUniqueViolation(err), "caller classifies the duplicate for retry")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCertificateRepoGetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCertificateRepo(mock, gemcert.DefaultTableNames(), gemcert.QueryConfig{})

	id := uuid.New()
	clientID := uuid.New()
	photo := "certificates/photos/a.jpg"
	fieldsJSON := []byte(`{"shape":"Round","weight":"1.02ct"}`)
	createdJSON := []byte(`{"user_id":"u-1","name":"Tester","email":""}`)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "certifications" WHERE uuid = $1`)).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{
			"uuid", "certificate_number", "cert_type", "client_id", "category_id",
			"fields", "photo", "brand_logo", "rear_brand_logo", "is_rejected",
			"created_by", "created_at", "updated_at",
		}).AddRow(id, "G25081700001", "single_diamond", clientID, (*uuid.UUID)(nil),
			fieldsJSON, &photo, (*string)(nil), (*string)(nil), false,
			createdJSON, testClock(), testClock()))

	cert, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, "G25081700001", cert.CertificateNumber)
	assert.Equal(t, "Round", cert.Fields["shape"].String())
	require.NotNil(t, cert.Photo)
	assert.Equal(t, "certificates", cert.Photo.Bucket)
	assert.Equal(t, "photos/a.jpg", cert.Photo.Key)
	assert.Nil(t, cert.BrandLogo)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCertificateRepoGetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCertificateRepo(mock, gemcert.DefaultTableNames(), gemcert.QueryConfig{})

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM "certifications" WHERE uuid = $1`)).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.GetByID(context.Background(), id)
	require.Error(t, err)
	assert.True(t, gemcert.IsNotFound(err))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCertificateRepoList(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	mock.MatchExpectationsInOrder(true)

	repo := NewCertificateRepo(mock, gemcert.DefaultTableNames(), gemcert.QueryConfig{})

	createdJSON := []byte(`{"user_id":"u-1","name":"Tester","email":""}`)
	rows := pgxmock.NewRows([]string{
		"uuid", "certificate_number", "cert_type", "client_id", "category_id",
		"fields", "photo", "brand_logo", "rear_brand_logo", "is_rejected",
		"created_by", "created_at", "updated_at",
	}).AddRow(uuid.New(), "G25081700002", "navaratna", uuid.New(), (*uuid.UUID)(nil),
		[]byte(`{}`), (*string)(nil), (*string)(nil), (*string)(nil), false,
		createdJSON, testClock(), testClock())

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM "certifications"`)).
		WithArgs("navaratna", "%G2508%").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY created_at DESC LIMIT $3 OFFSET $4`)).
		WithArgs("navaratna", "%G2508%", 20, 0).
		WillReturnRows(rows)

	certs, total, err := repo.List(context.Background(), &gemcert.CertificateQuery{
		Type:   "navaratna",
		Search: "G2508",
		Page:   1,
		Limit:  20,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), total)
	require.Len(t, certs, 1)
	assert.Equal(t, "G25081700002", certs[0].CertificateNumber)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCertificateRepoListHonorsConfiguredPaging(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	mock.MatchExpectationsInOrder(true)

	repo := NewCertificateRepo(mock, gemcert.DefaultTableNames(),
		gemcert.QueryConfig{DefaultPageSize: 5, MaxPageSize: 25})

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM "certifications"`)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery(regexp.QuoteMeta(`LIMIT $1 OFFSET $2`)).
		WithArgs(5, 0).
		WillReturnRows(pgxmock.NewRows([]string{
			"uuid", "certificate_number", "cert_type", "client_id", "category_id",
			"fields", "photo", "brand_logo", "rear_brand_logo", "is_rejected",
			"created_by", "created_at", "updated_at",
		}))

	_, _, err = repo.List(context.Background(), &gemcert.CertificateQuery{})
	require.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCertificateRepoSoftDeleteMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCertificateRepo(mock, gemcert.DefaultTableNames(), gemcert.QueryConfig{})
	repo.withClock(testClock)

	id := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "certifications" SET is_deleted = TRUE`)).
		WithArgs(id, testClock()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.SoftDelete(context.Background(), id)
	require.Error(t, err)
	assert.True(t, gemcert.IsNotFound(err))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCertificateRepoCountByType(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCertificateRepo(mock, gemcert.DefaultTableNames(), gemcert.QueryConfig{})

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT cert_type, COUNT(*) FROM "certifications"`)).
		WillReturnRows(pgxmock.NewRows([]string{"cert_type", "count"}).
			AddRow("loose_stone", int64(3)).
			AddRow("single_diamond", int64(12)))

	stats, err := repo.CountByType(context.Background())
	require.NoError(t, err)

	require.Len(t, stats, 2)
	assert.Equal(t, "loose_stone", stats[0].Type)
	assert.Equal(t, int64(12), stats[1].Count)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPageCount(t *testing.T) {
	assert.Equal(t, 0, pageCount(0, 50))
	assert.Equal(t, 1, pageCount(1, 50))
	assert.Equal(t, 1, pageCount(50, 50))
	assert.Equal(t, 2, pageCount(51, 50))
}

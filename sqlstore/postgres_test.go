package sqlstore_test

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jacentio/dimstore/catalog"
	"github.com/jacentio/dimstore/dimension"
	"github.com/jacentio/dimstore/internal/metrics"
	"github.com/jacentio/dimstore/sqlstore"
)

const (
	insertCity = `INSERT INTO "dim_cities" ("city_name", "oblast_id") VALUES ($1, $2) RETURNING "id"`
	updateCity = `UPDATE "dim_cities" SET "city_name" = $1, "oblast_id" = $2 WHERE "id" = $3`
	probeCity  = `SELECT 1 FROM "dim_cities" WHERE "city_name" = $1 AND "oblast_id" = $2 AND "id" <> $3 LIMIT 1`
	allocate   = `INSERT INTO "counters" ("name", "value") VALUES ($1, 1) ON CONFLICT ("name") DO UPDATE SET "value" = "counters"."value" + 1 RETURNING "value"`
)

func newMock(t *testing.T, opts ...sqlstore.Option) (*catalog.Repositories, *sqlstore.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	s := sqlstore.New(db, sqlstore.Postgres, opts...)
	return catalog.NewRepositories(s), s, mock
}

func q(sql string) string { return regexp.QuoteMeta(sql) }

func TestPostgres_AddReturnsGeneratedKey(t *testing.T) {
	repos, _, mock := newMock(t)
	mock.ExpectQuery(q(insertCity)).
		WithArgs("Omsk", int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(17)))

	city, err := repos.Cities.Add(context.Background(), catalog.City{Name: "Omsk", OblastID: 2})
	require.NoError(t, err)
	assert.Equal(t, catalog.City{ID: 17, Name: "Omsk", OblastID: 2}, city)
}

func TestPostgres_NamedUniqueViolation(t *testing.T) {
	reg := prometheus.NewRegistry()
	repos, _, mock := newMock(t, sqlstore.WithMetrics(metrics.New(reg)))
	mock.ExpectQuery(q(insertCity)).
		WithArgs("Omsk", int64(2)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uq_city_name_oblast"})

	_, err := repos.Cities.Add(context.Background(), catalog.City{Name: "Omsk", OblastID: 2})

	var conflict *dimension.ConflictError
	require.True(t, errors.As(err, &conflict), "got %v", err)
	assert.Equal(t, "uq_city_name_oblast", conflict.Constraint)
	assert.Equal(t, []string{"city_name", "oblast_id"}, conflict.Fields)
	assert.Equal(t, dimension.String("Omsk"), conflict.Values["city_name"])
	assert.Equal(t, dimension.Int(2), conflict.Values["oblast_id"])

	expected := `
# HELP dimstore_conflicts_total Total number of writes rejected by a constraint.
# TYPE dimstore_conflicts_total counter
dimstore_conflicts_total{backend="postgres",constraint="uq_city_name_oblast",entity="city"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "dimstore_conflicts_total"))
}

func TestPostgres_PrimaryKeyViolationIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	repos, _, mock := newMock(t, sqlstore.WithLogger(zap.New(core)))
	mock.ExpectQuery(q(insertCity)).
		WithArgs("Omsk", int64(2)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "dim_cities_pkey"})

	_, err := repos.Cities.Add(context.Background(), catalog.City{Name: "Omsk", OblastID: 2})

	assert.ErrorIs(t, err, dimension.ErrConflict)
	assert.Equal(t, 1, logs.FilterMessage("surrogate key collision").Len())
}

func TestPostgres_ViolatedConstraintIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	repos, _, mock := newMock(t, sqlstore.WithLogger(zap.New(core)))
	mock.ExpectQuery(q(insertCity)).
		WithArgs("Omsk", int64(999)).
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "fk_city_oblast"})

	_, err := repos.Cities.Add(context.Background(), catalog.City{Name: "Omsk", OblastID: 999})
	assert.ErrorIs(t, err, dimension.ErrNotFound)

	violated := logs.FilterMessage("constraint violated").All()
	require.Len(t, violated, 1)
	assert.Equal(t, "fk_city_oblast", violated[0].ContextMap()["constraint"])
	assert.Equal(t, "insert", violated[0].ContextMap()["operation"])
}

func TestPostgres_UnnamedUniqueViolationIsProbed(t *testing.T) {
	repos, _, mock := newMock(t)
	mock.ExpectQuery(q(insertCity)).
		WithArgs("Omsk", int64(2)).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectQuery(q(probeCity)).
		WithArgs("Omsk", int64(2), int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	_, err := repos.Cities.Add(context.Background(), catalog.City{Name: "Omsk", OblastID: 2})

	var conflict *dimension.ConflictError
	require.True(t, errors.As(err, &conflict), "got %v", err)
	assert.Equal(t, "uq_city_name_oblast", conflict.Constraint)
}

func TestPostgres_VanishedConflictIsTransient(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	repos, _, mock := newMock(t, sqlstore.WithLogger(zap.New(core)))
	mock.ExpectQuery(q(insertCity)).
		WithArgs("Omsk", int64(2)).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectQuery(q(probeCity)).
		WithArgs("Omsk", int64(2), int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	_, err := repos.Cities.Add(context.Background(), catalog.City{Name: "Omsk", OblastID: 2})

	assert.ErrorIs(t, err, dimension.ErrTransient)
	assert.Equal(t, 1, logs.FilterMessage("constraint violation could not be attributed").Len())
}

func TestPostgres_FailedProbeIsTransient(t *testing.T) {
	repos, _, mock := newMock(t)
	mock.ExpectQuery(q(insertCity)).
		WithArgs("Omsk", int64(2)).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectQuery(q(probeCity)).
		WillReturnError(&pgconn.PgError{Code: "57P01"})

	_, err := repos.Cities.Add(context.Background(), catalog.City{Name: "Omsk", OblastID: 2})
	assert.ErrorIs(t, err, dimension.ErrTransient)
}

func TestPostgres_ForeignKeyViolation(t *testing.T) {
	repos, _, mock := newMock(t)
	mock.ExpectQuery(q(insertCity)).
		WithArgs("Omsk", int64(999)).
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "fk_city_oblast"})

	_, err := repos.Cities.Add(context.Background(), catalog.City{Name: "Omsk", OblastID: 999})

	var nf *dimension.NotFoundError
	require.True(t, errors.As(err, &nf), "got %v", err)
	assert.Equal(t, dimension.NotFoundError{Entity: "oblast", Key: 999}, *nf)
}

func TestPostgres_DeleteReferenced(t *testing.T) {
	repos, _, mock := newMock(t)
	mock.ExpectExec(q(`DELETE FROM "dim_oblast" WHERE "id" = $1`)).
		WithArgs(int64(2)).
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "fk_city_oblast"})

	err := repos.Oblasts.Delete(context.Background(), 2)

	var conflict *dimension.ConflictError
	require.True(t, errors.As(err, &conflict), "got %v", err)
	assert.Equal(t, &dimension.ConflictError{
		Entity:     "oblast",
		Constraint: dimension.ConstraintReferenced,
		Fields:     []string{dimension.IDField},
		Values:     map[string]dimension.Value{dimension.IDField: dimension.Int(2)},
	}, conflict)
}

func TestPostgres_UpdateMissing(t *testing.T) {
	repos, _, mock := newMock(t)
	mock.ExpectExec(q(updateCity)).
		WithArgs("Omsk", int64(2), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repos.Cities.Update(context.Background(), catalog.City{ID: 5, Name: "Omsk", OblastID: 2})

	var nf *dimension.NotFoundError
	require.True(t, errors.As(err, &nf), "got %v", err)
	assert.Equal(t, dimension.NotFoundError{Entity: "city", Key: 5}, *nf)
}

func TestPostgres_DeleteMissing(t *testing.T) {
	repos, _, mock := newMock(t)
	mock.ExpectExec(q(`DELETE FROM "dim_cities" WHERE "id" = $1`)).
		WithArgs(int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repos.Cities.Delete(context.Background(), 8), dimension.ErrNotFound)
}

func TestPostgres_TransientCodes(t *testing.T) {
	for _, code := range []string{"40001", "40P01", "08006", "53300", "57014"} {
		t.Run(code, func(t *testing.T) {
			repos, _, mock := newMock(t)
			mock.ExpectExec(q(updateCity)).
				WillReturnError(&pgconn.PgError{Code: code})

			err := repos.Cities.Update(context.Background(), catalog.City{ID: 5, Name: "Omsk", OblastID: 2})

			var te *dimension.TransientError
			require.True(t, errors.As(err, &te), "got %v", err)
			assert.Equal(t, "city", te.Entity)
			assert.Equal(t, "replace", te.Op)
		})
	}
}

func TestPostgres_OtherErrorsStayUnclassified(t *testing.T) {
	repos, _, mock := newMock(t)
	mock.ExpectQuery(q(`SELECT "id", "city_name", "oblast_id" FROM "dim_cities" WHERE "id" = $1`)).
		WithArgs(int64(3)).
		WillReturnError(&pgconn.PgError{Code: "42P01", Message: `relation "dim_cities" does not exist`})

	_, err := repos.Cities.Get(context.Background(), 3)
	require.Error(t, err)
	assert.False(t, dimension.IsClassified(err))
}

func TestPostgres_GetMissing(t *testing.T) {
	repos, _, mock := newMock(t)
	mock.ExpectQuery(q(`SELECT "id", "city_name", "oblast_id" FROM "dim_cities" WHERE "id" = $1`)).
		WithArgs(int64(999)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "city_name", "oblast_id"}))

	_, err := repos.Cities.Get(context.Background(), 999)

	var nf *dimension.NotFoundError
	require.True(t, errors.As(err, &nf), "got %v", err)
	assert.Equal(t, dimension.NotFoundError{Entity: "city", Key: 999}, *nf)
}

func TestPostgres_ListUsesByteOrder(t *testing.T) {
	repos, _, mock := newMock(t)
	mock.ExpectQuery(q(`SELECT "id", "city_name", "oblast_id" FROM "dim_cities" WHERE "oblast_id" = $1 ORDER BY "city_name" COLLATE "C", "oblast_id", "id"`)).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "city_name", "oblast_id"}).
			AddRow(int64(4), "Isilkul", int64(2)).
			AddRow(int64(1), "Omsk", int64(2)))

	cities, err := repos.Cities.List(context.Background(), dimension.Where("oblast_id", dimension.Int(2)))
	require.NoError(t, err)
	assert.Equal(t, []catalog.City{
		{ID: 4, Name: "Isilkul", OblastID: 2},
		{ID: 1, Name: "Omsk", OblastID: 2},
	}, cities)
}

func TestPostgres_AllocateNext(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, s, mock := newMock(t, sqlstore.WithMetrics(metrics.New(reg)))
	mock.ExpectQuery(q(allocate)).
		WithArgs("city_id").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(int64(1)))
	mock.ExpectQuery(q(allocate)).
		WithArgs("city_id").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(int64(2)))

	for want := int64(1); want <= 2; want++ {
		got, err := s.AllocateNext(context.Background(), "city_id")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	expected := `
# HELP dimstore_sequence_allocations_total Total number of surrogate keys issued per sequence.
# TYPE dimstore_sequence_allocations_total counter
dimstore_sequence_allocations_total{backend="postgres",sequence="city_id"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "dimstore_sequence_allocations_total"))
}

func TestPostgres_AllocationFailureIsTransient(t *testing.T) {
	_, s, mock := newMock(t)
	mock.ExpectQuery(q(allocate)).
		WithArgs("city_id").
		WillReturnError(&pgconn.PgError{Code: "42P01"})

	_, err := s.AllocateNext(context.Background(), "city_id")

	var te *dimension.TransientError
	require.True(t, errors.As(err, &te), "got %v", err)
	assert.Equal(t, "city_id", te.Entity)
	assert.Equal(t, "allocate", te.Op)
}

func TestPostgres_CounterOfUnusedSequence(t *testing.T) {
	_, s, mock := newMock(t)
	mock.ExpectQuery(q(`SELECT "value" FROM "counters" WHERE "name" = $1`)).
		WithArgs("oblast_id").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	c, err := s.Counter(context.Background(), "oblast_id")
	require.NoError(t, err)
	assert.Equal(t, dimension.SequenceCounter{Name: "oblast_id"}, c)
}

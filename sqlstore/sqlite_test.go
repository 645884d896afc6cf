package sqlstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/dimstore/catalog"
	"github.com/jacentio/dimstore/dimension"
	"github.com/jacentio/dimstore/internal/storetest"
	"github.com/jacentio/dimstore/sqlstore"
)

func newSQLite(t *testing.T) *sqlstore.Store {
	t.Helper()
	ctx := context.Background()

	db, err := sqlstore.OpenSQLite(ctx, filepath.Join(t.TempDir(), "dimstore.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, sqlstore.Migrate(ctx, db, sqlstore.SQLite, catalog.All()...))
	return sqlstore.New(db, sqlstore.SQLite)
}

func TestSQLite_Suite(t *testing.T) {
	storetest.Run(t, storetest.Harness{
		New: func(t *testing.T) (dimension.Backend, dimension.SequenceStore) {
			s := newSQLite(t)
			return s, s
		},
	})
}

func TestSQLite_MigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "dimstore.db")

	db, err := sqlstore.OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, sqlstore.Migrate(ctx, db, sqlstore.SQLite, catalog.All()...))
	require.NoError(t, sqlstore.Migrate(ctx, db, sqlstore.SQLite, catalog.All()...))

	var tables int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name LIKE 'dim_%'`).Scan(&tables))
	assert.Equal(t, len(catalog.All()), tables)
}

func TestSQLite_ForeignKeysEnforced(t *testing.T) {
	s := newSQLite(t)

	_, err := s.Insert(context.Background(), catalog.CitySchema, catalog.CityFromDomain(catalog.City{Name: "Omsk", OblastID: 42}))
	assert.ErrorIs(t, err, dimension.ErrNotFound)
}

func TestSQLite_CounterIsSharedAcrossStores(t *testing.T) {
	ctx := context.Background()
	db, err := sqlstore.OpenSQLite(ctx, filepath.Join(t.TempDir(), "dimstore.db"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, sqlstore.Migrate(ctx, db, sqlstore.SQLite))

	a := sqlstore.New(db, sqlstore.SQLite)
	b := sqlstore.New(db, sqlstore.SQLite)

	v, err := a.AllocateNext(ctx, "employer_id")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	v, err = b.AllocateNext(ctx, "employer_id")
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	c, err := a.Counter(ctx, "employer_id")
	require.NoError(t, err)
	assert.Equal(t, dimension.SequenceCounter{Name: "employer_id", Value: 2}, c)
}

func TestSQLite_DeleteReferencedParent(t *testing.T) {
	ctx := context.Background()
	repos := catalog.NewRepositories(newSQLite(t))

	district, err := repos.FederalDistricts.Add(ctx, catalog.FederalDistrict{Name: "Siberian"})
	require.NoError(t, err)
	_, err = repos.Oblasts.Add(ctx, catalog.Oblast{Name: "Omsk Oblast", DistrictID: district.ID})
	require.NoError(t, err)

	err = repos.FederalDistricts.Delete(ctx, district.ID)
	assert.Equal(t, &dimension.ConflictError{
		Entity:     "federal_district",
		Constraint: dimension.ConstraintReferenced,
		Fields:     []string{dimension.IDField},
		Values:     map[string]dimension.Value{dimension.IDField: dimension.Int(district.ID)},
	}, err)

	_, err = repos.FederalDistricts.Get(ctx, district.ID)
	assert.NoError(t, err)
}

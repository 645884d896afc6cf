//go:build e2e

package e2e

import (
	"context"
	"database/sql"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/dimstore/catalog"
	"github.com/jacentio/dimstore/dimension"
	"github.com/jacentio/dimstore/internal/storetest"
	"github.com/jacentio/dimstore/sqlstore"
)

// withSearchPath returns dsn with its search_path set to schema, in either
// URL or keyword/value form.
func withSearchPath(t *testing.T, dsn, schema string) string {
	t.Helper()
	if !strings.Contains(dsn, "://") {
		return dsn + " search_path=" + schema
	}
	u, err := url.Parse(dsn)
	require.NoError(t, err)
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()
	return u.String()
}

// openSchema creates an empty schema and returns a pool confined to it.
func openSchema(t *testing.T, admin *sql.DB, dsn string) *sql.DB {
	t.Helper()
	ctx := context.Background()
	schema := "e2e_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	_, err := admin.ExecContext(ctx, `CREATE SCHEMA "`+schema+`"`)
	require.NoError(t, err)
	t.Cleanup(func() {
		if _, err := admin.ExecContext(context.Background(), `DROP SCHEMA "`+schema+`" CASCADE`); err != nil {
			t.Logf("drop schema %s: %v", schema, err)
		}
	})

	db, err := sqlstore.OpenPostgres(ctx, withSearchPath(t, dsn, schema))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPostgres_Suite(t *testing.T) {
	dsn := os.Getenv("DIMSTORE_E2E_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("DIMSTORE_E2E_POSTGRES_DSN not set")
	}
	admin, err := sqlstore.OpenPostgres(context.Background(), dsn)
	require.NoError(t, err)
	defer admin.Close()

	storetest.Run(t, storetest.Harness{
		New: func(t *testing.T) (dimension.Backend, dimension.SequenceStore) {
			db := openSchema(t, admin, dsn)
			require.NoError(t, sqlstore.Migrate(context.Background(), db, sqlstore.Postgres, catalog.All()...))

			s := sqlstore.New(db, sqlstore.Postgres)
			return s, s
		},
	})
}

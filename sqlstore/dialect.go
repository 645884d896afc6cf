package sqlstore

import (
	"context"
	"database/sql/driver"
	"net"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/jacentio/dimstore/dimension"
)

// faultKind is what a driver error says about integrity.
type faultKind int

const (
	faultOther faultKind = iota
	faultTransient
	faultUnique
	faultForeignKey
	// faultConstraint is a constraint failure the engine did not narrow
	// down.
	faultConstraint
)

// fault is a driver error reduced to its kind and, when the engine reports
// it, the name of the violated constraint.
type fault struct {
	kind       faultKind
	constraint string
}

// Dialect adapts statements and error codes to one SQL engine.
type Dialect interface {
	// Name labels metrics and logs.
	Name() string

	placeholder(n int) string
	columnType(k dimension.Kind) string
	idColumn(pk string) string
	orderTerm(column string, k dimension.Kind) string
	classify(err error) fault
}

var (
	// Postgres is the dialect for PostgreSQL through pgx.
	Postgres Dialect = postgresDialect{}

	// SQLite is the dialect for SQLite through modernc.org/sqlite.
	SQLite Dialect = sqliteDialect{}
)

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// commonFault covers failures every driver reports the same way.
func commonFault(err error) (fault, bool) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return fault{kind: faultTransient}, true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fault{kind: faultTransient}, true
	}
	return fault{}, false
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (postgresDialect) columnType(k dimension.Kind) string {
	switch k {
	case dimension.KindInt:
		return "BIGINT"
	case dimension.KindDate:
		return "DATE"
	default:
		return "TEXT"
	}
}

func (postgresDialect) idColumn(pk string) string {
	return quote(dimension.IDField) + " BIGINT GENERATED BY DEFAULT AS IDENTITY CONSTRAINT " + quote(pk) + " PRIMARY KEY"
}

// orderTerm sorts text bytewise regardless of the database collation.
func (postgresDialect) orderTerm(column string, k dimension.Kind) string {
	if k == dimension.KindString {
		return quote(column) + ` COLLATE "C"`
	}
	return quote(column)
}

func (postgresDialect) classify(err error) fault {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch code := pgErr.Code; {
		case code == "23505": // unique_violation
			return fault{kind: faultUnique, constraint: pgErr.ConstraintName}
		case code == "23503", code == "23001": // foreign_key_violation, restrict_violation
			return fault{kind: faultForeignKey, constraint: pgErr.ConstraintName}
		case strings.HasPrefix(code, "08"), // connection_exception
			strings.HasPrefix(code, "53"), // insufficient_resources
			code == "40001",               // serialization_failure
			code == "40P01",               // deadlock_detected
			code == "55P03",               // lock_not_available
			code == "57014",               // query_canceled
			code == "57P01", code == "57P02", code == "57P03": // shutdown, cannot_connect_now
			return fault{kind: faultTransient}
		default:
			return fault{}
		}
	}
	if f, ok := commonFault(err); ok {
		return f
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return fault{kind: faultTransient}
	}
	return fault{}
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) placeholder(int) string { return "?" }

// columnType stores dates as ISO text so the driver returns them verbatim.
func (sqliteDialect) columnType(k dimension.Kind) string {
	if k == dimension.KindInt {
		return "INTEGER"
	}
	return "TEXT"
}

func (sqliteDialect) idColumn(pk string) string {
	return quote(dimension.IDField) + " INTEGER CONSTRAINT " + quote(pk) + " PRIMARY KEY AUTOINCREMENT"
}

func (sqliteDialect) orderTerm(column string, _ dimension.Kind) string {
	return quote(column)
}

// classify maps SQLite result codes. SQLite never names the violated
// constraint, so integrity faults carry no name.
func (sqliteDialect) classify(err error) fault {
	var sqlErr *sqlite.Error
	if errors.As(err, &sqlErr) {
		return sqliteFault(sqlErr.Code())
	}
	if f, ok := commonFault(err); ok {
		return f
	}
	return fault{}
}

// sqliteFault maps an extended result code. A RESTRICT foreign key refuses
// a delete with SQLITE_CONSTRAINT_TRIGGER, so every constraint code without
// a more specific mapping is a generic constraint fault.
func sqliteFault(code int) fault {
	switch {
	case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE, code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return fault{kind: faultUnique}
	case code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return fault{kind: faultForeignKey}
	case code&0xff == sqlite3.SQLITE_CONSTRAINT:
		return fault{kind: faultConstraint}
	case code&0xff == sqlite3.SQLITE_BUSY, code&0xff == sqlite3.SQLITE_LOCKED:
		return fault{kind: faultTransient}
	default:
		return fault{}
	}
}

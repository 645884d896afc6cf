package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/jacentio/dimstore/dimension"
)

// CounterTable holds one row per named sequence.
const CounterTable = "counters"

// DDL returns the statements that create the counter table and one table
// per schema, in order. Every statement is idempotent.
func DDL(d Dialect, schemas ...*dimension.Schema) ([]string, error) {
	stmts := []string{fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s TEXT NOT NULL CONSTRAINT %s PRIMARY KEY, %s %s NOT NULL)",
		quote(CounterTable), quote("name"), quote(CounterTable+"_pkey"), quote("value"), d.columnType(dimension.KindInt),
	)}
	for _, s := range schemas {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		defs := []string{d.idColumn(s.PrimaryKey().Name)}
		for _, f := range s.Fields {
			defs = append(defs, quote(f.Name)+" "+d.columnType(f.Kind)+" NOT NULL")
		}
		for _, c := range s.Unique {
			defs = append(defs, fmt.Sprintf("CONSTRAINT %s UNIQUE (%s)", quote(c.Name), quoteAll(c.Fields)))
		}
		for _, r := range s.References {
			defs = append(defs, fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE RESTRICT",
				quote(r.Name), quote(r.Field), quote(r.Parent.Table), quote(dimension.IDField)))
		}
		stmts = append(stmts, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", quote(s.Table), strings.Join(defs, ",\n\t")))
		for _, r := range s.References {
			stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
				quote("ix_"+s.Table+"_"+r.Field), quote(s.Table), quote(r.Field)))
		}
	}
	return stmts, nil
}

// Migrate applies DDL in one transaction. Schemas must be ordered parents
// first, as catalog.All returns them.
func Migrate(ctx context.Context, db *sql.DB, d Dialect, schemas ...*dimension.Schema) error {
	stmts, err := DDL(d, schemas...)
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin migration")
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "migrate: %s", firstLine(stmt))
		}
	}
	return errors.Wrap(tx.Commit(), "commit migration")
}

func quoteAll(idents []string) string {
	out := make([]string, len(idents))
	for i, id := range idents {
		out[i] = quote(id)
	}
	return strings.Join(out, ", ")
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

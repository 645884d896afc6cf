package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/jacentio/dimstore/dimension"
	"github.com/jacentio/dimstore/internal/logging"
	"github.com/jacentio/dimstore/internal/metrics"
)

// DB is the subset of *sql.DB the Store uses.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ dimension.Backend       = (*Store)(nil)
	_ dimension.SequenceStore = (*Store)(nil)
)

// Store is a relational dimension backend. Every write is a single
// statement, so the engine's own constraints make it atomic.
type Store struct {
	db      DB
	dialect Dialect
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = logging.OrNop(l) }
}

// WithMetrics sets the collectors operations are reported to.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// New returns a Store over db, which must already carry the tables Migrate
// creates.
func New(db DB, dialect Dialect, opts ...Option) *Store {
	s := &Store{db: db, dialect: dialect, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Insert writes rec and returns the key the engine generated for it.
func (s *Store) Insert(ctx context.Context, schema *dimension.Schema, rec dimension.Record) (id int64, err error) {
	start := time.Now()
	defer func() { s.metrics.Observe(s.dialect.Name(), schema.Entity, "insert", start, err) }()

	cols := make([]string, len(schema.Fields))
	marks := make([]string, len(schema.Fields))
	args := make([]any, len(schema.Fields))
	for i, f := range schema.Fields {
		cols[i] = quote(f.Name)
		marks[i] = s.dialect.placeholder(i + 1)
		args[i] = arg(rec.Fields[f.Name])
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		quote(schema.Table), strings.Join(cols, ", "), strings.Join(marks, ", "), quote(dimension.IDField))

	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, s.fail(ctx, schema, "insert", rec, err)
	}
	s.logger.Debug("record inserted",
		zap.String(logging.FieldEntity, schema.Entity),
		zap.Int64(logging.FieldKey, id),
	)
	return id, nil
}

// Fetch loads the record stored under id.
func (s *Store) Fetch(ctx context.Context, schema *dimension.Schema, id int64) (rec dimension.Record, err error) {
	start := time.Now()
	defer func() { s.metrics.Observe(s.dialect.Name(), schema.Entity, "fetch", start, err) }()

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		selectList(schema), quote(schema.Table), quote(dimension.IDField), s.dialect.placeholder(1))

	rec, err = scanRecord(schema, s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return dimension.Record{}, &dimension.NotFoundError{Entity: schema.Entity, Key: id}
	}
	if err != nil {
		return dimension.Record{}, s.fail(ctx, schema, "fetch", dimension.Record{ID: id}, err)
	}
	return rec, nil
}

// Select returns the records matching q in q's order.
func (s *Store) Select(ctx context.Context, schema *dimension.Schema, q dimension.Query) (recs []dimension.Record, err error) {
	start := time.Now()
	defer func() { s.metrics.Observe(s.dialect.Name(), schema.Entity, "select", start, err) }()

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", selectList(schema), quote(schema.Table))
	args := make([]any, len(q.Where))
	for i, c := range q.Where {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		fmt.Fprintf(&b, "%s = %s", quote(c.Field), s.dialect.placeholder(i+1))
		args[i] = arg(c.Value)
	}
	terms := make([]string, 0, len(q.OrderBy)+1)
	for _, name := range q.OrderBy {
		kind := dimension.KindInt
		if f, ok := schema.Field(name); ok {
			kind = f.Kind
		}
		terms = append(terms, s.dialect.orderTerm(name, kind))
	}
	if len(q.OrderBy) == 0 || q.OrderBy[len(q.OrderBy)-1] != dimension.IDField {
		terms = append(terms, quote(dimension.IDField))
	}
	b.WriteString(" ORDER BY " + strings.Join(terms, ", "))

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, s.fail(ctx, schema, "select", dimension.Record{}, err)
	}
	defer func() { _ = rows.Close() }()

	recs = make([]dimension.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(schema, rows)
		if err != nil {
			return nil, s.fail(ctx, schema, "select", dimension.Record{}, err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail(ctx, schema, "select", dimension.Record{}, err)
	}
	return recs, nil
}

// Replace overwrites every field of the row with rec's key.
func (s *Store) Replace(ctx context.Context, schema *dimension.Schema, rec dimension.Record) (err error) {
	start := time.Now()
	defer func() { s.metrics.Observe(s.dialect.Name(), schema.Entity, "replace", start, err) }()

	sets := make([]string, len(schema.Fields))
	args := make([]any, 0, len(schema.Fields)+1)
	for i, f := range schema.Fields {
		sets[i] = quote(f.Name) + " = " + s.dialect.placeholder(i+1)
		args = append(args, arg(rec.Fields[f.Name]))
	}
	args = append(args, rec.ID)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		quote(schema.Table), strings.Join(sets, ", "), quote(dimension.IDField), s.dialect.placeholder(len(args)))

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return s.fail(ctx, schema, "replace", rec, err)
	}
	return s.affected(schema, "replace", rec.ID, res)
}

// Remove deletes the row stored under id. The engine refuses while other
// rows reference it.
func (s *Store) Remove(ctx context.Context, schema *dimension.Schema, id int64) (err error) {
	start := time.Now()
	defer func() { s.metrics.Observe(s.dialect.Name(), schema.Entity, "remove", start, err) }()

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
		quote(schema.Table), quote(dimension.IDField), s.dialect.placeholder(1))

	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return s.fail(ctx, schema, "remove", dimension.Record{ID: id}, err)
	}
	return s.affected(schema, "remove", id, res)
}

func (s *Store) affected(schema *dimension.Schema, op string, id int64, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return &dimension.TransientError{Entity: schema.Entity, Op: op, Err: err}
	}
	if n == 0 {
		return &dimension.NotFoundError{Entity: schema.Entity, Key: id}
	}
	return nil
}

// selectList is the key followed by every field, in schema order.
func selectList(schema *dimension.Schema) string {
	cols := make([]string, 0, len(schema.Fields)+1)
	cols = append(cols, quote(dimension.IDField))
	for _, f := range schema.Fields {
		cols = append(cols, quote(f.Name))
	}
	return strings.Join(cols, ", ")
}

// arg converts a value to a driver argument. Dates travel as ISO text.
func arg(v dimension.Value) any {
	if v.Kind() == dimension.KindInt {
		return v.AsInt()
	}
	return v.Text()
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRecord reads a row produced by selectList.
func scanRecord(schema *dimension.Schema, row scanner) (dimension.Record, error) {
	var id int64
	dest := make([]any, 0, len(schema.Fields)+1)
	dest = append(dest, &id)
	raw := make([]any, len(schema.Fields))
	for i := range schema.Fields {
		dest = append(dest, &raw[i])
	}
	if err := row.Scan(dest...); err != nil {
		return dimension.Record{}, err
	}

	rec := dimension.Record{ID: id, Fields: make(map[string]dimension.Value, len(schema.Fields))}
	for i, f := range schema.Fields {
		v, err := decode(f.Kind, raw[i])
		if err != nil {
			return dimension.Record{}, errors.Wrapf(err, "%s %d: column %q", schema.Entity, id, f.Name)
		}
		rec.Fields[f.Name] = v
	}
	return rec, nil
}

// decode converts a scanned column. Drivers return dates as time.Time or as
// text depending on the column type.
func decode(kind dimension.Kind, raw any) (dimension.Value, error) {
	switch v := raw.(type) {
	case int64:
		if kind != dimension.KindInt {
			return dimension.Value{}, errors.Newf("got integer for %s column", kind)
		}
		return dimension.Int(v), nil
	case time.Time:
		if kind != dimension.KindDate {
			return dimension.Value{}, errors.Newf("got time for %s column", kind)
		}
		return dimension.Date(v), nil
	case string:
		return dimension.ParseValue(kind, v)
	case []byte:
		return dimension.ParseValue(kind, string(v))
	case nil:
		return dimension.Value{}, errors.New("unexpected NULL")
	default:
		return dimension.Value{}, errors.Newf("unsupported column type %T", raw)
	}
}

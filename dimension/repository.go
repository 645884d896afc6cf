package dimension

import (
	"context"

	"github.com/cockroachdb/errors"
)

// Backend stores records for any schema. Implementations classify every
// failure into the error taxonomy before returning it.
type Backend interface {
	// Insert stores rec, whose ID is 0, and returns the assigned key.
	Insert(ctx context.Context, schema *Schema, rec Record) (int64, error)
	// Fetch loads the record stored under id.
	Fetch(ctx context.Context, schema *Schema, id int64) (Record, error)
	// Select returns the records matching q in q's order.
	Select(ctx context.Context, schema *Schema, q Query) ([]Record, error)
	// Replace overwrites every field of the record stored under rec.ID.
	Replace(ctx context.Context, schema *Schema, rec Record) error
	// Remove deletes the record stored under id.
	Remove(ctx context.Context, schema *Schema, id int64) error
}

// Condition is an equality filter on one field.
type Condition struct {
	Field string
	Value Value
}

// Query selects records. OrderBy always ends with the surrogate key.
type Query struct {
	Where   []Condition
	OrderBy []string
}

// Mapper converts between a domain entity and its stored record. Both
// functions are pure.
type Mapper[T any] struct {
	ToDomain   func(Record) (T, error)
	FromDomain func(T) Record
}

// ListOption refines a List call.
type ListOption func(*Query)

// Where restricts List to records whose field equals v.
func Where(field string, v Value) ListOption {
	return func(q *Query) {
		q.Where = append(q.Where, Condition{Field: field, Value: v})
	}
}

// OrderBy replaces the schema's default order.
func OrderBy(fields ...string) ListOption {
	return func(q *Query) {
		q.OrderBy = append([]string(nil), fields...)
	}
}

// Repository is the typed CRUD surface of one dimension.
type Repository[T any] struct {
	backend Backend
	schema  *Schema
	mapper  Mapper[T]
}

// NewRepository binds a backend, a schema and a mapper.
func NewRepository[T any](backend Backend, schema *Schema, mapper Mapper[T]) *Repository[T] {
	return &Repository[T]{backend: backend, schema: schema, mapper: mapper}
}

// Schema returns the repository's schema.
func (r *Repository[T]) Schema() *Schema { return r.schema }

// Mapper returns the repository's mapper.
func (r *Repository[T]) Mapper() Mapper[T] { return r.mapper }

// Add stores a new entity and returns it with its assigned key. The entity
// must not carry a key.
func (r *Repository[T]) Add(ctx context.Context, entity T) (T, error) {
	var zero T
	rec := r.mapper.FromDomain(entity)
	if rec.ID != 0 {
		return zero, errors.Wrapf(ErrInvalidRecord, "%s: add with preassigned key %d", r.schema.Entity, rec.ID)
	}
	if err := r.schema.Check(rec); err != nil {
		return zero, err
	}
	id, err := r.backend.Insert(ctx, r.schema, rec)
	if err != nil {
		return zero, err
	}
	if id <= 0 {
		return zero, errors.AssertionFailedf("%s: backend assigned non-positive key %d", r.schema.Entity, id)
	}
	rec.ID = id
	return r.mapper.ToDomain(rec)
}

// Get loads the entity stored under id.
func (r *Repository[T]) Get(ctx context.Context, id int64) (T, error) {
	var zero T
	if id <= 0 {
		return zero, &NotFoundError{Entity: r.schema.Entity, Key: id}
	}
	rec, err := r.backend.Fetch(ctx, r.schema, id)
	if err != nil {
		return zero, err
	}
	return r.mapper.ToDomain(rec)
}

// List returns matching entities, ordered by the schema's natural order
// unless OrderBy is given. No match yields an empty slice.
func (r *Repository[T]) List(ctx context.Context, opts ...ListOption) ([]T, error) {
	q := Query{OrderBy: r.schema.Order}
	for _, opt := range opts {
		opt(&q)
	}
	for _, c := range q.Where {
		f, ok := r.schema.Field(c.Field)
		if !ok {
			return nil, errors.Wrapf(ErrInvalidRecord, "%s: filter on unknown field %q", r.schema.Entity, c.Field)
		}
		if c.Value.Kind() != f.Kind {
			return nil, errors.Wrapf(ErrInvalidRecord, "%s: filter %q is %s, want %s", r.schema.Entity, c.Field, c.Value.Kind(), f.Kind)
		}
	}
	order := make([]string, 0, len(q.OrderBy)+1)
	for _, name := range q.OrderBy {
		if name == IDField {
			continue
		}
		if _, ok := r.schema.Field(name); !ok {
			return nil, errors.Wrapf(ErrInvalidRecord, "%s: order by unknown field %q", r.schema.Entity, name)
		}
		order = append(order, name)
	}
	q.OrderBy = append(order, IDField)

	recs, err := r.backend.Select(ctx, r.schema, q)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		e, err := r.mapper.ToDomain(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Update replaces every field of the stored entity with the same key.
func (r *Repository[T]) Update(ctx context.Context, entity T) error {
	rec := r.mapper.FromDomain(entity)
	if rec.ID <= 0 {
		return &NotFoundError{Entity: r.schema.Entity, Key: rec.ID}
	}
	if err := r.schema.Check(rec); err != nil {
		return err
	}
	return r.backend.Replace(ctx, r.schema, rec)
}

// Delete removes the entity stored under id.
func (r *Repository[T]) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return &NotFoundError{Entity: r.schema.Entity, Key: id}
	}
	return r.backend.Remove(ctx, r.schema, id)
}

package dimension

import (
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
)

// IDField is the name of the surrogate key column or attribute.
const IDField = "id"

// ConstraintReferenced names the violation raised when deleting a record
// that other records still reference.
const ConstraintReferenced = "referenced"

// ErrInvalidRecord is returned when a record does not match its schema.
var ErrInvalidRecord = errors.New("dimension: invalid record")

// Record is the stored shape of a dimension entity.
type Record struct {
	ID     int64
	Fields map[string]Value
}

// Field declares one stored column.
type Field struct {
	Name string
	Kind Kind
}

// Constraint declares a uniqueness constraint over one or more fields.
// Name is used verbatim as the engine-side constraint name.
type Constraint struct {
	Name   string
	Fields []string
}

// Reference declares that Field holds the surrogate key of a Parent record.
type Reference struct {
	Name   string
	Field  string
	Parent *Schema
}

// Schema describes how a dimension is stored.
type Schema struct {
	// Entity is the logical entity name reported in errors, e.g. "city".
	Entity string
	// Table is the table or collection name.
	Table string
	// Sequence names the counter used when the backend allocates keys.
	Sequence string
	// Fields lists every stored field except the surrogate key.
	Fields []Field
	// Unique lists the natural-key constraints.
	Unique []Constraint
	// References lists the foreign keys.
	References []Reference
	// Order is the default List order. The surrogate key always breaks ties.
	Order []string
}

// PrimaryKey returns the surrogate-key constraint.
func (s *Schema) PrimaryKey() Constraint {
	return Constraint{Name: s.Table + "_pkey", Fields: []string{IDField}}
}

// Field looks up a declared field.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Constraint looks up a uniqueness constraint by name, including the
// primary key.
func (s *Schema) Constraint(name string) (Constraint, bool) {
	if pk := s.PrimaryKey(); pk.Name == name {
		return pk, true
	}
	for _, c := range s.Unique {
		if c.Name == name {
			return c, true
		}
	}
	return Constraint{}, false
}

// Reference looks up a foreign key by name.
func (s *Schema) Reference(name string) (Reference, bool) {
	for _, r := range s.References {
		if r.Name == name {
			return r, true
		}
	}
	return Reference{}, false
}

// Validate checks that the schema is internally consistent.
func (s *Schema) Validate() error {
	if s.Entity == "" || s.Table == "" || s.Sequence == "" {
		return errors.Newf("schema %q: entity, table and sequence are required", s.Table)
	}
	seen := map[string]bool{IDField: true}
	for _, f := range s.Fields {
		if seen[f.Name] {
			return errors.Newf("schema %s: duplicate field %q", s.Entity, f.Name)
		}
		if f.Kind < KindInt || f.Kind > KindDate {
			return errors.Newf("schema %s: field %q has no kind", s.Entity, f.Name)
		}
		seen[f.Name] = true
	}
	for _, c := range s.Unique {
		if c.Name == "" || len(c.Fields) == 0 {
			return errors.Newf("schema %s: unnamed or empty constraint", s.Entity)
		}
		for _, name := range c.Fields {
			if _, ok := s.Field(name); !ok {
				return errors.Newf("schema %s: constraint %s names unknown field %q", s.Entity, c.Name, name)
			}
		}
	}
	for _, r := range s.References {
		f, ok := s.Field(r.Field)
		if !ok || f.Kind != KindInt {
			return errors.Newf("schema %s: reference %s needs an int field, got %q", s.Entity, r.Name, r.Field)
		}
		if r.Parent == nil {
			return errors.Newf("schema %s: reference %s has no parent", s.Entity, r.Name)
		}
	}
	for _, name := range s.Order {
		if _, ok := s.Field(name); !ok && name != IDField {
			return errors.Newf("schema %s: order names unknown field %q", s.Entity, name)
		}
	}
	return nil
}

// Check verifies that rec carries exactly the declared fields with the
// declared kinds.
func (s *Schema) Check(rec Record) error {
	if len(rec.Fields) != len(s.Fields) {
		return errors.Wrapf(ErrInvalidRecord, "%s: want %d fields, got %d", s.Entity, len(s.Fields), len(rec.Fields))
	}
	for _, f := range s.Fields {
		v, ok := rec.Fields[f.Name]
		if !ok {
			return errors.Wrapf(ErrInvalidRecord, "%s: missing field %q", s.Entity, f.Name)
		}
		if v.Kind() != f.Kind {
			return errors.Wrapf(ErrInvalidRecord, "%s: field %q is %s, want %s", s.Entity, f.Name, v.Kind(), f.Kind)
		}
	}
	return nil
}

// Values projects rec onto the fields of c.
func (c Constraint) Values(rec Record) map[string]Value {
	out := make(map[string]Value, len(c.Fields))
	for _, name := range c.Fields {
		if name == IDField {
			out[name] = Int(rec.ID)
			continue
		}
		out[name] = rec.Fields[name]
	}
	return out
}

// Describe renders the constraint's fields, e.g. "(name, oblast_id)".
func (c Constraint) Describe() string {
	return "(" + strings.Join(c.Fields, ", ") + ")"
}

// SameValues reports whether a and b agree on every field of c.
func (c Constraint) SameValues(a, b Record) bool {
	return !slices.ContainsFunc(c.Fields, func(name string) bool {
		return !a.Fields[name].Equal(b.Fields[name])
	})
}

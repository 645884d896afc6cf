package dimension

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/jacentio/dimstore/internal/logging"
)

// ViolationKind discriminates the integrity failures a backend can report.
type ViolationKind int

const (
	// ViolationUnique: a uniqueness constraint (primary or natural key)
	// rejected the write.
	ViolationUnique ViolationKind = iota + 1
	// ViolationMissingParent: a reference points at a parent that does
	// not exist.
	ViolationMissingParent
	// ViolationReferenced: the record is still referenced by others.
	ViolationReferenced
)

func (k ViolationKind) String() string {
	switch k {
	case ViolationUnique:
		return "unique"
	case ViolationMissingParent:
		return "missing_parent"
	case ViolationReferenced:
		return "referenced"
	default:
		return "unknown"
	}
}

// Violation is the typed signal a backend adapter produces for an integrity
// failure. It always names a declared constraint or reference; it never
// carries driver message text.
type Violation struct {
	Kind ViolationKind
	// Constraint is the violated uniqueness constraint (ViolationUnique).
	Constraint string
	// Reference is the foreign key whose parent is missing
	// (ViolationMissingParent).
	Reference string
	// Record is the record being written or deleted.
	Record Record
}

// Translator converts violations into the error taxonomy for one schema.
type Translator struct {
	schema *Schema
	logger *zap.Logger
}

// NewTranslator creates a translator for schema. A nil logger discards
// output.
func NewTranslator(schema *Schema, logger *zap.Logger) *Translator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Translator{schema: schema, logger: logger}
}

// Translate returns the ConflictError or NotFoundError for v. A violation
// naming something the schema does not declare is a programming error and is
// reported as an assertion failure.
func (t *Translator) Translate(v Violation) error {
	switch v.Kind {
	case ViolationUnique:
		c, ok := t.schema.Constraint(v.Constraint)
		if !ok {
			return errors.AssertionFailedf("%s: undeclared constraint %q", t.schema.Entity, v.Constraint)
		}
		if c.Name == t.schema.PrimaryKey().Name {
			t.logger.Error("surrogate key collision",
				zap.String(logging.FieldEntity, t.schema.Entity),
				zap.String(logging.FieldConstraint, c.Name),
				zap.Int64(logging.FieldKey, v.Record.ID),
			)
		}
		return &ConflictError{
			Entity:     t.schema.Entity,
			Constraint: c.Name,
			Fields:     c.Fields,
			Values:     c.Values(v.Record),
		}
	case ViolationMissingParent:
		r, ok := t.schema.Reference(v.Reference)
		if !ok {
			return errors.AssertionFailedf("%s: undeclared reference %q", t.schema.Entity, v.Reference)
		}
		return &NotFoundError{
			Entity: r.Parent.Entity,
			Key:    v.Record.Fields[r.Field].AsInt(),
		}
	case ViolationReferenced:
		return &ConflictError{
			Entity:     t.schema.Entity,
			Constraint: ConstraintReferenced,
			Fields:     []string{IDField},
			Values:     map[string]Value{IDField: Int(v.Record.ID)},
		}
	default:
		return errors.AssertionFailedf("%s: unknown violation kind %d", t.schema.Entity, v.Kind)
	}
}

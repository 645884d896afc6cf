package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/jacentio/dimstore/dimension"
	"github.com/jacentio/dimstore/internal/logging"
)

// fail classifies a driver error raised while running op for rec.
func (s *Store) fail(ctx context.Context, schema *dimension.Schema, op string, rec dimension.Record, err error) error {
	f := s.dialect.classify(err)
	switch f.kind {
	case faultTransient:
		return &dimension.TransientError{Entity: schema.Entity, Op: op, Err: err}
	case faultUnique, faultForeignKey, faultConstraint:
		v, found, probeErr := s.diagnose(ctx, schema, op, rec, f)
		if probeErr != nil {
			return &dimension.TransientError{Entity: schema.Entity, Op: op, Err: errors.CombineErrors(err, probeErr)}
		}
		if !found {
			// The conflicting row is gone; a retry will succeed or fail
			// with a definite answer.
			s.logger.Warn("constraint violation could not be attributed",
				zap.String(logging.FieldEntity, schema.Entity),
				zap.String(logging.FieldOperation, op),
				zap.Error(err),
			)
			return &dimension.TransientError{Entity: schema.Entity, Op: op, Err: err}
		}
		s.logger.Debug("constraint violated",
			zap.String(logging.FieldEntity, schema.Entity),
			zap.String(logging.FieldOperation, op),
			zap.String(logging.FieldConstraint, violated(v)),
		)
		return dimension.NewTranslator(schema, s.logger).Translate(v)
	default:
		return errors.Wrapf(err, "%s %s", schema.Entity, op)
	}
}

// violated names the constraint or reference behind v.
func violated(v dimension.Violation) string {
	switch v.Kind {
	case dimension.ViolationMissingParent:
		return v.Reference
	case dimension.ViolationReferenced:
		return dimension.ConstraintReferenced
	default:
		return v.Constraint
	}
}

// diagnose identifies the declared constraint behind f. Engines that name
// the constraint are trusted; otherwise each declared constraint is probed.
func (s *Store) diagnose(ctx context.Context, schema *dimension.Schema, op string, rec dimension.Record, f fault) (dimension.Violation, bool, error) {
	if op == "remove" && f.kind != faultUnique {
		return dimension.Violation{Kind: dimension.ViolationReferenced, Record: rec}, true, nil
	}
	if f.constraint != "" {
		if f.kind == faultForeignKey {
			return dimension.Violation{Kind: dimension.ViolationMissingParent, Reference: f.constraint, Record: rec}, true, nil
		}
		return dimension.Violation{Kind: dimension.ViolationUnique, Constraint: f.constraint, Record: rec}, true, nil
	}

	if f.kind != faultForeignKey {
		for _, c := range schema.Unique {
			taken, err := s.taken(ctx, schema, c, rec)
			if err != nil {
				return dimension.Violation{}, false, err
			}
			if taken {
				return dimension.Violation{Kind: dimension.ViolationUnique, Constraint: c.Name, Record: rec}, true, nil
			}
		}
	}
	if f.kind != faultUnique {
		for _, r := range schema.References {
			ok, err := s.exists(ctx, r.Parent.Table, rec.Fields[r.Field].AsInt())
			if err != nil {
				return dimension.Violation{}, false, err
			}
			if !ok {
				return dimension.Violation{Kind: dimension.ViolationMissingParent, Reference: r.Name, Record: rec}, true, nil
			}
		}
	}
	return dimension.Violation{}, false, nil
}

// taken reports whether a row other than rec holds rec's values for c.
func (s *Store) taken(ctx context.Context, schema *dimension.Schema, c dimension.Constraint, rec dimension.Record) (bool, error) {
	terms := make([]string, 0, len(c.Fields)+1)
	args := make([]any, 0, len(c.Fields)+1)
	for _, name := range c.Fields {
		args = append(args, arg(rec.Fields[name]))
		terms = append(terms, quote(name)+" = "+s.dialect.placeholder(len(args)))
	}
	args = append(args, rec.ID)
	terms = append(terms, quote(dimension.IDField)+" <> "+s.dialect.placeholder(len(args)))

	query := fmt.Sprintf("SELECT 1 FROM %s WHERE %s LIMIT 1", quote(schema.Table), strings.Join(terms, " AND "))
	return s.probe(ctx, query, args...)
}

func (s *Store) exists(ctx context.Context, table string, id int64) (bool, error) {
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE %s = %s", quote(table), quote(dimension.IDField), s.dialect.placeholder(1))
	return s.probe(ctx, query, id)
}

func (s *Store) probe(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "probe constraint")
	}
	return true, nil
}

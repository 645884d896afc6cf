package catalog

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/jacentio/dimstore/dimension"
)

// fieldReader reads typed fields from a record, remembering the first
// missing or mistyped field.
type fieldReader struct {
	entity string
	rec    dimension.Record
	err    error
}

func newReader(entity string, rec dimension.Record) *fieldReader {
	return &fieldReader{entity: entity, rec: rec}
}

func (r *fieldReader) value(name string, kind dimension.Kind) dimension.Value {
	if r.err != nil {
		return dimension.Value{}
	}
	v, ok := r.rec.Fields[name]
	if !ok {
		r.err = errors.Wrapf(dimension.ErrInvalidRecord, "%s: missing field %q", r.entity, name)
		return dimension.Value{}
	}
	if v.Kind() != kind {
		r.err = errors.Wrapf(dimension.ErrInvalidRecord, "%s: field %q is %s, want %s", r.entity, name, v.Kind(), kind)
		return dimension.Value{}
	}
	return v
}

func (r *fieldReader) str(name string) string {
	return r.value(name, dimension.KindString).AsString()
}

func (r *fieldReader) int(name string) int64 {
	return r.value(name, dimension.KindInt).AsInt()
}

func (r *fieldReader) date(name string) time.Time {
	v := r.value(name, dimension.KindDate)
	if v.IsZero() {
		return time.Time{}
	}
	return v.AsDate()
}

func str(name string) dimension.Field  { return dimension.Field{Name: name, Kind: dimension.KindString} }
func num(name string) dimension.Field  { return dimension.Field{Name: name, Kind: dimension.KindInt} }
func date(name string) dimension.Field { return dimension.Field{Name: name, Kind: dimension.KindDate} }

func unique(name string, fields ...string) dimension.Constraint {
	return dimension.Constraint{Name: name, Fields: fields}
}

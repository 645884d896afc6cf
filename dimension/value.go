package dimension

import (
	"cmp"
	"fmt"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
)

// DateLayout is the canonical text form of date values.
const DateLayout = "2006-01-02"

// Kind identifies the storage type of a field.
type Kind int

const (
	KindInt Kind = iota + 1
	KindString
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindDate:
		return "date"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a single typed field value. The zero Value has no kind and is
// rejected by every backend.
type Value struct {
	kind Kind
	i    int64
	s    string
}

// Int returns an integer value.
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// String returns a text value.
func String(v string) Value { return Value{kind: KindString, s: v} }

// Date returns a calendar date value. The time of day and location are dropped.
func Date(t time.Time) Value {
	return Value{kind: KindDate, s: t.Format(DateLayout)}
}

// ParseValue parses the text form of a value of the given kind.
func ParseValue(kind Kind, text string) (Value, error) {
	switch kind {
	case KindInt:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return Value{}, errors.Wrapf(err, "parse int %q", text)
		}
		return Int(n), nil
	case KindString:
		return String(text), nil
	case KindDate:
		t, err := time.Parse(DateLayout, text)
		if err != nil {
			return Value{}, errors.Wrapf(err, "parse date %q", text)
		}
		return Date(t), nil
	default:
		return Value{}, errors.Newf("unknown kind %d", kind)
	}
}

// Kind reports the value's kind.
func (v Value) Kind() Kind { return v.kind }

// IsZero reports whether v was never assigned.
func (v Value) IsZero() bool { return v.kind == 0 }

// AsInt returns the integer payload; zero for other kinds.
func (v Value) AsInt() int64 { return v.i }

// AsString returns the text payload. Dates are returned in [DateLayout].
func (v Value) AsString() string { return v.s }

// AsDate returns the date payload as UTC midnight.
func (v Value) AsDate() time.Time {
	t, _ := time.Parse(DateLayout, v.s)
	return t
}

// Text returns the value in its text form, the inverse of [ParseValue].
func (v Value) Text() string {
	if v.kind == KindInt {
		return strconv.FormatInt(v.i, 10)
	}
	return v.s
}

func (v Value) String() string {
	if v.kind == KindString {
		return strconv.Quote(v.s)
	}
	return v.Text()
}

// Equal reports whether both values have the same kind and payload.
func (v Value) Equal(o Value) bool { return v == o }

// Compare orders values of the same kind. Strings compare bytewise and dates
// chronologically. Values of different kinds order by kind.
func (v Value) Compare(o Value) int {
	if v.kind != o.kind {
		return cmp.Compare(v.kind, o.kind)
	}
	if v.kind == KindInt {
		return cmp.Compare(v.i, o.i)
	}
	return cmp.Compare(v.s, o.s)
}

// GoString supports %#v in test failure output.
func (v Value) GoString() string {
	return fmt.Sprintf("dimension.Value{%s %s}", v.kind, v.Text())
}

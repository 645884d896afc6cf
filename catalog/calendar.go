package catalog

import (
	"time"

	"github.com/jacentio/dimstore/dimension"
)

// Date is a calendar day with its derived reporting periods.
type Date struct {
	ID       int64     `json:"date_id"`
	FullDate time.Time `json:"full_date"`
	Year     int64     `json:"year"`
	Quarter  int64     `json:"quarter"`
	Month    int64     `json:"month"`
}

// NewDate derives year, quarter and month from t.
func NewDate(t time.Time) Date {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return Date{
		FullDate: day,
		Year:     int64(day.Year()),
		Quarter:  int64(day.Month()-1)/3 + 1,
		Month:    int64(day.Month()),
	}
}

// DateSchema keys calendar days by their full date.
var DateSchema = &dimension.Schema{
	Entity:   "date",
	Table:    "dim_date",
	Sequence: "date_id",
	Fields: []dimension.Field{
		date("full_date"),
		num("year"),
		num("quarter"),
		num("month"),
	},
	Unique: []dimension.Constraint{unique("uq_date_full_date", "full_date")},
	Order:  []string{"full_date"},
}

// DateToDomain converts a stored record.
func DateToDomain(rec dimension.Record) (Date, error) {
	r := newReader(DateSchema.Entity, rec)
	d := Date{
		ID:       rec.ID,
		FullDate: r.date("full_date"),
		Year:     r.int("year"),
		Quarter:  r.int("quarter"),
		Month:    r.int("month"),
	}
	return d, r.err
}

// DateFromDomain converts to a stored record.
func DateFromDomain(d Date) dimension.Record {
	return dimension.Record{ID: d.ID, Fields: map[string]dimension.Value{
		"full_date": dimension.Date(d.FullDate),
		"year":      dimension.Int(d.Year),
		"quarter":   dimension.Int(d.Quarter),
		"month":     dimension.Int(d.Month),
	}}
}

// DateMapper binds the converters above.
var DateMapper = dimension.Mapper[Date]{ToDomain: DateToDomain, FromDomain: DateFromDomain}

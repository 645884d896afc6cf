package catalog

import (
	"time"

	"github.com/jacentio/dimstore/dimension"
)

// Employee is an anonymized survey respondent. RefID is the external
// reference assigned by the collecting system.
type Employee struct {
	ID              int64     `json:"employee_id"`
	RefID           string    `json:"employee_ref_id"`
	BirthDate       time.Time `json:"birth_date"`
	CareerStartDate time.Time `json:"career_start_date"`
}

// EmployeeSchema keys employees by their external reference.
var EmployeeSchema = &dimension.Schema{
	Entity:   "employee",
	Table:    "dim_employees",
	Sequence: "employee_id",
	Fields: []dimension.Field{
		str("employee_ref_id"),
		date("birth_date"),
		date("career_start_date"),
	},
	Unique: []dimension.Constraint{unique("uq_employee_ref_id", "employee_ref_id")},
	Order:  []string{"employee_ref_id"},
}

// EmployeeToDomain converts a stored record.
func EmployeeToDomain(rec dimension.Record) (Employee, error) {
	r := newReader(EmployeeSchema.Entity, rec)
	e := Employee{
		ID:              rec.ID,
		RefID:           r.str("employee_ref_id"),
		BirthDate:       r.date("birth_date"),
		CareerStartDate: r.date("career_start_date"),
	}
	return e, r.err
}

// EmployeeFromDomain converts to a stored record.
func EmployeeFromDomain(e Employee) dimension.Record {
	return dimension.Record{ID: e.ID, Fields: map[string]dimension.Value{
		"employee_ref_id":   dimension.String(e.RefID),
		"birth_date":        dimension.Date(e.BirthDate),
		"career_start_date": dimension.Date(e.CareerStartDate),
	}}
}

// EmployeeMapper binds the converters above.
var EmployeeMapper = dimension.Mapper[Employee]{ToDomain: EmployeeToDomain, FromDomain: EmployeeFromDomain}

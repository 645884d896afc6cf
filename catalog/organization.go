package catalog

import (
	"time"

	"github.com/jacentio/dimstore/dimension"
)

// IndustryField is a top-level industry classification.
type IndustryField struct {
	ID   int64  `json:"industry_field_id"`
	Code string `json:"industry_field_code"`
	Name string `json:"industry_field_name"`
}

// Employer is a registered legal entity. Name, INN and OGRN are each
// unique.
type Employer struct {
	ID               int64     `json:"employer_id"`
	Name             string    `json:"employer_name"`
	INN              string    `json:"inn"`
	OGRN             string    `json:"ogrn"`
	KPP              string    `json:"kpp"`
	RegistrationDate time.Time `json:"registration_date"`
	HeadAddress      string    `json:"head_address"`
	ContactPhone     string    `json:"contact_phone"`
	ContactEmail     string    `json:"contact_email"`
}

// IndustryFieldSchema keys industry fields by code and by name.
var IndustryFieldSchema = &dimension.Schema{
	Entity:   "industry_field",
	Table:    "dim_industry_field",
	Sequence: "industry_field_id",
	Fields:   []dimension.Field{str("industry_field_code"), str("industry_field_name")},
	Unique: []dimension.Constraint{
		unique("uq_industry_field_code", "industry_field_code"),
		unique("uq_industry_field_name", "industry_field_name"),
	},
	Order: []string{"industry_field_code"},
}

// EmployerSchema keys employers by name, INN and OGRN.
var EmployerSchema = &dimension.Schema{
	Entity:   "employer",
	Table:    "dim_employers",
	Sequence: "employer_id",
	Fields: []dimension.Field{
		str("employer_name"),
		str("inn"),
		str("ogrn"),
		str("kpp"),
		date("registration_date"),
		str("head_address"),
		str("contact_phone"),
		str("contact_email"),
	},
	Unique: []dimension.Constraint{
		unique("uq_employer_name", "employer_name"),
		unique("uq_employer_inn", "inn"),
		unique("uq_employer_ogrn", "ogrn"),
	},
	Order: []string{"employer_name"},
}

// IndustryFieldToDomain converts a stored record.
func IndustryFieldToDomain(rec dimension.Record) (IndustryField, error) {
	r := newReader(IndustryFieldSchema.Entity, rec)
	f := IndustryField{
		ID:   rec.ID,
		Code: r.str("industry_field_code"),
		Name: r.str("industry_field_name"),
	}
	return f, r.err
}

// IndustryFieldFromDomain converts to a stored record.
func IndustryFieldFromDomain(f IndustryField) dimension.Record {
	return dimension.Record{ID: f.ID, Fields: map[string]dimension.Value{
		"industry_field_code": dimension.String(f.Code),
		"industry_field_name": dimension.String(f.Name),
	}}
}

// EmployerToDomain converts a stored record.
func EmployerToDomain(rec dimension.Record) (Employer, error) {
	r := newReader(EmployerSchema.Entity, rec)
	e := Employer{
		ID:               rec.ID,
		Name:             r.str("employer_name"),
		INN:              r.str("inn"),
		OGRN:             r.str("ogrn"),
		KPP:              r.str("kpp"),
		RegistrationDate: r.date("registration_date"),
		HeadAddress:      r.str("head_address"),
		ContactPhone:     r.str("contact_phone"),
		ContactEmail:     r.str("contact_email"),
	}
	return e, r.err
}

// EmployerFromDomain converts to a stored record.
func EmployerFromDomain(e Employer) dimension.Record {
	return dimension.Record{ID: e.ID, Fields: map[string]dimension.Value{
		"employer_name":     dimension.String(e.Name),
		"inn":               dimension.String(e.INN),
		"ogrn":              dimension.String(e.OGRN),
		"kpp":               dimension.String(e.KPP),
		"registration_date": dimension.Date(e.RegistrationDate),
		"head_address":      dimension.String(e.HeadAddress),
		"contact_phone":     dimension.String(e.ContactPhone),
		"contact_email":     dimension.String(e.ContactEmail),
	}}
}

// Mappers for the organization dimensions.
var (
	IndustryFieldMapper = dimension.Mapper[IndustryField]{ToDomain: IndustryFieldToDomain, FromDomain: IndustryFieldFromDomain}
	EmployerMapper      = dimension.Mapper[Employer]{ToDomain: EmployerToDomain, FromDomain: EmployerFromDomain}
)

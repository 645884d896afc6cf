package catalog

import "github.com/jacentio/dimstore/dimension"

// EducationLevel is a degree tier such as "Бакалавриат".
type EducationLevel struct {
	ID   int64  `json:"education_level_id"`
	Name string `json:"education_level_name"`
}

// Education is a specialty taught at an education level.
type Education struct {
	ID               int64  `json:"education_id"`
	SpecialtyName    string `json:"specialty_name"`
	SpecialtyCode    string `json:"specialty_code"`
	EducationLevelID int64  `json:"education_level_id"`
}

// EducationLevelSchema keys education levels by name.
var EducationLevelSchema = &dimension.Schema{
	Entity:   "education_level",
	Table:    "dim_education_level",
	Sequence: "education_level_id",
	Fields:   []dimension.Field{str("education_level_name")},
	Unique:   []dimension.Constraint{unique("uq_education_level_name", "education_level_name")},
	Order:    []string{"education_level_name"},
}

// EducationSchema keys specialties by code within an education level.
var EducationSchema = &dimension.Schema{
	Entity:   "education",
	Table:    "dim_education",
	Sequence: "education_id",
	Fields: []dimension.Field{
		str("specialty_name"),
		str("specialty_code"),
		num("education_level_id"),
	},
	Unique: []dimension.Constraint{
		unique("uq_education_specialty_level", "specialty_code", "education_level_id"),
	},
	References: []dimension.Reference{
		{Name: "fk_education_education_level", Field: "education_level_id", Parent: EducationLevelSchema},
	},
	Order: []string{"specialty_code", "education_level_id"},
}

// EducationLevelToDomain converts a stored record.
func EducationLevelToDomain(rec dimension.Record) (EducationLevel, error) {
	r := newReader(EducationLevelSchema.Entity, rec)
	l := EducationLevel{
		ID:   rec.ID,
		Name: r.str("education_level_name"),
	}
	return l, r.err
}

// EducationLevelFromDomain converts to a stored record.
func EducationLevelFromDomain(l EducationLevel) dimension.Record {
	return dimension.Record{ID: l.ID, Fields: map[string]dimension.Value{
		"education_level_name": dimension.String(l.Name),
	}}
}

// EducationToDomain converts a stored record.
func EducationToDomain(rec dimension.Record) (Education, error) {
	r := newReader(EducationSchema.Entity, rec)
	e := Education{
		ID:               rec.ID,
		SpecialtyName:    r.str("specialty_name"),
		SpecialtyCode:    r.str("specialty_code"),
		EducationLevelID: r.int("education_level_id"),
	}
	return e, r.err
}

// EducationFromDomain converts to a stored record.
func EducationFromDomain(e Education) dimension.Record {
	return dimension.Record{ID: e.ID, Fields: map[string]dimension.Value{
		"specialty_name":     dimension.String(e.SpecialtyName),
		"specialty_code":     dimension.String(e.SpecialtyCode),
		"education_level_id": dimension.Int(e.EducationLevelID),
	}}
}

// Mappers for the education dimensions.
var (
	EducationLevelMapper = dimension.Mapper[EducationLevel]{ToDomain: EducationLevelToDomain, FromDomain: EducationLevelFromDomain}
	EducationMapper      = dimension.Mapper[Education]{ToDomain: EducationToDomain, FromDomain: EducationFromDomain}
)

package catalog

import "github.com/jacentio/dimstore/dimension"

// EmployerIndustryField links an employer to an industry it operates in.
type EmployerIndustryField struct {
	ID              int64 `json:"employer_industry_field_id"`
	EmployerID      int64 `json:"employer_id"`
	IndustryFieldID int64 `json:"industry_field_id"`
}

// EmployeeEducation records a degree an employee completed.
type EmployeeEducation struct {
	ID             int64 `json:"employee_education_id"`
	EmployeeID     int64 `json:"employee_id"`
	EducationID    int64 `json:"education_id"`
	GraduationYear int64 `json:"graduation_year"`
}

// StandardJobRoleHierarchy lists a grade that exists for a standard job role.
type StandardJobRoleHierarchy struct {
	ID                int64 `json:"standard_job_role_hierarchy_id"`
	StandardJobRoleID int64 `json:"standard_job_role_id"`
	HierarchyLevelID  int64 `json:"hierarchy_level_id"`
}

// EmployerIndustryFieldSchema allows each employer and industry pair once.
var EmployerIndustryFieldSchema = &dimension.Schema{
	Entity:   "employer_industry_field",
	Table:    "dim_employer_industry_field",
	Sequence: "employer_industry_field_id",
	Fields:   []dimension.Field{num("employer_id"), num("industry_field_id")},
	Unique: []dimension.Constraint{
		unique("uq_employer_industry_field", "employer_id", "industry_field_id"),
	},
	References: []dimension.Reference{
		{Name: "fk_employer_industry_field_employer", Field: "employer_id", Parent: EmployerSchema},
		{Name: "fk_employer_industry_field_industry_field", Field: "industry_field_id", Parent: IndustryFieldSchema},
	},
	Order: []string{"employer_id", "industry_field_id"},
}

// EmployeeEducationSchema allows each employee and education pair once.
var EmployeeEducationSchema = &dimension.Schema{
	Entity:   "employee_education",
	Table:    "dim_employee_educations",
	Sequence: "employee_education_id",
	Fields:   []dimension.Field{num("employee_id"), num("education_id"), num("graduation_year")},
	Unique: []dimension.Constraint{
		unique("uq_employee_education", "employee_id", "education_id"),
	},
	References: []dimension.Reference{
		{Name: "fk_employee_education_employee", Field: "employee_id", Parent: EmployeeSchema},
		{Name: "fk_employee_education_education", Field: "education_id", Parent: EducationSchema},
	},
	Order: []string{"employee_id", "education_id"},
}

// StandardJobRoleHierarchySchema allows each role and grade pair once.
var StandardJobRoleHierarchySchema = &dimension.Schema{
	Entity:   "standard_job_role_hierarchy",
	Table:    "dim_standard_job_role_hierarchy",
	Sequence: "standard_job_role_hierarchy_id",
	Fields:   []dimension.Field{num("standard_job_role_id"), num("hierarchy_level_id")},
	Unique: []dimension.Constraint{
		unique("uq_standard_job_role_hierarchy", "standard_job_role_id", "hierarchy_level_id"),
	},
	References: []dimension.Reference{
		{Name: "fk_standard_job_role_hierarchy_role", Field: "standard_job_role_id", Parent: StandardJobRoleSchema},
		{Name: "fk_standard_job_role_hierarchy_level", Field: "hierarchy_level_id", Parent: HierarchyLevelSchema},
	},
	Order: []string{"standard_job_role_id", "hierarchy_level_id"},
}

// EmployerIndustryFieldToDomain converts a stored record.
func EmployerIndustryFieldToDomain(rec dimension.Record) (EmployerIndustryField, error) {
	r := newReader(EmployerIndustryFieldSchema.Entity, rec)
	l := EmployerIndustryField{
		ID:              rec.ID,
		EmployerID:      r.int("employer_id"),
		IndustryFieldID: r.int("industry_field_id"),
	}
	return l, r.err
}

// EmployerIndustryFieldFromDomain converts to a stored record.
func EmployerIndustryFieldFromDomain(l EmployerIndustryField) dimension.Record {
	return dimension.Record{ID: l.ID, Fields: map[string]dimension.Value{
		"employer_id":       dimension.Int(l.EmployerID),
		"industry_field_id": dimension.Int(l.IndustryFieldID),
	}}
}

// EmployeeEducationToDomain converts a stored record.
func EmployeeEducationToDomain(rec dimension.Record) (EmployeeEducation, error) {
	r := newReader(EmployeeEducationSchema.Entity, rec)
	l := EmployeeEducation{
		ID:             rec.ID,
		EmployeeID:     r.int("employee_id"),
		EducationID:    r.int("education_id"),
		GraduationYear: r.int("graduation_year"),
	}
	return l, r.err
}

// EmployeeEducationFromDomain converts to a stored record.
func EmployeeEducationFromDomain(l EmployeeEducation) dimension.Record {
	return dimension.Record{ID: l.ID, Fields: map[string]dimension.Value{
		"employee_id":     dimension.Int(l.EmployeeID),
		"education_id":    dimension.Int(l.EducationID),
		"graduation_year": dimension.Int(l.GraduationYear),
	}}
}

// StandardJobRoleHierarchyToDomain converts a stored record.
func StandardJobRoleHierarchyToDomain(rec dimension.Record) (StandardJobRoleHierarchy, error) {
	r := newReader(StandardJobRoleHierarchySchema.Entity, rec)
	l := StandardJobRoleHierarchy{
		ID:                rec.ID,
		StandardJobRoleID: r.int("standard_job_role_id"),
		HierarchyLevelID:  r.int("hierarchy_level_id"),
	}
	return l, r.err
}

// StandardJobRoleHierarchyFromDomain converts to a stored record.
func StandardJobRoleHierarchyFromDomain(l StandardJobRoleHierarchy) dimension.Record {
	return dimension.Record{ID: l.ID, Fields: map[string]dimension.Value{
		"standard_job_role_id": dimension.Int(l.StandardJobRoleID),
		"hierarchy_level_id":   dimension.Int(l.HierarchyLevelID),
	}}
}

// Mappers for the link dimensions.
var (
	EmployerIndustryFieldMapper = dimension.Mapper[EmployerIndustryField]{
		ToDomain: EmployerIndustryFieldToDomain, FromDomain: EmployerIndustryFieldFromDomain,
	}
	EmployeeEducationMapper = dimension.Mapper[EmployeeEducation]{
		ToDomain: EmployeeEducationToDomain, FromDomain: EmployeeEducationFromDomain,
	}
	StandardJobRoleHierarchyMapper = dimension.Mapper[StandardJobRoleHierarchy]{
		ToDomain: StandardJobRoleHierarchyToDomain, FromDomain: StandardJobRoleHierarchyFromDomain,
	}
)

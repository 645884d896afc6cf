package catalog

import "github.com/jacentio/dimstore/dimension"

// All returns every schema, parents before the dimensions that reference
// them.
func All() []*dimension.Schema {
	return []*dimension.Schema{
		FederalDistrictSchema,
		OblastSchema,
		CitySchema,
		IndustryFieldSchema,
		EmployerSchema,
		StandardJobRoleSchema,
		HierarchyLevelSchema,
		JobRoleSchema,
		EducationLevelSchema,
		EducationSchema,
		EmployeeSchema,
		DateSchema,
		EmployerIndustryFieldSchema,
		EmployeeEducationSchema,
		StandardJobRoleHierarchySchema,
	}
}

// Lookup returns the schema for an entity name.
func Lookup(entity string) (*dimension.Schema, bool) {
	for _, s := range All() {
		if s.Entity == entity {
			return s, true
		}
	}
	return nil, false
}

// Repositories holds one typed repository per dimension over a shared
// backend.
type Repositories struct {
	FederalDistricts *dimension.Repository[FederalDistrict]
	Oblasts          *dimension.Repository[Oblast]
	Cities           *dimension.Repository[City]
	IndustryFields   *dimension.Repository[IndustryField]
	Employers        *dimension.Repository[Employer]
	StandardJobRoles *dimension.Repository[StandardJobRole]
	HierarchyLevels  *dimension.Repository[HierarchyLevel]
	JobRoles         *dimension.Repository[JobRole]
	EducationLevels  *dimension.Repository[EducationLevel]
	Educations       *dimension.Repository[Education]
	Employees        *dimension.Repository[Employee]
	Dates            *dimension.Repository[Date]

	EmployerIndustryFields     *dimension.Repository[EmployerIndustryField]
	EmployeeEducations         *dimension.Repository[EmployeeEducation]
	StandardJobRoleHierarchies *dimension.Repository[StandardJobRoleHierarchy]
}

// NewRepositories binds every dimension to b.
func NewRepositories(b dimension.Backend) *Repositories {
	return &Repositories{
		FederalDistricts: dimension.NewRepository(b, FederalDistrictSchema, FederalDistrictMapper),
		Oblasts:          dimension.NewRepository(b, OblastSchema, OblastMapper),
		Cities:           dimension.NewRepository(b, CitySchema, CityMapper),
		IndustryFields:   dimension.NewRepository(b, IndustryFieldSchema, IndustryFieldMapper),
		Employers:        dimension.NewRepository(b, EmployerSchema, EmployerMapper),
		StandardJobRoles: dimension.NewRepository(b, StandardJobRoleSchema, StandardJobRoleMapper),
		HierarchyLevels:  dimension.NewRepository(b, HierarchyLevelSchema, HierarchyLevelMapper),
		JobRoles:         dimension.NewRepository(b, JobRoleSchema, JobRoleMapper),
		EducationLevels:  dimension.NewRepository(b, EducationLevelSchema, EducationLevelMapper),
		Educations:       dimension.NewRepository(b, EducationSchema, EducationMapper),
		Employees:        dimension.NewRepository(b, EmployeeSchema, EmployeeMapper),
		Dates:            dimension.NewRepository(b, DateSchema, DateMapper),

		EmployerIndustryFields:     dimension.NewRepository(b, EmployerIndustryFieldSchema, EmployerIndustryFieldMapper),
		EmployeeEducations:         dimension.NewRepository(b, EmployeeEducationSchema, EmployeeEducationMapper),
		StandardJobRoleHierarchies: dimension.NewRepository(b, StandardJobRoleHierarchySchema, StandardJobRoleHierarchyMapper),
	}
}

package catalog

import "github.com/jacentio/dimstore/dimension"

// StandardJobRole is a normalized job role within an industry field.
type StandardJobRole struct {
	ID              int64  `json:"standard_job_role_id"`
	Code            string `json:"standard_job_role_code"`
	Title           string `json:"standard_job_role_title"`
	IndustryFieldID int64  `json:"industry_field_id"`
}

// HierarchyLevel is a seniority grade.
type HierarchyLevel struct {
	ID   int64  `json:"hierarchy_level_id"`
	Code string `json:"hierarchy_level_code"`
	Name string `json:"hierarchy_level_name"`
}

// JobRole is a concrete title at a given standard role and grade.
type JobRole struct {
	ID                int64  `json:"job_role_id"`
	Title             string `json:"job_role_title"`
	StandardJobRoleID int64  `json:"standard_job_role_id"`
	HierarchyLevelID  int64  `json:"hierarchy_level_id"`
}

// StandardJobRoleSchema keys standard job roles by code.
var StandardJobRoleSchema = &dimension.Schema{
	Entity:   "standard_job_role",
	Table:    "dim_standard_job_role",
	Sequence: "standard_job_role_id",
	Fields: []dimension.Field{
		str("standard_job_role_code"),
		str("standard_job_role_title"),
		num("industry_field_id"),
	},
	Unique: []dimension.Constraint{unique("uq_standard_job_role_code", "standard_job_role_code")},
	References: []dimension.Reference{
		{Name: "fk_standard_job_role_industry_field", Field: "industry_field_id", Parent: IndustryFieldSchema},
	},
	Order: []string{"standard_job_role_code"},
}

// HierarchyLevelSchema keys grades by code and, separately, by name.
var HierarchyLevelSchema = &dimension.Schema{
	Entity:   "hierarchy_level",
	Table:    "dim_hierarchy_level",
	Sequence: "hierarchy_level_id",
	Fields:   []dimension.Field{str("hierarchy_level_code"), str("hierarchy_level_name")},
	Unique: []dimension.Constraint{
		unique("uq_hierarchy_level_code", "hierarchy_level_code"),
		unique("uq_hierarchy_level_name", "hierarchy_level_name"),
	},
	Order: []string{"hierarchy_level_code"},
}

// JobRoleSchema keys job roles by title, standard role and grade.
var JobRoleSchema = &dimension.Schema{
	Entity:   "job_role",
	Table:    "dim_job_roles",
	Sequence: "job_role_id",
	Fields: []dimension.Field{
		str("job_role_title"),
		num("standard_job_role_id"),
		num("hierarchy_level_id"),
	},
	Unique: []dimension.Constraint{
		unique("uq_job_role_title_role_level", "job_role_title", "standard_job_role_id", "hierarchy_level_id"),
	},
	References: []dimension.Reference{
		{Name: "fk_job_role_standard_job_role", Field: "standard_job_role_id", Parent: StandardJobRoleSchema},
		{Name: "fk_job_role_hierarchy_level", Field: "hierarchy_level_id", Parent: HierarchyLevelSchema},
	},
	Order: []string{"job_role_title", "standard_job_role_id", "hierarchy_level_id"},
}

// StandardJobRoleToDomain converts a stored record.
func StandardJobRoleToDomain(rec dimension.Record) (StandardJobRole, error) {
	r := newReader(StandardJobRoleSchema.Entity, rec)
	s := StandardJobRole{
		ID:              rec.ID,
		Code:            r.str("standard_job_role_code"),
		Title:           r.str("standard_job_role_title"),
		IndustryFieldID: r.int("industry_field_id"),
	}
	return s, r.err
}

// StandardJobRoleFromDomain converts to a stored record.
func StandardJobRoleFromDomain(s StandardJobRole) dimension.Record {
	return dimension.Record{ID: s.ID, Fields: map[string]dimension.Value{
		"standard_job_role_code":  dimension.String(s.Code),
		"standard_job_role_title": dimension.String(s.Title),
		"industry_field_id":       dimension.Int(s.IndustryFieldID),
	}}
}

// HierarchyLevelToDomain converts a stored record.
func HierarchyLevelToDomain(rec dimension.Record) (HierarchyLevel, error) {
	r := newReader(HierarchyLevelSchema.Entity, rec)
	h := HierarchyLevel{
		ID:   rec.ID,
		Code: r.str("hierarchy_level_code"),
		Name: r.str("hierarchy_level_name"),
	}
	return h, r.err
}

// HierarchyLevelFromDomain converts to a stored record.
func HierarchyLevelFromDomain(h HierarchyLevel) dimension.Record {
	return dimension.Record{ID: h.ID, Fields: map[string]dimension.Value{
		"hierarchy_level_code": dimension.String(h.Code),
		"hierarchy_level_name": dimension.String(h.Name),
	}}
}

// JobRoleToDomain converts a stored record.
func JobRoleToDomain(rec dimension.Record) (JobRole, error) {
	r := newReader(JobRoleSchema.Entity, rec)
	j := JobRole{
		ID:                rec.ID,
		Title:             r.str("job_role_title"),
		StandardJobRoleID: r.int("standard_job_role_id"),
		HierarchyLevelID:  r.int("hierarchy_level_id"),
	}
	return j, r.err
}

// JobRoleFromDomain converts to a stored record.
func JobRoleFromDomain(j JobRole) dimension.Record {
	return dimension.Record{ID: j.ID, Fields: map[string]dimension.Value{
		"job_role_title":       dimension.String(j.Title),
		"standard_job_role_id": dimension.Int(j.StandardJobRoleID),
		"hierarchy_level_id":   dimension.Int(j.HierarchyLevelID),
	}}
}

// Mappers for the job dimensions.
var (
	StandardJobRoleMapper = dimension.Mapper[StandardJobRole]{ToDomain: StandardJobRoleToDomain, FromDomain: StandardJobRoleFromDomain}
	HierarchyLevelMapper  = dimension.Mapper[HierarchyLevel]{ToDomain: HierarchyLevelToDomain, FromDomain: HierarchyLevelFromDomain}
	JobRoleMapper         = dimension.Mapper[JobRole]{ToDomain: JobRoleToDomain, FromDomain: JobRoleFromDomain}
)

package catalog

import "github.com/jacentio/dimstore/dimension"

// FederalDistrict is a federal district of the Russian Federation.
type FederalDistrict struct {
	ID   int64  `json:"district_id"`
	Name string `json:"district_name"`
}

// Oblast is a federal subject within a district.
type Oblast struct {
	ID         int64  `json:"oblast_id"`
	Name       string `json:"oblast_name"`
	DistrictID int64  `json:"district_id"`
}

// City is a settlement within an oblast. Its name is unique per oblast.
type City struct {
	ID       int64  `json:"city_id"`
	Name     string `json:"city_name"`
	OblastID int64  `json:"oblast_id"`
}

// FederalDistrictSchema keys federal districts by name.
var FederalDistrictSchema = &dimension.Schema{
	Entity:   "federal_district",
	Table:    "dim_federal_district",
	Sequence: "district_id",
	Fields:   []dimension.Field{str("district_name")},
	Unique:   []dimension.Constraint{unique("uq_federal_district_name", "district_name")},
	Order:    []string{"district_name"},
}

// OblastSchema keys oblasts by name.
var OblastSchema = &dimension.Schema{
	Entity:   "oblast",
	Table:    "dim_oblast",
	Sequence: "oblast_id",
	Fields:   []dimension.Field{str("oblast_name"), num("district_id")},
	Unique:   []dimension.Constraint{unique("uq_oblast_name", "oblast_name")},
	References: []dimension.Reference{
		{Name: "fk_oblast_district", Field: "district_id", Parent: FederalDistrictSchema},
	},
	Order: []string{"oblast_name"},
}

// CitySchema keys cities by name within their oblast.
var CitySchema = &dimension.Schema{
	Entity:   "city",
	Table:    "dim_cities",
	Sequence: "city_id",
	Fields:   []dimension.Field{str("city_name"), num("oblast_id")},
	Unique:   []dimension.Constraint{unique("uq_city_name_oblast", "city_name", "oblast_id")},
	References: []dimension.Reference{
		{Name: "fk_city_oblast", Field: "oblast_id", Parent: OblastSchema},
	},
	Order: []string{"city_name", "oblast_id"},
}

// FederalDistrictToDomain converts a stored record.
func FederalDistrictToDomain(rec dimension.Record) (FederalDistrict, error) {
	r := newReader(FederalDistrictSchema.Entity, rec)
	d := FederalDistrict{
		ID:   rec.ID,
		Name: r.str("district_name"),
	}
	return d, r.err
}

// FederalDistrictFromDomain converts to a stored record.
func FederalDistrictFromDomain(d FederalDistrict) dimension.Record {
	return dimension.Record{ID: d.ID, Fields: map[string]dimension.Value{
		"district_name": dimension.String(d.Name),
	}}
}

// OblastToDomain converts a stored record.
func OblastToDomain(rec dimension.Record) (Oblast, error) {
	r := newReader(OblastSchema.Entity, rec)
	o := Oblast{
		ID:         rec.ID,
		Name:       r.str("oblast_name"),
		DistrictID: r.int("district_id"),
	}
	return o, r.err
}

// OblastFromDomain converts to a stored record.
func OblastFromDomain(o Oblast) dimension.Record {
	return dimension.Record{ID: o.ID, Fields: map[string]dimension.Value{
		"oblast_name": dimension.String(o.Name),
		"district_id": dimension.Int(o.DistrictID),
	}}
}

// CityToDomain converts a stored record.
func CityToDomain(rec dimension.Record) (City, error) {
	r := newReader(CitySchema.Entity, rec)
	c := City{
		ID:       rec.ID,
		Name:     r.str("city_name"),
		OblastID: r.int("oblast_id"),
	}
	return c, r.err
}

// CityFromDomain converts to a stored record.
func CityFromDomain(c City) dimension.Record {
	return dimension.Record{ID: c.ID, Fields: map[string]dimension.Value{
		"city_name": dimension.String(c.Name),
		"oblast_id": dimension.Int(c.OblastID),
	}}
}

// Mappers for the geography dimensions.
var (
	FederalDistrictMapper = dimension.Mapper[FederalDistrict]{ToDomain: FederalDistrictToDomain, FromDomain: FederalDistrictFromDomain}
	OblastMapper          = dimension.Mapper[Oblast]{ToDomain: OblastToDomain, FromDomain: OblastFromDomain}
	CityMapper            = dimension.Mapper[City]{ToDomain: CityToDomain, FromDomain: CityFromDomain}
)

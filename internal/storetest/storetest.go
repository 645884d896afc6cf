// Package storetest is the behavioural suite every dimension backend must
// pass. Backend packages call Run from their own tests with a harness that
// builds a fresh, empty store with all catalog tables in place.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jacentio/dimstore/catalog"
	"github.com/jacentio/dimstore/dimension"
)

// Harness builds backends under test.
type Harness struct {
	// New returns an empty backend and its sequence store. Both must be
	// backed by the same storage.
	New func(t *testing.T) (dimension.Backend, dimension.SequenceStore)
}

type fixture struct {
	repos    *catalog.Repositories
	seq      dimension.SequenceStore
	district catalog.FederalDistrict
	oblast   catalog.Oblast
	other    catalog.Oblast
}

func (h Harness) fixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	backend, seq := h.New(t)
	f := &fixture{repos: catalog.NewRepositories(backend), seq: seq}

	var err error
	f.district, err = f.repos.FederalDistricts.Add(ctx, catalog.FederalDistrict{Name: "Siberian"})
	require.NoError(t, err)
	f.oblast, err = f.repos.Oblasts.Add(ctx, catalog.Oblast{Name: "Omsk Oblast", DistrictID: f.district.ID})
	require.NoError(t, err)
	f.other, err = f.repos.Oblasts.Add(ctx, catalog.Oblast{Name: "Tomsk Oblast", DistrictID: f.district.ID})
	require.NoError(t, err)
	return f
}

// Run executes the suite.
func Run(t *testing.T, h Harness) {
	t.Run("ConcurrentAllocationsAreDistinct", h.testConcurrentAllocations)
	t.Run("AllocationsStartAtOne", h.testAllocationsStartAtOne)
	t.Run("AddThenGet", h.testAddThenGet)
	t.Run("AddDuplicateNaturalKey", h.testAddDuplicateNaturalKey)
	t.Run("ConcurrentAddsOfOneNaturalKey", h.testConcurrentAdds)
	t.Run("AddWithMissingParent", h.testAddWithMissingParent)
	t.Run("GetMissing", h.testGetMissing)
	t.Run("UpdateMissing", h.testUpdateMissing)
	t.Run("UpdateIntoConflict", h.testUpdateIntoConflict)
	t.Run("UpdateFreesOldNaturalKey", h.testUpdateFreesOldNaturalKey)
	t.Run("UpdateMovesReference", h.testUpdateMovesReference)
	t.Run("DeleteThenGet", h.testDeleteThenGet)
	t.Run("DeleteReferenced", h.testDeleteReferenced)
	t.Run("ListOrderAndFilter", h.testListOrderAndFilter)
	t.Run("ListEmpty", h.testListEmpty)
	t.Run("SecondaryNaturalKey", h.testSecondaryNaturalKey)
	t.Run("DatesRoundTrip", h.testDatesRoundTrip)
	t.Run("LinkPairIsUnique", h.testLinkPairIsUnique)
	t.Run("LinkWithMissingParent", h.testLinkWithMissingParent)
	t.Run("ParentSharedByTwoDimensions", h.testParentSharedByTwoDimensions)
	t.Run("LinkUpdateKeepsPair", h.testLinkUpdateKeepsPair)
}

func (h Harness) testConcurrentAllocations(t *testing.T) {
	_, seq := h.New(t)
	const n = 100

	var (
		mu     sync.Mutex
		values = make([]int64, 0, n)
	)
	g, ctx := errgroup.WithContext(context.Background())
	for range n {
		g.Go(func() error {
			v, err := seq.AllocateNext(ctx, "load_test")
			if err != nil {
				return err
			}
			mu.Lock()
			values = append(values, v)
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	seen := make(map[int64]bool, n)
	for _, v := range values {
		assert.False(t, seen[v], "value %d issued twice", v)
		assert.Positive(t, v)
		seen[v] = true
	}
	assert.Len(t, seen, n)

	c, err := seq.Counter(context.Background(), "load_test")
	require.NoError(t, err)
	assert.Equal(t, int64(n), c.Value)
}

func (h Harness) testAllocationsStartAtOne(t *testing.T) {
	_, seq := h.New(t)
	ctx := context.Background()

	c, err := seq.Counter(ctx, "city_id")
	require.NoError(t, err)
	assert.Equal(t, dimension.SequenceCounter{Name: "city_id", Value: 0}, c)

	first, err := seq.AllocateNext(ctx, "city_id")
	require.NoError(t, err)
	second, err := seq.AllocateNext(ctx, "city_id")
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)

	c, err = seq.Counter(ctx, "city_id")
	require.NoError(t, err)
	assert.Equal(t, dimension.SequenceCounter{Name: "city_id", Value: 2}, c)
}

func (h Harness) testAddThenGet(t *testing.T) {
	f := h.fixture(t)
	ctx := context.Background()

	omsk, err := f.repos.Cities.Add(ctx, catalog.City{Name: "Omsk", OblastID: f.oblast.ID})
	require.NoError(t, err)
	assert.Positive(t, omsk.ID)

	got, err := f.repos.Cities.Get(ctx, omsk.ID)
	require.NoError(t, err)
	assert.Equal(t, omsk, got)

	tara, err := f.repos.Cities.Add(ctx, catalog.City{Name: "Tara", OblastID: f.oblast.ID})
	require.NoError(t, err)
	assert.NotEqual(t, omsk.ID, tara.ID)
}

func (h Harness) testAddDuplicateNaturalKey(t *testing.T) {
	f := h.fixture(t)
	ctx := context.Background()

	first, err := f.repos.Cities.Add(ctx, catalog.City{Name: "Omsk", OblastID: f.oblast.ID})
	require.NoError(t, err)

	_, err = f.repos.Cities.Add(ctx, catalog.City{Name: "Omsk", OblastID: f.oblast.ID})
	var conflict *dimension.ConflictError
	require.True(t, errors.As(err, &conflict), "got %v", err)
	assert.Equal(t, &dimension.ConflictError{
		Entity:     "city",
		Constraint: "uq_city_name_oblast",
		Fields:     []string{"city_name", "oblast_id"},
		Values: map[string]dimension.Value{
			"city_name": dimension.String("Omsk"),
			"oblast_id": dimension.Int(f.oblast.ID),
		},
	}, conflict)

	got, err := f.repos.Cities.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	all, err := f.repos.Cities.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []catalog.City{first}, all)

	// The same name in another oblast is a different city.
	_, err = f.repos.Cities.Add(ctx, catalog.City{Name: "Omsk", OblastID: f.other.ID})
	assert.NoError(t, err)
}

func (h Harness) testConcurrentAdds(t *testing.T) {
	f := h.fixture(t)
	const n = 20

	var (
		mu      sync.Mutex
		won     []catalog.City
		failure []error
	)
	var g errgroup.Group
	for range n {
		g.Go(func() error {
			c, err := f.repos.Cities.Add(context.Background(), catalog.City{Name: "Omsk", OblastID: f.oblast.ID})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failure = append(failure, err)
			} else {
				won = append(won, c)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	require.Len(t, won, 1)
	for _, err := range failure {
		assert.True(t, errors.Is(err, dimension.ErrConflict) || errors.Is(err, dimension.ErrTransient), "got %v", err)
	}

	all, err := f.repos.Cities.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, won, all)
}

func (h Harness) testAddWithMissingParent(t *testing.T) {
	f := h.fixture(t)
	ctx := context.Background()

	_, err := f.repos.Cities.Add(ctx, catalog.City{Name: "Omsk", OblastID: 999})
	var nf *dimension.NotFoundError
	require.True(t, errors.As(err, &nf), "got %v", err)
	assert.Equal(t, dimension.NotFoundError{Entity: "oblast", Key: 999}, *nf)

	all, err := f.repos.Cities.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func (h Harness) testGetMissing(t *testing.T) {
	f := h.fixture(t)

	_, err := f.repos.Cities.Get(context.Background(), 999)
	var nf *dimension.NotFoundError
	require.True(t, errors.As(err, &nf), "got %v", err)
	assert.Equal(t, dimension.NotFoundError{Entity: "city", Key: 999}, *nf)
}

func (h Harness) testUpdateMissing(t *testing.T) {
	f := h.fixture(t)
	ctx := context.Background()

	err := f.repos.Cities.Update(ctx, catalog.City{ID: 999, Name: "Omsk", OblastID: f.oblast.ID})
	var nf *dimension.NotFoundError
	require.True(t, errors.As(err, &nf), "got %v", err)
	assert.Equal(t, dimension.NotFoundError{Entity: "city", Key: 999}, *nf)

	all, err := f.repos.Cities.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func (h Harness) testUpdateIntoConflict(t *testing.T) {
	f := h.fixture(t)
	ctx := context.Background()

	_, err := f.repos.Cities.Add(ctx, catalog.City{Name: "Omsk", OblastID: f.oblast.ID})
	require.NoError(t, err)
	tara, err := f.repos.Cities.Add(ctx, catalog.City{Name: "Tara", OblastID: f.oblast.ID})
	require.NoError(t, err)

	err = f.repos.Cities.Update(ctx, catalog.City{ID: tara.ID, Name: "Omsk", OblastID: f.oblast.ID})
	var conflict *dimension.ConflictError
	require.True(t, errors.As(err, &conflict), "got %v", err)
	assert.Equal(t, "uq_city_name_oblast", conflict.Constraint)

	got, err := f.repos.Cities.Get(ctx, tara.ID)
	require.NoError(t, err)
	assert.Equal(t, tara, got)
}

func (h Harness) testUpdateFreesOldNaturalKey(t *testing.T) {
	f := h.fixture(t)
	ctx := context.Background()

	omsk, err := f.repos.Cities.Add(ctx, catalog.City{Name: "Omsk", OblastID: f.oblast.ID})
	require.NoError(t, err)

	renamed := catalog.City{ID: omsk.ID, Name: "Omsk-1", OblastID: f.oblast.ID}
	require.NoError(t, f.repos.Cities.Update(ctx, renamed))

	got, err := f.repos.Cities.Get(ctx, omsk.ID)
	require.NoError(t, err)
	assert.Equal(t, renamed, got)

	_, err = f.repos.Cities.Add(ctx, catalog.City{Name: "Omsk", OblastID: f.oblast.ID})
	assert.NoError(t, err)

	// A no-op update keeps its own claim.
	assert.NoError(t, f.repos.Cities.Update(ctx, renamed))
}

func (h Harness) testUpdateMovesReference(t *testing.T) {
	f := h.fixture(t)
	ctx := context.Background()

	omsk, err := f.repos.Cities.Add(ctx, catalog.City{Name: "Omsk", OblastID: f.oblast.ID})
	require.NoError(t, err)

	err = f.repos.Cities.Update(ctx, catalog.City{ID: omsk.ID, Name: "Omsk", OblastID: 999})
	var nf *dimension.NotFoundError
	require.True(t, errors.As(err, &nf), "got %v", err)
	assert.Equal(t, dimension.NotFoundError{Entity: "oblast", Key: 999}, *nf)

	require.NoError(t, f.repos.Cities.Update(ctx, catalog.City{ID: omsk.ID, Name: "Omsk", OblastID: f.other.ID}))

	assert.NoError(t, f.repos.Oblasts.Delete(ctx, f.oblast.ID))
	err = f.repos.Oblasts.Delete(ctx, f.other.ID)
	assert.True(t, errors.Is(err, dimension.ErrConflict), "got %v", err)
}

func (h Harness) testDeleteThenGet(t *testing.T) {
	f := h.fixture(t)
	ctx := context.Background()

	omsk, err := f.repos.Cities.Add(ctx, catalog.City{Name: "Omsk", OblastID: f.oblast.ID})
	require.NoError(t, err)
	require.NoError(t, f.repos.Cities.Delete(ctx, omsk.ID))

	_, err = f.repos.Cities.Get(ctx, omsk.ID)
	assert.Equal(t, &dimension.NotFoundError{Entity: "city", Key: omsk.ID}, err)

	err = f.repos.Cities.Delete(ctx, omsk.ID)
	assert.Equal(t, &dimension.NotFoundError{Entity: "city", Key: omsk.ID}, err)

	// The natural key is free again.
	_, err = f.repos.Cities.Add(ctx, catalog.City{Name: "Omsk", OblastID: f.oblast.ID})
	assert.NoError(t, err)
}

func (h Harness) testDeleteReferenced(t *testing.T) {
	f := h.fixture(t)
	ctx := context.Background()

	omsk, err := f.repos.Cities.Add(ctx, catalog.City{Name: "Omsk", OblastID: f.oblast.ID})
	require.NoError(t, err)

	err = f.repos.Oblasts.Delete(ctx, f.oblast.ID)
	var conflict *dimension.ConflictError
	require.True(t, errors.As(err, &conflict), "got %v", err)
	assert.Equal(t, "oblast", conflict.Entity)
	assert.Equal(t, dimension.ConstraintReferenced, conflict.Constraint)
	assert.Equal(t, map[string]dimension.Value{dimension.IDField: dimension.Int(f.oblast.ID)}, conflict.Values)

	_, err = f.repos.Oblasts.Get(ctx, f.oblast.ID)
	require.NoError(t, err)

	require.NoError(t, f.repos.Cities.Delete(ctx, omsk.ID))
	assert.NoError(t, f.repos.Oblasts.Delete(ctx, f.oblast.ID))
}

func (h Harness) testListOrderAndFilter(t *testing.T) {
	f := h.fixture(t)
	ctx := context.Background()

	add := func(name string, oblast int64) catalog.City {
		c, err := f.repos.Cities.Add(ctx, catalog.City{Name: name, OblastID: oblast})
		require.NoError(t, err)
		return c
	}
	tara := add("Tara", f.oblast.ID)
	omsk := add("Omsk", f.oblast.ID)
	tomsk := add("Tomsk", f.other.ID)
	omskB := add("Omsk", f.other.ID)

	all, err := f.repos.Cities.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []catalog.City{omsk, omskB, tara, tomsk}, all)

	inOmsk, err := f.repos.Cities.List(ctx, dimension.Where("oblast_id", dimension.Int(f.oblast.ID)))
	require.NoError(t, err)
	assert.Equal(t, []catalog.City{omsk, tara}, inOmsk)

	byKey, err := f.repos.Cities.List(ctx, dimension.OrderBy(dimension.IDField))
	require.NoError(t, err)
	assert.Equal(t, []catalog.City{tara, omsk, tomsk, omskB}, byKey)

	named, err := f.repos.Cities.List(ctx,
		dimension.Where("city_name", dimension.String("Omsk")),
		dimension.Where("oblast_id", dimension.Int(f.other.ID)),
	)
	require.NoError(t, err)
	assert.Equal(t, []catalog.City{omskB}, named)
}

func (h Harness) testListEmpty(t *testing.T) {
	f := h.fixture(t)

	got, err := f.repos.Cities.List(context.Background(), dimension.Where("city_name", dimension.String("Atlantis")))
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func (h Harness) testSecondaryNaturalKey(t *testing.T) {
	f := h.fixture(t)
	ctx := context.Background()

	first, err := f.repos.Employers.Add(ctx, employer("Sibir Energo", "5501000001", "1025500000001"))
	require.NoError(t, err)

	_, err = f.repos.Employers.Add(ctx, employer("Sibir Energo Holding", "5501000001", "1025500000002"))
	var conflict *dimension.ConflictError
	require.True(t, errors.As(err, &conflict), "got %v", err)
	assert.Equal(t, "employer", conflict.Entity)
	assert.Equal(t, "uq_employer_inn", conflict.Constraint)
	assert.Equal(t, map[string]dimension.Value{"inn": dimension.String("5501000001")}, conflict.Values)

	got, err := f.repos.Employers.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first, got)
}

func (h Harness) testDatesRoundTrip(t *testing.T) {
	f := h.fixture(t)
	ctx := context.Background()

	want := catalog.Employee{
		RefID:           "resp-0001",
		BirthDate:       time.Date(1988, time.February, 29, 0, 0, 0, 0, time.UTC),
		CareerStartDate: time.Date(2010, time.September, 1, 0, 0, 0, 0, time.UTC),
	}
	added, err := f.repos.Employees.Add(ctx, want)
	require.NoError(t, err)
	want.ID = added.ID
	assert.Equal(t, want, added)

	got, err := f.repos.Employees.Get(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	for i := range 3 {
		_, err := f.repos.Employees.Add(ctx, catalog.Employee{
			RefID:           fmt.Sprintf("resp-%04d", i+2),
			BirthDate:       want.BirthDate.AddDate(i+1, 0, 0),
			CareerStartDate: want.CareerStartDate,
		})
		require.NoError(t, err)
	}
	byBirth, err := f.repos.Employees.List(ctx, dimension.OrderBy("birth_date"))
	require.NoError(t, err)
	require.Len(t, byBirth, 4)
	assert.Equal(t, want, byBirth[0])
	for i := 1; i < len(byBirth); i++ {
		assert.True(t, byBirth[i-1].BirthDate.Before(byBirth[i].BirthDate))
	}
}

func employer(name, inn, ogrn string) catalog.Employer {
	return catalog.Employer{
		Name:             name,
		INN:              inn,
		OGRN:             ogrn,
		KPP:              "550101001",
		RegistrationDate: time.Date(2003, time.March, 14, 0, 0, 0, 0, time.UTC),
		HeadAddress:      "Omsk, Lenina 1",
		ContactPhone:     "+7 3812 000000",
		ContactEmail:     "hr@example.com",
	}
}

func (h Harness) testLinkPairIsUnique(t *testing.T) {
	f := h.fixture(t)
	ctx := context.Background()

	energy, err := f.repos.IndustryFields.Add(ctx, catalog.IndustryField{Code: "EN", Name: "Energy"})
	require.NoError(t, err)
	it, err := f.repos.IndustryFields.Add(ctx, catalog.IndustryField{Code: "IT", Name: "Information technology"})
	require.NoError(t, err)
	sibir, err := f.repos.Employers.Add(ctx, employer("Sibir Energo", "5501000001", "1025500000001"))
	require.NoError(t, err)

	first, err := f.repos.EmployerIndustryFields.Add(ctx, catalog.EmployerIndustryField{EmployerID: sibir.ID, IndustryFieldID: energy.ID})
	require.NoError(t, err)

	_, err = f.repos.EmployerIndustryFields.Add(ctx, catalog.EmployerIndustryField{EmployerID: sibir.ID, IndustryFieldID: energy.ID})
	var conflict *dimension.ConflictError
	require.True(t, errors.As(err, &conflict), "got %v", err)
	assert.Equal(t, &dimension.ConflictError{
		Entity:     "employer_industry_field",
		Constraint: "uq_employer_industry_field",
		Fields:     []string{"employer_id", "industry_field_id"},
		Values: map[string]dimension.Value{
			"employer_id":       dimension.Int(sibir.ID),
			"industry_field_id": dimension.Int(energy.ID),
		},
	}, conflict)

	second, err := f.repos.EmployerIndustryFields.Add(ctx, catalog.EmployerIndustryField{EmployerID: sibir.ID, IndustryFieldID: it.ID})
	require.NoError(t, err)

	links, err := f.repos.EmployerIndustryFields.List(ctx, dimension.Where("employer_id", dimension.Int(sibir.ID)))
	require.NoError(t, err)
	assert.Equal(t, []catalog.EmployerIndustryField{first, second}, links)
}

func (h Harness) testLinkWithMissingParent(t *testing.T) {
	f := h.fixture(t)
	ctx := context.Background()

	energy, err := f.repos.IndustryFields.Add(ctx, catalog.IndustryField{Code: "EN", Name: "Energy"})
	require.NoError(t, err)
	sibir, err := f.repos.Employers.Add(ctx, employer("Sibir Energo", "5501000001", "1025500000001"))
	require.NoError(t, err)

	tests := []struct {
		name string
		link catalog.EmployerIndustryField
		want dimension.NotFoundError
	}{
		{"employer", catalog.EmployerIndustryField{EmployerID: 999, IndustryFieldID: energy.ID}, dimension.NotFoundError{Entity: "employer", Key: 999}},
		{"industry field", catalog.EmployerIndustryField{EmployerID: sibir.ID, IndustryFieldID: 998}, dimension.NotFoundError{Entity: "industry_field", Key: 998}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.repos.EmployerIndustryFields.Add(ctx, tt.link)
			var nf *dimension.NotFoundError
			require.True(t, errors.As(err, &nf), "got %v", err)
			assert.Equal(t, tt.want, *nf)
		})
	}

	all, err := f.repos.EmployerIndustryFields.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	// Neither parent gained a reference from the rejected writes.
	assert.NoError(t, f.repos.Employers.Delete(ctx, sibir.ID))
	assert.NoError(t, f.repos.IndustryFields.Delete(ctx, energy.ID))
}

func (h Harness) testParentSharedByTwoDimensions(t *testing.T) {
	f := h.fixture(t)
	ctx := context.Background()

	it, err := f.repos.IndustryFields.Add(ctx, catalog.IndustryField{Code: "IT", Name: "Information technology"})
	require.NoError(t, err)
	swe, err := f.repos.StandardJobRoles.Add(ctx, catalog.StandardJobRole{Code: "SWE", Title: "Software Engineer", IndustryFieldID: it.ID})
	require.NoError(t, err)
	middle, err := f.repos.HierarchyLevels.Add(ctx, catalog.HierarchyLevel{Code: "M", Name: "Middle"})
	require.NoError(t, err)

	grade, err := f.repos.StandardJobRoleHierarchies.Add(ctx, catalog.StandardJobRoleHierarchy{StandardJobRoleID: swe.ID, HierarchyLevelID: middle.ID})
	require.NoError(t, err)
	role, err := f.repos.JobRoles.Add(ctx, catalog.JobRole{Title: "Backend Developer", StandardJobRoleID: swe.ID, HierarchyLevelID: middle.ID})
	require.NoError(t, err)

	require.NoError(t, f.repos.StandardJobRoleHierarchies.Delete(ctx, grade.ID))

	err = f.repos.HierarchyLevels.Delete(ctx, middle.ID)
	assert.True(t, errors.Is(err, dimension.ErrConflict), "got %v", err)
	err = f.repos.StandardJobRoles.Delete(ctx, swe.ID)
	assert.True(t, errors.Is(err, dimension.ErrConflict), "got %v", err)

	require.NoError(t, f.repos.JobRoles.Delete(ctx, role.ID))
	assert.NoError(t, f.repos.HierarchyLevels.Delete(ctx, middle.ID))
	assert.NoError(t, f.repos.StandardJobRoles.Delete(ctx, swe.ID))
}

func (h Harness) testLinkUpdateKeepsPair(t *testing.T) {
	f := h.fixture(t)
	ctx := context.Background()

	master, err := f.repos.EducationLevels.Add(ctx, catalog.EducationLevel{Name: "Master"})
	require.NoError(t, err)
	informatics, err := f.repos.Educations.Add(ctx, catalog.Education{
		SpecialtyName: "Applied informatics", SpecialtyCode: "09.04.03", EducationLevelID: master.ID,
	})
	require.NoError(t, err)
	employee, err := f.repos.Employees.Add(ctx, catalog.Employee{
		RefID:           "resp-0001",
		BirthDate:       time.Date(1990, time.June, 1, 0, 0, 0, 0, time.UTC),
		CareerStartDate: time.Date(2013, time.September, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	degree, err := f.repos.EmployeeEducations.Add(ctx, catalog.EmployeeEducation{
		EmployeeID: employee.ID, EducationID: informatics.ID, GraduationYear: 2012,
	})
	require.NoError(t, err)

	degree.GraduationYear = 2013
	require.NoError(t, f.repos.EmployeeEducations.Update(ctx, degree))

	got, err := f.repos.EmployeeEducations.Get(ctx, degree.ID)
	require.NoError(t, err)
	assert.Equal(t, degree, got)

	_, err = f.repos.EmployeeEducations.Add(ctx, catalog.EmployeeEducation{
		EmployeeID: employee.ID, EducationID: informatics.ID, GraduationYear: 2015,
	})
	assert.True(t, errors.Is(err, dimension.ErrConflict), "got %v", err)

	err = f.repos.Employees.Delete(ctx, employee.ID)
	assert.True(t, errors.Is(err, dimension.ErrConflict), "got %v", err)
}

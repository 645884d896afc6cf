package bus

import (
	"context"
	"encoding/json"
	"maps"
	"slices"

	"github.com/cockroachdb/errors"

	"github.com/jacentio/dimstore/catalog"
	"github.com/jacentio/dimstore/dimension"
)

// route runs operations for one entity with JSON in and out.
type route interface {
	create(ctx context.Context, payload json.RawMessage) (int64, error)
	update(ctx context.Context, key int64, payload json.RawMessage) error
	delete(ctx context.Context, key int64) error
	get(ctx context.Context, key int64) (any, error)
	list(ctx context.Context, where map[string]string, orderBy []string) (any, error)
}

type repoRoute[T any] struct {
	repo *dimension.Repository[T]
}

// Register routes messages for the repository's entity to it.
func Register[T any](c *Consumer, repo *dimension.Repository[T]) {
	c.routes[repo.Schema().Entity] = repoRoute[T]{repo: repo}
}

// RegisterCatalog registers every catalog repository.
func RegisterCatalog(c *Consumer, repos *catalog.Repositories) {
	Register(c, repos.FederalDistricts)
	Register(c, repos.Oblasts)
	Register(c, repos.Cities)
	Register(c, repos.IndustryFields)
	Register(c, repos.Employers)
	Register(c, repos.StandardJobRoles)
	Register(c, repos.HierarchyLevels)
	Register(c, repos.JobRoles)
	Register(c, repos.EducationLevels)
	Register(c, repos.Educations)
	Register(c, repos.Employees)
	Register(c, repos.Dates)
	Register(c, repos.EmployerIndustryFields)
	Register(c, repos.EmployeeEducations)
	Register(c, repos.StandardJobRoleHierarchies)
}

func (r repoRoute[T]) decode(payload json.RawMessage) (T, error) {
	var entity T
	if len(payload) == 0 {
		return entity, errors.Mark(errors.Newf("%s: empty payload", r.repo.Schema().Entity), ErrInvalid)
	}
	if err := json.Unmarshal(payload, &entity); err != nil {
		return entity, errors.Mark(errors.Wrapf(err, "%s: decode payload", r.repo.Schema().Entity), ErrInvalid)
	}
	return entity, nil
}

func (r repoRoute[T]) create(ctx context.Context, payload json.RawMessage) (int64, error) {
	entity, err := r.decode(payload)
	if err != nil {
		return 0, err
	}
	added, err := r.repo.Add(ctx, entity)
	if err != nil {
		return 0, err
	}
	return r.repo.Mapper().FromDomain(added).ID, nil
}

// update addresses the entity by key, whatever key the payload carries.
func (r repoRoute[T]) update(ctx context.Context, key int64, payload json.RawMessage) error {
	entity, err := r.decode(payload)
	if err != nil {
		return err
	}
	m := r.repo.Mapper()
	rec := m.FromDomain(entity)
	rec.ID = key
	keyed, err := m.ToDomain(rec)
	if err != nil {
		return errors.Mark(err, ErrInvalid)
	}
	return r.repo.Update(ctx, keyed)
}

func (r repoRoute[T]) delete(ctx context.Context, key int64) error {
	return r.repo.Delete(ctx, key)
}

func (r repoRoute[T]) get(ctx context.Context, key int64) (any, error) {
	return r.repo.Get(ctx, key)
}

func (r repoRoute[T]) list(ctx context.Context, where map[string]string, orderBy []string) (any, error) {
	schema := r.repo.Schema()
	opts := make([]dimension.ListOption, 0, len(where)+1)
	for _, name := range slices.Sorted(maps.Keys(where)) {
		text := where[name]
		f, ok := schema.Field(name)
		if !ok {
			return nil, errors.Mark(errors.Newf("%s: unknown filter field %q", schema.Entity, name), ErrInvalid)
		}
		v, err := dimension.ParseValue(f.Kind, text)
		if err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "%s: filter %q", schema.Entity, name), ErrInvalid)
		}
		opts = append(opts, dimension.Where(name, v))
	}
	if len(orderBy) > 0 {
		opts = append(opts, dimension.OrderBy(orderBy...))
	}
	return r.repo.List(ctx, opts...)
}

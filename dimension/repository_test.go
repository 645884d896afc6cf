package dimension

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type town struct {
	ID     int64
	Name   string
	Region int64
}

var townMapper = Mapper[town]{
	ToDomain: func(r Record) (town, error) {
		return town{ID: r.ID, Name: r.Fields["name"].AsString(), Region: r.Fields["region_id"].AsInt()}, nil
	},
	FromDomain: func(t town) Record {
		rec := townRecord(t.ID, t.Name, t.Region)
		return rec
	},
}

// stubBackend records calls and returns canned results.
type stubBackend struct {
	insertID  int64
	insertErr error
	inserted  []Record
	fetched   []int64
	query     Query
	selected  []Record
	replaced  []Record
	removed   []int64
}

func (b *stubBackend) Insert(_ context.Context, _ *Schema, rec Record) (int64, error) {
	b.inserted = append(b.inserted, rec)
	return b.insertID, b.insertErr
}

func (b *stubBackend) Fetch(_ context.Context, s *Schema, id int64) (Record, error) {
	b.fetched = append(b.fetched, id)
	if id == 999 {
		return Record{}, &NotFoundError{Entity: s.Entity, Key: id}
	}
	return townRecord(id, "Omsk", 2), nil
}

func (b *stubBackend) Select(_ context.Context, _ *Schema, q Query) ([]Record, error) {
	b.query = q
	return b.selected, nil
}

func (b *stubBackend) Replace(_ context.Context, _ *Schema, rec Record) error {
	b.replaced = append(b.replaced, rec)
	return nil
}

func (b *stubBackend) Remove(_ context.Context, _ *Schema, id int64) error {
	b.removed = append(b.removed, id)
	return nil
}

func TestRepository_Add(t *testing.T) {
	b := &stubBackend{insertID: 7}
	repo := NewRepository(b, testTown, townMapper)

	got, err := repo.Add(context.Background(), town{Name: "Omsk", Region: 2})
	require.NoError(t, err)
	assert.Equal(t, town{ID: 7, Name: "Omsk", Region: 2}, got)
	require.Len(t, b.inserted, 1)
	assert.Equal(t, int64(0), b.inserted[0].ID)
}

func TestRepository_Add_RejectsPreassignedKey(t *testing.T) {
	b := &stubBackend{insertID: 7}
	repo := NewRepository(b, testTown, townMapper)

	_, err := repo.Add(context.Background(), town{ID: 3, Name: "Omsk", Region: 2})
	assert.True(t, errors.Is(err, ErrInvalidRecord))
	assert.Empty(t, b.inserted)
}

func TestRepository_Add_NonPositiveKeyIsNeverSuccess(t *testing.T) {
	for _, id := range []int64{0, -1} {
		b := &stubBackend{insertID: id}
		repo := NewRepository(b, testTown, townMapper)

		got, err := repo.Add(context.Background(), town{Name: "Omsk", Region: 2})
		require.Error(t, err)
		assert.True(t, errors.HasAssertionFailure(err))
		assert.Equal(t, town{}, got)
	}
}

func TestRepository_Add_PropagatesBackendError(t *testing.T) {
	cause := &TransientError{Entity: "town", Op: "allocate", Err: errors.New("timeout")}
	b := &stubBackend{insertID: 0, insertErr: cause}
	repo := NewRepository(b, testTown, townMapper)

	_, err := repo.Add(context.Background(), town{Name: "Omsk", Region: 2})
	assert.Same(t, cause, err)
}

func TestRepository_NonPositiveKeys(t *testing.T) {
	b := &stubBackend{}
	repo := NewRepository(b, testTown, townMapper)
	ctx := context.Background()

	_, err := repo.Get(ctx, 0)
	assert.True(t, errors.Is(err, ErrNotFound))

	err = repo.Update(ctx, town{ID: 0, Name: "Omsk", Region: 2})
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, int64(0), nf.Key)

	assert.True(t, errors.Is(repo.Delete(ctx, -5), ErrNotFound))

	assert.Empty(t, b.fetched)
	assert.Empty(t, b.replaced)
	assert.Empty(t, b.removed)
}

func TestRepository_GetUpdateDelete(t *testing.T) {
	b := &stubBackend{}
	repo := NewRepository(b, testTown, townMapper)
	ctx := context.Background()

	got, err := repo.Get(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, town{ID: 4, Name: "Omsk", Region: 2}, got)

	_, err = repo.Get(ctx, 999)
	assert.Equal(t, &NotFoundError{Entity: "town", Key: 999}, err)

	require.NoError(t, repo.Update(ctx, town{ID: 4, Name: "Tara", Region: 2}))
	require.Len(t, b.replaced, 1)
	assert.Equal(t, String("Tara"), b.replaced[0].Fields["name"])

	require.NoError(t, repo.Delete(ctx, 4))
	assert.Equal(t, []int64{4}, b.removed)
}

func TestRepository_List(t *testing.T) {
	b := &stubBackend{}
	repo := NewRepository(b, testTown, townMapper)
	ctx := context.Background()

	got, err := repo.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, []string{"name", "region_id", IDField}, b.query.OrderBy)

	b.selected = []Record{townRecord(2, "Omsk", 2), townRecord(1, "Tara", 2)}
	got, err = repo.List(ctx, Where("region_id", Int(2)), OrderBy("founded", IDField))
	require.NoError(t, err)
	assert.Equal(t, []town{{ID: 2, Name: "Omsk", Region: 2}, {ID: 1, Name: "Tara", Region: 2}}, got)
	assert.Equal(t, []Condition{{Field: "region_id", Value: Int(2)}}, b.query.Where)
	assert.Equal(t, []string{"founded", IDField}, b.query.OrderBy)
}

func TestRepository_List_RejectsUnknownFields(t *testing.T) {
	repo := NewRepository(&stubBackend{}, testTown, townMapper)
	ctx := context.Background()

	_, err := repo.List(ctx, Where("population", Int(1)))
	assert.True(t, errors.Is(err, ErrInvalidRecord))

	_, err = repo.List(ctx, Where("region_id", String("2")))
	assert.True(t, errors.Is(err, ErrInvalidRecord))

	_, err = repo.List(ctx, OrderBy("population"))
	assert.True(t, errors.Is(err, ErrInvalidRecord))
}

package regions

import (
	"context"
	"sort"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/aqp/internal/platform/db"
)

func pageOf(start, length int) db.Page {
	return db.Page{Start: start, Length: length}
}

type memoryStore struct {
	regions []Region
}

func (m *memoryStore) Get(ctx context.Context, name string) (Region, error) {
	for _, r := range m.regions {
		if r.Name == name {
			return r, nil
		}
	}
	return Region{}, ErrNotFound
}

func (m *memoryStore) All(ctx context.Context) ([]Region, error) {
	return append([]Region(nil), m.regions...), nil
}

func (m *memoryStore) Roots(ctx context.Context) ([]string, error) {
	var roots []string
	for _, r := range m.regions {
		if r.Parent == "" {
			roots = append(roots, r.Name)
		}
	}
	return roots, nil
}

func (m *memoryStore) List(ctx context.Context, params ListParams) ([]Region, int, error) {
	var out []Region
	for _, r := range m.regions {
		if params.Parent != "" && r.Parent != params.Parent {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	total := len(out)
	end := params.Page.Start + params.Page.Length
	if end > total {
		end = total
	}
	if params.Page.Start >= total {
		return nil, total, nil
	}
	return out[params.Page.Start:end], total, nil
}

func (m *memoryStore) Insert(ctx context.Context, region Region) (Region, error) {
	for _, r := range m.regions {
		if r.Name == region.Name {
			return Region{}, ErrDuplicate
		}
	}
	m.regions = append(m.regions, region)
	return region, nil
}

func TestEnsureRootCreatesGlobalOnce(t *testing.T) {
	store := &memoryStore{}
	svc := NewService(store)

	name, created, err := svc.EnsureRoot(context.Background())
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, RootName, name)

	name, created, err = svc.EnsureRoot(context.Background())
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, RootName, name)
	require.Len(t, store.regions, 1)
}

func TestCreateValidatesHierarchy(t *testing.T) {
	store := &memoryStore{regions: []Region{{Name: "Global", RegionName: "Global"}}}
	svc := NewService(store)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{RegionName: "Second root"})
	require.ErrorIs(t, err, ErrMultipleRoots)

	_, err = svc.Create(ctx, CreateInput{RegionName: "Lahore", Parent: "Punjab"})
	require.ErrorIs(t, err, ErrParentNotFound)

	_, err = svc.Create(ctx, CreateInput{RegionName: "Karachi", Parent: "Global", Timezone: "Mars/Olympus"})
	require.ErrorIs(t, err, ErrInvalidZone)

	var verrs validator.ValidationErrors
	_, err = svc.Create(ctx, CreateInput{RegionName: "  ", Parent: "Global"})
	require.ErrorAs(t, err, &verrs)

	created, err := svc.Create(ctx, CreateInput{RegionName: " Pakistan ", Parent: "Global", Type: "Country", Timezone: "Asia/Karachi"})
	require.NoError(t, err)
	require.Equal(t, "Pakistan", created.Name)

	tree, err := svc.Tree(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"Pakistan", "Global"}, tree.BottomUp())

	root, err := svc.Root(ctx)
	require.NoError(t, err)
	require.Equal(t, "Global", root)

	ok, err := svc.Exists(ctx, "Pakistan")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = svc.Exists(ctx, "India")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestListPaginates(t *testing.T) {
	store := &memoryStore{regions: []Region{
		{Name: "Global"},
		{Name: "A", Parent: "Global"},
		{Name: "B", Parent: "Global"},
		{Name: "C", Parent: "Global"},
	}}
	svc := NewService(store)

	res, err := svc.List(context.Background(), ListParams{Parent: "Global"})
	require.NoError(t, err)
	require.Equal(t, 3, res.Pagination.Count)
	require.Equal(t, 20, res.Pagination.Length)

	res, err = svc.List(context.Background(), ListParams{Parent: "Global", Page: pageOf(2, 2)})
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	require.Equal(t, "C", res.Data[0].Name)
	require.Equal(t, 3, res.Pagination.TotalCount)
}

func TestEnabledSkipsDisabled(t *testing.T) {
	store := &memoryStore{regions: []Region{
		{Name: "Global"},
		{Name: "A", Parent: "Global", Disabled: true},
		{Name: "B", Parent: "Global"},
	}}
	got, err := NewService(store).Enabled(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "B", got[1].Name)
	require.Len(t, store.regions, 3)
}

package monitors

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	monitors []Monitor
	bounds   map[string][2]*time.Time
	lastList ListParams
}

func (m *memoryStore) Get(ctx context.Context, name string) (Monitor, error) {
	for _, mon := range m.monitors {
		if mon.Name == name {
			return mon, nil
		}
	}
	return Monitor{}, ErrNotFound
}

func (m *memoryStore) Insert(ctx context.Context, mon Monitor) (Monitor, error) {
	for _, existing := range m.monitors {
		if existing.Name == mon.Name {
			return Monitor{}, ErrDuplicate
		}
	}
	m.monitors = append(m.monitors, mon)
	return mon, nil
}

func (m *memoryStore) List(ctx context.Context, params ListParams) ([]Monitor, int, error) {
	m.lastList = params
	var out []Monitor
	for _, mon := range m.monitors {
		if mon.Disabled {
			continue
		}
		if params.FirstReadingBefore != nil && (mon.FirstReadingDT == nil || mon.FirstReadingDT.After(*params.FirstReadingBefore)) {
			continue
		}
		out = append(out, mon)
	}
	return out, len(out), nil
}

func (m *memoryStore) DirectMonitors(ctx context.Context, region string) ([]string, error) {
	var out []string
	for _, mon := range m.monitors {
		if mon.Region == region && !mon.Disabled {
			out = append(out, mon.Name)
		}
	}
	return out, nil
}

func (m *memoryStore) InRegions(ctx context.Context, regions []string) ([]string, error) {
	var out []string
	for _, region := range regions {
		names, _ := m.DirectMonitors(ctx, region)
		out = append(out, names...)
	}
	return out, nil
}

func (m *memoryStore) RefreshReadingBounds(ctx context.Context, name string) (*time.Time, *time.Time, error) {
	b := m.bounds[name]
	return b[0], b[1], nil
}

type regionSet map[string]bool

func (r regionSet) Exists(ctx context.Context, name string) (bool, error) {
	return r[name], nil
}

func TestCleanWhitespace(t *testing.T) {
	require.Equal(t, "Model Town Lahore", CleanWhitespace("  Model \t Town\n Lahore "))
	require.Equal(t, "", CleanWhitespace(" \t "))
	// decomposed e + combining acute becomes the precomposed form
	require.Equal(t, "Caf\u00e9", CleanWhitespace("Cafe\u0301"))
}

func TestCreateCleansFields(t *testing.T) {
	store := &memoryStore{}
	svc := NewService(store, regionSet{"Lahore": true})

	created, err := svc.Create(context.Background(), CreateInput{
		Name:        "AM-0001",
		MonitorName: "  Gulberg   III ",
		Region:      "Lahore",
		City:        " Lahore ",
		SerialNo:    " SN  42 ",
	})
	require.NoError(t, err)
	require.Equal(t, "Gulberg III", created.MonitorName)
	require.Equal(t, "Lahore", created.City)
	require.Equal(t, "SN 42", created.SerialNo)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	svc := NewService(&memoryStore{}, regionSet{})
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Name: "AM-1", MonitorName: "X", Region: "Nowhere"})
	require.ErrorIs(t, err, ErrRegionNotFound)

	lat := 123.0
	var verrs validator.ValidationErrors
	_, err = svc.Create(ctx, CreateInput{Name: "AM-1", MonitorName: "X", Latitude: &lat})
	require.ErrorAs(t, err, &verrs)

	_, err = svc.Create(ctx, CreateInput{Name: " ", MonitorName: "X"})
	require.ErrorAs(t, err, &verrs)
}

func TestOnlineAtFiltersByFirstReading(t *testing.T) {
	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	store := &memoryStore{monitors: []Monitor{
		{Name: "a", FirstReadingDT: &early},
		{Name: "b", FirstReadingDT: &late},
		{Name: "c"},
		{Name: "d", FirstReadingDT: &early, Disabled: true},
	}}
	svc := NewService(store, nil)

	got, err := svc.OnlineAt(context.Background(), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "a", got[0].Name)
	require.Equal(t, "created_at", store.lastList.SortBy)
	require.Zero(t, store.lastList.Page.Length)
}

func TestListAppliesDefaultPage(t *testing.T) {
	store := &memoryStore{monitors: []Monitor{{Name: "a"}, {Name: "b"}}}
	res, err := NewService(store, nil).List(context.Background(), ListParams{})
	require.NoError(t, err)
	require.Equal(t, 2, res.Pagination.Count)
	require.Equal(t, 20, res.Pagination.Length)
	require.Equal(t, 20, store.lastList.Page.Length)
}

package report

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViewStore(t *testing.T) (*ViewStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewViewStore(client, time.Hour), mr
}

func TestViewStoreRoundTrip(t *testing.T) {
	store, mr := newViewStore(t)
	ctx := context.Background()

	v := NewViewState(DefaultFilters(), Result{Columns: periodTable().Columns})
	v.Checked = []int{1}
	require.NoError(t, store.Save(ctx, v))
	assert.False(t, v.UpdatedAt.IsZero())
	assert.Equal(t, time.Hour, mr.TTL(viewKey(v.ID)))

	got, err := store.Load(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, v.ID, got.ID)
	assert.Equal(t, []int{1}, got.Checked)
	assert.Equal(t, v.Result.Columns, got.Result.Columns)
}

func TestViewStoreExpiry(t *testing.T) {
	store, mr := newViewStore(t)
	ctx := context.Background()

	v := NewViewState(DefaultFilters(), Result{})
	require.NoError(t, store.Save(ctx, v))
	mr.FastForward(2 * time.Hour)

	_, err := store.Load(ctx, v.ID)
	assert.ErrorIs(t, err, ErrViewNotFound)
}

func TestViewStoreRejectsMalformedID(t *testing.T) {
	store, _ := newViewStore(t)
	_, err := store.Load(context.Background(), "../../etc")
	assert.ErrorIs(t, err, ErrViewNotFound)
}

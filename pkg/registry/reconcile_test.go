package registry_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churchly/backend/pkg/registry"
)

func mustParse(t *testing.T, doc string) *registry.Catalog {
	t.Helper()
	c, err := registry.Parse(strings.NewReader(doc))
	require.NoError(t, err)
	return c
}

func TestReconcile_UpsertsAndPrunes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := registry.NewMemoryStore()
	require.NoError(t, store.Upsert(ctx, registry.KindPermission, []registry.Entry{
		{Key: "members.view", Name: "old name"},
		{Key: "legacy.export"},
	}))

	res, err := registry.Reconcile(ctx, store, mustParse(t, catalogYAML))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Upserted[registry.KindPermission])
	assert.Equal(t, 2, res.Upserted[registry.KindFeature])
	assert.Equal(t, []string{"legacy.export"}, res.Pruned[registry.KindPermission])

	keys, err := store.Keys(ctx, registry.KindPermission)
	require.NoError(t, err)
	assert.Equal(t, []string{"members.manage", "members.view"}, keys)

	view, ok := store.Get(registry.KindPermission, "members.view")
	require.True(t, ok)
	assert.Equal(t, "View members", view.Name)
}

func TestReconcile_IsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := registry.NewMemoryStore()
	c := mustParse(t, catalogYAML)

	_, err := registry.Reconcile(ctx, store, c)
	require.NoError(t, err)
	res, err := registry.Reconcile(ctx, store, c)
	require.NoError(t, err)
	assert.Empty(t, res.Pruned)

	keys, err := store.Keys(ctx, registry.KindFeature)
	require.NoError(t, err)
	assert.Equal(t, []string{"custom_domains", "sms"}, keys)
}

func TestReconcile_WithoutPrune(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := registry.NewMemoryStore()
	require.NoError(t, store.Upsert(ctx, registry.KindFeature, []registry.Entry{{Key: "retired"}}))

	_, err := registry.Reconcile(ctx, store, mustParse(t, catalogYAML), registry.WithoutPrune())
	require.NoError(t, err)

	_, ok := store.Get(registry.KindFeature, "retired")
	assert.True(t, ok)
}

func TestReconcile_EmptyCatalogPrunesEverything(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := registry.NewMemoryStore()
	require.NoError(t, store.Upsert(ctx, registry.KindPermission, []registry.Entry{{Key: "a"}}))

	_, err := registry.Reconcile(ctx, store, mustParse(t, ""))
	require.NoError(t, err)

	keys, err := store.Keys(ctx, registry.KindPermission)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

type failingStore struct {
	*registry.MemoryStore
}

func (failingStore) Upsert(context.Context, registry.Kind, []registry.Entry) error {
	return errors.New("connection reset")
}

func TestReconcile_StoreError(t *testing.T) {
	t.Parallel()

	_, err := registry.Reconcile(context.Background(), failingStore{registry.NewMemoryStore()}, mustParse(t, catalogYAML))
	assert.ErrorContains(t, err, "upsert permission rows")
}

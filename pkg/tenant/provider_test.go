package tenant_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/churchly/backend/pkg/tenant"
)

func TestMemoryProvider(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	provider, grace, hope := fixtureProvider()

	got, err := provider.GetByID(ctx, grace.ID)
	require.NoError(t, err)
	assert.Equal(t, "grace", got.Slug)

	got, err = provider.GetByIdentifier(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, hope.ID, got.ID)

	got, err = provider.GetByIdentifier(ctx, hope.UUID.String())
	require.NoError(t, err)
	assert.Equal(t, hope.ID, got.ID)

	got, err = provider.GetByIdentifier(ctx, "grace")
	require.NoError(t, err)
	assert.Equal(t, grace.ID, got.ID)

	got, err = provider.GetByHostname(ctx, "GIVING.gracechurch.org:443")
	require.NoError(t, err)
	assert.Equal(t, grace.ID, got.ID)

	_, err = provider.GetBySlug(ctx, "missing")
	assert.ErrorIs(t, err, tenant.ErrTenantNotFound)
	_, err = provider.GetByHostname(ctx, "unknown.org")
	assert.ErrorIs(t, err, tenant.ErrTenantNotFound)
	_, err = provider.GetByIdentifier(ctx, "404")
	assert.ErrorIs(t, err, tenant.ErrTenantNotFound)

	got.Name = "mutated"
	again, _ := provider.GetByID(ctx, grace.ID)
	assert.NotEqual(t, "mutated", again.Name)
}

func TestCachedProvider(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("caches successful lookups", func(t *testing.T) {
		t.Parallel()

		grace := createTestTenant(1, "grace", true)
		next := &mockProvider{}
		next.On("GetBySlug", mock.Anything, "grace").Return(grace, nil).Once()

		cache := tenant.NewInMemoryCache()
		defer cache.Close()

		provider := tenant.NewCachedProvider(next, cache, time.Minute, nil)
		for range 3 {
			got, err := provider.GetBySlug(ctx, "grace")
			require.NoError(t, err)
			assert.Equal(t, grace.ID, got.ID)
		}
		next.AssertExpectations(t)
	})

	t.Run("does not cache misses", func(t *testing.T) {
		t.Parallel()

		next := &mockProvider{}
		next.On("GetByHostname", mock.Anything, "unknown.org").Return(nil, tenant.ErrTenantNotFound).Twice()

		cache := tenant.NewInMemoryCache()
		defer cache.Close()

		provider := tenant.NewCachedProvider(next, cache, time.Minute, nil)
		for range 2 {
			_, err := provider.GetByHostname(ctx, "unknown.org")
			assert.ErrorIs(t, err, tenant.ErrTenantNotFound)
		}
		next.AssertExpectations(t)
	})

	t.Run("propagates provider errors", func(t *testing.T) {
		t.Parallel()

		dbErr := errors.New("timeout")
		next := &mockProvider{}
		next.On("GetByID", mock.Anything, int64(1)).Return(nil, dbErr)

		provider := tenant.NewCachedProvider(next, nil, 0, nil)
		_, err := provider.GetByID(ctx, 1)
		assert.ErrorIs(t, err, dbErr)
	})

	t.Run("invalidate evicts every key of the tenant", func(t *testing.T) {
		t.Parallel()

		grace := createTestTenant(1, "grace", true)
		suspended := *grace
		suspended.Status = tenant.StatusSuspended

		next := &mockProvider{}
		next.On("GetByID", mock.Anything, int64(1)).Return(grace, nil).Once()
		next.On("GetBySlug", mock.Anything, "grace").Return(grace, nil).Once()
		next.On("GetByHostname", mock.Anything, "giving.gracechurch.org").Return(grace, nil).Once()

		cache := tenant.NewInMemoryCache()
		defer cache.Close()
		provider := tenant.NewCachedProvider(next, cache, time.Minute, nil)

		_, _ = provider.GetByID(ctx, 1)
		_, _ = provider.GetBySlug(ctx, "grace")
		_, _ = provider.GetByHostname(ctx, "giving.gracechurch.org")

		require.NoError(t, provider.Invalidate(ctx, grace, "Giving.GraceChurch.org"))

		next.On("GetByID", mock.Anything, int64(1)).Return(&suspended, nil).Once()
		next.On("GetBySlug", mock.Anything, "grace").Return(&suspended, nil).Once()
		next.On("GetByHostname", mock.Anything, "giving.gracechurch.org").Return(&suspended, nil).Once()

		got, err := provider.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.False(t, got.Active())
		got, err = provider.GetBySlug(ctx, "grace")
		require.NoError(t, err)
		assert.False(t, got.Active())
		got, err = provider.GetByHostname(ctx, "giving.gracechurch.org")
		require.NoError(t, err)
		assert.False(t, got.Active())

		next.AssertExpectations(t)
	})

	t.Run("identifier keys ignore uuid case", func(t *testing.T) {
		t.Parallel()

		grace := createTestTenant(1, "grace", true)
		suspended := *grace
		suspended.Status = tenant.StatusSuspended
		upper := strings.ToUpper(grace.UUID.String())

		next := &mockProvider{}
		next.On("GetByIdentifier", mock.Anything, upper).Return(grace, nil).Once()

		cache := tenant.NewInMemoryCache()
		defer cache.Close()
		provider := tenant.NewCachedProvider(next, cache, time.Minute, nil)

		got, err := provider.GetByIdentifier(ctx, upper)
		require.NoError(t, err)
		assert.True(t, got.Active())

		got, err = provider.GetByIdentifier(ctx, grace.UUID.String())
		require.NoError(t, err)
		assert.Equal(t, grace.ID, got.ID, "served from the same entry")

		require.NoError(t, provider.Invalidate(ctx, grace))

		next.On("GetByIdentifier", mock.Anything, upper).Return(&suspended, nil).Once()
		got, err = provider.GetByIdentifier(ctx, upper)
		require.NoError(t, err)
		assert.False(t, got.Active())

		next.AssertExpectations(t)
	})
}

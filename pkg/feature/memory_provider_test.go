package feature_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churchly/backend/pkg/feature"
)

func TestMemoryProvider_IsEnabled(t *testing.T) {
	t.Parallel()

	p, err := feature.NewMemoryProvider(
		&feature.Flag{Name: "global", Enabled: true},
		&feature.Flag{Name: "off", Enabled: false, Strategy: feature.NewAlwaysOnStrategy()},
		&feature.Flag{
			Name:     "growth_only",
			Enabled:  true,
			Strategy: feature.NewTenantStrategy(feature.TenantCriteria{Plans: []string{"growth"}}),
		},
	)
	require.NoError(t, err)

	ctx := bound(1, "grace", "growth")

	on, err := p.IsEnabled(ctx, "global")
	require.NoError(t, err)
	assert.True(t, on)

	on, err = p.IsEnabled(ctx, "off")
	require.NoError(t, err)
	assert.False(t, on)

	on, err = p.IsEnabled(ctx, "growth_only")
	require.NoError(t, err)
	assert.True(t, on)

	on, err = p.IsEnabled(bound(2, "hope", "starter"), "growth_only")
	require.NoError(t, err)
	assert.False(t, on)

	_, err = p.IsEnabled(ctx, "missing")
	assert.ErrorIs(t, err, feature.ErrFlagNotFound)
}

func TestMemoryProvider_CRUD(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p, err := feature.NewMemoryProvider()
	require.NoError(t, err)

	require.NoError(t, p.CreateFlag(ctx, &feature.Flag{Name: "sms", Tags: []string{"beta"}}))
	assert.ErrorIs(t, p.CreateFlag(ctx, &feature.Flag{Name: "sms"}), feature.ErrFlagAlreadyExists)
	assert.ErrorIs(t, p.CreateFlag(ctx, &feature.Flag{}), feature.ErrInvalidFlag)
	assert.ErrorIs(t, p.CreateFlag(ctx, nil), feature.ErrInvalidFlag)

	flag, err := p.GetFlag(ctx, "sms")
	require.NoError(t, err)
	created := flag.CreatedAt
	assert.False(t, created.IsZero())

	flag.Tags[0] = "mutated"
	again, err := p.GetFlag(ctx, "sms")
	require.NoError(t, err)
	assert.Equal(t, []string{"beta"}, again.Tags)

	require.NoError(t, p.UpdateFlag(ctx, &feature.Flag{Name: "sms", Enabled: true}))
	updated, err := p.GetFlag(ctx, "sms")
	require.NoError(t, err)
	assert.True(t, updated.Enabled)
	assert.Equal(t, created, updated.CreatedAt)

	assert.ErrorIs(t, p.UpdateFlag(ctx, &feature.Flag{Name: "nope"}), feature.ErrFlagNotFound)

	require.NoError(t, p.DeleteFlag(ctx, "sms"))
	assert.ErrorIs(t, p.DeleteFlag(ctx, "sms"), feature.ErrFlagNotFound)
}

func TestMemoryProvider_ListFlags(t *testing.T) {
	t.Parallel()

	p, err := feature.NewMemoryProvider(
		&feature.Flag{Name: "b", Tags: []string{"beta"}},
		&feature.Flag{Name: "a", Tags: []string{"beta", "giving"}},
		&feature.Flag{Name: "c"},
	)
	require.NoError(t, err)

	all, err := p.ListFlags(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].Name)

	giving, err := p.ListFlags(context.Background(), "giving")
	require.NoError(t, err)
	require.Len(t, giving, 1)
	assert.Equal(t, "a", giving[0].Name)
}

func TestMemoryProvider_Close(t *testing.T) {
	t.Parallel()

	p, err := feature.NewMemoryProvider(&feature.Flag{Name: "x", Enabled: true})
	require.NoError(t, err)
	require.NoError(t, p.Close())

	assert.ErrorIs(t, p.CreateFlag(context.Background(), &feature.Flag{Name: "y"}), feature.ErrProviderClosed)
	on, err := p.IsEnabled(context.Background(), "x")
	require.NoError(t, err)
	assert.True(t, on)
}

package limits_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churchly/backend/pkg/limits"
)

const catalogYAML = `
permissions:
  - members.view
plans:
  - id: starter
    name: Starter
    public: true
    trial_days: 14
    limits:
      members: 100
      domains: 0
  - id: growth
    name: Growth
    limits:
      members: -1
      domains: 3
    features: [custom_domains, online_giving]
`

func TestParsePlans(t *testing.T) {
	t.Parallel()

	plans, err := limits.ParsePlans(strings.NewReader(catalogYAML))
	require.NoError(t, err)
	require.Len(t, plans, 2)

	starter := plans["starter"]
	assert.True(t, starter.Public)
	assert.Equal(t, 14, starter.TrialDays)
	assert.EqualValues(t, 100, starter.Limits[limits.ResourceMembers])
	assert.EqualValues(t, 0, starter.Limits[limits.ResourceDomains])

	growth := plans["growth"]
	assert.Equal(t, limits.Unlimited, growth.Limits[limits.ResourceMembers])
	assert.True(t, growth.HasFeature(limits.FeatureCustomDomains))
	assert.False(t, growth.HasFeature(limits.FeatureSMS))
}

func TestParsePlans_Invalid(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"missing id": "plans:\n  - name: x\n",
		"duplicate":  "plans:\n  - id: a\n  - id: a\n",
		"malformed":  "plans: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := limits.ParsePlans(strings.NewReader(doc))
			assert.ErrorIs(t, err, limits.ErrInvalidPlanConfiguration)
		})
	}
}

func TestParsePlans_Empty(t *testing.T) {
	t.Parallel()

	plans, err := limits.ParsePlans(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestYAMLSource(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0o600))

	g, err := limits.NewGate(context.Background(), limits.NewYAMLSource(path), nil)
	require.NoError(t, err)
	assert.NoError(t, g.VerifyPlan("growth"))

	_, err = limits.NewGate(context.Background(), limits.NewYAMLSource(filepath.Join(t.TempDir(), "missing.yaml")), nil)
	assert.ErrorIs(t, err, limits.ErrFailedToLoadPlans)
}

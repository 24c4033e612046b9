package registry_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churchly/backend/pkg/registry"
	"github.com/churchly/backend/pkg/tenant"
)

const catalogYAML = `
permissions:
  - key: members.view
    name: View members
    group: members
  - key: members.manage
    group: members
features:
  - key: custom_domains
    description: Serve the church site on its own domain
  - key: sms
    tags: [beta]
    rollout:
      plans: [growth]
      tenants: [7]
plans:
  - id: growth
    name: Growth
    limits:
      members: -1
      domains: 3
    features: [custom_domains]
`

func TestParse(t *testing.T) {
	t.Parallel()

	c, err := registry.Parse(strings.NewReader(catalogYAML))
	require.NoError(t, err)

	perms := c.Entries(registry.KindPermission)
	require.Len(t, perms, 2)
	assert.Equal(t, "members", perms[0].Group)

	features := c.Entries(registry.KindFeature)
	require.Len(t, features, 2)
	assert.Equal(t, "custom_domains", features[0].Key)

	plans := c.PlanMap()
	require.Contains(t, plans, "growth")
	assert.EqualValues(t, 3, plans["growth"].Limits["domains"])
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"empty key":          "permissions:\n  - name: x\n",
		"duplicate feature":  "features:\n  - key: a\n  - key: a\n",
		"undeclared feature": "plans:\n  - id: p\n    features: [ghost]\n",
		"malformed":          "features: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := registry.Parse(strings.NewReader(doc))
			assert.ErrorIs(t, err, registry.ErrInvalidCatalog)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0o600))

	c, err := registry.Load(path)
	require.NoError(t, err)
	assert.Len(t, c.Permissions, 2)

	_, err = registry.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestCatalog_Flags(t *testing.T) {
	t.Parallel()

	c, err := registry.Parse(strings.NewReader(catalogYAML))
	require.NoError(t, err)

	flags := c.Flags()
	require.Len(t, flags, 1)
	sms := flags[0]
	assert.Equal(t, "sms", sms.Name)
	assert.True(t, sms.Enabled)
	assert.Equal(t, []string{"beta"}, sms.Tags)

	growth := tenant.WithTenant(context.Background(), &tenant.Tenant{ID: 1, PlanID: "growth"})
	on, err := sms.Strategy.Evaluate(growth)
	require.NoError(t, err)
	assert.True(t, on)

	listed := tenant.WithTenant(context.Background(), &tenant.Tenant{ID: 7, PlanID: "starter"})
	on, err = sms.Strategy.Evaluate(listed)
	require.NoError(t, err)
	assert.True(t, on)

	other := tenant.WithTenant(context.Background(), &tenant.Tenant{ID: 8, PlanID: "starter"})
	on, err = sms.Strategy.Evaluate(other)
	require.NoError(t, err)
	assert.False(t, on)
}

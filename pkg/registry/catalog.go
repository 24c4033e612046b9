package registry

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/churchly/backend/pkg/feature"
	"github.com/churchly/backend/pkg/limits"
)

// Kind names a reconciled table.
type Kind string

const (
	KindPermission Kind = "permission"
	KindFeature    Kind = "feature"
)

// Entry is one declared permission or feature.
type Entry struct {
	Key         string `yaml:"key" json:"key"`
	Name        string `yaml:"name,omitempty" json:"name,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Group       string `yaml:"group,omitempty" json:"group,omitempty"`
}

// FeatureEntry is a declared feature with an optional tenant rollout.
type FeatureEntry struct {
	Entry   `yaml:",inline"`
	Tags    []string                `yaml:"tags,omitempty"`
	Rollout *feature.TenantCriteria `yaml:"rollout,omitempty"`
}

// Catalog is the declarative source of permissions, features and plans.
type Catalog struct {
	Permissions []Entry        `yaml:"permissions"`
	Features    []FeatureEntry `yaml:"features"`
	Plans       []limits.Plan  `yaml:"plans"`
}

// Load reads and validates the catalog file at path.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse decodes and validates a catalog document.
func Parse(r io.Reader) (*Catalog, error) {
	var c Catalog
	if err := yaml.NewDecoder(r).Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Join(ErrInvalidCatalog, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects empty or duplicate keys and plans that reference
// undeclared features.
func (c *Catalog) Validate() error {
	var errs []error

	seen := make(map[string]bool)
	for _, p := range c.Permissions {
		errs = append(errs, checkKey(KindPermission, p.Key, seen))
	}

	seen = make(map[string]bool)
	for _, f := range c.Features {
		errs = append(errs, checkKey(KindFeature, f.Key, seen))
	}

	for _, p := range c.Plans {
		for _, f := range p.Features {
			if !seen[string(f)] {
				errs = append(errs, fmt.Errorf("plan %q: undeclared feature %q", p.ID, f))
			}
		}
	}

	if err := errors.Join(errs...); err != nil {
		return errors.Join(ErrInvalidCatalog, err)
	}
	return nil
}

func checkKey(kind Kind, key string, seen map[string]bool) error {
	if key == "" {
		return fmt.Errorf("%s with empty key", kind)
	}
	if seen[key] {
		return fmt.Errorf("duplicate %s %q", kind, key)
	}
	seen[key] = true
	return nil
}

// Entries returns the declared rows of kind.
func (c *Catalog) Entries(kind Kind) []Entry {
	switch kind {
	case KindPermission:
		return slices.Clone(c.Permissions)
	case KindFeature:
		out := make([]Entry, 0, len(c.Features))
		for _, f := range c.Features {
			out = append(out, f.Entry)
		}
		return out
	}
	return nil
}

// PlanMap returns plans keyed by id, ready for limits.NewInMemSource.
func (c *Catalog) PlanMap() map[string]limits.Plan {
	out := make(map[string]limits.Plan, len(c.Plans))
	for _, p := range c.Plans {
		out[p.ID] = p
	}
	return out
}

// Flags turns features with a rollout section into tenant-targeted flags.
func (c *Catalog) Flags() []*feature.Flag {
	var flags []*feature.Flag
	for _, f := range c.Features {
		if f.Rollout == nil {
			continue
		}
		flags = append(flags, &feature.Flag{
			Name:        f.Key,
			Description: f.Description,
			Enabled:     true,
			Strategy:    feature.NewTenantStrategy(*f.Rollout),
			Tags:        slices.Clone(f.Tags),
		})
	}
	return flags
}

package limits

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// catalogPlans is the slice of the catalog file this package reads.
type catalogPlans struct {
	Plans []Plan `yaml:"plans"`
}

// yamlSource reads plans from the "plans" key of a YAML catalog file.
type yamlSource struct {
	path string
}

// NewYAMLSource returns a Source reading the catalog at path on every Load.
func NewYAMLSource(path string) Source {
	return &yamlSource{path: path}
}

func (s *yamlSource) Load(context.Context) (map[string]Plan, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open plan catalog: %w", err)
	}
	defer f.Close()

	return ParsePlans(f)
}

// ParsePlans decodes the "plans" list of a YAML catalog keyed by plan id.
func ParsePlans(r io.Reader) (map[string]Plan, error) {
	var doc catalogPlans
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Join(ErrInvalidPlanConfiguration, err)
	}

	plans := make(map[string]Plan, len(doc.Plans))
	for _, p := range doc.Plans {
		if p.ID == "" {
			return nil, errors.Join(ErrInvalidPlanConfiguration, errors.New("plan id is empty"))
		}
		if _, dup := plans[p.ID]; dup {
			return nil, errors.Join(ErrInvalidPlanConfiguration, fmt.Errorf("duplicate plan %q", p.ID))
		}
		plans[p.ID] = p
	}
	return plans, nil
}

package limits

import (
	"slices"
	"time"
)

// Plan describes a subscription plan and its resource/feature constraints.
type Plan struct {
	ID          string             `yaml:"id" json:"id"`
	Name        string             `yaml:"name" json:"name"`
	Description string             `yaml:"description,omitempty" json:"description,omitempty"`
	Limits      map[Resource]int64 `yaml:"limits,omitempty" json:"limits,omitempty"`
	Features    []Feature          `yaml:"features,omitempty" json:"features,omitempty"`
	Public      bool               `yaml:"public" json:"public"`
	TrialDays   int                `yaml:"trial_days,omitempty" json:"trial_days,omitempty"`
}

// Limit returns the configured ceiling for res, if any.
func (p Plan) Limit(res Resource) (int64, bool) {
	limit, ok := p.Limits[res]
	return limit, ok
}

// HasFeature reports whether the plan grants f.
func (p Plan) HasFeature(f Feature) bool {
	return slices.Contains(p.Features, f)
}

// TrialEndsAt returns the timestamp when a trial period ends for this plan.
// If no trial is available, returns startedAt.
func (p Plan) TrialEndsAt(startedAt time.Time) time.Time {
	if p.TrialDays <= 0 {
		return startedAt
	}
	return startedAt.AddDate(0, 0, p.TrialDays).UTC()
}

// IsTrialActive reports whether a tenant created at startedAt is still in its trial window.
func (p Plan) IsTrialActive(startedAt time.Time) bool {
	if p.TrialDays <= 0 {
		return false
	}
	return time.Now().UTC().Before(p.TrialEndsAt(startedAt))
}

package limits

// Resource is a countable per-tenant resource.
type Resource string

const (
	ResourceMembers  Resource = "members"
	ResourceFamilies Resource = "families"
	ResourceDomains  Resource = "domains"
)

// Unlimited marks a resource with no ceiling.
const Unlimited int64 = -1

// Feature is a capability a plan or override can grant.
type Feature string

const (
	FeatureCustomDomains Feature = "custom_domains"
	FeatureOnlineGiving  Feature = "online_giving"
	FeatureSMS           Feature = "sms"
)

// UsageInfo pairs the current counter with the effective limit.
type UsageInfo struct {
	Current int64 `json:"current"`
	Limit   int64 `json:"limit"`
}

// Remaining returns how many more units fit, or Unlimited.
func (u UsageInfo) Remaining() int64 {
	if u.Limit == Unlimited {
		return Unlimited
	}
	return max(u.Limit-u.Current, 0)
}

// Percentage returns usage as 0-100, or -1 for unlimited.
func (u UsageInfo) Percentage() int {
	switch {
	case u.Limit == Unlimited:
		return -1
	case u.Limit == 0:
		return 100
	}
	return min(int((u.Current*100)/u.Limit), 100)
}

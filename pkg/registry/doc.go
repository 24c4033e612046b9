// Package registry loads the declarative catalog of permissions, features
// and plans, and reconciles it into persisted tables at startup.
//
// The catalog is a single YAML document:
//
//	permissions:
//	  - key: members.view
//	    group: members
//	features:
//	  - key: custom_domains
//	  - key: sms
//	    rollout:
//	      plans: [growth]
//	      percentage: 25
//	plans:
//	  - id: growth
//	    limits: {members: -1, domains: 3}
//	    features: [custom_domains]
//
// Reconcile upserts every declared row and prunes rows the catalog no longer
// declares. Features with a rollout section also become tenant-targeted
// flags through Catalog.Flags.
package registry

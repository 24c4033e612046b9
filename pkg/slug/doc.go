// Package slug derives URL and subdomain safe identifiers from church names.
//
//	slug.Label("St. Mary's Église") // "st-mary-s-eglise"
//
// Diacritics are removed with golang.org/x/text normalization. Label caps
// the result at the 63 character DNS label limit.
package slug

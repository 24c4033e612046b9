// Package binder populates request structs from HTTP requests.
//
// Each binder reads one source and only the fields tagged for it, so
// several binders can fill the same struct:
//
//	type ListMembersRequest struct {
//		FamilyID *int64 `query:"family_id"`
//		Limit    int    `query:"limit"`
//	}
//
//	type SetPrimaryRequest struct {
//		ID int64 `path:"id"`
//	}
//
// JSON decodes application/json bodies strictly: unknown fields, trailing
// data and bodies over DefaultMaxJSONSize fail. Query and Path accept
// strings, integers, floats, booleans, pointers for optional values and
// slices.
package binder

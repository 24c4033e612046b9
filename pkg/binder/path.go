package binder

import "net/http"

// PathExtractor returns the value of a named path parameter.
// chi.URLParam satisfies it.
type PathExtractor func(r *http.Request, name string) string

// Path binds fields tagged `path:"name"` using extractor.
//
//	type DeleteMemberRequest struct {
//		ID int64 `path:"id"`
//	}
//
//	r.Delete("/members/{id}", handler.Wrap(remove,
//		handler.WithBinders[DeleteMemberRequest](binder.Path(chi.URLParam)),
//	))
func Path(extractor PathExtractor) func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		return bindFields(v, "path", func(name string) []string {
			if value := extractor(r, name); value != "" {
				return []string{value}
			}
			return nil
		}, ErrFailedToParsePath)
	}
}

// Package validator builds request validation out of small Rule values.
//
// Each rule pairs a check with the field and message to report. Apply runs
// every rule and returns the failures as Errors:
//
//	err := validator.Apply(
//		validator.Required("first_name", req.FirstName),
//		validator.MaxLen("first_name", req.FirstName, 100),
//		validator.When(req.Email != "", validator.Email("email", req.Email)),
//	)
package validator

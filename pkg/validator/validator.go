package validator

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// FieldError is one failed rule.
type FieldError struct {
	Field   string
	Message string
}

// Errors collects the failed rules of one Apply call.
type Errors []FieldError

func (e Errors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has reports whether field failed at least one rule.
func (e Errors) Has(field string) bool {
	for _, fe := range e {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// Rule is a check with the error it reports.
type Rule struct {
	Check func() bool
	Error FieldError
}

// Apply runs every rule and returns Errors when any failed.
func Apply(rules ...Rule) error {
	var errs Errors
	for _, r := range rules {
		if r.Check != nil && !r.Check() {
			errs = append(errs, r.Error)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Extract returns the Errors wrapped in err, or nil.
func Extract(err error) Errors {
	var errs Errors
	if errors.As(err, &errs) {
		return errs
	}
	return nil
}

// When runs rule only if cond holds.
func When(cond bool, rule Rule) Rule {
	if !cond {
		return Rule{}
	}
	return rule
}

// Required fails for empty or blank strings.
func Required(field, value string) Rule {
	return Rule{
		Check: func() bool { return strings.TrimSpace(value) != "" },
		Error: FieldError{Field: field, Message: "is required"},
	}
}

// MaxLen limits value to max characters.
func MaxLen(field, value string, max int) Rule {
	return Rule{
		Check: func() bool { return utf8.RuneCountInString(value) <= max },
		Error: FieldError{Field: field, Message: fmt.Sprintf("must be at most %d characters long", max)},
	}
}

// Email accepts a bare address with a dotted domain.
func Email(field, value string) Rule {
	return Rule{
		Check: func() bool {
			addr, err := mail.ParseAddress(value)
			if err != nil || addr.Address != value {
				return false
			}
			_, domain, ok := strings.Cut(addr.Address, "@")
			if !ok || !strings.Contains(domain, ".") {
				return false
			}
			for part := range strings.SplitSeq(domain, ".") {
				if part == "" {
					return false
				}
			}
			return true
		},
		Error: FieldError{Field: field, Message: "must be a valid email address"},
	}
}

// Positive fails for ids below one.
func Positive(field string, value int64) Rule {
	return Rule{
		Check: func() bool { return value > 0 },
		Error: FieldError{Field: field, Message: "must be a positive number"},
	}
}

// Package validation checks HTTP request input and collects the problems
// per field, in the shape the error handler renders as a 422.
package validation

import (
	"fmt"
	"net/mail"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lorrc/avisos-backend/internal/core/domain"
	apperrors "github.com/lorrc/avisos-backend/internal/core/errors"
)

const msgDate = "Must be a date in YYYY-MM-DD format"

// Validator accumulates field errors. Checks chain, and every check except
// Required passes on an empty value.
type Validator struct {
	errs *apperrors.ValidationErrors
}

func NewValidator() *Validator {
	return &Validator{errs: apperrors.NewValidationErrors()}
}

func (v *Validator) HasErrors() bool { return v.errs.HasErrors() }

func (v *Validator) Errors() *apperrors.ValidationErrors { return v.errs }

// Err returns the collected errors, or nil when there are none.
func (v *Validator) Err() error {
	if v.errs.HasErrors() {
		return v.errs
	}
	return nil
}

func (v *Validator) check(field string, ok bool, format string, args ...any) *Validator {
	if !ok {
		v.errs.Add(field, fmt.Sprintf(format, args...))
	}
	return v
}

func (v *Validator) Required(field, value string) *Validator {
	return v.check(field, strings.TrimSpace(value) != "", "This field is required")
}

// MinLength counts characters of the trimmed value.
func (v *Validator) MinLength(field, value string, n int) *Validator {
	return v.check(field, utf8.RuneCountInString(strings.TrimSpace(value)) >= n, "Must be at least %d characters", n)
}

func (v *Validator) MaxLength(field, value string, n int) *Validator {
	return v.check(field, utf8.RuneCountInString(value) <= n, "Must be at most %d characters", n)
}

// Email requires a bare address such as ana@example.com.
func (v *Validator) Email(field, value string) *Validator {
	if value == "" {
		return v
	}
	addr, err := mail.ParseAddress(value)
	return v.check(field, err == nil && addr.Address == value && strings.Contains(addr.Address, "."), "Must be a valid email address")
}

func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	if value == "" {
		return v
	}
	return v.check(field, slices.Contains(allowed, value), "Must be one of: %s", strings.Join(allowed, ", "))
}

func (v *Validator) Date(field, value string) *Validator {
	if value == "" {
		return v
	}
	_, err := time.Parse(domain.DateLayout, value)
	return v.check(field, err == nil, msgDate)
}

func (v *Validator) Custom(field string, valid bool, message string) *Validator {
	return v.check(field, valid, "%s", message)
}

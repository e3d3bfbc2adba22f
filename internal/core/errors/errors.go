// Package errors holds the sentinel errors shared by the domain, the
// services and the adapters, plus the two structured error types the HTTP
// layer knows how to render.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Accounts and access.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInUse          = errors.New("user still owns announcements or comments")
	ErrForbidden          = errors.New("action forbidden")
	ErrInvalidRole        = errors.New("invalid role")
	ErrEmailRequired      = errors.New("email is required")
	ErrPasswordRequired   = errors.New("password is required")
	ErrPasswordTooWeak    = errors.New("password does not meet security requirements")
)

// Announcements and comments.
var (
	ErrAnnouncementNotFound   = errors.New("announcement not found")
	ErrAnnouncementIDRequired = errors.New("announcement ID is required")
	ErrCommentNotFound        = errors.New("comment not found")
	ErrCommentBodyRequired    = errors.New("comment body is required")
	ErrCommentBodyTooLong     = errors.New("comment body exceeds maximum length")
	ErrAuthorIDRequired       = errors.New("author ID is required")
	ErrCommentContextMissing  = errors.New("comment is missing author or announcement context")
)

// Real-time messages.
var (
	ErrMalformedBroadcast   = errors.New("malformed broadcast message")
	ErrUnknownBroadcastType = errors.New("unknown broadcast message type")
)

var ErrInvalidWeek = errors.New("week must be a YYYY-MM-DD date")

// AppError carries a ready-made HTTP rendering for an underlying error.
type AppError struct {
	Err        error
	Message    string
	Code       string
	StatusCode int
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error { return e.Err }

func NewBadRequestError(err error, message string) *AppError {
	return &AppError{Err: err, Message: message, Code: "BAD_REQUEST", StatusCode: http.StatusBadRequest}
}

// ValidationErrors maps field names to their messages.
type ValidationErrors struct {
	Errors map[string][]string `json:"errors"`
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{Errors: make(map[string][]string)}
}

func (v *ValidationErrors) Add(field, message string) {
	v.Errors[field] = append(v.Errors[field], message)
}

func (v *ValidationErrors) HasErrors() bool { return len(v.Errors) > 0 }

// Error lists the offending fields in a stable order.
func (v *ValidationErrors) Error() string {
	fields := make([]string, 0, len(v.Errors))
	for f := range v.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fmt.Sprintf("validation failed: %s", strings.Join(fields, ", "))
}

package http

import (
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/lorrc/avisos-backend/internal/core/errors"
)

// ErrorResponse is the JSON error envelope returned by every endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// ValidationErrorResponse adds the per-field messages.
type ValidationErrorResponse struct {
	Error  string              `json:"error"`
	Code   string              `json:"code"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// errorMapping binds a domain error to its HTTP rendering. An empty message
// echoes the error text.
type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// Checked in order; the first errors.Is match wins.
var errorMappings = []errorMapping{
	{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials"},
	{apperrors.ErrForbidden, http.StatusForbidden, "FORBIDDEN", "You do not have permission to perform this action"},

	{apperrors.ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND", "User not found"},
	{apperrors.ErrAnnouncementNotFound, http.StatusNotFound, "ANNOUNCEMENT_NOT_FOUND", "Announcement not found"},
	{apperrors.ErrCommentNotFound, http.StatusNotFound, "COMMENT_NOT_FOUND", "Comment not found"},

	{apperrors.ErrUserExists, http.StatusConflict, "USER_EXISTS", "A user with this email already exists"},
	{apperrors.ErrUserInUse, http.StatusConflict, "USER_IN_USE", "The user still owns announcements or comments"},

	{apperrors.ErrCommentBodyRequired, http.StatusBadRequest, "VALIDATION_ERROR", ""},
	{apperrors.ErrCommentBodyTooLong, http.StatusBadRequest, "VALIDATION_ERROR", ""},
	{apperrors.ErrAnnouncementIDRequired, http.StatusBadRequest, "VALIDATION_ERROR", ""},
	{apperrors.ErrAuthorIDRequired, http.StatusBadRequest, "VALIDATION_ERROR", ""},
	{apperrors.ErrEmailRequired, http.StatusBadRequest, "VALIDATION_ERROR", ""},
	{apperrors.ErrPasswordTooWeak, http.StatusBadRequest, "VALIDATION_ERROR", ""},
	{apperrors.ErrPasswordRequired, http.StatusBadRequest, "VALIDATION_ERROR", ""},
	{apperrors.ErrInvalidRole, http.StatusBadRequest, "VALIDATION_ERROR", ""},
	{apperrors.ErrInvalidWeek, http.StatusBadRequest, "VALIDATION_ERROR", ""},
}

// ErrorHandler renders errors returned by the services.
type ErrorHandler struct {
	logger *slog.Logger
}

func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs err and writes the matching response. Unrecognised errors
// become a 500 without their text.
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	var fieldErrs *apperrors.ValidationErrors
	var appErr *apperrors.AppError

	switch {
	case errors.As(err, &appErr):
		h.log(r, appErr.StatusCode, err)
		WriteJSON(w, appErr.StatusCode, ErrorResponse{Error: appErr.Message, Code: appErr.Code})
	case errors.As(err, &fieldErrs):
		h.log(r, http.StatusUnprocessableEntity, err)
		WriteJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{
			Error:  "Validation failed",
			Code:   "VALIDATION_ERROR",
			Fields: fieldErrs.Errors,
		})
	default:
		status, resp := resolve(err)
		h.log(r, status, err)
		WriteJSON(w, status, resp)
	}
}

func resolve(err error) (int, ErrorResponse) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		msg := m.message
		if msg == "" {
			msg = err.Error()
		}
		return m.status, ErrorResponse{Error: msg, Code: m.code}
	}
	return http.StatusInternalServerError, ErrorResponse{Error: "An unexpected error occurred", Code: "INTERNAL_ERROR"}
}

func (h *ErrorHandler) log(r *http.Request, status int, err error) {
	msg, level := "client error", slog.LevelWarn
	if status >= http.StatusInternalServerError {
		msg, level = "server error", slog.LevelError
	}
	h.logger.Log(r.Context(), level, msg,
		"method", r.Method,
		"path", r.URL.Path,
		"status_code", status,
		"error", err.Error(),
	)
}

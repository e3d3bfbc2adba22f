package validation

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lorrc/avisos-backend/internal/core/domain"
	apperrors "github.com/lorrc/avisos-backend/internal/core/errors"
)

const maxBodyBytes = 1 << 20

var errTrailingData = errors.New("unexpected data after JSON body")

// DecodeJSON reads a single JSON value of type T from the request body.
// Any decoding problem is a 400.
func DecodeJSON[T any](r *http.Request) (*T, error) {
	var req T
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		return nil, apperrors.NewBadRequestError(err, "Invalid request body")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, apperrors.NewBadRequestError(errTrailingData, "Invalid request body")
	}
	return &req, nil
}

// PaginationParams is a resolved limit/offset window.
type PaginationParams struct {
	Limit  int
	Offset int
}

// ParsePagination reads the page size from sizeKey, capped at maxLimit.
// A 1-based "page" takes precedence over "offset".
func ParsePagination(r *http.Request, sizeKey string, defaultLimit, maxLimit int) PaginationParams {
	p := PaginationParams{Limit: ParseIntQueryParam(r, sizeKey, 0)}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	p.Limit = min(p.Limit, maxLimit)

	if page := ParseIntQueryParam(r, "page", 0); page > 0 {
		p.Offset = (page - 1) * p.Limit
	} else {
		p.Offset = ParseIntQueryParam(r, "offset", 0)
	}
	return p
}

// ParseIntQueryParam returns def for a missing, malformed or negative value.
func ParseIntQueryParam(r *http.Request, key string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 0 {
		return def
	}
	return n
}

func ParseBoolQueryParam(r *http.Request, key string, def bool) bool {
	b, err := strconv.ParseBool(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return b
}

// ParseStringQueryParam returns the trimmed value, or nil when blank.
func ParseStringQueryParam(r *http.Request, key string) *string {
	s := strings.TrimSpace(r.URL.Query().Get(key))
	if s == "" {
		return nil
	}
	return &s
}

// ParseIDQueryParam returns nil when key is absent. A value that is not a
// positive integer is recorded on v.
func ParseIDQueryParam(r *http.Request, key string, v *Validator) *int64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		v.Custom(key, false, "Must be a positive integer")
		return nil
	}
	return &id
}

// ParseDateQueryParam parses a YYYY-MM-DD value as a UTC midnight.
func ParseDateQueryParam(r *http.Request, key string, v *Validator) *time.Time {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(domain.DateLayout, raw)
	if err != nil {
		v.Custom(key, false, msgDate)
		return nil
	}
	return &t
}

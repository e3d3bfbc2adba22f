package http

import (
	"encoding/json"
	"net/http"
)

// PaginatedResponse is the envelope of every offset-paginated listing.
type PaginatedResponse[T any] struct {
	Data       []T                `json:"data"`
	Pagination PaginationMetadata `json:"pagination"`
}

type PaginationMetadata struct {
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
	Page       int   `json:"page"`
	TotalCount int64 `json:"total_count"`
	HasMore    bool  `json:"has_more"`
}

// ListResponse is the envelope of an unpaginated listing.
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Count int `json:"count"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteCreated(w http.ResponseWriter, v any) { WriteJSON(w, http.StatusCreated, v) }

func WriteNoContent(w http.ResponseWriter) { w.WriteHeader(http.StatusNoContent) }

// WritePaginated writes one page of a listing of total items. Pages are
// numbered from 1.
func WritePaginated[T any](w http.ResponseWriter, data []T, limit, offset int, total int64) {
	meta := PaginationMetadata{
		Limit:      limit,
		Offset:     offset,
		Page:       1,
		TotalCount: total,
		HasMore:    int64(offset)+int64(len(data)) < total,
	}
	if limit > 0 {
		meta.Page = offset/limit + 1
	}
	if data == nil {
		data = []T{}
	}
	WriteJSON(w, http.StatusOK, PaginatedResponse[T]{Data: data, Pagination: meta})
}

func WriteList[T any](w http.ResponseWriter, data []T) {
	if data == nil {
		data = []T{}
	}
	WriteJSON(w, http.StatusOK, ListResponse[T]{Data: data, Count: len(data)})
}

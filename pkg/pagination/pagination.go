package pagination

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrPageOutOfRange is returned when a page number falls outside [1, TotalPages].
var ErrPageOutOfRange = errors.New("page out of range")

// Params holds a requested page window.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Offset  int `json:"-"`
}

// NewParams builds Params for a 1-based page. The page is not validated here;
// Window rejects pages outside the available range.
func NewParams(page, perPage int) Params {
	return Params{
		Page:    page,
		PerPage: perPage,
		Offset:  (page - 1) * perPage,
	}
}

// ParsePage parses a page query value. An empty value means page 1.
func ParsePage(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 1, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse page %q: %w", raw, err)
	}
	return v, nil
}

// TotalPages returns ceil(count / perPage). perPage must be positive.
func TotalPages(count, perPage int) int {
	if count <= 0 {
		return 0
	}
	totalPages := count / perPage
	if count%perPage > 0 {
		totalPages++
	}
	return totalPages
}

// InRange reports whether page is servable for totalPages. An empty set
// still serves page 1 (with no items).
func InRange(page, totalPages int) bool {
	if page == 1 {
		return true
	}
	return page >= 1 && page <= totalPages
}

// Result wraps a paginated response.
type Result[T any] struct {
	Data       []T  `json:"data"`
	TotalCount int  `json:"total_count"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// Window slices the page described by params out of items. It never clamps:
// a page outside the available range returns ErrPageOutOfRange.
func Window[T any](items []T, params Params) (Result[T], error) {
	if params.PerPage <= 0 {
		return Result[T]{}, fmt.Errorf("per page must be positive, got %d", params.PerPage)
	}

	totalCount := len(items)
	totalPages := TotalPages(totalCount, params.PerPage)
	if !InRange(params.Page, totalPages) {
		return Result[T]{}, fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, params.Page, totalPages)
	}

	start := (params.Page - 1) * params.PerPage
	end := min(start+params.PerPage, totalCount)
	data := make([]T, 0, max(end-start, 0))
	if start < end {
		data = append(data, items[start:end]...)
	}

	return Result[T]{
		Data:       data,
		TotalCount: totalCount,
		Page:       params.Page,
		PerPage:    params.PerPage,
		TotalPages: totalPages,
		HasNext:    params.Page < totalPages,
		HasPrev:    params.Page > 1,
	}, nil
}

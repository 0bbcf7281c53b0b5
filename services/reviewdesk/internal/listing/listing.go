// Package listing orders and pages reviews for display.
package listing

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/owaisoptics/reviewdesk/pkg/pagination"
	"github.com/owaisoptics/reviewdesk/services/reviewdesk/internal/domain"
)

// DefaultPageSize is the number of reviews shown per page.
const DefaultPageSize = 12

// Page is one window of an ordered review list.
type Page struct {
	Items      []domain.Review `json:"items"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalPages int             `json:"total_pages"`
	TotalItems int             `json:"total_items"`
}

// Sort returns a new slice ordered by mode. Reviews that compare equal are
// ordered by id, so the result does not depend on the input order.
func Sort(reviews []domain.Review, mode domain.SortMode) ([]domain.Review, error) {
	var primary func(a, b domain.Review) int
	switch mode {
	case domain.SortNewest:
		primary = func(a, b domain.Review) int { return b.CreatedAt.Compare(a.CreatedAt.Time) }
	case domain.SortOldest:
		primary = func(a, b domain.Review) int { return a.CreatedAt.Compare(b.CreatedAt.Time) }
	case domain.SortHighest:
		primary = func(a, b domain.Review) int { return cmp.Compare(b.Rating, a.Rating) }
	case domain.SortLowest:
		primary = func(a, b domain.Review) int { return cmp.Compare(a.Rating, b.Rating) }
	default:
		return nil, fmt.Errorf("unknown sort mode %q", mode)
	}

	out := slices.Clone(reviews)
	slices.SortFunc(out, func(a, b domain.Review) int {
		if c := primary(a, b); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// Paginate returns page pageNumber of ordered. It does not clamp: a page
// outside [1, TotalPages] fails with pagination.ErrPageOutOfRange. Page 1 of
// an empty list is an empty page.
func Paginate(ordered []domain.Review, pageSize, pageNumber int) (Page, error) {
	res, err := pagination.Window(ordered, pagination.NewParams(pageNumber, pageSize))
	if err != nil {
		return Page{}, err
	}
	return Page{
		Items:      res.Data,
		Page:       res.Page,
		PageSize:   res.PerPage,
		TotalPages: res.TotalPages,
		TotalItems: res.TotalCount,
	}, nil
}

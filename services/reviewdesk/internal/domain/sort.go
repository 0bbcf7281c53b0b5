package domain

import (
	"fmt"
	"strings"

	apperrors "github.com/owaisoptics/reviewdesk/pkg/errors"
)

// SortMode selects the display order of reviews.
type SortMode string

const (
	SortNewest  SortMode = "newest"
	SortOldest  SortMode = "oldest"
	SortHighest SortMode = "highest"
	SortLowest  SortMode = "lowest"
)

// DefaultSortMode is used when the caller does not choose one.
const DefaultSortMode = SortNewest

// ParseSortMode maps a query value onto a SortMode. Empty selects the default.
func ParseSortMode(raw string) (SortMode, error) {
	switch m := SortMode(strings.ToLower(strings.TrimSpace(raw))); m {
	case "":
		return DefaultSortMode, nil
	case SortNewest, SortOldest, SortHighest, SortLowest:
		return m, nil
	default:
		return "", apperrors.InvalidInput(fmt.Sprintf("unknown sort mode %q: must be one of newest, oldest, highest, lowest", raw))
	}
}

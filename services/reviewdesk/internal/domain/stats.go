package domain

import "math"

// Stats summarises a review set. Distribution maps each rating 1..5 to its
// share of reviews in whole percent; buckets are rounded independently and
// need not sum to 100.
type Stats struct {
	AverageRating float64     `json:"averageRating"`
	TotalReviews  int         `json:"totalReviews"`
	Distribution  map[int]int `json:"distribution,omitempty"`
}

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// Round1 rounds v to one fractional digit.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// WithAdded returns the summary after one more review with rating.
// Distribution is not carried; it is recomputed from the review set.
func (s Stats) WithAdded(rating int) Stats {
	total := s.TotalReviews + 1
	return Stats{
		AverageRating: Round1((s.AverageRating*float64(s.TotalReviews) + float64(rating)) / float64(total)),
		TotalReviews:  total,
	}
}

// WithReplaced returns the summary after one review's rating changed from
// old to updated. The total is unchanged.
func (s Stats) WithReplaced(old, updated int) Stats {
	if s.TotalReviews == 0 {
		return s.WithAdded(updated)
	}
	n := float64(s.TotalReviews)
	return Stats{
		AverageRating: Round1((s.AverageRating*n - float64(old) + float64(updated)) / n),
		TotalReviews:  s.TotalReviews,
	}
}

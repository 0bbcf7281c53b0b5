// Package stats derives the review summary shown above the list.
package stats

import (
	"math"

	"github.com/owaisoptics/reviewdesk/services/reviewdesk/internal/domain"
)

// Compute summarises reviews. The average is rounded to one fractional digit
// and each rating bucket to a whole percent. An empty set yields zeros in
// every field, with all five buckets present. Ratings outside 1..5 count
// towards the total and the average but fall in no bucket.
func Compute(reviews []domain.Review) domain.Stats {
	out := domain.Stats{
		TotalReviews: len(reviews),
		Distribution: make(map[int]int, domain.MaxRating),
	}
	for b := domain.MinRating; b <= domain.MaxRating; b++ {
		out.Distribution[b] = 0
	}
	if len(reviews) == 0 {
		return out
	}

	var sum int
	counts := make(map[int]int, domain.MaxRating)
	for _, r := range reviews {
		sum += r.Rating
		counts[r.Rating]++
	}

	n := float64(len(reviews))
	out.AverageRating = domain.Round1(float64(sum) / n)
	for b := domain.MinRating; b <= domain.MaxRating; b++ {
		out.Distribution[b] = int(math.Round(100 * float64(counts[b]) / n))
	}
	return out
}

// Merge keeps the service's average and total, which may cover reviews not
// loaded locally, and takes the distribution from the local computation.
func Merge(service, local domain.Stats) domain.Stats {
	service.Distribution = local.Distribution
	return service
}

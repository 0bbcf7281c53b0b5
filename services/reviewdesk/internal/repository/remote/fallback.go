package remote

import (
	"time"

	"github.com/owaisoptics/reviewdesk/services/reviewdesk/internal/domain"
)

// FallbackReviews returns the fixed review set served while the review
// service is unreachable. Every call returns a fresh copy.
func FallbackReviews() []domain.Review {
	return []domain.Review{
		fallback("1", "Ahmed Khan", 5, "Excellent service and quality glasses! The staff was very helpful in choosing the right frame for my face. Highly recommended!", time.Date(2026, 1, 10, 10, 0, 0, 0, time.UTC)),
		fallback("2", "Sara Ali", 5, "Best optical shop in the area. They have a wide variety of frames and lenses. Very professional eye testing.", time.Date(2026, 1, 8, 14, 30, 0, 0, time.UTC)),
		fallback("3", "Muhammad Usman", 4, "Good experience overall. The glasses are comfortable and stylish. Delivery was a bit delayed but quality is great.", time.Date(2026, 1, 5, 9, 15, 0, 0, time.UTC)),
		fallback("4", "Fatima Zahra", 5, "Amazing collection of designer frames! Got my progressive lenses here and they are perfect. Great customer service.", time.Date(2026, 1, 3, 16, 45, 0, 0, time.UTC)),
		fallback("5", "Hassan Raza", 4, "Very satisfied with my purchase. The anti-glare coating is excellent for computer work. Will visit again!", time.Date(2025, 12, 28, 11, 20, 0, 0, time.UTC)),
		fallback("6", "Ayesha Malik", 5, "Owais Optics has the best prices in town with premium quality. The eye check-up was thorough and professional.", time.Date(2025, 12, 25, 13, 0, 0, 0, time.UTC)),
	}
}

func fallback(id, name string, rating int, comment string, at time.Time) domain.Review {
	return domain.Review{
		ID:          domain.ReviewID(id),
		DisplayName: name,
		Rating:      rating,
		Comment:     comment,
		CreatedAt:   domain.Timestamp{Time: at},
	}
}

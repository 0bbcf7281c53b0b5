package repository

import (
	"context"

	"github.com/owaisoptics/reviewdesk/services/reviewdesk/internal/domain"
)

// KeyValueStore is the persistence port behind the session store. Keys are
// small and values are opaque strings.
type KeyValueStore interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}

// ReviewAPI is the review service as seen over the wire.
type ReviewAPI interface {
	ListReviews(ctx context.Context) ([]domain.Review, error)
	Stats(ctx context.Context) (domain.Stats, error)
	CreateReview(ctx context.Context, sub domain.Submission) (*domain.Review, error)
	UpdateReview(ctx context.Context, userID string, sub domain.Submission) (*domain.Review, error)
	LoginURL() string
}

// Snapshot is a consistent view of the repository: reviews and stats from the
// same committed fetch, plus the mode they were served in.
type Snapshot struct {
	Reviews  []domain.Review
	Stats    domain.Stats
	Degraded bool
}

// ReviewRepository owns the canonical review collection and its summary.
type ReviewRepository interface {
	// GetAll returns the review set, fetching it when none is loaded yet.
	GetAll(ctx context.Context) ([]domain.Review, error)

	// GetStats returns the current summary, fetching it when none is loaded yet.
	GetStats(ctx context.Context) (domain.Stats, error)

	// Snapshot returns reviews and stats as committed together, loading them
	// first if needed.
	Snapshot(ctx context.Context) (Snapshot, error)

	// Refresh re-fetches reviews and stats together and commits both at once.
	Refresh(ctx context.Context) error

	// FindByUser returns the review owned by userID, or nil.
	FindByUser(ctx context.Context, userID string) (*domain.Review, error)

	// Create submits a new review. The caller is expected to have validated sub.
	Create(ctx context.Context, sub domain.Submission) (*domain.Review, error)

	// Update replaces the mutable fields of the review owned by userID.
	Update(ctx context.Context, userID string, sub domain.Submission) (*domain.Review, error)

	// Upsert routes to Update when userID already owns a review, else Create.
	Upsert(ctx context.Context, userID string, sub domain.Submission) (*domain.Review, error)

	// Degraded reports whether the repository is serving the local fallback set.
	Degraded() bool
}

package remote

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/owaisoptics/reviewdesk/pkg/errors"
	"github.com/owaisoptics/reviewdesk/pkg/logger"
	"github.com/owaisoptics/reviewdesk/pkg/tracing"
	"github.com/owaisoptics/reviewdesk/services/reviewdesk/internal/domain"
	"github.com/owaisoptics/reviewdesk/services/reviewdesk/internal/repository"
	"github.com/owaisoptics/reviewdesk/services/reviewdesk/internal/stats"
)

var tracer = tracing.Tracer("github.com/owaisoptics/reviewdesk/services/reviewdesk/remote")

// Repository implements repository.ReviewRepository on top of the review
// service. When the service cannot be reached it switches to degraded mode:
// the fixed fallback set is served and every later write is applied only to
// the in-memory collection. Only a successful Refresh leaves degraded mode.
type Repository struct {
	api    repository.ReviewAPI
	logger *slog.Logger
	now    func() time.Time
	newID  func() string

	// gen hands out generation numbers to refreshes and local commits.
	gen atomic.Uint64

	mu        sync.RWMutex
	reviews   []domain.Review
	summary   domain.Stats
	loaded    bool
	degraded  bool
	committed uint64
}

// NewRepository creates a repository backed by api. Nothing is fetched until
// the first read.
func NewRepository(api repository.ReviewAPI, logger *slog.Logger) *Repository {
	return &Repository{
		api:    api,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  newLocalID,
	}
}

func newLocalID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Refresh fetches reviews and stats concurrently and commits both in one
// step. A refresh whose context ends first, or that finishes after a newer
// state was committed, changes nothing.
func (r *Repository) Refresh(ctx context.Context) error {
	gen := r.gen.Add(1)

	ctx, span := tracer.Start(ctx, "reviews.refresh")
	defer span.End()

	var (
		reviews      []domain.Review
		serviceStats domain.Stats
		reviewsErr   error
		statsErr     error
	)

	// Each fetch falls back on its own, so neither cancels the other.
	var g errgroup.Group
	g.Go(func() error {
		reviews, reviewsErr = r.api.ListReviews(ctx)
		return nil
	})
	g.Go(func() error {
		serviceStats, statsErr = r.api.Stats(ctx)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		span.SetAttributes(attribute.Bool("reviews.discarded", true))
		return err
	}

	l := logger.WithContext(ctx, r.logger)
	degraded := false
	if reviewsErr != nil {
		degraded = true
		reviews = FallbackReviews()
		fallbackTotal.WithLabelValues("list").Inc()
		tracing.RecordError(span, reviewsErr)
		l.Warn("review service unreachable, serving fallback reviews",
			slog.String("error", reviewsErr.Error()),
		)
	} else if kept := newestPerUser(reviews); len(kept) < len(reviews) {
		duplicateReviewsTotal.Add(float64(len(reviews) - len(kept)))
		l.Warn("review service returned several reviews for one user, keeping the newest",
			slog.Int("dropped", len(reviews)-len(kept)),
		)
		reviews = kept
	}

	local := stats.Compute(reviews)
	summary := local
	switch {
	case statsErr != nil:
		fallbackTotal.WithLabelValues("stats").Inc()
		l.Warn("review stats unavailable, computing locally",
			slog.String("error", statsErr.Error()),
		)
	case !degraded:
		summary = stats.Merge(serviceStats, local)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if gen < r.committed {
		staleRefreshTotal.Inc()
		span.SetAttributes(attribute.Bool("reviews.discarded", true))
		l.Debug("discarding stale refresh", slog.Uint64("generation", gen), slog.Uint64("committed", r.committed))
		return nil
	}

	if degraded && r.degraded && r.loaded {
		// Still unreachable: the local set and its writes stay.
		r.committed = gen
		return nil
	}

	if r.degraded && !degraded {
		if dropped := r.countLocalOnly(reviews); dropped > 0 {
			l.Warn("review service reachable again, dropping local-only reviews", slog.Int("count", dropped))
		}
	}

	r.reviews = reviews
	r.summary = summary
	r.loaded = true
	r.setDegraded(degraded)
	r.committed = gen

	span.SetAttributes(
		attribute.Int("reviews.count", len(reviews)),
		attribute.Bool("reviews.degraded", degraded),
	)
	return nil
}

// newestPerUser keeps the most recent review of every user, in list order.
// Reviews without a user id are all kept. Equal timestamps keep the earlier
// entry.
func newestPerUser(reviews []domain.Review) []domain.Review {
	newest := make(map[string]int, len(reviews))
	for i, rv := range reviews {
		uid := domain.Deref(rv.UserID)
		if uid == "" {
			continue
		}
		if j, seen := newest[uid]; !seen || rv.CreatedAt.After(reviews[j].CreatedAt.Time) {
			newest[uid] = i
		}
	}

	kept := make([]domain.Review, 0, len(reviews))
	for i, rv := range reviews {
		if uid := domain.Deref(rv.UserID); uid != "" && newest[uid] != i {
			continue
		}
		kept = append(kept, rv)
	}
	return kept
}

// countLocalOnly counts reviews in the current set that fresh does not carry.
// Caller holds mu.
func (r *Repository) countLocalOnly(fresh []domain.Review) int {
	ids := make(map[domain.ReviewID]struct{}, len(fresh))
	for _, rv := range fresh {
		ids[rv.ID] = struct{}{}
	}
	n := 0
	for _, rv := range r.reviews {
		if _, ok := ids[rv.ID]; !ok {
			n++
		}
	}
	return n
}

// setDegraded records the mode. Caller holds mu.
func (r *Repository) setDegraded(v bool) {
	r.degraded = v
	if v {
		degradedMode.Set(1)
	} else {
		degradedMode.Set(0)
	}
}

func (r *Repository) ensureLoaded(ctx context.Context) error {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if loaded {
		return nil
	}
	return r.Refresh(ctx)
}

// GetAll returns a copy of the review set.
func (r *Repository) GetAll(ctx context.Context) ([]domain.Review, error) {
	if err := r.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.reviews), nil
}

// GetStats returns the current summary.
func (r *Repository) GetStats(ctx context.Context) (domain.Stats, error) {
	if err := r.ensureLoaded(ctx); err != nil {
		return domain.Stats{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneStats(r.summary), nil
}

// Snapshot returns reviews, stats and mode read under one lock.
func (r *Repository) Snapshot(ctx context.Context) (repository.Snapshot, error) {
	if err := r.ensureLoaded(ctx); err != nil {
		return repository.Snapshot{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return repository.Snapshot{
		Reviews:  slices.Clone(r.reviews),
		Stats:    cloneStats(r.summary),
		Degraded: r.degraded,
	}, nil
}

// Degraded reports whether the fallback set is being served.
func (r *Repository) Degraded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.degraded
}

// FindByUser returns the review owned by userID. An empty userID never
// matches.
func (r *Repository) FindByUser(ctx context.Context, userID string) (*domain.Review, error) {
	if userID == "" {
		return nil, nil
	}
	if err := r.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.indexOfUser(userID); i >= 0 {
		found := r.reviews[i]
		return &found, nil
	}
	return nil, nil
}

// indexOfUser is a linear scan. Caller holds mu.
func (r *Repository) indexOfUser(userID string) int {
	return slices.IndexFunc(r.reviews, func(rv domain.Review) bool { return rv.BelongsTo(userID) })
}

// Create submits sub. sub is sent as given; validation is the caller's job.
// On a transport failure the review is kept locally with a generated id.
// Errors the service reports for the request itself are returned.
func (r *Repository) Create(ctx context.Context, sub domain.Submission) (*domain.Review, error) {
	ctx, span := tracer.Start(ctx, "reviews.create")
	defer span.End()

	if err := r.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	if !r.Degraded() {
		created, err := r.api.CreateReview(ctx, sub)
		if err == nil {
			if created.UserID == nil {
				created.UserID = sub.UserID
			}
			r.commitCreate(*created)
			return created, nil
		}
		if err := r.writeFailure(ctx, span, "create", err); err != nil {
			return nil, err
		}
	}

	local := domain.Review{
		ID:          domain.ReviewID(r.newID()),
		UserID:      sub.UserID,
		DisplayName: sub.Name,
		Rating:      sub.Rating,
		Comment:     sub.Comment,
		AvatarURL:   sub.Avatar,
		CreatedAt:   domain.Timestamp{Time: r.now()},
	}
	fallbackTotal.WithLabelValues("create").Inc()
	r.commitCreate(local)
	return &local, nil
}

// commitCreate prepends rv, replacing any review the same user already owns,
// and moves the summary incrementally.
func (r *Repository) commitCreate(rv domain.Review) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.committed = r.gen.Add(1)

	var next domain.Stats
	if i := r.indexOfUser(domain.Deref(rv.UserID)); i >= 0 {
		next = r.summary.WithReplaced(r.reviews[i].Rating, rv.Rating)
		r.reviews = slices.Delete(r.reviews, i, i+1)
	} else {
		next = r.summary.WithAdded(rv.Rating)
	}

	r.reviews = slices.Insert(r.reviews, 0, rv)
	next.Distribution = stats.Compute(r.reviews).Distribution
	r.summary = next
}

// Update replaces rating, comment, name and avatar of the review userID owns,
// keeping its id and creation time. It fails with NotFound when the user has
// no review.
func (r *Repository) Update(ctx context.Context, userID string, sub domain.Submission) (*domain.Review, error) {
	ctx, span := tracer.Start(ctx, "reviews.update")
	defer span.End()

	existing, err := r.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		err := apperrors.NotFound("review for user", userID)
		tracing.RecordError(span, err)
		return nil, err
	}

	if !r.Degraded() {
		updated, err := r.api.UpdateReview(ctx, userID, sub)
		if err == nil {
			merged := *existing
			merged.DisplayName = updated.DisplayName
			merged.Rating = updated.Rating
			merged.Comment = updated.Comment
			merged.AvatarURL = updated.AvatarURL
			if updated.ID != "" {
				merged.ID = updated.ID
			}
			return r.commitUpdate(userID, merged)
		}
		if err := r.writeFailure(ctx, span, "update", err); err != nil {
			return nil, err
		}
	}

	local := *existing
	local.DisplayName = sub.Name
	local.Rating = sub.Rating
	local.Comment = sub.Comment
	local.AvatarURL = sub.Avatar
	fallbackTotal.WithLabelValues("update").Inc()
	return r.commitUpdate(userID, local)
}

func (r *Repository) commitUpdate(userID string, rv domain.Review) (*domain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOfUser(userID)
	if i < 0 {
		// A refresh replaced the set while the request was in flight.
		return nil, apperrors.NotFound("review for user", userID)
	}

	r.committed = r.gen.Add(1)

	next := r.summary.WithReplaced(r.reviews[i].Rating, rv.Rating)
	r.reviews[i] = rv
	next.Distribution = stats.Compute(r.reviews).Distribution
	r.summary = next
	return &rv, nil
}

// Upsert updates the review userID owns, or creates one when there is none.
func (r *Repository) Upsert(ctx context.Context, userID string, sub domain.Submission) (*domain.Review, error) {
	existing, err := r.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return r.Update(ctx, userID, sub)
	}
	return r.Create(ctx, sub)
}

// writeFailure decides what a failed write means. It returns nil when the
// write should be applied locally, entering degraded mode on the way.
func (r *Repository) writeFailure(ctx context.Context, span trace.Span, op string, err error) error {
	tracing.RecordError(span, err)
	if ctx.Err() != nil {
		return err
	}
	if apperrors.IsClientError(err) {
		return fmt.Errorf("%s review: %w", op, err)
	}

	l := logger.WithContext(ctx, r.logger)
	l.Warn("review service write failed, applying locally",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)

	r.mu.Lock()
	r.setDegraded(true)
	r.mu.Unlock()
	return nil
}

func cloneStats(s domain.Stats) domain.Stats {
	if s.Distribution != nil {
		d := make(map[int]int, len(s.Distribution))
		for k, v := range s.Distribution {
			d[k] = v
		}
		s.Distribution = d
	}
	return s
}

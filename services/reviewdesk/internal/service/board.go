package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"

	apperrors "github.com/owaisoptics/reviewdesk/pkg/errors"
	"github.com/owaisoptics/reviewdesk/pkg/logger"
	"github.com/owaisoptics/reviewdesk/pkg/pagination"
	"github.com/owaisoptics/reviewdesk/services/reviewdesk/internal/domain"
	"github.com/owaisoptics/reviewdesk/services/reviewdesk/internal/listing"
	"github.com/owaisoptics/reviewdesk/services/reviewdesk/internal/repository"
)

// ErrSubmissionInFlight is returned when a submission arrives while the
// previous one has not finished.
var ErrSubmissionInFlight = &apperrors.AppError{
	Code:    "SUBMISSION_IN_FLIGHT",
	Message: "a review submission is already in progress",
	Status:  http.StatusConflict,
	Err:     apperrors.ErrConflict,
}

// Sessions yields the current session, or nil when logged out.
type Sessions interface {
	Current() *domain.Session
}

// View is one rendered page of the review board.
type View struct {
	Reviews    []domain.Review `json:"reviews"`
	Sort       domain.SortMode `json:"sort"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalPages int             `json:"total_pages"`
	TotalItems int             `json:"total_items"`
	Stats      domain.Stats    `json:"stats"`
	Degraded   bool            `json:"degraded"`
	LoggedIn   bool            `json:"logged_in"`

	// MyReview and Form are set when the current user already has a review;
	// Form pre-fills the edit form.
	MyReview *domain.Review      `json:"my_review,omitempty"`
	Form     *domain.ReviewInput `json:"form,omitempty"`
}

// Board is the review page logic: it validates submissions, routes them to
// create or update, and assembles sorted, paged views.
type Board struct {
	repo     repository.ReviewRepository
	sessions Sessions
	logger   *slog.Logger
	pageSize int
	loginURL string

	submitting atomic.Bool
}

// NewBoard creates a review board. A pageSize below 1 selects
// listing.DefaultPageSize.
func NewBoard(repo repository.ReviewRepository, sessions Sessions, logger *slog.Logger, pageSize int, loginURL string) *Board {
	if pageSize < 1 {
		pageSize = listing.DefaultPageSize
	}
	return &Board{
		repo:     repo,
		sessions: sessions,
		logger:   logger,
		pageSize: pageSize,
		loginURL: loginURL,
	}
}

// View returns page of the reviews ordered by mode. Pages outside
// [1, TotalPages] are rejected with InvalidInput.
func (b *Board) View(ctx context.Context, mode domain.SortMode, page int) (*View, error) {
	snap, err := b.repo.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load reviews: %w", err)
	}

	ordered, err := listing.Sort(snap.Reviews, mode)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	p, err := listing.Paginate(ordered, b.pageSize, page)
	if err != nil {
		if errors.Is(err, pagination.ErrPageOutOfRange) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("page %d is out of range (1..%d)", page, max(pagination.TotalPages(len(ordered), b.pageSize), 1)))
		}
		return nil, fmt.Errorf("paginate reviews: %w", err)
	}

	view := &View{
		Reviews:    p.Items,
		Sort:       mode,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: p.TotalPages,
		TotalItems: p.TotalItems,
		Stats:      snap.Stats,
		Degraded:   snap.Degraded,
	}

	if sess := b.sessions.Current(); sess != nil {
		view.LoggedIn = true
		for _, rv := range snap.Reviews {
			if rv.BelongsTo(sess.SubjectID) {
				mine := rv
				form := domain.InputFrom(mine)
				view.MyReview, view.Form = &mine, &form
				break
			}
		}
	}
	return view, nil
}

// Submit validates in and stores it as the current user's review, updating
// the existing one if there is one. Only one submission runs at a time; a
// concurrent call fails with ErrSubmissionInFlight.
func (b *Board) Submit(ctx context.Context, in domain.ReviewInput) (*domain.Review, error) {
	sess := b.sessions.Current()
	if sess == nil {
		return nil, apperrors.Unauthorized("sign in to leave a review")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	if !b.submitting.CompareAndSwap(false, true) {
		return nil, ErrSubmissionInFlight
	}
	defer b.submitting.Store(false)

	sub := domain.NewSubmission(in, sess)
	saved, err := b.repo.Upsert(ctx, sess.SubjectID, sub)
	if err != nil {
		return nil, fmt.Errorf("save review: %w", err)
	}

	logger.WithContext(ctx, b.logger).Info("review saved",
		slog.String("review_id", string(saved.ID)),
		slog.Int("rating", saved.Rating),
		slog.Bool("degraded", b.repo.Degraded()),
	)
	return saved, nil
}

// MyReview returns the current user's review, or nil when logged out or
// when there is none.
func (b *Board) MyReview(ctx context.Context) (*domain.Review, error) {
	sess := b.sessions.Current()
	if sess == nil {
		return nil, nil
	}
	return b.repo.FindByUser(ctx, sess.SubjectID)
}

// Refresh re-fetches reviews and stats.
func (b *Board) Refresh(ctx context.Context) error {
	if err := b.repo.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh reviews: %w", err)
	}
	return nil
}

// Degraded reports whether the board is showing fallback data.
func (b *Board) Degraded() bool {
	return b.repo.Degraded()
}

// LoginURL is where the browser goes to sign in.
func (b *Board) LoginURL() string {
	return b.loginURL
}

package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/owaisoptics/reviewdesk/pkg/errors"
	"github.com/owaisoptics/reviewdesk/pkg/validator"
	"github.com/owaisoptics/reviewdesk/services/reviewdesk/internal/domain"
	"github.com/owaisoptics/reviewdesk/services/reviewdesk/internal/repository"
)

// --- Mock Repository ---

type mockReviewRepository struct {
	mock.Mock
}

func (m *mockReviewRepository) GetAll(ctx context.Context) ([]domain.Review, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Review), args.Error(1)
}

func (m *mockReviewRepository) GetStats(ctx context.Context) (domain.Stats, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.Stats), args.Error(1)
}

func (m *mockReviewRepository) Snapshot(ctx context.Context) (repository.Snapshot, error) {
	args := m.Called(ctx)
	return args.Get(0).(repository.Snapshot), args.Error(1)
}

func (m *mockReviewRepository) Refresh(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockReviewRepository) FindByUser(ctx context.Context, userID string) (*domain.Review, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) Create(ctx context.Context, sub domain.Submission) (*domain.Review, error) {
	args := m.Called(ctx, sub)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) Update(ctx context.Context, userID string, sub domain.Submission) (*domain.Review, error) {
	args := m.Called(ctx, userID, sub)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) Upsert(ctx context.Context, userID string, sub domain.Submission) (*domain.Review, error) {
	args := m.Called(ctx, userID, sub)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) Degraded() bool {
	return m.Called().Bool(0)
}

// --- Test Helpers ---

type staticSessions struct{ sess *domain.Session }

func (s staticSessions) Current() *domain.Session { return s.sess }

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func loggedIn(id string) staticSessions {
	return staticSessions{sess: &domain.Session{SubjectID: id, DisplayName: "Ahmed Khan", AvatarURL: "https://img.example.com/a.png"}}
}

func sampleReviews(n int) []domain.Review {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]domain.Review, n)
	for i := range out {
		out[i] = domain.Review{
			ID:        domain.ReviewID(string(rune('a' + i))),
			Rating:    1 + i%5,
			CreatedAt: domain.Timestamp{Time: base.AddDate(0, 0, i)},
		}
	}
	return out
}

// --- View ---

func TestView_SortsPagesAndFindsMyReview(t *testing.T) {
	repo := new(mockReviewRepository)
	reviews := sampleReviews(14)
	reviews[3].UserID = domain.StringPtr("U1")
	reviews[3].DisplayName = domain.AnonymousName
	repo.On("Snapshot", mock.Anything).Return(repository.Snapshot{
		Reviews: reviews,
		Stats:   domain.Stats{AverageRating: 3, TotalReviews: 14},
	}, nil)

	board := NewBoard(repo, loggedIn("U1"), newTestLogger(), 12, "")

	view, err := board.View(context.Background(), domain.SortNewest, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, view.TotalPages)
	assert.Len(t, view.Reviews, 2)
	assert.Equal(t, domain.ReviewID("b"), view.Reviews[0].ID)
	assert.Equal(t, domain.ReviewID("a"), view.Reviews[1].ID)
	assert.True(t, view.LoggedIn)
	require.NotNil(t, view.MyReview)
	assert.Equal(t, domain.ReviewID("d"), view.MyReview.ID)
	require.NotNil(t, view.Form)
	assert.True(t, view.Form.Anonymous)
	assert.Equal(t, 14, view.Stats.TotalReviews)
}

func TestView_PageOutOfRange(t *testing.T) {
	repo := new(mockReviewRepository)
	repo.On("Snapshot", mock.Anything).Return(repository.Snapshot{Reviews: sampleReviews(25)}, nil)
	board := NewBoard(repo, staticSessions{}, newTestLogger(), 12, "")

	for _, page := range []int{0, 4} {
		_, err := board.View(context.Background(), domain.SortNewest, page)
		require.Error(t, err, "page %d", page)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	}

	view, err := board.View(context.Background(), domain.SortNewest, 3)
	require.NoError(t, err)
	assert.Len(t, view.Reviews, 1)
	assert.False(t, view.LoggedIn)
	assert.Nil(t, view.MyReview)
}

func TestView_DegradedFlagAndLoadError(t *testing.T) {
	repo := new(mockReviewRepository)
	repo.On("Snapshot", mock.Anything).Return(repository.Snapshot{Reviews: sampleReviews(6), Degraded: true}, nil).Once()
	repo.On("Snapshot", mock.Anything).Return(repository.Snapshot{}, context.Canceled).Once()
	board := NewBoard(repo, staticSessions{}, newTestLogger(), 0, "")

	view, err := board.View(context.Background(), domain.SortHighest, 1)
	require.NoError(t, err)
	assert.True(t, view.Degraded)
	assert.Equal(t, 12, view.PageSize)

	_, err = board.View(context.Background(), domain.SortHighest, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

// --- Submit ---

func TestSubmit_LoggedInWithoutPriorReview(t *testing.T) {
	repo := new(mockReviewRepository)
	want := domain.Submission{
		Rating:  5,
		Comment: "Great service, very helpful staff",
		Name:    "Ahmed Khan",
		Avatar:  domain.StringPtr("https://img.example.com/a.png"),
		UserID:  domain.StringPtr("U1"),
	}
	saved := &domain.Review{ID: "srv-1", UserID: domain.StringPtr("U1"), Rating: 5}
	repo.On("Upsert", mock.Anything, "U1", want).Return(saved, nil)
	repo.On("Degraded").Return(false)

	board := NewBoard(repo, loggedIn("U1"), newTestLogger(), 12, "")

	got, err := board.Submit(context.Background(), domain.ReviewInput{Rating: 5, Comment: "Great service, very helpful staff"})
	require.NoError(t, err)
	assert.Equal(t, saved, got)
	repo.AssertExpectations(t)
}

func TestSubmit_LoggedOut(t *testing.T) {
	repo := new(mockReviewRepository)
	board := NewBoard(repo, staticSessions{}, newTestLogger(), 12, "")

	_, err := board.Submit(context.Background(), domain.ReviewInput{Rating: 5, Comment: "Great service, very helpful staff"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_ValidationNeverReachesRepository(t *testing.T) {
	repo := new(mockReviewRepository)
	board := NewBoard(repo, loggedIn("U1"), newTestLogger(), 12, "")

	_, err := board.Submit(context.Background(), domain.ReviewInput{Rating: 0, Comment: "Great service, very helpful staff"})
	var verr *validator.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, domain.MsgSelectRating, verr.First())

	_, err = board.Submit(context.Background(), domain.ReviewInput{Rating: 3, Comment: "  too short "})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, domain.MsgCommentLength, verr.First())

	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_SecondSubmissionWhileInFlightIsRejected(t *testing.T) {
	repo := new(mockReviewRepository)
	release := make(chan struct{})
	entered := make(chan struct{})
	repo.On("Upsert", mock.Anything, "U1", mock.Anything).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(&domain.Review{ID: "srv-1"}, nil).Once()
	repo.On("Degraded").Return(false)

	board := NewBoard(repo, loggedIn("U1"), newTestLogger(), 12, "")
	in := domain.ReviewInput{Rating: 4, Comment: "Great service, very helpful staff"}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := board.Submit(context.Background(), in)
		assert.NoError(t, err)
	}()

	<-entered
	_, err := board.Submit(context.Background(), in)
	assert.ErrorIs(t, err, ErrSubmissionInFlight)
	assert.Equal(t, 409, apperrors.HTTPStatus(err))

	close(release)
	wg.Wait()
	repo.AssertNumberOfCalls(t, "Upsert", 1)

	// The flag is released once the first submission finishes.
	repo.On("Upsert", mock.Anything, "U1", mock.Anything).Return(&domain.Review{ID: "srv-1"}, nil).Once()
	_, err = board.Submit(context.Background(), in)
	assert.NoError(t, err)
}

func TestSubmit_RepositoryErrorReleasesFlag(t *testing.T) {
	repo := new(mockReviewRepository)
	repo.On("Upsert", mock.Anything, "U1", mock.Anything).Return(nil, apperrors.InvalidInput("reviews-api: rating out of range")).Once()
	repo.On("Upsert", mock.Anything, "U1", mock.Anything).Return(&domain.Review{ID: "srv-2"}, nil).Once()
	repo.On("Degraded").Return(true)

	board := NewBoard(repo, loggedIn("U1"), newTestLogger(), 12, "")
	in := domain.ReviewInput{Rating: 4, Comment: "Great service, very helpful staff"}

	_, err := board.Submit(context.Background(), in)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	got, err := board.Submit(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewID("srv-2"), got.ID)
}

// --- MyReview / Refresh ---

func TestMyReview(t *testing.T) {
	repo := new(mockReviewRepository)
	mine := &domain.Review{ID: "r1", UserID: domain.StringPtr("U1")}
	repo.On("FindByUser", mock.Anything, "U1").Return(mine, nil)

	got, err := NewBoard(repo, loggedIn("U1"), newTestLogger(), 12, "").MyReview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, mine, got)

	got, err = NewBoard(repo, staticSessions{}, newTestLogger(), 12, "").MyReview(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
	repo.AssertNumberOfCalls(t, "FindByUser", 1)
}

func TestRefreshAndLoginURL(t *testing.T) {
	repo := new(mockReviewRepository)
	repo.On("Refresh", mock.Anything).Return(nil).Once()
	repo.On("Refresh", mock.Anything).Return(context.DeadlineExceeded).Once()
	repo.On("Degraded").Return(false)

	board := NewBoard(repo, staticSessions{}, newTestLogger(), 12, "http://localhost:8000/api/auth/google")
	assert.NoError(t, board.Refresh(context.Background()))
	assert.ErrorIs(t, board.Refresh(context.Background()), context.DeadlineExceeded)
	assert.False(t, board.Degraded())
	assert.Equal(t, "http://localhost:8000/api/auth/google", board.LoginURL())
}

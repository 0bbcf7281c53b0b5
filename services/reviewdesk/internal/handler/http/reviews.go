package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	apperrors "github.com/owaisoptics/reviewdesk/pkg/errors"
	"github.com/owaisoptics/reviewdesk/pkg/httputil"
	"github.com/owaisoptics/reviewdesk/pkg/pagination"
	"github.com/owaisoptics/reviewdesk/services/reviewdesk/internal/domain"
	"github.com/owaisoptics/reviewdesk/services/reviewdesk/internal/service"
)

// maxBodyBytes caps review submissions.
const maxBodyBytes = 16 << 10

// ReviewHandler serves the review board endpoints.
type ReviewHandler struct {
	board  *service.Board
	logger *slog.Logger
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(board *service.Board, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		board:  board,
		logger: logger,
	}
}

type submitResponse struct {
	Review   *domain.Review `json:"review"`
	Degraded bool           `json:"degraded"`
}

type refreshResponse struct {
	Degraded bool `json:"degraded"`
}

// List handles GET /api/reviews?sort=&page=.
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	mode, err := domain.ParseSortMode(q.Get("sort"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	page, err := pagination.ParsePage(q.Get("page"))
	if err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput(err.Error()), h.logger)
		return
	}

	view, err := h.board.View(r.Context(), mode, page)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}

// Submit handles POST /api/reviews.
func (h *ReviewHandler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var in domain.ReviewInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.WriteError(w, r, fmt.Errorf("decode request body: %v: %w", err, apperrors.ErrInvalidInput), h.logger)
		return
	}

	saved, err := h.board.Submit(r.Context(), in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, submitResponse{Review: saved, Degraded: h.board.Degraded()})
}

// Refresh handles POST /api/reviews/refresh.
func (h *ReviewHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.board.Refresh(r.Context()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, refreshResponse{Degraded: h.board.Degraded()})
}

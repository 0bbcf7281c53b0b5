package http

import (
	"log/slog"
	"net/http"

	"github.com/owaisoptics/reviewdesk/pkg/httputil"
	"github.com/owaisoptics/reviewdesk/pkg/logger"
	"github.com/owaisoptics/reviewdesk/services/reviewdesk/internal/domain"
	"github.com/owaisoptics/reviewdesk/services/reviewdesk/internal/service"
	"github.com/owaisoptics/reviewdesk/services/reviewdesk/internal/session"
)

// AuthHandler serves the OAuth landing page, the login redirect and logout.
type AuthHandler struct {
	sessions *session.Store
	board    *service.Board
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(sessions *session.Store, board *service.Board, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		sessions: sessions,
		board:    board,
		logger:   logger,
	}
}

type sessionResponse struct {
	Session  *domain.Session `json:"session"`
	LoggedIn bool            `json:"logged_in"`
}

// Landing handles GET on the public base path. A redirect from the OAuth
// provider carries the token in the query; it is consumed and the browser is
// sent to the same URL without it.
func (h *AuthHandler) Landing(w http.ResponseWriter, r *http.Request) {
	sess, clean, err := h.sessions.BootstrapFromRedirect(r.Context(), r.URL)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if sess != nil {
		logger.FromContext(r.Context()).Info("signed in from redirect",
			slog.String("subject_id", sess.SubjectID),
		)
		http.Redirect(w, r, clean.RequestURI(), http.StatusSeeOther)
		return
	}

	cur := h.sessions.Current()
	httputil.WriteData(w, http.StatusOK, sessionResponse{Session: cur, LoggedIn: cur != nil})
}

// Login handles GET /auth/google.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.board.LoginURL(), http.StatusFound)
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(r.Context()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, sessionResponse{})
}

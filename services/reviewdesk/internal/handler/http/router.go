package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/owaisoptics/reviewdesk/pkg/health"
	"github.com/owaisoptics/reviewdesk/pkg/middleware"
	"github.com/owaisoptics/reviewdesk/services/reviewdesk/internal/service"
	"github.com/owaisoptics/reviewdesk/services/reviewdesk/internal/session"
)

const serviceName = "reviewdesk"

// RouterConfig carries the knobs of the HTTP surface.
type RouterConfig struct {
	// BasePath is where the OAuth provider redirects back to. Defaults to "/".
	BasePath string

	CORS middleware.CORSConfig

	// SubmitRPS and SubmitBurst limit POST /api/reviews per client IP.
	SubmitRPS   float64
	SubmitBurst int
}

// NewRouter creates a chi router with all review desk routes registered.
func NewRouter(
	board *service.Board,
	sessions *session.Store,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	if cfg.BasePath == "" {
		cfg.BasePath = "/"
	}

	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger, "/health/live", "/health/ready", "/metrics"))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger, func(*http.Request) string { return sessions.SubjectID() }))
	r.Use(middleware.CORS(cfg.CORS))

	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	authHandler := NewAuthHandler(sessions, board, logger)
	reviewHandler := NewReviewHandler(board, logger)

	r.Get(cfg.BasePath, authHandler.Landing)
	r.Get("/auth/google", authHandler.Login)
	r.Post("/auth/logout", authHandler.Logout)

	r.Route("/api/reviews", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/", reviewHandler.List)
		r.With(middleware.RateLimit(cfg.SubmitRPS, cfg.SubmitBurst, logger)).Post("/", reviewHandler.Submit)
		r.Post("/refresh", reviewHandler.Refresh)
	})

	return r
}

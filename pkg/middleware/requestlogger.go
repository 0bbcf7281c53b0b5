package middleware

import (
	"log/slog"
	"net/http"

	"github.com/owaisoptics/reviewdesk/pkg/logger"
)

// SubjectFunc reports the identity behind a request, or "" when there is none.
type SubjectFunc func(r *http.Request) string

// RequestLogger returns middleware that builds a request-scoped logger enriched
// with correlation_id, subject_id, trace_id, and span_id, then stores it in
// context via logger.NewContext. Downstream handlers retrieve it with
// logger.FromContext(ctx).
//
// Mount it after RequestLogging and Tracing so both ids are already present.
func RequestLogger(base *slog.Logger, subject SubjectFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if subject != nil {
				if id := subject(r); id != "" {
					ctx = logger.WithSubjectID(ctx, id)
				}
			}

			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

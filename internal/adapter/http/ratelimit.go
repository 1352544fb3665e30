package http

import (
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

// refreshLimit allows one request per interval with no burst. The limiter is
// shared by every client since each refresh hits the upstream feed.
func refreshLimit(every time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Every(every), 1)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				logger.Warn("refresh rate limit exceeded",
					"path", r.URL.Path,
					"request_id", chimw.GetReqID(r.Context()),
				)
				sharedobs.WriteJSON(w, http.StatusTooManyRequests, map[string]string{
					"error": http.StatusText(http.StatusTooManyRequests),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

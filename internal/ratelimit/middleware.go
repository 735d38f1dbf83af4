package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	dErrors "arkhiv/pkg/domain-errors"
	"arkhiv/pkg/platform/httputil"
	"arkhiv/pkg/requestcontext"
)

// Middleware limits requests per authenticated principal. It must run after
// authentication so the principal is in the context. When the store fails the
// request passes through: availability over strictness for a read endpoint.
func Middleware(store Store, limit int, window time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principal := requestcontext.Principal(ctx)
			if principal.IsZero() {
				next.ServeHTTP(w, r)
				return
			}

			result, err := store.Allow(ctx, "download:"+principal.ID.String(), limit, window)
			if err != nil {
				logger.ErrorContext(ctx, "rate limit check failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter()))
				httputil.WriteJSON(w, http.StatusTooManyRequests, map[string]any{
					"error":       dErrors.CodeRateLimited,
					"description": "too many download requests, slow down",
					"retry_after": result.RetryAfter(),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

package middleware

import (
	"log/slog"
	"net/http"

	id "arkhiv/pkg/domain"
	"arkhiv/pkg/requestcontext"
)

// RequireRoles rejects authenticated principals whose role is not in the
// allowlist. Must run after RequireAuth.
func RequireRoles(logger *slog.Logger, roles ...id.Role) func(http.Handler) http.Handler {
	allowed := make(map[id.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principal := requestcontext.Principal(ctx)
			if principal.IsZero() || !allowed[principal.Role] {
				logger.WarnContext(ctx, "forbidden - insufficient role",
					"role", principal.Role,
					"path", r.URL.Path,
					"request_id", GetRequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

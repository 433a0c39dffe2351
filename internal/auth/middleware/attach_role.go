package auth

import (
	"errors"
	"net/http"

	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

// AttachRoleFromDB replaces the token's role with the one stored for the
// subject, so demotions take effect before tokens expire. When the user row
// is gone the token is refused unless allowClaimFallback is set (offline
// installs).
func AttachRoleFromDB(users *UserStore, allowClaimFallback bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			u, err := users.GetByID(ctx, rbac.SubjectFromContext(ctx))
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, u.Role)))
			case errors.Is(err, ErrUserNotFound) && allowClaimFallback && rbac.RoleFromContext(ctx) != "":
				next.ServeHTTP(w, r)
			case errors.Is(err, ErrUserNotFound):
				http.Error(w, "forbidden", http.StatusForbidden)
			default:
				http.Error(w, "user lookup failed", http.StatusInternalServerError)
			}
		})
	}
}

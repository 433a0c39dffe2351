package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/logger"
)

type updateUserRoleReq struct {
	Role string `json:"role" validate:"required,oneof=student admin"`
}

// PUT /users/{userID}/role
func AdminUpdateUserRoleHandler(users *auth.UserStore, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := chi.URLParam(r, "userID")
		var req updateUserRoleReq
		if !decode(w, r, &req) {
			return
		}
		u, err := users.SetRole(r.Context(), target, strings.ToLower(req.Role))
		switch {
		case errors.Is(err, auth.ErrUserNotFound):
			http.Error(w, "user not found", http.StatusNotFound)
		case errors.Is(err, auth.ErrLastAdmin):
			http.Error(w, err.Error(), http.StatusConflict)
		case err != nil:
			respondError(w, r, log, err)
		default:
			log.Info("user role changed", "user_id", u.ID, "role", u.Role)
			respondJSON(w, http.StatusOK, u)
		}
	}
}

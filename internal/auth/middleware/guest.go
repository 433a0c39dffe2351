package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

const (
	guestCookie = "mq_guest_id"
	guestPrefix = "guest-"
)

// CreateGuest inserts a student without a password; it can only sign in
// through the guest cookie.
func (s *UserStore) CreateGuest(ctx context.Context) (User, error) {
	id := uuid.New()
	u := User{
		ID:        guestPrefix + id.String(),
		Username:  guestPrefix + strings.ReplaceAll(id.String(), "-", "")[:8],
		Role:      rbac.RoleStudent,
		CreatedAt: s.Now().UnixMilli(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, role, created_at) VALUES ($1,$2,'',$3,$4)`,
		u.ID, u.Username, u.Role, u.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// POST /auth/guest
// Reuses the guest identity stored in the cookie when it is still valid,
// otherwise creates a new one.
func GuestLoginHandler(a *AuthService, users *UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(guestCookie); err == nil && strings.HasPrefix(c.Value, guestPrefix) {
			if u, err := users.GetByID(r.Context(), c.Value); err == nil && u.Role == rbac.RoleStudent {
				setGuestCookie(w, u.ID)
				a.respond(w, http.StatusOK, u)
				return
			}
		}
		u, err := users.CreateGuest(r.Context())
		if err != nil {
			http.Error(w, "create guest", http.StatusInternalServerError)
			return
		}
		setGuestCookie(w, u.ID)
		a.respond(w, http.StatusCreated, u)
	}
}

func setGuestCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     guestCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
		Expires:  time.Now().Add(30 * 24 * time.Hour),
	})
}

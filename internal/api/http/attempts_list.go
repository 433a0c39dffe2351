package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

// GET /attempts?quiz_id=...&user_id=...&limit=50&offset=0
// Without attempt:view-all the user_id filter is forced to the caller.
func ListAttemptsHandler(svc *quiz.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var quizID int64
		if s := strings.TrimSpace(q.Get("quiz_id")); s != "" {
			id, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				http.Error(w, "bad quiz_id", http.StatusBadRequest)
				return
			}
			quizID = id
		}
		userID := strings.TrimSpace(q.Get("user_id"))
		if !rbac.Can(r.Context(), rbac.PermAttemptViewAll) {
			userID = rbac.SubjectFromContext(r.Context())
		}

		list, err := svc.ListAttempts(r.Context(), quiz.AttemptListOpts{
			QuizID: quizID,
			UserID: userID,
			Limit:  parseIntDefault(q.Get("limit"), 50),
			Offset: parseIntDefault(q.Get("offset"), 0),
		})
		if err != nil {
			respondError(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}

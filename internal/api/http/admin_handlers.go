package http

import (
	"net/http"
	"strconv"

	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

// GET /quizzes/{quizID}/report
func QuizReportHandler(svc *quiz.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "quizID")
		if !ok {
			return
		}
		report, err := svc.Report(r.Context(), id)
		if err != nil {
			respondError(w, r, log, err)
			return
		}
		for _, e := range report {
			if e.Failures > 0 {
				log.Warn("report entry has unreadable questions", "quiz_id", id, "attempt_id", e.Attempt.ID, "failures", e.Failures)
			}
		}
		respondJSON(w, http.StatusOK, report)
	}
}

// GET /admin/events?after=<seq>&limit=100
// Pages through the event log in sequence order.
func ListEventsHandler(events *syncx.EventRepo, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var after int64
		if s := r.URL.Query().Get("after"); s != "" {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil || v < 0 {
				http.Error(w, "bad after", http.StatusBadRequest)
				return
			}
			after = v
		}
		list, err := events.List(r.Context(), after, parseIntDefault(r.URL.Query().Get("limit"), 100))
		if err != nil {
			respondError(w, r, log, err)
			return
		}
		if list == nil {
			list = []syncx.Event{}
		}
		respondJSON(w, http.StatusOK, list)
	}
}

package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

type answerReq struct {
	QuestionID   int64           `json:"questionId" validate:"required,gt=0"`
	QuestionType string          `json:"questionType"`
	RawAnswer    json.RawMessage `json:"rawAnswer"`
}

type submitReq struct {
	Answers []answerReq `json:"answers" validate:"max=500,dive"`
}

type submitResp struct {
	Attempt     quiz.Attempt      `json:"attempt"`
	PerQuestion []grading.Verdict `json:"per_question"`
}

// resultsResp carries the reconstructed attempt. Complete is false when
// some questions could not be rebuilt from storage; those carry an error.
type resultsResp struct {
	Attempt   quiz.Attempt             `json:"attempt"`
	Questions []grading.QuestionResult `json:"questions"`
	Complete  bool                     `json:"complete"`
}

// POST /quizzes/{quizID}/attempts  { "answers": [{questionId, questionType, rawAnswer}] }
func SubmitAttemptHandler(svc *quiz.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID, ok := idParam(w, r, "quizID")
		if !ok {
			return
		}
		var req submitReq
		if !decode(w, r, &req) {
			return
		}
		answers := make([]grading.RawAnswer, len(req.Answers))
		for i, a := range req.Answers {
			answers[i] = grading.RawAnswer{
				QuestionID:   a.QuestionID,
				QuestionType: grading.QuestionType(a.QuestionType),
				Answer:       a.RawAnswer,
			}
		}
		userID := rbac.SubjectFromContext(r.Context())
		a, sub, err := svc.Submit(r.Context(), quizID, userID, answers)
		if err != nil {
			respondError(w, r, log, err)
			return
		}
		log.Info("attempt submitted", "attempt_id", a.ID, "quiz_id", quizID, "user_id", userID, "score", a.Score, "total", a.Total)
		respondJSON(w, http.StatusCreated, submitResp{Attempt: a, PerQuestion: sub.PerQuestion})
	}
}

// GET /attempts/{attemptID}/results
// Owners may read their own attempts; others need attempt:view-all. Someone
// else's attempt answers exactly like a missing one.
func AttemptResultsHandler(svc *quiz.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "attemptID")
		if !ok {
			return
		}
		a, err := svc.Attempt(r.Context(), id)
		if err != nil {
			respondError(w, r, log, err)
			return
		}
		if a.UserID != rbac.SubjectFromContext(r.Context()) && !rbac.Can(r.Context(), rbac.PermAttemptViewAll) {
			respondError(w, r, log, &quiz.NotFoundError{Kind: "attempt", ID: id})
			return
		}
		res, err := svc.AttemptResults(r.Context(), a)
		if err != nil {
			respondError(w, r, log, err)
			return
		}
		writeResults(w, log, res)
	}
}

// GET /quizzes/{quizID}/attempts/latest[?user_id=]
// user_id is honoured only with attempt:view-all.
func LatestAttemptHandler(svc *quiz.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID, ok := idParam(w, r, "quizID")
		if !ok {
			return
		}
		userID := rbac.SubjectFromContext(r.Context())
		if u := strings.TrimSpace(r.URL.Query().Get("user_id")); u != "" && rbac.Can(r.Context(), rbac.PermAttemptViewAll) {
			userID = u
		}
		res, err := svc.LatestResults(r.Context(), quizID, userID)
		if err != nil {
			respondError(w, r, log, err)
			return
		}
		writeResults(w, log, res)
	}
}

func writeResults(w http.ResponseWriter, log *logger.Logger, res quiz.AttemptResult) {
	if res.Err != nil {
		log.Warn("attempt reconstructed with integrity errors", "attempt_id", res.Attempt.ID, "error", res.Err)
	}
	respondJSON(w, http.StatusOK, resultsResp{
		Attempt:   res.Attempt,
		Questions: res.Questions,
		Complete:  res.Err == nil,
	})
}

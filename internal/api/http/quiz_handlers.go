package http

import (
	"net/http"
	"strings"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

type createQuizReq struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=4000"`
	Active      *bool  `json:"active"`
}

type updateQuizReq struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=4000"`
	Active      *bool   `json:"active"`
}

type optionReq struct {
	Text      string `json:"text" validate:"max=1000"`
	LeftText  string `json:"left_text" validate:"max=1000"`
	RightText string `json:"right_text" validate:"max=1000"`
	IsCorrect bool   `json:"is_correct"`
}

type questionReq struct {
	Text    string      `json:"text" validate:"required,max=4000"`
	Type    string      `json:"type"`
	Options []optionReq `json:"options" validate:"required,min=1,max=50,dive"`
}

func (q questionReq) toGrading(id int64) grading.Question {
	out := grading.Question{ID: id, Text: strings.TrimSpace(q.Text), Type: grading.QuestionType(q.Type)}
	for _, o := range q.Options {
		out.Options = append(out.Options, grading.Option{
			Text:      strings.TrimSpace(o.Text),
			LeftText:  strings.TrimSpace(o.LeftText),
			RightText: strings.TrimSpace(o.RightText),
			IsCorrect: o.IsCorrect,
		})
	}
	return out
}

// POST /quizzes
func CreateQuizHandler(svc *quiz.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createQuizReq
		if !decode(w, r, &req) {
			return
		}
		q := quiz.Quiz{
			Title:       req.Title,
			Description: req.Description,
			Active:      req.Active == nil || *req.Active,
			CreatedBy:   rbac.SubjectFromContext(r.Context()),
		}
		out, err := svc.CreateQuiz(r.Context(), q)
		if err != nil {
			respondError(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusCreated, out)
	}
}

// PATCH /quizzes/{quizID}
func UpdateQuizHandler(svc *quiz.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "quizID")
		if !ok {
			return
		}
		var req updateQuizReq
		if !decode(w, r, &req) {
			return
		}
		cur, err := svc.GetQuiz(r.Context(), id, true)
		if err != nil {
			respondError(w, r, log, err)
			return
		}
		if req.Title != nil {
			cur.Title = *req.Title
		}
		if req.Description != nil {
			cur.Description = *req.Description
		}
		if req.Active != nil {
			cur.Active = *req.Active
		}
		out, err := svc.UpdateQuiz(r.Context(), cur)
		if err != nil {
			respondError(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, out)
	}
}

// GET /quizzes?q=&limit=&offset=
// Callers without quiz:edit only see active quizzes.
func ListQuizzesHandler(svc *quiz.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListQuizzes(r.Context(), quiz.ListOpts{
			ActiveOnly: !rbac.Can(r.Context(), rbac.PermQuizEdit),
			Q:          strings.TrimSpace(r.URL.Query().Get("q")),
			Limit:      parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset:     parseIntDefault(r.URL.Query().Get("offset"), 0),
		})
		if err != nil {
			respondError(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}

// GET /quizzes/{quizID}
// Answer keys are only included for callers with quiz:view-answers.
func GetQuizHandler(svc *quiz.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "quizID")
		if !ok {
			return
		}
		q, err := svc.GetQuiz(r.Context(), id, rbac.Can(r.Context(), rbac.PermQuizViewAnswers))
		if err != nil {
			respondError(w, r, log, err)
			return
		}
		if !q.Active && !rbac.Can(r.Context(), rbac.PermQuizEdit) {
			http.Error(w, "quiz not found", http.StatusNotFound)
			return
		}
		respondJSON(w, http.StatusOK, q)
	}
}

// POST /quizzes/{quizID}/questions
func AddQuestionHandler(svc *quiz.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID, ok := idParam(w, r, "quizID")
		if !ok {
			return
		}
		var req questionReq
		if !decode(w, r, &req) {
			return
		}
		if req.Type == "" {
			http.Error(w, "type required", http.StatusBadRequest)
			return
		}
		q, err := svc.AddQuestion(r.Context(), quizID, req.toGrading(0))
		if err != nil {
			respondError(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusCreated, q)
	}
}

// PUT /questions/{questionID}
// The type may be omitted; if given it must match the stored one.
func UpdateQuestionHandler(svc *quiz.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "questionID")
		if !ok {
			return
		}
		var req questionReq
		if !decode(w, r, &req) {
			return
		}
		q, err := svc.UpdateQuestion(r.Context(), req.toGrading(id))
		if err != nil {
			respondError(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, q)
	}
}

// DELETE /questions/{questionID}
func DeleteQuestionHandler(svc *quiz.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "questionID")
		if !ok {
			return
		}
		if err := svc.DeleteQuestion(r.Context(), id); err != nil {
			respondError(w, r, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

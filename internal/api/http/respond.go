package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

var validate = validator.New()

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// decode reads a JSON body into dst and runs struct validation on it.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// respondError maps domain errors to statuses. Anything unrecognised is
// logged and reported as 500.
func respondError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	var (
		ve  *grading.ValidationError
		ue  *grading.UnsupportedQuestionTypeError
		de  *grading.DataIntegrityError
		nfe *quiz.NotFoundError
	)
	switch {
	case errors.As(err, &ve):
		http.Error(w, ve.Error(), http.StatusBadRequest)
	case errors.As(err, &nfe):
		http.Error(w, nfe.Error(), http.StatusNotFound)
	case errors.As(err, &ue):
		log.Warn("unsupported question type", "path", r.URL.Path, "question_id", ue.QuestionID, "type", ue.Type)
		http.Error(w, ue.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &de):
		log.Error("stored responses inconsistent", "path", r.URL.Path, "error", err)
		http.Error(w, de.Error(), http.StatusInternalServerError)
	default:
		log.Error("request failed", "path", r.URL.Path, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "bad "+name, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}

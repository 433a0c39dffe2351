package quiz

import "github.com/mind-engage/mindengage-quiz/internal/grading"

type Quiz struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Active      bool       `json:"active"`
	CreatedBy   string     `json:"created_by,omitempty"`
	CreatedAt   int64      `json:"created_at"`
	UpdatedAt   int64      `json:"updated_at"`
	Questions   []Question `json:"questions,omitempty"`
}

// Question is a stored question. Deleted questions stay in the table so
// past attempts can still be reconstructed.
type Question struct {
	grading.Question
	QuizID    int64 `json:"quiz_id"`
	Position  int   `json:"position"`
	Deleted   bool  `json:"deleted,omitempty"`
	CreatedAt int64 `json:"created_at"`
}

// Attempt is one scored submission; immutable once written.
type Attempt struct {
	ID         int64   `json:"id"`
	QuizID     int64   `json:"quiz_id"`
	UserID     string  `json:"user_id"`
	Score      int     `json:"score"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
	CreatedAt  int64   `json:"created_at"`
}

// AttemptResult is an attempt plus its reconstructed per-question view.
// Err joins per-question reconstruction failures; the affected questions
// carry their own Error.
type AttemptResult struct {
	Attempt   Attempt                  `json:"attempt"`
	Questions []grading.QuestionResult `json:"questions"`
	Err       error                    `json:"-"`
}

// ReportEntry summarises one user's latest attempt of a quiz.
type ReportEntry struct {
	UserID    string            `json:"user_id"`
	Attempt   Attempt           `json:"attempt"`
	Questions []QuestionOutcome `json:"questions"`
	Failures  int               `json:"failures,omitempty"`
}

type QuestionOutcome struct {
	QuestionID int64 `json:"question_id"`
	Correct    bool  `json:"correct"`
}

type ListOpts struct {
	ActiveOnly bool
	Q          string
	Limit      int
	Offset     int
}

type AttemptListOpts struct {
	QuizID int64  // 0 = any
	UserID string // "" = any
	Limit  int
	Offset int
}

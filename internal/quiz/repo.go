package quiz

import (
	"context"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
)

type Store interface {
	CreateQuiz(ctx context.Context, q Quiz) (Quiz, error)
	UpdateQuiz(ctx context.Context, q Quiz) (Quiz, error)
	GetQuiz(ctx context.Context, id int64) (Quiz, error) // full, with answer keys
	ListQuizzes(ctx context.Context, opts ListOpts) ([]Quiz, error)

	AddQuestion(ctx context.Context, quizID int64, q grading.Question) (Question, error)
	// UpdateQuestion rewrites text and replaces the option set; old options
	// are retired, not removed.
	UpdateQuestion(ctx context.Context, q grading.Question) (Question, error)
	DeleteQuestion(ctx context.Context, id int64) error
	GetQuestion(ctx context.Context, id int64) (Question, error)

	// ImportQuiz creates a quiz and its questions in one transaction.
	ImportQuiz(ctx context.Context, q Quiz, qs []grading.Question) (Quiz, error)

	// CreateAttempt writes the attempt, its response rows and an
	// AttemptSubmitted event in one transaction. It returns ErrQuizChanged
	// when schema, the questions sub was graded against, is no longer the
	// live answer key.
	CreateAttempt(ctx context.Context, a Attempt, schema []grading.Question, sub grading.Submission) (Attempt, error)
	GetAttempt(ctx context.Context, id int64) (Attempt, error)
	LatestAttempt(ctx context.Context, quizID int64, userID string) (Attempt, error)
	ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error)
	LatestAttemptsByUser(ctx context.Context, quizID int64) ([]Attempt, error)

	ResponseRows(ctx context.Context, attemptID int64) ([]grading.ResponseRow, error)
	// AttemptSchema returns the questions as they stood when a was taken,
	// plus any question its rows reference.
	AttemptSchema(ctx context.Context, a Attempt) ([]grading.Question, error)
}

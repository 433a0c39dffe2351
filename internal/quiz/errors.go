package quiz

import (
	"errors"
	"fmt"
)

// NotFoundError reports a missing quiz, question or attempt.
type NotFoundError struct {
	Kind string
	ID   any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Kind, e.ID)
}

func notFound(kind string, id any) error { return &NotFoundError{Kind: kind, ID: id} }

// ErrQuizChanged means the questions or options a submission was graded
// against were edited before the attempt was stored.
var ErrQuizChanged = errors.New("quiz changed during submission")

package grading

import "fmt"

// ValidationError rejects a submission: a foreign option id, an undecodable
// payload, or a missing required field.
type ValidationError struct {
	QuestionID int64
	Msg        string
}

func (e *ValidationError) Error() string {
	if e.QuestionID == 0 {
		return "validation: " + e.Msg
	}
	return fmt.Sprintf("validation: question %d: %s", e.QuestionID, e.Msg)
}

func invalid(qid int64, format string, args ...any) error {
	return &ValidationError{QuestionID: qid, Msg: fmt.Sprintf(format, args...)}
}

// UnsupportedQuestionTypeError aborts a whole submission; skipping the
// question would corrupt the score denominator.
type UnsupportedQuestionTypeError struct {
	QuestionID int64
	Type       QuestionType
}

func (e *UnsupportedQuestionTypeError) Error() string {
	return fmt.Sprintf("question %d: unsupported question type %q", e.QuestionID, e.Type)
}

// DataIntegrityError marks persisted rows of one question as incomplete or
// inconsistent. Reconstruction of other questions continues.
type DataIntegrityError struct {
	QuestionID int64
	Msg        string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("data integrity: question %d: %s", e.QuestionID, e.Msg)
}

func corrupt(qid int64, format string, args ...any) *DataIntegrityError {
	return &DataIntegrityError{QuestionID: qid, Msg: fmt.Sprintf(format, args...)}
}

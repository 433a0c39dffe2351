package grading

import (
	"encoding/json"
	"slices"
)

// QuestionType tags the shape of a question's options and answers.
type QuestionType string

const (
	MultipleChoice QuestionType = "multiple-choice"
	TrueFalse      QuestionType = "true-false"
	Text           QuestionType = "text"
	CorrectOrder   QuestionType = "correct-order"
	MatchPairs     QuestionType = "match-pairs"
)

// Types lists every supported question type.
var Types = []QuestionType{MultipleChoice, TrueFalse, Text, CorrectOrder, MatchPairs}

func (t QuestionType) Valid() bool { return slices.Contains(Types, t) }

// Option is one stored option of a question. Which fields are meaningful
// depends on the question type:
//
//	multiple-choice, true-false: Text, IsCorrect
//	text:                        Text holds the canonical answer
//	correct-order:               Text; slice order is the correct order
//	match-pairs:                 LeftText, RightText
type Option struct {
	ID        int64  `json:"id"`
	Text      string `json:"text,omitempty"`
	LeftText  string `json:"left_text,omitempty"`
	RightText string `json:"right_text,omitempty"`
	IsCorrect bool   `json:"is_correct,omitempty"`
}

// Question is the grading view of a stored question. Options must be in
// creation order.
type Question struct {
	ID      int64        `json:"id"`
	Text    string       `json:"text"`
	Type    QuestionType `json:"type"`
	Options []Option     `json:"options"`
}

func (q Question) option(id int64) (Option, bool) {
	for _, o := range q.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

func (q Question) hasOption(id int64) bool {
	_, ok := q.option(id)
	return ok
}

// RawAnswer is one entry of a submission payload. Answer is decoded
// according to the stored question type.
type RawAnswer struct {
	QuestionID   int64           `json:"questionId"`
	QuestionType QuestionType    `json:"questionType,omitempty"`
	Answer       json.RawMessage `json:"rawAnswer,omitempty"`
}

// Pair is a match-pairs selection. RightID is nil when the left option was
// left unmatched.
type Pair struct {
	LeftID  int64  `json:"left_option_id"`
	RightID *int64 `json:"right_option_id"`
}

// NormalizedAnswer is a submitted answer in canonical, type-tagged form.
// Only the field matching Type is populated.
type NormalizedAnswer struct {
	QuestionID int64        `json:"question_id"`
	Type       QuestionType `json:"type"`
	Selected   []int64      `json:"selected,omitempty"` // multiple-choice, true-false
	Text       *string      `json:"text,omitempty"`     // text
	Order      []int64      `json:"order,omitempty"`    // correct-order, by position
	Pairs      []Pair       `json:"pairs,omitempty"`    // match-pairs
}

// Empty reports whether the answer counts as unanswered.
func (a NormalizedAnswer) Empty() bool {
	switch a.Type {
	case MultipleChoice, TrueFalse:
		return len(a.Selected) == 0
	case Text:
		return a.Text == nil
	case CorrectOrder:
		return len(a.Order) == 0
	case MatchPairs:
		return len(a.Pairs) == 0
	}
	return true
}

// Verdict is the evaluation outcome for one question.
type Verdict struct {
	QuestionID int64            `json:"question_id"`
	Type       QuestionType     `json:"type"`
	IsCorrect  bool             `json:"is_correct"`
	ScoreDelta int              `json:"score_delta"`
	Answer     NormalizedAnswer `json:"answer"`
}

// Submission is the scored result of a whole answer set.
type Submission struct {
	PerQuestion []Verdict `json:"per_question"`
	Score       int       `json:"score"`
	Total       int       `json:"total"`
	Percentage  float64   `json:"percentage"`
}

// ResponseRow is one persisted response row, joined with its question type.
type ResponseRow struct {
	AttemptID     int64        `json:"attempt_id"`
	QuestionID    int64        `json:"question_id"`
	QuestionType  QuestionType `json:"question_type"`
	OptionID      *int64       `json:"option_id,omitempty"`
	RightOptionID *int64       `json:"right_option_id,omitempty"`
	Position      *int         `json:"position,omitempty"`
	TextAnswer    *string      `json:"text_answer,omitempty"`
	IsCorrect     bool         `json:"is_correct"`
}

// ResultOption is an option annotated with what the user submitted.
type ResultOption struct {
	Option
	UserSelected bool   `json:"user_selected"`
	UserRightID  *int64 `json:"user_right_option_id,omitempty"` // match-pairs
	UserPosition *int   `json:"user_position,omitempty"`        // correct-order
}

// QuestionResult is the display record for one question of a past attempt.
type QuestionResult struct {
	QuestionID       int64            `json:"question_id"`
	Text             string           `json:"text"`
	Type             QuestionType     `json:"type"`
	Options          []ResultOption   `json:"options"`
	UserResponse     NormalizedAnswer `json:"user_response"`
	ResponseCorrect  bool             `json:"response_correct"`
	PersistedCorrect bool             `json:"persisted_correct"`
	Err              error            `json:"-"`
	Error            string           `json:"error,omitempty"`
}

package grading

import "strings"

// ValidateQuestion checks that a question's options have the shape its type
// requires. It is applied when questions are authored, not when grading.
func ValidateQuestion(q Question) error {
	if strings.TrimSpace(q.Text) == "" {
		return invalid(q.ID, "question text is required")
	}
	switch q.Type {
	case MultipleChoice:
		if len(q.Options) < 2 {
			return invalid(q.ID, "multiple-choice needs at least two options")
		}
		if countCorrect(q.Options) == 0 {
			return invalid(q.ID, "multiple-choice needs at least one correct option")
		}
		return requireText(q)
	case TrueFalse:
		if len(q.Options) != 2 {
			return invalid(q.ID, "true-false needs exactly two options")
		}
		if countCorrect(q.Options) != 1 {
			return invalid(q.ID, "true-false needs exactly one correct option")
		}
		return requireText(q)
	case Text:
		if len(q.Options) != 1 {
			return invalid(q.ID, "text question holds exactly one canonical answer")
		}
		return requireText(q)
	case CorrectOrder:
		if len(q.Options) < 2 {
			return invalid(q.ID, "correct-order needs at least two steps")
		}
		return requireText(q)
	case MatchPairs:
		if len(q.Options) < 2 {
			return invalid(q.ID, "match-pairs needs at least two pairs")
		}
		for i, o := range q.Options {
			if strings.TrimSpace(o.LeftText) == "" || strings.TrimSpace(o.RightText) == "" {
				return invalid(q.ID, "pair %d needs left and right text", i+1)
			}
		}
		return nil
	default:
		return &UnsupportedQuestionTypeError{QuestionID: q.ID, Type: q.Type}
	}
}

func countCorrect(opts []Option) int {
	n := 0
	for _, o := range opts {
		if o.IsCorrect {
			n++
		}
	}
	return n
}

func requireText(q Question) error {
	for i, o := range q.Options {
		if strings.TrimSpace(o.Text) == "" {
			return invalid(q.ID, "option %d text is required", i+1)
		}
	}
	return nil
}

// canonicalText returns the stored correct answer of a text question.
func canonicalText(q Question) (string, bool) {
	if len(q.Options) == 0 || strings.TrimSpace(q.Options[0].Text) == "" {
		return "", false
	}
	return q.Options[0].Text, true
}

// StripAnswers returns a copy of q without correctness markers, fit for
// showing to a student before submission.
func StripAnswers(q Question) Question {
	out := q
	out.Options = make([]Option, len(q.Options))
	for i, o := range q.Options {
		o.IsCorrect = false
		if q.Type == Text {
			o.Text = ""
		}
		out.Options[i] = o
	}
	return out
}

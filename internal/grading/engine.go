package grading

// Evaluate grades one normalized answer against its question. Scoring is
// all-or-nothing per question: ScoreDelta is 1 when correct, else 0.
func Evaluate(q Question, a NormalizedAnswer) (Verdict, error) {
	v := Verdict{QuestionID: q.ID, Type: q.Type, Answer: a}
	var ok bool
	switch q.Type {
	case MultipleChoice:
		ok = gradeChoices(q, a)
	case TrueFalse:
		ok = gradeTrueFalse(q, a)
	case Text:
		ok = gradeText(q, a)
	case CorrectOrder:
		ok = gradeOrder(q, a)
	case MatchPairs:
		ok = gradePairs(q, a)
	default:
		return v, &UnsupportedQuestionTypeError{QuestionID: q.ID, Type: q.Type}
	}
	if ok && !a.Empty() {
		v.IsCorrect = true
		v.ScoreDelta = 1
	}
	return v, nil
}

// EvaluateSubmission normalizes and grades every question of schema. Any
// validation or type error rejects the whole submission.
func EvaluateSubmission(schema []Question, answers []RawAnswer) (Submission, error) {
	byQuestion := make(map[int64]RawAnswer, len(answers))
	for _, ra := range answers {
		if _, dup := byQuestion[ra.QuestionID]; dup {
			return Submission{}, invalid(ra.QuestionID, "answered more than once")
		}
		byQuestion[ra.QuestionID] = ra
	}
	known := make(map[int64]struct{}, len(schema))
	for _, q := range schema {
		known[q.ID] = struct{}{}
	}
	for _, ra := range answers {
		if _, ok := known[ra.QuestionID]; !ok {
			return Submission{}, invalid(ra.QuestionID, "question is not part of this quiz")
		}
	}

	sub := Submission{PerQuestion: make([]Verdict, 0, len(schema)), Total: len(schema)}
	for _, q := range schema {
		if !q.Type.Valid() {
			return Submission{}, &UnsupportedQuestionTypeError{QuestionID: q.ID, Type: q.Type}
		}
		na, err := Normalize(q, byQuestion[q.ID])
		if err != nil {
			return Submission{}, err
		}
		v, err := Evaluate(q, na)
		if err != nil {
			return Submission{}, err
		}
		sub.Score += v.ScoreDelta
		sub.PerQuestion = append(sub.PerQuestion, v)
	}
	sub.Percentage = Percentage(sub.Score, sub.Total)
	return sub, nil
}

func gradeChoices(q Question, a NormalizedAnswer) bool {
	correct := make(map[int64]struct{})
	for _, o := range q.Options {
		if o.IsCorrect {
			correct[o.ID] = struct{}{}
		}
	}
	return setEqual(correct, toSet(a.Selected))
}

func gradeTrueFalse(q Question, a NormalizedAnswer) bool {
	if len(a.Selected) != 1 {
		return false
	}
	o, ok := q.option(a.Selected[0])
	return ok && o.IsCorrect
}

func gradeText(q Question, a NormalizedAnswer) bool {
	canonical, ok := canonicalText(q)
	if !ok || a.Text == nil {
		return false
	}
	return textMatches(*a.Text, canonical)
}

func gradeOrder(q Question, a NormalizedAnswer) bool {
	if len(a.Order) != len(q.Options) {
		return false
	}
	for i, o := range q.Options {
		if a.Order[i] != o.ID {
			return false
		}
	}
	return true
}

func gradePairs(q Question, a NormalizedAnswer) bool {
	chosen := make(map[int64]*int64, len(a.Pairs))
	for _, p := range a.Pairs {
		chosen[p.LeftID] = p.RightID
	}
	for _, o := range q.Options {
		r := chosen[o.ID]
		if r == nil || *r != o.ID {
			return false
		}
	}
	return true
}

// helpers

func toSet(ids []int64) map[int64]struct{} {
	m := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func setEqual(a, b map[int64]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

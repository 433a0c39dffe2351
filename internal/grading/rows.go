package grading

// ResponseRows flattens a scored submission into the rows persisted for
// attemptID. Unanswered questions produce no rows; every row carries its
// question's verdict.
func ResponseRows(attemptID int64, sub Submission) []ResponseRow {
	var rows []ResponseRow
	for _, v := range sub.PerQuestion {
		a := v.Answer
		if a.Empty() {
			continue
		}
		base := ResponseRow{AttemptID: attemptID, QuestionID: v.QuestionID, QuestionType: v.Type, IsCorrect: v.IsCorrect}
		switch v.Type {
		case MultipleChoice, TrueFalse:
			for _, id := range a.Selected {
				r := base
				r.OptionID = int64Ptr(id)
				rows = append(rows, r)
			}
		case Text:
			r := base
			t := *a.Text
			r.TextAnswer = &t
			rows = append(rows, r)
		case CorrectOrder:
			for i, id := range a.Order {
				r := base
				r.OptionID = int64Ptr(id)
				r.Position = intPtr(i)
				rows = append(rows, r)
			}
		case MatchPairs:
			for _, p := range a.Pairs {
				r := base
				r.OptionID = int64Ptr(p.LeftID)
				if p.RightID != nil {
					r.RightOptionID = int64Ptr(*p.RightID)
				}
				rows = append(rows, r)
			}
		}
	}
	return rows
}

func int64Ptr(v int64) *int64 { return &v }
func intPtr(v int) *int       { return &v }

package grading

import (
	"errors"
	"sort"
)

// ReconstructAttempt regroups the persisted rows of one attempt into one
// display record per question. Correctness is re-derived from the rows and
// the schema rather than copied from the persisted flag.
//
// Records follow the first appearance of each question in rows; schema
// questions with no rows follow in schema order as unanswered. A question
// whose rows are inconsistent is still emitted with Err set; the returned
// error joins every such failure.
func ReconstructAttempt(schema []Question, rows []ResponseRow) ([]QuestionResult, error) {
	byID := make(map[int64]Question, len(schema))
	for _, q := range schema {
		byID[q.ID] = q
	}

	type group struct {
		questionID int64
		rows       []ResponseRow
	}
	index := make(map[int64]int)
	var groups []group
	for _, r := range rows {
		i, ok := index[r.QuestionID]
		if !ok {
			i = len(groups)
			index[r.QuestionID] = i
			groups = append(groups, group{questionID: r.QuestionID})
		}
		groups[i].rows = append(groups[i].rows, r)
	}

	results := make([]QuestionResult, 0, len(schema))
	var errs []error
	for _, g := range groups {
		var res QuestionResult
		if q, ok := byID[g.questionID]; ok {
			res = reconstructQuestion(q, g.rows)
		} else {
			res = QuestionResult{QuestionID: g.questionID, Type: g.rows[0].QuestionType, Options: []ResultOption{}}
			res.fail(corrupt(g.questionID, "responses reference a question outside the quiz"))
		}
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
		results = append(results, res)
	}
	for _, q := range schema {
		if _, seen := index[q.ID]; seen {
			continue
		}
		res := newResult(q)
		if !q.Type.Valid() {
			res.fail(&UnsupportedQuestionTypeError{QuestionID: q.ID, Type: q.Type})
			errs = append(errs, res.Err)
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

func newResult(q Question) QuestionResult {
	res := QuestionResult{
		QuestionID:   q.ID,
		Text:         q.Text,
		Type:         q.Type,
		Options:      make([]ResultOption, len(q.Options)),
		UserResponse: NormalizedAnswer{QuestionID: q.ID, Type: q.Type},
	}
	for i, o := range q.Options {
		res.Options[i] = ResultOption{Option: o}
	}
	return res
}

func (r *QuestionResult) fail(err error) {
	r.Err = err
	r.Error = err.Error()
	r.ResponseCorrect = false
}

func reconstructQuestion(q Question, rows []ResponseRow) QuestionResult {
	res := newResult(q)
	res.PersistedCorrect = true
	for _, r := range rows {
		if r.QuestionType != "" && r.QuestionType != q.Type {
			res.fail(corrupt(q.ID, "row typed %q but question is %q", r.QuestionType, q.Type))
			return res
		}
		res.PersistedCorrect = res.PersistedCorrect && r.IsCorrect
	}

	var err error
	switch q.Type {
	case MultipleChoice, TrueFalse:
		err = rebuildChoices(&res, q, rows)
	case Text:
		err = rebuildText(&res, q, rows)
	case CorrectOrder:
		err = rebuildOrder(&res, q, rows)
	case MatchPairs:
		err = rebuildPairs(&res, q, rows)
	default:
		err = &UnsupportedQuestionTypeError{QuestionID: q.ID, Type: q.Type}
	}
	if err != nil {
		res.fail(err)
	}
	return res
}

func rebuildChoices(res *QuestionResult, q Question, rows []ResponseRow) error {
	selected := make(map[int64]bool, len(rows))
	for _, r := range rows {
		if r.OptionID == nil {
			return corrupt(q.ID, "choice row without option")
		}
		id := *r.OptionID
		if !q.hasOption(id) {
			return corrupt(q.ID, "option %d does not belong to the question", id)
		}
		if selected[id] {
			continue
		}
		selected[id] = true
		res.UserResponse.Selected = append(res.UserResponse.Selected, id)
	}
	if q.Type == TrueFalse && len(res.UserResponse.Selected) > 1 {
		return corrupt(q.ID, "true-false answered with %d options", len(res.UserResponse.Selected))
	}

	correct := len(res.UserResponse.Selected) > 0
	for i, o := range res.Options {
		picked := selected[o.ID]
		res.Options[i].UserSelected = picked
		if correct && o.IsCorrect != picked {
			correct = false
		}
	}
	res.ResponseCorrect = correct
	return nil
}

func rebuildText(res *QuestionResult, q Question, rows []ResponseRow) error {
	if len(rows) != 1 {
		return corrupt(q.ID, "text question has %d response rows", len(rows))
	}
	r := rows[0]
	if r.TextAnswer == nil {
		return corrupt(q.ID, "text row without answer")
	}
	t := *r.TextAnswer
	res.UserResponse.Text = &t
	if canonical, ok := canonicalText(q); ok {
		res.ResponseCorrect = textMatches(t, canonical)
	} else {
		// answer key withheld: trust the flag written at submission time
		res.ResponseCorrect = r.IsCorrect
	}
	return nil
}

func rebuildOrder(res *QuestionResult, q Question, rows []ResponseRow) error {
	type placed struct {
		id  int64
		pos int
	}
	seen := make(map[int64]bool, len(rows))
	usedPos := make(map[int]bool, len(rows))
	var seq []placed
	for _, r := range rows {
		if r.OptionID == nil || r.Position == nil {
			return corrupt(q.ID, "order row without step or position")
		}
		id := *r.OptionID
		if !q.hasOption(id) {
			return corrupt(q.ID, "option %d does not belong to the question", id)
		}
		if seen[id] {
			continue
		}
		if usedPos[*r.Position] {
			return corrupt(q.ID, "position %d used twice", *r.Position)
		}
		seen[id] = true
		usedPos[*r.Position] = true
		seq = append(seq, placed{id: id, pos: *r.Position})
	}
	sort.SliceStable(seq, func(i, j int) bool { return seq[i].pos < seq[j].pos })

	rank := make(map[int64]int, len(seq))
	for i, p := range seq {
		rank[p.id] = i
		res.UserResponse.Order = append(res.UserResponse.Order, p.id)
	}
	correct := len(seq) == len(q.Options)
	for i, o := range res.Options {
		at, ok := rank[o.ID]
		if ok {
			res.Options[i].UserSelected = true
			res.Options[i].UserPosition = intPtr(at)
		}
		if correct && (!ok || at != i) {
			correct = false
		}
	}
	res.ResponseCorrect = correct
	return nil
}

func rebuildPairs(res *QuestionResult, q Question, rows []ResponseRow) error {
	chosen := make(map[int64]*int64, len(rows))
	for _, r := range rows {
		if r.OptionID == nil {
			return corrupt(q.ID, "pair row without left option")
		}
		left := *r.OptionID
		if !q.hasOption(left) {
			return corrupt(q.ID, "option %d does not belong to the question", left)
		}
		if _, dup := chosen[left]; dup {
			continue
		}
		var right *int64
		if r.RightOptionID != nil {
			if !q.hasOption(*r.RightOptionID) {
				return corrupt(q.ID, "option %d does not belong to the question", *r.RightOptionID)
			}
			right = int64Ptr(*r.RightOptionID)
		}
		chosen[left] = right
	}
	if len(chosen) != len(q.Options) {
		return corrupt(q.ID, "%d of %d left options have response rows", len(chosen), len(q.Options))
	}

	correct := true
	for i, o := range res.Options {
		right := chosen[o.ID]
		if right != nil {
			res.Options[i].UserSelected = true
			res.Options[i].UserRightID = int64Ptr(*right)
		}
		var pr *int64
		if right != nil {
			pr = int64Ptr(*right)
		}
		res.UserResponse.Pairs = append(res.UserResponse.Pairs, Pair{LeftID: o.ID, RightID: pr})
		if correct && (right == nil || *right != o.ID) {
			correct = false
		}
	}
	res.ResponseCorrect = correct
	return nil
}

package grading

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// optionID decodes an id given either as a JSON number or a numeric string.
type optionID struct {
	set bool
	v   int64
}

func (o *optionID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*o = optionID{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*o = optionID{}
			return nil
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		*o = optionID{set: true, v: v}
		return nil
	}
	var v int64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*o = optionID{set: true, v: v}
	return nil
}

type orderStep struct {
	Step     optionID `json:"stepOptionId"`
	Position *int     `json:"position"`
}

type pairSelection struct {
	Left  optionID `json:"leftOptionId"`
	Right optionID `json:"rightOptionId"`
}

// isBlank reports whether raw is an unanswered form for any question type:
// absent, null, an empty array or a string that trims to nothing.
func isBlank(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 || bytes.Equal(t, []byte("null")) {
		return true
	}
	switch t[0] {
	case '[':
		return len(t) >= 2 && t[len(t)-1] == ']' && len(bytes.TrimSpace(t[1:len(t)-1])) == 0
	case '"':
		var s string
		return json.Unmarshal(t, &s) == nil && strings.TrimSpace(s) == ""
	}
	return false
}

// Normalize converts a raw answer into canonical form for q. An absent or
// empty answer yields an empty NormalizedAnswer and no error.
func Normalize(q Question, raw RawAnswer) (NormalizedAnswer, error) {
	out := NormalizedAnswer{QuestionID: q.ID, Type: q.Type}
	if raw.QuestionType != "" && raw.QuestionType != q.Type {
		return out, invalid(q.ID, "answer tagged %q but question is %q", raw.QuestionType, q.Type)
	}
	switch q.Type {
	case MultipleChoice:
		return normalizeChoices(q, raw.Answer, out)
	case TrueFalse:
		return normalizeSingle(q, raw.Answer, out)
	case Text:
		return normalizeText(q, raw.Answer, out)
	case CorrectOrder:
		return normalizeOrder(q, raw.Answer, out)
	case MatchPairs:
		return normalizePairs(q, raw.Answer, out)
	default:
		return out, &UnsupportedQuestionTypeError{QuestionID: q.ID, Type: q.Type}
	}
}

func normalizeChoices(q Question, raw json.RawMessage, out NormalizedAnswer) (NormalizedAnswer, error) {
	if isBlank(raw) {
		return out, nil
	}
	var ids []optionID
	if err := json.Unmarshal(raw, &ids); err != nil {
		return out, invalid(q.ID, "multiple-choice answer must be an array of option ids")
	}
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if !id.set {
			continue
		}
		if !q.hasOption(id.v) {
			return out, invalid(q.ID, "option %d does not belong to the question", id.v)
		}
		if _, dup := seen[id.v]; dup {
			continue
		}
		seen[id.v] = struct{}{}
		out.Selected = append(out.Selected, id.v)
	}
	return out, nil
}

func normalizeSingle(q Question, raw json.RawMessage, out NormalizedAnswer) (NormalizedAnswer, error) {
	if isBlank(raw) {
		return out, nil
	}
	var id optionID
	if err := json.Unmarshal(raw, &id); err != nil {
		return out, invalid(q.ID, "true-false answer must be a single option id")
	}
	if !id.set {
		return out, nil
	}
	if !q.hasOption(id.v) {
		return out, invalid(q.ID, "option %d does not belong to the question", id.v)
	}
	out.Selected = []int64{id.v}
	return out, nil
}

func normalizeText(q Question, raw json.RawMessage, out NormalizedAnswer) (NormalizedAnswer, error) {
	if isBlank(raw) {
		return out, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return out, invalid(q.ID, "text answer must be a string")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return out, nil
	}
	out.Text = &s
	return out, nil
}

func normalizeOrder(q Question, raw json.RawMessage, out NormalizedAnswer) (NormalizedAnswer, error) {
	if isBlank(raw) {
		return out, nil
	}
	var steps []orderStep
	if err := json.Unmarshal(raw, &steps); err != nil {
		return out, invalid(q.ID, "correct-order answer must be an array of {stepOptionId, position}")
	}
	seenStep := make(map[int64]struct{}, len(steps))
	seenPos := make(map[int]struct{}, len(steps))
	kept := steps[:0]
	for _, s := range steps {
		if !s.Step.set {
			continue
		}
		if s.Position == nil {
			return out, invalid(q.ID, "step %d has no position", s.Step.v)
		}
		if !q.hasOption(s.Step.v) {
			return out, invalid(q.ID, "option %d does not belong to the question", s.Step.v)
		}
		if _, dup := seenStep[s.Step.v]; dup {
			return out, invalid(q.ID, "step %d placed twice", s.Step.v)
		}
		if _, dup := seenPos[*s.Position]; dup {
			return out, invalid(q.ID, "position %d used twice", *s.Position)
		}
		seenStep[s.Step.v] = struct{}{}
		seenPos[*s.Position] = struct{}{}
		kept = append(kept, s)
	}
	sort.SliceStable(kept, func(i, j int) bool { return *kept[i].Position < *kept[j].Position })
	for _, s := range kept {
		out.Order = append(out.Order, s.Step.v)
	}
	return out, nil
}

func normalizePairs(q Question, raw json.RawMessage, out NormalizedAnswer) (NormalizedAnswer, error) {
	if isBlank(raw) {
		return out, nil
	}
	var sel []pairSelection
	if err := json.Unmarshal(raw, &sel); err != nil {
		return out, invalid(q.ID, "match-pairs answer must be an array of {leftOptionId, rightOptionId}")
	}
	picked := make(map[int64]*int64, len(sel))
	answered := false
	for _, s := range sel {
		if !s.Left.set {
			continue
		}
		if !q.hasOption(s.Left.v) {
			return out, invalid(q.ID, "option %d does not belong to the question", s.Left.v)
		}
		if _, dup := picked[s.Left.v]; dup {
			return out, invalid(q.ID, "left option %d paired twice", s.Left.v)
		}
		var right *int64
		if s.Right.set {
			if !q.hasOption(s.Right.v) {
				return out, invalid(q.ID, "option %d does not belong to the question", s.Right.v)
			}
			r := s.Right.v
			right = &r
			answered = true
		}
		picked[s.Left.v] = right
	}
	if !answered {
		return out, nil
	}
	// one entry per left option, in stored order
	for _, o := range q.Options {
		out.Pairs = append(out.Pairs, Pair{LeftID: o.ID, RightID: picked[o.ID]})
	}
	return out, nil
}

package grading

import (
	"encoding/json"
	"testing"
)

func multipleChoiceQ() Question {
	return Question{ID: 100, Text: "Pick the primes", Type: MultipleChoice, Options: []Option{
		{ID: 11, Text: "2", IsCorrect: true},
		{ID: 12, Text: "4"},
		{ID: 13, Text: "5", IsCorrect: true},
	}}
}

func trueFalseQ() Question {
	return Question{ID: 200, Text: "The sun is cold", Type: TrueFalse, Options: []Option{
		{ID: 1, Text: "True", IsCorrect: false},
		{ID: 2, Text: "False", IsCorrect: true},
	}}
}

func textQ() Question {
	return Question{ID: 300, Text: "Capital of France?", Type: Text, Options: []Option{
		{ID: 31, Text: "Paris"},
	}}
}

func orderQ() Question {
	return Question{ID: 400, Text: "Order the steps", Type: CorrectOrder, Options: []Option{
		{ID: 10, Text: "mix"},
		{ID: 20, Text: "bake"},
		{ID: 30, Text: "serve"},
	}}
}

func pairsQ() Question {
	return Question{ID: 500, Text: "Match capitals", Type: MatchPairs, Options: []Option{
		{ID: 51, LeftText: "France", RightText: "Paris"},
		{ID: 52, LeftText: "Spain", RightText: "Madrid"},
		{ID: 53, LeftText: "Italy", RightText: "Rome"},
	}}
}

func allTypesSchema() []Question {
	return []Question{multipleChoiceQ(), trueFalseQ(), textQ(), orderQ(), pairsQ()}
}

func raw(t *testing.T, qid int64, v any) RawAnswer {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal raw answer: %v", err)
	}
	return RawAnswer{QuestionID: qid, Answer: b}
}

type step struct {
	StepOptionID int64 `json:"stepOptionId"`
	Position     int   `json:"position"`
}

func steps(ids ...int64) []step {
	out := make([]step, len(ids))
	for i, id := range ids {
		out[i] = step{StepOptionID: id, Position: i + 1}
	}
	return out
}

type match struct {
	LeftOptionID  int64  `json:"leftOptionId"`
	RightOptionID *int64 `json:"rightOptionId"`
}

func matches(pairs ...[2]int64) []match {
	out := make([]match, len(pairs))
	for i, p := range pairs {
		out[i] = match{LeftOptionID: p[0]}
		if p[1] != 0 {
			r := p[1]
			out[i].RightOptionID = &r
		}
	}
	return out
}

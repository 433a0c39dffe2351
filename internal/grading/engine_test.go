package grading

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func evaluateOne(t *testing.T, q Question, ra RawAnswer) Verdict {
	t.Helper()
	na, err := Normalize(q, ra)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	v, err := Evaluate(q, na)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	return v
}

func TestEvaluate_MultipleChoiceIsExactSet(t *testing.T) {
	q := multipleChoiceQ()
	tests := []struct {
		name     string
		selected []int64
		want     bool
	}{
		{"exact set", []int64{11, 13}, true},
		{"exact set other order", []int64{13, 11}, true},
		{"duplicates collapse", []int64{13, 11, 13}, true},
		{"subset", []int64{11}, false},
		{"superset", []int64{11, 12, 13}, false},
		{"wrong only", []int64{12}, false},
		{"empty", []int64{}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := evaluateOne(t, q, raw(t, q.ID, tc.selected))
			if v.IsCorrect != tc.want {
				t.Fatalf("IsCorrect = %v, want %v", v.IsCorrect, tc.want)
			}
			wantDelta := 0
			if tc.want {
				wantDelta = 1
			}
			if v.ScoreDelta != wantDelta {
				t.Fatalf("ScoreDelta = %d, want %d", v.ScoreDelta, wantDelta)
			}
		})
	}
}

func TestEvaluate_TrueFalse(t *testing.T) {
	q := trueFalseQ()
	if v := evaluateOne(t, q, raw(t, q.ID, 2)); !v.IsCorrect {
		t.Fatalf("optionId=2 should be correct")
	}
	if v := evaluateOne(t, q, raw(t, q.ID, 1)); v.IsCorrect {
		t.Fatalf("optionId=1 should be incorrect")
	}
	if v := evaluateOne(t, q, raw(t, q.ID, "2")); !v.IsCorrect {
		t.Fatalf("string id \"2\" should be accepted and correct")
	}
}

func TestEvaluate_TextTrimsAndIgnoresCase(t *testing.T) {
	q := textQ()
	tests := []struct {
		in   string
		want bool
	}{
		{"  paris ", true},
		{"PARIS", true},
		{"Paris", true},
		{"Pariss", false},
		{"Pari", false},
		{"   ", false},
	}
	for _, tc := range tests {
		if v := evaluateOne(t, q, raw(t, q.ID, tc.in)); v.IsCorrect != tc.want {
			t.Fatalf("%q: IsCorrect = %v, want %v", tc.in, v.IsCorrect, tc.want)
		}
	}
}

func TestEvaluate_CorrectOrderIsPositional(t *testing.T) {
	q := orderQ()
	tests := []struct {
		name string
		in   any
		want bool
	}{
		{"canonical", steps(10, 20, 30), true},
		{"one swap", steps(10, 30, 20), false},
		{"reversed", steps(30, 20, 10), false},
		{"missing step", steps(10, 20), false},
		{"sparse positions", []step{{30, 9}, {10, 1}, {20, 4}}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if v := evaluateOne(t, q, raw(t, q.ID, tc.in)); v.IsCorrect != tc.want {
				t.Fatalf("IsCorrect = %v, want %v", v.IsCorrect, tc.want)
			}
		})
	}
}

func TestEvaluate_MatchPairsFlipAndRestore(t *testing.T) {
	q := pairsQ()
	good := matches([2]int64{51, 51}, [2]int64{52, 52}, [2]int64{53, 53})
	if v := evaluateOne(t, q, raw(t, q.ID, good)); !v.IsCorrect {
		t.Fatalf("all pairs matched should be correct")
	}

	flipped := matches([2]int64{51, 51}, [2]int64{52, 53}, [2]int64{53, 53})
	if v := evaluateOne(t, q, raw(t, q.ID, flipped)); v.IsCorrect {
		t.Fatalf("one mismatched pair should make the question incorrect")
	}

	if v := evaluateOne(t, q, raw(t, q.ID, good)); !v.IsCorrect {
		t.Fatalf("restoring the pair should make it correct again")
	}

	missing := matches([2]int64{51, 51}, [2]int64{52, 52})
	if v := evaluateOne(t, q, raw(t, q.ID, missing)); v.IsCorrect {
		t.Fatalf("unmatched left option should make the question incorrect")
	}
}

func TestEvaluate_UnsupportedType(t *testing.T) {
	q := Question{ID: 9, Text: "essay", Type: "essay"}
	_, err := Evaluate(q, NormalizedAnswer{QuestionID: 9, Type: "essay"})
	var ute *UnsupportedQuestionTypeError
	if !errors.As(err, &ute) {
		t.Fatalf("expected UnsupportedQuestionTypeError, got %v", err)
	}
}

func TestEvaluateSubmission_EmptyAnswersAreIncorrect(t *testing.T) {
	schema := allTypesSchema()
	answers := []RawAnswer{
		raw(t, 100, []int64{}),
		{QuestionID: 200},
		raw(t, 300, "  "),
		raw(t, 400, nil),
		raw(t, 500, matches([2]int64{51, 0})),
	}
	sub, err := EvaluateSubmission(schema, answers)
	if err != nil {
		t.Fatalf("empty answers must not fail validation: %v", err)
	}
	if len(sub.PerQuestion) != len(schema) {
		t.Fatalf("expected %d verdicts, got %d", len(schema), len(sub.PerQuestion))
	}
	for i, v := range sub.PerQuestion {
		if v.QuestionID != schema[i].ID {
			t.Fatalf("verdict %d for question %d, want %d", i, v.QuestionID, schema[i].ID)
		}
		if v.IsCorrect || v.ScoreDelta != 0 {
			t.Fatalf("question %d: empty answer graded correct", v.QuestionID)
		}
		if !v.Answer.Empty() {
			t.Fatalf("question %d: expected empty normalized answer, got %+v", v.QuestionID, v.Answer)
		}
	}
	if sub.Score != 0 || sub.Percentage != 0 {
		t.Fatalf("score=%d pct=%v, want 0/0", sub.Score, sub.Percentage)
	}
}

func TestEvaluateSubmission_EmptyStringForEveryType(t *testing.T) {
	schema := allTypesSchema()
	for _, in := range []string{`""`, `" "`} {
		var answers []RawAnswer
		for _, q := range schema {
			answers = append(answers, RawAnswer{QuestionID: q.ID, Answer: json.RawMessage(in)})
		}
		sub, err := EvaluateSubmission(schema, answers)
		if err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		for _, v := range sub.PerQuestion {
			if v.IsCorrect || !v.Answer.Empty() {
				t.Fatalf("%s: question %d = %+v", in, v.QuestionID, v)
			}
		}
		if sub.Score != 0 || sub.Total != len(schema) {
			t.Fatalf("%s: score %d/%d", in, sub.Score, sub.Total)
		}
	}
}

func TestEvaluateSubmission_OmittedQuestionStillReported(t *testing.T) {
	schema := allTypesSchema()
	sub, err := EvaluateSubmission(schema, []RawAnswer{raw(t, 200, 2)})
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if len(sub.PerQuestion) != 5 || sub.Score != 1 || sub.Total != 5 {
		t.Fatalf("got %d verdicts score=%d total=%d", len(sub.PerQuestion), sub.Score, sub.Total)
	}
	if sub.Percentage != 20 {
		t.Fatalf("percentage = %v, want 20", sub.Percentage)
	}
}

func TestEvaluateSubmission_ThreeOfSeven(t *testing.T) {
	var schema []Question
	var answers []RawAnswer
	for i := 1; i <= 7; i++ {
		id := int64(i)
		schema = append(schema, Question{ID: id, Text: fmt.Sprintf("q%d", i), Type: Text,
			Options: []Option{{ID: 1000 + id, Text: fmt.Sprintf("answer-%d", i)}}})
		ans := "wrong"
		if i <= 3 {
			ans = fmt.Sprintf("ANSWER-%d", i)
		}
		answers = append(answers, raw(t, id, ans))
	}
	sub, err := EvaluateSubmission(schema, answers)
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if sub.Score != 3 {
		t.Fatalf("score = %d, want 3", sub.Score)
	}
	if sub.Percentage != 42.86 {
		t.Fatalf("percentage = %v, want 42.86", sub.Percentage)
	}
}

func TestEvaluateSubmission_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		schema  []Question
		answers func(t *testing.T) []RawAnswer
		check   func(error) bool
	}{
		{
			name:    "foreign option id",
			schema:  allTypesSchema(),
			answers: func(t *testing.T) []RawAnswer { return []RawAnswer{raw(t, 100, []int64{11, 2})} },
			check:   isValidation,
		},
		{
			name:    "foreign right option id",
			schema:  allTypesSchema(),
			answers: func(t *testing.T) []RawAnswer { return []RawAnswer{raw(t, 500, matches([2]int64{51, 99}))} },
			check:   isValidation,
		},
		{
			name:    "question outside quiz",
			schema:  allTypesSchema(),
			answers: func(t *testing.T) []RawAnswer { return []RawAnswer{raw(t, 999, "x")} },
			check:   isValidation,
		},
		{
			name:   "answered twice",
			schema: allTypesSchema(),
			answers: func(t *testing.T) []RawAnswer {
				return []RawAnswer{raw(t, 200, 1), raw(t, 200, 2)}
			},
			check: isValidation,
		},
		{
			name:   "type tag disagrees",
			schema: allTypesSchema(),
			answers: func(t *testing.T) []RawAnswer {
				ra := raw(t, 200, 2)
				ra.QuestionType = MultipleChoice
				return []RawAnswer{ra}
			},
			check: isValidation,
		},
		{
			name:    "malformed payload",
			schema:  allTypesSchema(),
			answers: func(t *testing.T) []RawAnswer { return []RawAnswer{raw(t, 100, map[string]int{"a": 1})} },
			check:   isValidation,
		},
		{
			name:    "unsupported type aborts",
			schema:  append(allTypesSchema(), Question{ID: 600, Text: "essay", Type: "essay"}),
			answers: func(t *testing.T) []RawAnswer { return []RawAnswer{raw(t, 200, 2)} },
			check: func(err error) bool {
				var ute *UnsupportedQuestionTypeError
				return errors.As(err, &ute)
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sub, err := EvaluateSubmission(tc.schema, tc.answers(t))
			if err == nil || !tc.check(err) {
				t.Fatalf("unexpected error: %v", err)
			}
			if sub.Score != 0 || len(sub.PerQuestion) != 0 {
				t.Fatalf("rejected submission must not carry a partial score: %+v", sub)
			}
		})
	}
}

func isValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

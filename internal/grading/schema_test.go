package grading

import (
	"errors"
	"testing"
)

func TestValidateQuestion(t *testing.T) {
	tfBothCorrect := trueFalseQ()
	tfBothCorrect.Options[0].IsCorrect = true

	mcNoneCorrect := multipleChoiceQ()
	for i := range mcNoneCorrect.Options {
		mcNoneCorrect.Options[i].IsCorrect = false
	}

	pairsMissingRight := pairsQ()
	pairsMissingRight.Options[1].RightText = " "

	blankText := textQ()
	blankText.Options[0].Text = ""

	cases := []struct {
		name string
		q    Question
		ok   bool
	}{
		{"multiple choice", multipleChoiceQ(), true},
		{"true false", trueFalseQ(), true},
		{"text", textQ(), true},
		{"order", orderQ(), true},
		{"pairs", pairsQ(), true},
		{"no correct choice", mcNoneCorrect, false},
		{"two true answers", tfBothCorrect, false},
		{"pair without right", pairsMissingRight, false},
		{"blank canonical text", blankText, false},
		{"one step", Question{ID: 1, Text: "x", Type: CorrectOrder, Options: []Option{{Text: "a"}}}, false},
		{"no question text", Question{ID: 1, Type: Text, Options: []Option{{Text: "a"}}}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := ValidateQuestion(c.q)
			if c.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var ve *ValidationError
			if !c.ok && !errors.As(err, &ve) {
				t.Fatalf("want ValidationError, got %v", err)
			}
		})
	}

	var ue *UnsupportedQuestionTypeError
	if err := ValidateQuestion(Question{ID: 9, Text: "x", Type: "essay"}); !errors.As(err, &ue) {
		t.Fatalf("unknown type: %v", err)
	}
}

func TestStripAnswers(t *testing.T) {
	q := multipleChoiceQ()
	s := StripAnswers(q)
	for _, o := range s.Options {
		if o.IsCorrect {
			t.Fatalf("correct marker left on %d", o.ID)
		}
	}
	if !q.Options[0].IsCorrect {
		t.Fatal("original question mutated")
	}
	if got := StripAnswers(textQ()).Options[0].Text; got != "" {
		t.Fatalf("canonical text leaked: %q", got)
	}
}

func TestQuestionTypeValid(t *testing.T) {
	seen := map[QuestionType]bool{}
	for _, q := range allTypesSchema() {
		seen[q.Type] = true
	}
	for _, typ := range Types {
		if !typ.Valid() || !seen[typ] {
			t.Fatalf("%s: valid=%v covered=%v", typ, typ.Valid(), seen[typ])
		}
	}
	if len(seen) != len(Types) {
		t.Fatalf("fixtures cover %d types, Types has %d", len(seen), len(Types))
	}
	for _, typ := range []QuestionType{"", "essay", "Text"} {
		if typ.Valid() {
			t.Fatalf("%q reported valid", typ)
		}
	}
}

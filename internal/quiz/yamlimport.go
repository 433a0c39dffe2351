package quiz

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
)

// QuizFile is the YAML authoring format:
//
//	title: Geography
//	active: true
//	questions:
//	  - text: Which are French cities?
//	    type: multiple-choice
//	    options:
//	      - {text: Paris, correct: true}
//	      - {text: Rome}
//	  - {text: The Seine flows through Paris., type: true-false, truth: true}
//	  - {text: Capital of Italy?, type: text, answer: Rome}
//	  - {text: Order these, type: correct-order, steps: [one, two, three]}
//	  - text: Match
//	    type: match-pairs
//	    pairs: [{left: cat, right: meow}, {left: dog, right: woof}]
type QuizFile struct {
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	Active      *bool          `yaml:"active"`
	Questions   []QuestionFile `yaml:"questions"`
}

type QuestionFile struct {
	Text    string       `yaml:"text"`
	Type    string       `yaml:"type"`
	Options []OptionFile `yaml:"options"`
	Answer  string       `yaml:"answer"` // text
	Truth   *bool        `yaml:"truth"`  // true-false
	Steps   []string     `yaml:"steps"`  // correct-order
	Pairs   []PairFile   `yaml:"pairs"`  // match-pairs
}

type OptionFile struct {
	Text    string `yaml:"text"`
	Left    string `yaml:"left"`
	Right   string `yaml:"right"`
	Correct bool   `yaml:"correct"`
}

type PairFile struct {
	Left  string `yaml:"left"`
	Right string `yaml:"right"`
}

func ParseYAML(r io.Reader) (QuizFile, error) {
	var f QuizFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return QuizFile{}, fmt.Errorf("parse quiz yaml: %w", err)
	}
	return f, nil
}

// question expands the shorthand fields into stored options.
func (qf QuestionFile) question() grading.Question {
	q := grading.Question{Text: qf.Text, Type: grading.QuestionType(qf.Type)}
	for _, o := range qf.Options {
		q.Options = append(q.Options, grading.Option{Text: o.Text, LeftText: o.Left, RightText: o.Right, IsCorrect: o.Correct})
	}
	if len(q.Options) > 0 {
		return q
	}
	switch q.Type {
	case grading.TrueFalse:
		if qf.Truth != nil {
			q.Options = []grading.Option{{Text: "True", IsCorrect: *qf.Truth}, {Text: "False", IsCorrect: !*qf.Truth}}
		}
	case grading.Text:
		if qf.Answer != "" {
			q.Options = []grading.Option{{Text: qf.Answer}}
		}
	case grading.CorrectOrder:
		for _, s := range qf.Steps {
			q.Options = append(q.Options, grading.Option{Text: s})
		}
	case grading.MatchPairs:
		for _, p := range qf.Pairs {
			q.Options = append(q.Options, grading.Option{LeftText: p.Left, RightText: p.Right})
		}
	}
	return q
}

// Import validates every question and then stores the quiz with all its
// questions in one transaction, so a bad file leaves nothing behind.
func (s *Service) Import(ctx context.Context, f QuizFile, createdBy string) (Quiz, error) {
	title := strings.TrimSpace(f.Title)
	if title == "" {
		return Quiz{}, &grading.ValidationError{Msg: "quiz title is required"}
	}
	qs := make([]grading.Question, len(f.Questions))
	for i, qf := range f.Questions {
		qs[i] = qf.question()
		if err := grading.ValidateQuestion(qs[i]); err != nil {
			return Quiz{}, fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return s.store.ImportQuiz(ctx, Quiz{
		Title:       title,
		Description: f.Description,
		Active:      f.Active == nil || *f.Active,
		CreatedBy:   createdBy,
	}, qs)
}

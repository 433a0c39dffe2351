package quiz

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
)

// Service ties the grading core to a Store.
type Service struct {
	store             Store
	reportConcurrency int
}

type Option func(*Service)

// WithReportConcurrency bounds how many attempts Report reconstructs at once.
func WithReportConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.reportConcurrency = n
		}
	}
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, reportConcurrency: 4}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ---- authoring ----

func (s *Service) CreateQuiz(ctx context.Context, q Quiz) (Quiz, error) {
	q.Title = strings.TrimSpace(q.Title)
	if q.Title == "" {
		return Quiz{}, &grading.ValidationError{Msg: "quiz title is required"}
	}
	return s.store.CreateQuiz(ctx, q)
}

func (s *Service) UpdateQuiz(ctx context.Context, q Quiz) (Quiz, error) {
	q.Title = strings.TrimSpace(q.Title)
	if q.Title == "" {
		return Quiz{}, &grading.ValidationError{Msg: "quiz title is required"}
	}
	return s.store.UpdateQuiz(ctx, q)
}

// GetQuiz returns the quiz; unless withAnswers is set the answer keys are
// stripped.
func (s *Service) GetQuiz(ctx context.Context, id int64, withAnswers bool) (Quiz, error) {
	q, err := s.store.GetQuiz(ctx, id)
	if err != nil || withAnswers {
		return q, err
	}
	for i := range q.Questions {
		q.Questions[i].Question = grading.StripAnswers(q.Questions[i].Question)
	}
	return q, nil
}

func (s *Service) ListQuizzes(ctx context.Context, opts ListOpts) ([]Quiz, error) {
	return s.store.ListQuizzes(ctx, opts)
}

func (s *Service) AddQuestion(ctx context.Context, quizID int64, q grading.Question) (Question, error) {
	if err := grading.ValidateQuestion(q); err != nil {
		return Question{}, err
	}
	return s.store.AddQuestion(ctx, quizID, q)
}

// UpdateQuestion replaces text and options. The type is fixed at creation.
func (s *Service) UpdateQuestion(ctx context.Context, q grading.Question) (Question, error) {
	cur, err := s.store.GetQuestion(ctx, q.ID)
	if err != nil {
		return Question{}, err
	}
	if cur.Deleted {
		return Question{}, notFound("question", q.ID)
	}
	if q.Type == "" {
		q.Type = cur.Type
	}
	if q.Type != cur.Type {
		return Question{}, &grading.ValidationError{QuestionID: q.ID, Msg: "question type cannot be changed"}
	}
	if err := grading.ValidateQuestion(q); err != nil {
		return Question{}, err
	}
	return s.store.UpdateQuestion(ctx, q)
}

func (s *Service) DeleteQuestion(ctx context.Context, id int64) error {
	return s.store.DeleteQuestion(ctx, id)
}

// ---- taking ----

// Submit grades answers against the quiz as it stands now and records a new
// attempt. Nothing is written when the submission is rejected.
func (s *Service) Submit(ctx context.Context, quizID int64, userID string, answers []grading.RawAnswer) (Attempt, grading.Submission, error) {
	// An edit racing the submission invalidates the grading; grade again
	// against the new key once before giving up.
	for try := 0; ; try++ {
		q, err := s.store.GetQuiz(ctx, quizID)
		if err != nil {
			return Attempt{}, grading.Submission{}, err
		}
		if !q.Active {
			return Attempt{}, grading.Submission{}, &grading.ValidationError{Msg: "quiz is not active"}
		}
		schema := make([]grading.Question, len(q.Questions))
		for i, qq := range q.Questions {
			schema[i] = qq.Question
		}
		sub, err := grading.EvaluateSubmission(schema, answers)
		if err != nil {
			return Attempt{}, grading.Submission{}, err
		}
		a, err := s.store.CreateAttempt(ctx, Attempt{QuizID: quizID, UserID: userID}, schema, sub)
		if errors.Is(err, ErrQuizChanged) {
			if try == 0 {
				continue
			}
			return Attempt{}, grading.Submission{}, &grading.ValidationError{Msg: "quiz was edited during submission, reload and submit again"}
		}
		if err != nil {
			return Attempt{}, grading.Submission{}, err
		}
		return a, sub, nil
	}
}

// Attempt returns the stored attempt header without reconstructing it.
func (s *Service) Attempt(ctx context.Context, attemptID int64) (Attempt, error) {
	return s.store.GetAttempt(ctx, attemptID)
}

// Results reconstructs a stored attempt. Integrity failures are reported in
// AttemptResult.Err and on the affected questions, not as the error.
func (s *Service) Results(ctx context.Context, attemptID int64) (AttemptResult, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return AttemptResult{}, err
	}
	return s.AttemptResults(ctx, a)
}

func (s *Service) LatestResults(ctx context.Context, quizID int64, userID string) (AttemptResult, error) {
	a, err := s.store.LatestAttempt(ctx, quizID, userID)
	if err != nil {
		return AttemptResult{}, err
	}
	return s.AttemptResults(ctx, a)
}

// AttemptResults reconstructs an attempt header already loaded by the caller.
func (s *Service) AttemptResults(ctx context.Context, a Attempt) (AttemptResult, error) {
	schema, err := s.store.AttemptSchema(ctx, a)
	if err != nil {
		return AttemptResult{}, err
	}
	rows, err := s.store.ResponseRows(ctx, a.ID)
	if err != nil {
		return AttemptResult{}, err
	}
	qs, rerr := grading.ReconstructAttempt(schema, rows)
	return AttemptResult{Attempt: a, Questions: qs, Err: rerr}, nil
}

func (s *Service) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error) {
	return s.store.ListAttempts(ctx, opts)
}

// Report reconstructs every user's latest attempt of a quiz. Entries come
// back in user order.
func (s *Service) Report(ctx context.Context, quizID int64) ([]ReportEntry, error) {
	if _, err := s.store.GetQuiz(ctx, quizID); err != nil {
		return nil, err
	}
	attempts, err := s.store.LatestAttemptsByUser(ctx, quizID)
	if err != nil {
		return nil, err
	}
	out := make([]ReportEntry, len(attempts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.reportConcurrency)
	for i, a := range attempts {
		g.Go(func() error {
			res, err := s.AttemptResults(gctx, a)
			if err != nil {
				return err
			}
			out[i] = reportEntry(res)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func reportEntry(res AttemptResult) ReportEntry {
	e := ReportEntry{UserID: res.Attempt.UserID, Attempt: res.Attempt}
	for _, q := range res.Questions {
		e.Questions = append(e.Questions, QuestionOutcome{QuestionID: q.QuestionID, Correct: q.ResponseCorrect})
		if q.Err != nil {
			e.Failures++
		}
	}
	return e
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

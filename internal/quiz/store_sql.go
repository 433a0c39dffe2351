package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

type SQLStore struct {
	db     *sql.DB
	events *syncx.EventRepo

	// Now stamps created_at/deleted_at/removed_at. Tests replace it.
	Now func() time.Time
}

func NewSQLStore(db *sql.DB, events *syncx.EventRepo) *SQLStore {
	return &SQLStore{db: db, events: events, Now: time.Now}
}

func (s *SQLStore) now() int64 { return s.Now().UnixMilli() }

func (s *SQLStore) CreateQuiz(ctx context.Context, q Quiz) (Quiz, error) {
	now := s.now()
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO quizzes (title, description, active, created_by, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		q.Title, q.Description, q.Active, q.CreatedBy, now, now).Scan(&q.ID)
	if err != nil {
		return Quiz{}, fmt.Errorf("insert quiz: %w", err)
	}
	q.CreatedAt, q.UpdatedAt = now, now
	q.Questions = nil
	return q, nil
}

func (s *SQLStore) UpdateQuiz(ctx context.Context, q Quiz) (Quiz, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE quizzes SET title=$1, description=$2, active=$3, updated_at=$4 WHERE id=$5`,
		q.Title, q.Description, q.Active, s.now(), q.ID)
	if err != nil {
		return Quiz{}, fmt.Errorf("update quiz: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Quiz{}, notFound("quiz", q.ID)
	}
	return s.GetQuiz(ctx, q.ID)
}

func (s *SQLStore) quizHeader(ctx context.Context, id int64) (Quiz, error) {
	var q Quiz
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, active, created_by, created_at, updated_at
		 FROM quizzes WHERE id=$1`, id).
		Scan(&q.ID, &q.Title, &q.Description, &q.Active, &q.CreatedBy, &q.CreatedAt, &q.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Quiz{}, notFound("quiz", id)
	}
	if err != nil {
		return Quiz{}, err
	}
	return q, nil
}

func (s *SQLStore) GetQuiz(ctx context.Context, id int64) (Quiz, error) {
	q, err := s.quizHeader(ctx, id)
	if err != nil {
		return Quiz{}, err
	}
	qs, err := s.loadQuestions(ctx,
		`SELECT id, quiz_id, text, type, position, created_at, deleted_at FROM questions
		 WHERE quiz_id=$1 AND deleted_at IS NULL ORDER BY position, id`, id)
	if err != nil {
		return Quiz{}, err
	}
	if err := s.attachOptions(ctx, qs,
		`SELECT o.id, o.question_id, o.text, o.left_text, o.right_text, o.is_correct
		 FROM options o JOIN questions q ON q.id = o.question_id
		 WHERE q.quiz_id=$1 AND q.deleted_at IS NULL AND o.removed_at IS NULL
		 ORDER BY o.question_id, o.position, o.id`, id); err != nil {
		return Quiz{}, err
	}
	q.Questions = qs
	return q, nil
}

func (s *SQLStore) ListQuizzes(ctx context.Context, opts ListOpts) ([]Quiz, error) {
	limit, offset := page(opts.Limit, opts.Offset)
	var (
		where []string
		args  []any
	)
	if opts.ActiveOnly {
		args = append(args, true)
		where = append(where, fmt.Sprintf("active=$%d", len(args)))
	}
	if q := strings.TrimSpace(opts.Q); q != "" {
		args = append(args, "%"+strings.ToLower(q)+"%")
		where = append(where, fmt.Sprintf("LOWER(title) LIKE $%d", len(args)))
	}
	query := `SELECT id, title, description, active, created_by, created_at, updated_at FROM quizzes`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Quiz{}
	for rows.Next() {
		var q Quiz
		if err := rows.Scan(&q.ID, &q.Title, &q.Description, &q.Active, &q.CreatedBy, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLStore) AddQuestion(ctx context.Context, quizID int64, gq grading.Question) (Question, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Question{}, err
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM quizzes WHERE id=$1`, quizID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Question{}, notFound("quiz", quizID)
		}
		return Question{}, err
	}
	q, err := addQuestionTx(ctx, tx, quizID, gq, s.now())
	if err != nil {
		return Question{}, err
	}
	if err := tx.Commit(); err != nil {
		return Question{}, err
	}
	return q, nil
}

// ImportQuiz creates a quiz together with its questions; either all of it
// is stored or none.
func (s *SQLStore) ImportQuiz(ctx context.Context, q Quiz, qs []grading.Question) (Quiz, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Quiz{}, err
	}
	defer tx.Rollback() //nolint:errcheck

	now := s.now()
	if err := tx.QueryRowContext(ctx,
		`INSERT INTO quizzes (title, description, active, created_by, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		q.Title, q.Description, q.Active, q.CreatedBy, now, now).Scan(&q.ID); err != nil {
		return Quiz{}, fmt.Errorf("insert quiz: %w", err)
	}
	q.CreatedAt, q.UpdatedAt = now, now
	q.Questions = nil
	for i, gq := range qs {
		added, err := addQuestionTx(ctx, tx, q.ID, gq, now)
		if err != nil {
			return Quiz{}, fmt.Errorf("question %d: %w", i+1, err)
		}
		q.Questions = append(q.Questions, added)
	}
	if err := tx.Commit(); err != nil {
		return Quiz{}, err
	}
	return q, nil
}

func addQuestionTx(ctx context.Context, tx *sql.Tx, quizID int64, gq grading.Question, now int64) (Question, error) {
	var pos int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), 0) FROM questions WHERE quiz_id=$1`, quizID).Scan(&pos); err != nil {
		return Question{}, err
	}
	q := Question{Question: gq, QuizID: quizID, Position: pos + 1, CreatedAt: now}
	if err := tx.QueryRowContext(ctx,
		`INSERT INTO questions (quiz_id, text, type, position, created_at)
		 VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		quizID, gq.Text, string(gq.Type), q.Position, now).Scan(&q.ID); err != nil {
		return Question{}, fmt.Errorf("insert question: %w", err)
	}
	var err error
	if q.Options, err = insertOptions(ctx, tx, q.ID, gq.Options, now); err != nil {
		return Question{}, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE quizzes SET updated_at=$1 WHERE id=$2`, now, quizID); err != nil {
		return Question{}, err
	}
	return q, nil
}

func (s *SQLStore) UpdateQuestion(ctx context.Context, gq grading.Question) (Question, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Question{}, err
	}
	defer tx.Rollback() //nolint:errcheck

	now := s.now()
	res, err := tx.ExecContext(ctx,
		`UPDATE questions SET text=$1 WHERE id=$2 AND deleted_at IS NULL`, gq.Text, gq.ID)
	if err != nil {
		return Question{}, fmt.Errorf("update question: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Question{}, notFound("question", gq.ID)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE options SET removed_at=$1 WHERE question_id=$2 AND removed_at IS NULL`, now, gq.ID); err != nil {
		return Question{}, err
	}
	if _, err := insertOptions(ctx, tx, gq.ID, gq.Options, now); err != nil {
		return Question{}, err
	}
	if err := tx.Commit(); err != nil {
		return Question{}, err
	}
	return s.GetQuestion(ctx, gq.ID)
}

func insertOptions(ctx context.Context, tx *sql.Tx, questionID int64, opts []grading.Option, now int64) ([]grading.Option, error) {
	out := make([]grading.Option, 0, len(opts))
	for i, o := range opts {
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO options (question_id, text, left_text, right_text, is_correct, position, created_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
			questionID, o.Text, o.LeftText, o.RightText, o.IsCorrect, i, now).Scan(&o.ID); err != nil {
			return nil, fmt.Errorf("insert option: %w", err)
		}
		out = append(out, o)
	}
	return out, nil
}

func (s *SQLStore) DeleteQuestion(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE questions SET deleted_at=$1 WHERE id=$2 AND deleted_at IS NULL`, s.now(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("question", id)
	}
	return nil
}

func (s *SQLStore) GetQuestion(ctx context.Context, id int64) (Question, error) {
	qs, err := s.loadQuestions(ctx,
		`SELECT id, quiz_id, text, type, position, created_at, deleted_at FROM questions WHERE id=$1`, id)
	if err != nil {
		return Question{}, err
	}
	if len(qs) == 0 {
		return Question{}, notFound("question", id)
	}
	if err := s.attachOptions(ctx, qs,
		`SELECT id, question_id, text, left_text, right_text, is_correct FROM options
		 WHERE question_id=$1 AND removed_at IS NULL ORDER BY position, id`, id); err != nil {
		return Question{}, err
	}
	return qs[0], nil
}

func (s *SQLStore) loadQuestions(ctx context.Context, query string, args ...any) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Question
	for rows.Next() {
		var (
			q       Question
			typ     string
			deleted sql.NullInt64
		)
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Text, &typ, &q.Position, &q.CreatedAt, &deleted); err != nil {
			return nil, err
		}
		q.Type = grading.QuestionType(typ)
		q.Deleted = deleted.Valid
		q.Options = []grading.Option{}
		out = append(out, q)
	}
	return out, rows.Err()
}

// attachOptions runs an options query (id, question_id, text, left_text,
// right_text, is_correct) and appends each row to its question.
func (s *SQLStore) attachOptions(ctx context.Context, qs []Question, query string, args ...any) error {
	idx := make(map[int64]int, len(qs))
	for i, q := range qs {
		idx[q.ID] = i
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			o   grading.Option
			qid int64
		)
		if err := rows.Scan(&o.ID, &qid, &o.Text, &o.LeftText, &o.RightText, &o.IsCorrect); err != nil {
			return err
		}
		if i, ok := idx[qid]; ok {
			qs[i].Options = append(qs[i].Options, o)
		}
	}
	return rows.Err()
}

func (s *SQLStore) CreateAttempt(ctx context.Context, a Attempt, schema []grading.Question, sub grading.Submission) (Attempt, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Attempt{}, err
	}
	defer tx.Rollback() //nolint:errcheck

	if err := checkCurrentKey(ctx, tx, a.QuizID, schema); err != nil {
		return Attempt{}, err
	}

	a.Score, a.Total, a.Percentage = sub.Score, sub.Total, sub.Percentage
	a.CreatedAt = s.now()
	if err := tx.QueryRowContext(ctx,
		`INSERT INTO attempts (quiz_id, user_id, score, total, percentage, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		a.QuizID, a.UserID, a.Score, a.Total, a.Percentage, a.CreatedAt).Scan(&a.ID); err != nil {
		return Attempt{}, fmt.Errorf("insert attempt: %w", err)
	}

	for _, r := range grading.ResponseRows(a.ID, sub) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO responses (attempt_id, question_id, option_id, right_option_id, position, text_answer, is_correct)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			r.AttemptID, r.QuestionID, nullInt64(r.OptionID), nullInt64(r.RightOptionID),
			nullInt(r.Position), nullString(r.TextAnswer), r.IsCorrect); err != nil {
			return Attempt{}, fmt.Errorf("insert response: %w", err)
		}
	}

	if s.events != nil {
		data, err := json.Marshal(a)
		if err != nil {
			return Attempt{}, err
		}
		if err := s.events.AppendTx(ctx, tx, syncx.Event{
			Type: syncx.TypeAttemptSubmitted,
			Key:  fmt.Sprint(a.ID),
			Data: data,
		}); err != nil {
			return Attempt{}, fmt.Errorf("append event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Attempt{}, err
	}
	return a, nil
}

// checkCurrentKey fails with ErrQuizChanged unless schema still matches the
// quiz's live questions and options.
func checkCurrentKey(ctx context.Context, tx *sql.Tx, quizID int64, schema []grading.Question) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT q.id, o.id FROM questions q
		 LEFT JOIN options o ON o.question_id = q.id AND o.removed_at IS NULL
		 WHERE q.quiz_id=$1 AND q.deleted_at IS NULL`, quizID)
	if err != nil {
		return err
	}
	defer rows.Close()
	live := map[int64]map[int64]struct{}{}
	for rows.Next() {
		var qid int64
		var oid sql.NullInt64
		if err := rows.Scan(&qid, &oid); err != nil {
			return err
		}
		if live[qid] == nil {
			live[qid] = map[int64]struct{}{}
		}
		if oid.Valid {
			live[qid][oid.Int64] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if len(live) != len(schema) {
		return ErrQuizChanged
	}
	for _, q := range schema {
		opts, ok := live[q.ID]
		if !ok || len(opts) != len(q.Options) {
			return ErrQuizChanged
		}
		for _, o := range q.Options {
			if _, ok := opts[o.ID]; !ok {
				return ErrQuizChanged
			}
		}
	}
	return nil
}

const attemptCols = `id, quiz_id, user_id, score, total, percentage, created_at`

func scanAttempt(sc interface{ Scan(...any) error }) (Attempt, error) {
	var a Attempt
	err := sc.Scan(&a.ID, &a.QuizID, &a.UserID, &a.Score, &a.Total, &a.Percentage, &a.CreatedAt)
	return a, err
}

func (s *SQLStore) GetAttempt(ctx context.Context, id int64) (Attempt, error) {
	a, err := scanAttempt(s.db.QueryRowContext(ctx,
		`SELECT `+attemptCols+` FROM attempts WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, notFound("attempt", id)
	}
	return a, err
}

func (s *SQLStore) LatestAttempt(ctx context.Context, quizID int64, userID string) (Attempt, error) {
	a, err := scanAttempt(s.db.QueryRowContext(ctx,
		`SELECT `+attemptCols+` FROM attempts WHERE quiz_id=$1 AND user_id=$2
		 ORDER BY created_at DESC, id DESC LIMIT 1`, quizID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, notFound("attempt", fmt.Sprintf("quiz=%d user=%s", quizID, userID))
	}
	return a, err
}

func (s *SQLStore) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error) {
	limit, offset := page(opts.Limit, opts.Offset)
	var (
		where []string
		args  []any
	)
	if opts.QuizID != 0 {
		args = append(args, opts.QuizID)
		where = append(where, fmt.Sprintf("quiz_id=$%d", len(args)))
	}
	if opts.UserID != "" {
		args = append(args, opts.UserID)
		where = append(where, fmt.Sprintf("user_id=$%d", len(args)))
	}
	query := `SELECT ` + attemptCols + ` FROM attempts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	return s.queryAttempts(ctx, query, args...)
}

func (s *SQLStore) LatestAttemptsByUser(ctx context.Context, quizID int64) ([]Attempt, error) {
	return s.queryAttempts(ctx,
		`SELECT `+attemptCols+` FROM attempts a WHERE a.quiz_id=$1 AND NOT EXISTS (
		   SELECT 1 FROM attempts b
		   WHERE b.quiz_id = a.quiz_id AND b.user_id = a.user_id
		     AND (b.created_at > a.created_at OR (b.created_at = a.created_at AND b.id > a.id))
		 ) ORDER BY a.user_id`, quizID)
}

func (s *SQLStore) queryAttempts(ctx context.Context, query string, args ...any) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) ResponseRows(ctx context.Context, attemptID int64) ([]grading.ResponseRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.attempt_id, r.question_id, q.type, r.option_id, r.right_option_id, r.position, r.text_answer, r.is_correct
		 FROM responses r JOIN questions q ON q.id = r.question_id
		 WHERE r.attempt_id=$1 ORDER BY r.id`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []grading.ResponseRow
	for rows.Next() {
		var (
			r          grading.ResponseRow
			typ        string
			opt, right sql.NullInt64
			pos        sql.NullInt64
			text       sql.NullString
		)
		if err := rows.Scan(&r.AttemptID, &r.QuestionID, &typ, &opt, &right, &pos, &text, &r.IsCorrect); err != nil {
			return nil, err
		}
		r.QuestionType = grading.QuestionType(typ)
		if opt.Valid {
			r.OptionID = &opt.Int64
		}
		if right.Valid {
			r.RightOptionID = &right.Int64
		}
		if pos.Valid {
			p := int(pos.Int64)
			r.Position = &p
		}
		if text.Valid {
			r.TextAnswer = &text.String
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) AttemptSchema(ctx context.Context, a Attempt) ([]grading.Question, error) {
	qs, err := s.loadQuestions(ctx,
		`SELECT id, quiz_id, text, type, position, created_at, deleted_at FROM questions
		 WHERE quiz_id=$1 AND (
		   (created_at <= $2 AND (deleted_at IS NULL OR deleted_at > $2))
		   OR id IN (SELECT question_id FROM responses WHERE attempt_id=$3)
		 ) ORDER BY position, id`, a.QuizID, a.CreatedAt, a.ID)
	if err != nil {
		return nil, err
	}
	if err := s.attachOptions(ctx, qs,
		`SELECT o.id, o.question_id, o.text, o.left_text, o.right_text, o.is_correct
		 FROM options o JOIN questions q ON q.id = o.question_id
		 WHERE q.quiz_id=$1 AND o.created_at <= $2 AND (o.removed_at IS NULL OR o.removed_at > $2)
		 ORDER BY o.question_id, o.position, o.id`, a.QuizID, a.CreatedAt); err != nil {
		return nil, err
	}
	out := make([]grading.Question, len(qs))
	for i, q := range qs {
		out[i] = q.Question
	}
	return out, nil
}

func page(limit, offset int) (int, int) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

package questions

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mock-test/backend/internal/jobs"
	"github.com/mock-test/backend/internal/models"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// placeholders renders "($1, $2, ...), (...)" for rows of width columns.
func placeholders(rows, width int) string {
	groups := make([]string, rows)
	for i := 0; i < rows; i++ {
		cols := make([]string, width)
		for j := 0; j < width; j++ {
			cols[j] = fmt.Sprintf("$%d", i*width+j+1)
		}
		groups[i] = "(" + strings.Join(cols, ", ") + ")"
	}
	return strings.Join(groups, ", ")
}

// ── Staging ─────────────────────────────────────────────

const stagedColumns = 10

// InsertStaged writes candidates to the staging pool in one statement.
func (s *Store) InsertStaged(ctx context.Context, questions []models.CandidateQuestion) error {
	if len(questions) == 0 {
		return nil
	}

	args := make([]any, 0, len(questions)*stagedColumns)
	for _, q := range questions {
		source := q.Source
		if source == "" {
			source = "ai"
		}
		args = append(args,
			q.Topic, q.QuestionText,
			q.OptionA, q.OptionB, q.OptionC, q.OptionD,
			q.CorrectOption, source,
			nullInt(q.DifficultyLevel), nullString(q.CompanyName),
		)
	}

	query := `INSERT INTO ai_generated_questions
		 (topic, question_text, option_a, option_b, option_c, option_d, correct_option, ai_provider, difficulty_level, company_name)
		 VALUES ` + placeholders(len(questions), stagedColumns)

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert staged questions: %w", err)
	}
	return nil
}

// ReadStaged returns staged rows for a topic and level in id order. With
// includeUntagged, rows with no level are returned too.
func (s *Store) ReadStaged(ctx context.Context, topic string, level int, includeUntagged bool) ([]models.CandidateQuestion, error) {
	levelFilter := "difficulty_level = $2"
	if includeUntagged {
		levelFilter = "(difficulty_level = $2 OR difficulty_level IS NULL)"
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, topic, question_text, option_a, option_b, option_c, option_d, correct_option,
		        COALESCE(ai_provider, ''), COALESCE(difficulty_level, 0), COALESCE(company_name, '')
		 FROM ai_generated_questions
		 WHERE topic = $1 AND `+levelFilter+`
		 ORDER BY id`,
		topic, level,
	)
	if err != nil {
		return nil, fmt.Errorf("read staged questions: %w", err)
	}
	defer rows.Close()

	var out []models.CandidateQuestion
	for rows.Next() {
		var q models.CandidateQuestion
		if err := rows.Scan(&q.ID, &q.Topic, &q.QuestionText,
			&q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD, &q.CorrectOption,
			&q.Source, &q.DifficultyLevel, &q.CompanyName); err != nil {
			return nil, fmt.Errorf("scan staged question: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// ── Normalized schema ───────────────────────────────────

// WithTx runs fn inside one transaction. Any error from fn rolls everything back.
func (s *Store) WithTx(ctx context.Context, fn func(tx jobs.ApprovalTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Tx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) ListDifficulties(ctx context.Context) ([]models.DifficultyLevel, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, level FROM difficulty_levels ORDER BY level`)
	if err != nil {
		return nil, fmt.Errorf("list difficulties: %w", err)
	}
	defer rows.Close()

	var out []models.DifficultyLevel
	for rows.Next() {
		var d models.DifficultyLevel
		if err := rows.Scan(&d.ID, &d.Name, &d.Level); err != nil {
			return nil, fmt.Errorf("scan difficulty: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Tx is the approval-side view of an open transaction.
type Tx struct {
	tx *sql.Tx
}

const questionColumns = 6

// InsertQuestions bulk-inserts rows tagged with (jobID, Seq) and pairs the
// returned ids by that key rather than by row order.
func (t *Tx) InsertQuestions(ctx context.Context, jobID string, rows []models.NewQuestion) (map[int]int64, error) {
	if len(rows) == 0 {
		return map[int]int64{}, nil
	}

	args := make([]any, 0, len(rows)*questionColumns)
	for _, r := range rows {
		marks := r.Marks
		if marks == 0 {
			marks = 1
		}
		args = append(args, r.TestID, r.DifficultyID, r.QuestionText, marks, jobID, r.Seq)
	}

	result, err := t.tx.QueryContext(ctx,
		`INSERT INTO questions (test_id, difficulty_id, question_text, marks, source_job_id, source_seq)
		 VALUES `+placeholders(len(rows), questionColumns)+`
		 RETURNING id, source_seq`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("insert questions: %w", err)
	}
	defer result.Close()

	ids := make(map[int]int64, len(rows))
	for result.Next() {
		var id int64
		var seq int
		if err := result.Scan(&id, &seq); err != nil {
			return nil, fmt.Errorf("scan question id: %w", err)
		}
		ids[seq] = id
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("insert questions: %w", err)
	}
	if len(ids) != len(rows) {
		return nil, fmt.Errorf("insert questions: expected %d ids, got %d", len(rows), len(ids))
	}
	return ids, nil
}

const optionColumns = 4

func (t *Tx) InsertOptions(ctx context.Context, options []models.AnswerOption) error {
	if len(options) == 0 {
		return nil
	}

	args := make([]any, 0, len(options)*optionColumns)
	for _, o := range options {
		args = append(args, o.QuestionID, o.Text, o.IsCorrect, o.Order)
	}

	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO answer_options (question_id, option_text, is_correct, option_order)
		 VALUES `+placeholders(len(options), optionColumns),
		args...,
	)
	if err != nil {
		return fmt.Errorf("insert options: %w", err)
	}
	return nil
}

func (t *Tx) DeleteStagedByTopic(ctx context.Context, topic string) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM ai_generated_questions WHERE topic = $1`, topic)
	if err != nil {
		return 0, fmt.Errorf("delete staged questions: %w", err)
	}
	return res.RowsAffected()
}

func (t *Tx) RecountQuestions(ctx context.Context, testID int64) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE tests SET total_questions = (SELECT COUNT(*) FROM questions WHERE test_id = $1) WHERE id = $1`,
		testID,
	)
	if err != nil {
		return fmt.Errorf("recount questions: %w", err)
	}
	return nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullInt(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}

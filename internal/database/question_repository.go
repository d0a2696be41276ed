package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/lingoleague/pkg/models"
)

type questionRow struct {
	ID              int64     `db:"id"`
	Text            string    `db:"text"`
	Type            string    `db:"type"`
	Options         string    `db:"options"`
	MatchingOptions string    `db:"matching_options"`
	Explanation     string    `db:"explanation"`
	Hint            string    `db:"hint"`
	Difficulty      int       `db:"difficulty"`
	CreatedAt       time.Time `db:"created_at"`
}

func (row questionRow) model() (models.Question, error) {
	q := models.Question{
		ID:          row.ID,
		Text:        row.Text,
		Type:        models.QuestionType(row.Type),
		Explanation: row.Explanation,
		Hint:        row.Hint,
		Difficulty:  row.Difficulty,
		CreatedAt:   row.CreatedAt,
	}
	if err := fromJSON(row.Options, &q.Options); err != nil {
		return q, err
	}
	if err := fromJSON(row.MatchingOptions, &q.MatchingOptions); err != nil {
		return q, err
	}
	return q, nil
}

type questionRepository struct{ c *conn }

const questionColumns = "id, text, type, options, matching_options, explanation, hint, difficulty, created_at"

func (r *questionRepository) Create(ctx context.Context, question *models.Question) error {
	options, err := toJSON(question.Options)
	if err != nil {
		return err
	}
	matching, err := toJSON(question.MatchingOptions)
	if err != nil {
		return err
	}
	q := r.c.q(ctx)
	now := utc(time.Now())
	err = q.QueryRowxContext(ctx, q.Rebind(`
		INSERT INTO questions (text, type, options, matching_options, explanation, hint, difficulty, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		question.Text, string(question.Type), options, matching, question.Explanation, question.Hint, question.Difficulty, now,
	).Scan(&question.ID)
	if err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}
	question.CreatedAt = now
	return nil
}

func (r *questionRepository) GetByID(ctx context.Context, id int64) (*models.Question, error) {
	q := r.c.q(ctx)
	var row questionRow
	if err := sqlx.GetContext(ctx, q, &row, q.Rebind("SELECT "+questionColumns+" FROM questions WHERE id = ?"), id); err != nil {
		return nil, notFound(err)
	}
	question, err := row.model()
	if err != nil {
		return nil, err
	}
	return &question, nil
}

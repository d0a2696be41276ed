package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/lingoleague/pkg/models"
)

type questionProgressRow struct {
	ID               int64     `db:"id"`
	UserID           int64     `db:"user_id"`
	QuestionID       int64     `db:"question_id"`
	Status           string    `db:"status"`
	RepetitionNumber int       `db:"repetition_number"`
	Ease             float64   `db:"ease"`
	Interval         int       `db:"interval_days"`
	NextReview       time.Time `db:"next_review"`
	Attempts         string    `db:"attempts"`
}

func (row questionProgressRow) model() (models.QuestionProgress, error) {
	p := models.QuestionProgress{
		ID:               row.ID,
		UserID:           row.UserID,
		QuestionID:       row.QuestionID,
		Status:           models.ReviewStatus(row.Status),
		RepetitionNumber: row.RepetitionNumber,
		Ease:             row.Ease,
		Interval:         row.Interval,
		NextReview:       row.NextReview,
	}
	return p, fromJSON(row.Attempts, &p.Attempts)
}

type questionProgressRepository struct{ c *conn }

const questionProgressColumns = "id, user_id, question_id, status, repetition_number, ease, interval_days, next_review, attempts"

func (r *questionProgressRepository) Get(ctx context.Context, userID, questionID int64) (*models.QuestionProgress, error) {
	q := r.c.q(ctx)
	var row questionProgressRow
	err := sqlx.GetContext(ctx, q, &row,
		q.Rebind("SELECT "+questionProgressColumns+" FROM question_progress WHERE user_id = ? AND question_id = ?"),
		userID, questionID)
	if err != nil {
		return nil, notFound(err)
	}
	p, err := row.model()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *questionProgressRepository) ListForQuestions(ctx context.Context, userID int64, questionIDs []int64) ([]models.QuestionProgress, error) {
	if len(questionIDs) == 0 {
		return nil, nil
	}
	q := r.c.q(ctx)
	query, args, err := sqlx.In(
		"SELECT "+questionProgressColumns+" FROM question_progress WHERE user_id = ? AND question_id IN (?) ORDER BY id",
		userID, questionIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	var rows []questionProgressRow
	if err := sqlx.SelectContext(ctx, q, &rows, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get question progress: %w", err)
	}
	out := make([]models.QuestionProgress, 0, len(rows))
	for _, row := range rows {
		p, err := row.model()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *questionProgressRepository) Save(ctx context.Context, p *models.QuestionProgress) error {
	attempts, err := toJSON(p.Attempts)
	if err != nil {
		return err
	}
	q := r.c.q(ctx)
	err = q.QueryRowxContext(ctx, q.Rebind(`
		INSERT INTO question_progress (user_id, question_id, status, repetition_number, ease, interval_days, next_review, attempts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, question_id) DO UPDATE SET
			status = excluded.status,
			repetition_number = excluded.repetition_number,
			ease = excluded.ease,
			interval_days = excluded.interval_days,
			next_review = excluded.next_review,
			attempts = excluded.attempts
		RETURNING id`),
		p.UserID, p.QuestionID, string(p.Status), p.RepetitionNumber, p.Ease, p.Interval, utc(p.NextReview), attempts,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to save question progress: %w", err)
	}
	return nil
}

type lessonProgressRow struct {
	ID               int64        `db:"id"`
	UserID           int64        `db:"user_id"`
	LessonID         int64        `db:"lesson_id"`
	Status           string       `db:"status"`
	Opened           bool         `db:"opened"`
	CurrentQuestion  int          `db:"current_question"`
	SessionQuestions string       `db:"session_questions"`
	Attempts         string       `db:"attempts"`
	NextReview       sql.NullTime `db:"next_review"`
}

func (row lessonProgressRow) model() (models.LessonProgress, error) {
	p := models.LessonProgress{
		ID:              row.ID,
		UserID:          row.UserID,
		LessonID:        row.LessonID,
		Status:          models.LessonStatus(row.Status),
		Opened:          row.Opened,
		CurrentQuestion: row.CurrentQuestion,
		NextReview:      timePtr(row.NextReview),
	}
	if err := fromJSON(row.SessionQuestions, &p.SessionQuestions); err != nil {
		return p, err
	}
	return p, fromJSON(row.Attempts, &p.Attempts)
}

type lessonProgressRepository struct{ c *conn }

const lessonProgressColumns = "id, user_id, lesson_id, status, opened, current_question, session_questions, attempts, next_review"

func (r *lessonProgressRepository) Get(ctx context.Context, userID, lessonID int64) (*models.LessonProgress, error) {
	q := r.c.q(ctx)
	var row lessonProgressRow
	err := sqlx.GetContext(ctx, q, &row,
		q.Rebind("SELECT "+lessonProgressColumns+" FROM lesson_progress WHERE user_id = ? AND lesson_id = ?"),
		userID, lessonID)
	if err != nil {
		return nil, notFound(err)
	}
	p, err := row.model()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *lessonProgressRepository) ListByUser(ctx context.Context, userID int64) ([]models.LessonProgress, error) {
	return r.list(ctx, "user_id = ?", userID)
}

func (r *lessonProgressRepository) ListByStatus(ctx context.Context, status models.LessonStatus) ([]models.LessonProgress, error) {
	return r.list(ctx, "status = ?", string(status))
}

func (r *lessonProgressRepository) list(ctx context.Context, where string, arg interface{}) ([]models.LessonProgress, error) {
	q := r.c.q(ctx)
	var rows []lessonProgressRow
	query := q.Rebind("SELECT " + lessonProgressColumns + " FROM lesson_progress WHERE " + where + " ORDER BY id")
	if err := sqlx.SelectContext(ctx, q, &rows, query, arg); err != nil {
		return nil, fmt.Errorf("failed to list lesson progress: %w", err)
	}
	out := make([]models.LessonProgress, 0, len(rows))
	for _, row := range rows {
		p, err := row.model()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *lessonProgressRepository) Save(ctx context.Context, p *models.LessonProgress) error {
	session, err := toJSON(p.SessionQuestions)
	if err != nil {
		return err
	}
	attempts, err := toJSON(p.Attempts)
	if err != nil {
		return err
	}
	q := r.c.q(ctx)
	err = q.QueryRowxContext(ctx, q.Rebind(`
		INSERT INTO lesson_progress (user_id, lesson_id, status, opened, current_question, session_questions, attempts, next_review)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, lesson_id) DO UPDATE SET
			status = excluded.status,
			opened = excluded.opened,
			current_question = excluded.current_question,
			session_questions = excluded.session_questions,
			attempts = excluded.attempts,
			next_review = excluded.next_review
		RETURNING id`),
		p.UserID, p.LessonID, string(p.Status), p.Opened, p.CurrentQuestion, session, attempts, nullTime(p.NextReview),
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to save lesson progress: %w", err)
	}
	return nil
}

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/lingoleague/pkg/models"
)

type lessonRow struct {
	ID            int64     `db:"id"`
	Name          string    `db:"name"`
	Description   string    `db:"description"`
	LessonType    string    `db:"lesson_type"`
	QuestionIDs   string    `db:"question_ids"`
	Price         int       `db:"price"`
	BaseCoins     int       `db:"base_coins"`
	RequiredLevel int       `db:"required_level"`
	CreatedAt     time.Time `db:"created_at"`
}

func (row lessonRow) model() (models.Lesson, error) {
	l := models.Lesson{
		ID:            row.ID,
		Name:          row.Name,
		Description:   row.Description,
		LessonType:    models.LessonType(row.LessonType),
		Price:         row.Price,
		BaseCoins:     row.BaseCoins,
		RequiredLevel: row.RequiredLevel,
		CreatedAt:     row.CreatedAt,
	}
	return l, fromJSON(row.QuestionIDs, &l.QuestionIDs)
}

type lessonRepository struct{ c *conn }

const lessonColumns = "id, name, description, lesson_type, question_ids, price, base_coins, required_level, created_at"

func (r *lessonRepository) Save(ctx context.Context, lesson *models.Lesson) error {
	questionIDs, err := toJSON(lesson.QuestionIDs)
	if err != nil {
		return err
	}
	q := r.c.q(ctx)

	if lesson.ID != 0 {
		res, err := q.ExecContext(ctx, q.Rebind(`
			UPDATE lessons SET name = ?, description = ?, lesson_type = ?, question_ids = ?,
				price = ?, base_coins = ?, required_level = ?
			WHERE id = ?`),
			lesson.Name, lesson.Description, string(lesson.LessonType), questionIDs,
			lesson.Price, lesson.BaseCoins, lesson.RequiredLevel, lesson.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update lesson: %w", err)
		}
		return expectRow(res)
	}

	now := utc(time.Now())
	err = q.QueryRowxContext(ctx, q.Rebind(`
		INSERT INTO lessons (name, description, lesson_type, question_ids, price, base_coins, required_level, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		lesson.Name, lesson.Description, string(lesson.LessonType), questionIDs,
		lesson.Price, lesson.BaseCoins, lesson.RequiredLevel, now,
	).Scan(&lesson.ID)
	if err != nil {
		return fmt.Errorf("failed to create lesson: %w", err)
	}
	lesson.CreatedAt = now
	return nil
}

func (r *lessonRepository) GetByID(ctx context.Context, id int64) (*models.Lesson, error) {
	q := r.c.q(ctx)
	var row lessonRow
	if err := sqlx.GetContext(ctx, q, &row, q.Rebind("SELECT "+lessonColumns+" FROM lessons WHERE id = ?"), id); err != nil {
		return nil, notFound(err)
	}
	lesson, err := row.model()
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (r *lessonRepository) List(ctx context.Context) ([]models.Lesson, error) {
	q := r.c.q(ctx)
	var rows []lessonRow
	if err := sqlx.SelectContext(ctx, q, &rows, "SELECT "+lessonColumns+" FROM lessons ORDER BY id"); err != nil {
		return nil, fmt.Errorf("failed to list lessons: %w", err)
	}
	lessons := make([]models.Lesson, 0, len(rows))
	for _, row := range rows {
		l, err := row.model()
		if err != nil {
			return nil, err
		}
		lessons = append(lessons, l)
	}
	return lessons, nil
}

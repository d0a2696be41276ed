package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/lingoleague/internal/calendar"
	"github.com/example/lingoleague/pkg/models"
)

type dailyExperienceRepository struct{ c *conn }

// day normalizes to midnight in the caller's location, stored as UTC.
func day(t time.Time) time.Time {
	return calendar.StartOfDay(t).UTC()
}

func (r *dailyExperienceRepository) AddPoints(ctx context.Context, userID int64, date time.Time, points int) error {
	q := r.c.q(ctx)
	_, err := q.ExecContext(ctx, q.Rebind(`
		INSERT INTO daily_experience (user_id, date, points) VALUES (?, ?, ?)
		ON CONFLICT (user_id, date) DO UPDATE SET points = daily_experience.points + excluded.points`),
		userID, day(date), points)
	if err != nil {
		return fmt.Errorf("failed to add daily experience: %w", err)
	}
	return nil
}

func (r *dailyExperienceRepository) Get(ctx context.Context, userID int64, date time.Time) (*models.DailyExperience, error) {
	q := r.c.q(ctx)
	var row models.DailyExperience
	err := sqlx.GetContext(ctx, q, &row,
		q.Rebind("SELECT id, user_id, date, points FROM daily_experience WHERE user_id = ? AND date = ?"),
		userID, day(date))
	if err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

func (r *dailyExperienceRepository) ListByUser(ctx context.Context, userID int64) ([]models.DailyExperience, error) {
	q := r.c.q(ctx)
	var rows []models.DailyExperience
	err := sqlx.SelectContext(ctx, q, &rows,
		q.Rebind("SELECT id, user_id, date, points FROM daily_experience WHERE user_id = ? ORDER BY date"),
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily experience: %w", err)
	}
	return rows, nil
}

func (r *dailyExperienceRepository) SumBetween(ctx context.Context, userID int64, from, to time.Time) (int, error) {
	q := r.c.q(ctx)
	var total int
	err := sqlx.GetContext(ctx, q, &total,
		q.Rebind("SELECT COALESCE(SUM(points), 0) FROM daily_experience WHERE user_id = ? AND date >= ? AND date <= ?"),
		userID, from.UTC(), to.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to sum daily experience: %w", err)
	}
	return total, nil
}

type levelHistoryRepository struct{ c *conn }

func (r *levelHistoryRepository) Create(ctx context.Context, e *models.LevelHistory) error {
	if e.AchievedAt.IsZero() {
		e.AchievedAt = time.Now()
	}
	e.AchievedAt = utc(e.AchievedAt)
	q := r.c.q(ctx)
	err := q.QueryRowxContext(ctx, q.Rebind(`
		INSERT INTO level_history (user_id, level, achieved_at) VALUES (?, ?, ?)
		RETURNING id`),
		e.UserID, e.Level, e.AchievedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("failed to create level history: %w", err)
	}
	return nil
}

func (r *levelHistoryRepository) ListByUser(ctx context.Context, userID int64) ([]models.LevelHistory, error) {
	q := r.c.q(ctx)
	var rows []models.LevelHistory
	err := sqlx.SelectContext(ctx, q, &rows,
		q.Rebind("SELECT id, user_id, level, achieved_at FROM level_history WHERE user_id = ? ORDER BY id"),
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list level history: %w", err)
	}
	return rows, nil
}

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/lingoleague/pkg/models"
)

type awardRow struct {
	ID               int64     `db:"id"`
	Name             string    `db:"name"`
	Description      string    `db:"description"`
	Category         string    `db:"category"`
	Coins            int       `db:"coins"`
	ExperiencePoints int       `db:"experience_points"`
	CriteriaType     string    `db:"criteria_type"`
	CriteriaLevels   string    `db:"criteria_levels"`
	CreatedAt        time.Time `db:"created_at"`
}

type awardRepository struct{ c *conn }

func (r *awardRepository) Create(ctx context.Context, a *models.Award) error {
	levels, err := toJSON(a.Criteria.Levels)
	if err != nil {
		return err
	}
	q := r.c.q(ctx)
	now := utc(time.Now())
	err = q.QueryRowxContext(ctx, q.Rebind(`
		INSERT INTO awards (name, description, category, coins, experience_points, criteria_type, criteria_levels, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		a.Name, a.Description, a.Category, a.Coins, a.ExperiencePoints, string(a.Criteria.Type), levels, now,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("failed to create award: %w", err)
	}
	a.CreatedAt = now
	return nil
}

func (r *awardRepository) GetByCriteriaType(ctx context.Context, criteriaType models.CriteriaType) (*models.Award, error) {
	q := r.c.q(ctx)
	var row awardRow
	err := sqlx.GetContext(ctx, q, &row, q.Rebind(`
		SELECT id, name, description, category, coins, experience_points, criteria_type, criteria_levels, created_at
		FROM awards WHERE criteria_type = ? ORDER BY id LIMIT 1`),
		string(criteriaType))
	if err != nil {
		return nil, notFound(err)
	}
	a := &models.Award{
		ID:               row.ID,
		Name:             row.Name,
		Description:      row.Description,
		Category:         row.Category,
		Coins:            row.Coins,
		ExperiencePoints: row.ExperiencePoints,
		Criteria:         models.Criteria{Type: models.CriteriaType(row.CriteriaType)},
		CreatedAt:        row.CreatedAt,
	}
	if err := fromJSON(row.CriteriaLevels, &a.Criteria.Levels); err != nil {
		return nil, err
	}
	return a, nil
}

type userAwardRow struct {
	ID           int64  `db:"id"`
	UserID       int64  `db:"user_id"`
	AwardID      int64  `db:"award_id"`
	CriteriaType string `db:"criteria_type"`
	CurrentCount int    `db:"current_count"`
	Level        int    `db:"level"`
	History      string `db:"history"`
}

func (row userAwardRow) model() (models.UserAward, error) {
	ua := models.UserAward{
		ID:           row.ID,
		UserID:       row.UserID,
		AwardID:      row.AwardID,
		CriteriaType: models.CriteriaType(row.CriteriaType),
		CurrentCount: row.CurrentCount,
		Level:        row.Level,
	}
	return ua, fromJSON(row.History, &ua.History)
}

type userAwardRepository struct{ c *conn }

const userAwardColumns = "id, user_id, award_id, criteria_type, current_count, level, history"

func (r *userAwardRepository) Get(ctx context.Context, userID, awardID int64, criteriaType models.CriteriaType) (*models.UserAward, error) {
	q := r.c.q(ctx)
	var row userAwardRow
	err := sqlx.GetContext(ctx, q, &row,
		q.Rebind("SELECT "+userAwardColumns+" FROM user_awards WHERE user_id = ? AND award_id = ? AND criteria_type = ?"),
		userID, awardID, string(criteriaType))
	if err != nil {
		return nil, notFound(err)
	}
	ua, err := row.model()
	if err != nil {
		return nil, err
	}
	return &ua, nil
}

func (r *userAwardRepository) ListByUser(ctx context.Context, userID int64) ([]models.UserAward, error) {
	q := r.c.q(ctx)
	var rows []userAwardRow
	err := sqlx.SelectContext(ctx, q, &rows,
		q.Rebind("SELECT "+userAwardColumns+" FROM user_awards WHERE user_id = ? ORDER BY id"), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user awards: %w", err)
	}
	out := make([]models.UserAward, 0, len(rows))
	for _, row := range rows {
		ua, err := row.model()
		if err != nil {
			return nil, err
		}
		out = append(out, ua)
	}
	return out, nil
}

func (r *userAwardRepository) Save(ctx context.Context, ua *models.UserAward) error {
	history, err := toJSON(ua.History)
	if err != nil {
		return err
	}
	q := r.c.q(ctx)
	err = q.QueryRowxContext(ctx, q.Rebind(`
		INSERT INTO user_awards (user_id, award_id, criteria_type, current_count, level, history)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, award_id, criteria_type) DO UPDATE SET
			current_count = excluded.current_count,
			level = excluded.level,
			history = excluded.history
		RETURNING id`),
		ua.UserID, ua.AwardID, string(ua.CriteriaType), ua.CurrentCount, ua.Level, history,
	).Scan(&ua.ID)
	if err != nil {
		return fmt.Errorf("failed to save user award: %w", err)
	}
	return nil
}

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/lingoleague/pkg/models"
)

type userRepository struct{ c *conn }

const userColumns = `id, username, telegram_chat_id, coins, experience_points, level, streak,
	coin_earning_coefficient, experience_earning_coefficient, league_id, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	q := r.c.q(ctx)
	now := utc(time.Now())
	query := q.Rebind(`
		INSERT INTO users (username, telegram_chat_id, coins, experience_points, level, streak,
			coin_earning_coefficient, experience_earning_coefficient, league_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)
	err := q.QueryRowxContext(ctx, query,
		user.Username, user.TelegramChatID, user.Coins, user.ExperiencePoints, user.Level, user.Streak,
		user.CoinEarningCoefficient, user.ExperienceEarningCoefficient, user.LeagueID, now, now,
	).Scan(&user.ID)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.CreatedAt, user.UpdatedAt = now, now
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	q := r.c.q(ctx)
	var user models.User
	err := sqlx.GetContext(ctx, q, &user, q.Rebind("SELECT "+userColumns+" FROM users WHERE id = ?"), id)
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context) ([]models.User, error) {
	q := r.c.q(ctx)
	var users []models.User
	if err := sqlx.SelectContext(ctx, q, &users, "SELECT "+userColumns+" FROM users ORDER BY id"); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	q := r.c.q(ctx)
	now := utc(time.Now())
	res, err := q.ExecContext(ctx, q.Rebind(`
		UPDATE users SET
			username = ?, telegram_chat_id = ?, coins = ?, experience_points = ?, level = ?, streak = ?,
			coin_earning_coefficient = ?, experience_earning_coefficient = ?, league_id = ?, updated_at = ?
		WHERE id = ?`),
		user.Username, user.TelegramChatID, user.Coins, user.ExperiencePoints, user.Level, user.Streak,
		user.CoinEarningCoefficient, user.ExperienceEarningCoefficient, user.LeagueID, now, user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if err := expectRow(res); err != nil {
		return err
	}
	user.UpdatedAt = now
	return nil
}

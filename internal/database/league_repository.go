package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/lingoleague/pkg/models"
)

type leagueRow struct {
	ID          int64  `db:"id"`
	Name        string `db:"name"`
	Description string `db:"description"`
	Level       int    `db:"level"`
	GroupIDs    string `db:"group_ids"`
}

func (row leagueRow) model() (models.League, error) {
	l := models.League{ID: row.ID, Name: row.Name, Description: row.Description, Level: row.Level}
	return l, fromJSON(row.GroupIDs, &l.GroupIDs)
}

type leagueRepository struct{ c *conn }

const leagueColumns = "id, name, description, level, group_ids"

func (r *leagueRepository) Create(ctx context.Context, league *models.League) error {
	groupIDs, err := toJSON(league.GroupIDs)
	if err != nil {
		return err
	}
	q := r.c.q(ctx)
	err = q.QueryRowxContext(ctx, q.Rebind(`
		INSERT INTO leagues (name, description, level, group_ids) VALUES (?, ?, ?, ?)
		RETURNING id`),
		league.Name, league.Description, league.Level, groupIDs,
	).Scan(&league.ID)
	if err != nil {
		return fmt.Errorf("failed to create league: %w", err)
	}
	return nil
}

func (r *leagueRepository) GetByID(ctx context.Context, id int64) (*models.League, error) {
	q := r.c.q(ctx)
	var row leagueRow
	if err := sqlx.GetContext(ctx, q, &row, q.Rebind("SELECT "+leagueColumns+" FROM leagues WHERE id = ?"), id); err != nil {
		return nil, notFound(err)
	}
	l, err := row.model()
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *leagueRepository) List(ctx context.Context) ([]models.League, error) {
	q := r.c.q(ctx)
	var rows []leagueRow
	if err := sqlx.SelectContext(ctx, q, &rows, "SELECT "+leagueColumns+" FROM leagues ORDER BY level, id"); err != nil {
		return nil, fmt.Errorf("failed to list leagues: %w", err)
	}
	leagues := make([]models.League, 0, len(rows))
	for _, row := range rows {
		l, err := row.model()
		if err != nil {
			return nil, err
		}
		leagues = append(leagues, l)
	}
	return leagues, nil
}

func (r *leagueRepository) Update(ctx context.Context, league *models.League) error {
	groupIDs, err := toJSON(league.GroupIDs)
	if err != nil {
		return err
	}
	q := r.c.q(ctx)
	res, err := q.ExecContext(ctx, q.Rebind(`
		UPDATE leagues SET name = ?, description = ?, level = ?, group_ids = ? WHERE id = ?`),
		league.Name, league.Description, league.Level, groupIDs, league.ID)
	if err != nil {
		return fmt.Errorf("failed to update league: %w", err)
	}
	return expectRow(res)
}

type groupRow struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	UserIDs   string    `db:"user_ids"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type groupRepository struct{ c *conn }

func (r *groupRepository) Save(ctx context.Context, g *models.Group) error {
	userIDs, err := toJSON(g.UserIDs)
	if err != nil {
		return err
	}
	q := r.c.q(ctx)
	now := utc(time.Now())

	if g.ID != 0 {
		res, err := q.ExecContext(ctx, q.Rebind(`
			UPDATE league_groups SET name = ?, user_ids = ?, updated_at = ? WHERE id = ?`),
			g.Name, userIDs, now, g.ID)
		if err != nil {
			return fmt.Errorf("failed to update group: %w", err)
		}
		if err := expectRow(res); err != nil {
			return err
		}
		g.UpdatedAt = now
		return nil
	}

	err = q.QueryRowxContext(ctx, q.Rebind(`
		INSERT INTO league_groups (name, user_ids, created_at, updated_at) VALUES (?, ?, ?, ?)
		RETURNING id`),
		g.Name, userIDs, now, now,
	).Scan(&g.ID)
	if err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}
	g.CreatedAt, g.UpdatedAt = now, now
	return nil
}

func (r *groupRepository) List(ctx context.Context) ([]models.Group, error) {
	q := r.c.q(ctx)
	var rows []groupRow
	if err := sqlx.SelectContext(ctx, q, &rows, "SELECT id, name, user_ids, created_at, updated_at FROM league_groups ORDER BY id"); err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	groups := make([]models.Group, 0, len(rows))
	for _, row := range rows {
		g := models.Group{ID: row.ID, Name: row.Name, CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt}
		if err := fromJSON(row.UserIDs, &g.UserIDs); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

func (r *groupRepository) Delete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	q := r.c.q(ctx)
	query, args, err := sqlx.In("DELETE FROM league_groups WHERE id IN (?)", ids)
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	if _, err := q.ExecContext(ctx, q.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to delete groups: %w", err)
	}
	return nil
}

package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

var schema = []struct {
	name string
	ddl  string
}{
	{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id {{id}},
			username TEXT NOT NULL,
			telegram_chat_id BIGINT NOT NULL DEFAULT 0,
			coins INTEGER NOT NULL DEFAULT 0,
			experience_points INTEGER NOT NULL DEFAULT 0,
			level INTEGER NOT NULL DEFAULT 1,
			streak INTEGER NOT NULL DEFAULT 0,
			coin_earning_coefficient {{real}} NOT NULL DEFAULT 1,
			experience_earning_coefficient {{real}} NOT NULL DEFAULT 1,
			league_id BIGINT NOT NULL DEFAULT 0,
			created_at {{ts}} NOT NULL,
			updated_at {{ts}} NOT NULL
		)`},
	{"questions", `
		CREATE TABLE IF NOT EXISTS questions (
			id {{id}},
			text TEXT NOT NULL,
			type TEXT NOT NULL,
			options TEXT NOT NULL DEFAULT '[]',
			matching_options TEXT NOT NULL DEFAULT '[]',
			explanation TEXT NOT NULL DEFAULT '',
			hint TEXT NOT NULL DEFAULT '',
			difficulty INTEGER NOT NULL DEFAULT 1,
			created_at {{ts}} NOT NULL
		)`},
	{"lessons", `
		CREATE TABLE IF NOT EXISTS lessons (
			id {{id}},
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			lesson_type TEXT NOT NULL DEFAULT '',
			question_ids TEXT NOT NULL DEFAULT '[]',
			price INTEGER NOT NULL DEFAULT 0,
			base_coins INTEGER NOT NULL DEFAULT 0,
			required_level INTEGER NOT NULL DEFAULT 0,
			created_at {{ts}} NOT NULL
		)`},
	{"question_progress", `
		CREATE TABLE IF NOT EXISTS question_progress (
			id {{id}},
			user_id BIGINT NOT NULL REFERENCES users(id),
			question_id BIGINT NOT NULL REFERENCES questions(id),
			status TEXT NOT NULL,
			repetition_number INTEGER NOT NULL DEFAULT 0,
			ease {{real}} NOT NULL DEFAULT 2.5,
			interval_days INTEGER NOT NULL DEFAULT 1,
			next_review {{ts}} NOT NULL,
			attempts TEXT NOT NULL DEFAULT '[]',
			UNIQUE(user_id, question_id)
		)`},
	{"lesson_progress", `
		CREATE TABLE IF NOT EXISTS lesson_progress (
			id {{id}},
			user_id BIGINT NOT NULL REFERENCES users(id),
			lesson_id BIGINT NOT NULL REFERENCES lessons(id),
			status TEXT NOT NULL,
			opened BOOLEAN NOT NULL DEFAULT FALSE,
			current_question INTEGER NOT NULL DEFAULT 0,
			session_questions TEXT NOT NULL DEFAULT '[]',
			attempts TEXT NOT NULL DEFAULT '[]',
			next_review {{ts}},
			UNIQUE(user_id, lesson_id)
		)`},
	{"daily_experience", `
		CREATE TABLE IF NOT EXISTS daily_experience (
			id {{id}},
			user_id BIGINT NOT NULL REFERENCES users(id),
			date {{ts}} NOT NULL,
			points INTEGER NOT NULL DEFAULT 0,
			UNIQUE(user_id, date)
		)`},
	{"level_history", `
		CREATE TABLE IF NOT EXISTS level_history (
			id {{id}},
			user_id BIGINT NOT NULL REFERENCES users(id),
			level INTEGER NOT NULL,
			achieved_at {{ts}} NOT NULL
		)`},
	{"leagues", `
		CREATE TABLE IF NOT EXISTS leagues (
			id {{id}},
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			level INTEGER NOT NULL,
			group_ids TEXT NOT NULL DEFAULT '[]'
		)`},
	{"groups", `
		CREATE TABLE IF NOT EXISTS league_groups (
			id {{id}},
			name TEXT NOT NULL,
			user_ids TEXT NOT NULL DEFAULT '[]',
			created_at {{ts}} NOT NULL,
			updated_at {{ts}} NOT NULL
		)`},
	{"awards", `
		CREATE TABLE IF NOT EXISTS awards (
			id {{id}},
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			coins INTEGER NOT NULL DEFAULT 0,
			experience_points INTEGER NOT NULL DEFAULT 0,
			criteria_type TEXT NOT NULL,
			criteria_levels TEXT NOT NULL DEFAULT '[]',
			created_at {{ts}} NOT NULL
		)`},
	{"user_awards", `
		CREATE TABLE IF NOT EXISTS user_awards (
			id {{id}},
			user_id BIGINT NOT NULL REFERENCES users(id),
			award_id BIGINT NOT NULL REFERENCES awards(id),
			criteria_type TEXT NOT NULL,
			current_count INTEGER NOT NULL DEFAULT 0,
			level INTEGER NOT NULL DEFAULT 0,
			history TEXT NOT NULL DEFAULT '[]',
			UNIQUE(user_id, award_id, criteria_type)
		)`},
	{"notifications", `
		CREATE TABLE IF NOT EXISTS notifications (
			id {{id}},
			recipient_id BIGINT NOT NULL,
			message TEXT NOT NULL,
			importance TEXT NOT NULL,
			read BOOLEAN NOT NULL DEFAULT FALSE,
			created_at {{ts}} NOT NULL
		)`},
}

func dialect(driverName string) *strings.Replacer {
	if driverName == "postgres" {
		return strings.NewReplacer(
			"{{id}}", "BIGSERIAL PRIMARY KEY",
			"{{ts}}", "TIMESTAMPTZ",
			"{{real}}", "DOUBLE PRECISION",
		)
	}
	return strings.NewReplacer(
		"{{id}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
		"{{ts}}", "TIMESTAMP",
		"{{real}}", "REAL",
	)
}

// Migrate creates the tables that do not exist yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	r := dialect(db.DriverName())
	for _, table := range schema {
		if _, err := db.ExecContext(ctx, r.Replace(table.ddl)); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}
	return nil
}

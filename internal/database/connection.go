package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/example/lingoleague/internal/store"
)

const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

// Connect opens a database of the given type ("sqlite" or "postgres").
// For SQLite the DSN is a file path or ":memory:".
func Connect(dbType, dsn string) (*sqlx.DB, error) {
	switch strings.ToLower(dbType) {
	case TypeSQLite, "sqlite3", "":
		return connectSQLite(dsn)
	case TypePostgres, "postgresql":
		db, err := sqlx.Connect("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return db, nil
	}
	return nil, fmt.Errorf("unsupported database type %q", dbType)
}

func connectSQLite(dsn string) (*sqlx.DB, error) {
	if dsn == "" {
		dsn = filepath.Join("data", "lingoleague.db")
	}
	if !strings.HasPrefix(dsn, ":memory:") && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// SQLite doesn't support multiple writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}

// New returns the repositories backed by db.
func New(db *sqlx.DB) *store.Store {
	c := &conn{db: db}
	return &store.Store{
		Users:            &userRepository{c},
		Questions:        &questionRepository{c},
		Lessons:          &lessonRepository{c},
		QuestionProgress: &questionProgressRepository{c},
		LessonProgress:   &lessonProgressRepository{c},
		DailyExperience:  &dailyExperienceRepository{c},
		Leagues:          &leagueRepository{c},
		Groups:           &groupRepository{c},
		Awards:           &awardRepository{c},
		UserAwards:       &userAwardRepository{c},
		Notifications:    &notificationRepository{c},
		LevelHistory:     &levelHistoryRepository{c},
		Tx:               c,
	}
}

type txKey struct{}

type conn struct {
	db *sqlx.DB
}

// q returns the transaction stored in ctx, or the pool.
func (c *conn) q(ctx context.Context) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return c.db
}

// WithinTx runs fn in a transaction. Nested calls join the outer one.
func (c *conn) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

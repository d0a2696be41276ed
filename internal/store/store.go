// Package store declares the repositories the progression engine reads
// and writes. internal/database implements them on sqlx, and
// internal/store/memory keeps everything in process.
package store

import (
	"context"
	"time"

	"github.com/example/lingoleague/internal/apperr"
	"github.com/example/lingoleague/pkg/models"
)

// ErrNotFound is returned by every repository lookup that matches no row.
var ErrNotFound = apperr.NotFound("record not found")

type Users interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, user *models.User) error
}

type Questions interface {
	Create(ctx context.Context, question *models.Question) error
	GetByID(ctx context.Context, id int64) (*models.Question, error)
}

type Lessons interface {
	// Save inserts the lesson when ID is zero and updates it otherwise.
	Save(ctx context.Context, lesson *models.Lesson) error
	GetByID(ctx context.Context, id int64) (*models.Lesson, error)
	List(ctx context.Context) ([]models.Lesson, error)
}

type QuestionProgress interface {
	Get(ctx context.Context, userID, questionID int64) (*models.QuestionProgress, error)
	ListForQuestions(ctx context.Context, userID int64, questionIDs []int64) ([]models.QuestionProgress, error)
	// Save upserts on (user, question).
	Save(ctx context.Context, progress *models.QuestionProgress) error
}

type LessonProgress interface {
	Get(ctx context.Context, userID, lessonID int64) (*models.LessonProgress, error)
	ListByUser(ctx context.Context, userID int64) ([]models.LessonProgress, error)
	ListByStatus(ctx context.Context, status models.LessonStatus) ([]models.LessonProgress, error)
	// Save upserts on (user, lesson).
	Save(ctx context.Context, progress *models.LessonProgress) error
}

type DailyExperience interface {
	// AddPoints adds to the row for (user, day), creating it when missing.
	AddPoints(ctx context.Context, userID int64, day time.Time, points int) error
	Get(ctx context.Context, userID int64, day time.Time) (*models.DailyExperience, error)
	ListByUser(ctx context.Context, userID int64) ([]models.DailyExperience, error)
	// SumBetween totals points for days in [from, to].
	SumBetween(ctx context.Context, userID int64, from, to time.Time) (int, error)
}

type Leagues interface {
	Create(ctx context.Context, league *models.League) error
	GetByID(ctx context.Context, id int64) (*models.League, error)
	// List returns every league ordered by ascending level.
	List(ctx context.Context) ([]models.League, error)
	Update(ctx context.Context, league *models.League) error
}

type Groups interface {
	// Save inserts the group when ID is zero and updates it otherwise.
	Save(ctx context.Context, group *models.Group) error
	List(ctx context.Context) ([]models.Group, error)
	Delete(ctx context.Context, ids []int64) error
}

type Awards interface {
	Create(ctx context.Context, award *models.Award) error
	GetByCriteriaType(ctx context.Context, criteriaType models.CriteriaType) (*models.Award, error)
}

type UserAwards interface {
	Get(ctx context.Context, userID, awardID int64, criteriaType models.CriteriaType) (*models.UserAward, error)
	ListByUser(ctx context.Context, userID int64) ([]models.UserAward, error)
	Save(ctx context.Context, progress *models.UserAward) error
}

type Notifications interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByUser(ctx context.Context, userID int64, unreadOnly bool) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID int64) error
	MarkAllRead(ctx context.Context, userID int64) error
}

type LevelHistory interface {
	Create(ctx context.Context, entry *models.LevelHistory) error
	ListByUser(ctx context.Context, userID int64) ([]models.LevelHistory, error)
}

// Transactor runs fn so that every repository call made with the context
// it receives commits or rolls back together.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store bundles all repositories of one backend.
type Store struct {
	Users            Users
	Questions        Questions
	Lessons          Lessons
	QuestionProgress QuestionProgress
	LessonProgress   LessonProgress
	DailyExperience  DailyExperience
	Leagues          Leagues
	Groups           Groups
	Awards           Awards
	UserAwards       UserAwards
	Notifications    Notifications
	LevelHistory     LevelHistory
	Tx               Transactor
}

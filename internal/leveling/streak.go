package leveling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/lingoleague/internal/calendar"
	"github.com/example/lingoleague/internal/pkg/logger"
	"github.com/example/lingoleague/internal/store"
	"github.com/example/lingoleague/pkg/models"
)

// DefaultStreakMinimum is the daily experience that keeps a streak alive.
const DefaultStreakMinimum = 100

// StreakJob updates every user's streak from the ledger row of the day
// that just ended.
type StreakJob struct {
	users   store.Users
	daily   store.DailyExperience
	engine  *Engine
	awards  AwardChecker
	minimum int
	log     *logger.Logger
	now     func() time.Time
}

// NewStreakJob creates the job. awards may be nil.
func NewStreakJob(st *store.Store, engine *Engine, awards AwardChecker, minimum int, log *logger.Logger) *StreakJob {
	if minimum <= 0 {
		minimum = DefaultStreakMinimum
	}
	return &StreakJob{
		users:   st.Users,
		daily:   st.DailyExperience,
		engine:  engine,
		awards:  awards,
		minimum: minimum,
		log:     log,
		now:     time.Now,
	}
}

// WithClock replaces the time source.
func (j *StreakJob) WithClock(now func() time.Time) *StreakJob {
	j.now = now
	return j
}

// Run processes all users. Per-user failures are logged and skipped.
func (j *StreakJob) Run(ctx context.Context) error {
	users, err := j.users.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}
	yesterday := calendar.AddDays(j.now(), -1)

	updated := 0
	for i := range users {
		changed, err := j.updateUser(ctx, &users[i], yesterday)
		if err != nil {
			j.log.Error("failed to update streak", "user_id", users[i].ID, "error", err)
			continue
		}
		if changed {
			updated++
		}
	}
	j.log.Info("streaks updated", "users", len(users), "changed", updated)
	return nil
}

func (j *StreakJob) updateUser(ctx context.Context, user *models.User, day time.Time) (bool, error) {
	points := 0
	row, err := j.daily.Get(ctx, user.ID, day)
	switch {
	case err == nil:
		points = row.Points
	case errors.Is(err, store.ErrNotFound):
	default:
		return false, fmt.Errorf("failed to get daily experience: %w", err)
	}

	streak := 0
	if points >= j.minimum {
		streak = user.Streak + 1
	}
	if streak == user.Streak {
		return false, nil
	}
	increased := streak > user.Streak
	user.Streak = streak

	if err := j.engine.RecomputeCoefficients(ctx, user); err != nil {
		return false, err
	}
	if err := j.users.Update(ctx, user); err != nil {
		return false, fmt.Errorf("failed to update user: %w", err)
	}

	if increased && j.awards != nil {
		if err := j.awards.CheckAward(ctx, models.CriteriaStreakDays, user.ID, 1); err != nil {
			return true, fmt.Errorf("failed to check streak award: %w", err)
		}
	}
	return true, nil
}

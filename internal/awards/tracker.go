// Package awards advances per-user award counters and grants award levels.
package awards

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/lingoleague/internal/apperr"
	"github.com/example/lingoleague/internal/leveling"
	"github.com/example/lingoleague/internal/notify"
	"github.com/example/lingoleague/internal/pkg/logger"
	"github.com/example/lingoleague/internal/store"
	"github.com/example/lingoleague/pkg/models"
)

// ErrAwardNotFound is returned when no catalog award tracks a criteria type.
var ErrAwardNotFound = apperr.NotFound("award not found")

// Tracker implements leveling.AwardChecker.
type Tracker struct {
	users      store.Users
	awards     store.Awards
	userAwards store.UserAwards
	engine     *leveling.Engine
	sink       notify.Sink
	log        *logger.Logger
	now        func() time.Time
}

var _ leveling.AwardChecker = (*Tracker)(nil)

func NewTracker(st *store.Store, engine *leveling.Engine, sink notify.Sink, log *logger.Logger) *Tracker {
	if sink == nil {
		sink = notify.Discard{}
	}
	return &Tracker{
		users:      st.Users,
		awards:     st.Awards,
		userAwards: st.UserAwards,
		engine:     engine,
		sink:       sink,
		log:        log,
		now:        time.Now,
	}
}

// WithClock replaces the time source.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// CheckAward adds delta to the user's counter for the award tracking
// criteria and grants at most one level. Level 0 is a virtual level with
// threshold 0, so the first real level is reached once the counter hits
// its target.
func (t *Tracker) CheckAward(ctx context.Context, criteria models.CriteriaType, userID int64, delta int) error {
	award, err := t.awards.GetByCriteriaType(ctx, criteria)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: criteria %s", ErrAwardNotFound, criteria)
		}
		return fmt.Errorf("failed to get award for %s: %w", criteria, err)
	}

	progress, err := t.userAwards.Get(ctx, userID, award.ID, criteria)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("failed to get award progress: %w", err)
		}
		progress = &models.UserAward{UserID: userID, AwardID: award.ID, CriteriaType: criteria}
	}
	progress.CurrentCount += delta

	levelUp := reachedNextLevel(award, progress)
	if levelUp {
		progress.Level++
		progress.History = append(progress.History, models.AwardAchievement{Level: progress.Level, AchievedAt: t.now()})
	}
	if err := t.userAwards.Save(ctx, progress); err != nil {
		return fmt.Errorf("failed to save award progress: %w", err)
	}
	if !levelUp {
		return nil
	}
	return t.grant(ctx, award, progress)
}

func reachedNextLevel(award *models.Award, progress *models.UserAward) bool {
	currentTarget := 0
	if progress.Level > 0 {
		current, ok := award.LevelByNumber(progress.Level)
		if !ok {
			return false
		}
		currentTarget = current.TargetQuantity
	}
	if progress.CurrentCount < currentTarget {
		return false
	}
	next, ok := award.LevelByNumber(progress.Level + 1)
	return ok && progress.CurrentCount >= next.TargetQuantity
}

func (t *Tracker) grant(ctx context.Context, award *models.Award, progress *models.UserAward) error {
	user, err := t.users.GetByID(ctx, progress.UserID)
	if err != nil {
		return fmt.Errorf("failed to get user %d: %w", progress.UserID, err)
	}

	if award.ExperiencePoints > 0 {
		if _, err := t.engine.AssignEarnings(ctx, user, award.ExperiencePoints); err != nil {
			return err
		}
	}
	if award.Coins > 0 {
		t.engine.IncreaseCoins(ctx, user, award.Coins)
	}
	if err := t.engine.RecomputeCoefficients(ctx, user); err != nil {
		return err
	}
	if err := t.users.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	msg := fmt.Sprintf("Award %q reached level %d.", award.Name, progress.Level)
	if err := t.sink.Notify(ctx, user.ID, msg, models.ImportanceLow); err != nil {
		t.log.Warn("failed to notify award level", "user_id", user.ID, "award_id", award.ID, "error", err)
	}
	t.log.Info("award level granted", "user_id", user.ID, "award_id", award.ID, "level", progress.Level)
	return nil
}

// Package leveling converts raw points into credited coins and experience,
// keeps the level ladder and the daily experience ledger, and maintains
// the per-user earning coefficients.
package leveling

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/example/lingoleague/internal/notify"
	"github.com/example/lingoleague/internal/store"
	"github.com/example/lingoleague/pkg/models"
)

// DefaultThresholds are the minimum experience for levels 1..5.
var DefaultThresholds = []int{0, 100, 250, 500, 1000}

const (
	levelWeight  = 0.05
	leagueWeight = 0.05
	streakWeight = 0.2
	awardWeight  = 0.005
)

// AwardChecker advances award counters. Implemented by awards.Tracker.
type AwardChecker interface {
	CheckAward(ctx context.Context, criteria models.CriteriaType, userID int64, delta int) error
}

// Engine mutates the user it is handed; callers persist the user.
type Engine struct {
	daily      store.DailyExperience
	history    store.LevelHistory
	leagues    store.Leagues
	userAwards store.UserAwards
	sink       notify.Sink
	thresholds []int
	now        func() time.Time
}

// NewEngine builds an engine. Empty thresholds fall back to DefaultThresholds.
func NewEngine(st *store.Store, sink notify.Sink, thresholds []int) *Engine {
	if len(thresholds) == 0 {
		thresholds = DefaultThresholds
	}
	sorted := append([]int(nil), thresholds...)
	sort.Ints(sorted)
	if sink == nil {
		sink = notify.Discard{}
	}
	return &Engine{
		daily:      st.DailyExperience,
		history:    st.LevelHistory,
		leagues:    st.Leagues,
		userAwards: st.UserAwards,
		sink:       sink,
		thresholds: sorted,
		now:        time.Now,
	}
}

// WithClock replaces the time source.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// CalculateLevel maps experience onto the level ladder. Level 1 starts at
// the first threshold; experience below it still counts as level 1.
func (e *Engine) CalculateLevel(experience int) int {
	level := 0
	for _, t := range e.thresholds {
		if experience >= t {
			level++
		}
	}
	if level < 1 {
		level = 1
	}
	return level
}

// AssignEarnings credits round(raw * ExperienceEarningCoefficient)
// experience, books it on today's ledger row and applies level changes.
// It returns the credited amount.
func (e *Engine) AssignEarnings(ctx context.Context, user *models.User, rawPoints int) (int, error) {
	credited := applyCoefficient(rawPoints, user.ExperienceEarningCoefficient)
	if credited == 0 {
		return 0, nil
	}
	user.ExperiencePoints += credited

	if err := e.daily.AddPoints(ctx, user.ID, e.now(), credited); err != nil {
		return credited, fmt.Errorf("failed to update daily experience: %w", err)
	}

	newLevel := e.CalculateLevel(user.ExperiencePoints)
	if newLevel == user.Level {
		return credited, nil
	}
	if err := e.changeLevel(ctx, user, newLevel); err != nil {
		return credited, err
	}
	return credited, nil
}

// IncreaseCoins credits round(raw * CoinEarningCoefficient) coins and
// returns the credited amount.
func (e *Engine) IncreaseCoins(_ context.Context, user *models.User, rawAmount int) int {
	credited := applyCoefficient(rawAmount, user.CoinEarningCoefficient)
	user.Coins += credited
	return credited
}

func (e *Engine) changeLevel(ctx context.Context, user *models.User, newLevel int) error {
	previous := user.Level
	user.Level = newLevel

	if newLevel > previous {
		at := e.now()
		for level := previous + 1; level <= newLevel; level++ {
			entry := &models.LevelHistory{UserID: user.ID, Level: level, AchievedAt: at}
			if err := e.history.Create(ctx, entry); err != nil {
				return fmt.Errorf("failed to record level history: %w", err)
			}
		}
		msg := fmt.Sprintf("Congratulations! You reached level %d.", newLevel)
		if err := e.sink.Notify(ctx, user.ID, msg, models.ImportanceHigh); err != nil {
			return fmt.Errorf("failed to notify level change: %w", err)
		}
	}

	return e.RecomputeCoefficients(ctx, user)
}

// RecomputeCoefficients sets both earning coefficients from the user's
// level, league level, streak and award levels.
func (e *Engine) RecomputeCoefficients(ctx context.Context, user *models.User) error {
	leagueLevel := 0
	if user.LeagueID != 0 {
		league, err := e.leagues.GetByID(ctx, user.LeagueID)
		switch {
		case err == nil:
			leagueLevel = league.Level
		case errors.Is(err, store.ErrNotFound):
		default:
			return fmt.Errorf("failed to get league %d: %w", user.LeagueID, err)
		}
	}

	awards, err := e.userAwards.ListByUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to list user awards: %w", err)
	}
	awardLevels := 0
	for _, ua := range awards {
		awardLevels += ua.Level
	}

	coefficient := Coefficient(user.Level, leagueLevel, user.Streak, awardLevels)
	user.CoinEarningCoefficient = coefficient
	user.ExperienceEarningCoefficient = coefficient
	return nil
}

// Coefficient is 1 + level*0.05 + leagueLevel*0.05 + streak*0.2 + awardLevels*0.005.
func Coefficient(level, leagueLevel, streak, awardLevels int) float64 {
	c := 1.0 +
		float64(level)*levelWeight +
		float64(leagueLevel)*leagueWeight +
		float64(streak)*streakWeight +
		float64(awardLevels)*awardWeight
	return math.Round(c*1e6) / 1e6
}

func applyCoefficient(raw int, coefficient float64) int {
	if coefficient == 0 {
		coefficient = 1
	}
	return int(math.Round(float64(raw) * coefficient))
}

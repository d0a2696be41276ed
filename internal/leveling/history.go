package leveling

import (
	"context"
	"fmt"

	"github.com/example/lingoleague/internal/calendar"
	"github.com/example/lingoleague/pkg/models"
)

// History is what a user has earned so far, oldest entries first.
type History struct {
	Levels []models.LevelHistory
	Daily  []models.DailyExperience
	// ThisWeek sums the ledger from Monday of the current week, the number
	// the next league rotation will rank.
	ThisWeek int
}

// History collects the level ladder and the daily experience ledger of a user.
func (e *Engine) History(ctx context.Context, userID int64) (*History, error) {
	levels, err := e.history.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	daily, err := e.daily.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := e.now()
	week, err := e.daily.SumBetween(ctx, userID, calendar.StartOfWeek(now), now)
	if err != nil {
		return nil, fmt.Errorf("failed to sum weekly experience: %w", err)
	}
	return &History{Levels: levels, Daily: daily, ThisWeek: week}, nil
}

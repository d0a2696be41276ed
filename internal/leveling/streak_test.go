package leveling

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/lingoleague/internal/pkg/logger"
	"github.com/example/lingoleague/internal/store/memory"
	"github.com/example/lingoleague/pkg/models"
)

type recordingChecker struct {
	calls []int64
}

func (r *recordingChecker) CheckAward(_ context.Context, criteria models.CriteriaType, userID int64, delta int) error {
	if criteria == models.CriteriaStreakDays && delta == 1 {
		r.calls = append(r.calls, userID)
	}
	return nil
}

func TestStreakJob(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	engine := NewEngine(st, nil, nil)
	checker := &recordingChecker{}
	now := time.Date(2024, 5, 9, 0, 5, 0, 0, time.UTC)
	yesterday := time.Date(2024, 5, 8, 18, 0, 0, 0, time.UTC)

	active := models.NewUser("active")
	active.Streak = 2
	lazy := models.NewUser("lazy")
	lazy.Streak = 4
	idle := models.NewUser("idle")
	for _, u := range []*models.User{active, lazy, idle} {
		require.NoError(t, st.Users.Create(ctx, u))
	}
	require.NoError(t, st.DailyExperience.AddPoints(ctx, active.ID, yesterday, 120))
	require.NoError(t, st.DailyExperience.AddPoints(ctx, lazy.ID, yesterday, 99))
	// today's points do not count for the day that just ended
	require.NoError(t, st.DailyExperience.AddPoints(ctx, idle.ID, now, 500))

	job := NewStreakJob(st, engine, checker, 0, logger.Nop()).WithClock(func() time.Time { return now })
	require.NoError(t, job.Run(ctx))

	got, err := st.Users.GetByID(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Streak)
	assert.InDelta(t, Coefficient(1, 0, 3, 0), got.CoinEarningCoefficient, 1e-9)

	got, err = st.Users.GetByID(ctx, lazy.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Streak)
	assert.InDelta(t, Coefficient(1, 0, 0, 0), got.CoinEarningCoefficient, 1e-9)

	got, err = st.Users.GetByID(ctx, idle.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Streak)

	assert.Equal(t, []int64{active.ID}, checker.calls)
}

package awards

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/lingoleague/internal/apperr"
	"github.com/example/lingoleague/internal/leveling"
	"github.com/example/lingoleague/internal/notify"
	"github.com/example/lingoleague/internal/pkg/logger"
	"github.com/example/lingoleague/internal/store"
	"github.com/example/lingoleague/internal/store/memory"
	"github.com/example/lingoleague/pkg/models"
)

var fixedNow = time.Date(2024, 5, 8, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*Tracker, *store.Store, *models.User) {
	t.Helper()
	ctx := context.Background()
	st := memory.New()
	sink := notify.NewStoreSink(st.Notifications)
	clock := func() time.Time { return fixedNow }
	engine := leveling.NewEngine(st, sink, nil).WithClock(clock)
	tracker := NewTracker(st, engine, sink, logger.Nop()).WithClock(clock)

	award := &models.Award{
		Name:             "Chatterbox",
		Coins:            20,
		ExperiencePoints: 10,
		Criteria: models.Criteria{
			Type:   models.CriteriaQuestionsAnswered,
			Levels: []models.AwardLevel{{Level: 1, TargetQuantity: 5}, {Level: 2, TargetQuantity: 15}},
		},
	}
	require.NoError(t, st.Awards.Create(ctx, award))

	user := models.NewUser("anna")
	require.NoError(t, st.Users.Create(ctx, user))
	return tracker, st, user
}

func progressOf(t *testing.T, st *store.Store, userID int64) models.UserAward {
	t.Helper()
	list, err := st.UserAwards.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	return list[0]
}

func TestCheckAwardLevelProgression(t *testing.T) {
	ctx := context.Background()
	tracker, st, user := setup(t)

	for i := 0; i < 4; i++ {
		require.NoError(t, tracker.CheckAward(ctx, models.CriteriaQuestionsAnswered, user.ID, 1))
	}
	p := progressOf(t, st, user.ID)
	assert.Equal(t, 4, p.CurrentCount)
	assert.Equal(t, 0, p.Level)

	require.NoError(t, tracker.CheckAward(ctx, models.CriteriaQuestionsAnswered, user.ID, 1))
	p = progressOf(t, st, user.ID)
	assert.Equal(t, 5, p.CurrentCount)
	assert.Equal(t, 1, p.Level)
	require.Len(t, p.History, 1)
	assert.Equal(t, fixedNow, p.History[0].AchievedAt)

	got, err := st.Users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, got.Coins)
	assert.Equal(t, 10, got.ExperiencePoints)
	// level 1 plus one award level
	assert.InDelta(t, leveling.Coefficient(1, 0, 0, 1), got.CoinEarningCoefficient, 1e-9)

	notes, err := st.Notifications.ListByUser(ctx, user.ID, false)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, models.ImportanceLow, notes[0].Importance)

	for i := 0; i < 9; i++ {
		require.NoError(t, tracker.CheckAward(ctx, models.CriteriaQuestionsAnswered, user.ID, 1))
	}
	assert.Equal(t, 1, progressOf(t, st, user.ID).Level)

	require.NoError(t, tracker.CheckAward(ctx, models.CriteriaQuestionsAnswered, user.ID, 1))
	p = progressOf(t, st, user.ID)
	assert.Equal(t, 15, p.CurrentCount)
	assert.Equal(t, 2, p.Level)
	assert.Len(t, p.History, 2)

	// no level 3 exists
	require.NoError(t, tracker.CheckAward(ctx, models.CriteriaQuestionsAnswered, user.ID, 100))
	assert.Equal(t, 2, progressOf(t, st, user.ID).Level)
}

func TestCheckAwardGrantsOneLevelPerCheck(t *testing.T) {
	ctx := context.Background()
	tracker, st, user := setup(t)

	require.NoError(t, tracker.CheckAward(ctx, models.CriteriaQuestionsAnswered, user.ID, 20))
	assert.Equal(t, 1, progressOf(t, st, user.ID).Level)

	require.NoError(t, tracker.CheckAward(ctx, models.CriteriaQuestionsAnswered, user.ID, 0))
	assert.Equal(t, 2, progressOf(t, st, user.ID).Level)
}

func TestCheckAwardNegativeDelta(t *testing.T) {
	ctx := context.Background()
	tracker, st, user := setup(t)

	require.NoError(t, tracker.CheckAward(ctx, models.CriteriaQuestionsAnswered, user.ID, -1))
	p := progressOf(t, st, user.ID)
	assert.Equal(t, -1, p.CurrentCount)
	assert.Equal(t, 0, p.Level)
}

func TestCheckAwardMissingCatalogEntry(t *testing.T) {
	tracker, _, user := setup(t)

	err := tracker.CheckAward(context.Background(), models.CriteriaNextLeague, user.ID, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAwardNotFound))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

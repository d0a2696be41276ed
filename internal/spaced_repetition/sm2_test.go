package spaced_repetition

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/lingoleague/internal/apperr"
	"github.com/example/lingoleague/pkg/models"
)

var fixedNow = time.Date(2024, 5, 8, 15, 30, 0, 0, time.UTC)

func newTestSM2() *SM2 {
	return NewSM2().WithClock(func() time.Time { return fixedNow })
}

func TestFirstCorrectAnswerSchedulesTomorrow(t *testing.T) {
	sm := newTestSM2()
	p := models.NewQuestionProgress(1, 1, fixedNow)

	sm.ScheduleReview(p, true, 1)

	assert.Equal(t, 1, p.Interval)
	assert.Equal(t, 1, p.RepetitionNumber)
	assert.InDelta(t, 2.7, p.Ease, 1e-9)
	assert.Equal(t, models.ReviewReview, p.Status)
	assert.Equal(t, time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC), p.NextReview)
}

func TestIntervalGrowsWithEase(t *testing.T) {
	sm := newTestSM2()
	p := &models.QuestionProgress{Status: models.ReviewReview, RepetitionNumber: 2, Ease: 2.5, Interval: 3}

	sm.ScheduleReview(p, true, 1)

	// ceil(3 * 2.5) with the ease in effect before this answer
	assert.Equal(t, 8, p.Interval)
	assert.Equal(t, 3, p.RepetitionNumber)
	assert.Equal(t, time.Date(2024, 5, 16, 0, 0, 0, 0, time.UTC), p.NextReview)
}

func TestTypeModifierScalesInterval(t *testing.T) {
	sm := newTestSM2()
	sm.TypeModifiers[models.QuestionCard] = 0.5
	p := &models.QuestionProgress{RepetitionNumber: 3, Ease: 2.0, Interval: 5}

	sm.ScheduleReview(p, true, sm.TypeModifier(models.QuestionCard))

	assert.Equal(t, 5, p.Interval)
	assert.Equal(t, 1.0, sm.TypeModifier(models.QuestionMatching))
}

func TestLongIntervalMarksMastered(t *testing.T) {
	sm := newTestSM2()
	p := &models.QuestionProgress{RepetitionNumber: 4, Ease: 3.0, Interval: 8}

	sm.ScheduleReview(p, true, 1)

	assert.Equal(t, 24, p.Interval)
	assert.Equal(t, models.ReviewMastered, p.Status)
}

func TestIncorrectAnswerResets(t *testing.T) {
	sm := newTestSM2()
	p := &models.QuestionProgress{Status: models.ReviewMastered, RepetitionNumber: 6, Ease: 2.5, Interval: 40}

	sm.ScheduleReview(p, false, 1)

	assert.Equal(t, 0, p.RepetitionNumber)
	assert.Equal(t, 0, p.Interval)
	assert.InDelta(t, 2.3, p.Ease, 1e-9)
	assert.Equal(t, models.ReviewError, p.Status)
	assert.Equal(t, time.Date(2024, 5, 8, 0, 0, 0, 0, time.UTC), p.NextReview)
}

func TestEaseStaysWithinBounds(t *testing.T) {
	sm := newTestSM2()
	rnd := rand.New(rand.NewSource(42))
	p := models.NewQuestionProgress(1, 1, fixedNow)

	for i := 0; i < 500; i++ {
		sm.ScheduleReview(p, rnd.Intn(3) > 0, 1)
		require.GreaterOrEqual(t, p.Ease, 1.3)
		require.LessOrEqual(t, p.Ease, 4.0)
		require.LessOrEqual(t, p.Interval, sm.MaxInterval)
	}

	low := &models.QuestionProgress{Ease: 1.35}
	sm.ScheduleReview(low, false, 1)
	assert.Equal(t, 1.3, low.Ease)

	high := &models.QuestionProgress{Ease: 3.95, RepetitionNumber: 1, Interval: 1}
	sm.ScheduleReview(high, true, 1)
	assert.Equal(t, 4.0, high.Ease)
}

func TestIntervalIsCappedAtMaxInterval(t *testing.T) {
	sm := newTestSM2()
	p := &models.QuestionProgress{Status: models.ReviewMastered, RepetitionNumber: 8, Ease: 4.0, Interval: 200}

	sm.ScheduleReview(p, true, 1)

	assert.Equal(t, 365, p.Interval)
	assert.Equal(t, models.ReviewMastered, p.Status)
	assert.Equal(t, time.Date(2025, 5, 8, 0, 0, 0, 0, time.UTC), p.NextReview)

	// a year of correct answers never pushes it further out
	for i := 0; i < 50; i++ {
		sm.ScheduleReview(p, true, 1)
	}
	assert.Equal(t, 365, p.Interval)

	sm.MaxInterval = 30
	sm.ScheduleReview(p, true, 1)
	assert.Equal(t, 30, p.Interval)
}

func TestDayLock(t *testing.T) {
	sm := newTestSM2()
	p := models.NewQuestionProgress(1, 1, fixedNow)
	require.NoError(t, sm.CheckDayLock(p))

	sm.ScheduleReview(p, true, 1)
	err := sm.CheckDayLock(p)
	assert.ErrorIs(t, err, ErrReviewedToday)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))

	sm.ScheduleReview(p, false, 1)
	assert.NoError(t, sm.CheckDayLock(p), "an incorrect answer is reviewable again the same day")
}

package session

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/lingoleague/internal/store/memory"
	"github.com/example/lingoleague/pkg/models"
)

var now = time.Date(2024, 5, 8, 10, 0, 0, 0, time.UTC)

func progressFor(id int64, status models.ReviewStatus, next time.Time) models.QuestionProgress {
	return models.QuestionProgress{UserID: 1, QuestionID: id, Status: status, NextReview: next}
}

func bucketOf(id int64) int {
	switch {
	case id <= 3:
		return 0
	case id <= 6:
		return 1
	default:
		return 2
	}
}

func TestComposeOrdersBuckets(t *testing.T) {
	yesterday := now.Add(-24 * time.Hour)
	tomorrow := now.Add(24 * time.Hour)
	questions := []int64{10, 4, 1, 9, 5, 2, 8, 6, 3, 7, 11}
	progress := []models.QuestionProgress{
		// error bucket; error rows are also due, dedupe keeps the first slot
		progressFor(1, models.ReviewError, calendarToday()),
		progressFor(2, models.ReviewError, calendarToday()),
		progressFor(3, models.ReviewError, calendarToday()),
		progressFor(4, models.ReviewReview, yesterday),
		progressFor(5, models.ReviewMastered, yesterday),
		progressFor(6, models.ReviewReview, yesterday),
		// reviewed and locked until tomorrow
		progressFor(11, models.ReviewReview, tomorrow),
	}

	for seed := int64(0); seed < 20; seed++ {
		got := Compose(questions, progress, now, 0, rand.New(rand.NewSource(seed)))

		require.Len(t, got, 10)
		assert.NotContains(t, got, int64(11))
		seen := map[int64]bool{}
		for i, id := range got {
			require.False(t, seen[id], "duplicate id %d", id)
			seen[id] = true
			if i > 0 {
				require.LessOrEqual(t, bucketOf(got[i-1]), bucketOf(id), "bucket order broken: %v", got)
			}
		}
	}
}

func calendarToday() time.Time {
	return time.Date(2024, 5, 8, 0, 0, 0, 0, time.UTC)
}

func TestComposeTruncates(t *testing.T) {
	questions := []int64{1, 2, 3, 4, 5}
	progress := []models.QuestionProgress{progressFor(5, models.ReviewError, calendarToday())}

	got := Compose(questions, progress, now, 3, rand.New(rand.NewSource(7)))

	require.Len(t, got, 3)
	assert.Equal(t, int64(5), got[0])
}

func TestComposeIsDeterministicForSeed(t *testing.T) {
	questions := []int64{1, 2, 3, 4, 5, 6, 7, 8}
	a := Compose(questions, nil, now, 0, rand.New(rand.NewSource(99)))
	b := Compose(questions, nil, now, 0, rand.New(rand.NewSource(99)))
	assert.Equal(t, a, b)
	assert.ElementsMatch(t, questions, a)
}

func TestComposeNothingDue(t *testing.T) {
	tomorrow := now.Add(24 * time.Hour)
	progress := []models.QuestionProgress{
		progressFor(1, models.ReviewReview, tomorrow),
		progressFor(2, models.ReviewMastered, tomorrow),
	}
	got := Compose([]int64{1, 2}, progress, now, 10, rand.New(rand.NewSource(1)))
	assert.Empty(t, got)
}

func TestBuildSessionFromStore(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	lesson := &models.Lesson{Name: "Past simple", QuestionIDs: []int64{101, 102, 103}}
	require.NoError(t, st.Lessons.Save(ctx, lesson))
	require.NoError(t, st.QuestionProgress.Save(ctx, &models.QuestionProgress{
		UserID: 1, QuestionID: 102, Status: models.ReviewError, NextReview: calendarToday(),
	}))

	composer := NewComposer(st.Lessons, st.QuestionProgress, rand.New(rand.NewSource(3))).
		WithClock(func() time.Time { return now })

	got, err := composer.BuildSession(ctx, 1, lesson.ID, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(102), got[0])

	_, err = composer.BuildSession(ctx, 1, 9999, 2)
	assert.Error(t, err)
}

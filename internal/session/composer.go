// Package session selects the questions of one lesson attempt.
package session

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/example/lingoleague/internal/store"
	"github.com/example/lingoleague/pkg/models"
)

// Composer builds ordered question sessions: questions answered wrongly
// first, then questions due for review, then questions never attempted.
type Composer struct {
	lessons  store.Lessons
	progress store.QuestionProgress
	now      func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewComposer creates a composer drawing shuffles from rnd.
func NewComposer(lessons store.Lessons, progress store.QuestionProgress, rnd *rand.Rand) *Composer {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Composer{
		lessons:  lessons,
		progress: progress,
		now:      time.Now,
		rnd:      rnd,
	}
}

// WithClock replaces the time source.
func (c *Composer) WithClock(now func() time.Time) *Composer {
	c.now = now
	return c
}

// BuildSession returns up to desiredCount question IDs of the lesson for the user.
// An empty result means nothing is due yet.
func (c *Composer) BuildSession(ctx context.Context, userID, lessonID int64, desiredCount int) ([]int64, error) {
	lesson, err := c.lessons.GetByID(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lesson %d: %w", lessonID, err)
	}
	return c.BuildForLesson(ctx, userID, lesson, desiredCount)
}

// BuildForLesson is BuildSession for an already loaded lesson.
func (c *Composer) BuildForLesson(ctx context.Context, userID int64, lesson *models.Lesson, desiredCount int) ([]int64, error) {
	progress, err := c.progress.ListForQuestions(ctx, userID, lesson.QuestionIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get question progress: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return Compose(lesson.QuestionIDs, progress, c.now(), desiredCount, c.rnd), nil
}

// Compose orders questionIDs into error, due and new buckets, shuffles
// each bucket, removes duplicates keeping the first occurrence and
// truncates to desiredCount. A non-positive desiredCount keeps everything.
func Compose(questionIDs []int64, progress []models.QuestionProgress, now time.Time, desiredCount int, rnd *rand.Rand) []int64 {
	byQuestion := make(map[int64]models.QuestionProgress, len(progress))
	for _, p := range progress {
		byQuestion[p.QuestionID] = p
	}

	var errored, due, fresh []int64
	for _, id := range questionIDs {
		p, seen := byQuestion[id]
		if !seen {
			fresh = append(fresh, id)
			continue
		}
		if p.Status == models.ReviewError {
			errored = append(errored, id)
		}
		if p.NextReview.Before(now) {
			due = append(due, id)
		}
	}

	ordered := make([]int64, 0, len(questionIDs))
	for _, bucket := range [][]int64{errored, due, fresh} {
		shuffle(rnd, bucket)
		ordered = append(ordered, bucket...)
	}

	result := dedupe(ordered)
	if desiredCount > 0 && len(result) > desiredCount {
		result = result[:desiredCount]
	}
	return result
}

func shuffle(rnd *rand.Rand, ids []int64) {
	rnd.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

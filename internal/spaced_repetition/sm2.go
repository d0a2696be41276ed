package spaced_repetition

import (
	"math"
	"time"

	"github.com/example/lingoleague/internal/apperr"
	"github.com/example/lingoleague/internal/calendar"
	"github.com/example/lingoleague/pkg/models"
)

// ErrReviewedToday is returned when a question is still locked until its next review day.
var ErrReviewedToday = apperr.InvalidState("question already reviewed today, come back tomorrow")

// SM2 implements a SuperMemo-2 variant driven by a binary correct/incorrect signal
type SM2 struct {
	// Ease bounds
	MinEase float64
	MaxEase float64
	// Ease change per answer
	EaseStep float64
	// Intervals above this many days mark the question as mastered
	MasteredAfter int
	// Upper bound for the review interval in days
	MaxInterval int
	// Per question type interval multipliers; missing types use 1
	TypeModifiers map[models.QuestionType]float64

	now func() time.Time
}

// NewSM2 creates a new SM2 instance with default settings
func NewSM2() *SM2 {
	return &SM2{
		MinEase:       1.3,
		MaxEase:       4.0,
		EaseStep:      0.2,
		MasteredAfter: 21,
		MaxInterval:   365,
		TypeModifiers: map[models.QuestionType]float64{},
		now:           time.Now,
	}
}

// WithClock replaces the time source.
func (sm *SM2) WithClock(now func() time.Time) *SM2 {
	sm.now = now
	return sm
}

// TypeModifier returns the interval multiplier for a question type.
func (sm *SM2) TypeModifier(t models.QuestionType) float64 {
	if m, ok := sm.TypeModifiers[t]; ok && m > 0 {
		return m
	}
	return 1
}

// CheckDayLock rejects progress whose next review is still ahead.
func (sm *SM2) CheckDayLock(progress *models.QuestionProgress) error {
	if progress.NextReview.After(sm.now()) {
		return ErrReviewedToday
	}
	return nil
}

// ScheduleReview updates progress in place after an answer.
func (sm *SM2) ScheduleReview(progress *models.QuestionProgress, wasCorrect bool, typeModifier float64) {
	if typeModifier <= 0 {
		typeModifier = 1
	}

	if wasCorrect {
		var nextInterval int
		if progress.RepetitionNumber == 0 {
			nextInterval = 1
		} else {
			nextInterval = int(math.Ceil(float64(progress.Interval) * progress.Ease * typeModifier))
		}
		if sm.MaxInterval > 0 && nextInterval > sm.MaxInterval {
			nextInterval = sm.MaxInterval
		}

		progress.Ease += sm.EaseStep
		progress.RepetitionNumber++
		progress.Interval = nextInterval
		if nextInterval > sm.MasteredAfter {
			progress.Status = models.ReviewMastered
		} else {
			progress.Status = models.ReviewReview
		}
	} else {
		// Incorrect response - start over and review again today
		progress.Ease -= sm.EaseStep
		progress.RepetitionNumber = 0
		progress.Interval = 0
		progress.Status = models.ReviewError
	}

	progress.Ease = sm.clampEase(progress.Ease)
	progress.NextReview = calendar.AddDays(sm.now(), progress.Interval)
}

func (sm *SM2) clampEase(ease float64) float64 {
	// float drift from repeated ±0.2 steps
	ease = math.Round(ease*1e6) / 1e6
	if ease < sm.MinEase {
		return sm.MinEase
	}
	if ease > sm.MaxEase {
		return sm.MaxEase
	}
	return ease
}

// IsDue reports whether progress should be reviewed at now.
func IsDue(progress *models.QuestionProgress, now time.Time) bool {
	return progress.NextReview.Before(now)
}

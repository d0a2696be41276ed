package models

import "time"

// LessonStatus is the lifecycle state of a lesson for a user
type LessonStatus string

const (
	LessonNotStarted LessonStatus = "notStarted"
	LessonInProgress LessonStatus = "inProgress"
	LessonCompleted  LessonStatus = "completed"
	LessonNeedReview LessonStatus = "needReview"
)

// LessonAttempt summarizes one completed pass through a lesson
type LessonAttempt struct {
	Timestamp              time.Time `json:"timestamp"`
	PercentageCorrect      float64   `json:"percentage_correct"`
	CoinsEarned            int       `json:"coins_earned"`
	ExperiencePointsEarned int       `json:"experience_points_earned"`
}

// LessonProgress tracks the active session and history of a lesson for a user
type LessonProgress struct {
	ID               int64           `json:"id" db:"id"`
	UserID           int64           `json:"user_id" db:"user_id"`
	LessonID         int64           `json:"lesson_id" db:"lesson_id"`
	Status           LessonStatus    `json:"status" db:"status"`
	Opened           bool            `json:"opened" db:"opened"` // lesson has been purchased
	CurrentQuestion  int             `json:"current_question" db:"current_question"`
	SessionQuestions []int64         `json:"session_questions"`
	Attempts         []LessonAttempt `json:"attempts"`
	NextReview       *time.Time      `json:"next_review" db:"next_review"`
}

// Exhausted reports whether every session question has been answered.
func (p *LessonProgress) Exhausted() bool {
	return p.CurrentQuestion >= len(p.SessionQuestions)
}

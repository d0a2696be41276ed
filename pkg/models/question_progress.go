package models

import "time"

// ReviewStatus is the spaced-repetition state of a question for a user
type ReviewStatus string

const (
	ReviewNew      ReviewStatus = "new"
	ReviewError    ReviewStatus = "error"
	ReviewReview   ReviewStatus = "review"
	ReviewMastered ReviewStatus = "mastered"
)

// Attempt is one submitted answer
type Attempt struct {
	UserAnswer             Answer    `json:"user_answer"`
	IsCorrect              bool      `json:"is_correct"`
	CoinsEarned            int       `json:"coins_earned"`
	ExperiencePointsEarned int       `json:"experience_points_earned"`
	Timestamp              time.Time `json:"timestamp"`
}

// QuestionProgress tracks a user's progress with a specific question using the SM-2 algorithm
type QuestionProgress struct {
	ID               int64        `json:"id" db:"id"`
	UserID           int64        `json:"user_id" db:"user_id"`
	QuestionID       int64        `json:"question_id" db:"question_id"`
	Status           ReviewStatus `json:"status" db:"status"`
	RepetitionNumber int          `json:"repetition_number" db:"repetition_number"`
	Ease             float64      `json:"ease" db:"ease"`         // SM-2 ease factor
	Interval         int          `json:"interval" db:"interval"` // Current interval in days
	NextReview       time.Time    `json:"next_review" db:"next_review"`
	Attempts         []Attempt    `json:"attempts"` // newest first
}

// NewQuestionProgress returns the state used before the first submission.
func NewQuestionProgress(userID, questionID int64, now time.Time) *QuestionProgress {
	return &QuestionProgress{
		UserID:     userID,
		QuestionID: questionID,
		Status:     ReviewNew,
		Ease:       2.5,
		Interval:   1,
		NextReview: now,
	}
}

// LatestAttempt returns the most recent attempt, if any.
func (p *QuestionProgress) LatestAttempt() (Attempt, bool) {
	if len(p.Attempts) == 0 {
		return Attempt{}, false
	}
	return p.Attempts[0], true
}

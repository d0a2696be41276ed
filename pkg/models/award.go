package models

import "time"

// CriteriaType names the counter an award tracks
type CriteriaType string

const (
	CriteriaQuestionsAnswered CriteriaType = "questionsAnswered"
	CriteriaLessonsCompleted  CriteriaType = "lessonsCompleted"
	CriteriaNextLeague        CriteriaType = "nextLeague"
	CriteriaStreakDays        CriteriaType = "streakDays"
)

// AwardLevel is one threshold of an award
type AwardLevel struct {
	Level          int `json:"level"`
	TargetQuantity int `json:"target_quantity"`
}

// Criteria describes how an award is earned
type Criteria struct {
	Type   CriteriaType `json:"type"`
	Levels []AwardLevel `json:"levels"`
}

// Award is a catalog entry granting a fixed bounty per level
type Award struct {
	ID               int64     `json:"id" db:"id"`
	Name             string    `json:"name" db:"name"`
	Description      string    `json:"description" db:"description"`
	Category         string    `json:"category" db:"category"`
	Coins            int       `json:"coins" db:"coins"`
	ExperiencePoints int       `json:"experience_points" db:"experience_points"`
	Criteria         Criteria  `json:"criteria"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// LevelByNumber finds the threshold definition for level n.
func (a *Award) LevelByNumber(n int) (AwardLevel, bool) {
	for _, l := range a.Criteria.Levels {
		if l.Level == n {
			return l, true
		}
	}
	return AwardLevel{}, false
}

// AwardAchievement is one entry of the level-up log
type AwardAchievement struct {
	Level      int       `json:"level"`
	AchievedAt time.Time `json:"achieved_at"`
}

// UserAward tracks a user's counter for one award
type UserAward struct {
	ID           int64              `json:"id" db:"id"`
	UserID       int64              `json:"user_id" db:"user_id"`
	AwardID      int64              `json:"award_id" db:"award_id"`
	CriteriaType CriteriaType       `json:"criteria_type" db:"criteria_type"`
	CurrentCount int                `json:"current_count" db:"current_count"`
	Level        int                `json:"level" db:"level"`
	History      []AwardAchievement `json:"history"`
}

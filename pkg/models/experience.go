package models

import "time"

// DailyExperience accumulates credited experience for one calendar day
type DailyExperience struct {
	ID     int64     `json:"id" db:"id"`
	UserID int64     `json:"user_id" db:"user_id"`
	Date   time.Time `json:"date" db:"date"`
	Points int       `json:"points" db:"points"`
}

// LevelHistory records when a user reached a level
type LevelHistory struct {
	ID         int64     `json:"id" db:"id"`
	UserID     int64     `json:"user_id" db:"user_id"`
	Level      int       `json:"level" db:"level"`
	AchievedAt time.Time `json:"achieved_at" db:"achieved_at"`
}

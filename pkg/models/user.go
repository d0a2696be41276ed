package models

import "time"

// User is the learner record mutated by the progression engine.
type User struct {
	ID                           int64     `json:"id" db:"id"`
	Username                     string    `json:"username" db:"username"`
	TelegramChatID               int64     `json:"telegram_chat_id" db:"telegram_chat_id"` // optional delivery target for notifications
	Coins                        int       `json:"coins" db:"coins"`
	ExperiencePoints             int       `json:"experience_points" db:"experience_points"`
	Level                        int       `json:"level" db:"level"`
	Streak                       int       `json:"streak" db:"streak"`
	CoinEarningCoefficient       float64   `json:"coin_earning_coefficient" db:"coin_earning_coefficient"`
	ExperienceEarningCoefficient float64   `json:"experience_earning_coefficient" db:"experience_earning_coefficient"`
	LeagueID                     int64     `json:"league_id" db:"league_id"` // 0 when the user is not placed yet
	CreatedAt                    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt                    time.Time `json:"updated_at" db:"updated_at"`
}

// NewUser returns a user with the starting level and neutral coefficients.
func NewUser(username string) *User {
	return &User{
		Username:                     username,
		Level:                        1,
		CoinEarningCoefficient:       1,
		ExperienceEarningCoefficient: 1,
	}
}

package models

import "time"

// Importance ranks notifications
type Importance string

const (
	ImportanceLow    Importance = "low"
	ImportanceMedium Importance = "medium"
	ImportanceHigh   Importance = "high"
)

// Rank orders importance values, low < medium < high.
func (i Importance) Rank() int {
	switch i {
	case ImportanceHigh:
		return 3
	case ImportanceMedium:
		return 2
	case ImportanceLow:
		return 1
	}
	return 0
}

// Notification is a message addressed to a user
type Notification struct {
	ID          int64      `json:"id" db:"id"`
	RecipientID int64      `json:"recipient_id" db:"recipient_id"`
	Message     string     `json:"message" db:"message"`
	Importance  Importance `json:"importance" db:"importance"`
	Read        bool       `json:"read" db:"read"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

package models

import "time"

// GroupCapacity is the maximum number of users ranked together.
const GroupCapacity = 10

// League is a competitive tier; higher Level is better
type League struct {
	ID          int64   `json:"id" db:"id"`
	Name        string  `json:"name" db:"name"`
	Description string  `json:"description" db:"description"`
	Level       int     `json:"level" db:"level"`
	GroupIDs    []int64 `json:"group_ids"`
}

// Group is a cohort of users inside a league
type Group struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	UserIDs   []int64   `json:"user_ids"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

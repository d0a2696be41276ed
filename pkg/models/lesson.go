package models

import "time"

// LessonType groups lessons by subject
type LessonType string

const (
	LessonGrammar      LessonType = "grammar"
	LessonVocabulary   LessonType = "vocabulary"
	LessonTypicalError LessonType = "typicalError"
)

// Lesson is an ordered set of questions sold for coins
type Lesson struct {
	ID            int64      `json:"id" db:"id"`
	Name          string     `json:"name" db:"name"`
	Description   string     `json:"description" db:"description"`
	LessonType    LessonType `json:"lesson_type" db:"lesson_type"`
	QuestionIDs   []int64    `json:"question_ids"`
	Price         int        `json:"price" db:"price"`
	BaseCoins     int        `json:"base_coins" db:"base_coins"`         // raw coins per correct answer
	RequiredLevel int        `json:"required_level" db:"required_level"` // minimum user level to start
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// HasQuestion reports whether id belongs to the lesson.
func (l *Lesson) HasQuestion(id int64) bool {
	for _, qid := range l.QuestionIDs {
		if qid == id {
			return true
		}
	}
	return false
}

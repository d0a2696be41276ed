package models

import "time"

// QuestionType selects how an answer is validated.
type QuestionType string

const (
	QuestionSingleChoice   QuestionType = "singleChoice"
	QuestionMultipleChoice QuestionType = "multipleChoice"
	QuestionTrueFalse      QuestionType = "trueFalse"
	QuestionFillBlank      QuestionType = "fillBlank"
	QuestionShortAnswer    QuestionType = "shortAnswer"
	QuestionMatching       QuestionType = "matching"
	QuestionCard           QuestionType = "card"
)

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionSingleChoice, QuestionMultipleChoice, QuestionTrueFalse,
		QuestionFillBlank, QuestionShortAnswer, QuestionMatching, QuestionCard:
		return true
	}
	return false
}

// Option is a possible answer value
type Option struct {
	Value     string `json:"value"`
	IsCorrect bool   `json:"is_correct"`
}

// MatchingPair links a left-hand item to its right-hand counterpart
type MatchingPair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// Question is an immutable catalog entry
type Question struct {
	ID              int64          `json:"id" db:"id"`
	Text            string         `json:"text" db:"text"`
	Type            QuestionType   `json:"type" db:"type"`
	Options         []Option       `json:"options"`
	MatchingOptions []MatchingPair `json:"matching_options"`
	Explanation     string         `json:"explanation" db:"explanation"`
	Hint            string         `json:"hint" db:"hint"`
	Difficulty      int            `json:"difficulty" db:"difficulty"` // 1-5 scale of difficulty
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
}

// CorrectOptions returns the values flagged as correct.
func (q *Question) CorrectOptions() []string {
	var values []string
	for _, o := range q.Options {
		if o.IsCorrect {
			values = append(values, o.Value)
		}
	}
	return values
}

// Answer is a user's submission for one question. Which fields are used
// depends on the question type.
type Answer struct {
	Choices []string       `json:"choices,omitempty"`
	Text    string         `json:"text,omitempty"`
	Pairs   []MatchingPair `json:"pairs,omitempty"`
}

package lesson

import "github.com/example/lingoleague/internal/apperr"

var (
	ErrLessonNotFound      = apperr.NotFound("lesson not found")
	ErrQuestionNotFound    = apperr.NotFound("question not found")
	ErrLessonInProgress    = apperr.InvalidState("lesson is already in progress")
	ErrLessonNotInProgress = apperr.InvalidState("lesson is not in progress")
	ErrSessionExhausted    = apperr.InvalidState("all questions of this session are answered")
	ErrSessionNotFinished  = apperr.InvalidState("answer every question before finishing the lesson")
	ErrAlreadyCompleted    = apperr.InvalidState("lesson is already completed")
	ErrLevelTooLow         = apperr.InsufficientResource("your level is too low for this lesson")
	ErrNotEnoughCoins      = apperr.InsufficientResource("not enough coins to open this lesson")
	ErrInvalidAnswer       = apperr.Validation("answer does not fit the question type")
)

package lesson

import (
	"fmt"
	"strings"

	"github.com/example/lingoleague/pkg/models"
)

// CheckAnswer validates an answer against the question. Answers whose
// shape does not fit the question type fail with ErrInvalidAnswer.
func CheckAnswer(q *models.Question, a models.Answer) (bool, error) {
	switch q.Type {
	case models.QuestionSingleChoice, models.QuestionTrueFalse:
		choice, err := singleChoice(a)
		if err != nil {
			return false, err
		}
		for _, v := range q.CorrectOptions() {
			if v == choice {
				return true, nil
			}
		}
		return false, nil

	case models.QuestionMultipleChoice:
		if len(a.Choices) == 0 {
			return false, fmt.Errorf("%w: choose at least one option", ErrInvalidAnswer)
		}
		return sameSet(a.Choices, q.CorrectOptions()), nil

	case models.QuestionFillBlank, models.QuestionShortAnswer:
		text := strings.ToLower(strings.TrimSpace(a.Text))
		if text == "" {
			return false, fmt.Errorf("%w: answer text is empty", ErrInvalidAnswer)
		}
		for _, v := range q.CorrectOptions() {
			v = strings.ToLower(strings.TrimSpace(v))
			if v != "" && strings.Contains(text, v) {
				return true, nil
			}
		}
		return false, nil

	case models.QuestionMatching:
		if len(a.Pairs) == 0 {
			return false, fmt.Errorf("%w: no pairs given", ErrInvalidAnswer)
		}
		return samePairs(a.Pairs, q.MatchingOptions), nil

	case models.QuestionCard:
		return true, nil
	}
	return false, fmt.Errorf("%w: unknown question type %q", ErrInvalidAnswer, q.Type)
}

func singleChoice(a models.Answer) (string, error) {
	switch {
	case len(a.Choices) == 1:
		return a.Choices[0], nil
	case len(a.Choices) == 0 && a.Text != "":
		return a.Text, nil
	}
	return "", fmt.Errorf("%w: exactly one option expected", ErrInvalidAnswer)
}

func sameSet(got, want []string) bool {
	g := make(map[string]struct{}, len(got))
	for _, v := range got {
		g[v] = struct{}{}
	}
	w := make(map[string]struct{}, len(want))
	for _, v := range want {
		w[v] = struct{}{}
	}
	if len(g) != len(w) {
		return false
	}
	for v := range w {
		if _, ok := g[v]; !ok {
			return false
		}
	}
	return true
}

func samePairs(got, want []models.MatchingPair) bool {
	g := make(map[models.MatchingPair]struct{}, len(got))
	for _, p := range got {
		g[p] = struct{}{}
	}
	w := make(map[models.MatchingPair]struct{}, len(want))
	for _, p := range want {
		w[p] = struct{}{}
	}
	if len(g) != len(w) {
		return false
	}
	for p := range w {
		if _, ok := g[p]; !ok {
			return false
		}
	}
	return true
}

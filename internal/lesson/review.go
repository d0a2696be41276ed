package lesson

import (
	"context"
	"fmt"

	"github.com/example/lingoleague/pkg/models"
)

// FlagForReview marks completed lessons whose next review is due as
// needing review. It returns how many were flagged.
func (s *Service) FlagForReview(ctx context.Context) (int, error) {
	completed, err := s.lprogress.ListByStatus(ctx, models.LessonCompleted)
	if err != nil {
		return 0, fmt.Errorf("failed to list completed lessons: %w", err)
	}
	now := s.now()
	flagged := 0
	for i := range completed {
		p := &completed[i]
		if p.NextReview == nil || p.NextReview.After(now) {
			continue
		}
		p.Status = models.LessonNeedReview
		if err := s.lprogress.Save(ctx, p); err != nil {
			s.log.Error("failed to flag lesson for review", "user_id", p.UserID, "lesson_id", p.LessonID, "error", err)
			continue
		}
		flagged++
	}
	s.log.Info("lessons flagged for review", "count", flagged)
	return flagged, nil
}

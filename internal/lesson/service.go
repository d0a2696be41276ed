// Package lesson drives the lesson lifecycle for a user: purchase and
// start, question delivery, answer submission and completion accounting.
package lesson

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/lingoleague/internal/leveling"
	"github.com/example/lingoleague/internal/pkg/logger"
	"github.com/example/lingoleague/internal/session"
	sr "github.com/example/lingoleague/internal/spaced_repetition"
	"github.com/example/lingoleague/internal/store"
	"github.com/example/lingoleague/pkg/models"
)

const (
	DefaultSessionSize             = 10
	DefaultExperiencePerDifficulty = 10
)

type Config struct {
	SessionSize             int
	ExperiencePerDifficulty int
}

// Service implements the lesson operations. Every method takes the acting
// user explicitly.
type Service struct {
	users     store.Users
	lessons   store.Lessons
	questions store.Questions
	qprogress store.QuestionProgress
	lprogress store.LessonProgress
	tx        store.Transactor

	composer *session.Composer
	sm2      *sr.SM2
	engine   *leveling.Engine
	awards   leveling.AwardChecker
	cfg      Config
	log      *logger.Logger
	now      func() time.Time
}

func NewService(st *store.Store, composer *session.Composer, sm2 *sr.SM2, engine *leveling.Engine, cfg Config, log *logger.Logger) *Service {
	if cfg.SessionSize <= 0 {
		cfg.SessionSize = DefaultSessionSize
	}
	if cfg.ExperiencePerDifficulty <= 0 {
		cfg.ExperiencePerDifficulty = DefaultExperiencePerDifficulty
	}
	return &Service{
		users:     st.Users,
		lessons:   st.Lessons,
		questions: st.Questions,
		qprogress: st.QuestionProgress,
		lprogress: st.LessonProgress,
		tx:        st.Tx,
		composer:  composer,
		sm2:       sm2,
		engine:    engine,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// WithLessons replaces the lesson catalog, e.g. with a cached one.
func (s *Service) WithLessons(lessons store.Lessons) *Service {
	s.lessons = lessons
	return s
}

// WithAwards enables the questionsAnswered and lessonsCompleted hooks.
func (s *Service) WithAwards(awards leveling.AwardChecker) *Service {
	s.awards = awards
	return s
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type StartResult struct {
	Progress *models.LessonProgress
	// ComeBackTomorrow is set when nothing was due and the lesson was
	// completed without questions.
	ComeBackTomorrow bool
}

type SubmitResult struct {
	Correct          bool
	CoinsEarned      int
	ExperienceEarned int
	Explanation      string
	Progress         *models.QuestionProgress
	// Remaining is the number of unanswered session questions.
	Remaining int
}

type FinishResult struct {
	Attempt  models.LessonAttempt
	Correct  int
	Total    int
	Progress *models.LessonProgress
}

// LessonView is a lesson together with the user's progress on it.
type LessonView struct {
	Lesson     models.Lesson
	Status     models.LessonStatus
	Opened     bool
	NextReview *time.Time
	Locked     bool
}

// Start opens a new attempt. The first start of a lesson charges its price;
// the debit and the new progress are written in one transaction.
func (s *Service) Start(ctx context.Context, userID, lessonID int64) (*StartResult, error) {
	var result *StartResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		lesson, err := s.getLesson(ctx, lessonID)
		if err != nil {
			return err
		}
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to get user %d: %w", userID, err)
		}

		progress, err := s.lprogress.Get(ctx, userID, lessonID)
		if errors.Is(err, store.ErrNotFound) {
			progress = &models.LessonProgress{UserID: userID, LessonID: lessonID, Status: models.LessonNotStarted}
		} else if err != nil {
			return fmt.Errorf("failed to get lesson progress: %w", err)
		}

		if progress.Status == models.LessonInProgress {
			return ErrLessonInProgress
		}
		if user.Level < lesson.RequiredLevel {
			return ErrLevelTooLow
		}
		if !progress.Opened {
			if user.Coins < lesson.Price {
				return ErrNotEnoughCoins
			}
			user.Coins -= lesson.Price
			progress.Opened = true
			if err := s.users.Update(ctx, user); err != nil {
				return fmt.Errorf("failed to charge user: %w", err)
			}
		}

		questionIDs, err := s.composer.BuildForLesson(ctx, userID, lesson, s.cfg.SessionSize)
		if err != nil {
			return err
		}

		result = &StartResult{Progress: progress}
		progress.CurrentQuestion = 0
		if len(questionIDs) == 0 {
			progress.Status = models.LessonCompleted
			progress.SessionQuestions = nil
			if err := s.refreshNextReview(ctx, userID, lesson, progress); err != nil {
				return err
			}
			result.ComeBackTomorrow = true
		} else {
			progress.Status = models.LessonInProgress
			progress.SessionQuestions = questionIDs
		}

		if err := s.lprogress.Save(ctx, progress); err != nil {
			return fmt.Errorf("failed to save lesson progress: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("lesson started", "user_id", userID, "lesson_id", lessonID,
		"questions", len(result.Progress.SessionQuestions), "come_back_tomorrow", result.ComeBackTomorrow)
	return result, nil
}

// Take returns the question under the session cursor, skipping questions
// that became locked through another lesson.
func (s *Service) Take(ctx context.Context, userID, lessonID int64) (*models.Question, error) {
	progress, err := s.activeProgress(ctx, userID, lessonID)
	if err != nil {
		return nil, err
	}
	if err := s.dropLocked(ctx, userID, progress); err != nil {
		return nil, err
	}
	if progress.Exhausted() {
		return nil, ErrSessionExhausted
	}
	return s.getQuestion(ctx, progress.SessionQuestions[progress.CurrentQuestion])
}

// Submit grades the answer for the current question, reschedules it and
// advances the cursor whether or not the answer was correct.
func (s *Service) Submit(ctx context.Context, userID, lessonID int64, answer models.Answer) (*SubmitResult, error) {
	lesson, err := s.getLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	progress, err := s.activeProgress(ctx, userID, lessonID)
	if err != nil {
		return nil, err
	}
	if err := s.dropLocked(ctx, userID, progress); err != nil {
		return nil, err
	}
	if progress.Exhausted() {
		return nil, ErrSessionExhausted
	}
	question, err := s.getQuestion(ctx, progress.SessionQuestions[progress.CurrentQuestion])
	if err != nil {
		return nil, err
	}

	now := s.now()
	qp, err := s.qprogress.Get(ctx, userID, question.ID)
	if errors.Is(err, store.ErrNotFound) {
		qp = models.NewQuestionProgress(userID, question.ID, now)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get question progress: %w", err)
	}
	if err := s.sm2.CheckDayLock(qp); err != nil {
		return nil, err
	}

	correct, err := CheckAnswer(question, answer)
	if err != nil {
		return nil, err
	}

	attempt := models.Attempt{UserAnswer: answer, IsCorrect: correct, Timestamp: now}
	if correct {
		attempt.CoinsEarned = lesson.BaseCoins
		attempt.ExperiencePointsEarned = question.Difficulty * s.cfg.ExperiencePerDifficulty
	}
	s.sm2.ScheduleReview(qp, correct, s.sm2.TypeModifier(question.Type))
	qp.Attempts = append([]models.Attempt{attempt}, qp.Attempts...)

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.qprogress.Save(ctx, qp); err != nil {
			return fmt.Errorf("failed to save question progress: %w", err)
		}
		progress.CurrentQuestion++
		if err := s.lprogress.Save(ctx, progress); err != nil {
			return fmt.Errorf("failed to save lesson progress: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.checkAward(ctx, models.CriteriaQuestionsAnswered, userID)

	return &SubmitResult{
		Correct:          correct,
		CoinsEarned:      attempt.CoinsEarned,
		ExperienceEarned: attempt.ExperiencePointsEarned,
		Explanation:      question.Explanation,
		Progress:         qp,
		Remaining:        len(progress.SessionQuestions) - progress.CurrentQuestion,
	}, nil
}

// Finish closes a fully answered session, credits the earnings of the
// latest attempt of each session question and records a lesson attempt.
func (s *Service) Finish(ctx context.Context, userID, lessonID int64) (*FinishResult, error) {
	lesson, err := s.getLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	progress, err := s.lprogress.Get(ctx, userID, lessonID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrLessonNotInProgress
	} else if err != nil {
		return nil, fmt.Errorf("failed to get lesson progress: %w", err)
	}
	switch {
	case progress.Status == models.LessonCompleted:
		return nil, ErrAlreadyCompleted
	case progress.Status != models.LessonInProgress:
		return nil, ErrLessonNotInProgress
	case !progress.Exhausted():
		return nil, ErrSessionNotFinished
	}

	answered, err := s.qprogress.ListForQuestions(ctx, userID, progress.SessionQuestions)
	if err != nil {
		return nil, fmt.Errorf("failed to get question progress: %w", err)
	}
	var correct, rawCoins, rawExperience int
	for _, qp := range answered {
		latest, ok := qp.LatestAttempt()
		if !ok || !latest.IsCorrect {
			continue
		}
		correct++
		rawCoins += latest.CoinsEarned
		rawExperience += latest.ExperiencePointsEarned
	}
	total := len(progress.SessionQuestions)

	result := &FinishResult{Correct: correct, Total: total, Progress: progress}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to get user %d: %w", userID, err)
		}
		coins := s.engine.IncreaseCoins(ctx, user, rawCoins)
		experience, err := s.engine.AssignEarnings(ctx, user, rawExperience)
		if err != nil {
			return err
		}
		if err := s.users.Update(ctx, user); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}

		result.Attempt = models.LessonAttempt{
			Timestamp:              s.now(),
			PercentageCorrect:      percentage(correct, total),
			CoinsEarned:            coins,
			ExperiencePointsEarned: experience,
		}
		progress.Attempts = append(progress.Attempts, result.Attempt)
		progress.CurrentQuestion = 0
		progress.SessionQuestions = nil
		progress.Status = models.LessonCompleted
		if err := s.refreshNextReview(ctx, userID, lesson, progress); err != nil {
			return err
		}
		if err := s.lprogress.Save(ctx, progress); err != nil {
			return fmt.Errorf("failed to save lesson progress: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.checkAward(ctx, models.CriteriaLessonsCompleted, userID)
	s.log.Info("lesson finished", "user_id", userID, "lesson_id", lessonID,
		"correct", correct, "total", total, "coins", result.Attempt.CoinsEarned, "experience", result.Attempt.ExperiencePointsEarned)
	return result, nil
}

// ListForUser returns every lesson with the user's progress view.
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]LessonView, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	lessons, err := s.lessons.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list lessons: %w", err)
	}
	progress, err := s.lprogress.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list lesson progress: %w", err)
	}
	byLesson := make(map[int64]models.LessonProgress, len(progress))
	for _, p := range progress {
		byLesson[p.LessonID] = p
	}

	views := make([]LessonView, 0, len(lessons))
	for _, l := range lessons {
		var p *models.LessonProgress
		if found, ok := byLesson[l.ID]; ok {
			p = &found
		}
		views = append(views, newView(l, p, user))
	}
	return views, nil
}

// GetForUser returns one lesson with the user's progress view.
func (s *Service) GetForUser(ctx context.Context, userID, lessonID int64) (*LessonView, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	lesson, err := s.getLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	progress, err := s.lprogress.Get(ctx, userID, lessonID)
	if errors.Is(err, store.ErrNotFound) {
		progress = nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get lesson progress: %w", err)
	}
	view := newView(*lesson, progress, user)
	return &view, nil
}

func newView(l models.Lesson, p *models.LessonProgress, user *models.User) LessonView {
	view := LessonView{
		Lesson: l,
		Status: models.LessonNotStarted,
		Locked: user.Level < l.RequiredLevel,
	}
	if p != nil {
		view.Status = p.Status
		view.Opened = p.Opened
		view.NextReview = p.NextReview
	}
	return view
}

func (s *Service) activeProgress(ctx context.Context, userID, lessonID int64) (*models.LessonProgress, error) {
	progress, err := s.lprogress.Get(ctx, userID, lessonID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrLessonNotInProgress
	} else if err != nil {
		return nil, fmt.Errorf("failed to get lesson progress: %w", err)
	}
	if progress.Status != models.LessonInProgress {
		return nil, ErrLessonNotInProgress
	}
	return progress, nil
}

// dropLocked removes questions under the cursor that another lesson has
// answered since this session was composed and that are now locked until
// their next review day. They leave the session entirely, so Finish neither
// counts nor credits them twice.
func (s *Service) dropLocked(ctx context.Context, userID int64, progress *models.LessonProgress) error {
	dropped := 0
	for !progress.Exhausted() {
		i := progress.CurrentQuestion
		qp, err := s.qprogress.Get(ctx, userID, progress.SessionQuestions[i])
		if errors.Is(err, store.ErrNotFound) {
			break
		} else if err != nil {
			return fmt.Errorf("failed to get question progress: %w", err)
		}
		if s.sm2.CheckDayLock(qp) == nil {
			break
		}
		progress.SessionQuestions = append(progress.SessionQuestions[:i:i], progress.SessionQuestions[i+1:]...)
		dropped++
	}
	if dropped == 0 {
		return nil
	}
	s.log.Debug("dropped locked session questions", "user_id", userID, "lesson_id", progress.LessonID, "dropped", dropped)
	if err := s.lprogress.Save(ctx, progress); err != nil {
		return fmt.Errorf("failed to save lesson progress: %w", err)
	}
	return nil
}

func (s *Service) getLesson(ctx context.Context, lessonID int64) (*models.Lesson, error) {
	lesson, err := s.lessons.GetByID(ctx, lessonID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrLessonNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get lesson %d: %w", lessonID, err)
	}
	return lesson, nil
}

func (s *Service) getQuestion(ctx context.Context, questionID int64) (*models.Question, error) {
	q, err := s.questions.GetByID(ctx, questionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrQuestionNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get question %d: %w", questionID, err)
	}
	return q, nil
}

// refreshNextReview sets the lesson's next review to the earliest next
// review among its questions; nil when none has been answered.
func (s *Service) refreshNextReview(ctx context.Context, userID int64, lesson *models.Lesson, progress *models.LessonProgress) error {
	rows, err := s.qprogress.ListForQuestions(ctx, userID, lesson.QuestionIDs)
	if err != nil {
		return fmt.Errorf("failed to get question progress: %w", err)
	}
	var earliest *time.Time
	for i := range rows {
		next := rows[i].NextReview
		if earliest == nil || next.Before(*earliest) {
			earliest = &next
		}
	}
	progress.NextReview = earliest
	return nil
}

func (s *Service) checkAward(ctx context.Context, criteria models.CriteriaType, userID int64) {
	if s.awards == nil {
		return
	}
	if err := s.awards.CheckAward(ctx, criteria, userID, 1); err != nil {
		s.log.Warn("award check failed", "criteria", criteria, "user_id", userID, "error", err)
	}
}

func percentage(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(correct) * 100 / float64(total)
}

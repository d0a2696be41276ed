// Package memory is an in-process implementation of the store
// repositories. Values are copied on the way in and out so callers never
// share slices with the stored state.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/lingoleague/internal/calendar"
	"github.com/example/lingoleague/internal/store"
	"github.com/example/lingoleague/pkg/models"
)

type progressKey struct {
	userID, itemID int64
}

type awardKey struct {
	userID, awardID int64
	criteria        models.CriteriaType
}

type state struct {
	mu     sync.RWMutex
	txMu   sync.Mutex
	nextID int64
	clock  func() time.Time

	users            map[int64]models.User
	questions        map[int64]models.Question
	lessons          map[int64]models.Lesson
	questionProgress map[progressKey]models.QuestionProgress
	lessonProgress   map[progressKey]models.LessonProgress
	dailyExperience  map[progressKey]models.DailyExperience // itemID is the day's unix time
	leagues          map[int64]models.League
	groups           map[int64]models.Group
	awards           map[int64]models.Award
	userAwards       map[awardKey]models.UserAward
	notifications    map[int64]models.Notification
	levelHistory     []models.LevelHistory
}

// New returns an empty store.
func New() *store.Store {
	s := &state{
		clock:            time.Now,
		users:            make(map[int64]models.User),
		questions:        make(map[int64]models.Question),
		lessons:          make(map[int64]models.Lesson),
		questionProgress: make(map[progressKey]models.QuestionProgress),
		lessonProgress:   make(map[progressKey]models.LessonProgress),
		dailyExperience:  make(map[progressKey]models.DailyExperience),
		leagues:          make(map[int64]models.League),
		groups:           make(map[int64]models.Group),
		awards:           make(map[int64]models.Award),
		userAwards:       make(map[awardKey]models.UserAward),
		notifications:    make(map[int64]models.Notification),
	}
	return &store.Store{
		Users:            &userRepo{s},
		Questions:        &questionRepo{s},
		Lessons:          &lessonRepo{s},
		QuestionProgress: &questionProgressRepo{s},
		LessonProgress:   &lessonProgressRepo{s},
		DailyExperience:  &dailyExperienceRepo{s},
		Leagues:          &leagueRepo{s},
		Groups:           &groupRepo{s},
		Awards:           &awardRepo{s},
		UserAwards:       &userAwardRepo{s},
		Notifications:    &notificationRepo{s},
		LevelHistory:     &levelHistoryRepo{s},
		Tx:               &transactor{s},
	}
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

// transactor serializes transactional blocks. There is no rollback: a
// failing block leaves its earlier writes in place.
type transactor struct{ s *state }

func (t *transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.s.txMu.Lock()
	defer t.s.txMu.Unlock()
	return fn(ctx)
}

type userRepo struct{ s *state }

func (r *userRepo) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if user.ID == 0 {
		user.ID = r.s.id()
	}
	now := r.s.clock()
	user.CreatedAt, user.UpdatedAt = now, now
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (r *userRepo) List(_ context.Context) ([]models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	users := make([]models.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *userRepo) Update(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; !ok {
		return store.ErrNotFound
	}
	user.UpdatedAt = r.s.clock()
	r.s.users[user.ID] = *user
	return nil
}

type questionRepo struct{ s *state }

func (r *questionRepo) Create(_ context.Context, q *models.Question) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	q.ID = r.s.id()
	q.CreatedAt = r.s.clock()
	r.s.questions[q.ID] = cloneQuestion(*q)
	return nil
}

func (r *questionRepo) GetByID(_ context.Context, id int64) (*models.Question, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	q, ok := r.s.questions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	q = cloneQuestion(q)
	return &q, nil
}

type lessonRepo struct{ s *state }

func (r *lessonRepo) Save(_ context.Context, l *models.Lesson) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if l.ID == 0 {
		l.ID = r.s.id()
		l.CreatedAt = r.s.clock()
	} else if _, ok := r.s.lessons[l.ID]; !ok {
		return store.ErrNotFound
	}
	r.s.lessons[l.ID] = cloneLesson(*l)
	return nil
}

func (r *lessonRepo) GetByID(_ context.Context, id int64) (*models.Lesson, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	l, ok := r.s.lessons[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	l = cloneLesson(l)
	return &l, nil
}

func (r *lessonRepo) List(_ context.Context) ([]models.Lesson, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	lessons := make([]models.Lesson, 0, len(r.s.lessons))
	for _, l := range r.s.lessons {
		lessons = append(lessons, cloneLesson(l))
	}
	sort.Slice(lessons, func(i, j int) bool { return lessons[i].ID < lessons[j].ID })
	return lessons, nil
}

type questionProgressRepo struct{ s *state }

func (r *questionProgressRepo) Get(_ context.Context, userID, questionID int64) (*models.QuestionProgress, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.questionProgress[progressKey{userID, questionID}]
	if !ok {
		return nil, store.ErrNotFound
	}
	p = cloneQuestionProgress(p)
	return &p, nil
}

func (r *questionProgressRepo) ListForQuestions(_ context.Context, userID int64, questionIDs []int64) ([]models.QuestionProgress, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []models.QuestionProgress
	for _, qid := range questionIDs {
		if p, ok := r.s.questionProgress[progressKey{userID, qid}]; ok {
			out = append(out, cloneQuestionProgress(p))
		}
	}
	return out, nil
}

func (r *questionProgressRepo) Save(_ context.Context, p *models.QuestionProgress) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := progressKey{p.UserID, p.QuestionID}
	if existing, ok := r.s.questionProgress[key]; ok {
		p.ID = existing.ID
	} else {
		p.ID = r.s.id()
	}
	r.s.questionProgress[key] = cloneQuestionProgress(*p)
	return nil
}

type lessonProgressRepo struct{ s *state }

func (r *lessonProgressRepo) Get(_ context.Context, userID, lessonID int64) (*models.LessonProgress, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.lessonProgress[progressKey{userID, lessonID}]
	if !ok {
		return nil, store.ErrNotFound
	}
	p = cloneLessonProgress(p)
	return &p, nil
}

func (r *lessonProgressRepo) ListByUser(_ context.Context, userID int64) ([]models.LessonProgress, error) {
	return r.filter(func(p models.LessonProgress) bool { return p.UserID == userID }), nil
}

func (r *lessonProgressRepo) ListByStatus(_ context.Context, status models.LessonStatus) ([]models.LessonProgress, error) {
	return r.filter(func(p models.LessonProgress) bool { return p.Status == status }), nil
}

func (r *lessonProgressRepo) filter(keep func(models.LessonProgress) bool) []models.LessonProgress {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []models.LessonProgress
	for _, p := range r.s.lessonProgress {
		if keep(p) {
			out = append(out, cloneLessonProgress(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *lessonProgressRepo) Save(_ context.Context, p *models.LessonProgress) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := progressKey{p.UserID, p.LessonID}
	if existing, ok := r.s.lessonProgress[key]; ok {
		p.ID = existing.ID
	} else {
		p.ID = r.s.id()
	}
	r.s.lessonProgress[key] = cloneLessonProgress(*p)
	return nil
}

type dailyExperienceRepo struct{ s *state }

func dayKey(userID int64, day time.Time) progressKey {
	return progressKey{userID, calendar.StartOfDay(day).Unix()}
}

func (r *dailyExperienceRepo) AddPoints(_ context.Context, userID int64, day time.Time, points int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := dayKey(userID, day)
	row, ok := r.s.dailyExperience[key]
	if !ok {
		row = models.DailyExperience{ID: r.s.id(), UserID: userID, Date: calendar.StartOfDay(day)}
	}
	row.Points += points
	r.s.dailyExperience[key] = row
	return nil
}

func (r *dailyExperienceRepo) Get(_ context.Context, userID int64, day time.Time) (*models.DailyExperience, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	row, ok := r.s.dailyExperience[dayKey(userID, day)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &row, nil
}

func (r *dailyExperienceRepo) ListByUser(_ context.Context, userID int64) ([]models.DailyExperience, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []models.DailyExperience
	for _, row := range r.s.dailyExperience {
		if row.UserID == userID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *dailyExperienceRepo) SumBetween(_ context.Context, userID int64, from, to time.Time) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	total := 0
	for _, row := range r.s.dailyExperience {
		if row.UserID == userID && !row.Date.Before(from) && !row.Date.After(to) {
			total += row.Points
		}
	}
	return total, nil
}

type leagueRepo struct{ s *state }

func (r *leagueRepo) Create(_ context.Context, l *models.League) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l.ID = r.s.id()
	r.s.leagues[l.ID] = cloneLeague(*l)
	return nil
}

func (r *leagueRepo) GetByID(_ context.Context, id int64) (*models.League, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	l, ok := r.s.leagues[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	l = cloneLeague(l)
	return &l, nil
}

func (r *leagueRepo) List(_ context.Context) ([]models.League, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.League, 0, len(r.s.leagues))
	for _, l := range r.s.leagues {
		out = append(out, cloneLeague(l))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level < out[j].Level
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *leagueRepo) Update(_ context.Context, l *models.League) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.leagues[l.ID]; !ok {
		return store.ErrNotFound
	}
	r.s.leagues[l.ID] = cloneLeague(*l)
	return nil
}

type groupRepo struct{ s *state }

func (r *groupRepo) Save(_ context.Context, g *models.Group) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.clock()
	if g.ID == 0 {
		g.ID = r.s.id()
		g.CreatedAt = now
	} else if _, ok := r.s.groups[g.ID]; !ok {
		return store.ErrNotFound
	}
	g.UpdatedAt = now
	r.s.groups[g.ID] = cloneGroup(*g)
	return nil
}

func (r *groupRepo) List(_ context.Context) ([]models.Group, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.Group, 0, len(r.s.groups))
	for _, g := range r.s.groups {
		out = append(out, cloneGroup(g))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *groupRepo) Delete(_ context.Context, ids []int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range ids {
		delete(r.s.groups, id)
	}
	return nil
}

type awardRepo struct{ s *state }

func (r *awardRepo) Create(_ context.Context, a *models.Award) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a.ID = r.s.id()
	a.CreatedAt = r.s.clock()
	r.s.awards[a.ID] = cloneAward(*a)
	return nil
}

func (r *awardRepo) GetByCriteriaType(_ context.Context, t models.CriteriaType) (*models.Award, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var found *models.Award
	for _, a := range r.s.awards {
		if a.Criteria.Type == t && (found == nil || a.ID < found.ID) {
			c := cloneAward(a)
			found = &c
		}
	}
	if found == nil {
		return nil, store.ErrNotFound
	}
	return found, nil
}

type userAwardRepo struct{ s *state }

func (r *userAwardRepo) Get(_ context.Context, userID, awardID int64, t models.CriteriaType) (*models.UserAward, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ua, ok := r.s.userAwards[awardKey{userID, awardID, t}]
	if !ok {
		return nil, store.ErrNotFound
	}
	ua = cloneUserAward(ua)
	return &ua, nil
}

func (r *userAwardRepo) ListByUser(_ context.Context, userID int64) ([]models.UserAward, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []models.UserAward
	for _, ua := range r.s.userAwards {
		if ua.UserID == userID {
			out = append(out, cloneUserAward(ua))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *userAwardRepo) Save(_ context.Context, ua *models.UserAward) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := awardKey{ua.UserID, ua.AwardID, ua.CriteriaType}
	if existing, ok := r.s.userAwards[key]; ok {
		ua.ID = existing.ID
	} else {
		ua.ID = r.s.id()
	}
	r.s.userAwards[key] = cloneUserAward(*ua)
	return nil
}

type notificationRepo struct{ s *state }

func (r *notificationRepo) Create(_ context.Context, n *models.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n.ID = r.s.id()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.s.clock()
	}
	r.s.notifications[n.ID] = *n
	return nil
}

func (r *notificationRepo) ListByUser(_ context.Context, userID int64, unreadOnly bool) ([]models.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []models.Notification
	for _, n := range r.s.notifications {
		if n.RecipientID == userID && (!unreadOnly || !n.Read) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *notificationRepo) MarkRead(_ context.Context, userID, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notifications[id]
	if !ok || n.RecipientID != userID {
		return store.ErrNotFound
	}
	n.Read = true
	r.s.notifications[id] = n
	return nil
}

func (r *notificationRepo) MarkAllRead(_ context.Context, userID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, n := range r.s.notifications {
		if n.RecipientID == userID && !n.Read {
			n.Read = true
			r.s.notifications[id] = n
		}
	}
	return nil
}

type levelHistoryRepo struct{ s *state }

func (r *levelHistoryRepo) Create(_ context.Context, e *models.LevelHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e.ID = r.s.id()
	if e.AchievedAt.IsZero() {
		e.AchievedAt = r.s.clock()
	}
	r.s.levelHistory = append(r.s.levelHistory, *e)
	return nil
}

func (r *levelHistoryRepo) ListByUser(_ context.Context, userID int64) ([]models.LevelHistory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []models.LevelHistory
	for _, e := range r.s.levelHistory {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func cloneQuestion(q models.Question) models.Question {
	q.Options = append([]models.Option(nil), q.Options...)
	q.MatchingOptions = append([]models.MatchingPair(nil), q.MatchingOptions...)
	return q
}

func cloneLesson(l models.Lesson) models.Lesson {
	l.QuestionIDs = append([]int64(nil), l.QuestionIDs...)
	return l
}

func cloneQuestionProgress(p models.QuestionProgress) models.QuestionProgress {
	p.Attempts = append([]models.Attempt(nil), p.Attempts...)
	return p
}

func cloneLessonProgress(p models.LessonProgress) models.LessonProgress {
	p.SessionQuestions = append([]int64(nil), p.SessionQuestions...)
	p.Attempts = append([]models.LessonAttempt(nil), p.Attempts...)
	if p.NextReview != nil {
		t := *p.NextReview
		p.NextReview = &t
	}
	return p
}

func cloneLeague(l models.League) models.League {
	l.GroupIDs = append([]int64(nil), l.GroupIDs...)
	return l
}

func cloneGroup(g models.Group) models.Group {
	g.UserIDs = append([]int64(nil), g.UserIDs...)
	return g
}

func cloneAward(a models.Award) models.Award {
	a.Criteria.Levels = append([]models.AwardLevel(nil), a.Criteria.Levels...)
	return a
}

func cloneUserAward(ua models.UserAward) models.UserAward {
	ua.History = append([]models.AwardAchievement(nil), ua.History...)
	return ua
}

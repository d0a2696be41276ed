package cli

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/example/lingoleague/internal/awards"
	"github.com/example/lingoleague/internal/catalog"
	"github.com/example/lingoleague/internal/config"
	"github.com/example/lingoleague/internal/database"
	"github.com/example/lingoleague/internal/league"
	"github.com/example/lingoleague/internal/lesson"
	"github.com/example/lingoleague/internal/leveling"
	"github.com/example/lingoleague/internal/notify"
	"github.com/example/lingoleague/internal/pkg/logger"
	"github.com/example/lingoleague/internal/scheduler"
	"github.com/example/lingoleague/internal/session"
	sr "github.com/example/lingoleague/internal/spaced_repetition"
	"github.com/example/lingoleague/internal/store"
	"github.com/example/lingoleague/pkg/models"
)

const (
	taskLeagueRotation = "league-rotation"
	taskStreaks        = "streaks"
	taskLessonReview   = "lesson-review"
)

// app holds every component wired from one config.
type app struct {
	cfg   config.Config
	log   *logger.Logger
	db    *sqlx.DB
	redis *redis.Client
	// now reads the wall clock in the configured schedule timezone
	now func() time.Time

	store     *store.Store
	lessons   store.Lessons
	inbox     *notify.StoreSink
	sink      notify.Sink
	engine    *leveling.Engine
	awards    *awards.Tracker
	service   *lesson.Service
	league    *league.Job
	streaks   *leveling.StreakJob
	scheduler *scheduler.Scheduler
}

func loadConfig(path string) (config.Config, *logger.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return cfg, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, log, nil
}

func openDatabase(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	db, err := database.Connect(cfg.Database.Type, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func newApp(ctx context.Context, path string) (*app, error) {
	cfg, log, err := loadConfig(path)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, now: func() time.Time { return time.Now().In(loc) }}

	a.db, err = openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.store = database.New(a.db)
	a.lessons = a.store.Lessons

	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := a.redis.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.lessons = catalog.NewLessons(a.redis, a.store.Lessons, config.TTLDuration(cfg.Redis.CacheTTL, 10*time.Minute), log)
	}

	a.inbox = notify.NewStoreSink(a.store.Notifications).WithClock(a.now)
	a.sink = a.inbox
	if cfg.Telegram.Token != "" {
		api, err := notify.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			a.close()
			return nil, err
		}
		a.sink = notify.NewTelegramForwarder(a.inbox, a.store.Users, api, models.Importance(cfg.Telegram.MinImportance), log)
	}

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	a.engine = leveling.NewEngine(a.store, a.sink, cfg.Learning.LevelThresholds).WithClock(a.now)
	a.awards = awards.NewTracker(a.store, a.engine, a.sink, log).WithClock(a.now)
	composer := session.NewComposer(a.lessons, a.store.QuestionProgress, rnd).WithClock(a.now)
	a.service = lesson.NewService(a.store, composer, sr.NewSM2().WithClock(a.now), a.engine, lesson.Config{
		SessionSize:             cfg.Learning.SessionSize,
		ExperiencePerDifficulty: cfg.Learning.ExperiencePerDifficulty,
	}, log).WithLessons(a.lessons).WithAwards(a.awards).WithClock(a.now)
	a.league = league.NewJob(a.store, a.engine, a.sink, rand.New(rand.NewSource(time.Now().UnixNano())), log).
		WithAwards(a.awards).
		WithGroupSize(cfg.Learning.GroupSize).
		WithClock(a.now)
	a.streaks = leveling.NewStreakJob(a.store, a.engine, a.awards, cfg.Learning.StreakMinimum, log).WithClock(a.now)

	if err := a.buildScheduler(); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) buildScheduler() error {
	a.scheduler = scheduler.New(a.now().Location(), a.log)
	if a.redis != nil {
		a.scheduler.WithLocker(scheduler.NewRedisLocker(a.redis, "", config.TTLDuration(a.cfg.Redis.LockTTL, 30*time.Minute)))
	}

	for _, t := range []scheduler.Task{
		{Name: taskLeagueRotation, Spec: a.cfg.Schedule.LeagueRotation, Run: a.league.Rotate},
		{Name: taskStreaks, Spec: a.cfg.Schedule.Streaks, Run: a.streaks.Run},
		{Name: taskLessonReview, Spec: a.cfg.Schedule.LessonReview, Run: a.flagLessons},
	} {
		if err := a.scheduler.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) flagLessons(ctx context.Context) error {
	n, err := a.service.FlagForReview(ctx)
	if err != nil {
		return err
	}
	a.log.Info("lessons flagged for review", "count", n)
	return nil
}

func (a *app) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("failed to close redis", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("failed to close database", "error", err)
		}
	}
	a.log.Sync()
}

// Package scheduler runs the recurring maintenance tasks on cron specs
// and lets operators trigger them by name.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/example/lingoleague/internal/apperr"
	"github.com/example/lingoleague/internal/pkg/logger"
)

var (
	ErrTaskRunning = apperr.InvalidState("task is already running")
	ErrUnknownTask = apperr.NotFound("unknown task")
)

// Task is a named unit of recurring work. Spec is a five-field cron
// expression; an empty Spec registers the task for manual triggers only.
type Task struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

type task struct {
	Task
	mu sync.Mutex
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	locker    gocron.Locker
	log       *logger.Logger

	mu    sync.Mutex
	tasks map[string]*task
	ctx   context.Context
}

// New creates a scheduler evaluating cron specs in loc.
func New(loc *time.Location, log *logger.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	s := gocron.NewScheduler(loc)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		log:       log,
		tasks:     make(map[string]*task),
		ctx:       context.Background(),
	}
}

// WithLocker makes every run, scheduled or triggered, hold a distributed
// lock named after the task so that only one process runs it at a time.
func (s *Scheduler) WithLocker(locker gocron.Locker) *Scheduler {
	s.locker = locker
	s.scheduler.WithDistributedLocker(locker)
	return s
}

// Register adds a task and schedules it when it has a cron spec.
func (s *Scheduler) Register(t Task) error {
	if t.Name == "" || t.Run == nil {
		return fmt.Errorf("task needs a name and a run function")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[t.Name]; ok {
		return fmt.Errorf("task %s is already registered", t.Name)
	}
	s.tasks[t.Name] = &task{Task: t}

	if t.Spec == "" {
		return nil
	}
	if _, err := s.scheduler.Cron(t.Spec).Name(t.Name).Tag(t.Name).Do(s.scheduled, t.Name); err != nil {
		delete(s.tasks, t.Name)
		return fmt.Errorf("failed to schedule task %s: %w", t.Name, err)
	}
	s.log.Debug("task scheduled", "task", t.Name, "spec", t.Spec)
	return nil
}

// Tasks returns the registered task names in order.
func (s *Scheduler) Tasks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start runs the scheduled tasks in the background until ctx is done or
// Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.scheduler.StartAsync()
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// Trigger runs a task now in the calling goroutine. It fails with
// ErrTaskRunning when the task is already running here or, with a
// locker configured, in another process.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	t, err := s.lookup(name)
	if err != nil {
		return err
	}

	if s.locker != nil {
		lock, err := s.locker.Lock(ctx, name)
		if err != nil {
			if errors.Is(err, ErrLockHeld) {
				return fmt.Errorf("%w: %s", ErrTaskRunning, name)
			}
			return fmt.Errorf("failed to lock task %s: %w", name, err)
		}
		defer func() {
			if err := lock.Unlock(context.WithoutCancel(ctx)); err != nil {
				s.log.Warn("failed to release task lock", "task", name, "error", err)
			}
		}()
	}
	return s.run(ctx, t)
}

// scheduled is the gocron entry point. The distributed lock, if any, is
// already held by gocron at this point.
func (s *Scheduler) scheduled(name string) {
	t, err := s.lookup(name)
	if err != nil {
		s.log.Error("scheduled task missing", "task", name)
		return
	}
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	if err := s.run(ctx, t); err != nil {
		s.log.Error("scheduled task failed", "task", name, "error", err)
	}
}

func (s *Scheduler) run(ctx context.Context, t *task) error {
	if !t.mu.TryLock() {
		return fmt.Errorf("%w: %s", ErrTaskRunning, t.Name)
	}
	defer t.mu.Unlock()

	start := time.Now()
	s.log.Info("task started", "task", t.Name)
	if err := t.Run(ctx); err != nil {
		return fmt.Errorf("task %s: %w", t.Name, err)
	}
	s.log.Info("task finished", "task", t.Name, "took", time.Since(start).String())
	return nil
}

func (s *Scheduler) lookup(name string) (*task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	return t, nil
}

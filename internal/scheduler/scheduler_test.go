package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/lingoleague/internal/apperr"
	"github.com/example/lingoleague/internal/pkg/logger"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestTriggerRunsRegisteredTask(t *testing.T) {
	s := New(time.UTC, logger.Nop())
	var runs int32
	require.NoError(t, s.Register(Task{Name: "streaks", Spec: "5 0 * * *", Run: func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}}))
	require.NoError(t, s.Register(Task{Name: "manual-only", Run: func(context.Context) error {
		return errors.New("boom")
	}}))

	require.NoError(t, s.Trigger(context.Background(), "streaks"))
	assert.EqualValues(t, 1, atomic.LoadInt32(&runs))

	err := s.Trigger(context.Background(), "manual-only")
	assert.EqualError(t, err, "task manual-only: boom")

	err = s.Trigger(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownTask)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	assert.Equal(t, []string{"manual-only", "streaks"}, s.Tasks())
}

func TestRegisterValidation(t *testing.T) {
	s := New(nil, logger.Nop())
	noop := func(context.Context) error { return nil }

	assert.Error(t, s.Register(Task{Name: "", Run: noop}))
	assert.Error(t, s.Register(Task{Name: "x"}))
	require.NoError(t, s.Register(Task{Name: "x", Run: noop}))
	assert.Error(t, s.Register(Task{Name: "x", Run: noop}))
	assert.Error(t, s.Register(Task{Name: "bad-spec", Spec: "not a cron", Run: noop}))
	assert.Equal(t, []string{"x"}, s.Tasks())
}

func TestTriggerIsSingleFlight(t *testing.T) {
	s := New(time.UTC, logger.Nop())
	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, s.Register(Task{Name: "league-rotation", Run: func(context.Context) error {
		close(started)
		<-release
		return nil
	}}))

	done := make(chan error, 1)
	go func() { done <- s.Trigger(context.Background(), "league-rotation") }()
	<-started

	err := s.Trigger(context.Background(), "league-rotation")
	assert.ErrorIs(t, err, ErrTaskRunning)

	close(release)
	require.NoError(t, <-done)
}

func TestRedisLockerExclusive(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()
	locker := NewRedisLocker(client, "test:", time.Minute)

	lock, err := locker.Lock(ctx, "streaks")
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:streaks"))
	assert.Equal(t, time.Minute, mr.TTL("test:streaks"))

	_, err = locker.Lock(ctx, "streaks")
	assert.ErrorIs(t, err, ErrLockHeld)

	other, err := locker.Lock(ctx, "league-rotation")
	require.NoError(t, err)
	require.NoError(t, other.Unlock(ctx))

	require.NoError(t, lock.Unlock(ctx))
	assert.False(t, mr.Exists("test:streaks"))

	again, err := locker.Lock(ctx, "streaks")
	require.NoError(t, err)
	require.NoError(t, again.Unlock(ctx))
}

func TestRedisLockUnlockKeepsForeignLock(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()
	locker := NewRedisLocker(client, "test:", time.Minute)

	lock, err := locker.Lock(ctx, "streaks")
	require.NoError(t, err)

	// the lock expired and another process took it over
	require.NoError(t, mr.Set("test:streaks", "someone-else"))
	require.NoError(t, lock.Unlock(ctx))

	got, err := mr.Get("test:streaks")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestTriggerHonoursDistributedLock(t *testing.T) {
	_, client := newRedis(t)
	ctx := context.Background()
	locker := NewRedisLocker(client, "test:", time.Minute)

	var runs int32
	s := New(time.UTC, logger.Nop()).WithLocker(locker)
	require.NoError(t, s.Register(Task{Name: "lesson-review", Run: func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}}))

	held, err := locker.Lock(ctx, "lesson-review")
	require.NoError(t, err)

	err = s.Trigger(ctx, "lesson-review")
	assert.ErrorIs(t, err, ErrTaskRunning)
	assert.Zero(t, atomic.LoadInt32(&runs))

	require.NoError(t, held.Unlock(ctx))
	require.NoError(t, s.Trigger(ctx, "lesson-review"))
	assert.EqualValues(t, 1, atomic.LoadInt32(&runs))
}

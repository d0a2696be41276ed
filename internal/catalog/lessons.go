// Package catalog caches the lesson catalog in Redis. Lessons are
// immutable for learners, so entries only change through Save.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/example/lingoleague/internal/pkg/logger"
	"github.com/example/lingoleague/internal/store"
	"github.com/example/lingoleague/pkg/models"
)

const allLessonsKey = "all"

// Lessons wraps a lesson repository with a read-through Redis cache.
// Redis failures degrade to the backing repository.
type Lessons struct {
	client *redis.Client
	next   store.Lessons
	prefix string
	ttl    time.Duration
	sf     singleflight.Group
	log    *logger.Logger

	rndMu sync.Mutex
	rnd   *rand.Rand
}

var _ store.Lessons = (*Lessons)(nil)

func NewLessons(client *redis.Client, next store.Lessons, ttl time.Duration, log *logger.Logger) *Lessons {
	return &Lessons{
		client: client,
		next:   next,
		prefix: "lingoleague:lesson:",
		ttl:    ttl,
		log:    log,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *Lessons) Save(ctx context.Context, lesson *models.Lesson) error {
	if err := c.next.Save(ctx, lesson); err != nil {
		return err
	}
	keys := []string{c.key(strconv.FormatInt(lesson.ID, 10)), c.key(allLessonsKey)}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn("failed to invalidate lesson cache", "lesson_id", lesson.ID, "error", err)
	}
	return nil
}

func (c *Lessons) GetByID(ctx context.Context, id int64) (*models.Lesson, error) {
	var lesson models.Lesson
	err := c.cached(ctx, strconv.FormatInt(id, 10), &lesson, func() (interface{}, error) {
		return c.next.GetByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (c *Lessons) List(ctx context.Context) ([]models.Lesson, error) {
	var lessons []models.Lesson
	err := c.cached(ctx, allLessonsKey, &lessons, func() (interface{}, error) {
		return c.next.List(ctx)
	})
	if err != nil {
		return nil, err
	}
	return lessons, nil
}

// cached decodes the entry stored under name into dst, loading and storing
// it on a miss. Concurrent misses for one name share a single load.
func (c *Lessons) cached(ctx context.Context, name string, dst interface{}, load func() (interface{}, error)) error {
	key := c.key(name)
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		if err = json.Unmarshal(raw, dst); err == nil {
			return nil
		}
		c.log.Warn("dropping undecodable lesson cache entry", "key", key, "error", err)
	} else if !errors.Is(err, redis.Nil) {
		c.log.Warn("lesson cache read failed", "key", key, "error", err)
	}

	v, err, _ := c.sf.Do(name, func() (interface{}, error) {
		value, err := load()
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(ctx, key, encoded, c.ttlWithJitter()).Err(); err != nil {
			c.log.Warn("lesson cache write failed", "key", key, "error", err)
		}
		return encoded, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(v.([]byte), dst)
}

func (c *Lessons) key(name string) string {
	return c.prefix + name
}

func (c *Lessons) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

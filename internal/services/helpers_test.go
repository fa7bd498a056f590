package services

import (
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/enchung913/career-recommender/internal/kvstore"
	"github.com/enchung913/career-recommender/internal/repositories"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T) (*kvstore.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	return kvstore.NewRedisStoreFromClient(rdb), mr
}

func newTestDb(t *testing.T) *repositories.DbContext {
	t.Helper()
	dbCtx, err := repositories.NewDbContext(":memory:")
	require.NoError(t, err)
	require.NoError(t, dbCtx.Migrate())
	t.Cleanup(func() { _ = dbCtx.Close() })
	return dbCtx
}

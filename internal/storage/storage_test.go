package storage

import (
	"context"
	"testing"
	"time"

	"github.com/LJTian/PautaFacil/internal/headline"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb), mr
}

func stores(t *testing.T) map[string]Cache {
	rs, _ := newRedisStore(t)
	return map[string]Cache{
		"memory": NewMemoryStore(),
		"redis":  rs,
	}
}

func rec(source, title string, fetched time.Time) headline.Record {
	return headline.Record{
		ID:          "id-" + title,
		SourceID:    source,
		Title:       title,
		Link:        "https://example.com/" + title,
		PublishedAt: "10:00",
		FetchedAt:   fetched,
	}
}

func TestCacheGetMissing(t *testing.T) {
	for name, c := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := c.Get(context.Background(), "pcdf")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestCachePutThenGet(t *testing.T) {
	ctx := context.Background()
	fetched := time.Date(2026, 10, 18, 13, 0, 0, 0, time.UTC)
	for name, c := range stores(t) {
		t.Run(name, func(t *testing.T) {
			stored, err := c.Put(ctx, "pcdf", rec("pcdf", "A", fetched), 1)
			require.NoError(t, err)
			assert.True(t, stored)

			e, ok, err := c.Get(ctx, "pcdf")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "A", e.Record.Title)
			assert.Equal(t, uint64(1), e.Cycle)
			assert.True(t, fetched.Equal(e.CapturedAt))
			assert.Equal(t, headline.Fresh, e.Record.Freshness)
		})
	}
}

func TestCacheOlderCycleNeverOverwrites(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	for name, c := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := c.Put(ctx, "gdf", rec("gdf", "new", now), 5)
			require.NoError(t, err)

			stored, err := c.Put(ctx, "gdf", rec("gdf", "old", now), 4)
			require.NoError(t, err)
			assert.False(t, stored)

			e, _, _ := c.Get(ctx, "gdf")
			assert.Equal(t, "new", e.Record.Title)

			// 同一轮次允许覆盖
			stored, err = c.Put(ctx, "gdf", rec("gdf", "same", now), 5)
			require.NoError(t, err)
			assert.True(t, stored)
			e, _, _ = c.Get(ctx, "gdf")
			assert.Equal(t, "same", e.Record.Title)
		})
	}
}

func TestCacheClearAndEntries(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	for name, c := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, _ = c.Put(ctx, "a", rec("a", "x", now), 1)
			_, _ = c.Put(ctx, "b", rec("b", "y", now), 1)

			all, err := c.Entries(ctx)
			require.NoError(t, err)
			assert.Len(t, all, 2)
			assert.Equal(t, "y", all["b"].Record.Title)

			require.NoError(t, c.Clear(ctx))
			all, err = c.Entries(ctx)
			require.NoError(t, err)
			assert.Empty(t, all)

			// 清空后轮次保护也一起重置
			stored, err := c.Put(ctx, "a", rec("a", "z", now), 0)
			require.NoError(t, err)
			assert.True(t, stored)
		})
	}
}

func TestMemoryStoreEntriesIsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	_, _ = m.Put(ctx, "a", rec("a", "x", time.Now()), 1)

	all, _ := m.Entries(ctx)
	delete(all, "a")

	_, ok, _ := m.Get(ctx, "a")
	assert.True(t, ok)
}

func TestMemoryStoreCapturedAtDefaultsToNow(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := NewMemoryStore()
	m.now = func() time.Time { return fixed }

	_, _ = m.Put(context.Background(), "a", rec("a", "x", time.Time{}), 1)
	e, _, _ := m.Get(context.Background(), "a")
	assert.Equal(t, fixed, e.CapturedAt)
}

func TestRedisStoreLayout(t *testing.T) {
	rs, mr := newRedisStore(t)
	_, err := rs.Put(context.Background(), "senado", rec("senado", "x", time.Now()), 3)
	require.NoError(t, err)

	assert.True(t, mr.Exists(CacheKey))
	assert.Equal(t, time.Duration(0), mr.TTL(CacheKey), "cache entries never expire")
	assert.Contains(t, mr.HGet(CacheKey, "senado"), `"cycle":3`)
}

func TestRedisStoreSkipsCorruptEntries(t *testing.T) {
	rs, mr := newRedisStore(t)
	ctx := context.Background()
	_, _ = rs.Put(ctx, "ok", rec("ok", "x", time.Now()), 1)
	mr.HSet(CacheKey, "broken", "{not json")

	all, err := rs.Entries(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, _, err = rs.Get(ctx, "broken")
	assert.Error(t, err)

	// 损坏的旧值不阻止新结果写入
	stored, err := rs.Put(ctx, "broken", rec("broken", "y", time.Now()), 1)
	require.NoError(t, err)
	assert.True(t, stored)
}

func TestRedisStoreUnavailable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer rdb.Close()
	rs := NewRedisStore(rdb)

	_, _, err := rs.Get(context.Background(), "a")
	assert.Error(t, err)
	_, err = rs.Put(context.Background(), "a", rec("a", "x", time.Now()), 1)
	assert.Error(t, err)
}

func TestNewStoreFallsBackToMemory(t *testing.T) {
	s, err := NewStore("127.0.0.1:1", "", nil)
	require.NoError(t, err)
	defer s.Close()

	_, isMemory := s.Cache.(*MemoryStore)
	assert.True(t, isMemory)
	assert.Nil(t, s.Archive)
}

func TestNewStoreUsesRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := NewStore(mr.Addr(), "", nil)
	require.NoError(t, err)
	defer s.Close()

	_, isRedis := s.Cache.(*RedisStore)
	assert.True(t, isRedis)
}

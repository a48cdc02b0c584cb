// Package storage 保存每个源最近一次成功抓取的结果，用于抓取失败时的兜底展示
package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/LJTian/PautaFacil/internal/headline"
	"github.com/LJTian/PautaFacil/internal/logger"
	"github.com/redis/go-redis/v9"
)

// Entry 某个源最近一次成功的结果
type Entry struct {
	Record     headline.Record `json:"record"`
	Cycle      uint64          `json:"cycle"`
	CapturedAt time.Time       `json:"capturedAt"`
}

// Cache 以源 ID 为键的结果缓存。Put 带单调递增的轮次保护：
// 轮次小于已存值的写入会被忽略（返回 false），旧的刷新不会覆盖新的结果。
type Cache interface {
	Get(ctx context.Context, sourceID string) (Entry, bool, error)
	Put(ctx context.Context, sourceID string, rec headline.Record, cycle uint64) (bool, error)
	Clear(ctx context.Context) error
	Entries(ctx context.Context) (map[string]Entry, error)
}

// MemoryStore 进程内缓存，重启即丢失
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry), now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, sourceID string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[sourceID]
	return e, ok, nil
}

func (m *MemoryStore) Put(_ context.Context, sourceID string, rec headline.Record, cycle uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.entries[sourceID]; ok && old.Cycle > cycle {
		return false, nil
	}
	m.entries[sourceID] = newEntry(rec, cycle, m.now())
	return true, nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	m.entries = make(map[string]Entry)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Entries(_ context.Context) (map[string]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Entry, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out, nil
}

func newEntry(rec headline.Record, cycle uint64, now time.Time) Entry {
	captured := rec.FetchedAt
	if captured.IsZero() {
		captured = now
	}
	rec.Freshness = headline.Fresh
	return Entry{Record: rec, Cycle: cycle, CapturedAt: captured}
}

// Store 组合缓存与可选的历史归档
type Store struct {
	Cache   Cache
	Archive *Archive // POSTGRES_DSN 为空时为 nil
	redis   *redis.Client
}

// NewStore redisAddr 为空时使用内存缓存；dsn 为空时不启用归档
func NewStore(redisAddr, dsn string, log logger.Interface) (*Store, error) {
	if log == nil {
		log = logger.NewNop()
	}
	s := &Store{Cache: NewMemoryStore()}

	if redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			// Redis 不可用时退回内存缓存，不阻止启动
			log.Warn("redis ping failed, using in-memory cache", "addr", redisAddr, "error", err)
			_ = rdb.Close()
		} else {
			s.Cache = NewRedisStore(rdb)
			s.redis = rdb
			log.Info("result cache backed by redis", "addr", redisAddr)
		}
	}

	if dsn != "" {
		a, err := OpenArchive(dsn)
		if err != nil {
			return nil, fmt.Errorf("open archive: %w", err)
		}
		s.Archive = a
		log.Info("headline archive enabled")
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}

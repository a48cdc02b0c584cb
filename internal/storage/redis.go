package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/LJTian/PautaFacil/internal/headline"
	"github.com/redis/go-redis/v9"
)

// CacheKey 所有源的结果放在同一个 hash 里，field 为源 ID，不设过期时间
const CacheKey = "pautafacil:cache"

const maxTxRetries = 5

// RedisStore 使缓存在进程重启后仍然可用
type RedisStore struct {
	rdb *redis.Client
	key string
	now func() time.Time
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, key: CacheKey, now: time.Now}
}

func (r *RedisStore) Get(ctx context.Context, sourceID string) (Entry, bool, error) {
	bs, err := r.rdb.HGet(ctx, r.key, sourceID).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	var e Entry
	if err := json.Unmarshal(bs, &e); err != nil {
		return Entry{}, false, fmt.Errorf("decode cache entry %s: %w", sourceID, err)
	}
	return e, true, nil
}

// Put 用 WATCH/MULTI 保证轮次检查与写入之间没有其他写入插进来
func (r *RedisStore) Put(ctx context.Context, sourceID string, rec headline.Record, cycle uint64) (bool, error) {
	data, err := json.Marshal(newEntry(rec, cycle, r.now()))
	if err != nil {
		return false, err
	}

	var stored bool
	txf := func(tx *redis.Tx) error {
		stored = false
		bs, err := tx.HGet(ctx, r.key, sourceID).Bytes()
		switch {
		case err == nil:
			var old Entry
			if json.Unmarshal(bs, &old) == nil && old.Cycle > cycle {
				return nil
			}
		case !errors.Is(err, redis.Nil):
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, r.key, sourceID, data)
			return nil
		})
		if err == nil {
			stored = true
		}
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err = r.rdb.Watch(ctx, txf, r.key)
		if !errors.Is(err, redis.TxFailedErr) {
			return stored, err
		}
	}
	return false, fmt.Errorf("cache put %s: %w", sourceID, err)
}

func (r *RedisStore) Clear(ctx context.Context) error {
	return r.rdb.Del(ctx, r.key).Err()
}

// Entries 跳过无法解码的条目
func (r *RedisStore) Entries(ctx context.Context) (map[string]Entry, error) {
	raw, err := r.rdb.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]Entry, len(raw))
	for id, v := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			continue
		}
		out[id] = e
	}
	return out, nil
}

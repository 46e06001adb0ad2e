package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"OptionsSentinel/internal/model"
)

// RedisStore keeps each record as a JSON string under "options_data:<date>"
// and indexes dates in a sorted set so the latest can be found lexically.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects to addr and verifies the connection.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

func recordKey(date string) string { return Collection + ":" + date }

func indexKey() string { return Collection + ":dates" }

func (r *RedisStore) Get(ctx context.Context, date string) (*model.DailyRecord, error) {
	data, err := r.rdb.Get(ctx, recordKey(date)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", date, err)
	}
	var rec model.DailyRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", date, err)
	}
	return normalize(&rec), nil
}

func (r *RedisStore) Latest(ctx context.Context) (*model.DailyRecord, error) {
	// All members share score 0, so ordering falls back to the member string.
	dates, err := r.rdb.ZRevRangeByLex(ctx, indexKey(), &redis.ZRangeBy{
		Min: "-", Max: "+", Count: 1,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis latest: %w", err)
	}
	if len(dates) == 0 {
		return nil, ErrNotFound
	}
	return r.Get(ctx, dates[0])
}

func (r *RedisStore) Set(ctx context.Context, rec *model.DailyRecord) error {
	data, err := json.Marshal(normalize(rec))
	if err != nil {
		return fmt.Errorf("encode %s: %w", rec.Date, err)
	}
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, recordKey(rec.Date), data, 0)
		pipe.ZAdd(ctx, indexKey(), redis.Z{Score: 0, Member: rec.Date})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", rec.Date, err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.rdb.Close()
}

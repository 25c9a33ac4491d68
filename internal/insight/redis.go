package insight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ahmadfadadm/indostock-ai/internal/model"
)

var _ Cache = (*RedisCache)(nil)

// RedisCache shares narratives between replicas. Keys expire after one hour,
// so at most the current and previous bucket are ever resident.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisCache connects to addr and verifies the connection.
func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return NewRedisCacheWithClient(client, time.Now), nil
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(client *redis.Client, now func() time.Time) *RedisCache {
	return &RedisCache{client: client, ttl: time.Hour, now: now}
}

func (c *RedisCache) key(code string) string {
	return fmt.Sprintf("insight:%s:%s", code, HourBucket(c.now()))
}

// Get treats any Redis failure as a miss.
func (c *RedisCache) Get(ctx context.Context, code string) (model.InsightRecord, bool) {
	data, err := c.client.Get(ctx, c.key(code)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("[WARN] insight cache get %s: %v", code, err)
		}
		return model.InsightRecord{}, false
	}
	var rec model.InsightRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Printf("[WARN] insight cache decode %s: %v", code, err)
		return model.InsightRecord{}, false
	}
	return rec, true
}

func (c *RedisCache) Put(ctx context.Context, code string, rec model.InsightRecord) {
	if rec.FetchedAtBucket == "" {
		rec.FetchedAtBucket = HourBucket(c.now())
	}
	data, err := json.Marshal(rec)
	if err != nil {
		log.Printf("[WARN] insight cache encode %s: %v", code, err)
		return
	}
	if err := c.client.Set(ctx, c.key(code), data, c.ttl).Err(); err != nil {
		log.Printf("[WARN] insight cache put %s: %v", code, err)
	}
}

func (c *RedisCache) Close() error { return c.client.Close() }

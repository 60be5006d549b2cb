package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/itemhub/action-analytics/internal/cache"
	"github.com/itemhub/action-analytics/internal/model"
)

const (
	exportQueueKey    = "export:queue"
	exportInFlightKey = "export:inflight:%s"

	popTimeout = 2 * time.Second
)

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Ping Redis to check the connection
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cannot connect to Redis at %s: %w", addr, err)
	}

	return &RedisCache{client: rdb}, nil
}

func (r *RedisCache) PushExportTask(ctx context.Context, task model.ExportTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal export task: %w", err)
	}
	return r.client.LPush(ctx, exportQueueKey, payload).Err()
}

func (r *RedisCache) PopExportTask(ctx context.Context) (model.ExportTask, error) {
	var task model.ExportTask

	res, err := r.client.BRPop(ctx, popTimeout, exportQueueKey).Result()
	if err != nil {
		if err == redis.Nil {
			return task, cache.ErrQueueEmpty
		}
		return task, err
	}
	// BRPop returns [key, value].
	if len(res) != 2 {
		return task, fmt.Errorf("unexpected BRPOP reply: %v", res)
	}
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		return task, fmt.Errorf("unmarshal export task: %w", err)
	}
	return task, nil
}

func (r *RedisCache) MarkExportInFlight(ctx context.Context, taskID string, ttl time.Duration) (bool, error) {
	key := inFlightKey(taskID)
	return r.client.SetNX(ctx, key, "1", ttl).Result()
}

func (r *RedisCache) ClearExportInFlight(ctx context.Context, taskID string) error {
	return r.client.Del(ctx, inFlightKey(taskID)).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

// helper to standardize keys
func inFlightKey(taskID string) string {
	return fmt.Sprintf(exportInFlightKey, taskID)
}

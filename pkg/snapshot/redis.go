package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "windlass:snapshot:"

// RedisStore persists snapshots in Redis, delegating TTL enforcement to the
// server's native key expiry.
type RedisStore struct {
	client redis.UniversalClient
	logger *slog.Logger
}

func NewRedisStore(ctx context.Context, logger *slog.Logger, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisStore{
		client: client,
		logger: logger.With("module", "snapshot_redis"),
	}, nil
}

func (s *RedisStore) Save(ctx context.Context, snap *Snapshot, ttl time.Duration) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return saveError(snap.ExecutionID, err)
	}

	if err := s.client.Set(ctx, redisKeyPrefix+snap.ExecutionID, payload, ttl).Err(); err != nil {
		return saveError(snap.ExecutionID, err)
	}

	return nil
}

func (s *RedisStore) Load(ctx context.Context, executionID string) (*Snapshot, error) {
	payload, err := s.client.Get(ctx, redisKeyPrefix+executionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, loadError(executionID, ErrSnapshotNotFound)
		}

		return nil, loadError(executionID, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, loadError(executionID, err)
	}

	return &snap, nil
}

func (s *RedisStore) Delete(ctx context.Context, executionID string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+executionID).Err(); err != nil {
		return &SnapshotError{Op: "Delete", ExecutionID: executionID, Err: err}
	}

	return nil
}

func (s *RedisStore) Close(_ context.Context) error {
	return s.client.Close()
}

// Package history persists completed conversation turns to durable
// storage. Writes are fire-and-forget from the request path: the usecases
// log failures and never let them affect the HTTP response.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/tsubouchi/vn-offshore-apiserver/internal/config"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/domain"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/domain/entity"
)

// RedisRepository stores each conversation as a Redis list of turn records
// with a rolling TTL.
type RedisRepository struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisRepository creates a Redis-backed history repository.
func NewRedisRepository(cfg config.HistoryConfig, logger *slog.Logger) *RedisRepository {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	logger.Info("history repository created", "addr", cfg.Addr, "db", cfg.DB)

	return &RedisRepository{
		client: client,
		ttl:    cfg.TTL,
		logger: logger,
	}
}

type turnRecord struct {
	User      entity.Message `json:"user"`
	Assistant entity.Message `json:"assistant"`
}

// AppendTurn appends one completed user/assistant pair to the conversation
// log and refreshes the log's TTL.
func (r *RedisRepository) AppendTurn(ctx context.Context, conversationID string, user, assistant entity.Message) error {
	if conversationID == "" {
		return nil // anonymous one-shot, nothing to persist under
	}

	payload, err := sonic.Marshal(turnRecord{User: user, Assistant: assistant})
	if err != nil {
		return fmt.Errorf("failed to marshal turn: %w", err)
	}

	key := "conversation:" + conversationID
	pipe := r.client.Pipeline()
	pipe.RPush(ctx, key, payload)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append turn to %s: %w", key, err)
	}
	return nil
}

// Ping checks connectivity for the readiness probe.
func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (r *RedisRepository) Close() error {
	return r.client.Close()
}

var _ domain.HistoryRepository = (*RedisRepository)(nil)

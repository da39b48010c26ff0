package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SavioJohny/delivery-website/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// TranscriptCache caches whole transcripts per chat owner.
type TranscriptCache interface {
	Get(ctx context.Context, ownerID string) ([]domain.ChatMessage, error)
	Set(ctx context.Context, ownerID string, messages []domain.ChatMessage, ttl time.Duration) error
	Delete(ctx context.Context, ownerID string) error
	Close() error
}

// RedisConfig holds the connection settings of the transcript cache.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RedisTranscriptCache stores a transcript as one JSON value under
// "<prefix>:<ownerID>".
type RedisTranscriptCache struct {
	client *redis.Client
	prefix string
}

// NewRedisTranscriptCache connects and pings the server.
func NewRedisTranscriptCache(cfg RedisConfig, prefix string) (*RedisTranscriptCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisTranscriptCacheWithClient(client, prefix), nil
}

func NewRedisTranscriptCacheWithClient(client *redis.Client, prefix string) *RedisTranscriptCache {
	if prefix == "" {
		prefix = "chat:transcript"
	}
	return &RedisTranscriptCache{client: client, prefix: prefix}
}

func (c *RedisTranscriptCache) Key(ownerID string) string {
	return fmt.Sprintf("%s:%s", c.prefix, ownerID)
}

func (c *RedisTranscriptCache) Get(ctx context.Context, ownerID string) ([]domain.ChatMessage, error) {
	data, err := c.client.Get(ctx, c.Key(ownerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var messages []domain.ChatMessage
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}
	return messages, nil
}

func (c *RedisTranscriptCache) Set(ctx context.Context, ownerID string, messages []domain.ChatMessage, ttl time.Duration) error {
	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}
	if err := c.client.Set(ctx, c.Key(ownerID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}
	return nil
}

func (c *RedisTranscriptCache) Delete(ctx context.Context, ownerID string) error {
	if err := c.client.Del(ctx, c.Key(ownerID)).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

func (c *RedisTranscriptCache) Close() error {
	return c.client.Close()
}

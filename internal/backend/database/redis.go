package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisKeyPrefix = "goimagine:"

// RedisStore keeps records as JSON values in the hash <prefix>metadata.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStoreFromURL connects to a redis URL such as redis://localhost:6379/0.
func NewRedisStoreFromURL(url, prefix string) (*RedisStore, error) {
	if url == "" {
		return nil, fmt.Errorf("redis metadata store requires a connection string")
	}
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis connection string: %w", err)
	}
	return NewRedisStore(redis.NewClient(options), prefix), nil
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &RedisStore{client: client, key: prefix + "metadata"}
}

func (s *RedisStore) Load(ctx context.Context) (map[string]ImageRecord, error) {
	values, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata from redis: %w", err)
	}

	records := make(map[string]ImageRecord, len(values))
	for filename, value := range values {
		var record ImageRecord
		if err := json.Unmarshal([]byte(value), &record); err != nil {
			slog.Warn("skipping corrupt metadata record", "filename", filename, "error", err)
			continue
		}
		record.Filename = filename
		records[filename] = record
	}
	return records, nil
}

func (s *RedisStore) Upsert(ctx context.Context, filename string, record ImageRecord) error {
	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := s.client.HSet(ctx, s.key, filename, value).Err(); err != nil {
		return fmt.Errorf("failed to write metadata to redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, filename string) (ImageRecord, error) {
	value, err := s.client.HGet(ctx, s.key, filename).Result()
	if errors.Is(err, redis.Nil) {
		return ImageRecord{}, ErrRecordNotFound
	}
	if err != nil {
		return ImageRecord{}, fmt.Errorf("failed to read metadata from redis: %w", err)
	}

	var record ImageRecord
	if err := json.Unmarshal([]byte(value), &record); err != nil {
		return ImageRecord{}, fmt.Errorf("%w: %s: %v", ErrCorruptMetadata, filename, err)
	}
	record.Filename = filename
	return record, nil
}

func (s *RedisStore) List(ctx context.Context) ([]ImageRecord, error) {
	records, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return recordsFromMap(records), nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	redislib "github.com/redis/go-redis/v9"

	"github.com/gavinmorrow/hunter-extension-sub000/domain"
	"github.com/gavinmorrow/hunter-extension-sub000/repository"
)

type cacheRepository struct {
	client *redislib.Client
	prefix string
}

// NewCacheRepository creates a Redis-backed cache holding the snapshot and settings
// overrides under prefix. Both values are stored without expiry and overwritten on save.
func NewCacheRepository(client *redislib.Client, prefix string) repository.Store {
	if prefix == "" {
		prefix = "hunter:"
	}
	return &cacheRepository{
		client: client,
		prefix: prefix,
	}
}

func (r *cacheRepository) LoadSnapshot(ctx context.Context) ([]domain.Assignment, error) {
	var entities []domain.Assignment
	if err := r.get(ctx, "snapshot", &entities); err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *cacheRepository) SaveSnapshot(ctx context.Context, entities []domain.Assignment) error {
	return r.set(ctx, "snapshot", entities)
}

func (r *cacheRepository) LoadSettings(ctx context.Context) (map[string]any, error) {
	var overrides map[string]any
	if err := r.get(ctx, "settings", &overrides); err != nil {
		return nil, err
	}
	return overrides, nil
}

func (r *cacheRepository) SaveSettings(ctx context.Context, overrides map[string]any) error {
	return r.set(ctx, "settings", overrides)
}

func (r *cacheRepository) Close() error {
	return r.client.Close()
}

func (r *cacheRepository) get(ctx context.Context, name string, dst any) error {
	result, err := r.client.Get(ctx, r.key(name)).Result()
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil
		}
		return err
	}
	if err := json.Unmarshal([]byte(result), dst); err != nil {
		return domain.WrapError(domain.ErrCodeInternal, "decode "+name, err)
	}
	return nil
}

func (r *cacheRepository) set(ctx context.Context, name string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(name), payload, 0).Err()
}

func (r *cacheRepository) key(name string) string {
	return fmt.Sprintf("%s%s", r.prefix, name)
}

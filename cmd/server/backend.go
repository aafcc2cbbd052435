package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/gavinmorrow/hunter-extension-sub000/internal/config"
	redisInfra "github.com/gavinmorrow/hunter-extension-sub000/internal/infrastructure/redis"
	"github.com/gavinmorrow/hunter-extension-sub000/internal/infrastructure/snapshot"
	"github.com/gavinmorrow/hunter-extension-sub000/repository"
	redisRepo "github.com/gavinmorrow/hunter-extension-sub000/repository/redis"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// openStore opens the configured cache backend and a health probe for it.
func openStore(cfg *config.Config, log *zap.Logger) (repository.Store, pinger, error) {
	switch cfg.Cache.Backend {
	case "redis":
		client, err := redisInfra.NewClient(cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("redis connection failed: %w", err)
		}
		log.Info("cache backend ready", zap.String("backend", "redis"), zap.String("prefix", cfg.Redis.Prefix))
		return redisRepo.NewCacheRepository(client, cfg.Redis.Prefix), redisInfra.Pinger{Client: client}, nil
	default:
		store, err := snapshot.Open(cfg.Cache.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open cache %s: %w", cfg.Cache.Path, err)
		}
		log.Info("cache backend ready", zap.String("backend", "bolt"), zap.String("path", cfg.Cache.Path))
		return store, store, nil
	}
}

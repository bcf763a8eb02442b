package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/courseforge/internal/config"
	"github.com/yungbote/courseforge/internal/generation"
	"github.com/yungbote/courseforge/internal/llm/client"
	"github.com/yungbote/courseforge/internal/llm/router"
	"github.com/yungbote/courseforge/internal/platform/logger"
	"github.com/yungbote/courseforge/internal/services"
)

type Clients struct {
	// Router serves the chat endpoint. Generator drives generation and is
	// either Router or a remote gateway client.
	Router    *router.Router
	Generator generation.Generator
	Redis     *redis.Client
	Archive   services.ChapterArchive
}

func wireClients(ctx context.Context, cfg *config.Config, log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	rt, err := router.NewFromConfig(ctx, cfg.Tiers, log)
	if err != nil {
		return Clients{}, fmt.Errorf("init router: %w", err)
	}
	out := Clients{Router: rt, Generator: rt}

	// Remote gateway
	if cfg.Gateway.BaseURL != "" {
		gw, err := client.New(client.Options{
			BaseURL:    cfg.Gateway.BaseURL,
			Timeout:    cfg.Gateway.Timeout.Duration,
			MaxRetries: 2,
		})
		if err != nil {
			return Clients{}, fmt.Errorf("init gateway client: %w", err)
		}
		out.Generator = gw
		log.Info("generation routed through remote gateway", "base_url", gw.BaseURL())
	}

	// Redis
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		out.Redis = rdb
	}

	// Object store
	if cfg.ObjectStore.Endpoint != "" {
		archive, err := services.NewMinioChapterArchive(ctx, cfg.ObjectStore, log)
		if err != nil {
			if out.Redis != nil {
				_ = out.Redis.Close()
			}
			return Clients{}, fmt.Errorf("init chapter archive: %w", err)
		}
		out.Archive = archive
	}
	return out, nil
}

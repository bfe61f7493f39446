package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/avvvet/theaterbuddy-intent/internal/config"
	"github.com/avvvet/theaterbuddy-intent/internal/handlers"
	"github.com/avvvet/theaterbuddy-intent/internal/intents"
	"github.com/avvvet/theaterbuddy-intent/internal/llm"
	"github.com/avvvet/theaterbuddy-intent/internal/memory"
)

// service holds everything a chat or serve run needs.
type service struct {
	catalog *intents.Catalog
	memory  *memory.Manager
	handler *handlers.IntentHandler
}

func (s *service) Close() error {
	return s.memory.Close()
}

func loadCatalog(path string) (*intents.Catalog, error) {
	if path == "" {
		return intents.Default()
	}
	return intents.LoadFile(path)
}

// newStore uses Redis when REDIS_URL is set, otherwise keeps history in
// process memory.
func newStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (memory.Store, error) {
	if cfg.RedisURL == "" {
		log.Debug("using in-memory session store")
		return memory.NewMemoryStore(), nil
	}

	log.Info("connecting to Redis", zap.String("url", cfg.RedisURL))
	store, err := memory.NewRedisStore(ctx, cfg.RedisURL, cfg.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return store, nil
}

func newService(ctx context.Context, cfg *config.Config, log *zap.Logger) (*service, error) {
	catalog, err := loadCatalog(cfg.CatalogFile)
	if err != nil {
		return nil, err
	}

	store, err := newStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	mem := memory.NewManager(store, cfg.HistoryMaxTurns, log.Named("memory"))

	client, err := llm.NewClientFromConfig(ctx, cfg, log.Named("llm"))
	if err != nil {
		_ = mem.Close()
		return nil, err
	}

	log.Info("intent service ready",
		zap.String("provider", cfg.LLMProvider),
		zap.String("model", cfg.LLMModel),
		zap.Int("intents", len(catalog.Intents)),
		zap.Int("history_max_turns", cfg.HistoryMaxTurns))

	return &service{
		catalog: catalog,
		memory:  mem,
		handler: handlers.NewIntentHandler(client, catalog, mem, log.Named("handler")),
	}, nil
}

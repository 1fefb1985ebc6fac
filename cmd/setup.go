package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/lorewarden/lorewarden/internal/agent"
	"github.com/lorewarden/lorewarden/internal/completion"
	"github.com/lorewarden/lorewarden/internal/config"
	"github.com/lorewarden/lorewarden/internal/knowledge"
	"github.com/lorewarden/lorewarden/internal/log"
	"github.com/lorewarden/lorewarden/internal/session"
)

// runtime bundles the wired application components shared by the serve
// and ask commands.
type runtime struct {
	cfg    *config.Config
	logger log.Logger
	store  *session.FileStore
	agent  *agent.Agent
}

// close releases the session store's snapshot lock.
func (rt *runtime) close() {
	if err := rt.store.Close(); err != nil {
		rt.logger.Warn("closing session store", "error", err)
	}
}

// setup loads configuration and wires knowledge base, session store,
// completion client, and agent.
func setup(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.ValidateCompletion(); err != nil {
		return nil, err
	}

	logger := log.New(log.Config{Level: cfg.SlogLevel(), JSON: cfg.LogJSON})
	slog.SetDefault(logger)

	kb, err := knowledge.Load(cfg.KnowledgePath, logger.With("component", "knowledge"))
	if err != nil {
		return nil, err
	}

	store, err := session.Open(cfg.StorePath, logger.With("component", "store"))
	if err != nil {
		return nil, err
	}

	client, err := completion.NewGemini(ctx, completion.GeminiConfig{
		APIKey:          cfg.GeminiAPIKey,
		Model:           cfg.ModelName,
		Temperature:     cfg.Temperature,
		MaxOutputTokens: int32(cfg.MaxTokens),
		Timeout:         cfg.CompletionTimeout,
		Limiter:         rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		Logger:          logger.With("component", "completion"),
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating completion client: %w", err)
	}

	ag, err := agent.New(agent.Config{
		Store:       store,
		Knowledge:   kb,
		Completions: client,
		Logger:      logger.With("component", "agent"),
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating agent: %w", err)
	}

	return &runtime{cfg: cfg, logger: logger, store: store, agent: ag}, nil
}

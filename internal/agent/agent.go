// Package agent orchestrates one conversation turn: resolve the session,
// build the domain-restricted prompt, invoke the completion capability,
// then persist the paired user/assistant turn.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lorewarden/lorewarden/internal/completion"
	"github.com/lorewarden/lorewarden/internal/knowledge"
	"github.com/lorewarden/lorewarden/internal/log"
	"github.com/lorewarden/lorewarden/internal/prompt"
	"github.com/lorewarden/lorewarden/internal/session"
)

// SessionStore is the persistence capability the agent depends on.
// Interfaces are defined by the consumer: *session.FileStore satisfies
// this in production, tests substitute an in-memory fake.
type SessionStore interface {
	GetOrCreate(ctx context.Context, id string) (*session.Session, error)
	Get(ctx context.Context, id string) (*session.Session, error)
	Append(ctx context.Context, id string, msgs ...session.Message) (*session.Session, error)
}

// Config contains all required parameters for the agent.
type Config struct {
	Store       SessionStore
	Knowledge   *knowledge.Base
	Completions completion.Client
	Logger      log.Logger
}

func (cfg Config) validate() error {
	if cfg.Store == nil {
		return errors.New("session store is required")
	}
	if cfg.Knowledge == nil {
		return errors.New("knowledge base is required")
	}
	if cfg.Completions == nil {
		return errors.New("completion client is required")
	}
	return nil
}

// Turn is the result of one successful Send: the (possibly newly created)
// chat identifier, the model's answer, and whether that answer was a
// domain-restriction refusal.
type Turn struct {
	ChatID  string
	Answer  string
	Refused bool
}

// Agent is the domain-restricted conversation orchestrator.
//
// Agent is stateless apart from its injected dependencies and safe for
// concurrent use; the store provides per-session serialization.
type Agent struct {
	store       SessionStore
	kb          *knowledge.Base
	completions completion.Client
	logger      log.Logger
}

// New creates an Agent.
func New(cfg Config) (*Agent, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	return &Agent{
		store:       cfg.Store,
		kb:          cfg.Knowledge,
		completions: cfg.Completions,
		logger:      logger,
	}, nil
}

// Send runs one conversation turn.
//
// An empty chatID creates a new session; a non-empty unknown one fails
// with session.ErrNotFound. The prompt is built from a snapshot of the
// history taken before the model call, and no store lock is held while the
// call is in flight. On success the user question and the model answer are
// appended as one logical pair; on completion failure nothing is appended
// and the typed error propagates unchanged, so persisted history never
// contains an unpaired user turn or an answer that was never generated.
func (a *Agent) Send(ctx context.Context, chatID, question string) (Turn, error) {
	sess, err := a.store.GetOrCreate(ctx, chatID)
	if err != nil {
		return Turn{}, fmt.Errorf("resolving session: %w", err)
	}

	bundle := prompt.Build(a.kb, sess.Messages, question)

	start := time.Now()
	answer, err := a.completions.Complete(ctx, bundle)
	if err != nil {
		a.logger.Warn("completion failed, turn not recorded",
			"chat_id", sess.ID, "error", err)
		return Turn{}, err
	}

	if _, err := a.store.Append(ctx, sess.ID,
		session.Message{Role: session.RoleUser, Content: question},
		session.Message{Role: session.RoleAssistant, Content: answer},
	); err != nil {
		return Turn{}, fmt.Errorf("persisting turn: %w", err)
	}

	refused := prompt.Refused(answer)
	a.logger.Info("turn completed",
		"chat_id", sess.ID,
		"refused", refused,
		"duration", time.Since(start))

	return Turn{ChatID: sess.ID, Answer: answer, Refused: refused}, nil
}

// History returns the ordered message history for a chat, or
// session.ErrNotFound if the id is unknown.
func (a *Agent) History(ctx context.Context, chatID string) ([]session.Message, error) {
	sess, err := a.store.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return sess.Messages, nil
}

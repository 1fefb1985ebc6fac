package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/lorewarden/lorewarden/internal/log"
	"github.com/lorewarden/lorewarden/internal/prompt"
	"github.com/lorewarden/lorewarden/internal/session"
)

// Default request pacing toward the Gemini API: 10 req/s sustained with a
// burst of 30.
const (
	defaultRateLimit = 10
	defaultRateBurst = 30

	// DefaultTimeout bounds one completion round trip.
	DefaultTimeout = 30 * time.Second
)

// GeminiConfig configures the Gemini-backed completion client.
type GeminiConfig struct {
	APIKey          string
	Model           string
	Temperature     float32
	MaxOutputTokens int32

	// Timeout bounds each Complete call. Zero uses DefaultTimeout.
	Timeout time.Duration

	// Limiter paces outgoing requests. Nil uses the package default.
	Limiter *rate.Limiter

	Logger log.Logger
}

// Gemini is a Client backed by the Gemini API.
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
	timeout     time.Duration
	limiter     *rate.Limiter
	logger      log.Logger
}

// NewGemini creates a Gemini completion client.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("API key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("model name is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Limiter == nil {
		cfg.Limiter = rate.NewLimiter(defaultRateLimit, defaultRateBurst)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &Gemini{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxOutputTokens,
		timeout:     cfg.Timeout,
		limiter:     cfg.Limiter,
		logger:      cfg.Logger,
	}, nil
}

// contentRole maps a conversation role onto the genai wire role. Assistant
// turns travel as the model role, everything else as the user role.
func contentRole(r session.Role) genai.Role {
	if r == session.RoleAssistant {
		return genai.RoleModel
	}
	return genai.RoleUser
}

// Complete sends the bundle to the model and returns its text answer.
//
// Failures map to the package taxonomy: deadline or cancellation →
// ErrTimeout, everything else (transport, auth, quota, empty candidate) →
// ErrUnavailable. A refusal-phrase answer is a success and passes through
// untouched.
func (g *Gemini) Complete(ctx context.Context, bundle prompt.Bundle) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: rate limit wait: %v", ErrTimeout, err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	contents := make([]*genai.Content, 0, len(bundle.Turns))
	for _, turn := range bundle.Turns {
		contents = append(contents, genai.NewContentFromText(turn.Text, contentRole(turn.Role)))
	}

	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(g.temperature),
		MaxOutputTokens:   g.maxTokens,
		SystemInstruction: genai.NewContentFromText(bundle.System, genai.RoleUser),
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%w: empty model response", ErrUnavailable)
	}

	g.logger.Debug("completion finished",
		"model", g.model,
		"turns", len(bundle.Turns),
		"duration", time.Since(start))

	return text, nil
}

// Package completion wraps the external model behind a narrow capability
// interface: prompt bundle in, text out. The rest of the system never sees
// provider types, and provider failures surface as typed errors distinct
// from model-generated refusals.
package completion

import (
	"context"
	"errors"

	"github.com/lorewarden/lorewarden/internal/prompt"
)

var (
	// ErrUnavailable indicates the provider could not be reached or
	// rejected the call (network, auth, quota).
	ErrUnavailable = errors.New("completion unavailable")

	// ErrTimeout indicates the call exceeded its bounded wait.
	ErrTimeout = errors.New("completion timed out")
)

// Client is the completion capability. Implementations must not retry
// internally; retry policy belongs to the caller's transport layer.
type Client interface {
	Complete(ctx context.Context, bundle prompt.Bundle) (string, error)
}

// Package knowledge loads and holds the immutable text corpus that
// constrains every answer the agent produces.
//
// The corpus is read once at process start and treated as fixed for the
// process lifetime. There is no reload path: changing the file on disk has
// no effect until the next restart.
package knowledge

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/lorewarden/lorewarden/internal/log"
)

// ErrUnavailable indicates the knowledge base source is missing or
// unreadable. This is fatal at startup: the agent must not serve without
// its corpus.
var ErrUnavailable = errors.New("knowledge base unavailable")

// Base is the immutable knowledge corpus shared read-only by all sessions.
type Base struct {
	text string
}

// Load reads the corpus from path.
//
// An empty file is accepted (the agent will refuse every question) but
// logged as a warning since it is almost certainly a misconfiguration.
func Load(path string, logger log.Logger) (*Base, error) {
	if logger == nil {
		logger = log.NewNop()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrUnavailable, path, err)
	}

	b := &Base{text: string(data)}
	if strings.TrimSpace(b.text) == "" {
		logger.Warn("knowledge base is empty, all questions will be refused", "path", path)
	} else {
		logger.Info("knowledge base loaded", "path", path, "bytes", b.Len())
	}

	return b, nil
}

// Text returns the full corpus text.
func (b *Base) Text() string {
	return b.text
}

// Len returns the corpus size in bytes.
func (b *Base) Len() int {
	return len(b.text)
}

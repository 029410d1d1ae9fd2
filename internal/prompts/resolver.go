package prompts

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// Resolver resolves prompts with book-level overrides.
// Resolution order: override file > embedded default.
type Resolver struct {
	dir      string // base directory for override files; empty disables overrides
	embedded map[string]EmbeddedPrompt
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewResolver creates a new prompt resolver. dir is the base directory
// holding per-book override files (<dir>/<bookID>/<key>.tmpl).
func NewResolver(dir string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		dir:      dir,
		embedded: make(map[string]EmbeddedPrompt),
		logger:   logger,
	}
}

// Register registers an embedded prompt.
// This should be called during initialization by each analysis kind.
func (r *Resolver) Register(prompt EmbeddedPrompt) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prompt.Hash == "" {
		prompt.Hash = HashText(prompt.Text)
	}
	if prompt.Variables == nil {
		prompt.Variables = ExtractVariables(prompt.Text)
	}

	r.embedded[prompt.Key] = prompt
	r.logger.Debug("registered embedded prompt", "key", prompt.Key, "vars", prompt.Variables)
}

// Resolve resolves a prompt for a specific book.
// Returns the book override if one exists, otherwise the embedded default.
func (r *Resolver) Resolve(key string, bookID int64) (*ResolvedPrompt, error) {
	if bookID > 0 && r.dir != "" {
		path := filepath.Join(r.dir, strconv.FormatInt(bookID, 10), key+".tmpl")
		if data, err := os.ReadFile(path); err == nil {
			text := string(data)
			return &ResolvedPrompt{
				Key:        key,
				Text:       text,
				Variables:  ExtractVariables(text),
				IsOverride: true,
			}, nil
		}
	}

	r.mu.RLock()
	embedded, ok := r.embedded[key]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("prompt not found: %s", key)
	}

	return &ResolvedPrompt{
		Key:       key,
		Text:      embedded.Text,
		Variables: embedded.Variables,
	}, nil
}

// GetEmbedded returns the embedded default for a key (no book resolution).
func (r *Resolver) GetEmbedded(key string) (*EmbeddedPrompt, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.embedded[key]
	return &p, ok
}

// AllEmbedded returns all registered embedded prompts.
func (r *Resolver) AllEmbedded() []EmbeddedPrompt {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]EmbeddedPrompt, 0, len(r.embedded))
	for _, p := range r.embedded {
		result = append(result, p)
	}
	return result
}

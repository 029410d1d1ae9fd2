// Package checkpoint persists in-progress analysis state so a chapter task
// killed mid-book resumes from its last completed batch instead of starting
// over. Checkpointing is a best-effort optimization: losing a checkpoint
// costs recompute, never correctness.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// DefaultExpiry is how long a checkpoint stays resumable.
const DefaultExpiry = 24 * time.Hour

// Checkpoint is a durable snapshot of pipeline progress for one
// (book, chapter) pair. State carries the task kind's serialized
// accumulator; the manager treats it as opaque.
type Checkpoint[S any] struct {
	BookID      int64  `json:"book_id"`
	ChapterID   int64  `json:"chapter_id"`
	ContentHash string `json:"content_hash"`
	Timestamp   int64  `json:"timestamp"` // epoch millis of the last save
	BatchCursor int    `json:"batch_cursor"`
	State       S      `json:"state"`
}

// SaveOutcome reports a checkpoint write. Failures are deliberate
// non-errors: the caller may log the diagnostic and must proceed either way.
type SaveOutcome struct {
	OK  bool
	Err error
}

// Manager persists, loads, and invalidates checkpoints under a single
// directory. Use one Manager per task kind so kinds checkpoint
// independently. Exclusive access per (book, chapter) is the caller's
// responsibility.
type Manager[S any] struct {
	dir    string
	expiry time.Duration
	logger *slog.Logger
}

// Option configures a Manager.
type Option func(*options)

type options struct {
	expiry time.Duration
	logger *slog.Logger
}

// WithExpiry overrides the default 24h checkpoint expiry.
func WithExpiry(d time.Duration) Option {
	return func(o *options) { o.expiry = d }
}

// WithLogger sets the logger used for self-healing diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// NewManager creates a checkpoint manager over dir, creating it if needed.
func NewManager[S any](dir string, opts ...Option) (*Manager[S], error) {
	o := options{expiry: DefaultExpiry, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}
	return &Manager[S]{dir: dir, expiry: o.expiry, logger: o.logger}, nil
}

// Dir returns the directory this manager stores checkpoints in.
func (m *Manager[S]) Dir() string {
	return m.dir
}

// Expiry returns the configured checkpoint expiry.
func (m *Manager[S]) Expiry() time.Duration {
	return m.expiry
}

// Load returns the checkpoint for (bookID, chapterID), or nil when no valid
// one exists. A checkpoint that is expired, was written for different
// content, or fails to decode is deleted as a side effect: Load never
// returns a checkpoint known to be stale.
func (m *Manager[S]) Load(bookID, chapterID int64, contentHash string) *Checkpoint[S] {
	path := m.path(bookID, chapterID)

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			m.logger.Warn("checkpoint unreadable, discarding",
				"path", path, "error", err)
			m.remove(path)
		}
		return nil
	}

	var cp Checkpoint[S]
	if err := json.Unmarshal(data, &cp); err != nil {
		m.logger.Warn("checkpoint corrupt, discarding", "path", path, "error", err)
		m.remove(path)
		return nil
	}

	if cp.ContentHash != contentHash {
		m.logger.Info("checkpoint content hash mismatch, discarding",
			"book_id", bookID, "chapter_id", chapterID,
			"stored", cp.ContentHash, "current", contentHash)
		m.remove(path)
		return nil
	}

	age := time.Since(time.UnixMilli(cp.Timestamp))
	if age > m.expiry {
		m.logger.Info("checkpoint expired, discarding",
			"book_id", bookID, "chapter_id", chapterID, "age", age)
		m.remove(path)
		return nil
	}

	return &cp
}

// Save writes a checkpoint atomically: content goes to a temporary file
// first and is then renamed over the canonical name, so a crash mid-write
// can never leave a corrupt checkpoint that Load would accept. Failures are
// swallowed into the returned outcome.
func (m *Manager[S]) Save(cp Checkpoint[S]) SaveOutcome {
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return m.saveFailed("encode checkpoint", err, cp)
	}

	path := m.path(cp.BookID, cp.ChapterID)
	tmp := path + ".tmp"

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return m.saveFailed("open temp checkpoint", err, cp)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		m.remove(tmp)
		return m.saveFailed("write temp checkpoint", err, cp)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		m.remove(tmp)
		return m.saveFailed("sync temp checkpoint", err, cp)
	}
	if err := f.Close(); err != nil {
		m.remove(tmp)
		return m.saveFailed("close temp checkpoint", err, cp)
	}
	if err := os.Rename(tmp, path); err != nil {
		m.remove(tmp)
		return m.saveFailed("publish checkpoint", err, cp)
	}

	return SaveOutcome{OK: true}
}

// Delete removes the checkpoint for (bookID, chapterID) if present.
func (m *Manager[S]) Delete(bookID, chapterID int64) {
	m.remove(m.path(bookID, chapterID))
}

// Exists reports whether a checkpoint file exists for (bookID, chapterID).
// It does not validate hash or expiry.
func (m *Manager[S]) Exists(bookID, chapterID int64) bool {
	_, err := os.Stat(m.path(bookID, chapterID))
	return err == nil
}

// List returns every checkpoint file currently under the manager's
// directory, decoded. Invalid files are skipped.
func (m *Manager[S]) List() []Checkpoint[S] {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil
	}
	var out []Checkpoint[S]
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(m.dir, e.Name()))
		if err != nil {
			continue
		}
		var cp Checkpoint[S]
		if err := json.Unmarshal(data, &cp); err != nil {
			continue
		}
		out = append(out, cp)
	}
	return out
}

func (m *Manager[S]) path(bookID, chapterID int64) string {
	return filepath.Join(m.dir, fmt.Sprintf("book_%d_chapter_%d.json", bookID, chapterID))
}

func (m *Manager[S]) remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		m.logger.Warn("failed to remove checkpoint", "path", path, "error", err)
	}
}

func (m *Manager[S]) saveFailed(op string, err error, cp Checkpoint[S]) SaveOutcome {
	wrapped := fmt.Errorf("%s: %w", op, err)
	m.logger.Warn("checkpoint save failed",
		"book_id", cp.BookID, "chapter_id", cp.ChapterID, "error", wrapped)
	return SaveOutcome{Err: wrapped}
}

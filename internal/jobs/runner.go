// Package jobs runs analysis over ingested books: one job per book,
// kinds in canonical order, chapter tasks with bounded concurrency.
// A process-level file lock keeps two storyteller processes from
// analyzing against the same home directory at once.
package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"storyteller/internal/analysis"
	"storyteller/internal/analysis/checkpoint"
	"storyteller/internal/config"
	"storyteller/internal/home"
	"storyteller/internal/llmcall"
	"storyteller/internal/persist"
	"storyteller/internal/prompts"
	"storyteller/internal/providers"
	"storyteller/internal/store"
)

// ErrBusy is returned when a book already has an analysis job running.
var ErrBusy = errors.New("analysis already running for this book")

// ErrLocked is returned when another process holds the home lock.
var ErrLocked = errors.New("another storyteller process is running analysis")

// TaskStatus describes one running or finished chapter task.
type TaskStatus struct {
	BookID    int64         `json:"book_id"`
	ChapterID int64         `json:"chapter_id"`
	Kind      analysis.Kind `json:"kind"`
	State     string        `json:"state"` // running, completed, failed
	Resumed   bool          `json:"resumed,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Error     string        `json:"error,omitempty"`
}

// Deps bundles the services a Runner needs.
type Deps struct {
	Store      *store.Store
	Engines    *providers.Registry
	Config     *config.Config
	Home       *home.Dir
	Persisters *persist.Registry
	Resolver   *prompts.Resolver
	Recorder   *llmcall.Recorder
	Logger     *slog.Logger
}

// Runner executes analysis jobs. One job per book at a time; chapter
// tasks within a kind run concurrently up to MaxWorkers.
type Runner struct {
	deps   Deps
	logger *slog.Logger

	flock *flock.Flock

	mu       sync.Mutex
	inflight map[int64]bool        // book id -> job running
	statuses map[string]TaskStatus // keyed by book/chapter/kind

	managers   map[analysis.Kind]*checkpoint.Manager[json.RawMessage]
	managersMu sync.Mutex
}

// NewRunner creates an analysis job runner.
func NewRunner(deps Deps) *Runner {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var fl *flock.Flock
	if deps.Home != nil {
		fl = flock.New(deps.Home.LockPath())
	}
	return &Runner{
		deps:     deps,
		logger:   logger,
		flock:    fl,
		inflight: make(map[int64]bool),
		statuses: make(map[string]TaskStatus),
		managers: make(map[analysis.Kind]*checkpoint.Manager[json.RawMessage]),
	}
}

// Busy reports whether a job is running for the book.
func (r *Runner) Busy(bookID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inflight[bookID]
}

// Statuses returns a snapshot of task statuses, stable ordered.
func (r *Runner) Statuses() []TaskStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]TaskStatus, 0, len(r.statuses))
	for _, st := range r.statuses {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BookID != out[j].BookID {
			return out[i].BookID < out[j].BookID
		}
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].ChapterID < out[j].ChapterID
	})
	return out
}

// Running returns only the tasks still in flight.
func (r *Runner) Running() []TaskStatus {
	var running []TaskStatus
	for _, st := range r.Statuses() {
		if st.State == "running" {
			running = append(running, st)
		}
	}
	return running
}

// acquire marks a book job as running, failing fast when one already is
// or when another process holds the home lock.
func (r *Runner) acquire(bookID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inflight[bookID] {
		return ErrBusy
	}

	if r.flock != nil && len(r.inflight) == 0 {
		locked, err := r.flock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire home lock: %w", err)
		}
		if !locked {
			return ErrLocked
		}
	}

	r.inflight[bookID] = true
	return nil
}

// release clears the book job and drops the process lock when this was
// the last one.
func (r *Runner) release(bookID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.inflight, bookID)
	if r.flock != nil && len(r.inflight) == 0 {
		_ = r.flock.Unlock()
	}
}

// CheckpointInfo describes one resumable checkpoint on disk.
type CheckpointInfo struct {
	Kind        analysis.Kind `json:"kind"`
	BookID      int64         `json:"book_id"`
	ChapterID   int64         `json:"chapter_id"`
	BatchCursor int           `json:"batch_cursor"`
	SavedAt     time.Time     `json:"saved_at"`
}

// Checkpoints lists every resumable checkpoint across all kinds.
func (r *Runner) Checkpoints() ([]CheckpointInfo, error) {
	var infos []CheckpointInfo
	for _, kind := range analysis.Kinds() {
		mgr, err := r.checkpointManager(kind)
		if err != nil {
			return nil, err
		}
		for _, cp := range mgr.List() {
			infos = append(infos, CheckpointInfo{
				Kind:        kind,
				BookID:      cp.BookID,
				ChapterID:   cp.ChapterID,
				BatchCursor: cp.BatchCursor,
				SavedAt:     time.UnixMilli(cp.Timestamp),
			})
		}
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].BookID != infos[j].BookID {
			return infos[i].BookID < infos[j].BookID
		}
		if infos[i].Kind != infos[j].Kind {
			return infos[i].Kind < infos[j].Kind
		}
		return infos[i].ChapterID < infos[j].ChapterID
	})
	return infos, nil
}

// DeleteCheckpoint discards one checkpoint so the next run starts fresh.
func (r *Runner) DeleteCheckpoint(kind analysis.Kind, bookID, chapterID int64) error {
	mgr, err := r.checkpointManager(kind)
	if err != nil {
		return err
	}
	mgr.Delete(bookID, chapterID)
	return nil
}

// checkpointManager returns the per-kind checkpoint manager, creating
// it on first use against the home checkpoint layout.
func (r *Runner) checkpointManager(kind analysis.Kind) (*checkpoint.Manager[json.RawMessage], error) {
	r.managersMu.Lock()
	defer r.managersMu.Unlock()

	if mgr, ok := r.managers[kind]; ok {
		return mgr, nil
	}
	if r.deps.Home == nil {
		return nil, fmt.Errorf("no home directory configured")
	}

	opts := []checkpoint.Option{checkpoint.WithLogger(r.logger)}
	if hours := r.deps.Config.Checkpoints.ExpiryHours; hours > 0 {
		opts = append(opts, checkpoint.WithExpiry(time.Duration(hours)*time.Hour))
	}

	mgr, err := checkpoint.NewManager[json.RawMessage](r.deps.Home.CheckpointKindPath(string(kind)), opts...)
	if err != nil {
		return nil, fmt.Errorf("checkpoint manager for %s: %w", kind, err)
	}
	r.managers[kind] = mgr
	return mgr, nil
}

// setStatus records or updates one task status.
func (r *Runner) setStatus(st TaskStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := fmt.Sprintf("%d/%d/%s", st.BookID, st.ChapterID, st.Kind)
	r.statuses[key] = st
}

// observer returns the llm call hook, nil when recording is disabled.
func (r *Runner) observer() analysis.CallObserver {
	if r.deps.Recorder == nil {
		return nil
	}
	return r.deps.Recorder.Observer()
}

// engine resolves the configured default engine.
func (r *Runner) engine(name string) (providers.Engine, error) {
	if name == "" {
		name = r.deps.Config.Defaults.Engine
	}
	eng, err := r.deps.Engines.Get(name)
	if err != nil {
		return nil, fmt.Errorf("engine %q: %w", name, err)
	}
	return eng, nil
}

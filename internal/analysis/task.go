package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"

	"storyteller/internal/analysis/checkpoint"
	"storyteller/internal/providers"
)

// Retry policy for one batch inference call: three attempts with
// exponential backoff riding out llama-server slot exhaustion, while a
// persistently failing chapter still aborts within about a minute. The
// last-good checkpoint survives exhaustion, so a later run resumes instead
// of restarting.
const (
	DefaultRetryAttempts  = 3
	DefaultRetryBaseDelay = 2 * time.Second
	retryMaxDelay         = 30 * time.Second
)

// Persister commits a finished accumulator to durable storage. One
// implementation exists per task kind; Persist must be idempotent under
// re-invocation with the same logical data.
type Persister interface {
	// Kind returns the analysis kind this persister handles.
	Kind() Kind

	// Persist reconciles the result with existing records (update-or-
	// insert by identity key within the book) and returns the count of
	// items that actually succeeded. Per-item failures are skipped, not
	// propagated; an error means the store itself failed.
	Persist(ctx context.Context, bookID int64, res Result) (int, error)
}

// CallObserver receives a best-effort record of each inference call.
// Observers must not block; recording failures never fail a batch.
type CallObserver func(res providers.GenerateResult, promptID string, bookID, chapterID int64, err error)

// Task drives one analysis kind over one (book, chapter): it splits
// chapter content into token-budgeted batches, sends each through the
// inference engine, folds results into the accumulator, and checkpoints
// after every batch. A task instance owns its accumulator exclusively;
// callers must never run two tasks for the same (book, chapter, kind)
// concurrently.
type Task struct {
	Definition  Definition
	Engine      providers.Engine
	Checkpoints *checkpoint.Manager[json.RawMessage]
	Persister   Persister

	// Observe is called after every inference attempt when set.
	Observe CallObserver

	Logger *slog.Logger

	// RetryAttempts and RetryBaseDelay override the default batch retry
	// policy when positive.
	RetryAttempts  int
	RetryBaseDelay time.Duration
}

// Outcome summarizes a completed task run.
type Outcome struct {
	Kind       Kind  `json:"kind"`
	BookID     int64 `json:"book_id"`
	ChapterID  int64 `json:"chapter_id"`
	Batches    int   `json:"batches"`
	ResumedAt  int   `json:"resumed_at"` // batch cursor restored from a checkpoint, 0 for a fresh run
	Persisted  int   `json:"persisted"`  // items committed by the persister
	EmptyBatch int   `json:"empty_batches"`
}

// Run executes the task for one chapter. Sections carry the chapter's raw
// content, pre-split by the caller. On a transient-exhaustion or persist
// failure the last-good checkpoint is left in place so a retry resumes
// rather than restarts; fatal engine and store errors propagate.
func (t *Task) Run(ctx context.Context, bookID, chapterID int64, sections []Section) (*Outcome, error) {
	logger := t.logger().With(
		"kind", t.Definition.PromptID(),
		"book_id", bookID,
		"chapter_id", chapterID,
	)

	texts := make([]string, len(sections))
	for i, s := range sections {
		texts[i] = s.Text
	}
	contentHash := checkpoint.ComputeContentHash(texts)

	batches := t.Definition.Partition(sections)
	acc := t.Definition.NewAccumulator()
	out := &Outcome{
		Kind:      t.Persister.Kind(),
		BookID:    bookID,
		ChapterID: chapterID,
		Batches:   len(batches),
	}

	// RESUME_CHECK: restore accumulator and cursor from a valid checkpoint.
	cursor := 0
	if cp := t.Checkpoints.Load(bookID, chapterID, contentHash); cp != nil {
		if err := acc.Restore(cp.State); err != nil {
			logger.Warn("checkpoint state unusable, starting fresh", "error", err)
			t.Checkpoints.Delete(bookID, chapterID)
			acc = t.Definition.NewAccumulator()
		} else {
			cursor = cp.BatchCursor
			out.ResumedAt = cursor
			logger.Info("resuming from checkpoint", "batch_cursor", cursor, "batches", len(batches))
		}
	}
	if cursor > len(batches) {
		cursor = len(batches)
	}

	// BATCH_PROCESSING: strictly in order; later batches may depend on
	// state accumulated from earlier ones.
	for ; cursor < len(batches); cursor++ {
		// Cancellation is cooperative and lands between batches only,
		// never mid-inference-call.
		if err := ctx.Err(); err != nil {
			logger.Info("task cancelled, checkpoint preserved", "batch_cursor", cursor)
			return out, err
		}

		raw, err := t.runBatch(ctx, logger, bookID, chapterID, batches[cursor], acc.Result())
		if err != nil {
			logger.Warn("batch failed after retries, checkpoint preserved",
				"batch_cursor", cursor, "error", err)
			return out, fmt.Errorf("batch %d: %w", cursor, err)
		}

		// Malformed output parses to the kind's empty result: no findings
		// this batch, pipeline proceeds.
		res := t.Definition.ParseResponse(raw)
		acc.Fold(res)

		t.save(logger, bookID, chapterID, contentHash, cursor+1, acc)
	}

	// FINALIZE: the accumulator now holds the complete per-chapter result.
	result := acc.Result()

	// PERSIST: on failure the checkpoint is deliberately kept so a retry
	// of the whole task resumes at FINALIZE without recomputation.
	persisted, err := t.Persister.Persist(ctx, bookID, result)
	if err != nil {
		logger.Warn("persist failed, checkpoint retained", "error", err)
		return out, fmt.Errorf("persist %s: %w", t.Persister.Kind(), err)
	}
	out.Persisted = persisted

	t.Checkpoints.Delete(bookID, chapterID)
	logger.Info("chapter analysis complete", "batches", len(batches), "persisted", persisted)
	return out, nil
}

// runBatch sends one batch through the engine with bounded retries on
// transient errors.
func (t *Task) runBatch(ctx context.Context, logger *slog.Logger, bookID, chapterID int64, batch []Section, accumulated Result) (string, error) {
	in := t.Definition.PrepareInput(batch)
	userPrompt, err := t.Definition.BuildUserPrompt(in, accumulated)
	if err != nil {
		return "", fmt.Errorf("build prompt: %w", err)
	}

	budget := t.Definition.Budget()
	req := providers.GenerateRequest{
		SystemPrompt: t.Definition.SystemPrompt(),
		UserPrompt:   userPrompt,
		MaxTokens:    budget.OutputTokens,
	}

	attempts := t.RetryAttempts
	if attempts <= 0 {
		attempts = DefaultRetryAttempts
	}
	baseDelay := t.RetryBaseDelay
	if baseDelay <= 0 {
		baseDelay = DefaultRetryBaseDelay
	}

	var res providers.GenerateResult
	err = retry.Do(
		func() error {
			var genErr error
			res, genErr = t.Engine.Generate(ctx, req)
			if t.Observe != nil {
				t.Observe(res, t.Definition.PromptID(), bookID, chapterID, genErr)
			}
			return genErr
		},
		retry.Context(ctx),
		retry.Attempts(uint(attempts)),
		retry.Delay(baseDelay),
		retry.MaxDelay(retryMaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(providers.IsTransient),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("transient inference error, retrying",
				"attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// save checkpoints the accumulator after a batch. Failures are logged and
// swallowed: checkpointing is an optimization, losing one only costs
// recompute.
func (t *Task) save(logger *slog.Logger, bookID, chapterID int64, contentHash string, cursor int, acc Accumulator) {
	state, err := acc.Snapshot()
	if err != nil {
		logger.Warn("accumulator snapshot failed, skipping checkpoint", "error", err)
		return
	}
	outcome := t.Checkpoints.Save(checkpoint.Checkpoint[json.RawMessage]{
		BookID:      bookID,
		ChapterID:   chapterID,
		ContentHash: contentHash,
		Timestamp:   time.Now().UnixMilli(),
		BatchCursor: cursor,
		State:       state,
	})
	if !outcome.OK {
		logger.Warn("checkpoint save failed", "batch_cursor", cursor, "error", outcome.Err)
	}
}

func (t *Task) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return slog.Default()
}

package analysis

import (
	"storyteller/internal/tokens"
)

// Section is one 0-indexed unit of raw input text: a chapter slice for the
// cross-chapter kinds, or a character block for the voices kind. Prompt text
// shows sections with 1-indexed labels; results are mapped back to 0-indexed
// before they leave a Definition.
type Section struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// PreparedInput is input shaped by a Definition so the total text length
// fits the definition's budget. Sections keep their order; oversized input
// is truncated per section, never dropped wholesale.
type PreparedInput struct {
	Sections []Section `json:"sections"`
}

// TotalChars returns the combined text length across all sections.
func (p PreparedInput) TotalChars() int {
	n := 0
	for _, s := range p.Sections {
		n += len(s.Text)
	}
	return n
}

// Definition is the contract one analysis kind implements: it shapes raw
// text into budgeted prompts and parses raw model output back into a typed
// Result. Definitions are stateless and reused process-wide.
type Definition interface {
	// PromptID returns the stable identifier for this kind's prompts,
	// e.g. "analysis.characters".
	PromptID() string

	// DisplayName returns a human-readable name for status output.
	DisplayName() string

	// Budget returns the token budget this kind shapes input against.
	Budget() tokens.Budget

	// Partition splits raw sections into budget-sized batches, preserving
	// order. Each batch becomes one inference call.
	Partition(sections []Section) [][]Section

	// PrepareInput clips a batch so its total character count fits
	// Budget().MaxInputChars(), distributing the allowance fairly across
	// all sections present.
	PrepareInput(batch []Section) PreparedInput

	// BuildUserPrompt renders the user prompt for a prepared batch. Chapter
	// labels in the rendered text are 1-indexed. The prompt always demands
	// a JSON-only response and spells out the exact schema expected.
	// Context carries roster state for kinds whose prompts embed findings
	// accumulated from earlier batches; it may be nil.
	BuildUserPrompt(in PreparedInput, context Result) (string, error)

	// SystemPrompt returns the fixed system prompt for this kind.
	SystemPrompt() string

	// ResponseSchema returns the JSON schema the model response must match,
	// used for validation during parsing.
	ResponseSchema() map[string]any

	// ParseResponse converts raw model text into this kind's Result.
	// Malformed output is a recoverable condition: on any failure (no JSON
	// found, schema mismatch, type mismatch) the kind's empty result is
	// returned, never an error. Chapter references are converted back to
	// 0-indexed.
	ParseResponse(raw string) Result

	// NewAccumulator returns a fresh merge target for one chapter run.
	NewAccumulator() Accumulator
}

// Accumulator folds per-batch partial results into a running aggregate for
// one (book, chapter) task. It is owned exclusively by the task instance
// processing that chapter and is never accessed concurrently.
type Accumulator interface {
	// Fold merges one batch's partial result into the aggregate. Folding
	// the same partial twice must be idempotent.
	Fold(res Result)

	// Result returns the aggregate as this kind's Result.
	Result() Result

	// Snapshot serializes the aggregate for checkpointing.
	Snapshot() ([]byte, error)

	// Restore replaces the aggregate with a checkpointed snapshot.
	Restore(data []byte) error
}

// Package prompts provides prompt management with embedded defaults and
// per-book overrides, plus the JSON extraction and input-shaping helpers
// shared by all analysis kinds.
//
// Embedded .tmpl files in each kind package are the source of truth for
// defaults. A book-level override file under the prompts directory
// (<dir>/<bookID>/<key>.tmpl) takes precedence when present.
package prompts

// EmbeddedPrompt represents a prompt loaded from an embedded .tmpl file.
type EmbeddedPrompt struct {
	Key         string   // Hierarchical key: analysis.characters.system
	Text        string   // The prompt text (Go template)
	Description string   // Human-readable description
	Variables   []string // Extracted template variables
	Hash        string   // SHA256 hash of the text for change detection
}

// ResolvedPrompt is the result of resolving a prompt for a specific book.
type ResolvedPrompt struct {
	Key        string   `json:"key"`
	Text       string   `json:"text"`
	Variables  []string `json:"variables,omitempty"`
	IsOverride bool     `json:"is_override"` // true if from a book override file
}

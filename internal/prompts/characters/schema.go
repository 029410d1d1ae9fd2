package characters

import "storyteller/internal/analysis"

// ResponseSchema is the JSON schema for the batched character extraction
// response. Keys are character names; value shapes stay loose because small
// models drift between "D"/"dialogs" style keys, and the parser normalizes.
var ResponseSchema = map[string]any{
	"type": "object",
	"additionalProperties": map[string]any{
		"type": "object",
	},
}

// Dialog is one attributed line of speech, page-anchored within a chapter.
// Page is 0-indexed internally.
type Dialog struct {
	Page      int     `json:"page"`
	Text      string  `json:"text"`
	Emotion   string  `json:"emotion,omitempty"`
	Intensity float64 `json:"intensity,omitempty"`
}

// Character carries everything known about one named character. Name is the
// identity key, exact and case-sensitive.
type Character struct {
	Name      string   `json:"name"`
	Traits    []string `json:"traits,omitempty"`
	Voice     string   `json:"voice,omitempty"`
	SpeakerID int      `json:"speaker_id,omitempty"`
	Dialogs   []Dialog `json:"dialogs,omitempty"`
}

// Result is one batch's worth of character findings.
type Result struct {
	Found []Character `json:"found"`
}

// ResultKind implements analysis.Result.
func (Result) ResultKind() analysis.Kind { return analysis.KindCharacters }

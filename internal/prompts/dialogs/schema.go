package dialogs

import "storyteller/internal/analysis"

// SpeakerUnknown is the attribution fallback when no speaker can be
// determined. SpeakerNarrator carries descriptive prose between dialogs.
const (
	SpeakerUnknown  = "Unknown"
	SpeakerNarrator = "Narrator"
)

// Emotions is the closed vocabulary dialog segments are labeled with.
var Emotions = []string{
	"neutral", "happy", "sad", "angry", "surprised",
	"fearful", "excited", "worried", "curious", "defiant",
}

// ResponseSchema is the JSON schema for the dialog attribution response.
var ResponseSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"dialogs": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"page":      map[string]any{"type": "integer"},
					"speaker":   map[string]any{"type": "string"},
					"text":      map[string]any{"type": "string"},
					"emotion":   map[string]any{"type": "string"},
					"intensity": map[string]any{"type": "number"},
				},
				"required": []string{"speaker", "text"},
			},
		},
	},
	"required": []string{"dialogs"},
}

// Dialog is one attributed speech or narration segment. Page is 0-indexed
// internally.
type Dialog struct {
	Page      int     `json:"page"`
	Speaker   string  `json:"speaker"`
	Text      string  `json:"text"`
	Emotion   string  `json:"emotion"`
	Intensity float64 `json:"intensity"`
}

// Result is one batch's worth of attributed dialogs in document order.
type Result struct {
	Dialogs []Dialog `json:"dialogs"`
}

// ResultKind implements analysis.Result.
func (Result) ResultKind() analysis.Kind { return analysis.KindDialogs }

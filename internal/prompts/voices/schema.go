package voices

import "storyteller/internal/analysis"

// ResponseSchema is the JSON schema for the voice profile response.
var ResponseSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"character": map[string]any{"type": "string"},
		"voice_profile": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"pitch":      map[string]any{"type": "number"},
				"speed":      map[string]any{"type": "number"},
				"energy":     map[string]any{"type": "number"},
				"gender":     map[string]any{"type": "string"},
				"age":        map[string]any{"type": "string"},
				"tone":       map[string]any{"type": "string"},
				"accent":     map[string]any{"type": "string"},
				"speaker_id": map[string]any{"type": "integer"},
			},
		},
	},
	"required": []string{"character", "voice_profile"},
}

// VoiceProfile parameterizes a TTS voice. Pitch, Speed and Energy are
// multipliers in [0.5, 1.5]; SpeakerID selects a VCTK voice in [0, 108].
type VoiceProfile struct {
	Pitch     float64 `json:"pitch"`
	Speed     float64 `json:"speed"`
	Energy    float64 `json:"energy"`
	Gender    string  `json:"gender"`
	Age       string  `json:"age"`
	Tone      string  `json:"tone"`
	Accent    string  `json:"accent"`
	SpeakerID int     `json:"speaker_id"`
}

// Profile binds a voice profile to a character name.
type Profile struct {
	Character string       `json:"character"`
	Voice     VoiceProfile `json:"voice_profile"`
}

// Result is one batch's worth of synthesized voice profiles.
type Result struct {
	Profiles []Profile `json:"profiles"`
}

// ResultKind implements analysis.Result.
func (Result) ResultKind() analysis.Kind { return analysis.KindVoices }

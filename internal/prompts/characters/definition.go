package characters

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"storyteller/internal/analysis"
	"storyteller/internal/prompts"
	"storyteller/internal/tokens"
)

const maxRosterNames = 15

// Definition implements analysis.Definition for character extraction.
// Input sections are page-sized slices of one chapter.
type Definition struct {
	budget         tokens.Budget
	systemOverride string
	userOverride   string
}

// New returns the character extraction definition for the given budget.
func New(budget tokens.Budget) *Definition {
	return &Definition{budget: budget}
}

// NewWithOverrides returns a definition using book-level prompt overrides.
// Empty strings fall back to the embedded defaults.
func NewWithOverrides(budget tokens.Budget, system, user string) *Definition {
	return &Definition{budget: budget, systemOverride: system, userOverride: user}
}

func (d *Definition) PromptID() string { return "analysis.characters" }

func (d *Definition) DisplayName() string { return "Character Extraction" }

func (d *Definition) Budget() tokens.Budget { return d.budget }

func (d *Definition) Partition(sections []analysis.Section) [][]analysis.Section {
	return prompts.Partition(sections, d.budget.MaxInputChars())
}

func (d *Definition) PrepareInput(batch []analysis.Section) analysis.PreparedInput {
	return prompts.PrepareSections(batch, d.budget.MaxInputChars())
}

func (d *Definition) SystemPrompt() string {
	if d.systemOverride != "" {
		return d.systemOverride
	}
	return SystemPrompt()
}

func (d *Definition) ResponseSchema() map[string]any { return ResponseSchema }

// BuildUserPrompt renders the batch with 1-indexed PAGE labels and embeds
// the roster of characters accumulated from earlier batches so attribution
// stays consistent across the chapter.
func (d *Definition) BuildUserPrompt(in analysis.PreparedInput, context analysis.Result) (string, error) {
	roster := "[]"
	if prior, ok := context.(Result); ok && len(prior.Found) > 0 {
		names := make([]string, 0, maxRosterNames)
		for _, c := range prior.Found {
			if len(names) == maxRosterNames {
				break
			}
			names = append(names, c.Name)
		}
		encoded, err := json.Marshal(names)
		if err != nil {
			return "", fmt.Errorf("encoding roster: %w", err)
		}
		roster = string(encoded)
	}

	data := UserPromptData{
		Roster: roster,
		Text:   renderPages(in.Sections),
	}
	return UserPromptWithOverride(data, d.userOverride), nil
}

// ParseResponse normalizes the batched character form. Keys within each
// entry are tolerated in several spellings (D/d/dialogs, T/t/traits,
// V/v/voice) and dialog entries may be bare strings or objects. Any failure
// yields the empty result.
func (d *Definition) ParseResponse(raw string) analysis.Result {
	payload, err := prompts.ExtractJSON(raw)
	if err != nil {
		return Result{}
	}
	if err := prompts.ValidateSchema(ResponseSchema, payload); err != nil {
		return Result{}
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(payload, &entries); err != nil {
		return Result{}
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	// Deterministic order for map-keyed input.
	sort.Strings(names)

	var res Result
	for _, name := range names {
		c, ok := normalizeEntry(name, entries[name])
		if !ok {
			continue
		}
		res.Found = append(res.Found, c)
	}
	return res
}

func (d *Definition) NewAccumulator() analysis.Accumulator {
	return NewAccumulated()
}

func normalizeEntry(name string, raw json.RawMessage) (Character, bool) {
	name = strings.TrimSpace(name)
	switch strings.ToLower(name) {
	case "", "unknown", "narrator":
		return Character{}, false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Character{}, false
	}

	c := Character{Name: name}
	for key, val := range fields {
		switch strings.ToLower(key) {
		case "d", "dialogs":
			c.Dialogs = append(c.Dialogs, parseDialogs(val)...)
		case "t", "traits":
			var traits []string
			if err := json.Unmarshal(val, &traits); err == nil {
				for _, t := range traits {
					if t = strings.TrimSpace(t); t != "" {
						c.Traits = append(c.Traits, t)
					}
				}
			}
		case "v", "voice":
			var voice string
			if err := json.Unmarshal(val, &voice); err == nil {
				c.Voice = strings.TrimSpace(voice)
			}
		}
	}
	sortDialogs(c.Dialogs)
	return c, true
}

// parseDialogs accepts both string entries and {"page", "text"} objects.
// Page labels in prompts are 1-indexed; stored pages are 0-indexed.
func parseDialogs(raw json.RawMessage) []Dialog {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	var out []Dialog
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, Dialog{Text: s})
			}
			continue
		}
		var d Dialog
		if err := json.Unmarshal(item, &d); err != nil {
			continue
		}
		d.Text = strings.TrimSpace(d.Text)
		if d.Text == "" {
			continue
		}
		if d.Page > 0 {
			d.Page--
		} else {
			d.Page = 0
		}
		out = append(out, d)
	}
	return out
}

func renderPages(sections []analysis.Section) string {
	var b strings.Builder
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "PAGE %d:\n%s", s.Index+1, s.Text)
	}
	return b.String()
}

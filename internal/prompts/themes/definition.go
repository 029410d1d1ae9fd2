package themes

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"storyteller/internal/analysis"
	"storyteller/internal/prompts"
	"storyteller/internal/tokens"
)

// ResponseSchema is the JSON schema for the theme detection response.
var ResponseSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"themes": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":        map[string]any{"type": "string"},
					"description": map[string]any{"type": "string"},
					"chapters": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "integer"},
					},
				},
				"required": []string{"name"},
			},
		},
	},
	"required": []string{"themes"},
}

// Theme is one recurring theme. Name is the identity key within a book;
// Chapters are 0-indexed internally.
type Theme struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Chapters    []int  `json:"chapters,omitempty"`
}

// Result is one batch's worth of themes, strongest first.
type Result struct {
	Themes []Theme `json:"themes"`
}

// ResultKind implements analysis.Result.
func (Result) ResultKind() analysis.Kind { return analysis.KindThemes }

// Definition implements analysis.Definition for theme detection. Input
// sections are whole chapters.
type Definition struct {
	budget         tokens.Budget
	systemOverride string
	userOverride   string
}

// New returns the theme detection definition for the given budget.
func New(budget tokens.Budget) *Definition {
	return &Definition{budget: budget}
}

// NewWithOverrides returns a definition using book-level prompt overrides.
func NewWithOverrides(budget tokens.Budget, system, user string) *Definition {
	return &Definition{budget: budget, systemOverride: system, userOverride: user}
}

func (d *Definition) PromptID() string { return "analysis.themes" }

func (d *Definition) DisplayName() string { return "Themes" }

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

func (d *Definition) BuildUserPrompt(in analysis.PreparedInput, _ analysis.Result) (string, error) {
	var b strings.Builder
	for i, s := range in.Sections {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "CHAPTER %d:\n%s", s.Index+1, s.Text)
	}
	data := UserPromptData{Text: b.String()}
	return UserPromptWithOverride(data, d.userOverride), nil
}

// ParseResponse maps 1-indexed chapter references back to 0-indexed. Any
// failure yields the empty result.
func (d *Definition) ParseResponse(raw string) analysis.Result {
	var wire struct {
		Themes []Theme `json:"themes"`
	}
	if err := prompts.Parse(raw, ResponseSchema, &wire); err != nil {
		return Result{}
	}

	var res Result
	for _, t := range wire.Themes {
		t.Name = strings.TrimSpace(t.Name)
		if t.Name == "" {
			continue
		}
		var chapters []int
		for _, c := range t.Chapters {
			if c > 0 {
				chapters = append(chapters, c-1)
			}
		}
		t.Chapters = chapters
		res.Themes = append(res.Themes, t)
	}
	return res
}

func (d *Definition) NewAccumulator() analysis.Accumulator {
	return &Accumulated{seen: make(map[string]int)}
}

// Accumulated merges themes by name: chapter lists union into sorted order
// and the longer description wins.
type Accumulated struct {
	themes []Theme
	seen   map[string]int
}

// Fold implements analysis.Accumulator.
func (a *Accumulated) Fold(res analysis.Result) {
	r, ok := res.(Result)
	if !ok {
		return
	}
	for _, t := range r.Themes {
		idx, dup := a.seen[t.Name]
		if !dup {
			a.seen[t.Name] = len(a.themes)
			t.Chapters = sortedUnique(t.Chapters)
			a.themes = append(a.themes, t)
			continue
		}
		existing := &a.themes[idx]
		existing.Chapters = sortedUnique(append(existing.Chapters, t.Chapters...))
		if len(t.Description) > len(existing.Description) {
			existing.Description = t.Description
		}
	}
}

// Result implements analysis.Accumulator.
func (a *Accumulated) Result() analysis.Result {
	out := Result{Themes: make([]Theme, len(a.themes))}
	copy(out.Themes, a.themes)
	return out
}

// Snapshot implements analysis.Accumulator.
func (a *Accumulated) Snapshot() ([]byte, error) {
	return json.Marshal(a.Result())
}

// Restore implements analysis.Accumulator.
func (a *Accumulated) Restore(data []byte) error {
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return err
	}
	a.themes = nil
	a.seen = make(map[string]int)
	a.Fold(res)
	return nil
}

func sortedUnique(chapters []int) []int {
	if len(chapters) == 0 {
		return nil
	}
	sort.Ints(chapters)
	out := chapters[:1]
	for _, c := range chapters[1:] {
		if c != out[len(out)-1] {
			out = append(out, c)
		}
	}
	return out
}

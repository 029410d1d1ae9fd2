package foreshadow

import (
	"encoding/json"
	"fmt"
	"strings"

	"storyteller/internal/analysis"
	"storyteller/internal/prompts"
	"storyteller/internal/tokens"
)

// ResponseSchema is the JSON schema for the foreshadowing response.
var ResponseSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"foreshadowing": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"source_chapter": map[string]any{"type": "integer"},
					"target_chapter": map[string]any{"type": "integer"},
					"hint":           map[string]any{"type": "string"},
					"payoff":         map[string]any{"type": "string"},
				},
				"required": []string{"source_chapter", "target_chapter", "hint"},
			},
		},
	},
	"required": []string{"foreshadowing"},
}

// Link is one foreshadowing link. Chapters are 0-indexed internally;
// identity within a book is (SourceChapter, TargetChapter, Hint).
type Link struct {
	SourceChapter int    `json:"source_chapter"`
	TargetChapter int    `json:"target_chapter"`
	Hint          string `json:"hint"`
	Payoff        string `json:"payoff,omitempty"`
}

// Result is one batch's worth of foreshadowing links.
type Result struct {
	Links []Link `json:"foreshadowing"`
}

// ResultKind implements analysis.Result.
func (Result) ResultKind() analysis.Kind { return analysis.KindForeshadow }

// Definition implements analysis.Definition for foreshadowing detection.
// Input sections are whole chapters; a batch needs at least two chapters to
// contain a link, which the partition step gets for free from the wide
// budget this kind runs with.
type Definition struct {
	budget         tokens.Budget
	systemOverride string
	userOverride   string
}

// New returns the foreshadowing definition for the given budget.
func New(budget tokens.Budget) *Definition {
	return &Definition{budget: budget}
}

// NewWithOverrides returns a definition using book-level prompt overrides.
func NewWithOverrides(budget tokens.Budget, system, user string) *Definition {
	return &Definition{budget: budget, systemOverride: system, userOverride: user}
}

func (d *Definition) PromptID() string { return "analysis.foreshadow" }

func (d *Definition) DisplayName() string { return "Foreshadowing" }

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

// ParseResponse maps 1-indexed chapter labels back to 0-indexed and drops
// links whose source does not precede the target. Any failure yields the
// empty result.
func (d *Definition) ParseResponse(raw string) analysis.Result {
	var wire struct {
		Links []Link `json:"foreshadowing"`
	}
	if err := prompts.Parse(raw, ResponseSchema, &wire); err != nil {
		return Result{}
	}

	var res Result
	for _, l := range wire.Links {
		l.Hint = strings.TrimSpace(l.Hint)
		if l.Hint == "" {
			continue
		}
		l.SourceChapter--
		l.TargetChapter--
		if l.SourceChapter < 0 || l.TargetChapter <= l.SourceChapter {
			continue
		}
		res.Links = append(res.Links, l)
	}
	return res
}

func (d *Definition) NewAccumulator() analysis.Accumulator {
	return &Accumulated{seen: make(map[linkKey]int)}
}

// Accumulated merges foreshadowing links, deduplicating by
// (source, target, hint). An empty payoff is filled by a later batch.
type Accumulated struct {
	links []Link
	seen  map[linkKey]int
}

type linkKey struct {
	source int
	target int
	hint   string
}

// Fold implements analysis.Accumulator.
func (a *Accumulated) Fold(res analysis.Result) {
	r, ok := res.(Result)
	if !ok {
		return
	}
	for _, l := range r.Links {
		k := linkKey{l.SourceChapter, l.TargetChapter, l.Hint}
		if idx, dup := a.seen[k]; dup {
			if a.links[idx].Payoff == "" {
				a.links[idx].Payoff = l.Payoff
			}
			continue
		}
		a.seen[k] = len(a.links)
		a.links = append(a.links, l)
	}
}

// Result implements analysis.Accumulator.
func (a *Accumulated) Result() analysis.Result {
	out := Result{Links: make([]Link, len(a.links))}
	copy(out.Links, a.links)
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
	a.links = nil
	a.seen = make(map[linkKey]int)
	a.Fold(res)
	return nil
}

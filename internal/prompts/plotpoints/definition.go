package plotpoints

import (
	"encoding/json"
	"fmt"
	"strings"

	"storyteller/internal/analysis"
	"storyteller/internal/prompts"
	"storyteller/internal/tokens"
)

// ResponseSchema is the JSON schema for the plot point response.
var ResponseSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"plot_points": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"chapter":      map[string]any{"type": "integer"},
					"title":        map[string]any{"type": "string"},
					"description":  map[string]any{"type": "string"},
					"significance": map[string]any{"type": "string"},
				},
				"required": []string{"chapter", "title"},
			},
		},
	},
	"required": []string{"plot_points"},
}

// Point is one plot point. Chapter is 0-indexed internally; identity within
// a book is (Chapter, Title).
type Point struct {
	Chapter      int    `json:"chapter"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	Significance string `json:"significance,omitempty"`
}

// Result is one batch's worth of plot points in story order.
type Result struct {
	Points []Point `json:"plot_points"`
}

// ResultKind implements analysis.Result.
func (Result) ResultKind() analysis.Kind { return analysis.KindPlotPoints }

// Definition implements analysis.Definition for plot point detection.
// Input sections are whole chapters.
type Definition struct {
	budget         tokens.Budget
	systemOverride string
	userOverride   string
}

// New returns the plot point definition for the given budget.
func New(budget tokens.Budget) *Definition {
	return &Definition{budget: budget}
}

// NewWithOverrides returns a definition using book-level prompt overrides.
func NewWithOverrides(budget tokens.Budget, system, user string) *Definition {
	return &Definition{budget: budget, systemOverride: system, userOverride: user}
}

func (d *Definition) PromptID() string { return "analysis.plotpoints" }

func (d *Definition) DisplayName() string { return "Plot Points" }

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
	data := UserPromptData{Text: renderChapters(in.Sections)}
	return UserPromptWithOverride(data, d.userOverride), nil
}

// ParseResponse maps 1-indexed chapter labels back to 0-indexed and
// normalizes significance to major/minor. Any failure yields the empty
// result.
func (d *Definition) ParseResponse(raw string) analysis.Result {
	var wire struct {
		Points []Point `json:"plot_points"`
	}
	if err := prompts.Parse(raw, ResponseSchema, &wire); err != nil {
		return Result{}
	}

	var res Result
	for _, p := range wire.Points {
		p.Title = strings.TrimSpace(p.Title)
		if p.Title == "" {
			continue
		}
		if p.Chapter > 0 {
			p.Chapter--
		} else {
			p.Chapter = 0
		}
		if strings.EqualFold(p.Significance, "major") {
			p.Significance = "major"
		} else {
			p.Significance = "minor"
		}
		res.Points = append(res.Points, p)
	}
	return res
}

func (d *Definition) NewAccumulator() analysis.Accumulator {
	return &Accumulated{seen: make(map[pointKey]int)}
}

// Accumulated merges plot points, deduplicating by (chapter, title). The
// first description for a key sticks; an empty one is filled by a later
// batch.
type Accumulated struct {
	points []Point
	seen   map[pointKey]int
}

type pointKey struct {
	chapter int
	title   string
}

// Fold implements analysis.Accumulator.
func (a *Accumulated) Fold(res analysis.Result) {
	r, ok := res.(Result)
	if !ok {
		return
	}
	for _, p := range r.Points {
		k := pointKey{p.Chapter, p.Title}
		if idx, dup := a.seen[k]; dup {
			if a.points[idx].Description == "" {
				a.points[idx].Description = p.Description
			}
			continue
		}
		a.seen[k] = len(a.points)
		a.points = append(a.points, p)
	}
}

// Result implements analysis.Accumulator.
func (a *Accumulated) Result() analysis.Result {
	out := Result{Points: make([]Point, len(a.points))}
	copy(out.Points, a.points)
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
	a.points = nil
	a.seen = make(map[pointKey]int)
	a.Fold(res)
	return nil
}

func renderChapters(sections []analysis.Section) string {
	var b strings.Builder
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "CHAPTER %d:\n%s", s.Index+1, s.Text)
	}
	return b.String()
}

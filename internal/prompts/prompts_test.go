package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storyteller/internal/analysis"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"bare object", `{"a": 1}`, `{"a":1}`, false},
		{"prose prefix", `Here is the result: {"a": 1}`, `{"a":1}`, false},
		{"code fence", "```json\n{\"a\": 1}\n```", `{"a":1}`, false},
		{"array", `[1, 2, 3]`, `[1,2,3]`, false},
		{"prose both sides", `Sure! {"a": 1} Hope that helps.`, `{"a":1}`, false},
		{"no json", "not json at all", "", true},
		{"empty", "", "", true},
		{"unclosed", `{"a": `, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseWithSchema(t *testing.T) {
	schema := map[string]any{
		"type":     "object",
		"required": []string{"names"},
		"properties": map[string]any{
			"names": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
	}

	var out struct {
		Names []string `json:"names"`
	}
	if err := Parse(`{"names": ["Alice"]}`, schema, &out); err != nil {
		t.Fatalf("valid payload rejected: %v", err)
	}
	if len(out.Names) != 1 || out.Names[0] != "Alice" {
		t.Errorf("unexpected parse result: %+v", out)
	}

	// Schema mismatch surfaces as an error, not a panic.
	if err := Parse(`{"names": "Alice"}`, schema, &out); err == nil {
		t.Error("expected schema violation error")
	}
}

func TestPrepareSectionsUnderBudget(t *testing.T) {
	batch := []analysis.Section{
		{Index: 0, Text: "short"},
		{Index: 1, Text: "also short"},
	}
	in := PrepareSections(batch, 1000)
	if in.Sections[0].Text != "short" || in.Sections[1].Text != "also short" {
		t.Error("sections under budget should be untouched")
	}
}

func TestPrepareSectionsOverBudget(t *testing.T) {
	long := strings.Repeat("word word word. ", 200) // 3200 chars
	batch := []analysis.Section{
		{Index: 0, Text: long},
		{Index: 1, Text: "tiny"},
		{Index: 2, Text: long},
	}

	in := PrepareSections(batch, 2000)
	if got := in.TotalChars(); got > 2000 {
		t.Errorf("prepared input is %d chars, budget is 2000", got)
	}
	if len(in.Sections) != 3 {
		t.Fatalf("no section may be dropped, got %d", len(in.Sections))
	}
	// The short section keeps its full text; its slack goes to the long ones.
	if in.Sections[1].Text != "tiny" {
		t.Errorf("short section truncated to %q", in.Sections[1].Text)
	}
	if len(in.Sections[0].Text) == 0 || len(in.Sections[2].Text) == 0 {
		t.Error("long sections truncated to nothing")
	}
	// Fair split between the two long sections.
	d := len(in.Sections[0].Text) - len(in.Sections[2].Text)
	if d < -100 || d > 100 {
		t.Errorf("unfair distribution: %d vs %d chars",
			len(in.Sections[0].Text), len(in.Sections[2].Text))
	}
}

func TestPrepareSectionsDeterministic(t *testing.T) {
	long := strings.Repeat("sentence here. ", 500)
	batch := []analysis.Section{{Index: 0, Text: long}, {Index: 1, Text: long}}

	a := PrepareSections(batch, 3000)
	b := PrepareSections(batch, 3000)
	for i := range a.Sections {
		if a.Sections[i].Text != b.Sections[i].Text {
			t.Fatal("PrepareSections is not deterministic")
		}
	}
}

func TestPartition(t *testing.T) {
	seg := strings.Repeat("alpha beta gamma. ", 60) // ~1080 chars
	sections := []analysis.Section{
		{Index: 0, Text: seg},
		{Index: 1, Text: seg},
		{Index: 2, Text: seg},
	}

	batches := Partition(sections, 2500)
	if len(batches) < 2 {
		t.Fatalf("expected multiple batches, got %d", len(batches))
	}
	for i, b := range batches {
		total := 0
		for _, s := range b {
			total += len(s.Text)
		}
		if total > 2500 {
			t.Errorf("batch %d is %d chars, limit 2500", i, total)
		}
	}

	// Order preserved across batches.
	lastIdx := -1
	for _, b := range batches {
		for _, s := range b {
			if s.Index < lastIdx {
				t.Fatal("section order not preserved")
			}
			lastIdx = s.Index
		}
	}
}

func TestPartitionSplitsOversizedSection(t *testing.T) {
	huge := strings.Repeat("one two three. ", 400) // ~6000 chars
	batches := Partition([]analysis.Section{{Index: 0, Text: huge}}, 2000)
	if len(batches) < 3 {
		t.Errorf("expected oversized section split across batches, got %d", len(batches))
	}
	for _, b := range batches {
		for _, s := range b {
			if s.Index != 0 {
				t.Error("split pieces must keep their section index")
			}
		}
	}
}

func TestResolverOverride(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(dir, nil)
	r.Register(EmbeddedPrompt{Key: "analysis.characters.system", Text: "default text"})

	resolved, err := r.Resolve("analysis.characters.system", 7)
	if err != nil {
		t.Fatal(err)
	}
	if resolved.IsOverride || resolved.Text != "default text" {
		t.Errorf("expected embedded default, got %+v", resolved)
	}

	// Drop an override file for book 7.
	overrideDir := filepath.Join(dir, "7")
	if err := os.MkdirAll(overrideDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(overrideDir, "analysis.characters.system.tmpl")
	if err := os.WriteFile(path, []byte("custom text"), 0o644); err != nil {
		t.Fatal(err)
	}

	resolved, err = r.Resolve("analysis.characters.system", 7)
	if err != nil {
		t.Fatal(err)
	}
	if !resolved.IsOverride || resolved.Text != "custom text" {
		t.Errorf("expected override, got %+v", resolved)
	}

	// Other books still get the default.
	resolved, _ = r.Resolve("analysis.characters.system", 8)
	if resolved.IsOverride {
		t.Error("override leaked to another book")
	}
}

func TestExtractVariables(t *testing.T) {
	vars := ExtractVariables("Hello {{.Name}}, chapter {{ .Chapter }} of {{.Name}}")
	if len(vars) != 2 || vars[0] != "Chapter" || vars[1] != "Name" {
		t.Errorf("unexpected variables: %v", vars)
	}
}

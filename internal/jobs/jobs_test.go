package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"storyteller/internal/analysis"
	"storyteller/internal/config"
	"storyteller/internal/home"
	"storyteller/internal/ingest"
	"storyteller/internal/llmcall"
	"storyteller/internal/persist"
	"storyteller/internal/providers"
	"storyteller/internal/store"
)

const testBook = `Chapter 1: The Meeting

"Hello," said Alice. She had waited all morning.

Chapter 2: The Parting

"Goodbye," said Alice, and the road took her away.
`

// kindResponses serves one valid response per analysis kind in the
// canonical run order, one call per kind per task.
var kindResponses = []string{
	// characters, chapter 1 and 2
	`{"Alice": {"T": ["patient"], "D": [{"page": 1, "text": "Hello"}], "V": "warm"}}`,
	`{"Alice": {"T": ["resolute"], "D": [{"page": 1, "text": "Goodbye"}], "V": ""}}`,
	// dialogs, chapter 1 and 2
	`{"dialogs": [{"page": 1, "speaker": "Alice", "text": "Hello", "emotion": "happy", "intensity": 0.5}]}`,
	`{"dialogs": [{"page": 1, "speaker": "Alice", "text": "Goodbye", "emotion": "sad", "intensity": 0.7}]}`,
	// plotpoints, foreshadow, themes (book scope)
	`{"plot_points": [{"chapter": 1, "title": "The meeting", "description": "Alice meets a stranger.", "significance": "major"}]}`,
	`{"foreshadowing": []}`,
	`{"themes": [{"name": "Farewells", "description": "Meetings end.", "chapters": [1, 2]}]}`,
	// voices (book scope, from stored roster)
	`{"character": "Alice", "voice_profile": {"pitch": 1.1, "speed": 1.0, "energy": 0.8, "gender": "female", "age": "adult", "tone": "warm", "accent": "neutral", "speaker_id": 40}}`,
}

func newTestRunner(t *testing.T, eng providers.Engine) (*Runner, *store.Store, int64) {
	t.Helper()
	dir := t.TempDir()

	st, err := store.Open(filepath.Join(dir, "storyteller.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	h, err := home.New(filepath.Join(dir, "home"))
	if err != nil {
		t.Fatalf("home: %v", err)
	}
	if err := h.EnsureExists(); err != nil {
		t.Fatalf("ensure home: %v", err)
	}

	bookFile := filepath.Join(dir, "test-book.txt")
	if err := writeFile(bookFile, testBook); err != nil {
		t.Fatal(err)
	}
	res, err := ingest.Ingest(context.Background(), st, h, ingest.Request{Path: bookFile})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	engines := providers.NewRegistry()
	engines.Register("mock", eng)

	cfg := config.DefaultConfig()
	cfg.Defaults.MaxWorkers = 1 // deterministic call order for canned responses

	runner := NewRunner(Deps{
		Store:      st,
		Engines:    engines,
		Config:     cfg,
		Home:       h,
		Persisters: persist.NewDefault(st, nil),
		Recorder:   llmcall.NewRecorder(st, nil),
	})
	return runner, st, res.BookID
}

func TestAnalyzeBookFullRun(t *testing.T) {
	eng := providers.NewMockEngine()
	eng.Responses = kindResponses

	runner, st, bookID := newTestRunner(t, eng)
	ctx := context.Background()

	result, err := runner.AnalyzeBook(ctx, AnalyzeRequest{BookID: bookID, Engine: "mock"})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	// 2 chapter tasks each for characters and dialogs, one book task
	// each for plotpoints, foreshadow, themes, voices.
	if len(result.Outcomes) != 8 {
		t.Errorf("expected 8 task outcomes, got %d", len(result.Outcomes))
	}

	chars, err := st.ListCharacters(ctx, bookID)
	if err != nil {
		t.Fatalf("list characters: %v", err)
	}
	names := map[string]bool{}
	for _, c := range chars {
		names[c.Name] = true
	}
	if !names["Alice"] {
		t.Error("Alice not persisted")
	}
	if !names["Narrator"] {
		t.Error("narrator profile not persisted")
	}

	points, _ := st.ListPlotPoints(ctx, bookID)
	if len(points) != 1 || points[0].ChapterIndex != 0 {
		t.Errorf("unexpected plot points: %+v", points)
	}
	themes, _ := st.ListThemes(ctx, bookID)
	if len(themes) != 1 || themes[0].Name != "Farewells" {
		t.Errorf("unexpected themes: %+v", themes)
	}

	calls, _ := st.ListLLMCalls(ctx, bookID, 0)
	if len(calls) != len(kindResponses) {
		t.Errorf("expected %d recorded calls, got %d", len(kindResponses), len(calls))
	}

	for _, status := range runner.Statuses() {
		if status.State != "completed" {
			t.Errorf("task %s/%d not completed: %+v", status.Kind, status.ChapterID, status)
		}
	}
	if len(runner.Running()) != 0 {
		t.Errorf("tasks still marked running: %+v", runner.Running())
	}
}

func TestAnalyzeBookBusy(t *testing.T) {
	runner, _, bookID := newTestRunner(t, providers.NewMockEngine())

	if err := runner.acquire(bookID); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer runner.release(bookID)

	_, err := runner.AnalyzeBook(context.Background(), AnalyzeRequest{BookID: bookID, Engine: "mock"})
	if !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}
	if !runner.Busy(bookID) {
		t.Error("book should report busy while acquired")
	}
}

func TestAnalyzeUnknownBook(t *testing.T) {
	runner, _, _ := newTestRunner(t, providers.NewMockEngine())

	_, err := runner.AnalyzeBook(context.Background(), AnalyzeRequest{BookID: 9999, Engine: "mock"})
	if err == nil {
		t.Error("expected error for unknown book")
	}
	if runner.Busy(9999) {
		t.Error("failed job must release the book")
	}
}

func TestAnalyzeSingleKind(t *testing.T) {
	eng := providers.NewMockEngine()
	eng.Responses = []string{
		`{"themes": [{"name": "Solitude", "chapters": [1]}]}`,
	}

	runner, st, bookID := newTestRunner(t, eng)
	ctx := context.Background()

	result, err := runner.AnalyzeBook(ctx, AnalyzeRequest{
		BookID: bookID,
		Kinds:  []analysis.Kind{analysis.KindThemes},
		Engine: "mock",
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(result.Outcomes) != 1 || result.Outcomes[0].Kind != analysis.KindThemes {
		t.Errorf("unexpected outcomes: %+v", result.Outcomes)
	}

	recs, _ := st.ListThemes(ctx, bookID)
	if len(recs) != 1 || recs[0].Name != "Solitude" {
		t.Errorf("theme not persisted: %+v", recs)
	}
}

func TestVoiceHint(t *testing.T) {
	if got := voiceHint(`{"hint": "gravelly"}`); got != "gravelly" {
		t.Errorf("hint placeholder: %q", got)
	}
	if got := voiceHint(`{"pitch": 1.0, "tone": "warm"}`); got != "warm" {
		t.Errorf("full profile tone: %q", got)
	}
	if got := voiceHint(""); got != "" {
		t.Errorf("empty column: %q", got)
	}
	if got := voiceHint("not json"); got != "" {
		t.Errorf("corrupt column: %q", got)
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

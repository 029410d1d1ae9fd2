package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "storyteller.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBooksAndChapters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	book, err := s.CreateBook(ctx, "Test Book", "A. Author", "/tmp/test.txt")
	if err != nil {
		t.Fatalf("create book: %v", err)
	}
	for i, text := range []string{"chapter one text", "chapter two text"} {
		if _, err := s.CreateChapter(ctx, book.ID, i, "", text); err != nil {
			t.Fatalf("create chapter %d: %v", i, err)
		}
	}

	got, err := s.GetBook(ctx, book.ID)
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	if got.Title != "Test Book" || got.Chapters != 2 {
		t.Errorf("unexpected book: %+v", got)
	}

	chapters, err := s.ListChapters(ctx, book.ID)
	if err != nil {
		t.Fatalf("list chapters: %v", err)
	}
	if len(chapters) != 2 || chapters[0].Index != 0 || chapters[1].Index != 1 {
		t.Errorf("unexpected chapters: %+v", chapters)
	}

	ch, err := s.GetChapter(ctx, book.ID, 1)
	if err != nil {
		t.Fatalf("get chapter: %v", err)
	}
	if ch.Content != "chapter two text" {
		t.Errorf("unexpected content: %q", ch.Content)
	}

	if _, err := s.GetBook(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storyteller.db")
	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if _, err := s1.CreateBook(context.Background(), "B", "", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopening must not re-apply migrations or lose data.
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer s2.Close()
	books, err := s2.ListBooks(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(books) != 1 {
		t.Errorf("expected 1 book after reopen, got %d", len(books))
	}
}

func TestUpsertCharacter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	book, _ := s.CreateBook(ctx, "B", "", "")
	rec := &CharacterRecord{
		BookID:      book.ID,
		Name:        "Alice",
		TraitsJSON:  `["brave"]`,
		DialogsJSON: `[]`,
	}
	if err := s.UpsertCharacter(ctx, rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	rec.TraitsJSON = `["brave","kind"]`
	rec.VoiceProfile = `{"pitch":1.1}`
	if err := s.UpsertCharacter(ctx, rec); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := s.GetCharacterByName(ctx, book.ID, "Alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TraitsJSON != `["brave","kind"]` || got.VoiceProfile != `{"pitch":1.1}` {
		t.Errorf("unexpected record: %+v", got)
	}

	chars, err := s.ListCharacters(ctx, book.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(chars) != 1 {
		t.Errorf("upsert created duplicate rows: %d", len(chars))
	}

	if _, err := s.GetCharacterByName(ctx, book.ID, "Nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsertPlotPointKeepsFilledFields(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	book, _ := s.CreateBook(ctx, "B", "", "")

	p := &PlotPointRecord{BookID: book.ID, ChapterIndex: 0, Title: "The letter", Description: "A letter arrives.", Significance: "major"}
	if err := s.UpsertPlotPoint(ctx, p); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	// Same identity with empty description must not erase the stored one.
	if err := s.UpsertPlotPoint(ctx, &PlotPointRecord{BookID: book.ID, ChapterIndex: 0, Title: "The letter"}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	points, err := s.ListPlotPoints(ctx, book.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(points) != 1 || points[0].Description != "A letter arrives." || points[0].Significance != "major" {
		t.Errorf("unexpected points: %+v", points)
	}
}

func TestUpsertForeshadowingAndThemes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	book, _ := s.CreateBook(ctx, "B", "", "")

	f := &ForeshadowRecord{BookID: book.ID, SourceChapter: 0, TargetChapter: 2, Hint: "The locked drawer."}
	if err := s.UpsertForeshadowing(ctx, f); err != nil {
		t.Fatalf("upsert foreshadowing: %v", err)
	}
	f.Payoff = "Holds the will."
	if err := s.UpsertForeshadowing(ctx, f); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	links, _ := s.ListForeshadowing(ctx, book.ID)
	if len(links) != 1 || links[0].Payoff != "Holds the will." {
		t.Errorf("unexpected links: %+v", links)
	}

	th := &ThemeRecord{BookID: book.ID, Name: "Loyalty", ChaptersJSON: `[0,1]`}
	if err := s.UpsertTheme(ctx, th); err != nil {
		t.Fatalf("upsert theme: %v", err)
	}
	th.ChaptersJSON = `[0,1,2]`
	th.Description = "Tested repeatedly."
	if err := s.UpsertTheme(ctx, th); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	themes, _ := s.ListThemes(ctx, book.ID)
	if len(themes) != 1 || themes[0].ChaptersJSON != `[0,1,2]` || themes[0].Description != "Tested repeatedly." {
		t.Errorf("unexpected themes: %+v", themes)
	}
}

func TestLLMCalls(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	book, _ := s.CreateBook(ctx, "B", "", "")

	recs := []*LLMCallRecord{
		{ID: "call-1", BookID: book.ID, PromptKey: "analysis.characters", PromptTokens: 100, CompletionTokens: 50, Success: true},
		{ID: "call-2", BookID: book.ID, PromptKey: "analysis.dialogs", PromptTokens: 80, Success: false, Error: "timeout"},
	}
	for _, rec := range recs {
		if err := s.InsertLLMCall(ctx, rec); err != nil {
			t.Fatalf("insert %s: %v", rec.ID, err)
		}
	}

	calls, err := s.ListLLMCalls(ctx, book.ID, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}

	stats, err := s.LLMCallStats(ctx, book.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Calls != 2 || stats.Failures != 1 || stats.PromptTokens != 180 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestDeleteBookCascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	book, _ := s.CreateBook(ctx, "B", "", "")
	_, _ = s.CreateChapter(ctx, book.ID, 0, "", "text")
	_ = s.UpsertCharacter(ctx, &CharacterRecord{BookID: book.ID, Name: "Alice", TraitsJSON: "[]", DialogsJSON: "[]"})

	if err := s.DeleteBook(ctx, book.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	chapters, _ := s.ListChapters(ctx, book.ID)
	chars, _ := s.ListCharacters(ctx, book.ID)
	if len(chapters) != 0 || len(chars) != 0 {
		t.Errorf("expected cascade delete, got %d chapters %d characters", len(chapters), len(chars))
	}
}

package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storyteller/internal/home"
	"storyteller/internal/store"
)

const sampleBook = `The Test Book

Chapter 1: The Letter

It began with a letter on the mat.

Chapter 2: The Journey

She packed a single bag and left before dawn.

Epilogue

Years later, the house still stood.
`

func TestSplitChaptersHeadings(t *testing.T) {
	chapters := SplitChapters(sampleBook)
	if len(chapters) != 4 {
		t.Fatalf("expected 4 chapters, got %d: %+v", len(chapters), chapterTitles(chapters))
	}
	if chapters[0].Title != "Front Matter" {
		t.Errorf("expected front matter first, got %q", chapters[0].Title)
	}
	if !strings.HasPrefix(chapters[1].Title, "Chapter 1") {
		t.Errorf("unexpected title %q", chapters[1].Title)
	}
	if chapters[3].Title != "Epilogue" {
		t.Errorf("expected epilogue, got %q", chapters[3].Title)
	}
	if !strings.Contains(chapters[2].Body, "single bag") {
		t.Errorf("chapter body lost content: %q", chapters[2].Body)
	}
}

func TestSplitChaptersMarkdownAndNumbered(t *testing.T) {
	text := "# The Beginning\n\nFirst part.\n\n2. The Middle\n\nSecond part.\n"
	chapters := SplitChapters(text)
	if len(chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d: %+v", len(chapters), chapterTitles(chapters))
	}
	if chapters[0].Title != "The Beginning" {
		t.Errorf("markdown heading not stripped: %q", chapters[0].Title)
	}
}

func TestSplitChaptersFallbackChunks(t *testing.T) {
	text := strings.Repeat("word word word word word word word word. ", 800)
	chapters := SplitChapters(text)
	if len(chapters) < 2 {
		t.Fatalf("expected chunked fallback, got %d chapters", len(chapters))
	}
	for i, ch := range chapters {
		if len(ch.Body) > fallbackChunkChars {
			t.Errorf("chunk %d exceeds size: %d", i, len(ch.Body))
		}
	}
}

func TestSplitChaptersShortTextSingleChapter(t *testing.T) {
	chapters := SplitChapters("Just a short story with no headings at all.")
	if len(chapters) != 1 || chapters[0].Title != "Full Book" {
		t.Fatalf("expected single full-book chapter, got %+v", chapters)
	}
}

func TestIngestTextFile(t *testing.T) {
	dir := t.TempDir()
	bookPath := filepath.Join(dir, "the-test-book.txt")
	if err := os.WriteFile(bookPath, []byte(sampleBook), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := store.Open(filepath.Join(dir, "db", "storyteller.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()

	h, err := home.New(filepath.Join(dir, "home"))
	if err != nil {
		t.Fatalf("home: %v", err)
	}
	if err := h.EnsureExists(); err != nil {
		t.Fatalf("ensure home: %v", err)
	}

	ctx := context.Background()
	res, err := Ingest(ctx, s, h, Request{Path: bookPath, Author: "A. Writer"})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if res.Title != "the test book" {
		t.Errorf("derived title %q", res.Title)
	}
	if res.Chapters != 4 {
		t.Errorf("expected 4 chapters, got %d", res.Chapters)
	}

	book, err := s.GetBook(ctx, res.BookID)
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	if book.Author != "A. Writer" || book.Chapters != 4 {
		t.Errorf("unexpected book record: %+v", book)
	}

	stored, err := os.ReadFile(h.BookTextPath(res.BookID))
	if err != nil {
		t.Fatalf("book text copy: %v", err)
	}
	if string(stored) != sampleBook {
		t.Error("book text copy differs from source")
	}
}

func TestIngestMissingFile(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "storyteller.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()

	if _, err := Ingest(context.Background(), s, nil, Request{Path: "/nonexistent/book.txt"}); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Ingest(context.Background(), s, nil, Request{}); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestDeriveTitle(t *testing.T) {
	cases := map[string]string{
		"/books/crusade-europe.pdf": "crusade europe",
		"my_book_1.txt":             "my book",
		"Plain.md":                  "Plain",
	}
	for path, want := range cases {
		if got := deriveTitle(path); got != want {
			t.Errorf("deriveTitle(%q) = %q, want %q", path, got, want)
		}
	}
}

func chapterTitles(chapters []Chapter) []string {
	titles := make([]string, len(chapters))
	for i, ch := range chapters {
		titles[i] = ch.Title
	}
	return titles
}

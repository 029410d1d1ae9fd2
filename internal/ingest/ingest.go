// Package ingest loads books into the store. Plain text and markdown
// files are split into chapters on heading boundaries; PDFs are
// validated for structure and read through a sidecar text file, since
// text extraction itself stays outside this system.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"storyteller/internal/home"
	"storyteller/internal/store"
)

// Request contains the parameters for ingesting a book.
type Request struct {
	Path   string       // book file (.txt, .md, or .pdf with sidecar .txt)
	Title  string       // optional, derived from filename if empty
	Author string       // optional
	Logger *slog.Logger // optional logger for progress updates
}

// Result describes a completed ingest.
type Result struct {
	BookID   int64
	Title    string
	Author   string
	Chapters int
	Pages    int // PDF page count, 0 for text sources
}

// Ingest splits a book into chapters and registers it in the store. A
// copy of the raw text is kept under the home directory so analysis can
// be re-run without the original file.
func Ingest(ctx context.Context, st *store.Store, homeDir *home.Dir, req Request) (*Result, error) {
	log := req.Logger
	if log == nil {
		log = slog.Default()
	}

	if req.Path == "" {
		return nil, fmt.Errorf("no book path provided")
	}
	if _, err := os.Stat(req.Path); err != nil {
		return nil, fmt.Errorf("book not found: %s", req.Path)
	}

	var (
		text  string
		pages int
		err   error
	)
	switch strings.ToLower(filepath.Ext(req.Path)) {
	case ".txt", ".md", ".markdown":
		text, err = readText(req.Path)
	case ".pdf":
		text, pages, err = readPDF(req.Path)
	default:
		return nil, fmt.Errorf("unsupported book format: %s", filepath.Ext(req.Path))
	}
	if err != nil {
		return nil, err
	}

	chapters := SplitChapters(text)
	if len(chapters) == 0 {
		return nil, fmt.Errorf("book is empty: %s", req.Path)
	}

	title := req.Title
	if title == "" {
		title = deriveTitle(req.Path)
	}

	log.Info("ingesting book", "title", title, "chapters", len(chapters), "pdf_pages", pages)

	book, err := st.CreateBook(ctx, title, req.Author, req.Path)
	if err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}

	for i, ch := range chapters {
		chTitle := ch.Title
		if chTitle == "" {
			chTitle = fmt.Sprintf("Chapter %d", i+1)
		}
		if _, err := st.CreateChapter(ctx, book.ID, i, chTitle, ch.Body); err != nil {
			return nil, fmt.Errorf("create chapter %d: %w", i, err)
		}
	}

	if err := writeBookText(homeDir, book.ID, text); err != nil {
		log.Warn("failed to keep book text copy", "book_id", book.ID, "error", err)
	}

	log.Info("ingest complete", "book_id", book.ID, "chapters", len(chapters))

	return &Result{
		BookID:   book.ID,
		Title:    title,
		Author:   req.Author,
		Chapters: len(chapters),
		Pages:    pages,
	}, nil
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read book: %w", err)
	}
	return string(data), nil
}

// readPDF validates the PDF structure and reads the sidecar text file
// next to it (same name, .txt extension). Text extraction from the PDF
// itself is out of scope.
func readPDF(path string) (string, int, error) {
	if err := api.ValidateFile(path, nil); err != nil {
		return "", 0, fmt.Errorf("invalid PDF %s: %w", path, err)
	}
	pages, err := api.PageCountFile(path)
	if err != nil {
		return "", 0, fmt.Errorf("pdf page count: %w", err)
	}

	sidecar := strings.TrimSuffix(path, filepath.Ext(path)) + ".txt"
	data, err := os.ReadFile(sidecar)
	if err != nil {
		return "", 0, fmt.Errorf("pdf ingest requires sidecar text file %s: %w", sidecar, err)
	}
	return string(data), pages, nil
}

// writeBookText keeps a copy of the raw text under the home directory.
func writeBookText(homeDir *home.Dir, bookID int64, text string) error {
	if homeDir == nil {
		return nil
	}
	path := homeDir.BookTextPath(bookID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(text), 0o644)
}

var trailingNumber = regexp.MustCompile(`[-_ ]\d+$`)

// deriveTitle extracts a title from the book filename.
func deriveTitle(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	name = trailingNumber.ReplaceAllString(name, "")
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	return strings.TrimSpace(name)
}

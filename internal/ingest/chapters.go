package ingest

import (
	"regexp"
	"strings"

	"storyteller/internal/textseg"
)

// Chapter is one detected chapter of a book.
type Chapter struct {
	Title string
	Body  string
}

// headingPattern matches a chapter heading on its own line: numbered
// chapters, parts, front/back matter, markdown headings, and bare
// numbered headings like "1. The Beginning".
var headingPattern = regexp.MustCompile(
	`(?im)^\s*(chapter\s+[\dIVXLC]+(?:\s*[:\-]\s*\S.*)?|chapter\s+[a-z][a-z\- ]*|` +
		`part\s+[\dIVXLC]+|part\s+(?:one|two|three|four|five|six|seven|eight|nine|ten)|` +
		`prologue|epilogue|foreword|introduction|#{1,6}\s+\S.*|\d+[.)]\s+\S.*)\s*$`)

// fallbackChunkChars sizes the page chunks used when a book has no
// detectable chapter headings.
const fallbackChunkChars = 12000

// SplitChapters splits raw book text on chapter headings. When no
// headings are found the text is cut into page-sized chunks instead so
// downstream analysis always has chapter units to work with.
func SplitChapters(text string) []Chapter {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	locs := headingPattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return chunkChapters(text)
	}

	var chapters []Chapter

	// Text before the first heading becomes front matter.
	if head := strings.TrimSpace(text[:locs[0][0]]); head != "" {
		chapters = append(chapters, Chapter{Title: "Front Matter", Body: head})
	}

	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		body := strings.TrimSpace(text[loc[0]:end])
		if body == "" {
			continue
		}
		chapters = append(chapters, Chapter{
			Title: headingTitle(text[loc[0]:loc[1]]),
			Body:  body,
		})
	}

	if len(chapters) == 0 {
		return chunkChapters(text)
	}
	return chapters
}

// chunkChapters falls back to fixed-size chunks when no headings match.
func chunkChapters(text string) []Chapter {
	pages := textseg.SplitPages(text, fallbackChunkChars)
	if len(pages) == 1 {
		return []Chapter{{Title: "Full Book", Body: strings.TrimSpace(pages[0])}}
	}

	chapters := make([]Chapter, 0, len(pages))
	for _, p := range pages {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		chapters = append(chapters, Chapter{Body: p})
	}
	return chapters
}

// headingTitle normalizes a matched heading into a display title.
func headingTitle(heading string) string {
	title := strings.TrimSpace(heading)
	title = strings.TrimLeft(title, "# ")
	if len(title) > 80 {
		title = title[:80]
	}
	return title
}

// Package textseg splits and truncates book text at natural boundaries so
// slices handed to the inference engine never cut words or sentences in half.
package textseg

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultSegmentChars is the target size of one inference-call slice.
	DefaultSegmentChars = 4000
	// DefaultPageChars is the target size of one logical page.
	DefaultPageChars = 10000
)

// sentenceSeps mark the end of a sentence when searching for a cut point.
var sentenceSeps = []string{". ", "! ", "? ", ".\n", "!\n", "?\n"}

// LastBoundaryBefore returns the byte index to cut text at so the result
// stays within max bytes. It prefers a paragraph break past the midpoint,
// then the rightmost sentence end, then a space past the midpoint, and
// falls back to a rune-safe hard cut at max.
func LastBoundaryBefore(text string, max int) int {
	if len(text) <= max {
		return len(text)
	}
	limit := max + 1
	if limit > len(text) {
		limit = len(text)
	}
	chunk := text[:limit]

	if i := strings.LastIndex(chunk, "\n\n"); i > max/2 {
		return i + 2
	}

	best := -1
	bestLen := 0
	for _, sep := range sentenceSeps {
		if i := strings.LastIndex(chunk, sep); i > best {
			best = i
			bestLen = len(sep)
		}
	}
	if best >= 0 {
		return best + bestLen
	}

	if i := strings.LastIndex(chunk, " "); i > max/2 {
		return i + 1
	}

	// Hard cut, backed off to a rune start.
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return cut
}

// Truncate cuts text to at most max bytes at a natural boundary and trims
// trailing whitespace. A non-positive max yields the empty string.
func Truncate(text string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(text) <= max {
		return text
	}
	return strings.TrimRight(text[:LastBoundaryBefore(text, max)], " \t\r\n")
}

// SplitSegments splits text into chunks of at most size bytes, cutting at
// sentence ends where possible and at spaces otherwise. Chunks are trimmed
// and empty chunks are dropped.
func SplitSegments(text string, size int) []string {
	if size <= 0 || len(text) <= size {
		return []string{text}
	}

	var segments []string
	start := 0
	for start < len(text) {
		end := start + size
		if end >= len(text) {
			end = len(text)
		} else {
			seg := text[start:end]
			if cut := lastSentenceEnd(seg); cut > 0 {
				end = start + cut + 1
			} else if sp := strings.LastIndexByte(seg, ' '); sp > 0 {
				end = start + sp
			}
		}
		if part := strings.TrimSpace(text[start:end]); part != "" {
			segments = append(segments, part)
		}
		start = end
	}

	if len(segments) == 0 {
		return []string{text}
	}
	return segments
}

// SplitPages splits text into word-boundary pages of at most size bytes.
func SplitPages(text string, size int) []string {
	if size <= 0 || len(text) <= size {
		return []string{text}
	}

	var pages []string
	start := 0
	for start < len(text) {
		end := start + size
		if end >= len(text) {
			end = len(text)
		} else if sp := strings.LastIndexByte(text[start:end], ' '); sp > 0 {
			end = start + sp
		}
		pages = append(pages, text[start:end])
		start = end
	}
	return pages
}

// lastSentenceEnd returns the index of the rightmost '.' that closes a
// sentence (followed by a space, newline, tab or quote, or ending the
// slice), or -1 when there is none.
func lastSentenceEnd(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] != '.' {
			continue
		}
		if i+1 >= len(s) {
			return i
		}
		switch s[i+1] {
		case ' ', '\n', '\t', '"', '\'':
			return i
		}
	}
	return -1
}

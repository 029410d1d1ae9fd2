package textseg

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateShortTextUnchanged(t *testing.T) {
	text := "A short paragraph."
	if got := Truncate(text, 100); got != text {
		t.Errorf("Truncate should not touch text within budget, got %q", got)
	}
}

func TestTruncatePrefersParagraphBreak(t *testing.T) {
	text := strings.Repeat("x", 60) + "\n\n" + strings.Repeat("y", 60)
	got := Truncate(text, 80)
	if !strings.HasSuffix(got, "x") {
		t.Errorf("expected cut at paragraph break, got %q", got)
	}
	if len(got) > 80 {
		t.Errorf("truncated length %d exceeds max 80", len(got))
	}
}

func TestTruncateFallsBackToSentenceEnd(t *testing.T) {
	text := "First sentence here. Second sentence keeps going without any break"
	got := Truncate(text, 40)
	if got != "First sentence here." {
		t.Errorf("expected sentence-boundary cut, got %q", got)
	}
}

func TestTruncateFallsBackToSpace(t *testing.T) {
	text := "wordone wordtwo wordthree wordfour wordfive"
	got := Truncate(text, 20)
	if strings.Contains(got, "wordthree") {
		t.Errorf("cut should land before the word crossing the limit, got %q", got)
	}
	if len(got) > 20 {
		t.Errorf("truncated length %d exceeds max 20", len(got))
	}
}

func TestTruncateNeverExceedsMax(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 50)
	for _, max := range []int{10, 100, 1000, 2500} {
		if got := Truncate(text, max); len(got) > max {
			t.Errorf("max=%d: truncated length %d exceeds limit", max, len(got))
		}
	}
}

func TestTruncateZeroMax(t *testing.T) {
	if got := Truncate("anything", 0); got != "" {
		t.Errorf("Truncate with max=0 should be empty, got %q", got)
	}
}

func TestTruncateRuneSafety(t *testing.T) {
	text := strings.Repeat("é", 50) // two bytes per rune, no boundaries
	got := Truncate(text, 33)
	if !utf8.ValidString(got) {
		t.Errorf("hard cut split a rune: %q", got)
	}
	if len(got) > 33 {
		t.Errorf("truncated length %d exceeds max 33", len(got))
	}
}

func TestSplitSegmentsRespectsSize(t *testing.T) {
	text := strings.Repeat("One sentence of filler prose right here. ", 400)
	segs := SplitSegments(text, DefaultSegmentChars)
	if len(segs) < 2 {
		t.Fatalf("expected multiple segments, got %d", len(segs))
	}
	for i, s := range segs {
		if len(s) > DefaultSegmentChars {
			t.Errorf("segment %d length %d exceeds %d", i, len(s), DefaultSegmentChars)
		}
		if s == "" {
			t.Errorf("segment %d is empty", i)
		}
	}
}

func TestSplitSegmentsCutsAtSentences(t *testing.T) {
	text := "Alpha ends here. Beta ends here. Gamma ends here. Delta ends here."
	segs := SplitSegments(text, 40)
	for i, s := range segs[:len(segs)-1] {
		if !strings.HasSuffix(s, ".") {
			t.Errorf("segment %d should end at a sentence, got %q", i, s)
		}
	}
}

func TestSplitSegmentsPreservesContent(t *testing.T) {
	text := "The fox ran. The dog slept. The cat watched from the fence nearby."
	segs := SplitSegments(text, 30)
	joined := strings.Join(segs, " ")
	for _, word := range []string{"fox", "dog", "cat", "fence"} {
		if !strings.Contains(joined, word) {
			t.Errorf("word %q lost during segmentation", word)
		}
	}
}

func TestSplitSegmentsSmallText(t *testing.T) {
	segs := SplitSegments("tiny", 4000)
	if len(segs) != 1 || segs[0] != "tiny" {
		t.Errorf("small text should come back as a single segment, got %v", segs)
	}
}

func TestSplitPagesWordBoundaries(t *testing.T) {
	text := strings.Repeat("word ", 5000)
	pages := SplitPages(text, DefaultPageChars)
	if len(pages) < 2 {
		t.Fatalf("expected multiple pages, got %d", len(pages))
	}
	for i, p := range pages {
		if len(p) > DefaultPageChars {
			t.Errorf("page %d length %d exceeds %d", i, len(p), DefaultPageChars)
		}
	}
}

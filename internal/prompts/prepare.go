package prompts

import (
	"sort"

	"storyteller/internal/analysis"
	"storyteller/internal/textseg"
)

// PrepareSections clips a batch of sections so their combined text length
// fits maxChars. The allowance is distributed fairly: sections already
// under their equal share keep their full text, and the slack is
// redistributed to the longer ones. Sections keep their order and none are
// dropped. Cuts land on natural text boundaries.
func PrepareSections(batch []analysis.Section, maxChars int) analysis.PreparedInput {
	out := analysis.PreparedInput{Sections: make([]analysis.Section, len(batch))}
	copy(out.Sections, batch)
	if len(batch) == 0 || maxChars <= 0 {
		if maxChars <= 0 {
			for i := range out.Sections {
				out.Sections[i].Text = ""
			}
		}
		return out
	}

	total := 0
	for _, s := range batch {
		total += len(s.Text)
	}
	if total <= maxChars {
		return out
	}

	// Water-filling: process sections shortest first so short sections
	// donate their unused share to the long ones deterministically.
	order := make([]int, len(batch))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return len(batch[order[a]].Text) < len(batch[order[b]].Text)
	})

	remaining := maxChars
	left := len(batch)
	limits := make([]int, len(batch))
	for _, idx := range order {
		share := remaining / left
		n := len(batch[idx].Text)
		if n < share {
			share = n
		}
		limits[idx] = share
		remaining -= share
		left--
	}

	for i := range out.Sections {
		out.Sections[i].Text = textseg.Truncate(out.Sections[i].Text, limits[i])
	}
	return out
}

// Partition groups sections into batches whose combined text length stays
// within maxChars, preserving order. A section longer than maxChars is
// split at natural boundaries into multiple sections carrying the same
// index, so no content is silently dropped.
func Partition(sections []analysis.Section, maxChars int) [][]analysis.Section {
	if len(sections) == 0 {
		return nil
	}
	if maxChars <= 0 {
		return [][]analysis.Section{sections}
	}

	var batches [][]analysis.Section
	var current []analysis.Section
	size := 0

	flush := func() {
		if len(current) > 0 {
			batches = append(batches, current)
			current = nil
			size = 0
		}
	}

	for _, s := range sections {
		pieces := []string{s.Text}
		if len(s.Text) > maxChars {
			pieces = textseg.SplitSegments(s.Text, maxChars)
		}
		for _, piece := range pieces {
			if size+len(piece) > maxChars {
				flush()
			}
			current = append(current, analysis.Section{Index: s.Index, Text: piece})
			size += len(piece)
		}
	}
	flush()
	return batches
}

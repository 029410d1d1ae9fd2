package characters

import (
	"encoding/json"
	"sort"

	"storyteller/internal/analysis"
)

// Accumulated merges per-batch character findings for one chapter run.
// Characters are keyed by exact case-sensitive name and kept in first-seen
// order. Folding the same partial twice changes nothing.
type Accumulated struct {
	order  []string
	byName map[string]*Character
}

// NewAccumulated returns an empty accumulator.
func NewAccumulated() *Accumulated {
	return &Accumulated{byName: make(map[string]*Character)}
}

// Fold implements analysis.Accumulator.
func (a *Accumulated) Fold(res analysis.Result) {
	r, ok := res.(Result)
	if !ok {
		return
	}
	for _, c := range r.Found {
		if c.Name == "" {
			continue
		}
		existing, seen := a.byName[c.Name]
		if !seen {
			cp := c
			a.byName[c.Name] = &cp
			a.order = append(a.order, c.Name)
			sortDialogs(a.byName[c.Name].Dialogs)
			continue
		}
		MergeCharacter(existing, c)
	}
}

// Result implements analysis.Accumulator.
func (a *Accumulated) Result() analysis.Result {
	out := Result{Found: make([]Character, 0, len(a.order))}
	for _, name := range a.order {
		out.Found = append(out.Found, *a.byName[name])
	}
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
	a.order = nil
	a.byName = make(map[string]*Character)
	a.Fold(res)
	return nil
}

// Names returns the accumulated character names in first-seen order.
func (a *Accumulated) Names() []string {
	out := make([]string, len(a.order))
	copy(out, a.order)
	return out
}

// MergeCharacter folds src into dst under the character merge rules: traits
// are an order-preserving union, the newest non-empty voice hint and
// speaker ID win, and dialogs append in page order with duplicates by
// (page, text) dropped.
func MergeCharacter(dst *Character, src Character) {
	dst.Traits = unionStrings(dst.Traits, src.Traits)
	if src.Voice != "" {
		dst.Voice = src.Voice
	}
	if src.SpeakerID != 0 {
		dst.SpeakerID = src.SpeakerID
	}

	seen := make(map[dialogKey]bool, len(dst.Dialogs))
	for _, d := range dst.Dialogs {
		seen[dialogKey{d.Page, d.Text}] = true
	}
	for _, d := range src.Dialogs {
		k := dialogKey{d.Page, d.Text}
		if seen[k] {
			continue
		}
		seen[k] = true
		dst.Dialogs = append(dst.Dialogs, d)
	}
	sortDialogs(dst.Dialogs)
}

type dialogKey struct {
	page int
	text string
}

func sortDialogs(dialogs []Dialog) {
	sort.SliceStable(dialogs, func(i, j int) bool {
		return dialogs[i].Page < dialogs[j].Page
	})
}

func unionStrings(dst, src []string) []string {
	seen := make(map[string]bool, len(dst))
	for _, s := range dst {
		seen[s] = true
	}
	for _, s := range src {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		dst = append(dst, s)
	}
	return dst
}

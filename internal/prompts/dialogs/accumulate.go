package dialogs

import (
	"encoding/json"
	"sort"

	"storyteller/internal/analysis"
)

// Accumulated merges per-batch dialog findings for one chapter run, keeping
// page order and dropping duplicates by (page, speaker, text).
type Accumulated struct {
	dialogs []Dialog
	seen    map[dialogKey]bool
}

type dialogKey struct {
	page    int
	speaker string
	text    string
}

// NewAccumulated returns an empty accumulator.
func NewAccumulated() *Accumulated {
	return &Accumulated{seen: make(map[dialogKey]bool)}
}

// Fold implements analysis.Accumulator.
func (a *Accumulated) Fold(res analysis.Result) {
	r, ok := res.(Result)
	if !ok {
		return
	}
	for _, dl := range r.Dialogs {
		k := dialogKey{dl.Page, dl.Speaker, dl.Text}
		if a.seen[k] {
			continue
		}
		a.seen[k] = true
		a.dialogs = append(a.dialogs, dl)
	}
	sort.SliceStable(a.dialogs, func(i, j int) bool {
		return a.dialogs[i].Page < a.dialogs[j].Page
	})
}

// Result implements analysis.Accumulator.
func (a *Accumulated) Result() analysis.Result {
	out := Result{Dialogs: make([]Dialog, len(a.dialogs))}
	copy(out.Dialogs, a.dialogs)
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
	a.dialogs = nil
	a.seen = make(map[dialogKey]bool)
	a.Fold(res)
	return nil
}

package voices

import (
	"encoding/json"

	"storyteller/internal/analysis"
)

// Accumulated merges per-batch voice profiles, keyed by character name in
// first-seen order. The newest profile for a character wins.
type Accumulated struct {
	order  []string
	byName map[string]Profile
}

// NewAccumulated returns an empty accumulator.
func NewAccumulated() *Accumulated {
	return &Accumulated{byName: make(map[string]Profile)}
}

// Fold implements analysis.Accumulator.
func (a *Accumulated) Fold(res analysis.Result) {
	r, ok := res.(Result)
	if !ok {
		return
	}
	for _, p := range r.Profiles {
		if p.Character == "" {
			continue
		}
		if _, seen := a.byName[p.Character]; !seen {
			a.order = append(a.order, p.Character)
		}
		a.byName[p.Character] = p
	}
}

// Result implements analysis.Accumulator.
func (a *Accumulated) Result() analysis.Result {
	out := Result{Profiles: make([]Profile, 0, len(a.order))}
	for _, name := range a.order {
		out.Profiles = append(out.Profiles, a.byName[name])
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
	a.byName = make(map[string]Profile)
	a.Fold(res)
	return nil
}

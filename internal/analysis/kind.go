// Package analysis contains the checkpointed multi-pass analysis pipeline:
// the task/result abstraction, the prompt-definition contract, and the
// orchestration that drives chapter batches through an inference engine.
package analysis

// Kind identifies one analysis pass.
type Kind string

const (
	KindCharacters Kind = "characters"
	KindDialogs    Kind = "dialogs"
	KindVoices     Kind = "voices"
	KindPlotPoints Kind = "plotpoints"
	KindForeshadow Kind = "foreshadow"
	KindThemes     Kind = "themes"
)

// Kinds lists all analysis kinds in their canonical run order. Dialogs and
// voices build on the character roster, so characters runs first.
func Kinds() []Kind {
	return []Kind{
		KindCharacters,
		KindDialogs,
		KindPlotPoints,
		KindForeshadow,
		KindThemes,
		KindVoices,
	}
}

// ValidKind reports whether s names a known analysis kind.
func ValidKind(s string) bool {
	for _, k := range Kinds() {
		if Kind(s) == k {
			return true
		}
	}
	return false
}

// Result is the tagged union of per-kind analysis outputs. Each prompt kind
// package defines a concrete result struct carrying its findings; consumers
// dispatch on Kind and type-assert to the concrete type.
type Result interface {
	// ResultKind returns the analysis kind that produced this result.
	ResultKind() Kind
}

package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"storyteller/internal/analysis"
	"storyteller/internal/prompts/characters"
	"storyteller/internal/prompts/dialogs"
	"storyteller/internal/prompts/foreshadow"
	"storyteller/internal/prompts/plotpoints"
	"storyteller/internal/prompts/themes"
	"storyteller/internal/prompts/voices"
	"storyteller/internal/providers"
	"storyteller/internal/store"
	"storyteller/internal/textseg"
	"storyteller/internal/tokens"
)

// bookScopeChapterID is the chapter id used for kinds that analyze the
// whole book as one task. Real chapter ids start at 1.
const bookScopeChapterID = 0

// defaultSegmentChars sizes chapter slices when config leaves it unset.
const defaultSegmentChars = 4000

// AnalyzeRequest selects what to analyze.
type AnalyzeRequest struct {
	BookID int64
	Kinds  []analysis.Kind // empty means all kinds in canonical order
	Engine string          // engine name, empty means configured default
}

// AnalyzeResult reports the outcome of one analysis job.
type AnalyzeResult struct {
	BookID   int64               `json:"book_id"`
	Kinds    []analysis.Kind     `json:"kinds"`
	Outcomes []*analysis.Outcome `json:"outcomes"`
	Duration time.Duration       `json:"duration"`
}

// AnalyzeBook runs the requested analysis kinds over a book, in the
// canonical kind order. Chapter tasks within one kind run concurrently
// up to the configured worker bound; kinds themselves run sequentially
// because later kinds read what earlier kinds persisted.
func (r *Runner) AnalyzeBook(ctx context.Context, req AnalyzeRequest) (*AnalyzeResult, error) {
	if err := r.acquire(req.BookID); err != nil {
		return nil, err
	}
	defer r.release(req.BookID)

	start := time.Now()

	book, err := r.deps.Store.GetBook(ctx, req.BookID)
	if err != nil {
		return nil, fmt.Errorf("load book: %w", err)
	}
	chapters, err := r.deps.Store.ListChapters(ctx, req.BookID)
	if err != nil {
		return nil, fmt.Errorf("load chapters: %w", err)
	}
	if len(chapters) == 0 {
		return nil, fmt.Errorf("book %d has no chapters", req.BookID)
	}

	kinds := req.Kinds
	if len(kinds) == 0 {
		kinds = r.configuredKinds()
	}

	eng, err := r.engine(req.Engine)
	if err != nil {
		return nil, err
	}

	r.logger.Info("analysis started",
		"book_id", book.ID, "title", book.Title,
		"chapters", len(chapters), "kinds", len(kinds))

	result := &AnalyzeResult{BookID: req.BookID, Kinds: kinds}
	for _, kind := range kinds {
		outcomes, err := r.runKind(ctx, eng, book.ID, kind, chapters)
		result.Outcomes = append(result.Outcomes, outcomes...)
		if err != nil {
			return result, fmt.Errorf("%s analysis: %w", kind, err)
		}
	}

	result.Duration = time.Since(start)
	r.logger.Info("analysis complete",
		"book_id", book.ID, "duration", result.Duration, "tasks", len(result.Outcomes))
	return result, nil
}

// configuredKinds returns the kinds from config, falling back to the
// canonical order, dropping anything unknown.
func (r *Runner) configuredKinds() []analysis.Kind {
	names := r.deps.Config.Defaults.Kinds
	if len(names) == 0 {
		return analysis.Kinds()
	}
	var kinds []analysis.Kind
	for _, n := range names {
		if analysis.ValidKind(n) {
			kinds = append(kinds, analysis.Kind(n))
		} else {
			r.logger.Warn("ignoring unknown analysis kind", "kind", n)
		}
	}
	if len(kinds) == 0 {
		return analysis.Kinds()
	}
	return kinds
}

// runKind executes one analysis kind over the book: per-chapter tasks
// for page-scoped kinds, a single book-scoped task for the rest.
func (r *Runner) runKind(ctx context.Context, eng providers.Engine, bookID int64, kind analysis.Kind, chapters []store.Chapter) ([]*analysis.Outcome, error) {
	mgr, err := r.checkpointManager(kind)
	if err != nil {
		return nil, err
	}

	def, err := r.buildDefinition(kind, bookID)
	if err != nil {
		return nil, err
	}
	persister, ok := r.deps.Persisters.Get(kind)
	if !ok {
		return nil, fmt.Errorf("no persister for kind %s", kind)
	}

	newTask := func() *analysis.Task {
		return &analysis.Task{
			Definition:     def,
			Engine:         eng,
			Checkpoints:    mgr,
			Persister:      persister,
			Observe:        r.observer(),
			Logger:         r.logger,
			RetryAttempts:  r.deps.Config.Analysis.MaxRetries,
			RetryBaseDelay: time.Duration(r.deps.Config.Analysis.RetryDelaySeconds) * time.Second,
		}
	}

	switch kind {
	case analysis.KindCharacters, analysis.KindDialogs:
		return r.runChapterTasks(ctx, newTask, bookID, kind, chapters)
	case analysis.KindVoices:
		outcome, err := r.runVoices(ctx, newTask(), bookID)
		return singleOutcome(outcome), err
	default:
		outcome, err := r.runBookTask(ctx, newTask(), bookID, kind, chapters)
		return singleOutcome(outcome), err
	}
}

// runChapterTasks runs one task per chapter, bounded by MaxWorkers.
func (r *Runner) runChapterTasks(ctx context.Context, newTask func() *analysis.Task, bookID int64, kind analysis.Kind, chapters []store.Chapter) ([]*analysis.Outcome, error) {
	workers := r.deps.Config.Defaults.MaxWorkers
	if workers <= 0 {
		workers = 1
	}

	outcomes := make([]*analysis.Outcome, len(chapters))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range chapters {
		g.Go(func() error {
			ch, err := r.deps.Store.GetChapter(gctx, bookID, chapters[i].Index)
			if err != nil {
				return fmt.Errorf("chapter %d: %w", chapters[i].Index, err)
			}

			sections := r.chapterSections(ch.Content)
			outcome, err := r.runTask(gctx, newTask(), bookID, ch.ID, kind, sections)
			outcomes[i] = outcome
			return err
		})
	}
	err := g.Wait()

	var done []*analysis.Outcome
	for _, o := range outcomes {
		if o != nil {
			done = append(done, o)
		}
	}
	return done, err
}

// runBookTask runs one task over all chapters as sections.
func (r *Runner) runBookTask(ctx context.Context, task *analysis.Task, bookID int64, kind analysis.Kind, chapters []store.Chapter) (*analysis.Outcome, error) {
	sections := make([]analysis.Section, 0, len(chapters))
	for _, ch := range chapters {
		full, err := r.deps.Store.GetChapter(ctx, bookID, ch.Index)
		if err != nil {
			return nil, fmt.Errorf("chapter %d: %w", ch.Index, err)
		}
		sections = append(sections, analysis.Section{Index: ch.Index, Text: full.Content})
	}
	return r.runTask(ctx, task, bookID, bookScopeChapterID, kind, sections)
}

// runVoices synthesizes voice profiles from the stored character
// roster, then guarantees the narrator profile exists.
func (r *Runner) runVoices(ctx context.Context, task *analysis.Task, bookID int64) (*analysis.Outcome, error) {
	records, err := r.deps.Store.ListCharacters(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("load characters: %w", err)
	}

	var sections []analysis.Section
	idx := 0
	for _, rec := range records {
		if rec.Name == dialogs.SpeakerNarrator {
			continue
		}
		c, err := decodeCharacter(rec)
		if err != nil {
			r.logger.Warn("skipping character with corrupt record", "name", rec.Name, "error", err)
			continue
		}
		sections = append(sections, voices.CharacterSection(idx, c))
		idx++
	}

	var outcome *analysis.Outcome
	if len(sections) > 0 {
		outcome, err = r.runTask(ctx, task, bookID, bookScopeChapterID, analysis.KindVoices, sections)
		if err != nil {
			return outcome, err
		}
	}

	// The narrator reads everything outside quotes, so it always gets
	// a profile even when the model produced none.
	narrator := voices.Result{Profiles: []voices.Profile{
		{Character: dialogs.SpeakerNarrator, Voice: voices.NarratorProfile()},
	}}
	if _, err := task.Persister.Persist(ctx, bookID, narrator); err != nil {
		return outcome, fmt.Errorf("persist narrator profile: %w", err)
	}
	return outcome, nil
}

// runTask executes one task with status tracking.
func (r *Runner) runTask(ctx context.Context, task *analysis.Task, bookID, chapterID int64, kind analysis.Kind, sections []analysis.Section) (*analysis.Outcome, error) {
	status := TaskStatus{
		BookID:    bookID,
		ChapterID: chapterID,
		Kind:      kind,
		State:     "running",
		StartedAt: time.Now(),
	}
	r.setStatus(status)

	outcome, err := task.Run(ctx, bookID, chapterID, sections)
	if outcome != nil && outcome.ResumedAt > 0 {
		status.Resumed = true
	}
	if err != nil {
		status.State = "failed"
		status.Error = err.Error()
	} else {
		status.State = "completed"
	}
	r.setStatus(status)
	return outcome, err
}

// chapterSections slices chapter content into page-sized sections.
func (r *Runner) chapterSections(content string) []analysis.Section {
	size := r.deps.Config.Analysis.SegmentChars
	if size <= 0 {
		size = defaultSegmentChars
	}
	pages := textseg.SplitPages(content, size)
	sections := make([]analysis.Section, len(pages))
	for i, p := range pages {
		sections[i] = analysis.Section{Index: i, Text: p}
	}
	return sections
}

// buildDefinition constructs the kind's prompt definition with any
// per-book prompt overrides applied.
func (r *Runner) buildDefinition(kind analysis.Kind, bookID int64) (analysis.Definition, error) {
	budget := r.deps.Config.KindBudget(string(kind))

	system, user := r.resolveOverrides(kind, bookID)
	switch kind {
	case analysis.KindCharacters:
		return withOverrides(budget, system, user, characters.New, characters.NewWithOverrides), nil
	case analysis.KindDialogs:
		return withOverrides(budget, system, user, dialogs.New, dialogs.NewWithOverrides), nil
	case analysis.KindVoices:
		return withOverrides(budget, system, user, voices.New, voices.NewWithOverrides), nil
	case analysis.KindPlotPoints:
		return withOverrides(budget, system, user, plotpoints.New, plotpoints.NewWithOverrides), nil
	case analysis.KindForeshadow:
		return withOverrides(budget, system, user, foreshadow.New, foreshadow.NewWithOverrides), nil
	case analysis.KindThemes:
		return withOverrides(budget, system, user, themes.New, themes.NewWithOverrides), nil
	default:
		return nil, fmt.Errorf("unknown analysis kind %s", kind)
	}
}

// resolveOverrides returns override template texts, empty when the book
// has none.
func (r *Runner) resolveOverrides(kind analysis.Kind, bookID int64) (system, user string) {
	if r.deps.Resolver == nil {
		return "", ""
	}
	if p, err := r.deps.Resolver.Resolve(fmt.Sprintf("analysis.%s.system", kind), bookID); err == nil && p.IsOverride {
		system = p.Text
	}
	if p, err := r.deps.Resolver.Resolve(fmt.Sprintf("analysis.%s.user", kind), bookID); err == nil && p.IsOverride {
		user = p.Text
	}
	return system, user
}

// withOverrides picks the override constructor only when an override
// template is present.
func withOverrides[D analysis.Definition](budget tokens.Budget, system, user string, plain func(tokens.Budget) D, overridden func(tokens.Budget, string, string) D) analysis.Definition {
	if system == "" && user == "" {
		return plain(budget)
	}
	return overridden(budget, system, user)
}

// decodeCharacter rebuilds a character from its stored record.
func decodeCharacter(rec store.CharacterRecord) (characters.Character, error) {
	c := characters.Character{Name: rec.Name, SpeakerID: rec.SpeakerID}
	if rec.TraitsJSON != "" {
		if err := json.Unmarshal([]byte(rec.TraitsJSON), &c.Traits); err != nil {
			return c, fmt.Errorf("traits: %w", err)
		}
	}
	if rec.DialogsJSON != "" {
		if err := json.Unmarshal([]byte(rec.DialogsJSON), &c.Dialogs); err != nil {
			return c, fmt.Errorf("dialogs: %w", err)
		}
	}
	c.Voice = voiceHint(rec.VoiceProfile)
	return c, nil
}

// voiceHint extracts the textual hint from a stored voice profile
// column, which holds either a hint placeholder or a full profile.
func voiceHint(stored string) string {
	if stored == "" {
		return ""
	}
	var hint struct {
		Hint string `json:"hint"`
	}
	if err := json.Unmarshal([]byte(stored), &hint); err == nil && hint.Hint != "" {
		return hint.Hint
	}
	var profile voices.VoiceProfile
	if err := json.Unmarshal([]byte(stored), &profile); err == nil && profile.Tone != "" {
		return profile.Tone
	}
	return ""
}

func singleOutcome(o *analysis.Outcome) []*analysis.Outcome {
	if o == nil {
		return nil
	}
	return []*analysis.Outcome{o}
}

package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"storyteller/internal/analysis"
	"storyteller/internal/prompts/foreshadow"
	"storyteller/internal/prompts/plotpoints"
	"storyteller/internal/prompts/themes"
	"storyteller/internal/store"
)

// PlotPointPersister upserts plot points keyed by (chapter, title).
type PlotPointPersister struct {
	store  *store.Store
	logger *slog.Logger
}

// NewPlotPointPersister returns the persister for the plotpoints kind.
func NewPlotPointPersister(st *store.Store, logger *slog.Logger) *PlotPointPersister {
	return &PlotPointPersister{store: st, logger: ensureLogger(logger)}
}

// Kind implements analysis.Persister.
func (p *PlotPointPersister) Kind() analysis.Kind { return analysis.KindPlotPoints }

// Persist implements analysis.Persister.
func (p *PlotPointPersister) Persist(ctx context.Context, bookID int64, res analysis.Result) (int, error) {
	r, ok := res.(plotpoints.Result)
	if !ok {
		return 0, fmt.Errorf("plot point persister got %s result", res.ResultKind())
	}

	count := 0
	for _, point := range r.Points {
		rec := &store.PlotPointRecord{
			BookID:       bookID,
			ChapterIndex: point.Chapter,
			Title:        point.Title,
			Description:  point.Description,
			Significance: point.Significance,
		}
		if err := p.store.UpsertPlotPoint(ctx, rec); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// ForeshadowPersister upserts foreshadowing links keyed by
// (source, target, hint).
type ForeshadowPersister struct {
	store  *store.Store
	logger *slog.Logger
}

// NewForeshadowPersister returns the persister for the foreshadow kind.
func NewForeshadowPersister(st *store.Store, logger *slog.Logger) *ForeshadowPersister {
	return &ForeshadowPersister{store: st, logger: ensureLogger(logger)}
}

// Kind implements analysis.Persister.
func (p *ForeshadowPersister) Kind() analysis.Kind { return analysis.KindForeshadow }

// Persist implements analysis.Persister.
func (p *ForeshadowPersister) Persist(ctx context.Context, bookID int64, res analysis.Result) (int, error) {
	r, ok := res.(foreshadow.Result)
	if !ok {
		return 0, fmt.Errorf("foreshadow persister got %s result", res.ResultKind())
	}

	count := 0
	for _, link := range r.Links {
		rec := &store.ForeshadowRecord{
			BookID:        bookID,
			SourceChapter: link.SourceChapter,
			TargetChapter: link.TargetChapter,
			Hint:          link.Hint,
			Payoff:        link.Payoff,
		}
		if err := p.store.UpsertForeshadowing(ctx, rec); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// ThemePersister upserts themes keyed by name.
type ThemePersister struct {
	store  *store.Store
	logger *slog.Logger
}

// NewThemePersister returns the persister for the themes kind.
func NewThemePersister(st *store.Store, logger *slog.Logger) *ThemePersister {
	return &ThemePersister{store: st, logger: ensureLogger(logger)}
}

// Kind implements analysis.Persister.
func (p *ThemePersister) Kind() analysis.Kind { return analysis.KindThemes }

// Persist implements analysis.Persister.
func (p *ThemePersister) Persist(ctx context.Context, bookID int64, res analysis.Result) (int, error) {
	r, ok := res.(themes.Result)
	if !ok {
		return 0, fmt.Errorf("theme persister got %s result", res.ResultKind())
	}

	existing, err := p.store.ListThemes(ctx, bookID)
	if err != nil {
		return 0, err
	}
	stored := make(map[string]*store.ThemeRecord, len(existing))
	for i := range existing {
		stored[existing[i].Name] = &existing[i]
	}

	count := 0
	for _, theme := range r.Themes {
		chapters := theme.Chapters
		if prev, ok := stored[theme.Name]; ok {
			var prevChapters []int
			if err := json.Unmarshal([]byte(prev.ChaptersJSON), &prevChapters); err == nil {
				chapters = unionInts(prevChapters, chapters)
			}
			if theme.Description == "" {
				theme.Description = prev.Description
			}
		}
		encoded, err := json.Marshal(intsOrEmpty(chapters))
		if err != nil {
			p.logger.Warn("skipping theme", "book_id", bookID, "name", theme.Name, "error", err)
			continue
		}
		rec := &store.ThemeRecord{
			BookID:       bookID,
			Name:         theme.Name,
			Description:  theme.Description,
			ChaptersJSON: string(encoded),
		}
		if err := p.store.UpsertTheme(ctx, rec); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func unionInts(a, b []int) []int {
	merged := append(append([]int{}, a...), b...)
	sort.Ints(merged)
	out := merged[:0]
	for i, v := range merged {
		if i == 0 || v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

func intsOrEmpty(s []int) []int {
	if s == nil {
		return []int{}
	}
	return s
}

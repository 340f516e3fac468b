package services

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"golang.org/x/sync/errgroup"

	"quranreels/config"
	"quranreels/models"
	"quranreels/utils"
)

// PrimaryTextProvider returns the source-language text of a unit.
type PrimaryTextProvider interface {
	PrimaryText(ctx context.Context, ref models.ContentUnitRef) (string, error)
}

// TranslationProvider returns the translation of a unit in a language.
type TranslationProvider interface {
	Translation(ctx context.Context, ref models.ContentUnitRef, language string) (string, error)
}

// AudioDurationProvider returns the recitation length of a unit.
type AudioDurationProvider interface {
	AudioDurationMs(ctx context.Context, ref models.ContentUnitRef) (int64, error)
}

// SeriesOptions tunes a SeriesOrchestrator.
type SeriesOptions struct {
	Language    string
	Concurrency int
}

// SeriesOrchestrator runs the timeline pipeline over a range of verses,
// isolating failures per verse.
type SeriesOrchestrator struct {
	text        PrimaryTextProvider
	translation TranslationProvider
	audio       AudioDurationProvider
	builder     *TimelineBuilder
	timing      config.TimingConfig
	language    string
	concurrency int
	log         *utils.Logger
}

// NewSeriesOrchestrator creates an orchestrator. A non-positive concurrency runs one unit at a time.
func NewSeriesOrchestrator(text PrimaryTextProvider, translation TranslationProvider, audio AudioDurationProvider, builder *TimelineBuilder, timing config.TimingConfig, opts SeriesOptions, log *utils.Logger) *SeriesOrchestrator {
	if builder == nil {
		builder = NewTimelineBuilder()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Language == "" {
		opts.Language = "en"
	}

	return &SeriesOrchestrator{
		text:        text,
		translation: translation,
		audio:       audio,
		builder:     builder,
		timing:      timing,
		language:    opts.Language,
		concurrency: opts.Concurrency,
		log:         log,
	}
}

// EnumerateRefs lists every verse from the first verse of start to the last
// verse of end, crossing surah boundaries.
func EnumerateRefs(start, end models.ContentUnitRef) ([]models.ContentUnitRef, error) {
	if err := start.Validate(); err != nil {
		return nil, err
	}
	if err := end.Validate(); err != nil {
		return nil, err
	}

	first := models.VerseRef(start.Major, start.MinorStart)
	last := models.VerseRef(end.Major, end.MinorEnd)
	if last.Less(first) {
		return nil, fmt.Errorf("%w: series end %s is before start %s", models.ErrInvalidReference, end, start)
	}

	var refs []models.ContentUnitRef
	for ref, ok := first, true; ok; ref, ok = ref.Next() {
		refs = append(refs, ref)
		if ref == last {
			break
		}
	}
	return refs, nil
}

// Series returns a lazy sequence of per-verse results in reference order.
// Verses run in batches of the configured concurrency; once ctx is cancelled
// the in-flight batch finishes and no further batch starts. Ranging over the
// sequence again re-runs the whole range.
func (o *SeriesOrchestrator) Series(ctx context.Context, start, end models.ContentUnitRef) (iter.Seq2[models.ContentUnitRef, models.UnitResult], error) {
	refs, err := EnumerateRefs(start, end)
	if err != nil {
		return nil, err
	}

	return func(yield func(models.ContentUnitRef, models.UnitResult) bool) {
		for lo := 0; lo < len(refs); lo += o.concurrency {
			if ctx.Err() != nil {
				o.log.Info("series stopped", "next_ref", refs[lo].String(), "remaining", len(refs)-lo)
				return
			}

			batch := refs[lo:min(lo+o.concurrency, len(refs))]
			results := o.runBatch(context.WithoutCancel(ctx), batch)

			for i, ref := range batch {
				if !yield(ref, results[i]) {
					return
				}
			}
		}
	}, nil
}

func (o *SeriesOrchestrator) runBatch(ctx context.Context, batch []models.ContentUnitRef) []models.UnitResult {
	results := make([]models.UnitResult, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i := range batch {
		g.Go(func() error {
			results[i] = o.ProcessUnit(gctx, batch[i])
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// CreateSeries collects Series into a slice. The error is ctx.Err() when the
// range was cut short by cancellation; the results gathered so far are returned with it.
func (o *SeriesOrchestrator) CreateSeries(ctx context.Context, start, end models.ContentUnitRef) ([]models.UnitResult, error) {
	seq, err := o.Series(ctx, start, end)
	if err != nil {
		return nil, err
	}

	var results []models.UnitResult
	for _, res := range seq {
		results = append(results, res)
	}
	return results, ctx.Err()
}

// ProcessUnit fetches inputs for one unit and builds its timeline.
func (o *SeriesOrchestrator) ProcessUnit(ctx context.Context, ref models.ContentUnitRef) models.UnitResult {
	log := o.log.With("ref", ref.String())
	tl, err := o.processUnit(ctx, ref, log)
	if err != nil {
		if errors.Is(err, models.ErrTimelineInconsistency) {
			log.Error("inconsistent timeline built", "error", err)
		} else {
			log.Warn("unit failed", "kind", models.ErrorKind(err), "error", err)
		}
		return models.UnitResult{Ref: ref, Err: err}
	}
	return models.UnitResult{Ref: ref, Timeline: tl}
}

func (o *SeriesOrchestrator) processUnit(ctx context.Context, ref models.ContentUnitRef, log *utils.Logger) (*models.Timeline, error) {
	text, err := o.text.PrimaryText(ctx, ref)
	if err != nil {
		return nil, asKind(models.ErrPrimaryTextUnavailable, err)
	}

	translation, err := o.translation.Translation(ctx, ref, o.language)
	if err != nil {
		return nil, asKind(models.ErrTranslationNotFound, err)
	}

	audioMs, err := o.audio.AudioDurationMs(ctx, ref)
	if err != nil {
		return nil, asKind(models.ErrAudioDurationUnavailable, err)
	}

	tl, err := o.builder.BuildUnit(ref, text, translation, audioMs, o.timing)
	if err != nil {
		return nil, err
	}

	for _, seg := range tl.Pages() {
		if seg.Page.Overflow {
			log.Warn("page exceeds character limit",
				"page", seg.Page.Index, "chars", seg.Page.CharCount, "limit", o.timing.MaxCharsPerPage)
		}
	}
	log.Debug("timeline built", "segments", len(tl.Segments), "duration_ms", tl.TotalDurationMs, "title_card", tl.HasTitleCard())

	return tl, nil
}

// asKind makes sure err matches kind under errors.Is.
func asKind(kind, err error) error {
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}

// Summarize counts successes and failures.
func Summarize(results []models.UnitResult) models.SeriesSummary {
	var s models.SeriesSummary
	for _, r := range results {
		if r.OK() {
			s.Succeeded++
			continue
		}
		s.Failed++
		s.FailedRef = append(s.FailedRef, r.Ref.String())
	}
	return s
}

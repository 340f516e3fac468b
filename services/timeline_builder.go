package services

import (
	"fmt"

	"quranreels/config"
	"quranreels/models"
)

// TimelineBuilder composes the title card rule and the allocator into a
// validated timeline. It holds no mutable state and is safe for concurrent use.
type TimelineBuilder struct {
	segmenter *TextProcessor
	weigher   Weigher
	rule      TitleCardRule
}

// NewTimelineBuilder creates a builder with the default segmenter, weigher and rule
func NewTimelineBuilder() *TimelineBuilder {
	return &TimelineBuilder{
		segmenter: NewTextProcessor(),
		weigher:   NewPunctuationWeigher(),
		rule:      DefaultTitleCardRule(),
	}
}

// WithWeigher returns a copy of the builder using w.
func (b *TimelineBuilder) WithWeigher(w Weigher) *TimelineBuilder {
	cp := *b
	cp.weigher = w
	return &cp
}

// Build lays pages out over audioMs, prepends the title card when the rule
// asks for one, and validates the result.
func (b *TimelineBuilder) Build(ref models.ContentUnitRef, pages []models.Page, weights []models.Weight, audioMs int64, cfg config.TimingConfig) (*models.Timeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	spans, err := Allocate(pages, weights, audioMs, cfg.MinPageDurationMs)
	if err != nil {
		return nil, fmt.Errorf("allocate %s: %w", ref, err)
	}

	tl := &models.Timeline{
		Ref:             ref,
		Segments:        make([]models.TimelineSegment, 0, len(pages)+1),
		AudioDurationMs: audioMs,
	}

	if b.rule.ShouldInsert(ref.Major, ref.MinorStart) {
		tl.AudioOffsetMs = cfg.TitleCardDurationMs
		tl.Segments = append(tl.Segments, models.TimelineSegment{
			Kind:               models.SegmentTitleCard,
			StartMs:            0,
			EndMs:              cfg.TitleCardDurationMs,
			TranslationStartMs: 0,
		})
	}

	for i, span := range spans {
		page := pages[i]
		start := span.StartMs + tl.AudioOffsetMs
		end := span.EndMs + tl.AudioOffsetMs
		tl.Segments = append(tl.Segments, models.TimelineSegment{
			Kind:               models.SegmentPage,
			StartMs:            start,
			EndMs:              end,
			Page:               &page,
			TranslationStartMs: min(start+cfg.TranslationDelayMs, end-1),
		})
	}
	tl.TotalDurationMs = tl.AudioOffsetMs + audioMs

	if err := ValidateTimeline(tl); err != nil {
		return nil, err
	}
	return tl, nil
}

// BuildUnit runs the full pipeline for one unit: segment, align the
// translation, weigh, then build.
func (b *TimelineBuilder) BuildUnit(ref models.ContentUnitRef, text, translation string, audioMs int64, cfg config.TimingConfig) (*models.Timeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if audioMs <= 0 {
		return nil, fmt.Errorf("%w: %s has %dms of audio", models.ErrInvalidDuration, ref, audioMs)
	}

	pages, err := b.segmenter.Segment(text, cfg.MaxCharsPerPage)
	if err != nil {
		return nil, fmt.Errorf("segment %s: %w", ref, err)
	}
	pages = AlignTranslation(pages, translation)

	return b.Build(ref, pages, WeighAll(b.weigher, pages), audioMs, cfg)
}

// ValidateTimeline checks ordering, contiguity and the duration sum.
func ValidateTimeline(tl *models.Timeline) error {
	if tl == nil || len(tl.Segments) == 0 {
		return fmt.Errorf("%w: timeline is empty", models.ErrTimelineInconsistency)
	}
	if tl.TotalDurationMs != tl.AudioOffsetMs+tl.AudioDurationMs {
		return fmt.Errorf("%w: total %dms != offset %dms + audio %dms",
			models.ErrTimelineInconsistency, tl.TotalDurationMs, tl.AudioOffsetMs, tl.AudioDurationMs)
	}
	if tl.Segments[0].StartMs != 0 {
		return fmt.Errorf("%w: first segment starts at %dms", models.ErrTimelineInconsistency, tl.Segments[0].StartMs)
	}

	var sum int64
	for i, s := range tl.Segments {
		if s.StartMs >= s.EndMs {
			return fmt.Errorf("%w: segment %d has invalid range %d-%d", models.ErrTimelineInconsistency, i, s.StartMs, s.EndMs)
		}
		if i > 0 && tl.Segments[i-1].EndMs != s.StartMs {
			return fmt.Errorf("%w: segment %d starts at %dms, previous ends at %dms",
				models.ErrTimelineInconsistency, i, s.StartMs, tl.Segments[i-1].EndMs)
		}
		switch s.Kind {
		case models.SegmentTitleCard:
			if i != 0 || s.Page != nil {
				return fmt.Errorf("%w: misplaced title card at segment %d", models.ErrTimelineInconsistency, i)
			}
		case models.SegmentPage:
			if s.Page == nil {
				return fmt.Errorf("%w: page segment %d has no page", models.ErrTimelineInconsistency, i)
			}
			if s.TranslationStartMs < s.StartMs || s.TranslationStartMs >= s.EndMs {
				return fmt.Errorf("%w: segment %d reveals translation outside its range", models.ErrTimelineInconsistency, i)
			}
		default:
			return fmt.Errorf("%w: segment %d has unknown kind %q", models.ErrTimelineInconsistency, i, s.Kind)
		}
		sum += s.DurationMs()
	}

	if sum != tl.TotalDurationMs {
		return fmt.Errorf("%w: segments sum to %dms, expected %dms", models.ErrTimelineInconsistency, sum, tl.TotalDurationMs)
	}
	return nil
}

package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quranreels/config"
	"quranreels/models"
)

type uniformWeigher struct{}

func (uniformWeigher) Weigh(models.Page) models.Weight { return 1 }

func TestTitleCardRule(t *testing.T) {
	rule := DefaultTitleCardRule()

	tests := []struct {
		major, minor int
		want         bool
	}{
		{2, 1, true},
		{112, 1, true},
		{114, 1, true},
		{1, 1, false},
		{9, 1, false},
		{2, 255, false},
		{9, 2, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, rule.ShouldInsert(tt.major, tt.minor), "%d:%d", tt.major, tt.minor)
	}

	custom := TitleCardRule{Exceptions: map[int]struct{}{2: {}}}
	assert.False(t, custom.ShouldInsert(2, 1))
	assert.True(t, custom.ShouldInsert(1, 1))
}

func TestAlignTranslation(t *testing.T) {
	tests := []struct {
		name        string
		charCounts  []int
		translation string
		want        []string
	}{
		{"Even split", []int{10, 10}, "one two three four", []string{"one two", "three four"}},
		{"Follows character share", []int{30, 10}, "a b c d", []string{"a b c", "d"}},
		{"Every page gets a word", []int{100, 1, 1}, "x y z", []string{"x", "y", "z"}},
		{"Fewer words than pages", []int{5, 5, 5}, "a b", []string{"a", "b", ""}},
		{"No translation", []int{5, 5}, "", []string{"", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages := make([]models.Page, len(tt.charCounts))
			for i, c := range tt.charCounts {
				pages[i] = models.Page{Index: i + 1, CharCount: c}
			}

			aligned := AlignTranslation(pages, tt.translation)
			got := make([]string, len(aligned))
			for i, p := range aligned {
				got[i] = p.SecondaryText
				assert.Empty(t, pages[i].SecondaryText, "input page modified")
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildFirstChapterOpening(t *testing.T) {
	b := NewTimelineBuilder()
	ref := models.VerseRef(1, 1)

	tl, err := b.BuildUnit(ref, "بِسْمِ اللَّهِ الرَّحْمَٰنِ الرَّحِيمِ", "In the name of Allah", 3000, config.DefaultTiming())
	require.NoError(t, err)

	require.Len(t, tl.Segments, 1)
	assert.False(t, tl.HasTitleCard())
	assert.Equal(t, models.SegmentPage, tl.Segments[0].Kind)
	assert.Equal(t, int64(0), tl.Segments[0].StartMs)
	assert.Equal(t, int64(3000), tl.Segments[0].EndMs)
	assert.Equal(t, int64(3000), tl.TotalDurationMs)
	assert.Equal(t, "In the name of Allah", tl.Segments[0].Page.SecondaryText)
}

func TestBuildLongVerse(t *testing.T) {
	cfg := config.DefaultTiming()
	cfg.MaxCharsPerPage = 200

	tl, err := NewTimelineBuilder().BuildUnit(models.VerseRef(2, 255), longVerse(), "", 30000, cfg)
	require.NoError(t, err)

	assert.False(t, tl.HasTitleCard())
	pages := tl.Pages()
	require.Len(t, pages, 3)
	assert.Equal(t, []int{170, 170, 78}, []int{pages[0].Page.CharCount, pages[1].Page.CharCount, pages[2].Page.CharCount})

	assert.Equal(t, int64(30000), tl.TotalDurationMs)
	assert.Equal(t, int64(30000), pages[2].EndMs)
	for _, p := range pages {
		assert.GreaterOrEqual(t, p.DurationMs(), cfg.MinPageDurationMs)
	}
	assert.Greater(t, pages[0].DurationMs(), pages[2].DurationMs())
}

func TestBuildSkipsTitleCardForChapterNine(t *testing.T) {
	tl, err := NewTimelineBuilder().BuildUnit(models.VerseRef(9, 1), "Freedom from obligation", "", 5000, config.DefaultTiming())
	require.NoError(t, err)

	assert.False(t, tl.HasTitleCard())
	for _, s := range tl.Segments {
		assert.Equal(t, models.SegmentPage, s.Kind)
	}
	assert.Equal(t, int64(5000), tl.TotalDurationMs)
	assert.Equal(t, int64(0), tl.AudioOffsetMs)
}

func TestBuildInsertsTitleCard(t *testing.T) {
	cfg := config.DefaultTiming()
	tl, err := NewTimelineBuilder().BuildUnit(models.VerseRef(2, 1), "الم", "Alif, Lam, Meem.", 4000, cfg)
	require.NoError(t, err)

	require.Len(t, tl.Segments, 2)
	assert.True(t, tl.HasTitleCard())

	card := tl.Segments[0]
	assert.Nil(t, card.Page)
	assert.Equal(t, int64(0), card.StartMs)
	assert.Equal(t, cfg.TitleCardDurationMs, card.EndMs)

	page := tl.Segments[1]
	assert.Equal(t, cfg.TitleCardDurationMs, page.StartMs)
	assert.Equal(t, cfg.TitleCardDurationMs+4000, page.EndMs)

	assert.Equal(t, cfg.TitleCardDurationMs, tl.AudioOffsetMs)
	assert.Equal(t, int64(4000), tl.AudioDurationMs)
	assert.Equal(t, cfg.TitleCardDurationMs+4000, tl.TotalDurationMs)
}

func TestBuildTranslationDelay(t *testing.T) {
	cfg := config.DefaultTiming()

	tl, err := NewTimelineBuilder().BuildUnit(models.VerseRef(2, 1), "الم", "Alif Lam Meem", 4000, cfg)
	require.NoError(t, err)
	assert.Equal(t, tl.Segments[1].StartMs, tl.Segments[1].TranslationStartMs)

	cfg.TranslationDelayMs = 500
	tl, err = NewTimelineBuilder().BuildUnit(models.VerseRef(2, 1), "الم", "Alif Lam Meem", 4000, cfg)
	require.NoError(t, err)
	assert.Equal(t, tl.Segments[1].StartMs+500, tl.Segments[1].TranslationStartMs)

	cfg.TranslationDelayMs = 60000
	tl, err = NewTimelineBuilder().BuildUnit(models.VerseRef(2, 1), "الم", "Alif Lam Meem", 4000, cfg)
	require.NoError(t, err)
	assert.Equal(t, tl.Segments[1].EndMs-1, tl.Segments[1].TranslationStartMs)
}

func TestBuildIsIdempotent(t *testing.T) {
	b := NewTimelineBuilder()
	cfg := config.DefaultTiming()

	first, err := b.BuildUnit(models.VerseRef(2, 255), longVerse(), "some translation text", 40000, cfg)
	require.NoError(t, err)
	second, err := b.BuildUnit(models.VerseRef(2, 255), longVerse(), "some translation text", 40000, cfg)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuildErrors(t *testing.T) {
	b := NewTimelineBuilder()
	cfg := config.DefaultTiming()

	_, err := b.BuildUnit(models.VerseRef(2, 1), "", "", 4000, cfg)
	assert.ErrorIs(t, err, models.ErrEmptyText)

	_, err = b.BuildUnit(models.VerseRef(2, 1), "text", "", 0, cfg)
	assert.ErrorIs(t, err, models.ErrInvalidDuration)

	_, err = b.BuildUnit(models.ContentUnitRef{Major: 115, MinorStart: 1, MinorEnd: 1}, "text", "", 4000, cfg)
	assert.ErrorIs(t, err, models.ErrInvalidReference)

	bad := cfg
	bad.MaxCharsPerPage = 0
	_, err = b.BuildUnit(models.VerseRef(2, 1), "text", "", 4000, bad)
	assert.ErrorIs(t, err, models.ErrInvalidConfig)

	cfg.MinPageDurationMs = 2000
	_, err = b.Build(models.VerseRef(2, 2), pagesOf(3), []models.Weight{1, 1, 1}, 3000, cfg)
	assert.ErrorIs(t, err, models.ErrInfeasibleAllocation)
}

func TestBuildWithWeigher(t *testing.T) {
	cfg := config.DefaultTiming()
	cfg.MaxCharsPerPage = 2
	cfg.MinPageDurationMs = 0

	b := NewTimelineBuilder().WithWeigher(uniformWeigher{})
	tl, err := b.BuildUnit(models.VerseRef(2, 2), "aa bb, cc.", "", 9000, cfg)
	require.NoError(t, err)

	pages := tl.Pages()
	require.Len(t, pages, 3)
	for _, p := range pages {
		assert.Equal(t, int64(3000), p.DurationMs())
	}
}

func TestValidateTimeline(t *testing.T) {
	page := &models.Page{Index: 1, PrimaryText: "a"}
	valid := func() *models.Timeline {
		return &models.Timeline{
			Segments: []models.TimelineSegment{
				{Kind: models.SegmentTitleCard, StartMs: 0, EndMs: 1000},
				{Kind: models.SegmentPage, StartMs: 1000, EndMs: 3000, Page: page, TranslationStartMs: 1000},
			},
			TotalDurationMs: 3000,
			AudioOffsetMs:   1000,
			AudioDurationMs: 2000,
		}
	}
	require.NoError(t, ValidateTimeline(valid()))

	tests := []struct {
		name   string
		mutate func(tl *models.Timeline)
	}{
		{"Gap", func(tl *models.Timeline) { tl.Segments[1].StartMs = 1100; tl.Segments[1].TranslationStartMs = 1100 }},
		{"Wrong total", func(tl *models.Timeline) { tl.TotalDurationMs = 3500 }},
		{"Empty segment", func(tl *models.Timeline) { tl.Segments[0].EndMs = 0 }},
		{"Title card not first", func(tl *models.Timeline) {
			tl.Segments[0], tl.Segments[1] = tl.Segments[1], tl.Segments[0]
		}},
		{"Page without text", func(tl *models.Timeline) { tl.Segments[1].Page = nil }},
		{"Translation outside page", func(tl *models.Timeline) { tl.Segments[1].TranslationStartMs = 3000 }},
		{"No segments", func(tl *models.Timeline) { tl.Segments = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := valid()
			tt.mutate(tl)
			assert.ErrorIs(t, ValidateTimeline(tl), models.ErrTimelineInconsistency)
		})
	}
}

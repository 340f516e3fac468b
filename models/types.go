package models

import "time"

// Page is a readability-bounded slice of a unit's text shown as one screen.
type Page struct {
	Index         int    `json:"index"`
	PrimaryText   string `json:"primary_text"`
	SecondaryText string `json:"secondary_text"`
	CharCount     int    `json:"char_count"`
	WordCount     int    `json:"word_count"`
	// Overflow marks a page allowed past the page limit: a single
	// indivisible word, or a trailing page merged into its predecessor.
	Overflow bool `json:"overflow,omitempty"`
}

// Weight is the relative reading weight of a page. Always > 0.
type Weight float64

// Span is an allocated [StartMs, EndMs) interval.
type Span struct {
	StartMs int64 `json:"start_ms"`
	EndMs   int64 `json:"end_ms"`
}

// DurationMs returns EndMs - StartMs.
func (s Span) DurationMs() int64 {
	return s.EndMs - s.StartMs
}

// SegmentKind distinguishes title cards from page displays.
type SegmentKind string

const (
	SegmentTitleCard SegmentKind = "title_card"
	SegmentPage      SegmentKind = "page"
)

// TimelineSegment is one display interval of a Timeline.
type TimelineSegment struct {
	Kind    SegmentKind `json:"kind"`
	StartMs int64       `json:"start_ms"`
	EndMs   int64       `json:"end_ms"`
	Page    *Page       `json:"page,omitempty"`
	// TranslationStartMs is when the secondary text is revealed.
	TranslationStartMs int64 `json:"translation_start_ms"`
}

// DurationMs returns EndMs - StartMs.
func (s TimelineSegment) DurationMs() int64 {
	return s.EndMs - s.StartMs
}

// Timeline is the gap-free, ordered display schedule of one content unit.
type Timeline struct {
	Ref             ContentUnitRef    `json:"ref"`
	Segments        []TimelineSegment `json:"segments"`
	TotalDurationMs int64             `json:"total_duration_ms"`
	// AudioOffsetMs is where recitation audio starts (title card length or 0).
	AudioOffsetMs   int64 `json:"audio_offset_ms"`
	AudioDurationMs int64 `json:"audio_duration_ms"`
}

// HasTitleCard reports whether the first segment is a title card.
func (t *Timeline) HasTitleCard() bool {
	return len(t.Segments) > 0 && t.Segments[0].Kind == SegmentTitleCard
}

// Pages returns the page segments in order.
func (t *Timeline) Pages() []TimelineSegment {
	out := make([]TimelineSegment, 0, len(t.Segments))
	for _, s := range t.Segments {
		if s.Kind == SegmentPage {
			out = append(out, s)
		}
	}
	return out
}

// UnitResult is the all-or-nothing outcome for one reference of a series.
type UnitResult struct {
	Ref      ContentUnitRef
	Timeline *Timeline
	Err      error
}

// OK reports whether the unit produced a timeline.
func (r UnitResult) OK() bool {
	return r.Err == nil && r.Timeline != nil
}

// SeriesSummary counts outcomes of a series.
type SeriesSummary struct {
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	FailedRef []string `json:"failed_refs,omitempty"`
}

// TimelineRequest asks for a synchronous timeline from supplied text and duration.
type TimelineRequest struct {
	Reference       string `json:"reference" binding:"required"`
	Text            string `json:"text" binding:"required"`
	Translation     string `json:"translation"`
	AudioDurationMs int64  `json:"audio_duration_ms" binding:"required"`
}

// SeriesRequest represents the input from the frontend for a batch of verses.
type SeriesRequest struct {
	Start       string `json:"start" binding:"required"`
	End         string `json:"end"`
	Language    string `json:"language"`
	Qari        string `json:"qari"`
	Concurrency int    `json:"concurrency"`
}

// SeriesResponse returns the job ID
type SeriesResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// UnitStatus is the per-reference line of a status response.
type UnitStatus struct {
	Ref        string `json:"ref"`
	OK         bool   `json:"ok"`
	Segments   int    `json:"segments,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
	ErrorKind  string `json:"error_kind,omitempty"`
	Error      string `json:"error,omitempty"`
}

// StatusResponse returns current progress
type StatusResponse struct {
	Status    string        `json:"status"` // "processing", "completed", "cancelled", "failed"
	Qari      string        `json:"qari"`
	Language  string        `json:"language"`
	Progress  int           `json:"progress"`
	Total     int           `json:"total"`
	Completed int           `json:"completed"`
	Units     []UnitStatus  `json:"units"`
	Summary   SeriesSummary `json:"summary"`
	Error     *string       `json:"error,omitempty"`
}

// JobStatus tracks a series job in memory
type JobStatus struct {
	JobID     string
	Status    string
	Qari      string
	Language  string
	Total     int
	Results   []UnitResult
	Error     error
	CreatedAt time.Time
	UpdatedAt time.Time
}

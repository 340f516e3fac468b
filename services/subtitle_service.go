package services

import (
	"fmt"
	"io"
	"strings"

	"quranreels/models"
	"quranreels/utils"
)

// SubtitleService renders timelines as SRT cues for the compositor
type SubtitleService struct {
	titleText string
}

// NewSubtitleService creates a new subtitle service
func NewSubtitleService() *SubtitleService {
	return &SubtitleService{titleText: TitleCardText}
}

// WriteSRT writes one cue per segment. Page cues hold the primary text and,
// when present, the translation on the following line.
func (ss *SubtitleService) WriteSRT(w io.Writer, tl *models.Timeline) error {
	if tl == nil || len(tl.Segments) == 0 {
		return fmt.Errorf("no segments to write")
	}

	for i, seg := range tl.Segments {
		var body string
		switch seg.Kind {
		case models.SegmentTitleCard:
			body = ss.titleText
		case models.SegmentPage:
			lines := []string{seg.Page.PrimaryText}
			if seg.Page.SecondaryText != "" {
				lines = append(lines, seg.Page.SecondaryText)
			}
			body = strings.Join(lines, "\n")
		}

		if _, err := fmt.Fprintf(w, "%d\n%s --> %s\n%s\n\n", i+1,
			utils.FormatSRTTimestamp(seg.StartMs), utils.FormatSRTTimestamp(seg.EndMs), body); err != nil {
			return fmt.Errorf("failed to write cue %d: %w", i+1, err)
		}
	}

	return nil
}

// SRT returns the SRT rendering of tl.
func (ss *SubtitleService) SRT(tl *models.Timeline) (string, error) {
	var b strings.Builder
	if err := ss.WriteSRT(&b, tl); err != nil {
		return "", err
	}
	return b.String(), nil
}

package services

import (
	"fmt"
	"strings"

	"quranreels/models"
)

// TextProcessor splits a unit's text into display pages
type TextProcessor struct {
	// LookbackRatio is the tail share of a page searched for a clause break. Default: 0.15
	LookbackRatio float64
	// MinTailRatio is the share of the page limit below which a trailing page
	// is merged into its predecessor. Default: 0.20
	MinTailRatio float64
}

// NewTextProcessor creates a new text processor
func NewTextProcessor() *TextProcessor {
	return &TextProcessor{
		LookbackRatio: 0.15,
		MinTailRatio:  0.20,
	}
}

// Segment splits text into pages of at most maxChars characters.
// - Splits on word boundaries only; an over-long word becomes its own page
// - Prefers a clause or sentence break found near the end of a full page
// - Merges a short trailing page into the previous one
func (tp *TextProcessor) Segment(text string, maxChars int) ([]models.Page, error) {
	if maxChars <= 0 {
		return nil, fmt.Errorf("%w: max chars per page must be positive, got %d", models.ErrInvalidConfig, maxChars)
	}

	tokens := tp.tokenize(text)
	if len(tokens) == 0 {
		return nil, models.ErrEmptyText
	}

	groups := tp.fill(tokens, maxChars)
	groups = tp.rebalance(groups, maxChars)

	pages := make([]models.Page, len(groups))
	for i, group := range groups {
		primary := strings.Join(group, " ")
		chars := runeLen(primary)
		pages[i] = models.Page{
			Index:       i + 1,
			PrimaryText: primary,
			CharCount:   chars,
			WordCount:   tp.countWords(primary),
			Overflow:    chars > maxChars,
		}
	}

	return pages, nil
}

// tokenize splits text on whitespace, gluing mark-only tokens to the word before
// so that a page never opens with a pause sign.
func (tp *TextProcessor) tokenize(text string) []string {
	fields := strings.Fields(text)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(tokens) > 0 && !hasWordContent(f) {
			tokens[len(tokens)-1] += " " + f
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// fill greedily packs tokens into pages.
func (tp *TextProcessor) fill(tokens []string, maxChars int) [][]string {
	var pages [][]string
	var current []string
	currentLen := 0

	for _, token := range tokens {
		tokenLen := runeLen(token)

		if len(current) == 0 {
			current = []string{token}
			currentLen = tokenLen
			continue
		}

		if currentLen+1+tokenLen <= maxChars {
			current = append(current, token)
			currentLen += 1 + tokenLen
			continue
		}

		// Page full: close it, possibly earlier at a clause break
		keep := tp.breakPoint(current, currentLen, maxChars)
		carried := current[keep:]
		carriedLen := joinedLen(carried)
		if len(carried) > 0 && carriedLen+1+tokenLen > maxChars {
			// Carrying would push the next page over the limit
			keep = len(current)
			carried = nil
			carriedLen = 0
		}

		pages = append(pages, current[:keep])

		next := make([]string, 0, len(carried)+1)
		next = append(next, carried...)
		next = append(next, token)
		current = next
		if carriedLen > 0 {
			currentLen = carriedLen + 1 + tokenLen
		} else {
			currentLen = tokenLen
		}
	}

	if len(current) > 0 {
		pages = append(pages, current)
	}

	return pages
}

// breakPoint returns how many tokens of a full page to keep. It looks back
// for the latest clause-ending token whose end lies within the lookback window.
func (tp *TextProcessor) breakPoint(page []string, pageLen, maxChars int) int {
	if len(page) < 2 || trailingPause(page[len(page)-1]) != pauseNone {
		return len(page)
	}

	window := int(float64(maxChars) * tp.LookbackRatio)
	best := -1
	offset := 0
	for i, token := range page[:len(page)-1] {
		if i > 0 {
			offset++
		}
		offset += runeLen(token)
		if offset >= pageLen-window && trailingPause(token) != pauseNone {
			best = i + 1
		}
	}

	if best == -1 {
		return len(page)
	}
	return best
}

// rebalance merges a near-empty trailing page into the previous page.
func (tp *TextProcessor) rebalance(pages [][]string, maxChars int) [][]string {
	if len(pages) < 2 {
		return pages
	}

	last := pages[len(pages)-1]
	if float64(joinedLen(last)) >= float64(maxChars)*tp.MinTailRatio {
		return pages
	}

	prev := pages[len(pages)-2]
	merged := make([]string, 0, len(prev)+len(last))
	merged = append(merged, prev...)
	merged = append(merged, last...)

	out := pages[: len(pages)-2 : len(pages)-2]
	return append(out, merged)
}

// countWords counts tokens carrying letters or digits
func (tp *TextProcessor) countWords(text string) int {
	count := 0
	for _, f := range strings.Fields(text) {
		if hasWordContent(f) {
			count++
		}
	}
	return count
}

func joinedLen(tokens []string) int {
	if len(tokens) == 0 {
		return 0
	}
	n := len(tokens) - 1
	for _, t := range tokens {
		n += runeLen(t)
	}
	return n
}

// Segment splits text with the default lookback and rebalancing ratios.
func Segment(text string, maxChars int) ([]models.Page, error) {
	return NewTextProcessor().Segment(text, maxChars)
}

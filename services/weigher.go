package services

import "quranreels/models"

// Weigher assigns a relative reading weight to a page.
type Weigher interface {
	Weigh(page models.Page) models.Weight
}

// PunctuationWeigher weighs a page by its word count plus a pause bonus for
// every run of punctuation in the primary text.
type PunctuationWeigher struct {
	TerminalBonus float64
	ClauseBonus   float64
}

// NewPunctuationWeigher returns the default word-count-plus-pause model.
func NewPunctuationWeigher() PunctuationWeigher {
	return PunctuationWeigher{
		TerminalBonus: 1.5,
		ClauseBonus:   0.5,
	}
}

// Weigh never returns less than 1.
func (w PunctuationWeigher) Weigh(page models.Page) models.Weight {
	weight := float64(page.WordCount)

	// A run like "?!" or "..." is one pause, weighted by its strongest mark
	run := pauseNone
	for _, r := range page.PrimaryText {
		class := classify(r)
		if class == pauseNone {
			weight += w.bonus(run)
			run = pauseNone
			continue
		}
		if class > run {
			run = class
		}
	}
	weight += w.bonus(run)

	if weight < 1 {
		return 1
	}
	return models.Weight(weight)
}

func (w PunctuationWeigher) bonus(class pauseClass) float64 {
	switch class {
	case pauseTerminal:
		return w.TerminalBonus
	case pauseClause:
		return w.ClauseBonus
	}
	return 0
}

// WeighAll weighs pages in order.
func WeighAll(w Weigher, pages []models.Page) []models.Weight {
	weights := make([]models.Weight, len(pages))
	for i, p := range pages {
		weights[i] = w.Weigh(p)
	}
	return weights
}

package services

import (
	"math"
	"strings"

	"quranreels/models"
)

// AlignTranslation distributes translation words over pages in proportion to
// each page's share of the primary characters. While words remain, every page
// receives at least one. The input pages are not modified.
func AlignTranslation(pages []models.Page, translation string) []models.Page {
	out := make([]models.Page, len(pages))
	copy(out, pages)

	words := strings.Fields(translation)
	if len(out) == 0 || len(words) == 0 {
		return out
	}

	totalChars := 0
	for _, p := range out {
		totalChars += p.CharCount
	}
	if totalChars == 0 {
		totalChars = len(out)
	}

	n := len(out)
	prev := 0
	cumChars := 0
	for i := range out {
		end := len(words)
		if i < n-1 {
			cumChars += max(out[i].CharCount, 0)
			end = int(math.Round(float64(cumChars) / float64(totalChars) * float64(len(words))))
			if end <= prev {
				end = prev + 1
			}
			if len(words) >= n {
				// Leave at least one word for each remaining page
				end = min(end, len(words)-(n-1-i))
			}
			end = min(max(end, prev), len(words))
		}
		out[i].SecondaryText = strings.Join(words[prev:end], " ")
		prev = end
	}

	return out
}

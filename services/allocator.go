package services

import (
	"fmt"
	"math"

	"quranreels/models"
)

// Allocate distributes totalMs across pages proportionally to their weights.
// Every page receives at least minMs (and never less than 1ms); the result is
// a contiguous run of spans starting at 0 whose durations sum to totalMs.
func Allocate(pages []models.Page, weights []models.Weight, totalMs, minMs int64) ([]models.Span, error) {
	if totalMs <= 0 {
		return nil, fmt.Errorf("%w: total duration must be positive, got %dms", models.ErrInvalidDuration, totalMs)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: no pages to allocate", models.ErrEmptyText)
	}
	if len(weights) != len(pages) {
		return nil, fmt.Errorf("allocate: %d weights for %d pages", len(weights), len(pages))
	}

	n := len(weights)
	floor := minMs
	if floor < 1 {
		floor = 1
	}
	if floor*int64(n) > totalMs {
		return nil, fmt.Errorf("%w: %d pages x %dms exceeds %dms", models.ErrInfeasibleAllocation, n, floor, totalMs)
	}

	durations := proportional(weights, totalMs)
	enforceFloor(durations, float64(floor))
	ms := roundDurations(durations, totalMs, floor)

	spans := make([]models.Span, n)
	var cursor int64
	for i, d := range ms {
		spans[i] = models.Span{StartMs: cursor, EndMs: cursor + d}
		cursor += d
	}
	return spans, nil
}

func proportional(weights []models.Weight, totalMs int64) []float64 {
	sum := 0.0
	clamped := make([]float64, len(weights))
	for i, w := range weights {
		v := float64(w)
		if v <= 0 {
			v = 1
		}
		clamped[i] = v
		sum += v
	}

	out := make([]float64, len(weights))
	for i, v := range clamped {
		out[i] = float64(totalMs) * v / sum
	}
	return out
}

// enforceFloor raises pages below floor and takes the deficit from the pages
// above it, in proportion to their excess over the floor.
func enforceFloor(d []float64, floor float64) {
	pinned := make([]bool, len(d))

	for iter := 0; iter < len(d); iter++ {
		deficit := 0.0
		for i := range d {
			if !pinned[i] && d[i] < floor {
				deficit += floor - d[i]
				d[i] = floor
				pinned[i] = true
			}
		}
		if deficit == 0 {
			return
		}

		excess := 0.0
		for i := range d {
			if !pinned[i] {
				excess += d[i] - floor
			}
		}
		if excess <= 0 {
			return
		}

		for i := range d {
			if !pinned[i] {
				d[i] -= deficit * (d[i] - floor) / excess
			}
		}
	}
}

// roundDurations converts to whole milliseconds. The rounding residual goes to
// the final page; if that leaves it under the floor, the shortfall is taken
// from the pages with the most slack.
func roundDurations(d []float64, totalMs, floor int64) []int64 {
	n := len(d)
	ms := make([]int64, n)

	var acc int64
	for i := 0; i < n-1; i++ {
		v := int64(math.Round(d[i]))
		if v < floor {
			v = floor
		}
		ms[i] = v
		acc += v
	}
	ms[n-1] = totalMs - acc

	short := floor - ms[n-1]
	if short <= 0 {
		return ms
	}
	ms[n-1] = floor

	for short > 0 {
		donor := -1
		var slack int64
		for i := 0; i < n-1; i++ {
			if s := ms[i] - floor; s > slack {
				donor, slack = i, s
			}
		}
		if donor == -1 {
			break
		}
		take := min(slack, short)
		ms[donor] -= take
		short -= take
	}

	return ms
}

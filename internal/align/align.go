// Package align maps desired scene boundaries onto the discrete clip
// durations a generation provider accepts, without letting per-scene rounding
// error accumulate into timeline drift.
package align

import (
	"math"
	"sort"

	"github.com/beatframe/beatframe-api/internal/fault"
	"github.com/beatframe/beatframe-api/internal/timing"
)

// Window is one aligned scene time range. Duration is always an element of
// the allowed set and always equals End-Start.
type Window struct {
	Start    float64
	End      float64
	Duration float64
}

// Aligner snaps scene spans to an allowed duration set using a running
// remaining-budget so the total stays within min(allowed) of the target.
type Aligner struct {
	allowed []float64 // sorted ascending
	// driftTolerance bounds how far a scene's midpoint may move from its
	// original position. Alignment fails rather than exceed it.
	driftTolerance float64
}

// Option configures an Aligner.
type Option func(*Aligner)

// WithDriftTolerance overrides the default midpoint drift tolerance
// (half the smallest allowed duration).
func WithDriftTolerance(tol float64) Option {
	return func(a *Aligner) {
		if tol > 0 {
			a.driftTolerance = tol
		}
	}
}

// New creates an Aligner for the given allowed duration set.
func New(allowed []float64, opts ...Option) (*Aligner, error) {
	if len(allowed) == 0 {
		return nil, fault.New(fault.KindInvalidConfig, "allowed duration set is empty")
	}
	sorted := make([]float64, len(allowed))
	copy(sorted, allowed)
	sort.Float64s(sorted)
	if sorted[0] <= 0 {
		return nil, fault.New(fault.KindInvalidConfig, "allowed durations must be positive")
	}

	a := &Aligner{
		allowed:        sorted,
		driftTolerance: sorted[0] / 2,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Allowed returns the sorted allowed duration set.
func (a *Aligner) Allowed() []float64 {
	out := make([]float64, len(a.allowed))
	copy(out, a.allowed)
	return out
}

// Min returns the smallest allowed duration.
func (a *Aligner) Min() float64 {
	return a.allowed[0]
}

// Contains reports whether d is an element of the allowed set.
func (a *Aligner) Contains(d float64) bool {
	for _, v := range a.allowed {
		if v == d {
			return true
		}
	}
	return false
}

// snap returns the allowed duration closest to ideal. Ties go to the larger
// value so short musical phrases are not starved.
func (a *Aligner) snap(ideal float64) float64 {
	best := a.allowed[0]
	bestDist := math.Abs(ideal - best)
	for _, d := range a.allowed[1:] {
		if dist := math.Abs(ideal - d); dist <= bestDist {
			best = d
			bestDist = dist
		}
	}
	return best
}

// largestFitting returns the largest allowed duration not exceeding budget,
// or 0 when none fits.
func (a *Aligner) largestFitting(budget float64) float64 {
	var best float64
	for _, d := range a.allowed {
		if d <= budget {
			best = d
		}
	}
	return best
}

// AlignWindows aligns a list of pre-drafted scene boundaries (n+1 values for
// n scenes). Each raw span is snapped to the closest allowed duration, then a
// single forward pass reconciles the picks against the remaining total budget
// so rounding error cannot accumulate. Zero scenes yields an empty result.
func (a *Aligner) AlignWindows(boundaries []float64) ([]Window, error) {
	if len(boundaries) <= 1 {
		return []Window{}, nil
	}
	for i := 1; i < len(boundaries); i++ {
		if boundaries[i] <= boundaries[i-1] {
			return nil, fault.Newf(fault.KindInvalidConfig,
				"scene boundaries not strictly increasing at index %d", i)
		}
	}

	n := len(boundaries) - 1
	total := boundaries[n] - boundaries[0]
	remaining := total
	cursor := boundaries[0]

	windows := make([]Window, 0, n)
	for i := 0; i < n; i++ {
		// The remaining budget is already spent: allocating even the
		// smallest clip would break the total-sum bound.
		if remaining <= 0 {
			return nil, fault.Newf(fault.KindTimingOverflow,
				"no remaining budget for scene %d (total %.2fs)", i, total)
		}

		ideal := boundaries[i+1] - boundaries[i]
		d := a.snap(ideal)
		if d > remaining {
			if fit := a.largestFitting(remaining); fit > 0 {
				d = fit
			} else {
				d = a.allowed[0]
			}
		}

		rawMid := (boundaries[i] + boundaries[i+1]) / 2
		newMid := cursor + d/2
		if drift := math.Abs(newMid - rawMid); drift > a.driftTolerance {
			return nil, fault.Newf(fault.KindTimingOverflow,
				"scene %d drifted %.2fs from its source midpoint (tolerance %.2fs)",
				i, drift, a.driftTolerance)
		}

		windows = append(windows, Window{Start: cursor, End: cursor + d, Duration: d})
		cursor += d
		remaining -= d
	}

	return windows, nil
}

// Align partitions a timing grid into sceneCount windows. Ideal equal-length
// cut points are snapped to the nearest grid boundary before duration
// alignment, so every scene edge lands on a beat, measure, or word end.
// When the grid carries sections, each section is aligned independently and
// section starts remain exact.
func (a *Aligner) Align(grid *timing.TimingGrid, sceneCount int) ([]Window, error) {
	if sceneCount == 0 {
		return []Window{}, nil
	}
	if sceneCount < 0 {
		return nil, fault.New(fault.KindInvalidConfig, "scene count must be non-negative")
	}

	if len(grid.Sections) > 0 {
		return a.alignSections(grid, sceneCount)
	}

	raw := a.draftBoundaries(grid, grid.Boundaries[0], grid.Duration(), sceneCount)
	return a.AlignWindows(raw)
}

// alignSections distributes scenes across sections proportionally to section
// length (each section gets at least one) and aligns within each section.
func (a *Aligner) alignSections(grid *timing.TimingGrid, sceneCount int) ([]Window, error) {
	sections := grid.Sections
	if sceneCount < len(sections) {
		return nil, fault.Newf(fault.KindInvalidConfig,
			"scene count %d is less than section count %d", sceneCount, len(sections))
	}

	total := 0.0
	for _, s := range sections {
		total += s.End - s.Start
	}

	counts := make([]int, len(sections))
	assigned := 0
	for i, s := range sections {
		c := int(math.Round(float64(sceneCount) * (s.End - s.Start) / total))
		if c < 1 {
			c = 1
		}
		counts[i] = c
		assigned += c
	}
	// Settle rounding surplus or deficit on the longest sections.
	for assigned != sceneCount {
		idx := longestSection(sections, counts, assigned > sceneCount)
		if assigned > sceneCount {
			counts[idx]--
			assigned--
		} else {
			counts[idx]++
			assigned++
		}
	}

	var windows []Window
	for i, s := range sections {
		raw := a.draftBoundaries(grid, s.Start, s.End, counts[i])
		sectionWindows, err := a.AlignWindows(raw)
		if err != nil {
			return nil, err
		}
		windows = append(windows, sectionWindows...)
	}
	return windows, nil
}

// longestSection picks the section with the most scene-time per scene,
// preferring ones that can shed a scene when shrinking.
func longestSection(sections []timing.Section, counts []int, shrinking bool) int {
	best := 0
	bestRatio := -1.0
	for i, s := range sections {
		if shrinking && counts[i] <= 1 {
			continue
		}
		ratio := (s.End - s.Start) / float64(counts[i])
		if ratio > bestRatio {
			bestRatio = ratio
			best = i
		}
	}
	return best
}

// draftBoundaries produces count+1 strictly increasing raw boundaries between
// start and end, snapped to grid boundaries where possible.
func (a *Aligner) draftBoundaries(grid *timing.TimingGrid, start, end float64, count int) []float64 {
	raw := make([]float64, 0, count+1)
	raw = append(raw, start)
	span := end - start
	for i := 1; i < count; i++ {
		ideal := start + span*float64(i)/float64(count)
		b := grid.Nearest(ideal)
		// Snapping can land on an already-used boundary for dense scene
		// counts; fall back to the unsnapped point.
		if b <= raw[len(raw)-1] || b >= end {
			b = ideal
		}
		raw = append(raw, b)
	}
	raw = append(raw, end)
	return raw
}

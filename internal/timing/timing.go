// Package timing loads external timing descriptions (musical beat grids or
// word-level transcripts) and exposes them through the TimingGrid contract.
// Callers depend only on the grid, never on which source produced it.
package timing

import (
	"sort"

	"github.com/beatframe/beatframe-api/internal/fault"
)

// Section is an optional coarser structural unit of the timeline, such as a
// verse or chorus.
type Section struct {
	Start float64
	End   float64
	Label string
}

// TimingGrid holds the ordered boundary and section data extracted from a
// timing source. It is created once per project and read-only afterward.
type TimingGrid struct {
	// Boundaries are candidate scene cut points in seconds, strictly increasing.
	Boundaries []float64
	// Sections are optional non-overlapping structural ranges, ordered by start.
	Sections []Section
}

// Source produces a TimingGrid from a named input file.
type Source interface {
	Load(path string) (*TimingGrid, error)
}

// newGrid validates invariants and builds a TimingGrid.
func newGrid(boundaries []float64, sections []Section) (*TimingGrid, error) {
	if len(boundaries) == 0 {
		return nil, fault.New(fault.KindEmptyTiming, "timing source contains no boundaries")
	}
	for i := 1; i < len(boundaries); i++ {
		if boundaries[i] <= boundaries[i-1] {
			return nil, fault.Newf(fault.KindUnparsableTiming,
				"boundaries not strictly increasing at index %d (%.3f <= %.3f)",
				i, boundaries[i], boundaries[i-1])
		}
	}
	for i, s := range sections {
		if s.End <= s.Start {
			return nil, fault.Newf(fault.KindUnparsableTiming,
				"section %q has non-positive span (%.3f, %.3f)", s.Label, s.Start, s.End)
		}
		if i > 0 && s.Start < sections[i-1].End {
			return nil, fault.Newf(fault.KindUnparsableTiming,
				"section %q overlaps previous section", s.Label)
		}
	}
	return &TimingGrid{Boundaries: boundaries, Sections: sections}, nil
}

// Duration returns the time of the last boundary.
func (g *TimingGrid) Duration() float64 {
	return g.Boundaries[len(g.Boundaries)-1]
}

// BoundariesWithin returns the boundaries falling inside [start, end].
func (g *TimingGrid) BoundariesWithin(start, end float64) []float64 {
	var out []float64
	for _, b := range g.Boundaries {
		if b >= start && b <= end {
			out = append(out, b)
		}
	}
	return out
}

// Nearest returns the boundary closest to t.
func (g *TimingGrid) Nearest(t float64) float64 {
	i := sort.SearchFloat64s(g.Boundaries, t)
	if i == 0 {
		return g.Boundaries[0]
	}
	if i == len(g.Boundaries) {
		return g.Boundaries[len(g.Boundaries)-1]
	}
	if t-g.Boundaries[i-1] <= g.Boundaries[i]-t {
		return g.Boundaries[i-1]
	}
	return g.Boundaries[i]
}

package timing

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/beatframe/beatframe-api/internal/fault"
)

// beatGridFile is the on-disk YAML layout of a musical timing description.
// Beats may be listed explicitly, or derived from a constant tempo plus a
// total duration, optionally interrupted by tempo changes.
type beatGridFile struct {
	Title           string         `yaml:"title"`
	TempoBPM        float64        `yaml:"tempo"`
	DurationSec     float64        `yaml:"duration"`
	BeatsPerMeasure int            `yaml:"beats_per_measure"`
	Beats           []float64      `yaml:"beats"`
	TempoChanges    []tempoChange  `yaml:"tempo_changes"`
	Sections        []sectionEntry `yaml:"sections"`
}

type tempoChange struct {
	Time float64 `yaml:"time"`
	BPM  float64 `yaml:"bpm"`
}

type sectionEntry struct {
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
	Label string  `yaml:"label"`
}

// BeatGridSource loads a musical timing YAML file.
type BeatGridSource struct {
	// UseMeasures collapses boundaries to measure starts using the file's
	// beats_per_measure value. When false, every beat is a boundary.
	UseMeasures bool
}

var _ Source = (*BeatGridSource)(nil)

// Load reads and decodes a beat grid file into a TimingGrid.
func (s *BeatGridSource) Load(path string) (*TimingGrid, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return nil, fault.Wrap(fault.KindUnparsableTiming, "read beat grid", err)
	}

	var file beatGridFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fault.Wrap(fault.KindUnparsableTiming, "decode beat grid", err)
	}

	beats := file.Beats
	if len(beats) == 0 {
		beats = synthesizeBeats(file)
	}

	if s.UseMeasures && file.BeatsPerMeasure > 1 {
		beats = everyNth(beats, file.BeatsPerMeasure)
	}

	sections := make([]Section, 0, len(file.Sections))
	for _, sec := range file.Sections {
		sections = append(sections, Section{Start: sec.Start, End: sec.End, Label: sec.Label})
	}

	return newGrid(beats, sections)
}

// synthesizeBeats derives beat times from tempo and duration when the file
// does not list beats explicitly. Tempo changes shift the interval from their
// start time onward.
func synthesizeBeats(file beatGridFile) []float64 {
	if file.TempoBPM <= 0 || file.DurationSec <= 0 {
		return nil
	}

	changes := file.TempoChanges
	var beats []float64
	bpm := file.TempoBPM
	t := 0.0
	next := 0
	for t < file.DurationSec {
		for next < len(changes) && changes[next].Time <= t {
			if changes[next].BPM > 0 {
				bpm = changes[next].BPM
			}
			next++
		}
		beats = append(beats, t)
		t += 60.0 / bpm
	}
	return beats
}

// everyNth keeps the first of every n entries.
func everyNth(in []float64, n int) []float64 {
	var out []float64
	for i := 0; i < len(in); i += n {
		out = append(out, in[i])
	}
	return out
}

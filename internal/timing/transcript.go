package timing

import (
	"encoding/json"
	"os"

	"github.com/beatframe/beatframe-api/internal/fault"
)

// transcriptFile is the on-disk JSON layout of a word-level transcript, as
// emitted by whisper-style speech recognizers.
type transcriptFile struct {
	Words    []transcriptWord    `json:"words"`
	Segments []transcriptSegment `json:"segments"`
}

type transcriptWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// transcriptSegment is an optional coarser unit (sentence or paragraph);
// segments map to grid sections.
type transcriptSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// TranscriptSource loads a word-level transcript JSON file. Word end times
// become the grid boundaries so scene cuts never land mid-word.
type TranscriptSource struct{}

var _ Source = (*TranscriptSource)(nil)

// Load reads and decodes a transcript file into a TimingGrid.
func (s *TranscriptSource) Load(path string) (*TimingGrid, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return nil, fault.Wrap(fault.KindUnparsableTiming, "read transcript", err)
	}

	var file transcriptFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fault.Wrap(fault.KindUnparsableTiming, "decode transcript", err)
	}

	boundaries := make([]float64, 0, len(file.Words))
	last := -1.0
	for _, w := range file.Words {
		// Recognizers occasionally emit zero-length or overlapping words;
		// keep the boundary sequence strictly increasing.
		if w.End > last {
			boundaries = append(boundaries, w.End)
			last = w.End
		}
	}

	sections := make([]Section, 0, len(file.Segments))
	for _, seg := range file.Segments {
		sections = append(sections, Section{Start: seg.Start, End: seg.End, Label: seg.Text})
	}

	return newGrid(boundaries, sections)
}

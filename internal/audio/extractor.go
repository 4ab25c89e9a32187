// Package audio provides audio segment extraction for lip-synced scenes.
// It shells out to the ffmpeg CLI.
package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/beatframe/beatframe-api/internal/fault"
)

// DefaultPad is the padding added on both sides of an extracted window so
// downstream lip-sync processing has headroom at the cut points.
const DefaultPad = 0.1

// Window is the time range to extract, in seconds.
type Window struct {
	Start float64
	End   float64
}

// Extractor cuts audio sub-ranges matching a scene's aligned time window.
// Extraction is a pure function of (track, window, pad): re-running it
// overwrites the output deterministically.
type Extractor struct {
	ffmpegPath string
}

// NewExtractor creates a new Extractor.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found in PATH).
func NewExtractor(ffmpegPath string) *Extractor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Extractor{ffmpegPath: ffmpegPath}
}

// cutRange computes the padded extraction range for a window within a track
// of the given duration. The left edge is clamped at zero and the right edge
// at the track end; a window extending past the track fails with
// SegmentOutOfRange. A negative pad falls back to DefaultPad.
func cutRange(window Window, pad, trackDuration float64) (start, end float64, err error) {
	if window.End <= window.Start {
		return 0, 0, fault.Newf(fault.KindInvalidConfig,
			"window (%.3f, %.3f) has non-positive span", window.Start, window.End)
	}
	if window.End > trackDuration {
		return 0, 0, fault.Newf(fault.KindSegmentOutOfRange,
			"window end %.3fs exceeds track duration %.3fs", window.End, trackDuration)
	}
	if pad < 0 {
		pad = DefaultPad
	}

	start = window.Start - pad
	if start < 0 {
		start = 0
	}
	end = window.End + pad
	if end > trackDuration {
		end = trackDuration
	}
	return start, end, nil
}

// Extract writes the audio covering [window.Start-pad, window.End+pad] from
// track to destPath. The left edge is clamped at zero; a window extending
// past the track's duration fails with SegmentOutOfRange.
func (e *Extractor) Extract(ctx context.Context, track string, window Window, pad float64, destPath string) error {
	if window.End <= window.Start {
		return fault.Newf(fault.KindInvalidConfig,
			"window (%.3f, %.3f) has non-positive span", window.Start, window.End)
	}

	trackDuration, err := e.Duration(ctx, track)
	if err != nil {
		return err
	}
	start, end, err := cutRange(window, pad, trackDuration)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	args := []string{
		"-y", // Overwrite output
		"-ss", fmt.Sprintf("%.3f", start),
		"-t", fmt.Sprintf("%.3f", end-start),
		"-i", track,
		"-c", "copy", // Copy without re-encoding
		destPath,
	}

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg error: %w, stderr: %s", err, stderr.String())
	}

	return nil
}

// durationRe matches "Duration: HH:MM:SS.ms" in ffmpeg stderr output.
var durationRe = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+)\.(\d+)`)

// Duration returns the duration of an audio file in seconds.
func (e *Extractor) Duration(ctx context.Context, track string) (float64, error) {
	if _, err := os.Stat(track); os.IsNotExist(err) {
		return 0, fault.Newf(fault.KindInvalidConfig, "audio track does not exist: %s", track)
	}

	cmd := exec.CommandContext(ctx, e.ffmpegPath,
		"-i", track,
		"-hide_banner",
		"-f", "null", "-",
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	// ffmpeg writes duration info to stderr and exits non-zero with a null
	// output, so the run error is ignored.
	_ = cmd.Run()

	return parseDuration(stderr.String())
}

// parseDuration extracts the duration from ffmpeg stderr output.
func parseDuration(output string) (float64, error) {
	matches := durationRe.FindStringSubmatch(output)
	if len(matches) < 5 {
		return 0, fmt.Errorf("could not parse duration from ffmpeg output: %s", output)
	}

	hours, _ := strconv.ParseFloat(matches[1], 64)
	minutes, _ := strconv.ParseFloat(matches[2], 64)
	seconds, _ := strconv.ParseFloat(matches[3], 64)
	frac, _ := strconv.ParseFloat(matches[4], 64)

	fracDivisor := 1.0
	for range matches[4] {
		fracDivisor *= 10
	}

	return hours*3600 + minutes*60 + seconds + frac/fracDivisor, nil
}

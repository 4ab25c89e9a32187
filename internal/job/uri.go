package job

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// fileDataURI reads a local file and encodes it as a data URI so providers
// that accept inline payloads can consume anchors, references, and audio
// segments without a separate upload step.
func fileDataURI(path string) (string, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path comes from the resolved scene plan
	if err != nil {
		return "", fmt.Errorf("read media file: %w", err)
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeForPath(path), base64.StdEncoding.EncodeToString(data)), nil
}

// mimeForPath guesses a MIME type from the file extension.
func mimeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".m4a", ".aac":
		return "audio/aac"
	default:
		return "application/octet-stream"
	}
}

// Package id generates batch identifiers.
package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// prefix marks identifiers as BeatFrame batches in logs and API responses.
const prefix = "bf"

// Generate returns a new batch identifier of the form
// bf-<unix millis>-<10 hex chars>. The millisecond timestamp makes IDs sort
// roughly by creation time; the random suffix keeps IDs created in the same
// millisecond distinct.
func Generate() string {
	now := time.Now().UnixMilli()
	suffix := make([]byte, 5)
	if _, err := rand.Read(suffix); err != nil {
		// Entropy exhaustion is effectively fatal elsewhere; a bare
		// timestamp ID at least keeps the batch addressable.
		return fmt.Sprintf("%s-%d", prefix, now)
	}
	return fmt.Sprintf("%s-%d-%s", prefix, now, hex.EncodeToString(suffix))
}

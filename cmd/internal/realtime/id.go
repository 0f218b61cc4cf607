package realtime

import (
	"time"

	"giftlist/cmd/internal/ids"
)

// newConnID returns a ULID identifying one WebSocket connection in logs.
func newConnID(now time.Time) string {
	return ids.MustULID(now)
}

// newEnvelopeID returns a ULID used as envelope id.
func newEnvelopeID(now time.Time) string {
	return ids.MustULID(now)
}

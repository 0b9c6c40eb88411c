package event

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// Event represents one upstream listing.
// NativeID is the only field used for identity; everything else is display-only.
type Event struct {
	NativeID  string              `json:"native_id,omitempty"` // numeric upstream ID, empty when the source has none
	Title     Optional[string]    `json:"title"`
	URL       Optional[string]    `json:"url"`
	StartedAt Optional[time.Time] `json:"started_at"`
	EndedAt   Optional[time.Time] `json:"ended_at"`
	DateText  Optional[string]    `json:"date_text"` // free-text schedule when no timestamps are available
	Address   Optional[string]    `json:"address"`
	Place     Optional[string]    `json:"place"`
	Thumbnail Optional[string]    `json:"thumbnail"`
	Source    string              `json:"source"`
}

// HashURL returns the lowercase SHA-256 hex digest of u.
func HashURL(u string) string {
	sum := sha256.Sum256([]byte(u))
	return hex.EncodeToString(sum[:])
}

// Key returns the dedup identifier for an event and whether one could be derived.
// The upstream numeric ID wins; otherwise the URL hash is used.
func Key(e *Event) (string, bool) {
	if e.NativeID != "" {
		return e.NativeID, true
	}
	if u, ok := e.URL.Get(); ok && u != "" {
		return HashURL(u), true
	}
	return "", false
}

// NumericID parses NativeID as an integer.
func (e *Event) NumericID() (int64, bool) {
	if e.NativeID == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(e.NativeID, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

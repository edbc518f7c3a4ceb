package notifications

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/albapepper/courtwatch/internal/rules"
)

// Fingerprint identifies an occurrence across runs: the first 32 hex chars
// of SHA-256 over "event_type|ref|discriminators...".
func Fingerprint(t rules.EventType, ref string, discriminators ...string) string {
	parts := make([]string, 0, len(discriminators)+2)
	parts = append(parts, string(t), ref)
	parts = append(parts, discriminators...)
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])[:32]
}

// MilestoneFingerprint scopes a milestone occurrence to the observation it
// crossed from. A player who drops back out and crosses again produces a new
// fingerprint; a held crossing keeps its old observation and so its
// fingerprint.
func MilestoneFingerprint(occ *Occurrence, state rules.State) string {
	prev := state.Observed[occ.Ref]
	since := ""
	if !prev.ObservedAt.IsZero() {
		since = strconv.FormatInt(prev.ObservedAt.Unix(), 10)
	}
	return Fingerprint(occ.EventType, occ.Fingerprint, strconv.Itoa(prev.Rank), strconv.Itoa(prev.Titles), since)
}

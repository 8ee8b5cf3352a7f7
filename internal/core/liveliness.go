package core

import "time"

// Presence is the observer-side decay bucket of a liveliness timestamp.
type Presence string

const (
	PresenceLive    Presence = "live"
	PresenceRecent  Presence = "recent"
	PresenceIdle    Presence = "idle"
	PresenceFading  Presence = "fading"
	PresenceGone    Presence = "gone"
	PresenceUnknown Presence = "unknown"
)

// PresenceOf buckets the time elapsed since the last liveliness update.
// Nothing is persisted; callers compute it on read.
func PresenceOf(last *time.Time, now time.Time) Presence {
	if last == nil || last.IsZero() {
		return PresenceUnknown
	}
	switch d := now.Sub(*last); {
	case d < 10*time.Second:
		return PresenceLive
	case d < 30*time.Second:
		return PresenceRecent
	case d < time.Minute:
		return PresenceIdle
	case d < 2*time.Minute:
		return PresenceFading
	default:
		return PresenceGone
	}
}

package domain

import (
	"cmp"
	"slices"
	"time"
)

// Nudge counts how often a participant signalled the host.
type Nudge struct {
	UserID      UserID    `json:"userId"`
	DisplayName string    `json:"displayName"`
	Count       int       `json:"count"`
	FirstNudge  time.Time `json:"firstNudge"`
	LastNudge   time.Time `json:"lastNudge"`
}

// SortNudges orders nudges by first nudge time, then user id.
func SortNudges(ns []Nudge) {
	slices.SortFunc(ns, func(a, b Nudge) int {
		if c := a.FirstNudge.Compare(b.FirstNudge); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID, b.UserID)
	})
}

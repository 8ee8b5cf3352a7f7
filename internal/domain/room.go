package domain

import (
	"slices"
	"strconv"
	"time"
)

type (
	RoomID    string
	RoomState string
)

const (
	RoomWaiting RoomState = "waiting"
	RoomActive  RoomState = "active"
)

// Room is a host-owned session. Participants always include HostID.
type Room struct {
	ID           RoomID    `json:"id"`
	HostID       UserID    `json:"hostId"`
	CreatedAt    time.Time `json:"createdAt"`
	State        RoomState `json:"state"`
	Groups       Groups    `json:"groups,omitempty"`
	Participants []UserID  `json:"participants,omitempty"`
}

func (r *Room) IsHost(uid UserID) bool { return r.HostID == uid }

// Groups maps a stringified group index to its ordered member list.
type Groups map[string][]UserID

// IDs returns group ids in group order: numeric ids ascending, then any
// non-numeric ids lexicographically.
func (g Groups) IDs() []string {
	ids := make([]string, 0, len(g))
	for id := range g {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, compareGroupIDs)
	return ids
}

func compareGroupIDs(a, b string) int {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return na - nb
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// GroupOf returns the id of the group containing uid.
func (g Groups) GroupOf(uid UserID) (string, bool) {
	for _, id := range g.IDs() {
		if slices.Contains(g[id], uid) {
			return id, true
		}
	}
	return "", false
}

// Smallest returns the group with the fewest members; ties go to the lowest id.
func (g Groups) Smallest() (string, bool) {
	best, bestSize := "", -1
	for _, id := range g.IDs() {
		if n := len(g[id]); bestSize < 0 || n < bestSize {
			best, bestSize = id, n
		}
	}
	return best, bestSize >= 0
}

// Clone deep-copies the member lists.
func (g Groups) Clone() Groups {
	if g == nil {
		return nil
	}
	out := make(Groups, len(g))
	for id, members := range g {
		out[id] = slices.Clone(members)
	}
	return out
}

// Without returns a copy with uid removed from every group. Groups are kept
// even when they become empty.
func (g Groups) Without(uid UserID) Groups {
	out := make(Groups, len(g))
	for id, members := range g {
		kept := make([]UserID, 0, len(members))
		for _, m := range members {
			if m != uid {
				kept = append(kept, m)
			}
		}
		out[id] = kept
	}
	return out
}

// Sizes lists member counts in group order.
func (g Groups) Sizes() []int {
	ids := g.IDs()
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = len(g[id])
	}
	return out
}

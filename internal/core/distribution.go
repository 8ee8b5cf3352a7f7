package core

import (
	"slices"

	"github.com/dkeye/breakout/internal/domain"
)

// Mode selects how PlanDistribution reads its value.
type Mode string

const (
	// BySize treats the value as the target group size.
	BySize Mode = "bySize"
	// ByCount treats the value as the desired number of groups.
	ByCount Mode = "byCount"
)

// ParseMode accepts both the long names and the short "size"/"count" forms.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "size", string(BySize):
		return BySize, nil
	case "count", string(ByCount):
		return ByCount, nil
	}
	return "", domain.Errorf(domain.KindInvalidArgument, "unknown distribution mode %q", s)
}

// PlanDistribution splits count participants into group sizes. It never
// fails: a non-positive count yields no groups and a non-positive value
// yields one group with everyone.
func PlanDistribution(count int, mode Mode, value int) []int {
	if count <= 0 {
		return []int{}
	}
	if value <= 0 {
		return []int{count}
	}
	if mode == ByCount {
		return planByCount(count, value)
	}
	return planBySize(count, value)
}

func planBySize(count, size int) []int {
	groups := (count + size - 1) / size
	if groups <= 1 {
		return []int{count}
	}

	base := count / groups
	remaining := count % groups
	out := make([]int, groups)
	for i := range out {
		out[i] = base
	}
	for i := 0; remaining > 0 && i < groups; i++ {
		add := min(size-out[i], remaining)
		out[i] += add
		remaining -= add
	}

	slices.SortStableFunc(out, func(a, b int) int { return b - a })
	return out
}

func planByCount(count, want int) []int {
	groups := min(want, count)
	base := count / groups
	remainder := count % groups
	out := make([]int, groups)
	for i := range out {
		out[i] = base
		if i < remainder {
			out[i]++
		}
	}
	return out
}

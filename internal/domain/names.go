package domain

import (
	"fmt"
	"math/rand/v2"
)

var (
	nameAdjectives = []string{
		"Happy", "Clever", "Brave", "Calm", "Eager", "Gentle", "Kind", "Lively", "Proud", "Wise",
		"Bold", "Bright", "Cheerful", "Friendly", "Jolly", "Merry", "Curious", "Witty", "Noble", "Quick",
	}
	nameNouns = []string{
		"Panda", "Tiger", "Lion", "Eagle", "Dolphin", "Fox", "Wolf", "Bear", "Owl", "Penguin",
		"Koala", "Rabbit", "Otter", "Falcon", "Lynx", "Heron", "Badger", "Walrus", "Gecko", "Kiwi",
	}
)

// RandomDisplayName returns names like "CleverOtter042".
func RandomDisplayName() string {
	return fmt.Sprintf("%s%s%03d",
		nameAdjectives[rand.IntN(len(nameAdjectives))],
		nameNouns[rand.IntN(len(nameNouns))],
		rand.IntN(1000),
	)
}

package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupsIDsNumericOrder(t *testing.T) {
	g := Groups{"10": nil, "2": nil, "0": nil, "lobby": nil, "1": nil}
	assert.Equal(t, []string{"0", "1", "2", "10", "lobby"}, g.IDs())
}

func TestGroupsSmallestBreaksTiesByLowestID(t *testing.T) {
	g := Groups{
		"0": {"a", "b"},
		"1": {"c"},
		"2": {"d"},
	}
	id, ok := g.Smallest()
	require.True(t, ok)
	assert.Equal(t, "1", id)

	_, ok = Groups{}.Smallest()
	assert.False(t, ok)
}

func TestGroupsWithoutKeepsEmptyGroups(t *testing.T) {
	g := Groups{"0": {"a", "b"}, "1": {"c"}}
	out := g.Without("c")

	assert.Equal(t, []UserID{"a", "b"}, out["0"])
	assert.Empty(t, out["1"])
	assert.Contains(t, out, "1")
	// the receiver is untouched
	assert.Equal(t, []UserID{"c"}, g["1"])
}

func TestGroupsGroupOfAndSizes(t *testing.T) {
	g := Groups{"0": {"a", "b"}, "1": {"c"}}

	id, ok := g.GroupOf("c")
	require.True(t, ok)
	assert.Equal(t, "1", id)

	_, ok = g.GroupOf("zz")
	assert.False(t, ok)
	assert.Equal(t, []int{2, 1}, g.Sizes())
}

func TestGroupsCloneIsDeep(t *testing.T) {
	g := Groups{"0": {"a"}}
	c := g.Clone()
	c["0"][0] = "b"
	assert.Equal(t, UserID("a"), g["0"][0])
	assert.Nil(t, Groups(nil).Clone())
}

func TestErrorKinds(t *testing.T) {
	err := Errorf(KindNotFound, "room %s not found", "r1")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrConflict))
	assert.Equal(t, "room r1 not found", err.Error())

	wrapped := fmt.Errorf("load: %w", err)
	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestNormalizeDisplayName(t *testing.T) {
	name, err := NormalizeDisplayName("  Ada  ")
	require.NoError(t, err)
	assert.Equal(t, "Ada", name)

	_, err = NormalizeDisplayName("   ")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NormalizeDisplayName("a-very-long-display-name-that-goes-on-and-on")
	assert.ErrorIs(t, err, ErrDisplayNameTooLong)
}

func TestRandomDisplayName(t *testing.T) {
	name := RandomDisplayName()
	_, err := NormalizeDisplayName(name)
	assert.NoError(t, err)
}

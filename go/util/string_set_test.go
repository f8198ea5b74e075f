package util

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringSets(t *testing.T) {
	ret := NewStringSet([]string{"abc", "abc"}, []string{"efg", "abc"}).Keys()
	sort.Strings(ret)
	require.Equal(t, []string{"abc", "efg"}, ret)

	assert.Empty(t, NewStringSet().Keys())
	assert.Equal(t, []string{"abc"}, NewStringSet([]string{"abc", "abc", "abc"}).Keys())
}

func TestStringSetCopy(t *testing.T) {
	orig := NewStringSet([]string{"gamma", "beta", "alpha"})
	cp := orig.Copy()

	delete(orig, "alpha")
	orig["mu"] = true

	assert.True(t, cp["alpha"])
	assert.False(t, cp["mu"])
	assert.Nil(t, (StringSet(nil)).Copy())
}

func TestStringSetSortedKeys(t *testing.T) {
	s := NewStringSet([]string{"gamma", "beta", "alpha", "beta"})
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, s.SortedKeys())

	s = nil
	assert.Empty(t, s.SortedKeys())
}

func TestStringSetIntersectComplementUnion(t *testing.T) {
	a := NewStringSet([]string{"alpha", "beta", "mu"})
	b := NewStringSet([]string{"alpha", "beta", "nu"})

	assert.Equal(t, []string{"alpha", "beta"}, a.Intersect(b).SortedKeys())
	assert.Equal(t, []string{"mu"}, a.Complement(b).SortedKeys())
	assert.Equal(t, []string{"alpha", "beta", "mu", "nu"}, a.Union(b).SortedKeys())
	assert.Equal(t, []string{"alpha", "beta", "mu", "x"}, a.Copy().AddLists([]string{"x"}).SortedKeys())
}

func TestStringSetEqual(t *testing.T) {
	assert.True(t, StringSet(nil).Equals(nil))
	assert.True(t, NewStringSet([]string{}).Equals(nil))
	someKeys := []string{"gamma", "beta", "alpha", "zeta"}
	assert.True(t, NewStringSet(someKeys).Equals(NewStringSet(someKeys)))
	assert.False(t, NewStringSet(someKeys).Equals(NewStringSet(someKeys[:3])))
	assert.False(t, NewStringSet(someKeys[:1]).Equals(NewStringSet(someKeys[1:2])))
}

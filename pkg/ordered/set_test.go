package ordered_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reqsrc/reqsrc/pkg/ordered"
)

func TestStringSet(t *testing.T) {
	t.Parallel()
	set := ordered.NewStringSet("b", "a", "b")
	assert.Equal(t, []string{"b", "a"}, set.Items())
	assert.Equal(t, 2, set.Len())

	assert.False(t, set.Add("a"))
	assert.True(t, set.Add("c"))
	assert.Equal(t, []string{"b", "a", "c"}, set.Items())

	assert.True(t, set.Has("c"))
	assert.False(t, set.Has("d"))
}

func TestStringSetUnion(t *testing.T) {
	t.Parallel()
	a := ordered.NewStringSet("x", "y")
	b := ordered.NewStringSet("y", "z")
	a.Union(b)
	assert.Equal(t, []string{"x", "y", "z"}, a.Items())

	a.Union(nil)
	assert.Equal(t, []string{"x", "y", "z"}, a.Items())
}

func TestStringSetNil(t *testing.T) {
	t.Parallel()
	var set *ordered.StringSet
	assert.Nil(t, set.Items())
	assert.Equal(t, 0, set.Len())
}

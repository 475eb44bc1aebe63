package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScope(t *testing.T) {
	top := Top()
	assert.True(t, top.IsTop())
	assert.Empty(t, top.Frames())
	assert.Equal(t, "top", top.String())

	inner := top.Enter("frame-header")
	assert.False(t, inner.IsTop())
	assert.Equal(t, []string{"frame-header"}, inner.Frames())
	assert.Equal(t, "top > frame-header", inner.String())
	assert.True(t, top.IsTop(), "Enter must not modify the receiver")

	assert.True(t, inner.Exit().IsTop())
	assert.True(t, top.Exit().IsTop())
}

func TestScopeNestedBranchesDoNotAlias(t *testing.T) {
	a := Top().Enter("outer")
	b := a.Enter("left")
	c := a.Enter("right")

	assert.Equal(t, []string{"outer", "left"}, b.Frames())
	assert.Equal(t, []string{"outer", "right"}, c.Frames())

	frames := b.Frames()
	frames[0] = "changed"
	assert.Equal(t, []string{"outer", "left"}, b.Frames())
}

package mcts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nyashiki/minishogilib/internal/fixture"
)

func TestNewArenaFloorsCapacityAtTwo(t *testing.T) {
	a := NewArena(0)
	assert.Equal(t, 2, a.Capacity())
}

func TestAllocRootUsesIndexOneWithOneLiveNode(t *testing.T) {
	a := NewArena(1)
	root := a.allocRoot()
	assert.Equal(t, NodeIndex(1), root)
	assert.Equal(t, 1, a.NodeCount())
}

func TestAllocChildSkipsSentinelAndUsedSlots(t *testing.T) {
	a := NewArena(1)
	root := a.allocRoot()

	m := fixture.Move{Amount: 1}
	c1 := a.allocChild(root, m, 0.5)
	c2 := a.allocChild(root, m, 0.5)

	require.NotEqual(t, NodeIndex(0), c1)
	require.NotEqual(t, NodeIndex(0), c2)
	assert.NotEqual(t, c1, c2)
	assert.Equal(t, 3, a.NodeCount())
}

func TestEliminateExceptKeepsOnlyTheGivenSubtree(t *testing.T) {
	a := NewArena(1)
	root := a.allocRoot()
	m := fixture.Move{Amount: 1}
	keep := a.allocChild(root, m, 0.5)
	other := a.allocChild(root, m, 0.5)
	a.at(root).Children = []NodeIndex{keep, other}

	a.eliminateExcept(root, keep)

	assert.True(t, a.at(keep).IsUsed)
	assert.False(t, a.at(root).IsUsed)
}

func TestEliminateExceptNilRootIsNoOp(t *testing.T) {
	a := NewArena(1)
	a.eliminateExcept(nilIndex, nilIndex)
	assert.Equal(t, 0, a.NodeCount())
}

package mcts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nyashiki/minishogilib/internal/fixture"
)

func TestVisualizeProducesDotSource(t *testing.T) {
	tree := New(testConfig())
	pos := fixture.New()
	root := tree.SetRoot(pos, false)
	runSimulations(t, tree, root, pos, 10)

	dot, err := tree.Visualize(root, 5)
	require.NoError(t, err)
	assert.Contains(t, dot, "digraph")
}

func TestVisualizeCapsTotalEmittedNodesAtK(t *testing.T) {
	tree := New(testConfig())
	pos := fixture.New()
	root := tree.SetRoot(pos, false)
	runSimulations(t, tree, root, pos, 30)

	dot, err := tree.Visualize(root, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(dot, "N:"), "best-first worklist must stop at k nodes total, not k per parent")
}

func TestDebugListsOneLinePerChild(t *testing.T) {
	tree := New(testConfig())
	pos := fixture.New()
	root := tree.SetRoot(pos, false)
	runSimulations(t, tree, root, pos, 10)

	lines := tree.Debug(root)
	assert.Len(t, lines, len(tree.arena.at(root).Children))
}

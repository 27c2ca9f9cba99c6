package mcts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nyashiki/minishogilib/internal/fixture"
)

// uniformInfer returns a flat policy (every move equally likely) and a
// fixed value, enough to drive real search without a trained network.
func uniformInfer(pos *fixture.Position, value float32) (policy []float32, v float32) {
	policy = make([]float32, 2)
	policy[0] = 0
	policy[1] = 0
	return policy, value
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MemoryGiB = 0.0001 // small arena, still rounds up to a usable capacity
	return cfg
}

func runSimulations(t *testing.T, tree *Tree, root NodeIndex, pos *fixture.Position, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		clone := pos.Clone()
		leaf := tree.SelectLeaf(root, clone)
		moves := clone.GenerateMoves()
		policy, value := uniformInfer(clone.(*fixture.Position), 0.5)
		_ = moves
		tree.Evaluate(leaf, clone, policy, value)
		tree.Backpropagate(leaf)
	}
}

func TestSetRootAllocatesConventionalRoot(t *testing.T) {
	tree := New(testConfig())
	pos := fixture.New()

	root := tree.SetRoot(pos, false)
	assert.Equal(t, NodeIndex(1), root)
	assert.Equal(t, 1, tree.NodeCount())
}

func TestSelectLeafOnUnexpandedRootReturnsRoot(t *testing.T) {
	tree := New(testConfig())
	pos := fixture.New()
	root := tree.SetRoot(pos, false)

	leaf := tree.SelectLeaf(root, pos.Clone())
	assert.Equal(t, root, leaf)
}

func TestEvaluateExpandsLegalMoves(t *testing.T) {
	tree := New(testConfig())
	pos := fixture.New()
	root := tree.SetRoot(pos, false)

	clone := pos.Clone()
	leaf := tree.SelectLeaf(root, clone)
	policy, value := uniformInfer(clone.(*fixture.Position), 0.5)
	tree.Evaluate(leaf, clone, policy, value)

	require.True(t, tree.Expanded(root))
	assert.Len(t, tree.arena.at(root).Children, 2) // 7 remaining: moves {1,2} both legal
}

func TestBackpropagateUpdatesVisitsAndUnwindsVirtualLoss(t *testing.T) {
	tree := New(testConfig())
	pos := fixture.New()
	root := tree.SetRoot(pos, false)

	runSimulations(t, tree, root, pos, 10)

	n := tree.arena.at(root)
	assert.Equal(t, uint32(10), n.N)
	assert.Zero(t, n.VirtualLoss, "virtual loss must be fully unwound after backprop")
}

func TestTerminalOutcomeNoLegalMovesIsCheckmateLike(t *testing.T) {
	pos := fixture.New()
	pos.Start = 1
	pos.SetStartPosition()

	// side to move takes the last point, leaving the opponent with no moves
	moves := pos.GenerateMoves()
	require.Len(t, moves, 1)
	pos.DoMove(moves[0])

	movesAfter := pos.GenerateMoves()
	terminal, value := TerminalOutcome(pos, movesAfter)
	assert.True(t, terminal)
	assert.Equal(t, float32(0), value, "the side with no moves loses")
}

func TestTerminalOutcomeAtPlyCapIsDraw(t *testing.T) {
	pos := fixture.New()
	pos.MaxPlyValue = 0

	terminal, value := TerminalOutcome(pos, pos.GenerateMoves())
	assert.True(t, terminal)
	assert.Equal(t, float32(0.5), value)
}

func TestAddNoiseKeepsRootPriorsSummingToOne(t *testing.T) {
	tree := New(testConfig())
	pos := fixture.New()
	root := tree.SetRoot(pos, false)

	clone := pos.Clone()
	leaf := tree.SelectLeaf(root, clone)
	policy, value := uniformInfer(clone.(*fixture.Position), 0.5)
	tree.Evaluate(leaf, clone, policy, value)

	before := make([]float32, 0)
	for _, c := range tree.arena.at(root).Children {
		before = append(before, tree.arena.at(c).P)
	}

	tree.AddNoise(root)

	var sum float32
	for _, c := range tree.arena.at(root).Children {
		sum += tree.arena.at(c).P
	}
	assert.InDelta(t, 1.0, sum, 1e-3, "priors must still sum to ~1 after noise mixing")
}

func TestSetRootReusePreservesMatchingSubtree(t *testing.T) {
	tree := New(testConfig())
	pos := fixture.New()
	root := tree.SetRoot(pos, false)
	runSimulations(t, tree, root, pos, 5)

	chosen := tree.BestMove(root)
	pos.DoMove(chosen)

	newRoot := tree.SetRoot(pos, true)
	assert.NotEqual(t, root, newRoot, "the new root is the old best child's slot, not the old root's")
	assert.True(t, tree.arena.at(newRoot).IsUsed)
}

func TestForcedPlayoutsGiveEveryChildAMinimumVisit(t *testing.T) {
	cfg := testConfig()
	cfg.ForcedPlayouts = true
	tree := New(cfg)
	pos := fixture.New()
	root := tree.SetRoot(pos, false)

	clone := pos.Clone()
	leaf := tree.SelectLeaf(root, clone)
	policy, value := uniformInfer(clone.(*fixture.Position), 0.5)
	tree.Evaluate(leaf, clone, policy, value)
	tree.Backpropagate(leaf)
	tree.AddNoise(root)

	runSimulations(t, tree, root, pos, 20)

	for _, c := range tree.arena.at(root).Children {
		assert.Greater(t, tree.arena.at(c).N, uint32(0), "forced playouts should visit every child at least once")
	}
}

package mcts

import (
	"github.com/chewxy/math32"

	"github.com/Nyashiki/minishogilib/position"
)

// MoveVisits pairs a move's SFEN form with its (possibly pruned) visit count.
type MoveVisits struct {
	MoveSFEN string
	Visits   uint32
}

// DumpResult is the training signal extracted from a searched root: total
// child visits, the root's Q, and the per-child visit distribution
// (spec.md §4.8).
type DumpResult struct {
	SumN uint32
	Q    float32
	Dist []MoveVisits
}

// Dump returns the per-child visit distribution used for training targets.
// When targetPruning is true, forced-playout visits that would not have
// occurred under pure PUCT are retroactively subtracted (KataGo's target
// pruning, spec.md §4.8) before the distribution is read out. When
// removeZeros is true, children whose post-pruning visit count is zero are
// omitted.
func (t *Tree) Dump(root NodeIndex, targetPruning, removeZeros bool) DumpResult {
	n := t.arena.at(root)

	if targetPruning && len(n.Children) > 0 {
		t.pruneForcedVisits(root)
	}

	var q float32
	if n.N != 0 {
		q = n.W / float32(n.N)
	}

	dist := make([]MoveVisits, 0, len(n.Children))
	var sumN uint32
	for _, c := range n.Children {
		child := t.arena.at(c)
		if removeZeros && child.N == 0 {
			continue
		}
		dist = append(dist, MoveVisits{MoveSFEN: child.Move.SFEN(), Visits: child.N})
		sumN += child.N
	}

	return DumpResult{SumN: sumN, Q: q, Dist: dist}
}

// pruneForcedVisits undoes forced-playout visits on every non-best child
// that would not have been chosen absent the force, per spec.md §4.8: the
// reference is the best child's PUCT without forced playouts; each
// non-best child is decremented up to ceil(sqrt(2*p*parent.n))-1 times,
// stopping early (and reverting the last decrement) once its recomputed
// PUCT would rise above the reference.
func (t *Tree) pruneForcedVisits(node NodeIndex) {
	n := t.arena.at(node)
	bestChild := t.selectNMaxChild(node)
	bestPUCT := t.puct(t.arena.at(bestChild), float32(n.N), false)

	for _, c := range n.Children {
		if c == bestChild {
			continue
		}
		child := t.arena.at(c)

		nForced := math32.Sqrt(2 * child.P * float32(n.N))
		maxRemovals := int(math32.Ceil(nForced)) - 1

		for removed := 1; removed <= maxRemovals; removed++ {
			if child.N == 0 {
				break
			}
			child.N--
			puct := t.puct(child, float32(n.N)-float32(removed), false)
			if puct >= bestPUCT {
				child.N++
				break
			}
		}
	}
}

// Info returns the principal variation (repeatedly following the
// max-visit child until an unexpanded node is reached) and the root-child
// Q of the first PV move (spec.md §4.9).
func (t *Tree) Info(root NodeIndex) (pv []position.Move, firstQ float32) {
	node := root
	depth := 0
	for t.arena.at(node).expanded() {
		node = t.selectNMaxChild(node)
		child := t.arena.at(node)
		pv = append(pv, child.Move)

		depth++
		if depth == 1 {
			firstQ = child.Q()
		}
	}
	return pv, firstQ
}

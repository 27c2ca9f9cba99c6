package mcts

import (
	"errors"

	"github.com/Nyashiki/minishogilib/position"
	"github.com/chewxy/math32"
)

// BestMove returns the move of root's child with the maximum visit count,
// first-found wins ties (spec.md §4.7).
func (t *Tree) BestMove(root NodeIndex) position.Move {
	return t.arena.at(t.selectNMaxChild(root)).Move
}

func (t *Tree) selectNMaxChild(node NodeIndex) NodeIndex {
	children := t.arena.at(node).Children
	var best NodeIndex = nilIndex
	var bestN uint32
	for _, c := range children {
		n := t.arena.at(c).N
		if best == nilIndex || n > bestN {
			bestN = n
			best = c
		}
	}
	if best == nilIndex {
		panic("mcts: selectNMaxChild on a node with no children")
	}
	return best
}

// SoftmaxSample samples a child of root with probability proportional to
// n^(1/temperature) — a visit-count power distribution, not a temperature
// softmax of visits (spec.md §4.7). temperature must be > 0; the T->0 limit
// is not supported.
func (t *Tree) SoftmaxSample(root NodeIndex, temperature float32) (position.Move, error) {
	children := t.arena.at(root).Children
	if len(children) == 0 {
		return nil, errors.New("mcts: softmax sample from a node with no children")
	}

	maxN := float32(0)
	for _, c := range children {
		if n := float32(t.arena.at(c).N); n > maxN {
			maxN = n
		}
	}

	weights := make([]float32, len(children))
	var sum float32
	for i, c := range children {
		n := float32(t.arena.at(c).N)
		w := math32.Pow(n/maxBase(maxN), 1/temperature)
		weights[i] = w
		sum += w
	}

	r := t.rand.Float32() * sum
	var cum float32
	for i, w := range weights {
		cum += w
		if r < cum {
			return t.arena.at(children[i]).Move, nil
		}
	}
	return t.arena.at(children[len(children)-1]).Move, nil
}

// SoftmaxSampleAmongTop restricts SoftmaxSample's support to children whose
// Q is within away of the best child's Q (spec.md §4.7).
func (t *Tree) SoftmaxSampleAmongTop(root NodeIndex, away, temperature float32) (position.Move, error) {
	children := t.arena.at(root).Children
	if len(children) == 0 {
		return nil, errors.New("mcts: softmax sample from a node with no children")
	}

	best := t.arena.at(t.selectNMaxChild(root))
	bestQ := best.Q()

	maxN := float32(0)
	eligible := make([]NodeIndex, 0, len(children))
	for _, c := range children {
		if t.arena.at(c).Q() < bestQ-away {
			continue
		}
		eligible = append(eligible, c)
		if n := float32(t.arena.at(c).N); n > maxN {
			maxN = n
		}
	}
	if len(eligible) == 0 {
		return nil, errors.New("mcts: no child within `away` of the best Q")
	}

	weights := make([]float32, len(eligible))
	var sum float32
	for i, c := range eligible {
		n := float32(t.arena.at(c).N)
		w := math32.Pow(n/maxBase(maxN), 1/temperature)
		weights[i] = w
		sum += w
	}

	r := t.rand.Float32() * sum
	var cum float32
	for i, w := range weights {
		cum += w
		if r < cum {
			return t.arena.at(eligible[i]).Move, nil
		}
	}
	return t.arena.at(eligible[len(eligible)-1]).Move, nil
}

// maxBase guards against a 0^x indeterminate form when every child is
// unvisited; normalizing by the max visit count first keeps the power
// distribution numerically safe (spec.md §4.7).
func maxBase(maxN float32) float32 {
	if maxN == 0 {
		return 1
	}
	return maxN
}

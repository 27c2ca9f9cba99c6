package mcts

import (
	"math/rand"
	"time"

	"github.com/Nyashiki/minishogilib/position"
	"github.com/chewxy/math32"
	distrand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distmv"
)

// Tree is the arena-backed PUCT search tree (spec.md §2's "Tree operations"
// component). A Tree owns exactly one arena and is driven single-threaded,
// with virtual-loss parallelism across concurrently in-flight playouts
// layered on top by the caller (spec.md §5).
type Tree struct {
	cfg   Config
	arena *Arena

	prevRoot NodeIndex

	rand         *rand.Rand
	dirichletSrc distrand.Source
}

// New constructs a Tree with a freshly sized arena.
func New(cfg Config) *Tree {
	if !cfg.IsValid() {
		panic("mcts: invalid config")
	}
	return &Tree{
		cfg:          cfg,
		arena:        NewArena(cfg.MemoryGiB),
		rand:         rand.New(rand.NewSource(time.Now().UnixNano())),
		dirichletSrc: distrand.NewSource(uint64(time.Now().UnixNano())),
	}
}

// NodeCount, Capacity, and Usage expose arena usage (supplemented from the
// source's get_nodes/get_usage, spec.md §9's "node_used_count for usage
// reporting").
func (t *Tree) NodeCount() int { return t.arena.NodeCount() }
func (t *Tree) Capacity() int  { return t.arena.Capacity() }
func (t *Tree) Usage() float64 { return t.arena.Usage() }

// SetRoot returns the root node to search from for position, reusing the
// subtree under the previous root when reuse is true and the previous
// root's children contain one matching the last played move (spec.md
// §4.3). Otherwise the whole tree is cleared and a fresh root is allocated
// at the conventional arena index 1.
func (t *Tree) SetRoot(pos position.Position, reuse bool) NodeIndex {
	if reuse && t.prevRoot != nilIndex && t.arena.at(t.prevRoot).IsUsed && pos.Ply() > 0 {
		lastMove, ok := pos.LastMove()
		if ok {
			prevRoot := t.arena.at(t.prevRoot)
			for _, c := range prevRoot.Children {
				if t.arena.at(c).Move.Equal(lastMove) {
					t.arena.eliminateExcept(t.prevRoot, c)
					t.arena.at(c).Parent = nilIndex
					t.prevRoot = c
					return c
				}
			}
		}
	}

	t.arena.eliminateExcept(t.prevRoot, nilIndex)
	root := t.arena.allocRoot()
	t.prevRoot = root
	return root
}

// Expanded reports whether node has already been expanded or is terminal.
func (t *Tree) Expanded(node NodeIndex) bool {
	n := t.arena.at(node)
	return n.IsTerminal || n.expanded()
}

// SelectLeaf descends from root while the current node is expanded and
// non-terminal, incrementing virtual loss along the way and applying each
// chosen child's move to position (spec.md §4.4). position must be a
// mutable clone the caller is willing to have mutated in place.
func (t *Tree) SelectLeaf(root NodeIndex, pos position.Position) NodeIndex {
	node := root
	for {
		n := t.arena.at(node)
		n.VirtualLoss++

		if n.IsTerminal || !n.expanded() {
			break
		}

		node = t.selectPUCTMaxChild(node)
		pos.DoMove(t.arena.at(node).Move)
	}
	return node
}

// selectPUCTMaxChild picks the highest-PUCT child, first-found wins ties,
// in children iteration order (spec.md §4.4).
func (t *Tree) selectPUCTMaxChild(node NodeIndex) NodeIndex {
	n := t.arena.at(node)
	parentN := float32(n.N + n.VirtualLoss)

	var best NodeIndex = nilIndex
	bestScore := float32(math32.Inf(-1))
	for _, c := range n.Children {
		score := t.puct(t.arena.at(c), parentN, t.cfg.ForcedPlayouts)
		if best == nilIndex || score > bestScore {
			bestScore = score
			best = c
		}
	}
	if best == nilIndex {
		panic("mcts: select from a node with no children")
	}
	return best
}

// TerminalOutcome evaluates position's end-of-game value from the current
// side-to-move's point of view, applying the repetition/ply-cap/checkmate
// conventions of spec.md §4.5. It is exported so callers driving a full
// self-play game (not just a single Evaluate call) can reuse the same
// terminal-value logic to decide when a game has ended and who won.
func TerminalOutcome(pos position.Position, moves []position.Move) (terminal bool, value float32) {
	isRep, myCheckRep, opCheckRep := pos.IsRepetition()
	terminal = isRep || len(moves) == 0 || pos.Ply() == pos.MaxPly()

	if terminal {
		switch {
		case myCheckRep:
			value = 0
		case opCheckRep:
			value = 1
		case isRep:
			if pos.SideToMove() == position.White {
				value = 0
			} else {
				value = 1
			}
		case pos.Ply() == pos.MaxPly():
			value = 0.5
		}
	}

	if len(moves) == 0 {
		if lastMove, ok := pos.LastMove(); ok && lastMove.IsDrop() && lastMove.PieceType() == position.Pawn {
			value = 1 // illegal drop-mate: the dropper loses, current mover wins
		} else {
			value = 0 // checkmated
		}
	}

	return terminal, value
}

// Evaluate expands node and writes its value, unless it is already
// expanded or terminal (a no-op in that case). policy is the raw NN policy
// output indexed by Move.PolicyIndex(); value is the raw NN value output,
// overridden when the position is terminal (spec.md §4.5).
func (t *Tree) Evaluate(node NodeIndex, pos position.Position, policy []float32, value float32) {
	n := t.arena.at(node)
	if n.expanded() || n.IsTerminal {
		return
	}

	moves := pos.GenerateMoves()

	maxLogit := float32(math32.Inf(-1))
	for _, m := range moves {
		if v := policy[m.PolicyIndex()]; v > maxLogit {
			maxLogit = v
		}
	}

	probs := make([]float32, len(moves))
	var sum float32
	for i, m := range moves {
		e := math32.Exp(policy[m.PolicyIndex()] - maxLogit)
		probs[i] = e
		sum += e
	}
	if sum <= math32.SmallestNonzeroFloat32 && len(moves) > 0 {
		uniform := 1 / float32(len(moves))
		for i := range probs {
			probs[i] = uniform
		}
		sum = 1
	}

	terminal, termValue := TerminalOutcome(pos, moves)
	if terminal {
		value = termValue
	}

	n.IsTerminal = terminal
	if !terminal {
		for i, m := range moves {
			child := t.arena.allocChild(node, m, probs[i]/sum)
			n.Children = append(n.Children, child)
		}
	}
	n.V = value
}

// AddNoise mixes Dirichlet(alpha) exploration noise into the root's
// children priors: p <- (1-eps)*p + eps*noise_i. Called once before the
// first playout, never from inside Evaluate (spec.md §4.5, Design Notes).
func (t *Tree) AddNoise(root NodeIndex) {
	children := t.arena.at(root).Children
	if len(children) == 0 {
		return
	}

	alpha := make([]float64, len(children))
	for i := range alpha {
		alpha[i] = t.cfg.DirichletAlpha
	}
	dirichlet := distmv.NewDirichlet(alpha, t.dirichletSrc)
	noise := dirichlet.Rand(nil)

	for i, c := range children {
		child := t.arena.at(c)
		child.P = (1-t.cfg.DirichletEpsilon)*child.P + t.cfg.DirichletEpsilon*float32(noise[i])
	}
}

// Backpropagate walks from leaf to the sentinel, alternating the value
// added at each depth to encode the flip in perspective between movers
// (spec.md §4.6).
func (t *Tree) Backpropagate(leaf NodeIndex) {
	node := leaf
	v := t.arena.at(leaf).V
	flip := false

	for node != nilIndex {
		n := t.arena.at(node)
		if !flip {
			n.W += v
		} else {
			n.W += 1 - v
		}
		n.N++
		n.VirtualLoss--
		node = n.Parent
		flip = !flip
	}
}

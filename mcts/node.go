package mcts

import (
	"fmt"

	"github.com/Nyashiki/minishogilib/position"
)

// NodeIndex is an arena slot reference. Index 0 is a permanently unused
// sentinel meaning "no node" (the parent of the root, and the return value
// of searches that find nothing).
type NodeIndex int32

const nilIndex NodeIndex = 0

// Node is a fixed-layout record in the arena. See spec.md §3 for the field
// semantics; this type intentionally carries no synchronization of its own
// (spec.md §5: "The arena itself is not internally synchronized — external
// callers must serialize mutating operations").
type Node struct {
	N           uint32
	W           float32
	V           float32
	P           float32
	Move        position.Move
	Parent      NodeIndex
	Children    []NodeIndex
	IsTerminal  bool
	VirtualLoss uint32
	IsUsed      bool
}

// Format gives Node a readable %v/%+v representation for debug logging,
// the same role Format plays on the teacher's mcts.Node.
func (n *Node) Format(s fmt.State, c rune) {
	fmt.Fprintf(s, "{N:%d W:%.3f V:%.3f P:%.3f VL:%d used:%t terminal:%t}",
		n.N, n.W, n.V, n.P, n.VirtualLoss, n.IsUsed, n.IsTerminal)
}

func (n *Node) expanded() bool { return len(n.Children) > 0 }

// Q returns the value estimate from the current mover's point of view.
func (n *Node) Q() float32 {
	denom := n.N + n.VirtualLoss
	if denom == 0 {
		return 0
	}
	return 1 - (n.W+float32(n.VirtualLoss))/float32(denom)
}

func (n *Node) clear() {
	n.N = 0
	n.W = 0
	n.V = 0
	n.P = 0
	n.Move = nil
	n.Parent = nilIndex
	n.Children = nil
	n.IsTerminal = false
	n.VirtualLoss = 0
	n.IsUsed = false
}

package mcts

import (
	"fmt"

	"github.com/Nyashiki/minishogilib/position"
)

// Arena is a contiguous, pre-allocated slab of Node slots sized from a
// memory budget (spec.md §4.1). Index 0 is a permanently unused sentinel.
// Arena is not safe for concurrent mutation; callers serialize allocation,
// expansion, and backpropagation themselves (spec.md §5).
type Arena struct {
	nodes     []Node
	cursor    NodeIndex
	liveCount int
}

const bytesPerGiB = 1 << 30

// estimated per-node footprint used to size the arena from a memory budget.
// Node itself (slice headers + interface + scalars) is small; this constant
// reflects the teacher's own per-node accounting comment ("about 56 bytes
// per node") updated for this struct's layout.
const estimatedNodeBytes = 80

// NewArena allocates capacity = floor(budgetGiB*2^30 / estimatedNodeBytes)
// node slots. capacity must be at least 2 (the sentinel plus one root slot).
func NewArena(budgetGiB float64) *Arena {
	capacity := int(budgetGiB * bytesPerGiB / estimatedNodeBytes)
	if capacity < 2 {
		capacity = 2
	}
	return &Arena{
		nodes:  make([]Node, capacity),
		cursor: 1,
	}
}

// Capacity returns the number of node slots in the arena, including the
// unused sentinel at index 0.
func (a *Arena) Capacity() int { return len(a.nodes) }

// NodeCount returns the number of currently live (in-use) nodes.
func (a *Arena) NodeCount() int { return a.liveCount }

// Usage returns the fraction of the arena's capacity currently in use.
func (a *Arena) Usage() float64 { return float64(a.liveCount) / float64(len(a.nodes)) }

func (a *Arena) at(i NodeIndex) *Node { return &a.nodes[i] }

// allocChild finds a free slot by linear probing from the cursor (wrapping,
// skipping index 0), writes the new node, and advances the cursor one past
// it. The probe is bounded by a full pass over the arena: in production it
// should never wrap completely (the caller is responsible for sizing the
// arena to the workload), so a full wrap is treated as arena exhaustion and
// is fatal (spec.md §7).
func (a *Arena) allocChild(parent NodeIndex, m position.Move, prior float32) NodeIndex {
	idx := a.cursor
	for probes := 0; ; probes++ {
		if idx == 0 {
			idx = 1
		}
		if !a.nodes[idx].IsUsed {
			break
		}
		idx++
		if int(idx) >= len(a.nodes) {
			idx = 1
		}
		if probes >= len(a.nodes) {
			panic(fmt.Sprintf("mcts: arena exhausted (capacity %d); caller must size the arena to the workload", len(a.nodes)))
		}
	}

	a.nodes[idx] = Node{
		IsUsed: true,
		Parent: parent,
		Move:   m,
		P:      prior,
	}
	a.cursor = idx + 1
	if int(a.cursor) >= len(a.nodes) {
		a.cursor = 1
	}
	a.liveCount++
	return idx
}

// allocRoot claims the arena-index-1 convention for a fresh root (spec.md
// §4.3). The caller must have already cleared any previous tree.
func (a *Arena) allocRoot() NodeIndex {
	if len(a.nodes) < 2 {
		panic("mcts: arena too small to hold a root node")
	}
	a.nodes[1] = Node{IsUsed: true}
	a.cursor = 2
	a.liveCount = 1
	return 1
}

// eliminateExcept performs an iterative depth-first clear of every node
// reachable from root, except the subtree rooted at keep (nilIndex clears
// everything including root itself). Children are pushed before their
// parent is cleared, matching spec.md §4.1/§4.3.
func (a *Arena) eliminateExcept(root, keep NodeIndex) {
	if root == nilIndex || !a.nodes[root].IsUsed {
		return
	}

	stack := []NodeIndex{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n == keep {
			continue
		}

		node := &a.nodes[n]
		stack = append(stack, node.Children...)
		node.clear()
		a.liveCount--
	}
}

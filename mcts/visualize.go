package mcts

import (
	"fmt"
	"strconv"

	"github.com/awalterschulze/gographviz"
)

// Visualize renders up to k nodes reachable from root as dot-language
// source, via a single best-first worklist: repeatedly pop the
// highest-visit-count node across the whole frontier (not per-parent),
// emit it, and push its children, stopping once k nodes have been emitted
// or the frontier is empty (spec.md §4.9, ported from the source engine's
// visualize()). Each node is labeled with its visit count, prior, value,
// and Q; each non-root node's incoming edge is labeled with its move.
func (t *Tree) Visualize(root NodeIndex, k int) (string, error) {
	g := gographviz.NewGraph()
	if err := g.SetName("mcts"); err != nil {
		return "", err
	}
	if err := g.SetDir(true); err != nil {
		return "", err
	}

	frontier := []NodeIndex{root}
	for counter := 0; counter < k && len(frontier) > 0; counter++ {
		maxIdx := 0
		var maxN uint32
		for i, n := range frontier {
			if cnt := t.arena.at(n).N; i == 0 || cnt > maxN {
				maxN = cnt
				maxIdx = i
			}
		}

		n := frontier[maxIdx]
		frontier[maxIdx] = frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]

		if err := t.addVisualizeNode(g, n); err != nil {
			return "", err
		}

		if n != root {
			node := t.arena.at(n)
			parentName := strconv.Itoa(int(node.Parent))
			name := strconv.Itoa(int(n))
			label := fmt.Sprintf(`"%s"`, node.Move.SFEN())
			if err := g.AddEdge(parentName, name, true, map[string]string{"label": label}); err != nil {
				return "", err
			}
		}

		frontier = append(frontier, t.arena.at(n).Children...)
	}

	return g.String(), nil
}

func (t *Tree) addVisualizeNode(g *gographviz.Graph, n NodeIndex) error {
	node := t.arena.at(n)
	label := fmt.Sprintf(`"N:%d P:%.3f V:%.3f Q:%.3f"`, node.N, node.P, node.V, node.Q())
	return g.AddNode("mcts", strconv.Itoa(int(n)), map[string]string{"label": label})
}

// DebugLine is one child's diagnostic row as dumped by Debug.
type DebugLine struct {
	MoveSFEN    string
	P           float32
	V           float32
	W           float32
	N           uint32
	VirtualLoss uint32
	PUCT        float32
}

// Debug returns a diagnostic per-child dump of node: prior, value, total
// value, visits, virtual loss, and current PUCT score, ported from the
// source's debug() for interactive search inspection (spec.md §9).
func (t *Tree) Debug(node NodeIndex) []DebugLine {
	n := t.arena.at(node)
	parentN := float32(n.N + n.VirtualLoss)

	lines := make([]DebugLine, 0, len(n.Children))
	for _, c := range n.Children {
		child := t.arena.at(c)
		lines = append(lines, DebugLine{
			MoveSFEN:    child.Move.SFEN(),
			P:           child.P,
			V:           child.V,
			W:           child.W,
			N:           child.N,
			VirtualLoss: child.VirtualLoss,
			PUCT:        t.puct(child, parentN, t.cfg.ForcedPlayouts),
		})
	}
	return lines
}

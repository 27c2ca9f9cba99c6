package mcts

import "github.com/chewxy/math32"

// PUCT constants (spec.md §4.2). The source repository carries two
// equivalent formulations differing only in how c and U are grouped; this
// port picks PUCT = Q + c·p·sqrt(Np)/(1+n+vl) with an integer virtual loss,
// per spec.md's Design Notes.
const (
	defaultCBase = 19652
	defaultCInit = 1.25
)

// puct scores child against its parent's total visits (N + virtual loss).
// forcedPlayouts applies the KataGo guaranteed-minimum-visits override
// during selection; it must be false when recomputing PUCT for target
// pruning (spec.md §4.8).
func (t *Tree) puct(child *Node, parentN float32, forcedPlayouts bool) float32 {
	if child.IsTerminal {
		if child.V == 0 {
			return math32.MaxFloat32
		}
		if child.V == 1 {
			return -1
		}
	}

	if forcedPlayouts {
		nForced := math32.Sqrt(2 * child.P * parentN)
		if float32(child.N) < nForced {
			return math32.MaxFloat32
		}
	}

	c := math32.Log2((1+float32(child.N)+t.cfg.CBase)/t.cfg.CBase) + t.cfg.CInit

	var q float32
	denom := child.N + child.VirtualLoss
	if denom != 0 {
		q = 1 - (child.W+float32(child.VirtualLoss))/float32(denom)
	}

	u := c * child.P * math32.Sqrt(parentN) / (1 + float32(child.N+child.VirtualLoss))
	return q + u
}

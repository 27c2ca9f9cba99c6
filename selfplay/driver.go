// Package selfplay drives an mcts.Tree and an Inferer through complete
// self-play games, producing record.Record values ready for a
// reservoir.Reservoir (spec.md §6's "the search and the reservoir are
// driven by a self-play loop that is otherwise out of scope" made
// concrete, since a caller still needs something to exercise both).
package selfplay

import (
	"bytes"
	"context"
	"io"
	"log"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/Nyashiki/minishogilib/mcts"
	"github.com/Nyashiki/minishogilib/position"
	"github.com/Nyashiki/minishogilib/record"
)

// Inferer is anything that can evaluate a position's neural-network input,
// returning raw policy logits (indexed by Move.PolicyIndex()) and a raw
// value estimate in [0,1] from the side-to-move's point of view. It
// mirrors the teacher's Inferer, generalized from a fixed board encoding
// to position.Position.ToAlphaZeroInput.
type Inferer interface {
	Infer(input []float32) (policy []float32, value float32, err error)
	io.Closer
}

// Config governs one self-play game.
type Config struct {
	MCTSConf mcts.Config

	// Simulations is the number of playouts run per move before a move is
	// chosen.
	Simulations int

	// TemperaturePlies is the number of plies (from the start of the
	// game) during which moves are sampled via SoftmaxSample rather than
	// played greedily via BestMove, matching the teacher's
	// RandomCount/RandomTemperature idiom (mcts/tree.go's Config).
	TemperaturePlies int
	Temperature      float32

	// ReuseTree carries the searched subtree forward between moves
	// (spec.md §4.3).
	ReuseTree bool
}

// DefaultConfig mirrors the constants named in spec.md's worked examples.
func DefaultConfig() Config {
	return Config{
		MCTSConf:         mcts.DefaultConfig(),
		Simulations:      400,
		TemperaturePlies: 16,
		Temperature:      1.0,
		ReuseTree:        true,
	}
}

// Driver plays self-play games with a single Tree/Inferer pair. It is not
// safe for concurrent use; run one Driver per goroutine, each with its own
// Tree and Inferer (spec.md §5: the tree itself is not internally
// synchronized).
type Driver struct {
	cfg   Config
	tree  *mcts.Tree
	infer Inferer

	buf    bytes.Buffer
	logger *log.Logger
}

// NewDriver constructs a Driver with a freshly allocated Tree.
func NewDriver(infer Inferer, cfg Config) *Driver {
	d := &Driver{
		cfg:   cfg,
		tree:  mcts.New(cfg.MCTSConf),
		infer: infer,
	}
	d.logger = log.New(&d.buf, "", log.Ltime)
	return d
}

// Log returns the accumulated per-move diagnostic log, matching the
// teacher's bytes.Buffer-backed arena logger idiom.
func (d *Driver) Log() string { return d.buf.String() }

// Close releases the Inferer, aggregating any error via go-multierror the
// same way Agent.Close does for multiple inferers.
func (d *Driver) Close() error {
	var errs error
	if err := d.infer.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs
}

// PlayGame plays one game to completion from pos's current state (which
// should be freshly reset), recording every ply's search result, and
// returns the assembled Record. learningTargetPlys selects which plies of
// the finished game to mark as learning targets (spec.md §6); pass nil to
// mark every ply.
func (d *Driver) PlayGame(ctx context.Context, pos position.Position, learningTargetPlys func(numPlies int) []int) (record.Record, error) {
	var sfenKif []string
	var mctsResults []record.PlyResult

	ply := 0
	for {
		select {
		case <-ctx.Done():
			return record.Record{}, ctx.Err()
		default:
		}

		moves := pos.GenerateMoves()
		terminal, _ := mcts.TerminalOutcome(pos, moves)
		if terminal {
			break
		}

		root := d.tree.SetRoot(pos, d.cfg.ReuseTree && ply > 0)
		if err := d.search(root, pos); err != nil {
			return record.Record{}, errors.Wrapf(err, "selfplay: searching ply %d", ply)
		}

		dump := d.tree.Dump(root, d.cfg.MCTSConf.ForcedPlayouts, true)
		playouts := make([]record.MoveVisit, len(dump.Dist))
		for i, mv := range dump.Dist {
			playouts[i] = record.MoveVisit{MoveSFEN: mv.MoveSFEN, Visits: mv.Visits}
		}
		mctsResults = append(mctsResults, record.PlyResult{SumN: dump.SumN, Q: dump.Q, Playouts: playouts})

		var chosen position.Move
		var err error
		if ply < d.cfg.TemperaturePlies {
			chosen, err = d.tree.SoftmaxSample(root, d.cfg.Temperature)
		} else {
			chosen = d.tree.BestMove(root)
		}
		if err != nil {
			return record.Record{}, errors.Wrapf(err, "selfplay: choosing move at ply %d", ply)
		}

		d.logger.Printf("ply %d: %s (sum_n=%d q=%.3f)\n", ply, chosen.SFEN(), dump.SumN, dump.Q)
		sfenKif = append(sfenKif, chosen.SFEN())
		pos.DoMove(chosen)
		ply++
	}

	_, value := mcts.TerminalOutcome(pos, pos.GenerateMoves())
	winner := record.Draw
	switch value {
	case 1:
		winner = int(pos.SideToMove())
	case 0:
		winner = int(pos.SideToMove().Opponent())
	}

	var targets []int
	if learningTargetPlys != nil {
		targets = learningTargetPlys(len(sfenKif))
	} else {
		targets = make([]int, len(sfenKif))
		for i := range targets {
			targets[i] = i
		}
	}

	return record.Record{
		SfenKif:            sfenKif,
		MCTSResult:         mctsResults,
		Winner:             winner,
		LearningTargetPlys: targets,
	}, nil
}

// search runs Simulations playouts from root, applying Dirichlet noise
// once before the first playout (spec.md §4.5's Design Notes). pos is left
// unmodified: every playout descends a clone.
func (d *Driver) search(root mcts.NodeIndex, pos position.Position) error {
	done := 0
	if !d.tree.Expanded(root) {
		clone := pos.Clone()
		leaf := d.tree.SelectLeaf(root, clone)
		if err := d.evaluate(leaf, clone); err != nil {
			return err
		}
		d.tree.Backpropagate(leaf)
		done = 1
	}
	d.tree.AddNoise(root)

	for i := done; i < d.cfg.Simulations; i++ {
		clone := pos.Clone()
		leaf := d.tree.SelectLeaf(root, clone)
		if err := d.evaluate(leaf, clone); err != nil {
			return err
		}
		d.tree.Backpropagate(leaf)
	}
	return nil
}

// evaluate requests a policy/value inference for pos and expands leaf with
// it, a no-op if leaf is already expanded or terminal (mcts.Tree.Evaluate
// handles both).
func (d *Driver) evaluate(leaf mcts.NodeIndex, pos position.Position) error {
	input := pos.ToAlphaZeroInput()
	policy, value, err := d.infer.Infer(input)
	if err != nil {
		return errors.Wrap(err, "selfplay: inference")
	}
	d.tree.Evaluate(leaf, pos, policy, value)
	return nil
}

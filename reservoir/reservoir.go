// Package reservoir implements the bounded self-play training buffer
// (spec.md §6): a FIFO of Records with concurrent ingest and sampling.
//
// The original engine coordinated readers and the writer with a pair of
// Mutex<u16> counters polled in a busy-wait loop — a documented defect this
// port does not reproduce. Sample takes a read lock only long enough to
// snapshot the records it needs; Push takes a write lock only long enough
// to mutate the deque. Readers do their (CPU-heavy) tensor materialization
// entirely outside any lock, so a slow sampler never stalls ingest and a
// burst of pushes never starves a sampler already in flight.
package reservoir

import (
	"context"
	"math/rand"
	"os"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gorgonia.org/tensor"

	"github.com/Nyashiki/minishogilib/position"
	"github.com/Nyashiki/minishogilib/record"
)

// Batch is the materialized training input produced by Sample: NN input
// tensors, policy targets, and value targets for batchSize sampled plies,
// mirroring the teacher's prepareExamples outputs (agogo.go).
type Batch struct {
	Inputs   *tensor.Dense // shape (batchSize, position.NNInputSize)
	Policies *tensor.Dense // shape (batchSize, position.PolicySize)
	Values   *tensor.Dense // shape (batchSize)
}

// Reservoir is a bounded FIFO of self-play Records, sampled uniformly over
// plies (not over games, spec.md §6). The zero value is not usable; build
// one with New.
type Reservoir struct {
	mu sync.RWMutex

	records  []record.Record
	maxSize  int
	jsonPath string
}

// New constructs an empty Reservoir that appends newly pushed records (with
// logging enabled) to jsonPath, retaining at most maxSize records.
func New(jsonPath string, maxSize int) *Reservoir {
	return &Reservoir{
		records:  make([]record.Record, 0, maxSize),
		maxSize:  maxSize,
		jsonPath: jsonPath,
	}
}

// Push decodes recordJSON, validates it, and appends it to the reservoir,
// evicting the oldest record first if the reservoir is already at
// capacity. A malformed record is rejected before any lock is taken, so
// the reservoir's state is unchanged on error. The new record is also
// appended to the JSON-lines log at jsonPath; a log-write failure is
// returned to the caller but does not roll back the in-memory push (the
// record is still available for sampling even if it could not be
// persisted).
func (r *Reservoir) Push(recordJSON []byte) error {
	rec, err := record.FromJSON(recordJSON)
	if err != nil {
		return errors.Wrap(err, "reservoir: push")
	}

	r.mu.Lock()
	r.pushLocked(rec)
	r.mu.Unlock()

	return r.appendLog(recordJSON)
}

func (r *Reservoir) pushLocked(rec record.Record) {
	if len(r.records) == r.maxSize {
		r.records = r.records[1:]
	}
	r.records = append(r.records, rec)
}

func (r *Reservoir) appendLog(recordJSON []byte) error {
	f, err := os.OpenFile(r.jsonPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrap(err, "reservoir: opening log")
	}
	defer f.Close()

	if _, err := f.Write(append(append([]byte(nil), recordJSON...), '\n')); err != nil {
		return errors.Wrap(err, "reservoir: writing log")
	}
	return nil
}

// Load replays every line of a JSON-lines log file into the reservoir
// without re-logging it (the file being loaded already is the log). Lines
// that fail to decode are skipped; Load never partially ingests a line —
// a line either becomes a whole record or is dropped.
func (r *Reservoir) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reservoir: loading")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, line := range splitLines(data) {
		if len(line) == 0 {
			continue
		}
		rec, err := record.FromJSON(line)
		if err != nil {
			continue
		}
		r.pushLocked(rec)
	}
	return nil
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			lines = append(lines, data[start:i])
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, data[start:])
	}
	return lines
}

// Size returns the number of records currently held.
func (r *Reservoir) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Each calls fn once per currently held record, oldest first. fn is called
// outside any lock, against a snapshot taken under a read lock, so it may
// take arbitrarily long without blocking a concurrent Push.
func (r *Reservoir) Each(fn func(record.Record)) {
	r.mu.RLock()
	snapshot := append([]record.Record(nil), r.records...)
	r.mu.RUnlock()

	for _, rec := range snapshot {
		fn(rec)
	}
}

// sampleTarget names one learning-target ply: which record, and which ply
// within its sfen_kif to replay up to.
type sampleTarget struct {
	record record.Record
	ply    int
}

// Sample draws batchSize learning-target plies uniformly at random (a ply
// in a longer game is exactly as likely to be drawn as one in a shorter
// game — uniform over plies, not over games, spec.md §6), replays each
// target's move prefix against a fresh position, and materializes NN
// inputs, policy targets, and value targets in parallel.
//
// The records slice is snapshotted under a read lock and all further work
// happens outside it, so Sample never blocks a concurrent Push beyond the
// time it takes to copy the records slice.
func (r *Reservoir) Sample(ctx context.Context, newPosition func() position.Position, batchSize int) (Batch, error) {
	targets, err := r.pickTargets(batchSize)
	if err != nil {
		return Batch{}, err
	}

	inputs := make([][]float32, len(targets))
	policies := make([][]float32, len(targets))
	values := make([]float32, len(targets))

	g, ctx := errgroup.WithContext(ctx)
	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			pos := newPosition()
			pos.SetStartPosition()
			for ply := 0; ply < target.ply; ply++ {
				m, err := pos.SFENToMove(target.record.SfenKif[ply])
				if err != nil {
					return errors.Wrapf(err, "reservoir: replaying ply %d", ply)
				}
				pos.DoMove(m)
			}

			policy := make([]float32, position.PolicySize)
			result := target.record.MCTSResult[target.ply]
			if result.SumN > 0 {
				for _, pv := range result.Playouts {
					m, err := pos.SFENToMove(pv.MoveSFEN)
					if err != nil {
						return errors.Wrapf(err, "reservoir: decoding playout move at ply %d", target.ply)
					}
					policy[m.PolicyIndex()] = float32(pv.Visits) / float32(result.SumN)
				}
			}

			inputs[i] = pos.ToAlphaZeroInput()
			policies[i] = policy
			values[i] = target.record.Value(pos.SideToMove())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Batch{}, errors.Wrap(err, "reservoir: sampling")
	}

	flatInputs := make([]float32, 0, len(targets)*position.NNInputSize)
	flatPolicies := make([]float32, 0, len(targets)*position.PolicySize)
	for i := range targets {
		flatInputs = append(flatInputs, inputs[i]...)
		flatPolicies = append(flatPolicies, policies[i]...)
	}

	return Batch{
		Inputs:   tensor.New(tensor.WithBacking(flatInputs), tensor.WithShape(len(targets), position.NNInputSize)),
		Policies: tensor.New(tensor.WithBacking(flatPolicies), tensor.WithShape(len(targets), position.PolicySize)),
		Values:   tensor.New(tensor.WithBacking(values), tensor.WithShape(len(targets))),
	}, nil
}

// pickTargets snapshots the reservoir's records and draws batchSize
// (record, ply) targets uniformly over the concatenation of every
// record's learning-target plies, via a prefix sum over per-record target
// counts and a binary search per draw — the same scheme as the source
// engine's sample(), translated from its busy-wait-guarded single-reader
// form into one taken under a plain read lock.
func (r *Reservoir) pickTargets(batchSize int) ([]sampleTarget, error) {
	r.mu.RLock()
	records := append([]record.Record(nil), r.records...)
	r.mu.RUnlock()

	if len(records) == 0 {
		return nil, errors.New("reservoir: sampling from an empty reservoir")
	}

	cumulative := make([]int, len(records)+1)
	for i, rec := range records {
		cumulative[i+1] = cumulative[i] + len(rec.LearningTargetPlys)
	}
	total := cumulative[len(records)]
	if total == 0 {
		return nil, errors.New("reservoir: no learning targets available to sample")
	}

	targets := make([]sampleTarget, batchSize)
	for i := 0; i < batchSize; i++ {
		draw := rand.Intn(total)
		recIdx := searchCumulative(cumulative, draw)
		ply := records[recIdx].LearningTargetPlys[draw-cumulative[recIdx]]
		targets[i] = sampleTarget{record: records[recIdx], ply: ply}
	}
	return targets, nil
}

// searchCumulative finds the index i such that cumulative[i] <= draw <
// cumulative[i+1], via binary search over the prefix-sum table.
func searchCumulative(cumulative []int, draw int) int {
	lo, hi := 0, len(cumulative)-2
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if cumulative[mid] <= draw {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

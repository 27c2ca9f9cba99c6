// Package record defines the self-play training record and its JSON wire
// format (spec.md §3, §6).
package record

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/Nyashiki/minishogilib/position"
)

// Draw is the Winner value recorded when a game ends without a winner
// (repetition by neither side giving/receiving check, or the ply cap).
const Draw = 2

// MoveVisit pairs a move's SFEN form with the visit count the search
// reported for it (the count from mcts.Tree.Dump, which is after target
// pruning when pruning is enabled). It marshals as the two-element JSON array
// `[move_sfen, visits]`.
type MoveVisit struct {
	MoveSFEN string
	Visits   uint32
}

func (m MoveVisit) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{m.MoveSFEN, m.Visits})
}

func (m *MoveVisit) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return errors.Wrap(err, "record: decoding move-visit pair")
	}
	if err := json.Unmarshal(pair[0], &m.MoveSFEN); err != nil {
		return errors.Wrap(err, "record: decoding move-visit sfen")
	}
	if err := json.Unmarshal(pair[1], &m.Visits); err != nil {
		return errors.Wrap(err, "record: decoding move-visit count")
	}
	return nil
}

// PlyResult is the training signal captured for one played ply: total child
// visits, the root's Q, and the per-move visit distribution. It marshals as
// the three-element JSON array `[sum_n, q, playouts]`, matching the
// original engine's tuple encoding.
type PlyResult struct {
	SumN     uint32
	Q        float32
	Playouts []MoveVisit
}

func (p PlyResult) MarshalJSON() ([]byte, error) {
	playouts := p.Playouts
	if playouts == nil {
		playouts = []MoveVisit{}
	}
	return json.Marshal([3]interface{}{p.SumN, p.Q, playouts})
}

func (p *PlyResult) UnmarshalJSON(data []byte) error {
	var triple [3]json.RawMessage
	if err := json.Unmarshal(data, &triple); err != nil {
		return errors.Wrap(err, "record: decoding ply result")
	}
	if err := json.Unmarshal(triple[0], &p.SumN); err != nil {
		return errors.Wrap(err, "record: decoding ply result sum_n")
	}
	if err := json.Unmarshal(triple[1], &p.Q); err != nil {
		return errors.Wrap(err, "record: decoding ply result q")
	}
	if err := json.Unmarshal(triple[2], &p.Playouts); err != nil {
		return errors.Wrap(err, "record: decoding ply result playouts")
	}
	return nil
}

// Record is one complete self-play game: the move sequence in SFEN form,
// the per-ply search result used to build policy targets, the game's
// winner (position.White, position.Black, or Draw), and the subset of
// plies to materialize as learning targets (spec.md §6: plies from
// resigned/lost positions, or a fixed stride, may be excluded).
type Record struct {
	SfenKif            []string    `json:"sfen_kif"`
	MCTSResult         []PlyResult `json:"mcts_result"`
	Winner             int         `json:"winner"`
	LearningTargetPlys []int       `json:"learning_target_plys"`
}

// FromJSON decodes a single JSON-lines record, as written by Reservoir's
// append-only log.
func FromJSON(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, errors.Wrap(err, "record: decoding record")
	}
	if len(r.MCTSResult) != len(r.SfenKif) {
		return Record{}, errors.Errorf("record: mcts_result length %d does not match sfen_kif length %d", len(r.MCTSResult), len(r.SfenKif))
	}
	for _, ply := range r.LearningTargetPlys {
		if ply < 0 || ply >= len(r.SfenKif) {
			return Record{}, errors.Errorf("record: learning target ply %d out of range [0,%d)", ply, len(r.SfenKif))
		}
	}
	return r, nil
}

// ToJSON encodes the record as a single JSON-lines entry.
func (r Record) ToJSON() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, errors.Wrap(err, "record: encoding record")
	}
	return data, nil
}

// Value returns the game's outcome from sideToMove's point of view at the
// ply the value target is drawn for (spec.md §6, §4.8 scenario 6): 1 if
// sideToMove won, -1 if it lost, 0 on a draw.
func (r Record) Value(sideToMove position.Color) float32 {
	switch r.Winner {
	case Draw:
		return 0
	case int(sideToMove):
		return 1
	default:
		return -1
	}
}

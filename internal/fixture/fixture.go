// Package fixture provides a tiny, deterministic position.Position
// implementation for exercising mcts, record, and reservoir without a real
// minishogi board: a two-player subtraction game where each move removes 1
// or 2 from a shared counter and the side that cannot move (counter at 0)
// loses. It exists only to give the engine something concrete to search;
// it is not a game anyone plays.
package fixture

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/Nyashiki/minishogilib/position"
)

// Move is one subtraction of Amount (1 or 2) from the counter.
type Move struct {
	Amount int
}

func (m Move) Equal(other position.Move) bool {
	o, ok := other.(Move)
	return ok && o.Amount == m.Amount
}

func (m Move) SFEN() string { return fmt.Sprintf("-%d", m.Amount) }

// PolicyIndex maps Amount 1/2 to index 0/1, well within position.PolicySize.
func (m Move) PolicyIndex() int { return m.Amount - 1 }

func (m Move) IsDrop() bool { return false }

func (m Move) PieceType() position.PieceType { return position.NoPieceType }

type undoEntry struct {
	amount int
	side   position.Color
	last   *Move
}

// Position is a counter starting at Start, capped at MaxPlyValue plies.
type Position struct {
	Start       int
	MaxPlyValue int

	remaining int
	ply       int
	side      position.Color
	lastMove  *Move
	history   []undoEntry
}

// New returns a Position with the conventional start=7, maxPly=40 used by
// this package's tests.
func New() *Position {
	p := &Position{Start: 7, MaxPlyValue: 40}
	p.SetStartPosition()
	return p
}

func (p *Position) SetStartPosition() {
	p.remaining = p.Start
	p.ply = 0
	p.side = position.White
	p.lastMove = nil
	p.history = nil
}

func (p *Position) Clone() position.Position {
	c := &Position{
		Start:       p.Start,
		MaxPlyValue: p.MaxPlyValue,
		remaining:   p.remaining,
		ply:         p.ply,
		side:        p.side,
		history:     append([]undoEntry(nil), p.history...),
	}
	if p.lastMove != nil {
		m := *p.lastMove
		c.lastMove = &m
	}
	return c
}

func (p *Position) DoMove(m position.Move) {
	mv := m.(Move)
	p.history = append(p.history, undoEntry{amount: p.remaining, side: p.side, last: p.lastMove})
	p.remaining -= mv.Amount
	p.ply++
	p.side = p.side.Opponent()
	last := mv
	p.lastMove = &last
}

func (p *Position) UndoMove() {
	n := len(p.history)
	entry := p.history[n-1]
	p.history = p.history[:n-1]
	p.remaining = entry.amount
	p.side = entry.side
	p.lastMove = entry.last
	p.ply--
}

func (p *Position) GenerateMoves() []position.Move {
	if p.remaining <= 0 {
		return nil
	}
	var moves []position.Move
	for _, amount := range []int{1, 2} {
		if amount <= p.remaining {
			moves = append(moves, Move{Amount: amount})
		}
	}
	return moves
}

// IsRepetition always reports no repetition: this game has no cyclic
// states (the counter only decreases).
func (p *Position) IsRepetition() (isRepetition, myCheckRepeat, opCheckRepeat bool) {
	return false, false, false
}

func (p *Position) Ply() int    { return p.ply }
func (p *Position) MaxPly() int { return p.MaxPlyValue }

func (p *Position) SideToMove() position.Color { return p.side }

func (p *Position) LastMove() (position.Move, bool) {
	if p.lastMove == nil {
		return nil, false
	}
	return *p.lastMove, true
}

func (p *Position) SFENToMove(sfen string) (position.Move, error) {
	amount, err := strconv.Atoi(strings.TrimPrefix(sfen, "-"))
	if err != nil {
		return nil, errors.Wrapf(err, "fixture: parsing sfen %q", sfen)
	}
	return Move{Amount: amount}, nil
}

// ToAlphaZeroInput returns a position.NNInputSize-length tensor with the
// normalized remaining count broadcast across every board-square slot of
// the first history-plane channel, zero elsewhere — enough structure for
// tests to assert the inference boundary is wired correctly without
// needing a real encoding.
func (p *Position) ToAlphaZeroInput() []float32 {
	input := make([]float32, position.NNInputSize)
	v := float32(p.remaining) / float32(p.Start)
	for i := 0; i < position.BoardSquares; i++ {
		input[i] = v
	}
	return input
}

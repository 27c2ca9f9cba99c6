package selfplay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nyashiki/minishogilib/internal/fixture"
)

// uniformInferer returns a flat policy over a small, fixed move-index
// space (enough for fixture.Move.PolicyIndex(), which only ever returns 0
// or 1) and a constant value, standing in for a trained network.
type uniformInferer struct {
	closed bool
}

func (u *uniformInferer) Infer(input []float32) (policy []float32, value float32, err error) {
	return make([]float32, 2), 0.5, nil
}

func (u *uniformInferer) Close() error {
	u.closed = true
	return nil
}

func TestPlayGameReachesATerminalPosition(t *testing.T) {
	infer := &uniformInferer{}
	cfg := DefaultConfig()
	cfg.MCTSConf.MemoryGiB = 0.001
	cfg.Simulations = 8
	cfg.TemperaturePlies = 2

	d := NewDriver(infer, cfg)
	pos := fixture.New()
	pos.Start = 4 // short game so the test runs fast
	pos.SetStartPosition()

	rec, err := d.PlayGame(context.Background(), pos, nil)
	require.NoError(t, err)

	assert.NotEmpty(t, rec.SfenKif)
	assert.Equal(t, len(rec.SfenKif), len(rec.MCTSResult))
	assert.Equal(t, len(rec.SfenKif), len(rec.LearningTargetPlys))
	assert.Contains(t, []int{0, 1}, rec.Winner)
}

func TestCloseClosesTheInferer(t *testing.T) {
	infer := &uniformInferer{}
	d := NewDriver(infer, DefaultConfig())

	require.NoError(t, d.Close())
	assert.True(t, infer.closed)
}

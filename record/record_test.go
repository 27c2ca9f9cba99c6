package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nyashiki/minishogilib/position"
)

func sampleRecord() Record {
	return Record{
		SfenKif: []string{"-1", "-2"},
		MCTSResult: []PlyResult{
			{SumN: 10, Q: 0.4, Playouts: []MoveVisit{{MoveSFEN: "-1", Visits: 7}, {MoveSFEN: "-2", Visits: 3}}},
			{SumN: 5, Q: 0.6, Playouts: []MoveVisit{{MoveSFEN: "-1", Visits: 5}}},
		},
		Winner:             0,
		LearningTargetPlys: []int{0, 1},
	}
}

func TestRecordJSONRoundTrip(t *testing.T) {
	original := sampleRecord()

	data, err := original.ToJSON()
	require.NoError(t, err)

	decoded, err := FromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestPlyResultMarshalsAsThreeElementArray(t *testing.T) {
	p := PlyResult{SumN: 3, Q: 0.5, Playouts: []MoveVisit{{MoveSFEN: "-1", Visits: 3}}}
	data, err := p.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `[3,0.5,[["-1",3]]]`, string(data))
}

func TestFromJSONRejectsMismatchedLengths(t *testing.T) {
	_, err := FromJSON([]byte(`{"sfen_kif":["-1","-2"],"mcts_result":[[1,0.0,[]]],"winner":0,"learning_target_plys":[]}`))
	assert.Error(t, err)
}

func TestFromJSONRejectsOutOfRangeLearningTarget(t *testing.T) {
	_, err := FromJSON([]byte(`{"sfen_kif":["-1"],"mcts_result":[[1,0.0,[]]],"winner":0,"learning_target_plys":[5]}`))
	assert.Error(t, err)
}

func TestValueByWinner(t *testing.T) {
	r := sampleRecord()
	assert.Equal(t, float32(1), r.Value(position.White))
	assert.Equal(t, float32(-1), r.Value(position.Black))

	r.Winner = Draw
	assert.Equal(t, float32(0), r.Value(position.White))
}

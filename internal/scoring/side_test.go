package scoring

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSide(t *testing.T) {
	tests := []struct {
		raw  string
		want Side
	}{
		{"a", SideA},
		{"B", SideB},
		{"team1", SideA},
		{"team2", SideB},
		{" 2 ", SideB},
		{"", NoSide},
		{"null", NoSide},
	}
	for _, tt := range tests {
		got, err := ParseSide(tt.raw)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}

	_, err := ParseSide("c")
	assert.Error(t, err)
}

func TestSideOther(t *testing.T) {
	assert.Equal(t, SideB, SideA.Other())
	assert.Equal(t, SideA, SideB.Other())
	assert.Equal(t, NoSide, NoSide.Other())
}

func TestSideJSON(t *testing.T) {
	data, err := json.Marshal(Snapshot{A: []int{6}, B: []int{2}, Winner: SideA})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":[6],"b":[2],"winner":"a"}`, string(data))

	data, err = json.Marshal(Snapshot{A: []int{0}, B: []int{0}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":[0],"b":[0],"winner":null}`, string(data))

	var snap Snapshot
	require.NoError(t, json.Unmarshal([]byte(`{"a":[1],"b":[6],"winner":"team2"}`), &snap))
	assert.Equal(t, SideB, snap.Winner)

	assert.Error(t, json.Unmarshal([]byte(`{"winner":3}`), &snap))
}

func TestPointLabelText(t *testing.T) {
	for _, p := range []PointLabel{Love, Fifteen, Thirty, Forty, Deuce, Advantage, Behind} {
		parsed, err := ParsePointLabel(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, parsed)
	}
	assert.Equal(t, "Ad", Advantage.String())
	assert.Equal(t, "-", Behind.String())

	_, err := ParsePointLabel("50")
	assert.Error(t, err)
}

package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 2, 3}, []float32{2, 4, 6}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, Cosine([]float32{1}, []float32{1, 2}))
	assert.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 1}))
	assert.Equal(t, 0.0, Cosine(nil, nil))
}

func TestRank_OrdersBySimilarity(t *testing.T) {
	candidates := []Candidate{
		{ID: "far", Vector: []float32{0, 1}},
		{ID: "near", Vector: []float32{1, 0.1}},
		{ID: "exact", Vector: []float32{1, 0}},
	}

	got := Rank(candidates, []float32{1, 0}, 2)

	require.Len(t, got, 2)
	assert.Equal(t, "exact", got[0].ID)
	assert.Equal(t, "near", got[1].ID)
	assert.GreaterOrEqual(t, got[0].Score, got[1].Score)
}

func TestRank_TiesKeepInsertionOrder(t *testing.T) {
	candidates := []Candidate{
		{ID: "a", Position: 0, Vector: []float32{1, 1}},
		{ID: "b", Position: 1, Vector: []float32{1, 1}},
		{ID: "c", Position: 2, Vector: []float32{1, 1}},
	}

	got := Rank(candidates, []float32{1, 1}, 3)

	assert.Equal(t, []string{"a", "b", "c"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, 2, got[2].Position)
}

func TestRank_Empty(t *testing.T) {
	assert.Empty(t, Rank(nil, []float32{1}, 4))
	assert.NotNil(t, Rank(nil, []float32{1}, 4))
	assert.Empty(t, Rank([]Candidate{{ID: "a", Vector: []float32{1}}}, []float32{1}, 0))
}

package ai

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 2, 3}

	require.InDelta(t, 1.0, CosineSimilarity(a, a), 1e-6)
	require.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	require.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-6)

	// mismatched dimensions and zero vectors score 0 instead of failing
	require.Zero(t, CosineSimilarity(a, []float32{1, 2}))
	require.Zero(t, CosineSimilarity(a, []float32{0, 0, 0}))
	require.Zero(t, CosineSimilarity(nil, nil))

	// symmetry
	b := []float32{3, 1, 2}
	require.Equal(t, CosineSimilarity(a, b), CosineSimilarity(b, a))
}

func TestFindSimilar(t *testing.T) {
	query := []float32{1, 0}
	candidates := []Candidate{
		{Ref: SourceRef{MessageID: 1}, Content: "exact", Embedding: []float32{1, 0}},
		{Ref: SourceRef{MessageID: 2}, Content: "close", Embedding: []float32{0.9, 0.1}},
		{Ref: SourceRef{MessageID: 3}, Content: "orthogonal", Embedding: []float32{0, 1}},
		{Ref: SourceRef{MessageID: 4}, Content: "opposite", Embedding: []float32{-1, 0}},
		{Ref: SourceRef{MessageID: 5}, Content: "bad dims", Embedding: []float32{1}},
	}

	matches := FindSimilar(query, candidates, 10, 0.5)
	require.Len(t, matches, 2)
	require.Equal(t, int64(1), matches[0].Ref.MessageID)
	require.Equal(t, int64(2), matches[1].Ref.MessageID)
	require.GreaterOrEqual(t, matches[0].Similarity, matches[1].Similarity)
}

func TestFindSimilar_TopKTruncation(t *testing.T) {
	query := []float32{1, 0}
	var candidates []Candidate
	for i := 0; i < 10; i++ {
		candidates = append(candidates, Candidate{
			Ref:       SourceRef{MessageID: int64(i + 1)},
			Embedding: []float32{1, 0},
		})
	}
	matches := FindSimilar(query, candidates, 3, 0.0)
	require.Len(t, matches, 3)
	// stable sort keeps candidate order on ties
	require.Equal(t, int64(1), matches[0].Ref.MessageID)
	require.Equal(t, int64(2), matches[1].Ref.MessageID)
	require.Equal(t, int64(3), matches[2].Ref.MessageID)
}

func TestFindSimilar_EmptyInput(t *testing.T) {
	require.Empty(t, FindSimilar([]float32{1, 0}, nil, 5, 0.5))
}

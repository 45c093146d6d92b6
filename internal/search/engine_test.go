package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aris-rag/aris/internal/errors"
	"github.com/aris-rag/aris/internal/index"
	"github.com/aris-rag/aris/internal/store"
)

type stubEmbedder struct {
	vector []float32
	err    error
}

func (s stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vector
	}
	return out, nil
}

// seededEngine indexes three orthogonal chunks so dense and sparse
// retrieval can be steered independently by the test.
func seededEngine(t *testing.T) *Engine {
	t.Helper()
	manager := index.NewManager(nil, "rag_demo")
	chunks := []store.Chunk{
		{Content: "alpha alpha alpha", Index: 0},
		{Content: "beta beta beta", Index: 1},
		{Content: "gamma gamma gamma", Index: 2},
	}
	vectors := [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	result := manager.Upsert(context.Background(), chunks, vectors)
	require.Equal(t, index.StatusMemory, result.Status)
	return NewEngine(manager, 60, 5)
}

func TestEngine_Dense(t *testing.T) {
	e := seededEngine(t)
	emb := stubEmbedder{vector: []float32{0, 1, 0}}

	results, err := e.Dense(context.Background(), emb, "anything", 2, store.MetricCosine)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "beta beta beta", results[0].Content)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestEngine_Sparse(t *testing.T) {
	e := seededEngine(t)

	results := e.Sparse("gamma", 5, false)
	require.Len(t, results, 1)
	assert.Equal(t, "gamma gamma gamma", results[0].Content)
}

func TestEngine_Hybrid_KeywordEvidencePromotes(t *testing.T) {
	e := seededEngine(t)
	// The embedding points at the alpha chunk while the query text
	// matches the beta chunk, so the two retrievers disagree.
	emb := stubEmbedder{vector: []float32{1, 0, 0}}

	hybrid, err := e.Hybrid(context.Background(), emb, "beta beta", 2, 60)
	require.NoError(t, err)
	assert.Equal(t, 60, hybrid.RRFK)
	require.Len(t, hybrid.Results, 2)

	// beta scores from both lists (1/62 + 1/61), alpha from dense only.
	assert.Equal(t, "beta beta beta", hybrid.Results[0].Content)
	assert.Equal(t, 0.032522, hybrid.Results[0].Score)
	assert.Equal(t, "alpha alpha alpha", hybrid.Results[1].Content)
	assert.Equal(t, 0.016393, hybrid.Results[1].Score)

	assert.Equal(t, "alpha alpha alpha", hybrid.Dense[0].Content)
	require.Len(t, hybrid.Sparse, 1)
	assert.Equal(t, "beta beta beta", hybrid.Sparse[0].Content)
}

func TestEngine_Hybrid_EmbedFailure(t *testing.T) {
	e := seededEngine(t)
	emb := stubEmbedder{err: errors.ConnectionError("gateway unreachable", nil)}

	_, err := e.Hybrid(context.Background(), emb, "beta", 2, 60)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNetworkRefused, errors.GetCode(err))
}

func TestEngine_Compare_Deltas(t *testing.T) {
	e := seededEngine(t)
	emb := stubEmbedder{vector: []float32{1, 0, 0}}

	cmp, err := e.Compare(context.Background(), emb, "beta beta", 2, 60)
	require.NoError(t, err)
	require.Len(t, cmp.Deltas, 2)

	// Fusion lifts beta above the dense winner.
	assert.Equal(t, "PROMOTED", cmp.Deltas[0].Change)
	assert.Equal(t, "beta beta beta", cmp.Deltas[0].Content)
	assert.Equal(t, 1, cmp.Deltas[0].HybridRank)
	assert.Equal(t, 2, cmp.Deltas[0].DenseRank)

	assert.Equal(t, "DEMOTED", cmp.Deltas[1].Change)
	assert.Equal(t, "alpha alpha alpha", cmp.Deltas[1].Content)
	assert.Equal(t, 1, cmp.Deltas[1].DenseRank)
}

func TestEngine_Compare_NewWhenOutsideDenseTopK(t *testing.T) {
	e := seededEngine(t)
	emb := stubEmbedder{vector: []float32{1, 0, 0}}

	cmp, err := e.Compare(context.Background(), emb, "beta beta", 1, 60)
	require.NoError(t, err)
	require.Len(t, cmp.Deltas, 1)
	assert.Equal(t, "NEW", cmp.Deltas[0].Change)
	assert.Zero(t, cmp.Deltas[0].DenseRank)
	assert.Equal(t, "beta beta beta", cmp.Deltas[0].Content)
}

func TestEngine_Defaults(t *testing.T) {
	e := NewEngine(index.NewManager(nil, "rag_demo"), 0, 0)
	assert.Equal(t, 5, e.TopK(0))
	assert.Equal(t, 7, e.TopK(7))
	assert.Equal(t, DefaultRRFConstant, e.RRFK(0))
	assert.Equal(t, 30, e.RRFK(30))
}

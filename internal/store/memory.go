package store

import (
	"math"
	"sort"
)

// MemoryStore is the in-process fallback for the external vector service.
// It is an immutable snapshot of one upsert batch; a new upsert builds a
// new store, so readers never observe a half-replaced index.
type MemoryStore struct {
	chunks  []Chunk
	vectors [][]float32
	dim     int
}

// NewMemoryStore builds a snapshot from parallel chunk and vector slices.
// The caller guarantees len(chunks) == len(vectors) and a uniform vector
// dimension across the batch.
func NewMemoryStore(chunks []Chunk, vectors [][]float32) *MemoryStore {
	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	return &MemoryStore{chunks: chunks, vectors: vectors, dim: dim}
}

// Len returns the number of stored entries.
func (m *MemoryStore) Len() int {
	if m == nil {
		return 0
	}
	return len(m.chunks)
}

// Dimension returns the vector dimension of the stored batch, or 0 when
// the store is empty.
func (m *MemoryStore) Dimension() int {
	if m == nil {
		return 0
	}
	return m.dim
}

// Chunks returns the stored chunks in insertion order.
func (m *MemoryStore) Chunks() []Chunk {
	if m == nil {
		return nil
	}
	return m.chunks
}

// Query scores every stored vector against the query under the requested
// metric and returns at most topK results sorted descending by score,
// ties broken by insertion order. All three metrics share the "higher is
// better" convention: cosine scores normalized dot products, dot scores
// raw dot products, and euclidean distances are converted via 1/(1+d).
// Querying an empty store returns an empty slice, as does a query vector
// whose dimension does not match the stored batch: mismatched queries are
// rejected outright, never truncated or padded.
func (m *MemoryStore) Query(query []float32, topK int, metric Metric) []ScoredChunk {
	if m.Len() == 0 || len(query) != m.dim {
		return []ScoredChunk{}
	}

	scores := make([]float64, len(m.vectors))
	switch metric {
	case MetricDot:
		for i, v := range m.vectors {
			scores[i] = dot(v, query)
		}
	case MetricEuclidean:
		for i, v := range m.vectors {
			scores[i] = 1.0 / (1.0 + l2Distance(v, query))
		}
	default: // cosine
		qn := normalize(query)
		for i, v := range m.vectors {
			scores[i] = dot(normalize(v), qn)
		}
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})
	if topK > 0 && topK < len(order) {
		order = order[:topK]
	}

	results := make([]ScoredChunk, len(order))
	for i, idx := range order {
		results[i] = ScoredChunk{
			Content: m.chunks[idx].Content,
			Index:   m.chunks[idx].Index,
			Score:   scores[idx],
		}
	}
	return results
}

// dot computes the dot product of equal-length vectors.
func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// l2Distance computes the Euclidean distance between equal-length vectors.
func l2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// normalize returns a unit-length copy of v. Zero-norm vectors are
// returned unchanged so cosine scoring never divides by zero.
func normalize(v []float32) []float32 {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return v
	}
	inv := 1.0 / math.Sqrt(sumSquares)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

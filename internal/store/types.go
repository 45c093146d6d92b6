// Package store provides the in-process retrieval primitives: the BM25
// sparse index, the fallback dense vector store, and the tokenizer shared
// between them.
package store

import "fmt"

// Chunk is a retrievable unit of text. Index is the caller-assigned
// ordinal within an upsert batch.
type Chunk struct {
	Content string `json:"content"`
	Index   int    `json:"index"`
}

// ScoredChunk is the result of any retrieval operation. The score range
// depends on the retrieval method: dense similarity, BM25 relevance, or a
// fused RRF score.
type ScoredChunk struct {
	Content string  `json:"content"`
	Index   int     `json:"index"`
	Score   float64 `json:"score"`
}

// Key returns the logical identity of the chunk. Two results with the same
// content and index refer to the same chunk regardless of which retrieval
// path produced them.
func (s ScoredChunk) Key() ChunkKey {
	return ChunkKey{Content: s.Content, Index: s.Index}
}

// ChunkKey identifies a chunk by (content, index).
type ChunkKey struct {
	Content string
	Index   int
}

// Metric selects the similarity metric for dense search.
type Metric string

const (
	MetricCosine    Metric = "cosine"
	MetricDot       Metric = "dot"
	MetricEuclidean Metric = "euclidean"
)

// ParseMetric normalizes a metric name. The frontend historically sends
// "dot_product" for the dot metric; unknown values default to cosine.
func ParseMetric(s string) Metric {
	switch Metric(s) {
	case MetricCosine, MetricDot, MetricEuclidean:
		return Metric(s)
	}
	if s == "dot_product" {
		return MetricDot
	}
	return MetricCosine
}

// ErrDimensionMismatch indicates a query or batch vector whose length does
// not match the active index dimension.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}

// Package search combines dense vector search and sparse BM25 search
// into hybrid retrieval, fusing ranked lists with Reciprocal Rank
// Fusion (RRF).
package search

import (
	"math"
	"sort"

	"github.com/aris-rag/aris/internal/store"
)

// DefaultRRFConstant is the standard RRF smoothing parameter.
// k=60 is empirically validated across domains (used by Azure AI Search,
// OpenSearch, etc.).
const DefaultRRFConstant = 60

// Fuse merges any number of ranked result lists with Reciprocal Rank
// Fusion.
//
// Algorithm: RRF_score(d) = Σ 1 / (k + rank + 1)
//
// where rank is the zero-based position of d in each list it appears in.
// Result identity is the (content, index) pair, so the same chunk
// surfaced by different retrievers accumulates one combined score.
// Output is sorted by fused score descending; ties keep the order in
// which the identity was first encountered across the input lists.
// Sorting uses the raw sums; scores are rounded to 6 decimals only in
// the output, so near-ties keep their true order. If k <= 0,
// DefaultRRFConstant is used.
func Fuse(lists [][]store.ScoredChunk, k int) []store.ScoredChunk {
	if k <= 0 {
		k = DefaultRRFConstant
	}

	type fused struct {
		chunk store.ScoredChunk
		order int
	}
	scores := make(map[store.ChunkKey]*fused)
	seen := 0

	for _, list := range lists {
		for rank, r := range list {
			key := r.Key()
			f, ok := scores[key]
			if !ok {
				f = &fused{
					chunk: store.ScoredChunk{Content: r.Content, Index: r.Index},
					order: seen,
				}
				scores[key] = f
				seen++
			}
			f.chunk.Score += 1.0 / float64(k+rank+1)
		}
	}

	results := make([]fused, 0, len(scores))
	for _, f := range scores {
		results = append(results, *f)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].chunk.Score != results[j].chunk.Score {
			return results[i].chunk.Score > results[j].chunk.Score
		}
		return results[i].order < results[j].order
	})

	out := make([]store.ScoredChunk, len(results))
	for i, f := range results {
		f.chunk.Score = roundScore(f.chunk.Score)
		out[i] = f.chunk
	}
	return out
}

func roundScore(s float64) float64 {
	return math.Round(s*1e6) / 1e6
}

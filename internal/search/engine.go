package search

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/aris-rag/aris/internal/index"
	"github.com/aris-rag/aris/internal/store"
)

// overfetchFactor widens dense and sparse retrieval before fusion so
// RRF has candidates beyond the final cut to promote.
const overfetchFactor = 2

// deltaContentLimit bounds chunk content echoed in delta analysis.
const deltaContentLimit = 200

// Embedder turns query text into vectors. The embedding provider is
// chosen per request, so it is passed in rather than held by the engine.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Engine orchestrates query-time retrieval over the index manager.
type Engine struct {
	index       *index.Manager
	rrfK        int
	defaultTopK int
}

// NewEngine creates a search engine over the given index manager.
func NewEngine(manager *index.Manager, rrfK, defaultTopK int) *Engine {
	if rrfK <= 0 {
		rrfK = DefaultRRFConstant
	}
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	return &Engine{index: manager, rrfK: rrfK, defaultTopK: defaultTopK}
}

// TopK resolves a requested result count, falling back to the
// configured default when the caller did not specify one.
func (e *Engine) TopK(requested int) int {
	if requested <= 0 {
		return e.defaultTopK
	}
	return requested
}

// RRFK resolves a requested fusion constant.
func (e *Engine) RRFK(requested int) int {
	if requested <= 0 {
		return e.rrfK
	}
	return requested
}

func (e *Engine) embedQuery(ctx context.Context, emb Embedder, query string) ([]float32, error) {
	vectors, err := emb.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embed query: no vector returned")
	}
	return vectors[0], nil
}

// Dense embeds the query and runs vector similarity search.
func (e *Engine) Dense(ctx context.Context, emb Embedder, query string, topK int, metric store.Metric) ([]store.ScoredChunk, error) {
	vector, err := e.embedQuery(ctx, emb, query)
	if err != nil {
		return nil, err
	}
	return e.index.SearchDense(ctx, vector, e.TopK(topK), metric), nil
}

// Sparse runs BM25 keyword search. No embedding involved.
func (e *Engine) Sparse(query string, topK int, includeZeroScores bool) []store.ScoredChunk {
	return e.index.SearchSparse(query, e.TopK(topK), includeZeroScores)
}

// HybridResult carries the fused ranking plus the per-retriever lists
// that produced it, each truncated to the requested size.
type HybridResult struct {
	Results []store.ScoredChunk `json:"results"`
	Dense   []store.ScoredChunk `json:"dense"`
	Sparse  []store.ScoredChunk `json:"sparse"`
	RRFK    int                 `json:"rrf_k"`
}

// Hybrid embeds the query, runs dense and sparse retrieval concurrently
// with double-width candidate lists, and fuses them with RRF.
func (e *Engine) Hybrid(ctx context.Context, emb Embedder, query string, topK, rrfK int) (HybridResult, error) {
	topK = e.TopK(topK)
	rrfK = e.RRFK(rrfK)

	vector, err := e.embedQuery(ctx, emb, query)
	if err != nil {
		return HybridResult{}, err
	}

	var dense, sparse []store.ScoredChunk
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dense = e.index.SearchDense(gctx, vector, topK*overfetchFactor, store.MetricCosine)
		return nil
	})
	g.Go(func() error {
		sparse = e.index.SearchSparse(query, topK*overfetchFactor, false)
		return nil
	})
	_ = g.Wait()

	fused := Fuse([][]store.ScoredChunk{dense, sparse}, rrfK)
	return HybridResult{
		Results: truncate(fused, topK),
		Dense:   truncate(dense, topK),
		Sparse:  truncate(sparse, topK),
		RRFK:    rrfK,
	}, nil
}

// Delta describes how fusion moved one result relative to pure dense
// retrieval. DenseRank is 1-indexed; 0 means the chunk was absent from
// the dense top-k.
type Delta struct {
	Content    string  `json:"content"`
	HybridRank int     `json:"hybrid_rank"`
	DenseRank  int     `json:"dense_rank"`
	Change     string  `json:"change"`
	Detail     string  `json:"change_detail"`
	HybrScore  float64 `json:"hybrid_score"`
	DenseScore float64 `json:"dense_score"`
}

// CompareResult is a side-by-side of dense-only and hybrid retrieval.
type CompareResult struct {
	Dense  []store.ScoredChunk `json:"dense_results"`
	Sparse []store.ScoredChunk `json:"sparse_results"`
	Hybrid []store.ScoredChunk `json:"hybrid_results"`
	Deltas []Delta             `json:"delta_analysis"`
	RRFK   int                 `json:"rrf_k"`
}

// Compare runs hybrid retrieval and classifies, for every fused result,
// whether RRF promoted, demoted, kept, or newly surfaced it relative to
// the dense-only ranking.
func (e *Engine) Compare(ctx context.Context, emb Embedder, query string, topK, rrfK int) (CompareResult, error) {
	hybrid, err := e.Hybrid(ctx, emb, query, topK, rrfK)
	if err != nil {
		return CompareResult{}, err
	}

	denseRanks := make(map[string]int, len(hybrid.Dense))
	denseScores := make(map[string]float64, len(hybrid.Dense))
	for i, r := range hybrid.Dense {
		if _, ok := denseRanks[r.Content]; !ok {
			denseRanks[r.Content] = i + 1
			denseScores[r.Content] = r.Score
		}
	}

	deltas := make([]Delta, len(hybrid.Results))
	for i, r := range hybrid.Results {
		hybridRank := i + 1
		denseRank := denseRanks[r.Content]

		var change, detail string
		switch {
		case denseRank == 0:
			change, detail = "NEW", "not in dense top-k"
		case denseRank > hybridRank:
			change, detail = "PROMOTED", fmt.Sprintf("up from #%d to #%d", denseRank, hybridRank)
		case denseRank < hybridRank:
			change, detail = "DEMOTED", fmt.Sprintf("down from #%d to #%d", denseRank, hybridRank)
		default:
			change, detail = "UNCHANGED", fmt.Sprintf("rank #%d", hybridRank)
		}

		deltas[i] = Delta{
			Content:    clip(r.Content, deltaContentLimit),
			HybridRank: hybridRank,
			DenseRank:  denseRank,
			Change:     change,
			Detail:     detail,
			HybrScore:  r.Score,
			DenseScore: denseScores[r.Content],
		}
	}

	return CompareResult{
		Dense:  hybrid.Dense,
		Sparse: hybrid.Sparse,
		Hybrid: hybrid.Results,
		Deltas: deltas,
		RRFK:   hybrid.RRFK,
	}, nil
}

func truncate(results []store.ScoredChunk, topK int) []store.ScoredChunk {
	if len(results) > topK {
		return results[:topK]
	}
	return results
}

func clip(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

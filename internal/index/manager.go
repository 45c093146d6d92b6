// Package index provides the index manager: it orchestrates ingestion
// across the sparse (BM25) and dense indexes, owns the external
// vector-service collection lifecycle, and falls back transparently to
// the in-process store when the external service is unavailable.
package index

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/aris-rag/aris/internal/errors"
	"github.com/aris-rag/aris/internal/qdrant"
	"github.com/aris-rag/aris/internal/store"
)

// StorageStatus reports which backend absorbed an operation.
type StorageStatus string

const (
	// StatusExternal means the external vector service holds the batch.
	StatusExternal StorageStatus = "external"
	// StatusMemory means the in-process fallback store holds the batch.
	StatusMemory StorageStatus = "memory"
	// StatusEmpty means the operation had nothing to do.
	StatusEmpty StorageStatus = "empty"
)

// UpsertResult reports the outcome of an upsert.
type UpsertResult struct {
	Status StorageStatus `json:"status"`
	Count  int           `json:"count"`
}

// ClearResult reports the outcome of a clear.
type ClearResult struct {
	Status  string        `json:"status"`
	Storage StorageStatus `json:"storage"`
}

// state is the process-wide fallback state: the chunk cache, the fitted
// BM25 model, and the in-memory dense store. It is immutable; every
// upsert builds a new bundle and swaps it in atomically so readers never
// observe old chunks with a new BM25 model or vice versa.
type state struct {
	chunks []store.Chunk
	bm25   *store.BM25
	memory *store.MemoryStore
}

func emptyState() *state {
	return &state{memory: store.NewMemoryStore(nil, nil)}
}

// Manager owns backend selection and the fallback state. The external
// client is resolved once at startup; a nil client means memory-only
// mode and is never re-checked per call.
type Manager struct {
	client     *qdrant.Client
	collection string
	retry      errors.RetryConfig

	mu sync.RWMutex
	st *state
}

// NewManager creates an index manager. client may be nil for
// memory-only mode.
func NewManager(client *qdrant.Client, collection string) *Manager {
	return &Manager{
		client:     client,
		collection: collection,
		retry:      errors.DefaultRetryConfig(),
		st:         emptyState(),
	}
}

// External reports whether an external vector service is configured.
func (m *Manager) External() bool {
	return m.client != nil
}

func (m *Manager) snapshot() *state {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st
}

func (m *Manager) swap(st *state) {
	m.mu.Lock()
	m.st = st
	m.mu.Unlock()
}

// EnsureCollection makes sure the external collection exists with the
// given dimension. A collection with a different dimension is destroyed
// and recreated: dimension changes are destructive, not migrating. In
// memory-only mode this is a no-op, since the fallback store has no
// persistent schema.
func (m *Manager) EnsureCollection(ctx context.Context, dimension int, forceRecreate bool) error {
	if m.client == nil {
		return nil
	}

	exists, err := m.client.CollectionExists(ctx, m.collection)
	if err != nil {
		return err
	}

	if !exists {
		return m.client.CreateCollection(ctx, m.collection, dimension)
	}

	existing, err := m.client.CollectionDimension(ctx, m.collection)
	if err != nil {
		return err
	}
	if existing == dimension && !forceRecreate {
		return nil
	}

	slog.Warn("recreating_collection",
		slog.String("collection", m.collection),
		slog.Int("existing_dimension", existing),
		slog.Int("new_dimension", dimension),
		slog.Bool("forced", forceRecreate))
	if err := m.client.DeleteCollection(ctx, m.collection); err != nil {
		return err
	}
	return m.client.CreateCollection(ctx, m.collection, dimension)
}

// Upsert stores a batch of chunks and their vectors, replacing the
// previous index. The BM25 model is always rebuilt in process. The
// external backend is attempted first; any backend failure is logged and
// the batch is routed to the in-process store instead — the operation
// never fails outward.
func (m *Manager) Upsert(ctx context.Context, chunks []store.Chunk, vectors [][]float32) UpsertResult {
	if len(chunks) == 0 || len(vectors) == 0 || len(chunks) != len(vectors) {
		slog.Warn("upsert_degenerate_batch",
			slog.Int("chunks", len(chunks)), slog.Int("vectors", len(vectors)))
		return UpsertResult{Status: StatusEmpty, Count: 0}
	}
	dim := len(vectors[0])
	for _, v := range vectors {
		if len(v) != dim {
			slog.Warn("upsert_nonuniform_vectors",
				slog.Int("expected", dim), slog.Int("got", len(v)))
			return UpsertResult{Status: StatusEmpty, Count: 0}
		}
	}

	slog.Info("upserting_chunks", slog.Int("count", len(chunks)), slog.Int("dimension", dim))

	// Sparse index and chunk cache are rebuilt on every upsert,
	// regardless of which dense backend absorbs the write.
	next := &state{
		chunks: chunks,
		bm25:   store.NewBM25(chunks),
	}

	if m.client != nil {
		err := errors.Retry(ctx, m.retry, func() error {
			if err := m.EnsureCollection(ctx, dim, false); err != nil {
				return err
			}
			return m.client.UpsertPoints(ctx, m.collection, buildPoints(chunks, vectors))
		})
		if err == nil {
			next.memory = store.NewMemoryStore(nil, nil)
			m.swap(next)
			return UpsertResult{Status: StatusExternal, Count: len(chunks)}
		}
		slog.Error("external_upsert_failed_falling_back", slog.String("error", err.Error()))
	}

	next.memory = store.NewMemoryStore(chunks, vectors)
	m.swap(next)
	return UpsertResult{Status: StatusMemory, Count: len(chunks)}
}

// buildPoints assigns each entry a fresh identifier and a payload
// carrying the chunk content and caller-assigned index.
func buildPoints(chunks []store.Chunk, vectors [][]float32) []qdrant.Point {
	points := make([]qdrant.Point, len(chunks))
	for i, c := range chunks {
		points[i] = qdrant.Point{
			ID:     uuid.NewString(),
			Vector: vectors[i],
			Payload: map[string]any{
				"content": c.Content,
				"index":   c.Index,
			},
		}
	}
	return points
}

// SearchDense runs nearest-neighbor search over the active dense
// backend. With the external backend active, its scores are returned
// directly (the collection uses cosine distance and reports similarity).
// Any external failure, whether the service is unreachable or it
// rejected the request, falls back to the in-process store for this
// call; the store that holds the data answers. A mismatched-dimension
// query still yields an empty result, since the fallback store rejects
// it too.
func (m *Manager) SearchDense(ctx context.Context, vector []float32, topK int, metric store.Metric) []store.ScoredChunk {
	if m.client != nil {
		hits, err := errors.RetryWithResult(ctx, m.retry, func() ([]qdrant.ScoredPoint, error) {
			return m.client.Search(ctx, m.collection, vector, topK)
		})
		if err == nil {
			return pointsToResults(hits)
		}
		if isBackendDown(err) {
			slog.Error("external_search_failed_falling_back", slog.String("error", err.Error()))
		} else {
			slog.Warn("external_search_rejected_falling_back", slog.String("error", err.Error()))
		}
	}

	return m.snapshot().memory.Query(vector, topK, metric)
}

// SearchSparse runs BM25 keyword search over the in-process sparse
// index. Querying before any upsert returns an empty result.
func (m *Manager) SearchSparse(query string, topK int, includeZeroScores bool) []store.ScoredChunk {
	return m.snapshot().bm25.Search(query, topK, includeZeroScores)
}

// ListChunks returns the currently indexed chunks: from the in-process
// cache when available, otherwise read back from the external store,
// bounded by limit.
func (m *Manager) ListChunks(ctx context.Context, limit int) []store.Chunk {
	if chunks := m.snapshot().chunks; len(chunks) > 0 {
		return chunks
	}
	if m.client == nil {
		return []store.Chunk{}
	}

	exists, err := m.client.CollectionExists(ctx, m.collection)
	if err != nil || !exists {
		return []store.Chunk{}
	}
	points, err := m.client.Scroll(ctx, m.collection, limit)
	if err != nil {
		slog.Error("external_scroll_failed", slog.String("error", err.Error()))
		return []store.Chunk{}
	}

	chunks := make([]store.Chunk, len(points))
	for i, p := range points {
		chunks[i] = payloadChunk(p.Payload, i)
	}
	return chunks
}

// Clear drops all indexed data from both backends. Idempotent: clearing
// an empty index succeeds.
func (m *Manager) Clear(ctx context.Context) ClearResult {
	m.swap(emptyState())

	if m.client != nil {
		err := errors.Retry(ctx, m.retry, func() error {
			exists, err := m.client.CollectionExists(ctx, m.collection)
			if err != nil {
				return err
			}
			if !exists {
				return nil
			}
			return m.client.DeleteCollection(ctx, m.collection)
		})
		if err == nil {
			return ClearResult{Status: "cleared", Storage: StatusExternal}
		}
		slog.Error("external_clear_failed", slog.String("error", err.Error()))
	}

	return ClearResult{Status: "cleared", Storage: StatusMemory}
}

// pointsToResults converts external search hits into scored chunks.
func pointsToResults(hits []qdrant.ScoredPoint) []store.ScoredChunk {
	results := make([]store.ScoredChunk, len(hits))
	for i, h := range hits {
		c := payloadChunk(h.Payload, i)
		results[i] = store.ScoredChunk{Content: c.Content, Index: c.Index, Score: h.Score}
	}
	return results
}

// payloadChunk reads the chunk content and index out of a point payload.
// JSON numbers arrive as float64.
func payloadChunk(payload map[string]any, fallbackIndex int) store.Chunk {
	c := store.Chunk{Index: fallbackIndex}
	if s, ok := payload["content"].(string); ok {
		c.Content = s
	}
	if f, ok := payload["index"].(float64); ok {
		c.Index = int(f)
	}
	return c
}

// isBackendDown reports whether the error chain contains a retryable
// network error, meaning the external service itself is unreachable
// rather than rejecting the request.
func isBackendDown(err error) bool {
	var se *errors.Error
	if stderrors.As(err, &se) {
		return se.Retryable
	}
	return false
}

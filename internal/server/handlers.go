package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aris-rag/aris/internal/chunk"
	"github.com/aris-rag/aris/internal/data"
	"github.com/aris-rag/aris/internal/embed"
	"github.com/aris-rag/aris/internal/errors"
	"github.com/aris-rag/aris/internal/llm"
	"github.com/aris-rag/aris/internal/search"
	"github.com/aris-rag/aris/internal/store"
)

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to the ARIS retrieval API"})
}

// rankedResult is the wire shape for one search hit. Text duplicates
// Content for older frontend builds.
type rankedResult struct {
	Text    string  `json:"text"`
	Score   float64 `json:"score"`
	Content string  `json:"content"`
	Rank    int     `json:"rank"`
	Index   int     `json:"index"`
}

func ranked(results []store.ScoredChunk) []rankedResult {
	out := make([]rankedResult, len(results))
	for i, r := range results {
		out[i] = rankedResult{
			Text:    r.Content,
			Score:   r.Score,
			Content: r.Content,
			Rank:    i + 1,
			Index:   r.Index,
		}
	}
	return out
}

// statusFor maps pipeline errors to HTTP statuses: timeouts to 504,
// unreachable backends to 503, bad input to 400, everything else 500.
func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeNetworkTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrCodeNetworkRefused, errors.ErrCodeBackendUnavailable:
		return http.StatusServiceUnavailable
	case errors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"detail": err.Error()})
}

// ---- chunking ----

type chunkRequest struct {
	Text         string `json:"text"`
	DatasetID    string `json:"dataset_id"`
	Trap         bool   `json:"trap"`
	AllDatasets  bool   `json:"all_datasets"`
	Strategy     string `json:"strategy"`
	ChunkSize    int    `json:"chunk_size"`
	ChunkOverlap int    `json:"chunk_overlap"`
}

func (s *Server) handleListDatasets(c *gin.Context) {
	preloaded := gin.H{}
	for id, d := range data.Datasets() {
		preloaded[id] = gin.H{"name": d.Name, "description": d.Description}
	}
	trap := data.TrapDataset()
	c.JSON(http.StatusOK, gin.H{
		"preloaded": preloaded,
		"trap": gin.H{
			"name":        trap.Name,
			"description": trap.Description,
			"query":       trap.Query,
		},
		"combined": gin.H{
			"name":        "All Demo Datasets",
			"description": "All preloaded datasets combined for comprehensive demonstration",
		},
	})
}

func (s *Server) handleChunk(c *gin.Context) {
	var req chunkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body: " + err.Error()})
		return
	}
	if req.ChunkSize <= 0 {
		req.ChunkSize = chunk.DefaultChunkSize
	}
	if req.ChunkOverlap < 0 {
		req.ChunkOverlap = chunk.DefaultChunkOverlap
	}

	var text, source string
	switch {
	case req.AllDatasets:
		text, source = data.CombinedText(), "all_datasets"
	case req.Trap:
		text, source = data.TrapText(), "trap"
	case req.DatasetID != "":
		text, source = data.DatasetText(req.DatasetID), req.DatasetID
		if text == "" {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Unknown dataset_id: " + req.DatasetID})
			return
		}
	case req.Text != "":
		text, source = req.Text, "custom"
	default:
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Provide one of: text, dataset_id, trap=true, or all_datasets=true"})
		return
	}

	strategy := chunk.ParseStrategy(req.Strategy)
	chunks := chunk.New(strategy, req.ChunkSize, req.ChunkOverlap).Split(text)

	c.JSON(http.StatusOK, gin.H{
		"chunks":        chunks,
		"strategy":      string(strategy),
		"chunk_size":    req.ChunkSize,
		"chunk_overlap": req.ChunkOverlap,
		"source":        source,
	})
}

// ---- embeddings ----

type embedRequest struct {
	Texts   []string `json:"texts"`
	Chunks  []string `json:"chunks"`
	Model   string   `json:"model"`
	ModelID string   `json:"model_id"`
}

func (s *Server) handleListModels(c *gin.Context) {
	models := make([]gin.H, 0, len(embed.Models()))
	dimensions := gin.H{}
	for _, m := range embed.Models() {
		models = append(models, gin.H{
			"id":        m.ID,
			"dimension": m.Dimension,
			"provider":  m.Provider,
			"label":     fmt.Sprintf("%s (%dd)", m.Provider, m.Dimension),
		})
		dimensions[m.ID] = m.Dimension
	}
	c.JSON(http.StatusOK, gin.H{"models": models, "dimensions": dimensions})
}

func (s *Server) handleEmbed(c *gin.Context) {
	var req embedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body: " + err.Error()})
		return
	}
	texts := req.Texts
	if len(texts) == 0 {
		texts = req.Chunks
	}
	model := req.ModelID
	if model == "" {
		model = req.Model
	}
	model = s.registry.Resolve(model)

	embedder, err := s.registry.Embedder(model)
	if err != nil {
		abortWithError(c, err)
		return
	}
	vectors, err := embedder.EmbedBatch(c.Request.Context(), texts)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"vectors":   vectors,
		"dimension": embedder.Dimensions(),
		"model":     model,
	})
}

// ---- search ----

type upsertRequest struct {
	Chunks []store.Chunk `json:"chunks"`
	Model  string        `json:"model"`
}

func (s *Server) handleUpsert(c *gin.Context) {
	var req upsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body: " + err.Error()})
		return
	}
	if len(req.Chunks) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "chunks cannot be empty"})
		return
	}

	embedder, err := s.registry.Embedder(req.Model)
	if err != nil {
		abortWithError(c, err)
		return
	}
	texts := make([]string, len(req.Chunks))
	for i, ch := range req.Chunks {
		texts[i] = ch.Content
	}
	vectors, err := embedder.EmbedBatch(c.Request.Context(), texts)
	if err != nil {
		abortWithError(c, err)
		return
	}

	result := s.manager.Upsert(c.Request.Context(), req.Chunks, vectors)
	c.JSON(http.StatusOK, result)
}

type searchRequest struct {
	Query  string `json:"query"`
	TopK   int    `json:"top_k"`
	Limit  int    `json:"limit"`
	Metric string `json:"metric"`
	Model  string `json:"model"`
	RRFK   int    `json:"rrf_k"`
}

func (r searchRequest) topK() int {
	if r.TopK > 0 {
		return r.TopK
	}
	return r.Limit
}

func (s *Server) handleDenseSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body: " + err.Error()})
		return
	}
	metric := store.ParseMetric(req.Metric)

	embedder, err := s.registry.Embedder(req.Model)
	if err != nil {
		abortWithError(c, err)
		return
	}
	results, err := s.engine.Dense(c.Request.Context(), embedder, req.Query, req.topK(), metric)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": ranked(results),
		"query":   req.Query,
		"metric":  string(metric),
	})
}

func (s *Server) handleSparseSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body: " + err.Error()})
		return
	}
	results := s.engine.Sparse(req.Query, req.topK(), false)
	c.JSON(http.StatusOK, gin.H{"results": ranked(results), "query": req.Query})
}

func (s *Server) handleHybridSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body: " + err.Error()})
		return
	}

	embedder, err := s.registry.Embedder(req.Model)
	if err != nil {
		abortWithError(c, err)
		return
	}
	hybrid, err := s.engine.Hybrid(c.Request.Context(), embedder, req.Query, req.topK(), req.RRFK)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": ranked(hybrid.Results),
		"dense":   ranked(hybrid.Dense),
		"sparse":  ranked(hybrid.Sparse),
		"query":   req.Query,
		"rrf_k":   hybrid.RRFK,
	})
}

func (s *Server) handleCompareSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body: " + err.Error()})
		return
	}

	embedder, err := s.registry.Embedder(req.Model)
	if err != nil {
		abortWithError(c, err)
		return
	}
	cmp, err := s.engine.Compare(c.Request.Context(), embedder, req.Query, req.topK(), req.RRFK)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":          req.Query,
		"dense_results":  ranked(cmp.Dense),
		"sparse_results": ranked(cmp.Sparse),
		"hybrid_results": ranked(cmp.Hybrid),
		"delta_analysis": cmp.Deltas,
		"explanation": gin.H{
			"rrf_k":   cmp.RRFK,
			"formula": "RRF_score = sum(1 / (k + rank))",
			"benefit": "RRF combines semantic understanding (dense) with keyword matching (sparse) to improve relevance.",
		},
	})
}

func (s *Server) handleListChunks(c *gin.Context) {
	chunks := s.manager.ListChunks(c.Request.Context(), 1000)
	c.JSON(http.StatusOK, gin.H{"chunks": chunks})
}

func (s *Server) handleClear(c *gin.Context) {
	c.JSON(http.StatusOK, s.manager.Clear(c.Request.Context()))
}

// ---- RAG ----

type ragRequest struct {
	Query             string `json:"query"`
	SearchType        string `json:"search_type"`
	Model             string `json:"model"`
	FormatStyle       string `json:"format_style"`
	TopK              int    `json:"top_k"`
	IncludeComparison bool   `json:"include_comparison"`
}

func (s *Server) handleRAGAnswer(c *gin.Context) {
	var req ragRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body: " + err.Error()})
		return
	}
	if req.SearchType == "" {
		req.SearchType = "hybrid"
	}
	if req.FormatStyle == "" {
		req.FormatStyle = llm.FormatIntelligenceReport
	}
	topK := s.engine.TopK(req.TopK)

	embedder, err := s.registry.Embedder(req.Model)
	if err != nil {
		abortWithError(c, err)
		return
	}

	var sources, dense []store.ScoredChunk
	switch req.SearchType {
	case "dense":
		sources, err = s.engine.Dense(c.Request.Context(), embedder, req.Query, topK, store.MetricCosine)
	case "sparse":
		sources = s.engine.Sparse(req.Query, topK, false)
	default:
		req.SearchType = "hybrid"
		var hybrid search.HybridResult
		hybrid, err = s.engine.Hybrid(c.Request.Context(), embedder, req.Query, topK, 0)
		sources, dense = hybrid.Results, hybrid.Dense
	}
	if err != nil {
		abortWithError(c, err)
		return
	}

	if len(sources) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"answer":       "INSUFFICIENT DATA: No relevant sources found in the knowledge base. Please ensure documents have been indexed.",
			"sources":      []rankedResult{},
			"search_type":  req.SearchType,
			"confidence":   "LOW",
			"model":        req.Model,
			"format_style": req.FormatStyle,
		})
		return
	}

	answer := s.llm.GenerateAnswer(c.Request.Context(), req.Query, sources, req.FormatStyle)

	response := gin.H{
		"answer":       answer.Answer,
		"sources":      ranked(sources),
		"search_type":  req.SearchType,
		"confidence":   answer.Confidence,
		"model":        req.Model,
		"format_style": answer.FormatStyle,
		"tokens_used":  answer.TokensUsed,
	}
	if req.IncludeComparison && req.SearchType == "hybrid" {
		response["comparison"] = s.llm.GenerateComparison(c.Request.Context(), req.Query, dense, sources)
	}
	c.JSON(http.StatusOK, response)
}

package embed

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/aris-rag/aris/internal/errors"
)

// openAIEmbedder calls an OpenAI-compatible /embeddings endpoint. Both
// the Azure APIM gateway and NVIDIA's hosted models speak this shape;
// only base URL and auth headers differ.
type openAIEmbedder struct {
	httpClient *http.Client
	baseURL    string
	modelID    string
	modelName  string
	dimensions int
	headers    map[string]string
	retry      errors.RetryConfig
}

// ProviderConfig describes one OpenAI-compatible embedding endpoint.
type ProviderConfig struct {
	BaseURL string
	// ModelID is the public identifier callers select the model by.
	ModelID string
	// ModelName is what the endpoint expects in the request body, which
	// for Azure deployments differs from the public id.
	ModelName  string
	Dimensions int
	Headers    map[string]string
	Timeout    time.Duration
}

func newOpenAIEmbedder(cfg ProviderConfig) *openAIEmbedder {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	retry := errors.DefaultRetryConfig()
	retry.MaxRetries = DefaultMaxRetries
	return &openAIEmbedder{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		modelID:    cfg.ModelID,
		modelName:  cfg.ModelName,
		dimensions: cfg.Dimensions,
		headers:    cfg.Headers,
		retry:      retry,
	}
}

func (e *openAIEmbedder) Dimensions() int   { return e.dimensions }
func (e *openAIEmbedder) ModelName() string { return e.modelID }

// EmbedBatch embeds all texts in one request, retrying transient
// failures with backoff.
func (e *openAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	return errors.RetryWithResult(ctx, e.retry, func() ([][]float32, error) {
		return e.embed(ctx, texts)
	})
}

func (e *openAIEmbedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody, err := json.Marshal(map[string]any{
		"model": e.modelName,
		"input": texts,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range e.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(e.modelID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.ConnectionError("read embedding response: "+err.Error(), err)
	}
	if resp.StatusCode >= 400 {
		msg := fmt.Sprintf("embedding request failed: status %d: %s", resp.StatusCode, truncateBody(respBody))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, errors.UnavailableError(msg, nil)
		}
		return nil, errors.ValidationError(msg, nil)
	}

	var response struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, fmt.Errorf("parse embedding response: %w", err)
	}
	if len(response.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d texts, got %d vectors", len(texts), len(response.Data))
	}

	// Providers may return entries out of order; index is authoritative.
	vectors := make([][]float32, len(texts))
	for _, d := range response.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}

	slog.Debug("texts_embedded",
		slog.String("model", e.modelID),
		slog.Int("count", len(texts)),
		slog.Duration("elapsed", time.Since(start)))
	return vectors, nil
}

func classifyTransportError(model string, err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.TimeoutError("embedding request timed out: "+model, err)
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.TimeoutError("embedding request timed out: "+model, err)
	}
	return errors.ConnectionError("embedding request failed: "+err.Error(), err)
}

func truncateBody(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}

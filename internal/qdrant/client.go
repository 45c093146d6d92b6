// Package qdrant is a minimal REST client for the Qdrant vector-search
// service, covering the operations the index manager needs: collection
// lifecycle, point upsert, nearest-neighbor search, and scroll.
package qdrant

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
	"time"

	"github.com/aris-rag/aris/internal/errors"
)

// Config holds the connection parameters, resolved once at process start.
type Config struct {
	// BaseURL is the HTTP base of the Qdrant instance, without trailing
	// slash (e.g. http://localhost:6333 or a cloud cluster URL).
	BaseURL string
	// APIKey is the cloud API key; empty for unauthenticated instances.
	APIKey string
	// Timeout bounds every request. Zero means DefaultTimeout.
	Timeout time.Duration
}

// DefaultTimeout bounds a single Qdrant request. External calls must
// never hang: on timeout the caller falls back to the in-process store.
const DefaultTimeout = 10 * time.Second

// Client talks to one Qdrant instance.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a Qdrant client. It does not probe connectivity;
// the first operation will surface any reachability problem as a typed
// network error.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Point is a vector point with its payload.
type Point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload,omitempty"`
}

// ScoredPoint is a search hit.
type ScoredPoint struct {
	ID      string         `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload,omitempty"`
}

// HealthCheck verifies the instance responds. The root endpoint works
// across Qdrant versions.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodGet, "/", nil)
	return err
}

// CollectionExists reports whether the collection exists. A 404 is a
// definitive "no"; network failures are returned as errors rather than
// being conflated with absence.
func (c *Client) CollectionExists(ctx context.Context, name string) (bool, error) {
	_, err := c.doRequest(ctx, http.MethodGet, "/collections/"+name, nil)
	if err != nil {
		var se *statusError
		if stderrors.As(err, &se) && se.status == http.StatusNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CollectionDimension returns the configured vector size of an existing
// collection.
func (c *Client) CollectionDimension(ctx context.Context, name string) (int, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/collections/"+name, nil)
	if err != nil {
		return 0, err
	}

	var response struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return 0, fmt.Errorf("parse collection info: %w", err)
	}
	return response.Result.Config.Params.Vectors.Size, nil
}

// CreateCollection creates a collection with the given vector size and
// cosine distance.
func (c *Client) CreateCollection(ctx context.Context, name string, size int) error {
	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     size,
			"distance": "Cosine",
		},
	}
	_, err := c.doRequest(ctx, http.MethodPut, "/collections/"+name, reqBody)
	if err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	slog.Info("qdrant_collection_created", slog.String("collection", name), slog.Int("dimension", size))
	return nil
}

// DeleteCollection deletes a collection.
func (c *Client) DeleteCollection(ctx context.Context, name string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/collections/"+name, nil)
	if err != nil {
		return fmt.Errorf("delete collection %s: %w", name, err)
	}
	slog.Info("qdrant_collection_deleted", slog.String("collection", name))
	return nil
}

// UpsertPoints inserts or updates points in a collection.
func (c *Client) UpsertPoints(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	reqBody := map[string]any{"points": points}
	_, err := c.doRequest(ctx, http.MethodPut, "/collections/"+collection+"/points", reqBody)
	if err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	slog.Debug("qdrant_points_upserted",
		slog.String("collection", collection), slog.Int("count", len(points)))
	return nil
}

// Search runs a nearest-neighbor query and returns scored hits with
// payloads.
func (c *Client) Search(ctx context.Context, collection string, vector []float32, limit int) ([]ScoredPoint, error) {
	reqBody := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	body, err := c.doRequest(ctx, http.MethodPost, "/collections/"+collection+"/points/search", reqBody)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	var response struct {
		Result []ScoredPoint `json:"result"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}
	return response.Result, nil
}

// Scroll reads up to limit points with payloads, for index read-back.
func (c *Client) Scroll(ctx context.Context, collection string, limit int) ([]Point, error) {
	reqBody := map[string]any{
		"limit":        limit,
		"with_payload": true,
	}
	body, err := c.doRequest(ctx, http.MethodPost, "/collections/"+collection+"/points/scroll", reqBody)
	if err != nil {
		return nil, fmt.Errorf("scroll: %w", err)
	}

	var response struct {
		Result struct {
			Points []Point `json:"points"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("parse scroll response: %w", err)
	}
	return response.Result.Points, nil
}

// statusError carries the HTTP status of a failed request so callers can
// tell a 404 apart from a genuine failure.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.status, e.body)
}

// doRequest performs one HTTP round trip and classifies failures into
// the typed network errors the index manager keys its fallback on.
func (c *Client) doRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("api-key", c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.ConnectionError("read response: "+err.Error(), err)
	}

	if resp.StatusCode >= 400 {
		se := &statusError{status: resp.StatusCode, body: string(respBody)}
		if resp.StatusCode >= 500 {
			return nil, errors.UnavailableError(se.Error(), se)
		}
		return nil, se
	}

	return respBody, nil
}

// classifyTransportError maps transport failures to timeout vs connection
// errors so callers can decide on retry vs fallback.
func classifyTransportError(err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.TimeoutError("qdrant request timed out", err)
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.TimeoutError("qdrant request timed out", err)
	}
	return errors.ConnectionError("qdrant request failed: "+err.Error(), err)
}

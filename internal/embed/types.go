// Package embed generates text embeddings through OpenAI-compatible
// HTTP providers, with an LRU cache in front and a registry mapping
// model ids to providers and dimensions.
package embed

import (
	"context"
	"time"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// EmbedBatch embeds texts in request order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the vector size this model produces.
	Dimensions() int
	// ModelName returns the model identifier.
	ModelName() string
}

const (
	// DefaultTimeout bounds one embedding request. Gateway-hosted models
	// can take well over a minute on large batches.
	DefaultTimeout = 120 * time.Second

	// DefaultMaxRetries is the number of retry attempts after the first
	// failed request.
	DefaultMaxRetries = 2
)

package embed

import (
	"strings"
	"sync"
	"time"

	"github.com/aris-rag/aris/internal/config"
	"github.com/aris-rag/aris/internal/errors"
)

// Model identifiers exposed by the API.
const (
	ModelAzureOpenAI = "azure-openai"
	ModelCohere      = "cohere-embed-english-v3"
	ModelNvidia      = "nvidia-nv-embed-v1"

	// DefaultModel is used when a request names no model or an unknown one.
	DefaultModel = ModelAzureOpenAI
)

// ModelInfo describes one selectable embedding model.
type ModelInfo struct {
	ID        string `json:"id"`
	Provider  string `json:"provider"`
	Dimension int    `json:"dimension"`
}

// Models lists the known embedding models in a stable order.
func Models() []ModelInfo {
	return []ModelInfo{
		{ID: ModelAzureOpenAI, Provider: "Azure OpenAI (APIM)", Dimension: 1536},
		{ID: ModelCohere, Provider: "Cohere (Bedrock)", Dimension: 1024},
		{ID: ModelNvidia, Provider: "NVIDIA", Dimension: 4096},
	}
}

// Dimension returns the vector size of a model id, 0 for unknown ids.
func Dimension(modelID string) int {
	for _, m := range Models() {
		if m.ID == modelID {
			return m.Dimension
		}
	}
	return 0
}

// Registry builds cached embedders from configuration, keyed by model
// id. Embedders are constructed once and reused so their caches survive
// across requests.
type Registry struct {
	apim       config.APIMConfig
	embeddings config.EmbeddingsConfig

	mu        sync.Mutex
	embedders map[string]Embedder
}

// NewRegistry creates a registry over the configured providers.
func NewRegistry(apim config.APIMConfig, embeddings config.EmbeddingsConfig) *Registry {
	return &Registry{
		apim:       apim,
		embeddings: embeddings,
		embedders:  make(map[string]Embedder),
	}
}

// Resolve maps a requested model id to a known one, falling back to the
// default for empty or unknown values.
func (r *Registry) Resolve(modelID string) string {
	modelID = strings.TrimSpace(modelID)
	for _, m := range Models() {
		if m.ID == modelID {
			return modelID
		}
	}
	return DefaultModel
}

// Embedder returns the cached embedder for a model id, constructing it
// on first use. Models whose credentials are missing return a config
// error. Safe for concurrent use; request handlers call this directly.
func (r *Registry) Embedder(modelID string) (Embedder, error) {
	modelID = r.Resolve(modelID)

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.embedders[modelID]; ok {
		return e, nil
	}

	e, err := r.build(modelID)
	if err != nil {
		return nil, err
	}
	cached := NewCachedEmbedder(e, r.embeddings.CacheSize)
	r.embedders[modelID] = cached
	return cached, nil
}

func (r *Registry) build(modelID string) (Embedder, error) {
	timeout := time.Duration(r.embeddings.TimeoutSeconds) * time.Second

	switch modelID {
	case ModelAzureOpenAI:
		if !r.apim.Configured() {
			return nil, errors.ConfigError("apim base_url and subscription_key must be set for azure-openai embeddings", nil)
		}
		return newOpenAIEmbedder(ProviderConfig{
			BaseURL:    r.apim.BaseURL,
			ModelID:    ModelAzureOpenAI,
			ModelName:  r.embeddings.DeploymentName,
			Dimensions: Dimension(ModelAzureOpenAI),
			Headers: map[string]string{
				"Ocp-Apim-Subscription-Key": r.apim.SubscriptionKey,
				"api-key":                   r.apim.SubscriptionKey,
			},
			Timeout: timeout,
		}), nil

	case ModelNvidia:
		if r.embeddings.NvidiaAPIKey == "" {
			return nil, errors.ConfigError("nvidia_api_key must be set for nvidia embeddings", nil)
		}
		return newOpenAIEmbedder(ProviderConfig{
			BaseURL:    r.embeddings.NvidiaBaseURL,
			ModelID:    ModelNvidia,
			ModelName:  "nvidia/nv-embed-v1",
			Dimensions: Dimension(ModelNvidia),
			Headers: map[string]string{
				"Authorization": "Bearer " + r.embeddings.NvidiaAPIKey,
			},
			Timeout: timeout,
		}), nil

	case ModelCohere:
		// The Bedrock-hosted Cohere model needs SigV4 request signing,
		// which this service does not carry.
		return nil, errors.ConfigError("cohere-embed-english-v3 is not available in this deployment", nil)

	default:
		return nil, errors.ValidationError("unknown embedding model: "+modelID, nil)
	}
}

package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aris-rag/aris/internal/config"
	"github.com/aris-rag/aris/internal/errors"
)

func embedHandler(t *testing.T, requests *int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		*requests++
		assert.Equal(t, "/embeddings", r.URL.Path)

		var body struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		data := make([]map[string]any, len(body.Input))
		for i, text := range body.Input {
			data[i] = map[string]any{
				"index":     i,
				"embedding": []float32{float32(len(text)), 1, 0},
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}
}

func TestOpenAIEmbedder_EmbedBatch(t *testing.T) {
	var requests int
	srv := httptest.NewServer(embedHandler(t, &requests))
	defer srv.Close()

	e := newOpenAIEmbedder(ProviderConfig{
		BaseURL:    srv.URL,
		ModelID:    ModelAzureOpenAI,
		ModelName:  "embedding",
		Dimensions: 3,
	})

	vectors, err := e.EmbedBatch(context.Background(), []string{"ab", "abcd"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, float32(2), vectors[0][0])
	assert.Equal(t, float32(4), vectors[1][0])
	assert.Equal(t, 3, e.Dimensions())
}

func TestOpenAIEmbedder_EmptyBatchSkipsRequest(t *testing.T) {
	var requests int
	srv := httptest.NewServer(embedHandler(t, &requests))
	defer srv.Close()

	e := newOpenAIEmbedder(ProviderConfig{BaseURL: srv.URL, ModelID: ModelNvidia})
	vectors, err := e.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
	assert.Zero(t, requests)
}

func TestOpenAIEmbedder_SendsAuthHeaders(t *testing.T) {
	var gotSubscription, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSubscription = r.Header.Get("Ocp-Apim-Subscription-Key")
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1]}]}`))
	}))
	defer srv.Close()

	e := newOpenAIEmbedder(ProviderConfig{
		BaseURL: srv.URL,
		ModelID: ModelAzureOpenAI,
		Headers: map[string]string{
			"Ocp-Apim-Subscription-Key": "sub-key",
			"Authorization":             "Bearer tok",
		},
	})
	_, err := e.EmbedBatch(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, "sub-key", gotSubscription)
	assert.Equal(t, "Bearer tok", gotAuth)
}

func TestOpenAIEmbedder_ClientErrorIsNotRetried(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		http.Error(w, "bad input", http.StatusBadRequest)
	}))
	defer srv.Close()

	e := newOpenAIEmbedder(ProviderConfig{BaseURL: srv.URL, ModelID: ModelAzureOpenAI})
	_, err := e.EmbedBatch(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))
	assert.Equal(t, 1, requests)
}

func TestOpenAIEmbedder_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	e := newOpenAIEmbedder(ProviderConfig{BaseURL: srv.URL, ModelID: ModelAzureOpenAI})
	e.retry = errors.RetryConfig{MaxRetries: 0, InitialDelay: 1, MaxDelay: 1, Multiplier: 1}

	_, err := e.EmbedBatch(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNetworkRefused, errors.GetCode(err))
}

func TestCachedEmbedder_ReusesVectors(t *testing.T) {
	var requests int
	srv := httptest.NewServer(embedHandler(t, &requests))
	defer srv.Close()

	inner := newOpenAIEmbedder(ProviderConfig{BaseURL: srv.URL, ModelID: ModelAzureOpenAI})
	cached := NewCachedEmbedder(inner, 10)

	first, err := cached.EmbedBatch(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	assert.Equal(t, 1, requests)

	// alpha is served from cache, only gamma hits the provider.
	second, err := cached.EmbedBatch(context.Background(), []string{"alpha", "gamma"})
	require.NoError(t, err)
	assert.Equal(t, 2, requests)
	assert.Equal(t, first[0], second[0])

	_, err = cached.EmbedBatch(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	assert.Equal(t, 2, requests)
}

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry(config.APIMConfig{}, config.EmbeddingsConfig{})
	assert.Equal(t, ModelAzureOpenAI, r.Resolve(""))
	assert.Equal(t, ModelAzureOpenAI, r.Resolve("made-up"))
	assert.Equal(t, ModelNvidia, r.Resolve(ModelNvidia))
}

func TestRegistry_MissingCredentials(t *testing.T) {
	r := NewRegistry(config.APIMConfig{}, config.EmbeddingsConfig{})

	_, err := r.Embedder(ModelAzureOpenAI)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetCode(err))

	_, err = r.Embedder(ModelNvidia)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetCode(err))
}

func TestRegistry_CohereIsUnavailable(t *testing.T) {
	r := NewRegistry(
		config.APIMConfig{BaseURL: "https://apim.example", SubscriptionKey: "k"},
		config.EmbeddingsConfig{NvidiaAPIKey: "k"},
	)
	_, err := r.Embedder(ModelCohere)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetCode(err))
}

func TestRegistry_CachesEmbedderInstances(t *testing.T) {
	r := NewRegistry(
		config.APIMConfig{BaseURL: "https://apim.example", SubscriptionKey: "k"},
		config.EmbeddingsConfig{DeploymentName: "embedding"},
	)

	first, err := r.Embedder(ModelAzureOpenAI)
	require.NoError(t, err)
	second, err := r.Embedder(ModelAzureOpenAI)
	require.NoError(t, err)
	assert.Same(t, first.(*CachedEmbedder), second.(*CachedEmbedder))
}

func TestRegistry_ConcurrentFirstUse(t *testing.T) {
	r := NewRegistry(
		config.APIMConfig{BaseURL: "https://apim.example", SubscriptionKey: "k"},
		config.EmbeddingsConfig{DeploymentName: "embedding", NvidiaAPIKey: "k"},
	)

	// Hammer the lazy construction path from many goroutines at once, the
	// way simultaneous first requests hit it.
	models := []string{ModelAzureOpenAI, ModelNvidia}
	got := make([]Embedder, 50)
	var wg sync.WaitGroup
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, err := r.Embedder(models[i%2])
			assert.NoError(t, err)
			got[i] = e
		}(i)
	}
	wg.Wait()

	// Every goroutine got the same instance for its model.
	for i := 2; i < len(got); i++ {
		assert.Same(t, got[i%2], got[i])
	}
}

func TestModels(t *testing.T) {
	assert.Equal(t, 1536, Dimension(ModelAzureOpenAI))
	assert.Equal(t, 1024, Dimension(ModelCohere))
	assert.Equal(t, 4096, Dimension(ModelNvidia))
	assert.Zero(t, Dimension("nope"))
}

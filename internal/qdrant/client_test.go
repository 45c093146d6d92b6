package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aris-rag/aris/internal/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL})
}

func TestCollectionExists(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/collections/present":
			_, _ = w.Write([]byte(`{"result": {}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	exists, err := client.CollectionExists(context.Background(), "present")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = client.CollectionExists(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCollectionExists_NetworkErrorIsNotAbsence(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // connection refused from now on
	client := NewClient(Config{BaseURL: srv.URL})

	_, err := client.CollectionExists(context.Background(), "any")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNetworkRefused, errors.GetCode(err))
}

func TestCollectionDimension(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/rag_demo", r.URL.Path)
		_, _ = w.Write([]byte(`{"result":{"config":{"params":{"vectors":{"size":1536,"distance":"Cosine"}}}}}`))
	})

	dim, err := client.CollectionDimension(context.Background(), "rag_demo")
	require.NoError(t, err)
	assert.Equal(t, 1536, dim)
}

func TestCreateCollection_SendsCosineConfig(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"result": true}`))
	})

	require.NoError(t, client.CreateCollection(context.Background(), "rag_demo", 3))

	vectors := got["vectors"].(map[string]any)
	assert.Equal(t, float64(3), vectors["size"])
	assert.Equal(t, "Cosine", vectors["distance"])
}

func TestUpsertPoints_EmptyIsNoop(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	require.NoError(t, client.UpsertPoints(context.Background(), "rag_demo", nil))
	assert.False(t, called)
}

func TestSearch_ParsesScoredPoints(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/rag_demo/points/search", r.URL.Path)
		_, _ = w.Write([]byte(`{"result":[
			{"id":"a","score":0.92,"payload":{"content":"hello","index":0}},
			{"id":"b","score":0.41,"payload":{"content":"world","index":1}}
		]}`))
	})

	hits, err := client.Search(context.Background(), "rag_demo", []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 0.92, hits[0].Score)
	assert.Equal(t, "hello", hits[0].Payload["content"])
}

func TestDoRequest_ServerErrorIsRetryable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	err := client.CreateCollection(context.Background(), "rag_demo", 3)
	require.Error(t, err)
	assert.True(t, errors.IsRetryable(unwrapStructured(err)))
}

func TestDoRequest_TimeoutClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()
	client := NewClient(Config{BaseURL: srv.URL, Timeout: 20 * time.Millisecond})

	err := client.HealthCheck(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNetworkTimeout, errors.GetCode(err))
}

// unwrapStructured digs the structured error out of fmt.Errorf wrapping.
func unwrapStructured(err error) error {
	for err != nil {
		if _, ok := err.(*errors.Error); ok {
			return err
		}
		type unwrapper interface{ Unwrap() error }
		u, ok := err.(unwrapper)
		if !ok {
			return err
		}
		err = u.Unwrap()
	}
	return err
}

package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions"`
}

func newTestService(t *testing.T, handler http.HandlerFunc, cfg Config) *EmbeddingService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg.APIKey = "sk-test"
	cfg.BaseURL = srv.URL + "/v1"
	s, err := NewEmbeddingService(cfg)
	require.NoError(t, err)
	return s
}

func TestNewEmbeddingService(t *testing.T) {
	_, err := NewEmbeddingService(Config{})
	assert.Error(t, err, "API key is required")

	s, err := NewEmbeddingService(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, s.ModelName())
	assert.Equal(t, 1536, s.Dimensions())

	s, err = NewEmbeddingService(Config{APIKey: "k", Model: "custom"})
	require.NoError(t, err)
	assert.Zero(t, s.Dimensions(), "unknown models report no dimension")
}

func TestEmbedBatch_PlacesByIndex(t *testing.T) {
	var got embeddingRequest
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"text-embedding-3-small","data":[
			{"object":"embedding","index":1,"embedding":[0.3,0.4]},
			{"object":"embedding","index":0,"embedding":[0.1,0.2]}
		]}`))
	}, Config{Model: "text-embedding-3-small", Dimensions: 2})

	vecs, err := s.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)

	assert.Equal(t, [][]float32{{0.1, 0.2}, {0.3, 0.4}}, vecs)
	assert.Equal(t, []string{"first", "second"}, got.Input)
	assert.Equal(t, 2, got.Dimensions, "dimension override is sent for text-embedding-3 models")
	assert.Equal(t, 2, s.Dimensions())
}

func TestEmbedBatch_Empty(t *testing.T) {
	s := newTestService(t, func(http.ResponseWriter, *http.Request) {
		t.Fatal("no request expected")
	}, Config{})

	vecs, err := s.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestEmbedBatch_MissingVector(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1]}]}`))
	}, Config{})

	_, err := s.EmbedBatch(context.Background(), []string{"a", "b"})
	assert.ErrorContains(t, err, "missing embedding for input 1")
}

func TestEmbedBatch_APIError(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}, Config{})

	_, err := s.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad key")
}

func TestPing(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
	}, Config{})

	assert.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, s.Close())
}

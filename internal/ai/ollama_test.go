package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestOllama(t *testing.T, handler http.HandlerFunc) *ollamaProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	provider, err := createOllamaProvider(map[string]interface{}{"base_url": server.URL})
	require.NoError(t, err)
	return provider
}

func TestOllamaEmbed(t *testing.T) {
	provider := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embeddings", r.URL.Path)
		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "nomic-embed-text", req.Model)
		require.Equal(t, "hello", req.Prompt)
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float32{0.1, 0.2}})
	})

	emb, err := provider.Embed(context.Background(), "nomic-embed-text", "hello")
	require.NoError(t, err)
	require.Equal(t, []float32{0.1, 0.2}, emb)
}

func TestOllamaEmbed_EmptyVector(t *testing.T) {
	provider := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{})
	})
	_, err := provider.Embed(context.Background(), "m", "text")
	require.ErrorIs(t, err, ErrEmbedFailed)
}

func TestOllamaEmbed_ServerError(t *testing.T) {
	provider := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	})
	_, err := provider.Embed(context.Background(), "m", "text")
	require.ErrorIs(t, err, ErrEmbedFailed)
}

func TestOllamaEmbed_ConnectionRefused(t *testing.T) {
	provider, err := createOllamaProvider(map[string]interface{}{"base_url": "http://127.0.0.1:1", "timeout": 1})
	require.NoError(t, err)
	_, err = provider.Embed(context.Background(), "m", "text")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestOllamaGenerate_PrependsSystem(t *testing.T) {
	provider := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		var req ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.False(t, req.Stream)
		require.Equal(t, "system", req.Messages[0].Role)
		require.Equal(t, "be terse", req.Messages[0].Content)
		require.Equal(t, "user", req.Messages[1].Role)
		var out ollamaChatResponse
		out.Message.Content = "  hi there \n"
		_ = json.NewEncoder(w).Encode(out)
	})

	reply, err := provider.Generate(context.Background(), "llama3", "be terse", []ChatMessage{{Role: "user", Content: "hey"}})
	require.NoError(t, err)
	require.Equal(t, "hi there", reply)
}

func TestOllamaIsAvailable(t *testing.T) {
	provider := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[{"name":"nomic-embed-text:latest"},{"name":"llama3:8b"}]}`))
	})

	require.True(t, provider.IsAvailable(context.Background(), "nomic-embed-text"))
	require.True(t, provider.IsAvailable(context.Background(), "llama3"))
	require.False(t, provider.IsAvailable(context.Background(), "mistral"))
}

func TestOllamaIsAvailable_Down(t *testing.T) {
	provider, err := createOllamaProvider(map[string]interface{}{"base_url": "http://127.0.0.1:1", "probe_timeout": 1})
	require.NoError(t, err)
	require.False(t, provider.IsAvailable(context.Background(), "any"))
}

func TestOllamaDefaults(t *testing.T) {
	provider, err := createOllamaProvider(map[string]interface{}{})
	require.NoError(t, err)
	require.Equal(t, defaultOllamaBaseURL, provider.baseURL)
}

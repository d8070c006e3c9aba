package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-assistant/internal/cache"
	"shop-assistant/internal/common/logger"
)

func newTestClient(t *testing.T, baseURL string, maxRetries int) *Client {
	return NewClient(Config{
		BaseURL:    baseURL,
		Model:      "nomic-embed-text",
		Timeout:    2 * time.Second,
		MaxRetries: maxRetries,
	}, cache.New[[]float32](time.Minute, 10), logger.NewTestLogger(t))
}

func embedHandler(hits *atomic.Int32, lastPrompt *atomic.Value) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		var req embedRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if lastPrompt != nil {
			lastPrompt.Store(req.Prompt)
		}
		_ = json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{0.1, 0.2, 0.3}})
	}
}

func TestEmbed_ReturnsVector(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(embedHandler(&hits, nil))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 1)
	vector, err := c.Embed(context.Background(), "how do i add a product")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vector)
}

func TestEmbed_MemoizesByTextHash(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(embedHandler(&hits, nil))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 1)

	_, err := c.Embed(context.Background(), "same question")
	require.NoError(t, err)
	_, err = c.Embed(context.Background(), "same question")
	require.NoError(t, err)

	assert.Equal(t, int32(1), hits.Load(), "second call must come from the cache")
}

func TestEmbed_TruncatesOverlongInput(t *testing.T) {
	var hits atomic.Int32
	var lastPrompt atomic.Value
	srv := httptest.NewServer(embedHandler(&hits, &lastPrompt))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	_, err := c.Embed(context.Background(), strings.Repeat("a", 2000))

	require.NoError(t, err)
	assert.Len(t, lastPrompt.Load().(string), maxInputChars)
}

func TestEmbed_RetriesOnceThenSucceeds(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{0.5}})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 1)
	vector, err := c.Embed(context.Background(), "flaky upstream")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.5}, vector)
	assert.Equal(t, int32(2), hits.Load())
}

func TestEmbed_UnreachableServiceReturnsTypedFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // unreachable

	c := newTestClient(t, srv.URL, 1)
	_, err := c.Embed(context.Background(), "anything")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
}

func TestEmbed_EmptyVectorIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(embedResponse{})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	_, err := c.Embed(context.Background(), "anything")

	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	assert.NoError(t, c.Ping(context.Background()))

	srv.Close()
	assert.Error(t, c.Ping(context.Background()))
}

package retrieval

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-assistant/internal/cache"
	"shop-assistant/internal/common/logger"
	"shop-assistant/internal/models"
)

func esHandler(hits *atomic.Int32, lastBody *atomic.Value, payload string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if lastBody != nil {
			var body map[string]interface{}
			_ = json.NewDecoder(r.Body).Decode(&body)
			lastBody.Store(body)
		}
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(payload))
	}
}

const searchPayload = `{
	"hits": {
		"hits": [
			{"_id": "kb-1", "_score": 0.91, "_source": {"title": "Adding a product", "text": "Open the Catalog page and press Add product.", "content_type": "howto", "audience": "supplier"}},
			{"_id": "kb-2", "_score": 0.84, "_source": {"title": "About the platform", "text": "A marketplace for stores and suppliers.", "content_type": "general", "audience": "supplier"}}
		]
	}
}`

func newTestRetrieval(t *testing.T, url string) *Client {
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{url}})
	require.NoError(t, err)
	return NewClient(es, "assistant-knowledge", cache.New[[]models.RetrievedSnippet](time.Minute, 10), logger.NewTestLogger(t))
}

func TestSearch_ReturnsRankedSnippets(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(esHandler(&hits, nil, searchPayload))
	defer srv.Close()

	c := newTestRetrieval(t, srv.URL)
	snippets := c.Search(context.Background(), []float32{0.1, 0.2, 0.3}, 4)

	require.Len(t, snippets, 2)
	assert.Equal(t, "kb-1", snippets[0].ID)
	assert.Equal(t, models.ContentHowTo, snippets[0].ContentType)
	assert.InDelta(t, 0.91, snippets[0].Score, 0.0001)
}

func TestSearchFiltered_SendsTermFilters(t *testing.T) {
	var hits atomic.Int32
	var lastBody atomic.Value
	srv := httptest.NewServer(esHandler(&hits, &lastBody, searchPayload))
	defer srv.Close()

	c := newTestRetrieval(t, srv.URL)
	c.SearchFiltered(context.Background(), []float32{0.1}, 4, Filter{
		ContentType: models.ContentHowTo,
		Audience:    "supplier",
	})

	body := lastBody.Load().(map[string]interface{})
	knn := body["knn"].(map[string]interface{})
	require.Contains(t, knn, "filter")
	raw, _ := json.Marshal(knn["filter"])
	assert.Contains(t, string(raw), `"content_type":"howto"`)
	assert.Contains(t, string(raw), `"audience":"supplier"`)
}

func TestSearch_MemoizedByVectorPrefixAndLimit(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(esHandler(&hits, nil, searchPayload))
	defer srv.Close()

	c := newTestRetrieval(t, srv.URL)
	vector := []float32{0.1, 0.2, 0.3}

	c.Search(context.Background(), vector, 4)
	c.Search(context.Background(), vector, 4)
	assert.Equal(t, int32(1), hits.Load(), "identical search must be served from cache")

	c.Search(context.Background(), vector, 8)
	assert.Equal(t, int32(2), hits.Load(), "different limit is a different cache entry")
}

func TestSearch_TransportErrorYieldsEmptyList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // unreachable

	c := newTestRetrieval(t, srv.URL)
	snippets := c.Search(context.Background(), []float32{0.1}, 4)

	assert.Empty(t, snippets)
}

func TestSearch_ErrorStatusYieldsEmptyList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad request"}`))
	}))
	defer srv.Close()

	c := newTestRetrieval(t, srv.URL)
	snippets := c.Search(context.Background(), []float32{0.1}, 4)

	assert.Empty(t, snippets)
}

func TestSearch_EmptyVectorShortCircuits(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(esHandler(&hits, nil, searchPayload))
	defer srv.Close()

	c := newTestRetrieval(t, srv.URL)
	assert.Empty(t, c.Search(context.Background(), nil, 4))
	assert.Equal(t, int32(0), hits.Load())
}

// Package retrieval wraps kNN search over the knowledge index. Missing
// grounding degrades answer quality, so every transport or protocol error
// here yields an empty result list instead of propagating.
package retrieval

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"shop-assistant/internal/cache"
	"shop-assistant/internal/common/logger"
	"shop-assistant/internal/common/metrics"
	"shop-assistant/internal/models"
)

const searchTimeout = 3 * time.Second

// Cache keys hash only the first vectorPrefixLen components plus limit and
// filter. Two different questions rarely share an 8-float prefix, and the
// worst case is serving a cached neighbor list for a near-identical vector.
// This is an intentional accuracy/speed trade-off.
const vectorPrefixLen = 8

// Filter restricts search to equality matches on passage metadata.
type Filter struct {
	ContentType models.ContentType
	Audience    string
}

type Client struct {
	es     *elasticsearch.Client
	index  string
	cache  *cache.Cache[[]models.RetrievedSnippet]
	logger logger.Logger
}

func NewClient(es *elasticsearch.Client, index string, c *cache.Cache[[]models.RetrievedSnippet], log logger.Logger) *Client {
	return &Client{
		es:     es,
		index:  index,
		cache:  c,
		logger: log.WithFields(map[string]interface{}{"component": "retrieval"}),
	}
}

// Search returns up to limit passages ranked by remote similarity.
func (c *Client) Search(ctx context.Context, vector []float32, limit int) []models.RetrievedSnippet {
	return c.search(ctx, vector, limit, nil)
}

// SearchFiltered additionally constrains by content type and audience.
// Used for "how do I" questions so marketing text does not crowd out
// step-by-step instructions.
func (c *Client) SearchFiltered(ctx context.Context, vector []float32, limit int, f Filter) []models.RetrievedSnippet {
	return c.search(ctx, vector, limit, &f)
}

func (c *Client) search(ctx context.Context, vector []float32, limit int, f *Filter) []models.RetrievedSnippet {
	if len(vector) == 0 || limit <= 0 {
		return nil
	}

	key := c.cacheKey(vector, limit, f)
	if snippets, ok := c.cache.Get(key); ok {
		metrics.CacheHits.WithLabelValues("retrieval").Inc()
		return snippets
	}
	metrics.CacheMisses.WithLabelValues("retrieval").Inc()

	body, err := buildSearchBody(vector, limit, f)
	if err != nil {
		c.logger.Error("failed to build search body", map[string]interface{}{"error": err.Error()})
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	req := esapi.SearchRequest{
		Index: []string{c.index},
		Body:  bytes.NewReader(body),
	}

	res, err := req.Do(callCtx, c.es)
	if err != nil {
		metrics.UpstreamFailures.WithLabelValues("retrieval").Inc()
		c.logger.Warn("similarity search failed", map[string]interface{}{"error": err.Error()})
		return nil
	}
	defer res.Body.Close()

	if res.IsError() {
		metrics.UpstreamFailures.WithLabelValues("retrieval").Inc()
		c.logger.Warn("similarity search returned error status", map[string]interface{}{
			"status": res.Status(),
		})
		return nil
	}

	snippets, err := parseSearchResponse(res)
	if err != nil {
		c.logger.Warn("failed to parse search response", map[string]interface{}{"error": err.Error()})
		return nil
	}

	c.cache.Put(key, snippets)
	return snippets
}

func buildSearchBody(vector []float32, limit int, f *Filter) ([]byte, error) {
	knn := map[string]interface{}{
		"field":          "embedding",
		"query_vector":   vector,
		"k":              limit,
		"num_candidates": limit * 10,
	}

	if f != nil {
		var must []map[string]interface{}
		if f.ContentType != "" {
			must = append(must, map[string]interface{}{
				"term": map[string]interface{}{"content_type": string(f.ContentType)},
			})
		}
		if f.Audience != "" {
			must = append(must, map[string]interface{}{
				"term": map[string]interface{}{"audience": f.Audience},
			})
		}
		if len(must) > 0 {
			knn["filter"] = map[string]interface{}{
				"bool": map[string]interface{}{"must": must},
			}
		}
	}

	return json.Marshal(map[string]interface{}{
		"knn":     knn,
		"_source": []string{"title", "text", "content_type", "audience"},
	})
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string  `json:"_id"`
			Score  float64 `json:"_score"`
			Source struct {
				Title       string `json:"title"`
				Text        string `json:"text"`
				ContentType string `json:"content_type"`
				Audience    string `json:"audience"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func parseSearchResponse(res *esapi.Response) ([]models.RetrievedSnippet, error) {
	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	snippets := make([]models.RetrievedSnippet, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		snippets = append(snippets, models.RetrievedSnippet{
			ID:          hit.ID,
			Title:       hit.Source.Title,
			Text:        hit.Source.Text,
			ContentType: models.ContentType(hit.Source.ContentType),
			Audience:    hit.Source.Audience,
			Score:       hit.Score,
		})
	}
	return snippets, nil
}

func (c *Client) cacheKey(vector []float32, limit int, f *Filter) string {
	h := fnv.New64a()
	prefix := vectorPrefixLen
	if len(vector) < prefix {
		prefix = len(vector)
	}
	for i := 0; i < prefix; i++ {
		_ = binary.Write(h, binary.LittleEndian, vector[i])
	}
	if f != nil {
		fmt.Fprintf(h, "|%s|%s", f.ContentType, f.Audience)
	}
	fmt.Fprintf(h, "|%d", limit)
	return fmt.Sprintf("%x", h.Sum64())
}

// Package embedding wraps the external text-embedding service.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"strconv"
	"time"

	"shop-assistant/internal/cache"
	commonhttp "shop-assistant/internal/common/http"
	"shop-assistant/internal/common/logger"
	"shop-assistant/internal/common/metrics"
)

var ErrEmbeddingUnavailable = errors.New("EMBEDDING_UNAVAILABLE")

// Overlong questions add latency without changing the neighborhood the
// vector lands in, so input is bounded before the call.
const maxInputChars = 400

type Config struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// Client memoizes text-to-vector calls in a TTL cache keyed by a hash of
// the truncated text.
type Client struct {
	config     Config
	httpClient *commonhttp.Client
	cache      *cache.Cache[[]float32]
	logger     logger.Logger
}

func NewClient(cfg Config, c *cache.Cache[[]float32], log logger.Logger) *Client {
	return &Client{
		config:     cfg,
		httpClient: commonhttp.NewClient(cfg.Timeout + time.Second),
		cache:      c,
		logger:     log.WithFields(map[string]interface{}{"component": "embedding"}),
	}
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed returns the vector for text. On persistent upstream failure it
// returns ErrEmbeddingUnavailable, never a panic.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	text = truncate(text, maxInputChars)
	key := cacheKey(text)

	if vector, ok := c.cache.Get(key); ok {
		metrics.CacheHits.WithLabelValues("embedding").Inc()
		return vector, nil
	}
	metrics.CacheMisses.WithLabelValues("embedding").Inc()

	var lastErr error
	attempts := c.config.MaxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(100*(1<<(attempt-2))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, ctx.Err())
			}
		}

		vector, err := c.callOnce(ctx, text)
		if err == nil {
			c.cache.Put(key, vector)
			return vector, nil
		}
		lastErr = err
		c.logger.Warn("embedding call failed", map[string]interface{}{
			"attempt": attempt,
			"error":   err.Error(),
		})
	}

	metrics.UpstreamFailures.WithLabelValues("embedding").Inc()
	return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, lastErr)
}

func (c *Client) callOnce(ctx context.Context, text string) ([]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	body, err := json.Marshal(embedRequest{Model: c.config.Model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost,
		c.config.BaseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embedding service returned %d: %s", resp.StatusCode, payload)
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("embedding service returned an empty vector")
	}

	return out.Embedding, nil
}

// Ping reports whether the embedding service answers at all.
func (c *Client) Ping(ctx context.Context) error {
	callCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, c.config.BaseURL+"/", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("embedding service returned %d", resp.StatusCode)
	}
	return nil
}

func truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max]
}

func cacheKey(text string) string {
	h := fnv.New64a()
	h.Write([]byte(text))
	return strconv.FormatUint(h.Sum64(), 16)
}

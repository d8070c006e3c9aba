// Package generation wraps the external text-generation service with tuned
// decoding parameters, timeouts and bounded retries.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	commonhttp "shop-assistant/internal/common/http"
	"shop-assistant/internal/common/logger"
	"shop-assistant/internal/common/metrics"
)

var (
	ErrGenerationTimeout     = errors.New("GENERATION_TIMEOUT")
	ErrGenerationUnavailable = errors.New("GENERATION_UNAVAILABLE")
)

type Config struct {
	BaseURL     string
	Model       string
	Timeout     time.Duration
	MaxRetries  int
	MaxTokens   int
	Temperature float64
	ContextSize int
	AnswerCap   int
}

type Client struct {
	config     Config
	httpClient *commonhttp.Client
	logger     logger.Logger
}

func NewClient(cfg Config, log logger.Logger) *Client {
	return &Client{
		config:     cfg,
		httpClient: commonhttp.NewClient(cfg.Timeout + time.Second),
		logger:     log.WithFields(map[string]interface{}{"component": "generation"}),
	}
}

type generateOptions struct {
	Temperature float64  `json:"temperature"`
	NumPredict  int      `json:"num_predict"`
	NumCtx      int      `json:"num_ctx"`
	Stop        []string `json:"stop"`
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate runs the prompt through the remote model. The answer is trimmed
// and truncated at a sentence boundary; persistent failure returns a typed
// error so the caller can fall back to FallbackMessage.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	attempts := c.config.MaxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(100*(1<<(attempt-2))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrGenerationTimeout, ctx.Err())
			}
		}

		text, err := c.callOnce(ctx, prompt)
		if err == nil {
			return truncateAtSentence(strings.TrimSpace(text), c.config.AnswerCap), nil
		}
		lastErr = err
		c.logger.Warn("generation call failed", map[string]interface{}{
			"attempt": attempt,
			"error":   err.Error(),
		})
	}

	metrics.UpstreamFailures.WithLabelValues("generation").Inc()
	if errors.Is(lastErr, context.DeadlineExceeded) {
		return "", fmt.Errorf("%w: %v", ErrGenerationTimeout, lastErr)
	}
	return "", fmt.Errorf("%w: %v", ErrGenerationUnavailable, lastErr)
}

func (c *Client) callOnce(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{
		Model:  c.config.Model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: c.config.Temperature,
			NumPredict:  c.config.MaxTokens,
			NumCtx:      c.config.ContextSize,
			Stop:        stopTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost,
		c.config.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return "", context.DeadlineExceeded
		}
		return "", fmt.Errorf("generation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("generation service returned %d: %s", resp.StatusCode, payload)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if strings.TrimSpace(out.Response) == "" {
		return "", fmt.Errorf("generation service returned an empty response")
	}

	return out.Response, nil
}

// Ping reports whether the generation service answers at all.
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
		return fmt.Errorf("generation service returned %d", resp.StatusCode)
	}
	return nil
}

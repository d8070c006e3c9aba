// Package pipeline sequences the answer chain: response cache, deterministic
// resolvers, then retrieval-augmented generation. No failure from any stage
// may cross this boundary as a panic or raw error; every terminal produces
// an AnswerResult.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	"shop-assistant/internal/assistant/generation"
	"shop-assistant/internal/assistant/normalize"
	"shop-assistant/internal/assistant/retrieval"
	"shop-assistant/internal/cache"
	cmnerrors "shop-assistant/internal/common/errors"
	"shop-assistant/internal/common/logger"
	"shop-assistant/internal/common/metrics"
	"shop-assistant/internal/models"
)

const (
	clarifyEmptyQuestion    = "Please ask a question about your store, orders or products."
	embeddingDownMessage    = "I could not process your question right now. Please try again in a moment."
	insufficientInfoMessage = "I do not have enough information to answer that yet."
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Retriever interface {
	Search(ctx context.Context, vector []float32, limit int) []models.RetrievedSnippet
	SearchFiltered(ctx context.Context, vector []float32, limit int, f retrieval.Filter) []models.RetrievedSnippet
}

type SnapshotBuilder interface {
	Build(ctx context.Context, role models.Role, actorID string) (*models.BusinessSnapshot, error)
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type IntentMatcher interface {
	Match(ctx context.Context, role models.Role, actorID, normalizedText string) (string, bool)
}

type MetricResolver interface {
	Resolve(ctx context.Context, role models.Role, actorID, rawText string) (string, bool)
}

type Config struct {
	TopK         int
	PromptBudget int
}

type Pipeline struct {
	intents   IntentMatcher
	stats     MetricResolver
	embedder  Embedder
	retriever Retriever
	snapshots SnapshotBuilder
	generator Generator
	responses *cache.Cache[models.AnswerResult]
	config    Config
	logger    logger.Logger
}

type Deps struct {
	Intents       IntentMatcher
	Stats         MetricResolver
	Embedder      Embedder
	Retriever     Retriever
	Snapshots     SnapshotBuilder
	Generator     Generator
	ResponseCache *cache.Cache[models.AnswerResult]
	Config        Config
	Logger        logger.Logger
}

func New(deps Deps) *Pipeline {
	return &Pipeline{
		intents:   deps.Intents,
		stats:     deps.Stats,
		embedder:  deps.Embedder,
		retriever: deps.Retriever,
		snapshots: deps.Snapshots,
		generator: deps.Generator,
		responses: deps.ResponseCache,
		config:    deps.Config,
		logger:    deps.Logger.WithFields(map[string]interface{}{"component": "pipeline"}),
	}
}

// Answer runs the full chain: cache check, numeric-metric shortcut, then
// retrieval-augmented generation. Numeric metrics run before any network
// call; their entire cost is one local aggregate query.
func (p *Pipeline) Answer(ctx context.Context, q models.Question) models.AnswerResult {
	start := time.Now()

	normalized := normalize.Normalize(q.Text)
	if normalized == "" {
		return p.finishError(q, start, cmnerrors.ErrCodeClassificationError, clarifyEmptyQuestion)
	}

	key := responseKey(q, normalized)
	if cached, ok := p.responses.Get(key); ok {
		metrics.CacheHits.WithLabelValues("response").Inc()
		cached.RequestID = q.RequestID
		cached.Cached = true
		cached.Source = models.SourceCache
		cached.ElapsedMs = time.Since(start).Milliseconds()
		metrics.QuestionsAnswered.WithLabelValues(string(models.SourceCache)).Inc()
		return cached
	}
	metrics.CacheMisses.WithLabelValues("response").Inc()

	if answer, ok := p.stats.Resolve(ctx, q.Role, q.ActorID, q.Text); ok {
		return p.finishAnswer(q, start, key, models.SourceNumericMetric, answer, 0)
	}

	return p.answerWithRetrieval(ctx, q, start, key, normalized)
}

// AnswerQuick is the deterministic entry point: the intent matcher runs
// before anything else, and only unmatched questions fall through to the
// full chain. Cheap deterministic matching before network calls is a cost
// decision, not an optimization to revisit.
func (p *Pipeline) AnswerQuick(ctx context.Context, q models.Question) models.AnswerResult {
	start := time.Now()

	normalized := normalize.Normalize(q.Text)
	if normalized == "" {
		return p.finishError(q, start, cmnerrors.ErrCodeClassificationError, clarifyEmptyQuestion)
	}

	if answer, ok := p.intents.Match(ctx, q.Role, q.ActorID, normalized); ok {
		metrics.QuestionsAnswered.WithLabelValues(string(models.SourceIntent)).Inc()
		metrics.QuestionDuration.WithLabelValues(string(models.SourceIntent)).Observe(time.Since(start).Seconds())
		return models.AnswerResult{
			RequestID: q.RequestID,
			Answer:    answer,
			Success:   true,
			Source:    models.SourceIntent,
			ElapsedMs: time.Since(start).Milliseconds(),
		}
	}

	return p.Answer(ctx, q)
}

func (p *Pipeline) answerWithRetrieval(ctx context.Context, q models.Question, start time.Time, key, normalized string) models.AnswerResult {
	vector, err := p.embedder.Embed(ctx, normalized)
	if err != nil {
		p.logger.Warn("embedding unavailable", map[string]interface{}{
			"requestId": q.RequestID,
			"error":     err.Error(),
		})
		return p.finishError(q, start, cmnerrors.ErrCodeEmbeddingUnavailable, embeddingDownMessage)
	}

	var snippets []models.RetrievedSnippet
	if isHowTo(normalized) {
		snippets = p.retriever.SearchFiltered(ctx, vector, p.config.TopK, retrieval.Filter{
			ContentType: models.ContentHowTo,
			Audience:    string(q.Role),
		})
		snippets = retrieval.ReRankProcedural(snippets)
	} else {
		snippets = p.retriever.Search(ctx, vector, p.config.TopK)
	}

	snapshotText := ""
	if snap, err := p.snapshots.Build(ctx, q.Role, q.ActorID); err != nil {
		p.logger.Warn("snapshot unavailable, generating without it", map[string]interface{}{
			"requestId": q.RequestID,
			"error":     err.Error(),
		})
	} else {
		snapshotText = snap.Rendered
	}

	if callerContext := strings.TrimSpace(q.Context); callerContext != "" {
		if snapshotText == "" {
			snapshotText = callerContext
		} else {
			snapshotText = callerContext + "\n" + snapshotText
		}
	}

	if len(snippets) == 0 && snapshotText == "" {
		return p.finishError(q, start, cmnerrors.ErrCodeNoGroundingFound, insufficientInfoMessage)
	}

	prompt := generation.BuildPrompt(q.Role, q.Text, snapshotText, snippets, p.config.PromptBudget)
	answer, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		code := cmnerrors.ErrCodeGenerationUnavailable
		if errors.Is(err, generation.ErrGenerationTimeout) {
			code = cmnerrors.ErrCodeGenerationTimeout
		}
		p.logger.Warn("generation failed", map[string]interface{}{
			"requestId": q.RequestID,
			"error":     err.Error(),
		})
		res := p.finishError(q, start, code, generation.FallbackMessage)
		res.SnippetCount = len(snippets)
		return res
	}

	return p.finishAnswer(q, start, key, models.SourceRetrievalGeneration, answer, len(snippets))
}

func (p *Pipeline) finishAnswer(q models.Question, start time.Time, key string, source models.SourceKind, answer string, snippetCount int) models.AnswerResult {
	res := models.AnswerResult{
		RequestID:    q.RequestID,
		Answer:       answer,
		Success:      true,
		Source:       source,
		SnippetCount: snippetCount,
		ElapsedMs:    time.Since(start).Milliseconds(),
	}

	p.responses.Put(key, res)
	metrics.CacheEntries.WithLabelValues("response").Set(float64(p.responses.Len()))
	metrics.QuestionsAnswered.WithLabelValues(string(source)).Inc()
	metrics.QuestionDuration.WithLabelValues(string(source)).Observe(time.Since(start).Seconds())

	return res
}

func (p *Pipeline) finishError(q models.Question, start time.Time, code cmnerrors.ErrorCode, message string) models.AnswerResult {
	metrics.QuestionsFailed.WithLabelValues(string(models.SourceError), string(code)).Inc()
	metrics.QuestionDuration.WithLabelValues(string(models.SourceError)).Observe(time.Since(start).Seconds())

	return models.AnswerResult{
		RequestID: q.RequestID,
		Answer:    message,
		Success:   false,
		Source:    models.SourceError,
		ErrorCode: string(code),
		ElapsedMs: time.Since(start).Milliseconds(),
	}
}

func isHowTo(normalized string) bool {
	return strings.Contains(normalized, "how do i") ||
		strings.Contains(normalized, "how can i") ||
		strings.Contains(normalized, "how to")
}

// Caller-supplied context is part of the key: the same question with
// different context may ground a different answer.
func responseKey(q models.Question, normalized string) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%s|%s", q.ActorID, q.Role, normalized, q.Context)
	return strconv.FormatUint(h.Sum64(), 16)
}

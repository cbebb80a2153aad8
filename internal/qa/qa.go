// Package qa answers questions over a tenant's ingested documents.
//
// The service embeds the question, retrieves the most similar chunks from the
// vector index, and asks a completion model to answer using only that context.
// Infrastructure failures degrade the answer instead of failing the call: the
// caller always receives an answer, with confidence 0.0 when something broke.
package qa

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/askpile/askpile/internal/embed"
	askerrors "github.com/askpile/askpile/internal/errors"
	"github.com/askpile/askpile/internal/store"
	"github.com/askpile/askpile/internal/vecindex"
)

// Degraded answers returned when no real answer can be produced.
const (
	noDocumentsAnswer = "No relevant documents found for this question. Ingest documents before asking."
	unavailableAnswer = "The answer could not be generated because the language model is unavailable."
)

// answerPromptTemplate instructs the model to stay within the retrieved
// context.
const answerPromptTemplate = `Use ONLY the following context to answer the question. If the context does not contain the answer, say "I don't know based on the available documents." Do not mention the context or that it was provided.

Context:
%s

Question: %s

Answer:`

// Answer is the result of one question.
type Answer struct {
	Question     string   `json:"question"`
	Answer       string   `json:"answer"`
	Confidence   float64  `json:"confidence"`
	Sources      []string `json:"sources"`
	ChunksUsed   int      `json:"chunks_used"`
	ResponseTime float64  `json:"response_time"`
}

// Service wires the embedder, vector index, generator, and query log.
type Service struct {
	embedder embed.Embedder
	index    *vecindex.Index
	gen      Generator
	queries  store.QueryLog
	topK     int
	logger   *slog.Logger
}

// New creates a question answering service. topK below 1 defaults to 3.
// queries may be nil to disable history logging.
func New(embedder embed.Embedder, index *vecindex.Index, gen Generator, queries store.QueryLog, topK int, logger *slog.Logger) *Service {
	if topK < 1 {
		topK = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		embedder: embedder,
		index:    index,
		gen:      gen,
		queries:  queries,
		topK:     topK,
		logger:   logger,
	}
}

// AskOptions tunes a single question.
type AskOptions struct {
	// TopK overrides the configured retrieval width. Zero keeps the default;
	// negative values are rejected.
	TopK int
}

// Ask answers a question scoped to one tenant.
//
// An empty question or an invalid TopK override is an error. Everything else
// degrades: embedding, search, or generation failures produce an answer with
// confidence 0.0 rather than an error.
func (s *Service) Ask(ctx context.Context, tenantID, question string, opts AskOptions) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, askerrors.New(askerrors.ErrCodeEmptyQuestion, "question must not be empty", nil)
	}

	topK := s.topK
	if opts.TopK != 0 {
		if opts.TopK < 1 {
			return nil, askerrors.ValidationError(
				fmt.Sprintf("top_k must be at least 1, got %d", opts.TopK), nil)
		}
		topK = opts.TopK
	}

	start := time.Now()

	queryVec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		s.logger.Warn("question embedding failed",
			slog.String("tenant_id", tenantID),
			slog.String("error", err.Error()))
		return s.degraded(ctx, tenantID, question, unavailableAnswer, nil, start), nil
	}

	results, err := s.index.Search(ctx, tenantID, queryVec, topK)
	if err != nil {
		s.logger.Warn("retrieval failed",
			slog.String("tenant_id", tenantID),
			slog.String("error", err.Error()))
		return s.degraded(ctx, tenantID, question, unavailableAnswer, nil, start), nil
	}

	if len(results) == 0 {
		return s.degraded(ctx, tenantID, question, noDocumentsAnswer, nil, start), nil
	}

	contextText := buildContext(results)
	sources := collectSources(results)

	prompt := fmt.Sprintf(answerPromptTemplate, contextText, question)
	response, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		s.logger.Warn("answer generation failed",
			slog.String("tenant_id", tenantID),
			slog.String("model", s.gen.ModelName()),
			slog.String("error", err.Error()))
		// The caller still gets a well-formed response; the failure reason
		// becomes the answer text.
		text := fmt.Sprintf("%s (%v)", unavailableAnswer, err)
		ans := s.degraded(ctx, tenantID, question, text, sources, start)
		ans.ChunksUsed = len(results)
		return ans, nil
	}

	answer := &Answer{
		Question:     question,
		Answer:       strings.TrimSpace(response),
		Confidence:   EstimateConfidence(response, len(contextText)),
		Sources:      sources,
		ChunksUsed:   len(results),
		ResponseTime: time.Since(start).Seconds(),
	}

	s.logQuery(ctx, tenantID, answer)
	return answer, nil
}

// History returns a tenant's recent question/answer exchanges.
func (s *Service) History(ctx context.Context, tenantID string, limit int) ([]*store.QueryRecord, error) {
	if s.queries == nil {
		return []*store.QueryRecord{}, nil
	}
	return s.queries.RecentQueries(ctx, tenantID, limit)
}

// degraded builds a zero-confidence answer and logs it.
func (s *Service) degraded(ctx context.Context, tenantID, question, text string, sources []string, start time.Time) *Answer {
	if sources == nil {
		sources = []string{}
	}
	answer := &Answer{
		Question:     question,
		Answer:       text,
		Confidence:   0.0,
		Sources:      sources,
		ResponseTime: time.Since(start).Seconds(),
	}
	s.logQuery(ctx, tenantID, answer)
	return answer
}

// logQuery appends the exchange to the query log. Failures are logged and
// swallowed; history must never break answering.
func (s *Service) logQuery(ctx context.Context, tenantID string, answer *Answer) {
	if s.queries == nil {
		return
	}

	confidence := answer.Confidence
	rec := &store.QueryRecord{
		TenantID:     tenantID,
		Question:     answer.Question,
		Answer:       answer.Answer,
		ResponseTime: answer.ResponseTime,
		Confidence:   &confidence,
		Sources:      answer.Sources,
	}
	if err := s.queries.LogQuery(ctx, rec); err != nil {
		s.logger.Warn("failed to log query",
			slog.String("tenant_id", tenantID),
			slog.String("error", err.Error()))
	}
}

// buildContext joins retrieved chunk texts into one prompt context block.
func buildContext(results []vecindex.SearchResult) string {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Record.Text
	}
	return strings.Join(texts, "\n\n")
}

// collectSources returns the distinct source filenames in retrieval order.
func collectSources(results []vecindex.SearchResult) []string {
	seen := make(map[string]struct{}, len(results))
	sources := []string{}
	for _, r := range results {
		if _, ok := seen[r.Record.Filename]; ok {
			continue
		}
		seen[r.Record.Filename] = struct{}{}
		sources = append(sources, r.Record.Filename)
	}
	return sources
}

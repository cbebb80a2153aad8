package qa

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	askerrors "github.com/askpile/askpile/internal/errors"
	"github.com/askpile/askpile/internal/store"
	"github.com/askpile/askpile/internal/vecindex"
)

// fakeEmbedder returns a fixed vector, or an error when broken.
type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v, err := f.Embed(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return len(f.vector) }

func (f *fakeEmbedder) ModelName() string { return "fake" }

func (f *fakeEmbedder) Available(ctx context.Context) bool { return f.err == nil }

func (f *fakeEmbedder) Close() error { return nil }

// fakeGenerator records the prompt it received.
type fakeGenerator struct {
	response string
	err      error
	prompt   string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeGenerator) ModelName() string { return "fake-model" }

func (f *fakeGenerator) Available(ctx context.Context) bool { return f.err == nil }

func (f *fakeGenerator) Close() error { return nil }

func newSeededIndex(t *testing.T) *vecindex.Index {
	t.Helper()
	idx, err := vecindex.New(vecindex.Config{Dimensions: 4})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	records := []vecindex.Record{
		{TenantID: "alice", DocumentID: 1, Filename: "handbook.txt", ChunkIndex: 0,
			Text: "Vacation requests must be submitted two weeks in advance."},
		{TenantID: "alice", DocumentID: 1, Filename: "handbook.txt", ChunkIndex: 1,
			Text: "Unused vacation days expire at the end of the calendar year."},
		{TenantID: "alice", DocumentID: 2, Filename: "faq.txt", ChunkIndex: 0,
			Text: "The office is closed on public holidays."},
	}
	vectors := [][]float32{
		{1, 0, 0, 0},
		{0.9, 0.1, 0, 0},
		{0, 1, 0, 0},
	}
	_, err = idx.InsertBatch(context.Background(), records, vectors)
	require.NoError(t, err)
	return idx
}

func newQueryLog(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAsk_HappyPath(t *testing.T) {
	idx := newSeededIndex(t)
	queries := newQueryLog(t)
	gen := &fakeGenerator{response: "Vacation requests must be submitted two weeks in advance to your manager."}
	svc := New(&fakeEmbedder{vector: []float32{1, 0, 0, 0}}, idx, gen, queries, 2, nil)

	answer, err := svc.Ask(context.Background(), "alice", "How do I request vacation?", AskOptions{})
	require.NoError(t, err)

	assert.Equal(t, gen.response, answer.Answer)
	assert.Equal(t, []string{"handbook.txt"}, answer.Sources)
	assert.Equal(t, 2, answer.ChunksUsed)
	assert.Greater(t, answer.Confidence, 0.0)

	// Prompt carries the retrieved chunk text
	assert.Contains(t, gen.prompt, "two weeks in advance")
	assert.Contains(t, gen.prompt, "How do I request vacation?")
}

func TestAsk_EmptyQuestion(t *testing.T) {
	svc := New(&fakeEmbedder{vector: []float32{1, 0, 0, 0}}, newSeededIndex(t), &fakeGenerator{}, nil, 2, nil)

	_, err := svc.Ask(context.Background(), "alice", "   ", AskOptions{})
	require.Error(t, err)
	assert.Equal(t, askerrors.ErrCodeEmptyQuestion, askerrors.GetCode(err))
}

func TestAsk_NegativeTopK(t *testing.T) {
	svc := New(&fakeEmbedder{vector: []float32{1, 0, 0, 0}}, newSeededIndex(t), &fakeGenerator{}, nil, 2, nil)

	_, err := svc.Ask(context.Background(), "alice", "anything?", AskOptions{TopK: -1})
	require.Error(t, err)
	assert.Equal(t, askerrors.ErrCodeInvalidArgument, askerrors.GetCode(err))
}

func TestAsk_NoDocuments(t *testing.T) {
	idx, err := vecindex.New(vecindex.Config{Dimensions: 4})
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	gen := &fakeGenerator{response: "should not be called"}
	svc := New(&fakeEmbedder{vector: []float32{1, 0, 0, 0}}, idx, gen, nil, 2, nil)

	answer, err := svc.Ask(context.Background(), "alice", "anything?", AskOptions{})
	require.NoError(t, err)

	assert.Zero(t, answer.Confidence)
	assert.Empty(t, answer.Sources)
	assert.Contains(t, answer.Answer, "No relevant documents")
	assert.Empty(t, gen.prompt, "generator must not run without context")
}

func TestAsk_TenantIsolation(t *testing.T) {
	idx := newSeededIndex(t)
	gen := &fakeGenerator{response: "irrelevant"}
	svc := New(&fakeEmbedder{vector: []float32{1, 0, 0, 0}}, idx, gen, nil, 2, nil)

	answer, err := svc.Ask(context.Background(), "mallory", "what is in alice's handbook?", AskOptions{})
	require.NoError(t, err)

	assert.Zero(t, answer.Confidence)
	assert.Empty(t, answer.Sources)
	assert.Empty(t, gen.prompt)
}

func TestAsk_EmbeddingFailureDegrades(t *testing.T) {
	svc := New(&fakeEmbedder{err: errors.New("connection refused")},
		newSeededIndex(t), &fakeGenerator{}, nil, 2, nil)

	answer, err := svc.Ask(context.Background(), "alice", "anything?", AskOptions{})
	require.NoError(t, err, "infrastructure failures must not surface as errors")
	assert.Zero(t, answer.Confidence)
	assert.Contains(t, answer.Answer, "unavailable")
}

func TestAsk_GenerationFailureDegrades(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("model not loaded")}
	svc := New(&fakeEmbedder{vector: []float32{1, 0, 0, 0}}, newSeededIndex(t), gen, nil, 2, nil)

	answer, err := svc.Ask(context.Background(), "alice", "How do I request vacation?", AskOptions{})
	require.NoError(t, err)

	assert.Zero(t, answer.Confidence)
	// Retrieval succeeded, so sources are still reported
	assert.Equal(t, []string{"handbook.txt"}, answer.Sources)
}

func TestAsk_LogsQuery(t *testing.T) {
	queries := newQueryLog(t)
	gen := &fakeGenerator{response: "Submit vacation requests two weeks in advance using the portal."}
	svc := New(&fakeEmbedder{vector: []float32{1, 0, 0, 0}}, newSeededIndex(t), gen, queries, 2, nil)

	_, err := svc.Ask(context.Background(), "alice", "How do I request vacation?", AskOptions{})
	require.NoError(t, err)

	records, err := svc.History(context.Background(), "alice", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "How do I request vacation?", records[0].Question)
	require.NotNil(t, records[0].Confidence)
	assert.Greater(t, *records[0].Confidence, 0.0)
	assert.Equal(t, []string{"handbook.txt"}, records[0].Sources)
}

func TestAsk_TopKOverride(t *testing.T) {
	gen := &fakeGenerator{response: "answer"}
	svc := New(&fakeEmbedder{vector: []float32{1, 0, 0, 0}}, newSeededIndex(t), gen, nil, 2, nil)

	answer, err := svc.Ask(context.Background(), "alice", "anything about vacation?", AskOptions{TopK: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, answer.ChunksUsed)
}

func TestCollectSources_DedupPreservesOrder(t *testing.T) {
	results := []vecindex.SearchResult{
		{Record: vecindex.Record{Filename: "b.txt"}},
		{Record: vecindex.Record{Filename: "a.txt"}},
		{Record: vecindex.Record{Filename: "b.txt"}},
	}
	assert.Equal(t, []string{"b.txt", "a.txt"}, collectSources(results))
}

func TestBuildContext_JoinsChunks(t *testing.T) {
	results := []vecindex.SearchResult{
		{Record: vecindex.Record{Text: "first"}},
		{Record: vecindex.Record{Text: "second"}},
	}
	ctx := buildContext(results)
	assert.True(t, strings.Contains(ctx, "first\n\nsecond"))
}

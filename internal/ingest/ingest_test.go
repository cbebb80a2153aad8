package ingest

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	askerrors "github.com/askpile/askpile/internal/errors"
	"github.com/askpile/askpile/internal/store"
	"github.com/askpile/askpile/internal/vecindex"
)

// hashEmbedder produces deterministic 4-dim vectors from the text hash.
type hashEmbedder struct {
	err error
}

func (h *hashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if h.err != nil {
		return nil, h.err
	}
	sum := fnv.New32a()
	_, _ = sum.Write([]byte(text))
	v := sum.Sum32()
	return []float32{
		float32(v&0xff) + 1,
		float32((v >> 8) & 0xff),
		float32((v >> 16) & 0xff),
		float32((v >> 24) & 0xff),
	}, nil
}

func (h *hashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := h.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (h *hashEmbedder) Dimensions() int { return 4 }

func (h *hashEmbedder) ModelName() string { return "hash" }

func (h *hashEmbedder) Available(ctx context.Context) bool { return h.err == nil }

func (h *hashEmbedder) Close() error { return nil }

type fixture struct {
	store *store.Store
	index *vecindex.Index
	orch  *Orchestrator
}

func newFixture(t *testing.T, embedder *hashEmbedder) *fixture {
	t.Helper()

	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	idx, err := vecindex.New(vecindex.Config{Dimensions: 4})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	orch := New(s, s, idx, embedder, nil, Options{
		ChunkSize:     100,
		ChunkOverlap:  20,
		MaxFileSizeMB: 1,
	}, nil)

	return &fixture{store: s, index: idx, orch: orch}
}

func TestIngest_HappyPath(t *testing.T) {
	f := newFixture(t, &hashEmbedder{})
	ctx := context.Background()

	data := []byte(strings.Repeat("The quick brown fox jumps over the lazy dog. ", 10))
	result, err := f.orch.Ingest(ctx, "alice", "fox.txt", data)
	require.NoError(t, err)

	assert.Positive(t, result.DocumentID)
	assert.Equal(t, int64(len(data)), result.ByteSize)
	assert.Greater(t, result.ChunkCount, 1)

	doc, err := f.store.GetDocument(ctx, "alice", result.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusIndexed, doc.Status)
	assert.Equal(t, result.ChunkCount, doc.ChunkCount)

	stats, err := f.index.TenantStats("alice")
	require.NoError(t, err)
	assert.Equal(t, result.ChunkCount, stats.TotalChunks)
	assert.Equal(t, 1, stats.UniqueDocuments)
}

func TestIngest_RejectsEmptyTenant(t *testing.T) {
	f := newFixture(t, &hashEmbedder{})

	_, err := f.orch.Ingest(context.Background(), "", "fox.txt", []byte("text"))
	require.Error(t, err)
	assert.Equal(t, askerrors.ErrCodeInvalidArgument, askerrors.GetCode(err))
}

func TestIngest_RejectsOversizedFile(t *testing.T) {
	f := newFixture(t, &hashEmbedder{})
	ctx := context.Background()

	data := make([]byte, 2*1024*1024) // limit is 1 MB
	_, err := f.orch.Ingest(ctx, "alice", "big.txt", data)
	require.Error(t, err)
	assert.Equal(t, askerrors.ErrCodeFileTooLarge, askerrors.GetCode(err))

	docs, err := f.store.ListDocuments(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, docs, "rejected file must not leave a metadata row")
}

func TestIngest_EmptyFileFailsBeforeMetadata(t *testing.T) {
	f := newFixture(t, &hashEmbedder{})
	ctx := context.Background()

	_, err := f.orch.Ingest(ctx, "alice", "empty.txt", []byte{})
	require.Error(t, err)
	assert.Equal(t, askerrors.ErrCodeExtractionFailed, askerrors.GetCode(err))

	docs, err := f.store.ListDocuments(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestIngest_EmbeddingFailureCompensates(t *testing.T) {
	embedder := &hashEmbedder{err: errors.New("ollama down")}
	f := newFixture(t, embedder)
	ctx := context.Background()

	_, err := f.orch.Ingest(ctx, "alice", "fox.txt",
		[]byte("Some document content that should chunk cleanly."))
	require.Error(t, err)

	docs, err := f.store.ListDocuments(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, docs, "failed ingestion must roll back the metadata row")
	assert.Zero(t, f.index.Count(), "failed ingestion must leave no vectors")
}

func TestIngest_ReingestOverwrites(t *testing.T) {
	f := newFixture(t, &hashEmbedder{})
	ctx := context.Background()

	data := []byte("A short document about nothing in particular.")
	first, err := f.orch.Ingest(ctx, "alice", "doc.txt", data)
	require.NoError(t, err)
	second, err := f.orch.Ingest(ctx, "alice", "doc.txt", data)
	require.NoError(t, err)

	// Each ingest is a separate document; both are fully indexed.
	assert.NotEqual(t, first.DocumentID, second.DocumentID)
	docs, err := f.store.ListDocuments(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestDelete_RemovesBothStores(t *testing.T) {
	f := newFixture(t, &hashEmbedder{})
	ctx := context.Background()

	result, err := f.orch.Ingest(ctx, "alice", "doc.txt",
		[]byte("Some document content that should chunk cleanly."))
	require.NoError(t, err)

	del, err := f.orch.Delete(ctx, "alice", result.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, 1, del.SQLDeleted)
	assert.Equal(t, result.ChunkCount, del.VectorChunksDeleted)

	// Deleting again is a no-op with zero counts
	del, err = f.orch.Delete(ctx, "alice", result.DocumentID)
	require.NoError(t, err)
	assert.Zero(t, del.SQLDeleted)
	assert.Zero(t, del.VectorChunksDeleted)
}

func TestDelete_TenantScoped(t *testing.T) {
	f := newFixture(t, &hashEmbedder{})
	ctx := context.Background()

	result, err := f.orch.Ingest(ctx, "alice", "doc.txt",
		[]byte("Some document content that should chunk cleanly."))
	require.NoError(t, err)

	del, err := f.orch.Delete(ctx, "bob", result.DocumentID)
	require.NoError(t, err)
	assert.Zero(t, del.SQLDeleted)
	assert.Zero(t, del.VectorChunksDeleted)

	_, err = f.store.GetDocument(ctx, "alice", result.DocumentID)
	assert.NoError(t, err)
}

func TestResetTenant(t *testing.T) {
	f := newFixture(t, &hashEmbedder{})
	ctx := context.Background()

	_, err := f.orch.Ingest(ctx, "alice", "a.txt", []byte("Document for alice with some content."))
	require.NoError(t, err)
	_, err = f.orch.Ingest(ctx, "bob", "b.txt", []byte("Document for bob with some content."))
	require.NoError(t, err)

	require.NoError(t, f.orch.ResetTenant(ctx, "alice"))

	stats, err := f.orch.Stats(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, stats.Documents)
	assert.Zero(t, stats.Chunks)

	stats, err = f.orch.Stats(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Documents)
}

func TestResetAll_PurgesQueryLog(t *testing.T) {
	f := newFixture(t, &hashEmbedder{})
	ctx := context.Background()

	_, err := f.orch.Ingest(ctx, "alice", "a.txt", []byte("Document for alice with some content."))
	require.NoError(t, err)
	require.NoError(t, f.store.LogQuery(ctx, &store.QueryRecord{
		TenantID: "alice", Question: "q", Answer: "a",
	}))

	require.NoError(t, f.orch.ResetAll(ctx))

	assert.Zero(t, f.index.Count())
	qstats, err := f.store.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, qstats.TotalQueries)
}

func TestStats(t *testing.T) {
	f := newFixture(t, &hashEmbedder{})
	ctx := context.Background()

	result, err := f.orch.Ingest(ctx, "alice", "a.txt",
		[]byte(strings.Repeat("Sentences to fill several chunks of text. ", 10)))
	require.NoError(t, err)

	stats, err := f.orch.Stats(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", stats.TenantID)
	assert.Equal(t, int64(1), stats.Documents)
	assert.Equal(t, result.ChunkCount, stats.Chunks)
	assert.Equal(t, 1, stats.VectorDocuments)
}

func backdateDocument(t *testing.T, s *store.Store, id int64, age time.Duration) {
	t.Helper()
	_, err := s.DB().Exec(`UPDATE documents SET created_at = ? WHERE id = ?`,
		time.Now().Add(-age).UTC().Unix(), id)
	require.NoError(t, err)
}

func TestChecker_CleanStores(t *testing.T) {
	f := newFixture(t, &hashEmbedder{})
	ctx := context.Background()

	_, err := f.orch.Ingest(ctx, "alice", "a.txt", []byte("Document for alice with some content."))
	require.NoError(t, err)

	checker := NewChecker(f.store, f.index, time.Minute, nil)
	report, err := checker.Check(ctx)
	require.NoError(t, err)
	assert.True(t, report.Consistent())
	assert.Equal(t, 1, report.Documents)
	assert.Equal(t, 1, report.VectorDocs)
}

func TestChecker_StalePending(t *testing.T) {
	f := newFixture(t, &hashEmbedder{})
	ctx := context.Background()

	id, err := f.store.CreateDocument(ctx, "alice", "stuck.txt", 100)
	require.NoError(t, err)
	backdateDocument(t, f.store, id, time.Hour)

	checker := NewChecker(f.store, f.index, time.Minute, nil)
	report, err := checker.Check(ctx)
	require.NoError(t, err)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, IssueStalePending, report.Issues[0].Kind)

	repaired, err := checker.Repair(ctx, report)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)

	report, err = checker.Check(ctx)
	require.NoError(t, err)
	assert.True(t, report.Consistent())
}

func TestChecker_RecentPendingNotFlagged(t *testing.T) {
	f := newFixture(t, &hashEmbedder{})
	ctx := context.Background()

	_, err := f.store.CreateDocument(ctx, "alice", "inflight.txt", 100)
	require.NoError(t, err)

	checker := NewChecker(f.store, f.index, time.Hour, nil)
	report, err := checker.Check(ctx)
	require.NoError(t, err)
	assert.True(t, report.Consistent(), "an ingestion still in flight is not an issue")
}

func TestChecker_MissingVectors(t *testing.T) {
	f := newFixture(t, &hashEmbedder{})
	ctx := context.Background()

	id, err := f.store.CreateDocument(ctx, "alice", "lost.txt", 100)
	require.NoError(t, err)
	require.NoError(t, f.store.MarkIndexed(ctx, id, 5))

	checker := NewChecker(f.store, f.index, time.Minute, nil)
	report, err := checker.Check(ctx)
	require.NoError(t, err)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, IssueMissingVectors, report.Issues[0].Kind)

	_, err = checker.Repair(ctx, report)
	require.NoError(t, err)

	_, err = f.store.GetDocument(ctx, "alice", id)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestChecker_OrphanChunks(t *testing.T) {
	f := newFixture(t, &hashEmbedder{})
	ctx := context.Background()

	_, err := f.index.InsertBatch(ctx,
		[]vecindex.Record{{TenantID: "alice", DocumentID: 99, Filename: "ghost.txt", ChunkIndex: 0, Text: "ghost"}},
		[][]float32{{1, 2, 3, 4}})
	require.NoError(t, err)

	checker := NewChecker(f.store, f.index, time.Minute, nil)
	report, err := checker.Check(ctx)
	require.NoError(t, err)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, IssueOrphanChunks, report.Issues[0].Kind)

	repaired, err := checker.Repair(ctx, report)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)
	assert.Zero(t, f.index.Count())
}

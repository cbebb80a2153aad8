package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateAndGetDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateDocument(ctx, "alice", "notes.txt", 1234)
	require.NoError(t, err)
	require.Positive(t, id)

	doc, err := s.GetDocument(ctx, "alice", id)
	require.NoError(t, err)
	assert.Equal(t, "alice", doc.TenantID)
	assert.Equal(t, "notes.txt", doc.Filename)
	assert.Equal(t, int64(1234), doc.ByteSize)
	assert.Equal(t, StatusPending, doc.Status)
	assert.Equal(t, 0, doc.ChunkCount)
	assert.False(t, doc.CreatedAt.IsZero())
}

func TestGetDocument_TenantScoped(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateDocument(ctx, "alice", "notes.txt", 100)
	require.NoError(t, err)

	_, err = s.GetDocument(ctx, "bob", id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkIndexed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateDocument(ctx, "alice", "notes.txt", 100)
	require.NoError(t, err)

	require.NoError(t, s.MarkIndexed(ctx, id, 7))

	doc, err := s.GetDocument(ctx, "alice", id)
	require.NoError(t, err)
	assert.Equal(t, StatusIndexed, doc.Status)
	assert.Equal(t, 7, doc.ChunkCount)
}

func TestMarkIndexed_MissingDocument(t *testing.T) {
	s := newTestStore(t)

	err := s.MarkIndexed(context.Background(), 9999, 3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListDocuments_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.CreateDocument(ctx, "alice", "a.txt", 1)
	require.NoError(t, err)
	second, err := s.CreateDocument(ctx, "alice", "b.txt", 2)
	require.NoError(t, err)
	_, err = s.CreateDocument(ctx, "bob", "c.txt", 3)
	require.NoError(t, err)

	docs, err := s.ListDocuments(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, second, docs[0].ID)
	assert.Equal(t, first, docs[1].ID)
}

func TestListDocuments_EmptyTenant(t *testing.T) {
	s := newTestStore(t)

	docs, err := s.ListDocuments(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestDeleteDocument_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateDocument(ctx, "alice", "notes.txt", 100)
	require.NoError(t, err)

	deleted, err := s.DeleteDocument(ctx, "alice", id)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.DeleteDocument(ctx, "alice", id)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestDeleteDocument_WrongTenantIsNoop(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateDocument(ctx, "alice", "notes.txt", 100)
	require.NoError(t, err)

	deleted, err := s.DeleteDocument(ctx, "bob", id)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = s.GetDocument(ctx, "alice", id)
	assert.NoError(t, err)
}

func TestDeleteTenantDocuments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateDocument(ctx, "alice", "a.txt", 1)
	require.NoError(t, err)
	_, err = s.CreateDocument(ctx, "alice", "b.txt", 2)
	require.NoError(t, err)
	_, err = s.CreateDocument(ctx, "bob", "c.txt", 3)
	require.NoError(t, err)

	n, err := s.DeleteTenantDocuments(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	count, err := s.CountDocuments(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestLogQueryAndRecent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	conf := 0.8
	rec := &QueryRecord{
		TenantID:     "alice",
		Question:     "what is in the report?",
		Answer:       "The report covers quarterly results.",
		ResponseTime: 1.25,
		Confidence:   &conf,
		Sources:      []string{"report.txt", "notes.txt"},
	}
	require.NoError(t, s.LogQuery(ctx, rec))
	assert.Positive(t, rec.ID)

	records, err := s.RecentQueries(ctx, "alice", 5)
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records[0]
	assert.Equal(t, rec.Question, got.Question)
	assert.Equal(t, rec.Answer, got.Answer)
	assert.InDelta(t, 1.25, got.ResponseTime, 1e-9)
	require.NotNil(t, got.Confidence)
	assert.InDelta(t, 0.8, *got.Confidence, 1e-9)
	assert.Equal(t, []string{"report.txt", "notes.txt"}, got.Sources)
}

func TestLogQuery_NilConfidenceAndNoSources(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.LogQuery(ctx, &QueryRecord{
		TenantID:     "alice",
		Question:     "anything?",
		Answer:       "No relevant documents found.",
		ResponseTime: 0.1,
	}))

	records, err := s.RecentQueries(ctx, "alice", 5)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].Confidence)
	assert.Empty(t, records[0].Sources)
}

func TestRecentQueries_OrderAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.LogQuery(ctx, &QueryRecord{
			TenantID: "alice",
			Question: "q",
			Answer:   "a",
		}))
	}

	records, err := s.RecentQueries(ctx, "alice", 3)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Greater(t, records[0].ID, records[1].ID)
	assert.Greater(t, records[1].ID, records[2].ID)
}

func TestQueryStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.LogQuery(ctx, &QueryRecord{TenantID: "alice", Question: "q", Answer: "a", ResponseTime: 1.0}))
	require.NoError(t, s.LogQuery(ctx, &QueryRecord{TenantID: "alice", Question: "q", Answer: "a", ResponseTime: 3.0}))
	require.NoError(t, s.LogQuery(ctx, &QueryRecord{TenantID: "bob", Question: "q", Answer: "a", ResponseTime: 2.0}))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalQueries)
	assert.Equal(t, int64(2), stats.UniqueTenants)
	assert.InDelta(t, 2.0, stats.AvgResponseTime, 1e-9)
}

func TestQueryStats_EmptyLog(t *testing.T) {
	s := newTestStore(t)

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalQueries)
	assert.Zero(t, stats.AvgResponseTime)
}

func TestPurge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.LogQuery(ctx, &QueryRecord{TenantID: "alice", Question: "q", Answer: "a"}))
	require.NoError(t, s.LogQuery(ctx, &QueryRecord{TenantID: "bob", Question: "q", Answer: "a"}))

	n, err := s.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalQueries)
}

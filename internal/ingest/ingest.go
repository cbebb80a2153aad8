// Package ingest coordinates document ingestion across the metadata store and
// the vector index.
//
// Ingestion is a two-store operation with no shared transaction, so the
// orchestrator writes in a fixed order (metadata row first, vectors second,
// status flip last) and compensates on failure by deleting whatever was
// already written. A document is only visible as indexed when both stores
// agree.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/askpile/askpile/internal/chunk"
	"github.com/askpile/askpile/internal/embed"
	askerrors "github.com/askpile/askpile/internal/errors"
	"github.com/askpile/askpile/internal/extract"
	"github.com/askpile/askpile/internal/store"
	"github.com/askpile/askpile/internal/vecindex"
)

// embedConcurrency bounds parallel embedding batches.
const embedConcurrency = 4

// Options configures the orchestrator.
type Options struct {
	ChunkSize      int
	ChunkOverlap   int
	MaxFileSizeMB  int
	EmbedBatchSize int
}

// Result describes a completed ingestion.
type Result struct {
	DocumentID     int64   `json:"document_id"`
	Filename       string  `json:"filename"`
	ByteSize       int64   `json:"byte_size"`
	ChunkCount     int     `json:"chunk_count"`
	ProcessingTime float64 `json:"processing_time"`
}

// DeleteResult reports what a delete actually removed from each store.
type DeleteResult struct {
	SQLDeleted          int `json:"sql_deleted"`
	VectorChunksDeleted int `json:"vector_chunks_deleted"`
}

// Stats summarizes one tenant's corpus.
type Stats struct {
	TenantID        string `json:"tenant_id"`
	Documents       int64  `json:"documents"`
	Chunks          int    `json:"chunks"`
	VectorDocuments int    `json:"vector_documents"`
}

// Orchestrator runs ingestion, deletion, and reset against both stores.
type Orchestrator struct {
	docs       store.DocumentStore
	queries    store.QueryLog
	index      *vecindex.Index
	embedder   embed.Embedder
	extractors *extract.Registry
	opts       Options
	logger     *slog.Logger
}

// New creates an orchestrator. queries may be nil when no query log exists.
func New(docs store.DocumentStore, queries store.QueryLog, index *vecindex.Index,
	embedder embed.Embedder, extractors *extract.Registry, opts Options, logger *slog.Logger) *Orchestrator {

	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 1000
	}
	if opts.ChunkOverlap < 0 {
		opts.ChunkOverlap = 0
	}
	if opts.MaxFileSizeMB <= 0 {
		opts.MaxFileSizeMB = 10
	}
	if opts.EmbedBatchSize <= 0 {
		opts.EmbedBatchSize = embed.DefaultBatchSize
	}
	if extractors == nil {
		extractors = extract.NewRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		docs:       docs,
		queries:    queries,
		index:      index,
		embedder:   embedder,
		extractors: extractors,
		opts:       opts,
		logger:     logger,
	}
}

// Ingest extracts, chunks, embeds, and indexes one document for a tenant.
//
// On any failure after the metadata row exists, the row and any vectors
// already written are removed before the error is returned. Ingestion is
// all-or-nothing from the caller's point of view.
func (o *Orchestrator) Ingest(ctx context.Context, tenantID, filename string, data []byte) (*Result, error) {
	if tenantID == "" {
		return nil, askerrors.ValidationError("tenant_id must not be empty", nil)
	}
	if filename == "" {
		return nil, askerrors.ValidationError("filename must not be empty", nil)
	}

	maxBytes := int64(o.opts.MaxFileSizeMB) * 1024 * 1024
	if int64(len(data)) > maxBytes {
		return nil, askerrors.New(askerrors.ErrCodeFileTooLarge,
			fmt.Sprintf("%s is %d bytes, limit is %d MB", filename, len(data), o.opts.MaxFileSizeMB), nil)
	}

	start := time.Now()
	opID := uuid.NewString()
	log := o.logger.With(
		slog.String("operation_id", opID),
		slog.String("tenant_id", tenantID),
		slog.String("filename", filename))

	text, err := o.extractors.Extract(filename, data)
	if err != nil {
		return nil, err
	}

	chunks, err := chunk.Split(text, o.opts.ChunkSize, o.opts.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	docID, err := o.docs.CreateDocument(ctx, tenantID, filename, int64(len(data)))
	if err != nil {
		return nil, err
	}
	log = log.With(slog.Int64("document_id", docID))

	if len(chunks) == 0 {
		o.compensate(ctx, log, tenantID, docID)
		return nil, askerrors.ExtractionError(
			fmt.Sprintf("%s produced no text chunks", filename), nil)
	}

	vectors, err := o.embedChunks(ctx, chunks)
	if err != nil {
		o.compensate(ctx, log, tenantID, docID)
		return nil, err
	}

	records := make([]vecindex.Record, len(chunks))
	for i, c := range chunks {
		records[i] = vecindex.Record{
			TenantID:   tenantID,
			DocumentID: docID,
			Filename:   filename,
			ChunkIndex: i,
			Text:       c,
		}
	}

	if _, err := o.index.InsertBatch(ctx, records, vectors); err != nil {
		o.compensate(ctx, log, tenantID, docID)
		return nil, err
	}

	if err := o.docs.MarkIndexed(ctx, docID, len(chunks)); err != nil {
		o.compensate(ctx, log, tenantID, docID)
		return nil, err
	}

	elapsed := time.Since(start)
	log.Info("document ingested",
		slog.Int("chunks", len(chunks)),
		slog.Duration("elapsed", elapsed))

	return &Result{
		DocumentID:     docID,
		Filename:       filename,
		ByteSize:       int64(len(data)),
		ChunkCount:     len(chunks),
		ProcessingTime: elapsed.Seconds(),
	}, nil
}

// embedChunks embeds chunk texts in bounded parallel batches.
func (o *Orchestrator) embedChunks(ctx context.Context, chunks []string) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	batchSize := o.opts.EmbedBatchSize
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		start, end := start, end

		g.Go(func() error {
			batch, err := o.embedder.EmbedBatch(gctx, chunks[start:end])
			if err != nil {
				return err
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// compensate undoes a partial ingestion. The metadata row is removed first so
// the document stops being visible; leftover vectors are cleaned best effort
// and otherwise picked up by the consistency checker.
func (o *Orchestrator) compensate(ctx context.Context, log *slog.Logger, tenantID string, docID int64) {
	if _, err := o.docs.DeleteDocument(ctx, tenantID, docID); err != nil {
		log.Error("compensation failed to delete document row",
			slog.String("error", err.Error()))
	}
	if _, err := o.index.DeleteDocument(ctx, tenantID, docID); err != nil {
		log.Warn("compensation failed to delete vectors",
			slog.String("error", err.Error()))
	}
	log.Warn("ingestion rolled back")
}

// Delete removes one document from both stores.
//
// Vectors are removed first; a vector-side failure is logged but does not stop
// the metadata delete, because a dangling metadata row is worse than orphan
// vectors (the consistency checker reclaims the latter). Deleting a missing
// document is not an error.
func (o *Orchestrator) Delete(ctx context.Context, tenantID string, docID int64) (*DeleteResult, error) {
	if tenantID == "" {
		return nil, askerrors.ValidationError("tenant_id must not be empty", nil)
	}

	result := &DeleteResult{}

	n, err := o.index.DeleteDocument(ctx, tenantID, docID)
	if err != nil {
		o.logger.Warn("vector delete failed, continuing with metadata delete",
			slog.String("tenant_id", tenantID),
			slog.Int64("document_id", docID),
			slog.String("error", err.Error()))
	} else {
		result.VectorChunksDeleted = n
	}

	deleted, err := o.docs.DeleteDocument(ctx, tenantID, docID)
	if err != nil {
		return nil, err
	}
	if deleted {
		result.SQLDeleted = 1
	}

	o.logger.Info("document deleted",
		slog.String("tenant_id", tenantID),
		slog.Int64("document_id", docID),
		slog.Int("sql_deleted", result.SQLDeleted),
		slog.Int("vector_chunks_deleted", result.VectorChunksDeleted))

	return result, nil
}

// ResetTenant removes every document a tenant owns from both stores.
func (o *Orchestrator) ResetTenant(ctx context.Context, tenantID string) error {
	if tenantID == "" {
		return askerrors.ValidationError("tenant_id must not be empty", nil)
	}

	chunks, err := o.index.DeleteTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	docs, err := o.docs.DeleteTenantDocuments(ctx, tenantID)
	if err != nil {
		return err
	}

	o.logger.Info("tenant reset",
		slog.String("tenant_id", tenantID),
		slog.Int64("documents", docs),
		slog.Int("chunks", chunks))
	return nil
}

// ResetAll wipes both stores and the query log for every tenant.
func (o *Orchestrator) ResetAll(ctx context.Context) error {
	if err := o.index.Reset(ctx); err != nil {
		return err
	}
	if _, err := o.docs.DeleteAllDocuments(ctx); err != nil {
		return err
	}
	if o.queries != nil {
		if _, err := o.queries.Purge(ctx); err != nil {
			return err
		}
	}

	o.logger.Info("all data reset")
	return nil
}

// Stats summarizes one tenant's documents and index usage.
func (o *Orchestrator) Stats(ctx context.Context, tenantID string) (*Stats, error) {
	if tenantID == "" {
		return nil, askerrors.ValidationError("tenant_id must not be empty", nil)
	}

	docs, err := o.docs.ListDocuments(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	idxStats, err := o.index.TenantStats(tenantID)
	if err != nil {
		return nil, err
	}

	return &Stats{
		TenantID:        tenantID,
		Documents:       int64(len(docs)),
		Chunks:          idxStats.TotalChunks,
		VectorDocuments: idxStats.UniqueDocuments,
	}, nil
}

package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/askpile/askpile/internal/store"
	"github.com/askpile/askpile/internal/vecindex"
)

// DefaultStalePendingAge is how long a document may stay pending before it is
// considered an interrupted ingestion.
const DefaultStalePendingAge = 10 * time.Minute

// Issue kinds reported by the consistency checker.
const (
	IssueStalePending   = "stale_pending"
	IssueMissingVectors = "missing_vectors"
	IssueOrphanChunks   = "orphan_chunks"
)

// Issue is one inconsistency between the metadata store and the vector index.
type Issue struct {
	Kind       string `json:"kind"`
	TenantID   string `json:"tenant_id"`
	DocumentID int64  `json:"document_id"`
	Detail     string `json:"detail"`
}

// Report is the outcome of a consistency check.
type Report struct {
	Issues     []Issue   `json:"issues"`
	CheckedAt  time.Time `json:"checked_at"`
	Documents  int       `json:"documents"`
	VectorDocs int       `json:"vector_docs"`
}

// Consistent reports whether the two stores agree.
func (r *Report) Consistent() bool {
	return len(r.Issues) == 0
}

// Checker reconciles the metadata store against the vector index.
//
// Both stores are written without a shared transaction, so a crash between
// writes leaves one of three traces: a pending row whose ingestion never
// finished, an indexed row whose vectors are gone, or vectors whose row is
// gone. All three converge by deletion; re-ingesting the document restores it.
type Checker struct {
	docs   store.DocumentStore
	index  *vecindex.Index
	maxAge time.Duration
	logger *slog.Logger
}

// NewChecker creates a checker. maxAge below or equal to zero uses
// DefaultStalePendingAge.
func NewChecker(docs store.DocumentStore, index *vecindex.Index, maxAge time.Duration, logger *slog.Logger) *Checker {
	if maxAge <= 0 {
		maxAge = DefaultStalePendingAge
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{docs: docs, index: index, maxAge: maxAge, logger: logger}
}

// Check scans both stores and reports every inconsistency without changing
// anything.
func (c *Checker) Check(ctx context.Context) (*Report, error) {
	docs, err := c.docs.ListAllDocuments(ctx)
	if err != nil {
		return nil, err
	}

	vectorCounts := c.index.DocumentCounts()

	report := &Report{
		Issues:    []Issue{},
		CheckedAt: time.Now().UTC(),
		Documents: len(docs),
	}
	for _, byDoc := range vectorCounts {
		report.VectorDocs += len(byDoc)
	}

	known := make(map[string]map[int64]bool, len(docs))
	cutoff := time.Now().Add(-c.maxAge)

	for _, doc := range docs {
		if known[doc.TenantID] == nil {
			known[doc.TenantID] = make(map[int64]bool)
		}
		known[doc.TenantID][doc.ID] = true

		switch doc.Status {
		case store.StatusPending:
			if doc.CreatedAt.Before(cutoff) {
				report.Issues = append(report.Issues, Issue{
					Kind:       IssueStalePending,
					TenantID:   doc.TenantID,
					DocumentID: doc.ID,
					Detail:     fmt.Sprintf("pending since %s", doc.CreatedAt.Format(time.RFC3339)),
				})
			}
		case store.StatusIndexed:
			if vectorCounts[doc.TenantID][doc.ID] == 0 {
				report.Issues = append(report.Issues, Issue{
					Kind:       IssueMissingVectors,
					TenantID:   doc.TenantID,
					DocumentID: doc.ID,
					Detail:     fmt.Sprintf("indexed with %d recorded chunks but none in the vector index", doc.ChunkCount),
				})
			}
		}
	}

	for tenantID, byDoc := range vectorCounts {
		for docID, count := range byDoc {
			if !known[tenantID][docID] {
				report.Issues = append(report.Issues, Issue{
					Kind:       IssueOrphanChunks,
					TenantID:   tenantID,
					DocumentID: docID,
					Detail:     fmt.Sprintf("%d vector chunks without a metadata row", count),
				})
			}
		}
	}

	return report, nil
}

// Repair removes every inconsistency in the report. Returns the number of
// issues repaired.
func (c *Checker) Repair(ctx context.Context, report *Report) (int, error) {
	repaired := 0
	for _, issue := range report.Issues {
		log := c.logger.With(
			slog.String("kind", issue.Kind),
			slog.String("tenant_id", issue.TenantID),
			slog.Int64("document_id", issue.DocumentID))

		switch issue.Kind {
		case IssueStalePending, IssueMissingVectors:
			if _, err := c.docs.DeleteDocument(ctx, issue.TenantID, issue.DocumentID); err != nil {
				return repaired, err
			}
			if _, err := c.index.DeleteDocument(ctx, issue.TenantID, issue.DocumentID); err != nil {
				return repaired, err
			}
		case IssueOrphanChunks:
			if _, err := c.index.DeleteDocument(ctx, issue.TenantID, issue.DocumentID); err != nil {
				return repaired, err
			}
		default:
			log.Warn("unknown issue kind, skipping")
			continue
		}

		log.Info("inconsistency repaired")
		repaired++
	}
	return repaired, nil
}

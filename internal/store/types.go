// Package store persists document metadata and the query log in SQLite.
package store

import (
	"context"
	"errors"
	"time"
)

// Document status values. A document is pending between metadata creation and
// successful vector indexing; the consistency checker treats stale pending
// rows as interrupted ingestions.
const (
	StatusPending = "pending"
	StatusIndexed = "indexed"
)

// ErrNotFound is returned when a document does not exist for the tenant.
var ErrNotFound = errors.New("document not found")

// Document is one ingested document's metadata row.
type Document struct {
	ID         int64     `json:"id"`
	TenantID   string    `json:"tenant_id"`
	Filename   string    `json:"filename"`
	ByteSize   int64     `json:"byte_size"`
	ChunkCount int       `json:"chunk_count"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// QueryRecord is one logged question/answer exchange.
type QueryRecord struct {
	ID           int64     `json:"id"`
	TenantID     string    `json:"tenant_id"`
	Question     string    `json:"question"`
	Answer       string    `json:"answer"`
	ResponseTime float64   `json:"response_time"`
	Confidence   *float64  `json:"confidence,omitempty"`
	Sources      []string  `json:"sources"`
	CreatedAt    time.Time `json:"created_at"`
}

// QueryStats aggregates the query log.
type QueryStats struct {
	TotalQueries    int64   `json:"total_queries"`
	UniqueTenants   int64   `json:"unique_tenants"`
	AvgResponseTime float64 `json:"avg_response_time"`
}

// DocumentStore persists document metadata.
type DocumentStore interface {
	// CreateDocument inserts a pending document row and returns its ID.
	CreateDocument(ctx context.Context, tenantID, filename string, byteSize int64) (int64, error)

	// MarkIndexed transitions a document to indexed with its chunk count.
	MarkIndexed(ctx context.Context, id int64, chunkCount int) error

	// GetDocument returns one document scoped to the tenant.
	// Returns ErrNotFound when the document does not exist for the tenant.
	GetDocument(ctx context.Context, tenantID string, id int64) (*Document, error)

	// ListDocuments returns all of a tenant's documents, newest first.
	ListDocuments(ctx context.Context, tenantID string) ([]*Document, error)

	// ListAllDocuments returns every document row. Used for reconciliation.
	ListAllDocuments(ctx context.Context) ([]*Document, error)

	// DeleteDocument removes one document row scoped to the tenant.
	// Returns whether a row was deleted; deleting a missing row is not an
	// error.
	DeleteDocument(ctx context.Context, tenantID string, id int64) (bool, error)

	// DeleteTenantDocuments removes all of a tenant's rows.
	DeleteTenantDocuments(ctx context.Context, tenantID string) (int64, error)

	// DeleteAllDocuments removes every row. Admin reset only.
	DeleteAllDocuments(ctx context.Context) (int64, error)
}

// QueryLog persists the append-only record of answered questions.
type QueryLog interface {
	// LogQuery appends one query record.
	LogQuery(ctx context.Context, rec *QueryRecord) error

	// RecentQueries returns a tenant's latest records, newest first.
	RecentQueries(ctx context.Context, tenantID string, limit int) ([]*QueryRecord, error)

	// Stats aggregates the whole query log.
	Stats(ctx context.Context) (*QueryStats, error)

	// Purge deletes every query record. Admin reset only.
	Purge(ctx context.Context) (int64, error)
}

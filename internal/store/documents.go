package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	askerrors "github.com/askpile/askpile/internal/errors"
)

// CreateDocument inserts a pending document row and returns its generated ID.
func (s *Store) CreateDocument(ctx context.Context, tenantID, filename string, byteSize int64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (tenant_id, filename, byte_size, chunk_count, status, created_at)
		 VALUES (?, ?, ?, 0, ?, ?)`,
		tenantID, filename, byteSize, StatusPending, time.Now().UTC().Unix())
	if err != nil {
		return 0, askerrors.StoreError("failed to insert document", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, askerrors.StoreError("failed to read inserted document id", err)
	}
	return id, nil
}

// MarkIndexed transitions a document from pending to indexed and records its
// final chunk count.
func (s *Store) MarkIndexed(ctx context.Context, id int64, chunkCount int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET status = ?, chunk_count = ? WHERE id = ?`,
		StatusIndexed, chunkCount, id)
	if err != nil {
		return askerrors.StoreError("failed to mark document indexed", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return askerrors.StoreError("failed to read affected rows", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetDocument returns one document scoped to the tenant.
func (s *Store) GetDocument(ctx context.Context, tenantID string, id int64) (*Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, filename, byte_size, chunk_count, status, created_at
		 FROM documents WHERE tenant_id = ? AND id = ?`,
		tenantID, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, askerrors.StoreError("failed to read document", err)
	}
	return doc, nil
}

// ListDocuments returns all of a tenant's documents, newest first.
func (s *Store) ListDocuments(ctx context.Context, tenantID string) ([]*Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_id, filename, byte_size, chunk_count, status, created_at
		 FROM documents WHERE tenant_id = ? ORDER BY created_at DESC, id DESC`,
		tenantID)
	if err != nil {
		return nil, askerrors.StoreError("failed to list documents", err)
	}
	defer func() { _ = rows.Close() }()

	return collectDocuments(rows)
}

// ListAllDocuments returns every document row across all tenants.
func (s *Store) ListAllDocuments(ctx context.Context) ([]*Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_id, filename, byte_size, chunk_count, status, created_at
		 FROM documents ORDER BY id`)
	if err != nil {
		return nil, askerrors.StoreError("failed to list documents", err)
	}
	defer func() { _ = rows.Close() }()

	return collectDocuments(rows)
}

// DeleteDocument removes one document row scoped to the tenant. Returns
// whether a row was actually deleted.
func (s *Store) DeleteDocument(ctx context.Context, tenantID string, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE tenant_id = ? AND id = ?`,
		tenantID, id)
	if err != nil {
		return false, askerrors.StoreError("failed to delete document", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, askerrors.StoreError("failed to read affected rows", err)
	}
	return n > 0, nil
}

// DeleteTenantDocuments removes all of a tenant's document rows.
func (s *Store) DeleteTenantDocuments(ctx context.Context, tenantID string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE tenant_id = ?`, tenantID)
	if err != nil {
		return 0, askerrors.StoreError("failed to delete tenant documents", err)
	}
	return res.RowsAffected()
}

// DeleteAllDocuments removes every document row.
func (s *Store) DeleteAllDocuments(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents`)
	if err != nil {
		return 0, askerrors.StoreError("failed to delete documents", err)
	}
	return res.RowsAffected()
}

// CountDocuments returns the number of document rows for one tenant.
func (s *Store) CountDocuments(ctx context.Context, tenantID string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE tenant_id = ?`, tenantID).Scan(&n)
	if err != nil {
		return 0, askerrors.StoreError("failed to count documents", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var doc Document
	var createdAt int64
	err := row.Scan(&doc.ID, &doc.TenantID, &doc.Filename, &doc.ByteSize,
		&doc.ChunkCount, &doc.Status, &createdAt)
	if err != nil {
		return nil, err
	}
	doc.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &doc, nil
}

func collectDocuments(rows *sql.Rows) ([]*Document, error) {
	docs := []*Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, askerrors.StoreError("failed to scan document row", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, askerrors.StoreError("failed to iterate document rows", err)
	}
	return docs, nil
}

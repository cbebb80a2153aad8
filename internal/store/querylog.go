package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	askerrors "github.com/askpile/askpile/internal/errors"
)

// LogQuery appends one query record. CreatedAt is set if zero.
func (s *Store) LogQuery(ctx context.Context, rec *QueryRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var confidence sql.NullFloat64
	if rec.Confidence != nil {
		confidence = sql.NullFloat64{Float64: *rec.Confidence, Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO query_logs (tenant_id, question, answer, response_time, confidence, sources, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.TenantID, rec.Question, rec.Answer, rec.ResponseTime,
		confidence, strings.Join(rec.Sources, ","), createdAt.Unix())
	if err != nil {
		return askerrors.StoreError("failed to insert query record", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		rec.ID = id
	}
	rec.CreatedAt = createdAt
	return nil
}

// RecentQueries returns a tenant's latest records, newest first.
// A limit below 1 defaults to 10.
func (s *Store) RecentQueries(ctx context.Context, tenantID string, limit int) ([]*QueryRecord, error) {
	if limit < 1 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_id, question, answer, response_time, confidence, sources, created_at
		 FROM query_logs WHERE tenant_id = ? ORDER BY id DESC LIMIT ?`,
		tenantID, limit)
	if err != nil {
		return nil, askerrors.StoreError("failed to query history", err)
	}
	defer func() { _ = rows.Close() }()

	records := []*QueryRecord{}
	for rows.Next() {
		var rec QueryRecord
		var confidence sql.NullFloat64
		var sources string
		var createdAt int64

		err := rows.Scan(&rec.ID, &rec.TenantID, &rec.Question, &rec.Answer,
			&rec.ResponseTime, &confidence, &sources, &createdAt)
		if err != nil {
			return nil, askerrors.StoreError("failed to scan query record", err)
		}

		if confidence.Valid {
			v := confidence.Float64
			rec.Confidence = &v
		}
		rec.Sources = splitSources(sources)
		rec.CreatedAt = time.Unix(createdAt, 0).UTC()
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, askerrors.StoreError("failed to iterate query records", err)
	}
	return records, nil
}

// Stats aggregates the whole query log.
func (s *Store) Stats(ctx context.Context) (*QueryStats, error) {
	var stats QueryStats
	var avg sql.NullFloat64

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT tenant_id), AVG(response_time) FROM query_logs`).
		Scan(&stats.TotalQueries, &stats.UniqueTenants, &avg)
	if err != nil {
		return nil, askerrors.StoreError("failed to aggregate query log", err)
	}

	if avg.Valid {
		stats.AvgResponseTime = avg.Float64
	}
	return &stats, nil
}

// Purge deletes every query record and returns the number removed.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM query_logs`)
	if err != nil {
		return 0, askerrors.StoreError("failed to purge query log", err)
	}
	return res.RowsAffected()
}

func splitSources(joined string) []string {
	if joined == "" {
		return []string{}
	}
	return strings.Split(joined, ",")
}

// Package vecindex provides a tenant-scoped vector index for document chunks.
//
// The index stores one embedding per chunk together with a payload describing
// the chunk's owner (tenant and document). All reads and writes are scoped to
// a tenant; one tenant can never observe another tenant's chunks.
//
// Built on coder/hnsw (pure Go, no CGO). Deletions are lazy: the node stays in
// the graph but is removed from the ID mappings, so it never appears in
// results. This avoids graph corruption when deleting the last node.
package vecindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/coder/hnsw"

	askerrors "github.com/askpile/askpile/internal/errors"
)

// Config configures the vector index.
type Config struct {
	// Dimensions is the embedding dimension. All vectors must match.
	Dimensions int
	// M is the maximum number of graph connections per node.
	M int
	// EfSearch controls search quality vs speed.
	EfSearch int
}

// Record is the payload stored alongside each chunk embedding.
type Record struct {
	TenantID   string
	DocumentID int64
	Filename   string
	ChunkIndex int
	Text       string
}

// SearchResult is one retrieved chunk with its similarity score.
type SearchResult struct {
	ChunkID string
	// Score is 1 - cosine distance. Identical vectors score 1.0.
	Score  float32
	Record Record
}

// TenantStats summarizes a tenant's slice of the index.
type TenantStats struct {
	TotalChunks     int `json:"total_chunks"`
	UniqueDocuments int `json:"unique_documents"`
}

// Stats contains whole-index statistics including lazy-deletion orphans.
type Stats struct {
	ValidChunks int // Number of live chunk mappings
	GraphNodes  int // Total nodes in the HNSW graph (includes orphans)
	Orphans     int // GraphNodes - ValidChunks (lazy-deleted nodes)
}

// ChunkID builds the deterministic chunk identifier for a tenant, document,
// and chunk position. Re-ingesting a document overwrites the same IDs.
func ChunkID(tenantID string, documentID int64, index int) string {
	return fmt.Sprintf("%s_%d_%d", tenantID, documentID, index)
}

// Index is the tenant-scoped HNSW vector index.
type Index struct {
	mu     sync.RWMutex
	graph  *hnsw.Graph[uint64]
	config Config

	// ID mapping (chunk ID <-> internal key)
	idMap    map[string]uint64
	keyMap   map[uint64]string
	payloads map[string]Record
	nextKey  uint64

	closed bool
}

// New creates a new vector index.
func New(cfg Config) (*Index, error) {
	if cfg.Dimensions <= 0 {
		return nil, askerrors.ConfigError(
			fmt.Sprintf("vector dimensions must be positive, got %d", cfg.Dimensions), nil)
	}
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 20
	}

	idx := &Index{
		config:   cfg,
		idMap:    make(map[string]uint64),
		keyMap:   make(map[uint64]string),
		payloads: make(map[string]Record),
	}
	idx.graph = newGraph(cfg)

	return idx, nil
}

// newGraph builds a cosine-distance HNSW graph with the configured parameters.
func newGraph(cfg Config) *hnsw.Graph[uint64] {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25
	return graph
}

// InsertBatch inserts chunk records with their embeddings. Existing chunk IDs
// are overwritten (lazy delete + add), making re-ingestion idempotent.
// Returns the number of chunks written.
func (x *Index) InsertBatch(ctx context.Context, records []Record, vectors [][]float32) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	if len(records) != len(vectors) {
		return 0, askerrors.IndexWriteError(
			fmt.Sprintf("records and vectors length mismatch: %d vs %d",
				len(records), len(vectors)), nil)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return 0, askerrors.IndexWriteError("index is closed", nil)
	}

	for _, v := range vectors {
		if len(v) != x.config.Dimensions {
			return 0, askerrors.New(askerrors.ErrCodeDimensionMismatch,
				fmt.Sprintf("expected %d dimensions, got %d", x.config.Dimensions, len(v)), nil)
		}
	}

	for i, rec := range records {
		select {
		case <-ctx.Done():
			return i, ctx.Err()
		default:
		}

		id := ChunkID(rec.TenantID, rec.DocumentID, rec.ChunkIndex)

		// Lazy deletion: orphan the old key instead of removing the node.
		if existingKey, exists := x.idMap[id]; exists {
			delete(x.keyMap, existingKey)
			delete(x.idMap, id)
		}

		key := x.nextKey
		x.nextKey++

		// Normalize a copy for cosine similarity
		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		normalizeVectorInPlace(vec)

		node := hnsw.MakeNode(key, vec)
		x.graph.Add(node)

		x.idMap[id] = key
		x.keyMap[key] = id
		x.payloads[id] = rec
	}

	return len(records), nil
}

// Search finds the topK chunks most similar to query within a single tenant.
// Results are ordered by descending score. An empty tenant slice returns an
// empty (non-nil) result set, never an error.
func (x *Index) Search(ctx context.Context, tenantID string, query []float32, topK int) ([]SearchResult, error) {
	if topK < 1 {
		return nil, askerrors.ValidationError(
			fmt.Sprintf("top_k must be at least 1, got %d", topK), nil)
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.closed {
		return nil, askerrors.IndexReadError("index is closed", nil)
	}

	if len(query) != x.config.Dimensions {
		return nil, askerrors.New(askerrors.ErrCodeDimensionMismatch,
			fmt.Sprintf("expected %d dimensions, got %d", x.config.Dimensions, len(query)), nil)
	}

	if x.graph.Len() == 0 {
		return []SearchResult{}, nil
	}

	normalizedQuery := make([]float32, len(query))
	copy(normalizedQuery, query)
	normalizeVectorInPlace(normalizedQuery)

	// The graph is shared between tenants, so a k-NN probe can surface
	// other tenants' nodes. Over-fetch and widen until enough chunks for
	// this tenant are found or the whole graph has been scanned.
	fetch := topK * 2
	var results []SearchResult
	for {
		if fetch > x.graph.Len() {
			fetch = x.graph.Len()
		}

		nodes := x.graph.Search(normalizedQuery, fetch)

		results = results[:0]
		for _, node := range nodes {
			id, exists := x.keyMap[node.Key]
			if !exists {
				continue // lazy-deleted orphan
			}
			rec, ok := x.payloads[id]
			if !ok || rec.TenantID != tenantID {
				continue
			}

			distance := x.graph.Distance(normalizedQuery, node.Value)
			results = append(results, SearchResult{
				ChunkID: id,
				Score:   1.0 - distance,
				Record:  rec,
			})
		}

		if len(results) >= topK || fetch >= x.graph.Len() {
			break
		}
		fetch *= 2
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	if results == nil {
		results = []SearchResult{}
	}
	return results, nil
}

// DeleteDocument removes all chunks of one document. Deleting a document with
// no chunks is not an error; the returned count is 0.
func (x *Index) DeleteDocument(ctx context.Context, tenantID string, documentID int64) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return 0, askerrors.IndexWriteError("index is closed", nil)
	}

	deleted := 0
	for id, rec := range x.payloads {
		if rec.TenantID != tenantID || rec.DocumentID != documentID {
			continue
		}
		x.removeLocked(id)
		deleted++
	}
	return deleted, nil
}

// DeleteTenant removes every chunk belonging to a tenant.
func (x *Index) DeleteTenant(ctx context.Context, tenantID string) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return 0, askerrors.IndexWriteError("index is closed", nil)
	}

	deleted := 0
	for id, rec := range x.payloads {
		if rec.TenantID != tenantID {
			continue
		}
		x.removeLocked(id)
		deleted++
	}
	return deleted, nil
}

// removeLocked lazily deletes one chunk. Caller holds the write lock.
func (x *Index) removeLocked(id string) {
	if key, exists := x.idMap[id]; exists {
		delete(x.keyMap, key)
		delete(x.idMap, id)
	}
	delete(x.payloads, id)
}

// TenantStats returns chunk and document counts for one tenant.
func (x *Index) TenantStats(tenantID string) (TenantStats, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.closed {
		return TenantStats{}, askerrors.IndexReadError("index is closed", nil)
	}

	docs := make(map[int64]struct{})
	total := 0
	for _, rec := range x.payloads {
		if rec.TenantID != tenantID {
			continue
		}
		total++
		docs[rec.DocumentID] = struct{}{}
	}

	return TenantStats{
		TotalChunks:     total,
		UniqueDocuments: len(docs),
	}, nil
}

// DocumentChunkCount returns the number of live chunks for one document.
func (x *Index) DocumentChunkCount(tenantID string, documentID int64) int {
	x.mu.RLock()
	defer x.mu.RUnlock()

	count := 0
	for _, rec := range x.payloads {
		if rec.TenantID == tenantID && rec.DocumentID == documentID {
			count++
		}
	}
	return count
}

// DocumentCounts returns chunk counts grouped by tenant and document.
// Used by the consistency checker to reconcile against the metadata store.
func (x *Index) DocumentCounts() map[string]map[int64]int {
	x.mu.RLock()
	defer x.mu.RUnlock()

	counts := make(map[string]map[int64]int)
	for _, rec := range x.payloads {
		byDoc, ok := counts[rec.TenantID]
		if !ok {
			byDoc = make(map[int64]int)
			counts[rec.TenantID] = byDoc
		}
		byDoc[rec.DocumentID]++
	}
	return counts
}

// Count returns the number of live chunks across all tenants.
func (x *Index) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.closed {
		return 0
	}
	return len(x.idMap)
}

// Stats returns index statistics for compaction decisions.
func (x *Index) Stats() Stats {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.closed {
		return Stats{}
	}

	valid := len(x.idMap)
	nodes := x.graph.Len()
	return Stats{
		ValidChunks: valid,
		GraphNodes:  nodes,
		Orphans:     nodes - valid,
	}
}

// Reset drops every chunk for every tenant and recreates the graph.
// This is the nuclear option behind the admin reset command.
func (x *Index) Reset(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return askerrors.IndexWriteError("index is closed", nil)
	}

	x.graph = newGraph(x.config)
	x.idMap = make(map[string]uint64)
	x.keyMap = make(map[uint64]string)
	x.payloads = make(map[string]Record)
	x.nextKey = 0

	return nil
}

// Close releases resources. Further calls fail.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return nil
	}
	x.closed = true
	x.graph = nil

	return nil
}

// normalizeVectorInPlace normalizes a vector to unit length in place.
func normalizeVectorInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	invMagnitude := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= invMagnitude
	}
}

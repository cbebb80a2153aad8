package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/askpile/askpile/internal/config"
	"github.com/askpile/askpile/internal/embed"
	askerrors "github.com/askpile/askpile/internal/errors"
	"github.com/askpile/askpile/internal/extract"
	"github.com/askpile/askpile/internal/ingest"
	"github.com/askpile/askpile/internal/qa"
	"github.com/askpile/askpile/internal/store"
	"github.com/askpile/askpile/internal/vecindex"
)

// app wires the full stack for one CLI invocation.
type app struct {
	cfg      *config.Config
	store    *store.Store
	index    *vecindex.Index
	embedder embed.Embedder
	gen      qa.Generator
	orch     *ingest.Orchestrator
	qa       *qa.Service
}

// openApp loads config and opens both stores, the embedder, and the
// generator. Callers must Close the returned app; Close persists the vector
// index.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.Paths.DataDir = dataDir
	}

	metaStore, err := store.Open(cfg.MetadataPath())
	if err != nil {
		return nil, err
	}

	embedder, err := embed.New(ctx, embed.FactoryConfig{
		Provider:   cfg.Embeddings.Provider,
		Model:      cfg.Embeddings.Model,
		Dimensions: cfg.Embeddings.Dimensions,
		BatchSize:  cfg.Embeddings.BatchSize,
		OllamaHost: cfg.Embeddings.OllamaHost,
		CacheSize:  cfg.Embeddings.CacheSize,
	})
	if err != nil {
		_ = metaStore.Close()
		return nil, err
	}

	index, err := openIndex(cfg, embedder.Dimensions())
	if err != nil {
		_ = embedder.Close()
		_ = metaStore.Close()
		return nil, err
	}

	timeout, err := time.ParseDuration(cfg.Generation.Timeout)
	if err != nil {
		timeout = qa.DefaultTimeout
	}
	gen := qa.NewOllamaGenerator(qa.GeneratorConfig{
		Model:       cfg.Generation.Model,
		OllamaHost:  cfg.Generation.OllamaHost,
		Temperature: cfg.Generation.Temperature,
		MaxTokens:   cfg.Generation.MaxTokens,
		Timeout:     timeout,
	})

	extractors := extract.NewRegistry()
	orch := ingest.New(metaStore, metaStore, index, embedder, extractors, ingest.Options{
		ChunkSize:      cfg.Chunking.Size,
		ChunkOverlap:   cfg.Chunking.Overlap,
		MaxFileSizeMB:  cfg.Ingest.MaxFileSizeMB,
		EmbedBatchSize: cfg.Embeddings.BatchSize,
	}, slog.Default())

	svc := qa.New(embedder, index, gen, metaStore, cfg.Retrieval.TopK, slog.Default())

	return &app{
		cfg:      cfg,
		store:    metaStore,
		index:    index,
		embedder: embedder,
		gen:      gen,
		orch:     orch,
		qa:       svc,
	}, nil
}

// openIndex loads the persisted vector index or creates a fresh one sized to
// the embedder. A persisted index with a different dimension is rejected
// rather than silently rebuilt.
func openIndex(cfg *config.Config, embedderDims int) (*vecindex.Index, error) {
	path := cfg.VectorIndexPath()

	dims := embedderDims
	if vecindex.Exists(path) {
		persisted, err := vecindex.ReadDimensions(path)
		if err != nil {
			return nil, askerrors.New(askerrors.ErrCodeCorruptIndex,
				fmt.Sprintf("failed to read vector index at %s", path), err)
		}
		if persisted > 0 && persisted != embedderDims {
			return nil, askerrors.New(askerrors.ErrCodeDimensionMismatch,
				fmt.Sprintf("vector index has %d dimensions but the embedder produces %d; run 'askpile reset --all' to rebuild",
					persisted, embedderDims), nil)
		}
		if persisted > 0 {
			dims = persisted
		}
	}

	index, err := vecindex.New(vecindex.Config{Dimensions: dims})
	if err != nil {
		return nil, err
	}

	if vecindex.Exists(path) {
		if err := index.Load(path); err != nil {
			_ = index.Close()
			return nil, askerrors.New(askerrors.ErrCodeCorruptIndex,
				fmt.Sprintf("failed to load vector index at %s", path), err)
		}
	}
	return index, nil
}

// Close persists the vector index and releases every resource.
func (a *app) Close() error {
	var firstErr error

	if err := a.index.Save(a.cfg.VectorIndexPath()); err != nil {
		slog.Error("failed to save vector index", slog.String("error", err.Error()))
		firstErr = err
	}
	if err := a.index.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := a.embedder.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := a.gen.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := a.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

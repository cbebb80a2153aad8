package embed

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// FactoryConfig selects and configures an embedding provider.
type FactoryConfig struct {
	// Provider is "ollama", "static", or empty for auto-detection.
	Provider   string
	Model      string
	Dimensions int
	BatchSize  int
	OllamaHost string
	// CacheSize enables the LRU cache when positive.
	CacheSize int
}

// New creates an embedder from config. With an empty provider it tries Ollama
// first and falls back to the static embedder so that askpile works offline.
// The returned embedder is wrapped with an LRU cache when CacheSize > 0.
func New(ctx context.Context, cfg FactoryConfig) (Embedder, error) {
	inner, err := newProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.CacheSize > 0 {
		return NewCachedEmbedder(inner, cfg.CacheSize), nil
	}
	return inner, nil
}

func newProvider(ctx context.Context, cfg FactoryConfig) (Embedder, error) {
	switch cfg.Provider {
	case "static":
		return NewStaticEmbedder(), nil

	case "ollama":
		return NewOllamaEmbedder(ctx, OllamaConfig{
			Host:       cfg.OllamaHost,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			BatchSize:  cfg.BatchSize,
		})

	case "":
		// Auto-detect: Ollama if reachable, static otherwise.
		probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		e, err := NewOllamaEmbedder(probeCtx, OllamaConfig{
			Host:       cfg.OllamaHost,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			BatchSize:  cfg.BatchSize,
		})
		if err == nil {
			return e, nil
		}
		slog.Warn("ollama unavailable, using static embeddings",
			slog.String("error", err.Error()))
		return NewStaticEmbedder(), nil

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}

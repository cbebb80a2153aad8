// Package config loads and validates askpile configuration.
//
// Configuration is applied in order of increasing precedence:
//  1. Hardcoded defaults
//  2. Config file (askpile.yaml in the data directory, or --config path)
//  3. Environment variables (ASKPILE_*)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	askerrors "github.com/askpile/askpile/internal/errors"
)

// Config represents the complete askpile configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Paths      PathsConfig      `yaml:"paths" json:"paths"`
	Chunking   ChunkingConfig   `yaml:"chunking" json:"chunking"`
	Retrieval  RetrievalConfig  `yaml:"retrieval" json:"retrieval"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Generation GenerationConfig `yaml:"generation" json:"generation"`
	Ingest     IngestConfig     `yaml:"ingest" json:"ingest"`
	LogLevel   string           `yaml:"log_level" json:"log_level"`
}

// PathsConfig configures where askpile keeps its state.
type PathsConfig struct {
	// DataDir holds the metadata database and the vector index files.
	// Defaults to ~/.askpile/data.
	DataDir string `yaml:"data_dir" json:"data_dir"`
}

// ChunkingConfig configures the document chunker.
type ChunkingConfig struct {
	// Size is the maximum chunk size in characters.
	Size int `yaml:"size" json:"size"`
	// Overlap is the number of characters shared between adjacent chunks.
	// Must be smaller than Size.
	Overlap int `yaml:"overlap" json:"overlap"`
}

// RetrievalConfig configures similarity search.
type RetrievalConfig struct {
	// TopK is the number of chunks retrieved per question.
	TopK int `yaml:"top_k" json:"top_k"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider selects the embedder: "ollama", "static", or empty for
	// auto-detection (Ollama if reachable, static otherwise).
	Provider   string `yaml:"provider" json:"provider"`
	Model      string `yaml:"model" json:"model"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	BatchSize  int    `yaml:"batch_size" json:"batch_size"`
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
	// CacheSize is the number of query embeddings kept in the LRU cache.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// GenerationConfig configures the completion provider used for answers.
type GenerationConfig struct {
	Model      string  `yaml:"model" json:"model"`
	OllamaHost string  `yaml:"ollama_host" json:"ollama_host"`
	// Temperature controls sampling randomness. Low values keep answers
	// grounded in the retrieved context.
	Temperature float64 `yaml:"temperature" json:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens"`
	// Timeout is the per-request timeout (e.g. "30s").
	Timeout string `yaml:"timeout" json:"timeout"`
}

// IngestConfig configures document ingestion.
type IngestConfig struct {
	// MaxFileSizeMB rejects documents larger than this before extraction.
	MaxFileSizeMB int `yaml:"max_file_size_mb" json:"max_file_size_mb"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			DataDir: DefaultDataDir(),
		},
		Chunking: ChunkingConfig{
			Size:    1000,
			Overlap: 200,
		},
		Retrieval: RetrievalConfig{
			TopK: 3,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "", // Empty triggers auto-detection: Ollama -> Static
			Model:      "nomic-embed-text",
			Dimensions: 0, // Auto-detect from embedder
			BatchSize:  32,
			OllamaHost: "", // Empty uses default http://localhost:11434
			CacheSize:  1000,
		},
		Generation: GenerationConfig{
			Model:       "llama3.2",
			OllamaHost:  "",
			Temperature: 0.1,
			MaxTokens:   1000,
			Timeout:     "60s",
		},
		Ingest: IngestConfig{
			MaxFileSizeMB: 10,
		},
		LogLevel: "info",
	}
}

// DefaultDataDir returns the default data directory (~/.askpile/data).
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".askpile", "data")
	}
	return filepath.Join(home, ".askpile", "data")
}

// Load loads configuration from the given file path. An empty path loads
// askpile.yaml from the default data directory if present. Environment
// variables are applied last and the result is validated.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		candidate := filepath.Join(DefaultDataDir(), "askpile.yaml")
		if fileExists(candidate) {
			path = candidate
		}
	}

	if path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return askerrors.New(askerrors.ErrCodeConfigNotFound,
			fmt.Sprintf("failed to read config file %s", path), err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return askerrors.ConfigError(
			fmt.Sprintf("failed to parse config file %s", path), err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}
	if other.Paths.DataDir != "" {
		c.Paths.DataDir = other.Paths.DataDir
	}
	if other.Chunking.Size != 0 {
		c.Chunking.Size = other.Chunking.Size
	}
	if other.Chunking.Overlap != 0 {
		c.Chunking.Overlap = other.Chunking.Overlap
	}
	if other.Retrieval.TopK != 0 {
		c.Retrieval.TopK = other.Retrieval.TopK
	}
	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Embeddings.OllamaHost != "" {
		c.Embeddings.OllamaHost = other.Embeddings.OllamaHost
	}
	if other.Embeddings.CacheSize != 0 {
		c.Embeddings.CacheSize = other.Embeddings.CacheSize
	}
	if other.Generation.Model != "" {
		c.Generation.Model = other.Generation.Model
	}
	if other.Generation.OllamaHost != "" {
		c.Generation.OllamaHost = other.Generation.OllamaHost
	}
	if other.Generation.Temperature != 0 {
		c.Generation.Temperature = other.Generation.Temperature
	}
	if other.Generation.MaxTokens != 0 {
		c.Generation.MaxTokens = other.Generation.MaxTokens
	}
	if other.Generation.Timeout != "" {
		c.Generation.Timeout = other.Generation.Timeout
	}
	if other.Ingest.MaxFileSizeMB != 0 {
		c.Ingest.MaxFileSizeMB = other.Ingest.MaxFileSizeMB
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}

// applyEnvOverrides applies ASKPILE_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ASKPILE_DATA_DIR"); v != "" {
		c.Paths.DataDir = v
	}
	if v := os.Getenv("ASKPILE_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Chunking.Size = n
		}
	}
	if v := os.Getenv("ASKPILE_CHUNK_OVERLAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Chunking.Overlap = n
		}
	}
	if v := os.Getenv("ASKPILE_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Retrieval.TopK = n
		}
	}
	if v := os.Getenv("ASKPILE_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("ASKPILE_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("ASKPILE_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
		c.Generation.OllamaHost = v
	}
	if v := os.Getenv("ASKPILE_GENERATION_MODEL"); v != "" {
		c.Generation.Model = v
	}
	if v := os.Getenv("ASKPILE_MAX_FILE_SIZE_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Ingest.MaxFileSizeMB = n
		}
	}
	if v := os.Getenv("ASKPILE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Chunking.Size <= 0 {
		return askerrors.ConfigError(
			fmt.Sprintf("chunking.size must be positive, got %d", c.Chunking.Size), nil)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return askerrors.ConfigError(
			fmt.Sprintf("chunking.overlap must be in [0, %d), got %d",
				c.Chunking.Size, c.Chunking.Overlap), nil)
	}
	if c.Retrieval.TopK < 1 {
		return askerrors.ConfigError(
			fmt.Sprintf("retrieval.top_k must be at least 1, got %d", c.Retrieval.TopK), nil)
	}
	if c.Ingest.MaxFileSizeMB <= 0 {
		return askerrors.ConfigError(
			fmt.Sprintf("ingest.max_file_size_mb must be positive, got %d", c.Ingest.MaxFileSizeMB), nil)
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		return askerrors.ConfigError(
			fmt.Sprintf("generation.temperature must be in [0, 2], got %f", c.Generation.Temperature), nil)
	}
	if c.Generation.MaxTokens <= 0 {
		return askerrors.ConfigError(
			fmt.Sprintf("generation.max_tokens must be positive, got %d", c.Generation.MaxTokens), nil)
	}

	if c.Embeddings.Provider != "" { // Empty string triggers auto-detection
		validProviders := map[string]bool{"ollama": true, "static": true}
		if !validProviders[strings.ToLower(c.Embeddings.Provider)] {
			return askerrors.ConfigError(
				fmt.Sprintf("embeddings.provider must be 'ollama', 'static', or empty (auto-detect), got %s",
					c.Embeddings.Provider), nil)
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return askerrors.ConfigError(
			fmt.Sprintf("log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.LogLevel), nil)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MetadataPath returns the path of the SQLite metadata database.
func (c *Config) MetadataPath() string {
	return filepath.Join(c.Paths.DataDir, "metadata.db")
}

// VectorIndexPath returns the path of the persisted vector index.
func (c *Config) VectorIndexPath() string {
	return filepath.Join(c.Paths.DataDir, "vectors.hnsw")
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

package qa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	askerrors "github.com/askpile/askpile/internal/errors"
)

// Generation defaults.
const (
	DefaultModel       = "llama3.2"
	DefaultOllamaHost  = "http://localhost:11434"
	DefaultTemperature = 0.1
	DefaultMaxTokens   = 1000
	DefaultTimeout     = 60 * time.Second
)

// Generator produces an answer from a prompt.
type Generator interface {
	// Generate completes a prompt and returns the model output.
	Generate(ctx context.Context, prompt string) (string, error)

	// ModelName returns the model identifier.
	ModelName() string

	// Available checks if the generator is ready.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// GeneratorConfig configures the Ollama completion client.
type GeneratorConfig struct {
	Model       string
	OllamaHost  string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// OllamaGenerator answers prompts via a local Ollama server.
type OllamaGenerator struct {
	client *http.Client
	config GeneratorConfig
}

var _ Generator = (*OllamaGenerator)(nil)

// generateRequest is the Ollama /api/generate request body.
type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

// generateResponse is the Ollama /api/generate response body.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// NewOllamaGenerator creates a completion client with defaults applied.
func NewOllamaGenerator(config GeneratorConfig) *OllamaGenerator {
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.OllamaHost == "" {
		config.OllamaHost = DefaultOllamaHost
	}
	if config.Temperature == 0 {
		config.Temperature = DefaultTemperature
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultMaxTokens
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}

	return &OllamaGenerator{
		client: &http.Client{Timeout: config.Timeout},
		config: config,
	}
}

// Generate completes a prompt via /api/generate.
func (g *OllamaGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := generateRequest{
		Model:  g.config.Model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: g.config.Temperature,
			NumPredict:  g.config.MaxTokens,
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", askerrors.GenerationError("failed to marshal generation request", err)
	}

	url := g.config.OllamaHost + "/api/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", askerrors.GenerationError("failed to create generation request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", askerrors.GenerationError("generation request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", askerrors.GenerationError(
			fmt.Sprintf("generation returned status %d: %s", resp.StatusCode, string(respBody)), nil)
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", askerrors.GenerationError("failed to decode generation response", err)
	}

	return genResp.Response, nil
}

// Available checks if Ollama is reachable.
func (g *OllamaGenerator) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	url := g.config.OllamaHost + "/api/tags"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}

// ModelName returns the model being used.
func (g *OllamaGenerator) ModelName() string {
	return g.config.Model
}

// Close is a no-op for the HTTP client.
func (g *OllamaGenerator) Close() error {
	return nil
}

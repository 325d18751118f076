// Package huggingface provides an embedding service adapter using the
// Hugging Face inference API (feature-extraction pipeline).
package huggingface

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/custodia-labs/pdfchat/internal/adapters/driven/provider"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "https://router.huggingface.co/hf-inference/models"
	DefaultPingURL    = "https://huggingface.co/api/whoami-v2"
	DefaultModel      = "sentence-transformers/all-mpnet-base-v2"
	DefaultTimeout    = 120 * time.Second
	DefaultDimensions = 768
)

// Config holds configuration for the Hugging Face embedding service.
type Config struct {
	// APIKey is a Hugging Face access token (required).
	APIKey string

	// BaseURL is the models root; the model ID is appended to it.
	BaseURL string

	// PingURL is the token check endpoint.
	PingURL string

	Model      string
	Timeout    time.Duration
	Dimensions int

	// HTTPClient carries the shared resilient transport. Optional.
	HTTPClient *http.Client
}

// EmbeddingService generates sentence embeddings with a hosted model.
type EmbeddingService struct {
	api        *provider.Client
	pingURL    string
	model      string
	dimensions int
}

type featureRequest struct {
	Inputs  []string       `json:"inputs"`
	Options featureOptions `json:"options"`
}

type featureOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

// NewEmbeddingService creates a new Hugging Face embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("huggingface: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PingURL == "" {
		cfg.PingURL = DefaultPingURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}

	return &EmbeddingService{
		api: provider.NewClient("huggingface", cfg.BaseURL, cfg.HTTPClient, cfg.Timeout, map[string]string{
			"Authorization": "Bearer " + cfg.APIKey,
		}),
		pingURL:    cfg.PingURL,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}, nil
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch embeds all texts with one feature-extraction call.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	path := (&url.URL{Path: s.model}).EscapedPath() + "/pipeline/feature-extraction"
	req := featureRequest{Inputs: texts, Options: featureOptions{WaitForModel: true}}

	var raw json.RawMessage
	if err := s.api.PostJSON(ctx, path, req, &raw); err != nil {
		return nil, err
	}

	vectors, err := decodeFeatures(raw)
	if err != nil {
		return nil, fmt.Errorf("huggingface: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("huggingface: got %d embeddings for %d inputs", len(vectors), len(texts))
	}
	return vectors, nil
}

// decodeFeatures accepts pooled sentence vectors ([][]float) or per-token
// vectors ([][][]float), which are mean-pooled.
func decodeFeatures(raw json.RawMessage) ([][]float32, error) {
	var pooled [][]float64
	if err := json.Unmarshal(raw, &pooled); err == nil {
		out := make([][]float32, len(pooled))
		for i, v := range pooled {
			out[i] = provider.Float32s(v)
		}
		return out, nil
	}

	var tokens [][][]float64
	if err := json.Unmarshal(raw, &tokens); err != nil {
		return nil, fmt.Errorf("unexpected feature-extraction response: %w", err)
	}
	out := make([][]float32, len(tokens))
	for i, seq := range tokens {
		out[i] = meanPool(seq)
	}
	return out, nil
}

func meanPool(seq [][]float64) []float32 {
	if len(seq) == 0 {
		return nil
	}
	sum := make([]float64, len(seq[0]))
	for _, tok := range seq {
		for j := range sum {
			if j < len(tok) {
				sum[j] += tok[j]
			}
		}
	}
	out := make([]float32, len(sum))
	for j, v := range sum {
		out[j] = float32(v / float64(len(seq)))
	}
	return out
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping validates the access token.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if err := s.api.Get(ctx, s.pingURL, nil); err != nil {
		return fmt.Errorf("huggingface: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}

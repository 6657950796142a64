// Package openai implements embedder.Provider on the OpenAI Embeddings API.
package openai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// defaultDimensions matches text-embedding-3-small.
const defaultDimensions = 1536

// Config configures the OpenAI embedder client.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// Model is the embedding model name. Defaults to text-embedding-3-small.
	Model string

	// BaseURL overrides the API endpoint (optional, for compatible gateways).
	BaseURL string

	// Dimensions is the expected vector size. Defaults to 1536.
	Dimensions int
}

// Client calls the OpenAI Embeddings API. It implements embedder.Provider.
type Client struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

// NewClient creates a new OpenAI embedder client from cfg.
func NewClient(cfg *Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai embedder: api key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := openai.EmbeddingModel(cfg.Model)
	if cfg.Model == "" {
		model = openai.SmallEmbedding3
	}

	dimensions := cfg.Dimensions
	if dimensions == 0 {
		dimensions = defaultDimensions
	}

	return &Client{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      model,
		dimensions: dimensions,
	}, nil
}

// Embed converts a single text into a vector embedding.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: c.model,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("openai embedder: no data returned")
	}
	return toFloat64(resp.Data[0].Embedding), nil
}

// EmbedBatch converts multiple texts into embeddings in one request.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: c.model,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embedder: got %d results for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float64, len(texts))
	for i, data := range resp.Data {
		out[i] = toFloat64(data.Embedding)
	}
	return out, nil
}

// Dimensions returns the configured vector size.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// Close is a no-op; the underlying SDK client holds no long-lived resources.
func (c *Client) Close() error {
	return nil
}

func toFloat64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

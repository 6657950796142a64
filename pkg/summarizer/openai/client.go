// Package openai implements summarizer.Summarizer on the OpenAI Chat API.
package openai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = "You merge two overlapping pieces of knowledge contributed by " +
	"marketing-automation agents into one concise statement. Keep every distinct " +
	"fact, drop repetition, answer with the merged text only."

// Config configures the OpenAI summarizer client.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// Model is the chat model name. Defaults to gpt-4o-mini.
	Model string

	// BaseURL overrides the API endpoint (optional).
	BaseURL string
}

// Client calls the OpenAI Chat Completions API. It implements
// summarizer.Summarizer.
type Client struct {
	client *openai.Client
	model  string
}

// NewClient creates a new OpenAI summarizer client from cfg.
func NewClient(cfg *Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai summarizer: api key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &Client{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}, nil
}

// Summarize merges two overlapping texts into one via a chat completion.
func (c *Client) Summarize(ctx context.Context, a, b string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("First:\n%s\n\nSecond:\n%s", a, b)},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai summarizer: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// Close is a no-op; the underlying SDK client holds no long-lived resources.
func (c *Client) Close() error {
	return nil
}

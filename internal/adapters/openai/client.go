package openai

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Client implements the core.Provider interface using OpenAI
type Client struct {
	client      *openai.Client
	modelName   string
	temperature float32
	topP        float32
	logger      *zap.Logger
}

// NewClient creates a new OpenAI provider
func NewClient(client *openai.Client, modelName string, temperature, topP float32, logger *zap.Logger) *Client {
	return &Client{
		client:      client,
		modelName:   modelName,
		temperature: temperature,
		topP:        topP,
		logger:      logger,
	}
}

// Name identifies the provider in result method tags
func (c *Client) Name() string {
	return "openai"
}

// Complete sends a prompt and returns the raw response text
func (c *Client) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an email classification system. Respond only with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from OpenAI")
	}

	c.logger.Debug("OpenAI completion succeeded",
		zap.String("model", c.modelName),
		zap.String("processing_id", resp.ID))

	return resp.Choices[0].Message.Content, nil
}

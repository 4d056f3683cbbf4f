package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
)

// Client implements the core.Provider interface using Google Gemini
type Client struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
	logger    *zap.Logger
}

// NewClient creates a new Gemini provider. The model is configured
// once here; Complete must not mutate it, since one Client is shared
// by every concurrent scan session.
func NewClient(client *genai.Client, modelName string, temperature, topP float32, maxTokens int, logger *zap.Logger) *Client {
	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))

	return &Client{
		client:    client,
		model:     model,
		modelName: modelName,
		logger:    logger,
	}
}

// Name identifies the provider in result method tags
func (c *Client) Name() string {
	return "gemini"
}

// Complete sends a prompt and returns the raw response text. The
// maxTokens argument is ignored; the output cap is fixed at
// construction.
func (c *Client) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content with Gemini: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from Gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("no text parts in Gemini response")
	}

	c.logger.Debug("Gemini completion succeeded", zap.String("model", c.modelName))

	return sb.String(), nil
}

// Close closes the underlying Gemini client
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

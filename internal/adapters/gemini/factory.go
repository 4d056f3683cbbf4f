package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/jobtrail/jobtrail/internal/config"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Factory creates new Gemini provider instances
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new factory for Gemini providers
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{cfg: cfg, logger: logger}
}

// CreateProvider creates a new Gemini provider from configuration
func (f *Factory) CreateProvider(ctx context.Context) (*Client, error) {
	geminiCfg := f.cfg.GetGemini()

	client, err := genai.NewClient(ctx, option.WithAPIKey(geminiCfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return NewClient(client, geminiCfg.ModelName, geminiCfg.Temperature, geminiCfg.TopP, geminiCfg.MaxTokens, f.logger), nil
}

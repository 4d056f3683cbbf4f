package openai

import (
	"github.com/jobtrail/jobtrail/internal/config"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Factory creates new OpenAI provider instances
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new factory for OpenAI providers
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{cfg: cfg, logger: logger}
}

// CreateProvider creates a new OpenAI provider from configuration
func (f *Factory) CreateProvider() *Client {
	openaiCfg := f.cfg.GetOpenAI()
	client := openai.NewClient(openaiCfg.APIKey)
	return NewClient(client, openaiCfg.ModelName, openaiCfg.Temperature, openaiCfg.TopP, f.logger)
}

package di

import (
	"context"
	"fmt"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/jobtrail/jobtrail/internal/adapters/bedrock"
	"github.com/jobtrail/jobtrail/internal/adapters/gemini"
	"github.com/jobtrail/jobtrail/internal/adapters/openai"
	"github.com/jobtrail/jobtrail/internal/ai"
	"github.com/jobtrail/jobtrail/internal/cache"
	"github.com/jobtrail/jobtrail/internal/config"
	"github.com/jobtrail/jobtrail/internal/core"
	"github.com/jobtrail/jobtrail/internal/engine"
	"github.com/jobtrail/jobtrail/internal/labels"
	"github.com/jobtrail/jobtrail/internal/logging"
	"github.com/jobtrail/jobtrail/internal/rules"
	"github.com/jobtrail/jobtrail/internal/scanner"
	"github.com/jobtrail/jobtrail/internal/session"
	"github.com/jobtrail/jobtrail/internal/store"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	providers := []interface{}{
		config.New,
		logging.InitLogger,
		cache.NewSet,
		store.Open,
		func(s *store.SQLStore) core.JobStore { return s },
		func(s *store.SQLStore) core.IgnoredStore { return s.Ignored() },
		session.NewRegistry,
		func(r *session.Registry) core.SessionResolver { return r },
		rules.NewConfigRuleSource,
		func(s *rules.ConfigRuleSource) core.CustomRuleSource { return s },
		labels.NewApplicator,
		func(a *labels.Applicator) scanner.LabelApplier { return a },
		buildRuleClassifier,
		BuildProviderChain,
		buildAIClassifier,
		buildEngine,
		func(e *engine.Engine) scanner.Classifier { return e },
		buildScheduler,
	}

	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return nil, err
		}
	}

	return container, nil
}

// buildRuleClassifier constructs the deterministic rule layer from
// configuration.
func buildRuleClassifier(cfg *config.Config, logger *zap.Logger) *rules.Classifier {
	return rules.NewClassifier(
		cfg.GetString("rules.user_address"),
		cfg.GetStringSlice("rules.personal_denylist"),
		logger,
	)
}

// BuildProviderChain constructs the language-model providers in the
// configured priority order. Providers whose configuration is absent
// or broken are skipped with a warning rather than failing startup;
// an empty chain simply disables the AI stage.
func BuildProviderChain(cfg *config.Config, logger *zap.Logger) []core.Provider {
	var chain []core.Provider
	ctx := context.Background()

	for _, name := range cfg.GetLLM().Providers {
		switch name {
		case "openai":
			if cfg.GetOpenAI().APIKey == "" {
				logger.Warn("Skipping OpenAI provider: no API key configured")
				continue
			}
			chain = append(chain, openai.NewFactory(cfg, logger).CreateProvider())
		case "gemini":
			if cfg.GetGemini().APIKey == "" {
				logger.Warn("Skipping Gemini provider: no API key configured")
				continue
			}
			provider, err := gemini.NewFactory(cfg, logger).CreateProvider(ctx)
			if err != nil {
				logger.Warn("Skipping Gemini provider", zap.Error(err))
				continue
			}
			chain = append(chain, provider)
		case "bedrock":
			provider, err := bedrock.NewFactory(cfg, logger).CreateProvider(ctx)
			if err != nil {
				logger.Warn("Skipping Bedrock provider", zap.Error(err))
				continue
			}
			chain = append(chain, provider)
		default:
			logger.Warn("Unknown LLM provider in chain", zap.String("provider", name))
		}
	}

	if len(chain) == 0 {
		logger.Info("No LLM providers configured, AI classification disabled")
	}
	return chain
}

// buildAIClassifier wires the provider chain to its sub-cache
func buildAIClassifier(
	cfg *config.Config,
	providerChain []core.Provider,
	caches *cache.Set,
	logger *zap.Logger,
) (*ai.Classifier, error) {
	resultTTL, err := cfg.GetDuration("cache.result_ttl")
	if err != nil {
		return nil, fmt.Errorf("invalid cache.result_ttl: %w", err)
	}
	negativeTTL, err := cfg.GetDuration("cache.negative_ttl")
	if err != nil {
		return nil, fmt.Errorf("invalid cache.negative_ttl: %w", err)
	}

	llmCfg := cfg.GetLLM()
	return ai.NewClassifier(
		providerChain,
		caches.AI,
		llmCfg.MaxTokens,
		llmCfg.MaxBodySize,
		resultTTL,
		negativeTTL,
		logger,
	), nil
}

// buildEngine wires the full classification pipeline
func buildEngine(
	cfg *config.Config,
	ruleClassifier *rules.Classifier,
	aiClassifier *ai.Classifier,
	caches *cache.Set,
	logger *zap.Logger,
) (*engine.Engine, error) {
	resultTTL, err := cfg.GetDuration("cache.result_ttl")
	if err != nil {
		return nil, fmt.Errorf("invalid cache.result_ttl: %w", err)
	}
	negativeTTL, err := cfg.GetDuration("cache.negative_ttl")
	if err != nil {
		return nil, fmt.Errorf("invalid cache.negative_ttl: %w", err)
	}

	return engine.New(ruleClassifier, aiClassifier, caches.Results, resultTTL, negativeTTL, logger), nil
}

// buildScheduler wires the scan scheduler
func buildScheduler(
	cfg *config.Config,
	resolver core.SessionResolver,
	classifier scanner.Classifier,
	customRules core.CustomRuleSource,
	applicator scanner.LabelApplier,
	jobs core.JobStore,
	ignored core.IgnoredStore,
	caches *cache.Set,
	logger *zap.Logger,
) (*scanner.Scheduler, error) {
	interval, err := cfg.GetDuration("scanner.interval")
	if err != nil {
		return nil, fmt.Errorf("invalid scanner.interval: %w", err)
	}
	seenTTL, err := cfg.GetDuration("cache.seen_ttl")
	if err != nil {
		return nil, fmt.Errorf("invalid cache.seen_ttl: %w", err)
	}
	labelDelay, err := cfg.GetDuration("scanner.label_delay")
	if err != nil {
		return nil, fmt.Errorf("invalid scanner.label_delay: %w", err)
	}

	opts := scanner.Options{
		DefaultInterval:      interval,
		MaxConsecutiveErrors: cfg.GetInt("scanner.max_consecutive_errors"),
		SeenTTL:              seenTTL,
		LabelDelay:           labelDelay,
	}

	return scanner.New(resolver, classifier, customRules, applicator, jobs, ignored, caches.Seen, opts, logger), nil
}

// Package engine composes the classification pipeline: cache lookup,
// exclusion filters, deterministic rules, then the AI fallback chain.
package engine

import (
	"context"
	"time"

	"github.com/jobtrail/jobtrail/internal/core"
	"github.com/jobtrail/jobtrail/internal/rules"
	"go.uber.org/zap"
)

// AIStage is the language-model fallback consulted when no
// deterministic rule matches. A nil result means no classification.
type AIStage interface {
	Classify(ctx context.Context, email *core.NormalizedEmail) (*core.ClassificationResult, error)
}

// Engine orchestrates the classification stages and owns the
// result-cache reads and writes.
type Engine struct {
	rules       *rules.Classifier
	ai          AIStage
	cache       core.Cache
	resultTTL   time.Duration
	negativeTTL time.Duration
	logger      *zap.Logger
}

// New creates a classification engine. ai may be nil when no language
// model provider is configured.
func New(
	ruleClassifier *rules.Classifier,
	ai AIStage,
	cache core.Cache,
	resultTTL time.Duration,
	negativeTTL time.Duration,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		rules:       ruleClassifier,
		ai:          ai,
		cache:       cache,
		resultTTL:   resultTTL,
		negativeTTL: negativeTTL,
		logger:      logger,
	}
}

// Classify runs the full pipeline for one email. A nil result with a
// nil error is the normal "no classification" outcome, never an error.
// Malformed input degrades rather than failing: an email with empty
// subject and body returns nil immediately without consuming cache or
// provider budget.
func (e *Engine) Classify(ctx context.Context, email *core.NormalizedEmail) (*core.ClassificationResult, error) {
	if email == nil || (email.Subject == "" && email.BodyText == "") {
		return nil, nil
	}

	key := core.ContentHash(email.Subject, email.BodyText)

	if entry, err := e.cache.Get(ctx, key); err == nil && entry != nil {
		e.logger.Debug("Classification cache hit",
			zap.String("message_id", email.ID))
		return entry.Value, nil
	}

	if excluded, reason := e.rules.Exclude(email); excluded {
		e.logger.Debug("Email excluded by rule",
			zap.String("message_id", email.ID),
			zap.String("rule", reason))
		e.cacheNegative(ctx, key)
		return nil, nil
	}

	if result := e.rules.Classify(email); result != nil {
		if err := e.cache.Set(ctx, key, result, e.resultTTL); err != nil {
			e.logger.Error("Failed to cache rule result", zap.Error(err))
		}
		return result, nil
	}

	if e.ai != nil {
		result, err := e.ai.Classify(ctx, email)
		if err != nil {
			return nil, err
		}
		if result != nil {
			if err := e.cache.Set(ctx, key, result, e.resultTTL); err != nil {
				e.logger.Error("Failed to cache AI result", zap.Error(err))
			}
			return result, nil
		}
	}

	e.cacheNegative(ctx, key)
	return nil, nil
}

// cacheNegative records a short-lived "no result" entry so the same
// content is not re-evaluated on every tick.
func (e *Engine) cacheNegative(ctx context.Context, key string) {
	if err := e.cache.Set(ctx, key, nil, e.negativeTTL); err != nil {
		e.logger.Error("Failed to cache negative result", zap.Error(err))
	}
}

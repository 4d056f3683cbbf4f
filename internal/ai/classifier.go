// Package ai implements the language-model stage of the
// classification pipeline: a fixed-priority provider chain whose
// heterogeneous responses are normalized into one result shape and
// cached by content hash.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jobtrail/jobtrail/internal/core"
	"github.com/jobtrail/jobtrail/internal/mailtext"
	"go.uber.org/zap"
)

const promptFormat = `You are a job-search email classifier. Analyze the following email and determine what job-search event it represents.
Respond with a JSON object containing:
- category: one of "application", "interview", "offer", "rejection", "other" ("other" means not job-search related)
- company: the company name, or "Unknown"
- role: the job title, or "Unknown"
- salary: any mentioned compensation, or "Unknown"
- summary: one sentence describing the email

Email:
Subject: %s
Body:
%s

Respond only with the JSON object and nothing else.`

// classificationResponse is the structured response requested from providers
type classificationResponse struct {
	Category string `json:"category"`
	Company  string `json:"company"`
	Role     string `json:"role"`
	Salary   string `json:"salary"`
	Summary  string `json:"summary"`
}

// Classifier tries providers in priority order and accepts the first
// usable response. Results are cached keyed by a hash of the truncated
// content actually sent, with a long TTL for successes and a short TTL
// for exhausted chains so the next tick does not re-pay every provider.
type Classifier struct {
	providers   []core.Provider
	cache       core.Cache
	maxTokens   int
	maxBodySize int
	resultTTL   time.Duration
	negativeTTL time.Duration
	logger      *zap.Logger
}

// NewClassifier creates a provider-fallback classifier. The provider
// slice order is the priority order.
func NewClassifier(
	providers []core.Provider,
	cache core.Cache,
	maxTokens int,
	maxBodySize int,
	resultTTL time.Duration,
	negativeTTL time.Duration,
	logger *zap.Logger,
) *Classifier {
	return &Classifier{
		providers:   providers,
		cache:       cache,
		maxTokens:   maxTokens,
		maxBodySize: maxBodySize,
		resultTTL:   resultTTL,
		negativeTTL: negativeTTL,
		logger:      logger,
	}
}

// Classify runs the provider chain for an email. A nil result with a
// nil error means no provider produced a classification; that outcome
// is cached with the negative TTL.
func (c *Classifier) Classify(ctx context.Context, email *core.NormalizedEmail) (*core.ClassificationResult, error) {
	if len(c.providers) == 0 {
		return nil, nil
	}

	body := mailtext.Truncate(email.BodyText, c.maxBodySize)
	key := core.ContentHash(email.Subject, body)

	if entry, err := c.cache.Get(ctx, key); err == nil && entry != nil {
		c.logger.Debug("AI cache hit", zap.String("message_id", email.ID))
		return entry.Value, nil
	}

	prompt := fmt.Sprintf(promptFormat, email.Subject, body)

	for _, provider := range c.providers {
		text, err := provider.Complete(ctx, prompt, c.maxTokens)
		if err != nil {
			c.logger.Warn("Provider unavailable, trying next",
				zap.String("provider", provider.Name()),
				zap.Error(err))
			continue
		}

		result := c.parseResponse(provider.Name(), text)
		if err := c.cache.Set(ctx, key, result, c.resultTTL); err != nil {
			c.logger.Error("Failed to cache AI result", zap.Error(err))
		}
		return result, nil
	}

	// All providers failed; remember that briefly
	if err := c.cache.Set(ctx, key, nil, c.negativeTTL); err != nil {
		c.logger.Error("Failed to cache negative AI result", zap.Error(err))
	}
	return nil, nil
}

// parseResponse normalizes a raw provider response. It tolerates
// markdown fencing, arbitrary-case categories and complete non-JSON
// text; the last case falls back to a category token scan.
func (c *Classifier) parseResponse(providerName, text string) *core.ClassificationResult {
	method := providerName + "-ai"

	resp, ok := decodeJSON(text)
	if !ok {
		category := scanForCategory(text)
		result := core.NewResult(category, core.ConfidenceLow, method)
		result.IsSkip = category == core.CategoryOther
		return result
	}

	category := strings.ToLower(strings.TrimSpace(resp.Category))
	if !isKnownCategory(category) {
		category = scanForCategory(category)
	}

	result := core.NewResult(category, core.ConfidenceMedium, method)
	result.IsSkip = category == core.CategoryOther
	if v := strings.TrimSpace(resp.Company); v != "" {
		result.Company = v
	}
	if v := strings.TrimSpace(resp.Role); v != "" {
		result.Role = v
	}
	if v := strings.TrimSpace(resp.Salary); v != "" {
		result.Salary = v
	}
	if v := strings.TrimSpace(resp.Summary); v != "" {
		result.Summary = v
	}
	return result
}

// decodeJSON extracts and unmarshals a JSON object from text,
// stripping markdown fences and surrounding prose.
func decodeJSON(text string) (*classificationResponse, bool) {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var resp classificationResponse
	if err := json.Unmarshal([]byte(trimmed), &resp); err == nil {
		return &resp, true
	}

	// Salvage a JSON object embedded in surrounding text
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(trimmed[start:end+1]), &resp); err == nil {
			return &resp, true
		}
	}

	return nil, false
}

// scanForCategory looks for any known category token as a substring,
// defaulting to "other".
func scanForCategory(text string) string {
	lowered := strings.ToLower(text)
	for _, category := range core.Categories {
		if strings.Contains(lowered, category) {
			return category
		}
	}
	return core.CategoryOther
}

func isKnownCategory(category string) bool {
	if category == core.CategoryOther {
		return true
	}
	for _, c := range core.Categories {
		if c == category {
			return true
		}
	}
	return false
}

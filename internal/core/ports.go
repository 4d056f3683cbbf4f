package core

import (
	"context"
	"time"
)

// Mailbox is the transport to the user's mail provider. All calls are
// fallible and may return transport errors.
type Mailbox interface {
	// ListMessages returns candidate message ids for a search query
	ListMessages(ctx context.Context, query string, max int) ([]string, error)

	// GetMessage fetches and normalizes a single message
	GetMessage(ctx context.Context, id string) (*NormalizedEmail, error)

	// ListLabels returns all labels in the mailbox
	ListLabels(ctx context.Context) ([]LabelRef, error)

	// CreateLabel creates a label from configuration
	CreateLabel(ctx context.Context, cfg LabelConfig) (*LabelRef, error)

	// PatchLabel updates mutable fields of an existing label
	PatchLabel(ctx context.Context, id string, fields map[string]string) error

	// ModifyThreadLabels adds and removes labels at the thread level
	ModifyThreadLabels(ctx context.Context, threadID string, add, remove []string) error

	// GetThreadLabels returns the label names currently on a thread
	GetThreadLabels(ctx context.Context, threadID string) ([]string, error)
}

// JobStore persists classified job records keyed by the provider
// message id. UpsertByExternalID must be idempotent: a second call for
// the same id updates the record in place.
type JobStore interface {
	UpsertByExternalID(ctx context.Context, rec *JobRecord) error
	FindByExternalID(ctx context.Context, id string) (*JobRecord, error)
}

// IgnoredStore persists records for messages evaluated and dismissed
type IgnoredStore interface {
	Create(ctx context.Context, rec *IgnoredRecord) error
	FindByExternalID(ctx context.Context, id string) (*IgnoredRecord, error)
}

// SessionResolver resolves a session id to a mailbox handle, or nil
// when the session's credentials are missing or invalid.
type SessionResolver interface {
	Resolve(ctx context.Context, sessionID string) (Mailbox, error)
}

// Provider is a single language-model backend in the fallback chain
type Provider interface {
	// Name identifies the provider in result method tags
	Name() string

	// Complete sends a prompt and returns the raw response text
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Cache is a content-addressed, TTL-bearing key/value store. Keys are
// caller-supplied digests, so identical content deliberately collides.
type Cache interface {
	// Get returns the entry for key, or nil when absent or expired
	Get(ctx context.Context, key string) (*CacheEntry, error)

	// Set stores value under key with the given TTL
	Set(ctx context.Context, key string, value *ClassificationResult, ttl time.Duration) error

	// Prune removes expired entries
	Prune(ctx context.Context) error
}

// CustomRuleSource yields the per-user custom label rules consulted
// ahead of the generic classification engine.
type CustomRuleSource interface {
	RulesFor(ctx context.Context, sessionID string) ([]CustomLabelRule, error)
}

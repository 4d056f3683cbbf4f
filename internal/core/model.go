package core

import (
	"time"
)

// Job-search categories assignable by the classifier.
const (
	CategoryApplication = "application"
	CategoryInterview   = "interview"
	CategoryOffer       = "offer"
	CategoryRejection   = "rejection"
	CategoryOther       = "other"
)

// Categories lists the configured category names in a stable order.
var Categories = []string{
	CategoryApplication,
	CategoryInterview,
	CategoryOffer,
	CategoryRejection,
}

// Confidence expresses how certain a classification is
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Unknown is the sentinel value for extraction fields the classifier
// could not fill in.
const Unknown = "Unknown"

// NormalizedEmail is the unit fed to classification. BodyText is always
// a plain-text, whitespace-collapsed string; extraction degrades to the
// empty string rather than failing on malformed payloads.
type NormalizedEmail struct {
	ID              string
	ThreadID        string
	Subject         string
	From            string
	BodyText        string
	Snippet         string
	InternalDate    time.Time
	CurrentLabelIDs []string
}

// ClassificationResult is the output of the classification engine.
// A result with IsSkip=false always carries a non-empty Label drawn
// from the configured category set. Results are immutable once cached.
type ClassificationResult struct {
	Label      string     `json:"label"`
	Confidence Confidence `json:"confidence"`
	Method     string     `json:"method"`
	Company    string     `json:"company"`
	Role       string     `json:"role"`
	Salary     string     `json:"salary"`
	Summary    string     `json:"summary"`
	IsSkip     bool       `json:"is_skip"`
}

// NewResult builds a result with the extraction fields defaulted to Unknown.
func NewResult(label string, confidence Confidence, method string) *ClassificationResult {
	return &ClassificationResult{
		Label:      label,
		Confidence: confidence,
		Method:     method,
		Company:    Unknown,
		Role:       Unknown,
		Salary:     Unknown,
		Summary:    Unknown,
	}
}

// CacheEntry is a cached classification outcome. A nil Value records a
// negative outcome (no classification) so the next lookup does not
// re-pay for it. An entry with ExpiresAt <= now is logically absent.
type CacheEntry struct {
	Value     *ClassificationResult `json:"value"`
	ExpiresAt time.Time             `json:"expires_at"`
}

// Expired reports whether the entry is logically absent at now.
func (e *CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.After(now)
}

// ScanSummary describes one completed tick of a scan session
type ScanSummary struct {
	TickID        string        `json:"tick_id"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
	MessagesFound int           `json:"messages_found"`
	Processed     int           `json:"processed"`
	Errors        int           `json:"errors"`
}

// SessionStatus is the externally visible state of a scan session
type SessionStatus struct {
	Running         bool         `json:"running"`
	Query           string       `json:"query"`
	MaxResults      int          `json:"max_results"`
	LastScanSummary *ScanSummary `json:"last_scan_summary,omitempty"`
	ErrorCount      int          `json:"error_count"`
}

// ScanOutcome is the result of a synchronous one-shot scan
type ScanOutcome struct {
	Found     int                `json:"found"`
	Processed int                `json:"processed"`
	Results   []ProcessedMessage `json:"results"`
}

// ProcessedMessage records what happened to one candidate message
type ProcessedMessage struct {
	MessageID string                `json:"message_id"`
	Label     string                `json:"label,omitempty"`
	Skipped   bool                  `json:"skipped"`
	Result    *ClassificationResult `json:"result,omitempty"`
}

// LabelConfig is the static configuration for one label: matching
// rules, display metadata with ordered color fallbacks, and an
// archival hint. Presets are immutable; only the per-user override
// map owned by the label-configuration collaborator mutates state.
type LabelConfig struct {
	Name            string
	Keywords        []string
	Senders         []string
	ExcludeKeywords []string
	ExcludeSenders  []string
	Color           string
	ColorFallbacks  []string
	LegacyNames     []string
	MoveToFolder    bool
	Enabled         bool
}

// CustomLabelRule is a per-user, non-preset label rule evaluated
// before the generic classification engine.
type CustomLabelRule struct {
	LabelName string
	Keywords  []string
	Senders   []string
	Enabled   bool
}

// LabelRef identifies a mailbox-side label
type LabelRef struct {
	ID   string
	Name string
}

// JobRecord is the durable record persisted for a classified message
type JobRecord struct {
	ExternalID string
	ThreadID   string
	Label      string
	Company    string
	Role       string
	Salary     string
	Summary    string
	Method     string
	Confidence string
	UpdatedAt  time.Time
}

// IgnoredRecord is the durable record persisted for a message the
// pipeline evaluated and decided not to track.
type IgnoredRecord struct {
	ExternalID string
	Subject    string
	From       string
	Reason     string
	CreatedAt  time.Time
}

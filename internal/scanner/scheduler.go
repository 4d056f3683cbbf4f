// Package scanner runs the per-session autonomous scan loop: list
// candidates, dedup against three independent sources, classify,
// label, persist. Each session owns one recurring timer and a
// consecutive-error circuit breaker that stops it after repeated
// faults.
package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jobtrail/jobtrail/internal/core"
	"github.com/jobtrail/jobtrail/internal/labels"
	"github.com/jobtrail/jobtrail/internal/rules"
	"go.uber.org/zap"
)

// Classifier is the generic classification engine consulted after
// custom rules.
type Classifier interface {
	Classify(ctx context.Context, email *core.NormalizedEmail) (*core.ClassificationResult, error)
}

// LabelApplier attaches a label to a thread idempotently
type LabelApplier interface {
	Apply(ctx context.Context, mailbox core.Mailbox, threadID, labelName string) (string, error)
}

// Options configures scheduler-wide behavior
type Options struct {
	// Interval between ticks for sessions that do not specify one
	DefaultInterval time.Duration

	// MaxConsecutiveErrors trips the circuit breaker (default 3)
	MaxConsecutiveErrors int

	// SeenTTL is the lifetime of seen markers
	SeenTTL time.Duration

	// LabelDelay is the pause after each label-applying operation,
	// respecting mailbox provider quotas
	LabelDelay time.Duration
}

// Scheduler owns all scan sessions. Session state is reachable only
// through its methods.
type Scheduler struct {
	resolver    core.SessionResolver
	engine      Classifier
	customRules core.CustomRuleSource
	applicator  LabelApplier
	jobs        core.JobStore
	ignored     core.IgnoredStore
	seen        core.Cache
	opts        Options
	logger      *zap.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// session is the per-id scheduling unit, owned exclusively by the
// Scheduler.
type session struct {
	id         string
	query      string
	maxResults int
	interval   time.Duration
	stopCh     chan struct{}

	// tickMu serializes ticks for this session: a tick that outlives
	// the interval delays the next one instead of overlapping it.
	tickMu sync.Mutex

	mu                sync.Mutex
	running           bool
	consecutiveErrors int
	lastSummary       *core.ScanSummary
}

// New creates a scan scheduler
func New(
	resolver core.SessionResolver,
	engine Classifier,
	customRules core.CustomRuleSource,
	applicator LabelApplier,
	jobs core.JobStore,
	ignored core.IgnoredStore,
	seen core.Cache,
	opts Options,
	logger *zap.Logger,
) *Scheduler {
	if opts.MaxConsecutiveErrors <= 0 {
		opts.MaxConsecutiveErrors = 3
	}
	if opts.DefaultInterval <= 0 {
		opts.DefaultInterval = 5 * time.Minute
	}
	if opts.SeenTTL <= 0 {
		opts.SeenTTL = 24 * time.Hour
	}
	return &Scheduler{
		resolver:    resolver,
		engine:      engine,
		customRules: customRules,
		applicator:  applicator,
		jobs:        jobs,
		ignored:     ignored,
		seen:        seen,
		opts:        opts,
		logger:      logger,
		sessions:    make(map[string]*session),
	}
}

// Start begins recurring scans for a session. Starting an already
// running session is a no-op that reports the existing state.
func (s *Scheduler) Start(sessionID, query string, maxResults int) *core.SessionStatus {
	s.mu.Lock()
	if sess, ok := s.sessions[sessionID]; ok {
		sess.mu.Lock()
		if sess.running {
			status := sess.status()
			sess.mu.Unlock()
			s.mu.Unlock()
			s.logger.Info("Session already running",
				zap.String("session_id", sessionID))
			return status
		}
		sess.mu.Unlock()
	}

	sess := &session{
		id:         sessionID,
		query:      query,
		maxResults: maxResults,
		interval:   s.opts.DefaultInterval,
		stopCh:     make(chan struct{}),
		running:    true,
	}
	s.sessions[sessionID] = sess
	s.mu.Unlock()

	go s.run(sess)

	s.logger.Info("Session started",
		zap.String("session_id", sessionID),
		zap.String("query", query),
		zap.Int("max_results", maxResults))

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.status()
}

// Stop clears a session's timer. An in-flight tick completes naturally.
func (s *Scheduler) Stop(sessionID string) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		return
	}

	sess.mu.Lock()
	if sess.running {
		sess.running = false
		close(sess.stopCh)
	}
	sess.mu.Unlock()

	s.logger.Info("Session stopped", zap.String("session_id", sessionID))
}

// StopAll stops every running session
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		s.Stop(id)
	}
}

// Status reports a session's externally visible state. An unknown
// session reports as not running.
func (s *Scheduler) Status(sessionID string) *core.SessionStatus {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		return &core.SessionStatus{}
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.status()
}

// status builds the externally visible state. Caller holds sess.mu.
func (sess *session) status() *core.SessionStatus {
	return &core.SessionStatus{
		Running:         sess.running,
		Query:           sess.query,
		MaxResults:      sess.maxResults,
		LastScanSummary: sess.lastSummary,
		ErrorCount:      sess.consecutiveErrors,
	}
}

// run drives a session's recurring timer until stop or breaker trip
func (s *Scheduler) run(sess *session) {
	ticker := time.NewTicker(sess.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(sess)
		case <-sess.stopCh:
			return
		}
	}
}

// tick executes one scan cycle and updates the error budget. Ticks
// for one session never overlap; tickMu serializes them.
func (s *Scheduler) tick(sess *session) {
	sess.tickMu.Lock()
	defer sess.tickMu.Unlock()

	ctx := context.Background()
	summary, err := s.scan(ctx, sess.id, sess.query, sess.maxResults, nil)

	sess.mu.Lock()
	sess.lastSummary = summary
	if err == nil {
		sess.consecutiveErrors = 0
		sess.mu.Unlock()
		return
	}

	sess.consecutiveErrors++
	errorCount := sess.consecutiveErrors
	tripped := errorCount >= s.opts.MaxConsecutiveErrors
	if tripped && sess.running {
		sess.running = false
		close(sess.stopCh)
	}
	sess.mu.Unlock()

	if tripped {
		// Circuit breaker: the timer is not re-armed automatically
		s.logger.Error("auto-scan-stopped: consecutive error limit reached",
			zap.String("session_id", sess.id),
			zap.Int("consecutive_errors", errorCount),
			zap.Error(err))
		return
	}

	s.logger.Warn("Scan tick failed",
		zap.String("session_id", sess.id),
		zap.Int("consecutive_errors", errorCount),
		zap.Error(err))
}

// RunOnce executes a single synchronous scan cycle outside any timer.
// Failures are surfaced to the caller. When the session is registered,
// the run holds its tick lock so it never overlaps a scheduled tick.
func (s *Scheduler) RunOnce(ctx context.Context, sessionID, query string, maxResults int) (*core.ScanOutcome, error) {
	s.mu.Lock()
	sess := s.sessions[sessionID]
	s.mu.Unlock()
	if sess != nil {
		sess.tickMu.Lock()
		defer sess.tickMu.Unlock()
	}

	outcome := &core.ScanOutcome{}
	_, err := s.scan(ctx, sessionID, query, maxResults, outcome)
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// scan is one scan-and-classify cycle. outcome is optional and only
// filled for RunOnce callers.
func (s *Scheduler) scan(ctx context.Context, sessionID, query string, maxResults int, outcome *core.ScanOutcome) (*core.ScanSummary, error) {
	started := time.Now()
	summary := &core.ScanSummary{
		TickID:    uuid.NewString(),
		StartedAt: started,
	}
	defer func() {
		summary.Duration = time.Since(started)
	}()

	mailbox, err := s.resolver.Resolve(ctx, sessionID)
	if err != nil {
		return summary, fmt.Errorf("failed to resolve session credentials: %w", err)
	}
	if mailbox == nil {
		return summary, fmt.Errorf("no credentials for session %s", sessionID)
	}

	ids, err := mailbox.ListMessages(ctx, query, maxResults)
	if err != nil {
		return summary, fmt.Errorf("failed to list messages: %w", err)
	}
	summary.MessagesFound = len(ids)
	if outcome != nil {
		outcome.Found = len(ids)
	}

	var customRuleList []core.CustomLabelRule
	if s.customRules != nil {
		if customRuleList, err = s.customRules.RulesFor(ctx, sessionID); err != nil {
			s.logger.Warn("Failed to load custom rules",
				zap.String("session_id", sessionID),
				zap.Error(err))
		}
	}

	// Candidates are processed strictly in listing order
	for _, id := range ids {
		processed, msg, err := s.processCandidate(ctx, sessionID, mailbox, id, customRuleList)
		if err != nil {
			summary.Errors++
			s.logger.Warn("Failed to process candidate",
				zap.String("session_id", sessionID),
				zap.String("message_id", id),
				zap.Error(err))
			continue
		}
		if processed {
			summary.Processed++
			if outcome != nil && msg != nil {
				outcome.Processed++
				outcome.Results = append(outcome.Results, *msg)
			}
		}
	}

	s.logger.Info("Scan cycle complete",
		zap.String("session_id", sessionID),
		zap.String("tick_id", summary.TickID),
		zap.Int("found", summary.MessagesFound),
		zap.Int("processed", summary.Processed),
		zap.Int("errors", summary.Errors),
		zap.Duration("duration", time.Since(started)))

	return summary, nil
}

// processCandidate runs the dedup checks and, for surviving
// candidates, the classify-label-persist sequence. Returns whether the
// candidate was processed (false when deduped).
func (s *Scheduler) processCandidate(
	ctx context.Context,
	sessionID string,
	mailbox core.Mailbox,
	id string,
	customRuleList []core.CustomLabelRule,
) (bool, *core.ProcessedMessage, error) {
	// Three independent dedup sources, checked in order: seen marker,
	// job store, ignored store. Any hit skips before paying for
	// classification.
	if entry, err := s.seen.Get(ctx, id); err == nil && entry != nil {
		return false, nil, nil
	}
	if rec, err := s.jobs.FindByExternalID(ctx, id); err != nil {
		return false, nil, err
	} else if rec != nil {
		s.markSeen(ctx, id)
		return false, nil, nil
	}
	if rec, err := s.ignored.FindByExternalID(ctx, id); err != nil {
		return false, nil, err
	} else if rec != nil {
		s.markSeen(ctx, id)
		return false, nil, nil
	}

	email, err := mailbox.GetMessage(ctx, id)
	if err != nil {
		return false, nil, fmt.Errorf("failed to fetch message: %w", err)
	}

	// Custom rules take priority over the generic engine
	if result := rules.MatchCustom(email, customRuleList); result != nil {
		if _, err := s.applicator.Apply(ctx, mailbox, email.ThreadID, result.Label); err != nil {
			return false, nil, err
		}
		if err := s.persistJob(ctx, email, result); err != nil {
			return false, nil, err
		}
		s.markSeen(ctx, id)
		s.pause()
		return true, &core.ProcessedMessage{MessageID: id, Label: result.Label, Result: result}, nil
	}

	result, err := s.engine.Classify(ctx, email)
	if err != nil {
		return false, nil, err
	}

	if result == nil || result.IsSkip {
		reason := "no-match"
		if result != nil {
			reason = "classified-skip"
		}
		rec := &core.IgnoredRecord{
			ExternalID: id,
			Subject:    email.Subject,
			From:       email.From,
			Reason:     reason,
			CreatedAt:  time.Now(),
		}
		if err := s.ignored.Create(ctx, rec); err != nil {
			return false, nil, err
		}
		s.markSeen(ctx, id)
		return true, &core.ProcessedMessage{MessageID: id, Skipped: true}, nil
	}

	labelName := labels.PresetName(result.Label)
	if _, err := s.applicator.Apply(ctx, mailbox, email.ThreadID, labelName); err != nil {
		return false, nil, err
	}
	if err := s.persistJob(ctx, email, result); err != nil {
		return false, nil, err
	}
	s.markSeen(ctx, id)
	s.pause()

	return true, &core.ProcessedMessage{MessageID: id, Label: labelName, Result: result}, nil
}

// persistJob upserts the durable record for a classified message
func (s *Scheduler) persistJob(ctx context.Context, email *core.NormalizedEmail, result *core.ClassificationResult) error {
	return s.jobs.UpsertByExternalID(ctx, &core.JobRecord{
		ExternalID: email.ID,
		ThreadID:   email.ThreadID,
		Label:      result.Label,
		Company:    result.Company,
		Role:       result.Role,
		Salary:     result.Salary,
		Summary:    result.Summary,
		Method:     result.Method,
		Confidence: string(result.Confidence),
		UpdatedAt:  time.Now(),
	})
}

// markSeen writes the seen marker for a message id. A nil value is
// enough; presence is the signal.
func (s *Scheduler) markSeen(ctx context.Context, id string) {
	if err := s.seen.Set(ctx, id, nil, s.opts.SeenTTL); err != nil {
		s.logger.Error("Failed to write seen marker",
			zap.String("message_id", id),
			zap.Error(err))
	}
}

// pause inserts the post-label delay that keeps the mailbox provider
// quota happy.
func (s *Scheduler) pause() {
	if s.opts.LabelDelay > 0 {
		time.Sleep(s.opts.LabelDelay)
	}
}

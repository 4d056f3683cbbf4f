// Package session provides the in-process credential registry backing
// the core.SessionResolver port. OAuth acquisition and renewal live
// outside this module; whatever layer performs them registers the
// resulting mailbox handle here.
package session

import (
	"context"
	"sync"

	"github.com/jobtrail/jobtrail/internal/core"
	"go.uber.org/zap"
)

// Registry maps session ids to live mailbox handles
type Registry struct {
	mu         sync.RWMutex
	mailboxes  map[string]core.Mailbox
	onRegister func(sessionID string)
	logger     *zap.Logger
}

// NewRegistry creates an empty session registry
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		mailboxes: make(map[string]core.Mailbox),
		logger:    logger,
	}
}

// OnRegister sets a callback invoked whenever a session's mailbox
// handle is registered. Used to auto-start scanning for new sessions.
func (r *Registry) OnRegister(fn func(sessionID string)) {
	r.mu.Lock()
	r.onRegister = fn
	r.mu.Unlock()
}

// Register installs or replaces the mailbox handle for a session
func (r *Registry) Register(sessionID string, mailbox core.Mailbox) {
	r.mu.Lock()
	r.mailboxes[sessionID] = mailbox
	fn := r.onRegister
	r.mu.Unlock()

	r.logger.Info("Session credentials registered", zap.String("session_id", sessionID))

	if fn != nil {
		fn(sessionID)
	}
}

// Unregister removes a session's mailbox handle, e.g. when its
// credentials are revoked.
func (r *Registry) Unregister(sessionID string) {
	r.mu.Lock()
	delete(r.mailboxes, sessionID)
	r.mu.Unlock()

	r.logger.Info("Session credentials removed", zap.String("session_id", sessionID))
}

// Resolve returns the mailbox handle for a session, or nil when the
// session has no usable credentials.
func (r *Registry) Resolve(ctx context.Context, sessionID string) (core.Mailbox, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mailboxes[sessionID], nil
}

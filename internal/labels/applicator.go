// Package labels applies classification labels to mailbox threads.
// Apply is idempotent: repeated calls neither duplicate labels nor
// lose inbox visibility.
package labels

import (
	"context"
	"fmt"

	"github.com/jobtrail/jobtrail/internal/core"
	"go.uber.org/zap"
)

// inboxLabelID is the provider's visibility marker, re-asserted on
// every apply so archived threads surface again.
const inboxLabelID = "INBOX"

// Applicator resolves-or-creates labels and attaches them at the
// thread level.
type Applicator struct {
	logger *zap.Logger
}

// NewApplicator creates a label applicator
func NewApplicator(logger *zap.Logger) *Applicator {
	return &Applicator{logger: logger}
}

// Apply resolves labelName in the mailbox, creating it from static
// configuration if absent, then attaches it and the inbox visibility
// marker to the thread. Returns the label id.
func (a *Applicator) Apply(ctx context.Context, mailbox core.Mailbox, threadID, labelName string) (string, error) {
	labelID, err := a.resolveOrCreate(ctx, mailbox, labelName)
	if err != nil {
		return "", err
	}

	if err := mailbox.ModifyThreadLabels(ctx, threadID, []string{labelID, inboxLabelID}, nil); err != nil {
		return "", fmt.Errorf("failed to attach label %q to thread %s: %w", labelName, threadID, err)
	}

	return labelID, nil
}

// resolveOrCreate finds a label by name, migrating legacy-named
// labels in place, or creates it with color fallbacks.
func (a *Applicator) resolveOrCreate(ctx context.Context, mailbox core.Mailbox, labelName string) (string, error) {
	existing, err := mailbox.ListLabels(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list labels: %w", err)
	}

	for _, ref := range existing {
		if ref.Name == labelName {
			return ref.ID, nil
		}
	}

	cfg := presetByName(labelName)

	// A label under an old name gets renamed rather than duplicated
	for _, legacy := range cfg.LegacyNames {
		for _, ref := range existing {
			if ref.Name == legacy {
				a.logger.Info("Migrating legacy label",
					zap.String("from", legacy),
					zap.String("to", labelName))
				if err := mailbox.PatchLabel(ctx, ref.ID, map[string]string{"name": labelName}); err != nil {
					return "", fmt.Errorf("failed to rename legacy label %q: %w", legacy, err)
				}
				return ref.ID, nil
			}
		}
	}

	return a.createWithFallbacks(ctx, mailbox, cfg)
}

// createWithFallbacks creates a label, retrying each configured
// fallback color when the provider rejects a display constraint. The
// empty color in the fallback list is the visibility-only last resort.
func (a *Applicator) createWithFallbacks(ctx context.Context, mailbox core.Mailbox, cfg core.LabelConfig) (string, error) {
	colors := append([]string{cfg.Color}, cfg.ColorFallbacks...)

	var lastErr error
	for _, color := range colors {
		attempt := cfg
		attempt.Color = color
		ref, err := mailbox.CreateLabel(ctx, attempt)
		if err == nil {
			return ref.ID, nil
		}
		lastErr = err
		a.logger.Warn("Label creation rejected, trying fallback color",
			zap.String("label", cfg.Name),
			zap.String("color", color),
			zap.Error(err))
	}

	return "", fmt.Errorf("failed to create label %q: %w", cfg.Name, lastErr)
}

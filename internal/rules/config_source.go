package rules

import (
	"context"
	"fmt"

	"github.com/jobtrail/jobtrail/internal/config"
	"github.com/jobtrail/jobtrail/internal/core"
)

// ConfigRuleSource serves custom label rules from the configuration
// file. It implements core.CustomRuleSource; a per-user store can
// replace it without touching the scheduler.
type ConfigRuleSource struct {
	cfg *config.Config
}

// NewConfigRuleSource creates a configuration-backed rule source
func NewConfigRuleSource(cfg *config.Config) *ConfigRuleSource {
	return &ConfigRuleSource{cfg: cfg}
}

// RulesFor returns the configured custom label rules. The config
// source is global, so every session sees the same rules.
func (s *ConfigRuleSource) RulesFor(ctx context.Context, sessionID string) ([]core.CustomLabelRule, error) {
	var raw []struct {
		Label    string   `mapstructure:"label"`
		Keywords []string `mapstructure:"keywords"`
		Senders  []string `mapstructure:"senders"`
		Enabled  bool     `mapstructure:"enabled"`
	}
	if err := s.cfg.GetViper().UnmarshalKey("custom_labels", &raw); err != nil {
		return nil, fmt.Errorf("failed to parse custom_labels config: %w", err)
	}

	out := make([]core.CustomLabelRule, 0, len(raw))
	for _, r := range raw {
		out = append(out, core.CustomLabelRule{
			LabelName: r.Label,
			Keywords:  r.Keywords,
			Senders:   r.Senders,
			Enabled:   r.Enabled,
		})
	}
	return out, nil
}

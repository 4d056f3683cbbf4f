package rules

import (
	"strings"

	"github.com/jobtrail/jobtrail/internal/core"
)

// MatchCustom evaluates per-user custom label rules against an email.
// First enabled rule with a keyword or sender hit wins, independent of
// the preset category rules. Returns nil when no rule matches.
func MatchCustom(email *core.NormalizedEmail, customRules []core.CustomLabelRule) *core.ClassificationResult {
	content := strings.ToLower(email.Subject + " " + email.BodyText)
	sender := strings.ToLower(email.From)

	for _, rule := range customRules {
		if !rule.Enabled || rule.LabelName == "" {
			continue
		}
		for _, kw := range rule.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" && strings.Contains(content, kw) {
				return core.NewResult(rule.LabelName, core.ConfidenceHigh, "custom-rule")
			}
		}
		for _, s := range rule.Senders {
			s = strings.ToLower(strings.TrimSpace(s))
			if s != "" && strings.Contains(sender, s) {
				return core.NewResult(rule.LabelName, core.ConfidenceHigh, "custom-rule")
			}
		}
	}
	return nil
}

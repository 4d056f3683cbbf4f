// Package rules implements the deterministic stage of the
// classification pipeline: ordered, short-circuiting pattern dispatch
// over exclusion filters, the outbound-application heuristic, and the
// phrase rule table. Enumeration order of each list is the tie-break;
// there is no scoring.
package rules

import (
	"regexp"
	"strings"

	"github.com/jobtrail/jobtrail/internal/core"
	"go.uber.org/zap"
)

// exclusionRule is a named predicate that terminates classification
// with "no result" when it matches.
type exclusionRule struct {
	name    string
	pattern *regexp.Regexp
}

// phraseRule maps a phrase pattern to a category. First match wins.
type phraseRule struct {
	pattern    *regexp.Regexp
	category   string
	confidence core.Confidence
}

// Exclusion filters, evaluated in order before anything else. A match
// on any of these means the email is not a job-search event no matter
// what the phrase rules would say.
var exclusionRules = []exclusionRule{
	{
		name: "finance-receipt",
		pattern: regexp.MustCompile(`(?i)(receipt|invoice|order confirmation|payment (received|confirmed|due)|billing statement|your order (has )?(shipped|arrived)|\d+% off|discount code|promo code)`),
	},
	{
		name: "newsletter",
		pattern: regexp.MustCompile(`(?i)(unsubscribe|view (this email )?in (your )?browser|newsletter|weekly digest|daily digest|email preferences)`),
	},
	{
		name: "reminder",
		pattern: regexp.MustCompile(`(?i)(reminder:|don'?t forget|upcoming event|calendar invit|rsvp by)`),
	},
	{
		name: "job-alert",
		pattern: regexp.MustCompile(`(?i)(job alert|jobs? (for you|you may be interested)|new jobs? (matching|posted|near)|recommended (jobs|for you)|apply now to these|daily job (matches|digest))`),
	},
}

// Phrase rules. Order encodes precedence: interview outranks the
// weaker offer phrases only because it is evaluated earlier.
var phraseRules = []phraseRule{
	{
		pattern:    regexp.MustCompile(`(?i)(interview (scheduled|invitation|confirmed|availability)|schedule (an? |your )?interview|phone screen|technical interview|on-?site interview|final round|next round of interviews|invite you to (an? )?interview|coding challenge|online assessment|take-?home (assignment|exercise))`),
		category:   core.CategoryInterview,
		confidence: core.ConfidenceHigh,
	},
	{
		pattern:    regexp.MustCompile(`(?i)(offer letter|job offer|offer of employment|pleased to (extend|offer)|extend (you )?an offer|compensation package|sign(ing)? bonus)`),
		category:   core.CategoryOffer,
		confidence: core.ConfidenceHigh,
	},
	{
		pattern:    regexp.MustCompile(`(?i)(we regret to inform|not (been )?selected|decided (to move forward|to proceed) with other|pursue other candidates|position has been filled|no longer under consideration|unfortunately,? (we|your))`),
		category:   core.CategoryRejection,
		confidence: core.ConfidenceHigh,
	},
	{
		pattern:    regexp.MustCompile(`(?i)(thank you for applying|application (was |has been )?(received|submitted)|we('ve| have) received your application|successfully applied|your application (to|for|was sent))`),
		category:   core.CategoryApplication,
		confidence: core.ConfidenceHigh,
	},
}

// Generic-content vocabulary that suppresses a weak "offer" match on
// promotional subjects ("special offer inside!").
var promotionalSubject = regexp.MustCompile(`(?i)(newsletter|digest|guide|tips|webinar|sale|deal|special offer|exclusive offer|limited time|% off)`)

// Keywords that mark an outbound message as an application the user
// sent themselves.
var outboundIntent = regexp.MustCompile(`(?i)(i am applying|i would like to apply|my application for|please find my (resume|cv)|attached (is )?my (resume|cv)|cover letter)`)

// Classifier evaluates the deterministic rule layers for one user
type Classifier struct {
	userAddress string
	denylist    []string
	logger      *zap.Logger
}

// NewClassifier creates a rule classifier. userAddress identifies
// outbound mail; denylist is the personal-sender exclusion list.
func NewClassifier(userAddress string, denylist []string, logger *zap.Logger) *Classifier {
	normalized := make([]string, len(denylist))
	for i, s := range denylist {
		normalized[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return &Classifier{
		userAddress: strings.ToLower(strings.TrimSpace(userAddress)),
		denylist:    normalized,
		logger:      logger,
	}
}

// Exclude reports whether an exclusion filter matches, and which one.
// Exclusions run before every other rule and short-circuit the whole
// pipeline.
func (c *Classifier) Exclude(email *core.NormalizedEmail) (bool, string) {
	content := email.Subject + " " + email.BodyText

	// finance/receipt and newsletter rules precede the sender denylist
	for _, rule := range exclusionRules[:2] {
		if rule.pattern.MatchString(content) {
			return true, rule.name
		}
	}

	sender := strings.ToLower(email.From)
	for _, denied := range c.denylist {
		if denied != "" && strings.Contains(sender, denied) {
			return true, "personal-sender"
		}
	}

	for _, rule := range exclusionRules[2:] {
		if rule.pattern.MatchString(content) {
			return true, rule.name
		}
	}

	return false, ""
}

// Classify runs the outbound heuristic and the phrase rule table.
// Returns nil when nothing matches; the caller decides whether to
// escalate to the AI stage.
func (c *Classifier) Classify(email *core.NormalizedEmail) *core.ClassificationResult {
	content := email.Subject + " " + email.BodyText

	// Outbound application: mail the user sent with application intent
	if c.userAddress != "" && strings.Contains(strings.ToLower(email.From), c.userAddress) {
		if outboundIntent.MatchString(content) {
			return core.NewResult(core.CategoryApplication, core.ConfidenceHigh, "outbound-application")
		}
	}

	for _, rule := range phraseRules {
		if !rule.pattern.MatchString(content) {
			continue
		}
		// A weak offer hit on a promotional-looking subject is a false
		// positive ("special offer" language), not a job offer.
		if rule.category == core.CategoryOffer && promotionalSubject.MatchString(email.Subject) {
			continue
		}
		c.logger.Debug("Phrase rule matched",
			zap.String("category", rule.category),
			zap.String("message_id", email.ID))
		return core.NewResult(rule.category, rule.confidence, "rule-phrase")
	}

	return nil
}

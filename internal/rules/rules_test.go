package rules

import (
	"testing"

	"github.com/jobtrail/jobtrail/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClassifier() *Classifier {
	return NewClassifier("me@example.com", []string{"mom@family.net"}, zap.NewNop())
}

func TestPhraseRuleApplication(t *testing.T) {
	c := newTestClassifier()
	email := &core.NormalizedEmail{
		Subject:  "Thank you for applying to Acme Corp",
		From:     "careers@acme.example",
		BodyText: "We received your application for Backend Engineer.",
	}

	excluded, _ := c.Exclude(email)
	require.False(t, excluded)

	result := c.Classify(email)
	require.NotNil(t, result)
	assert.Equal(t, core.CategoryApplication, result.Label)
	assert.Equal(t, core.ConfidenceHigh, result.Confidence)
	assert.Equal(t, "rule-phrase", result.Method)
	assert.Equal(t, core.Unknown, result.Company)
}

func TestFinanceReceiptExclusion(t *testing.T) {
	c := newTestClassifier()
	email := &core.NormalizedEmail{
		Subject:  "50% off your next order!",
		From:     "billing@shop.com",
		BodyText: "Your receipt is attached.",
	}

	excluded, reason := c.Exclude(email)
	assert.True(t, excluded)
	assert.Equal(t, "finance-receipt", reason)
}

func TestExclusionPrecedesPhraseRules(t *testing.T) {
	c := newTestClassifier()

	// Matches both the newsletter exclusion and the interview phrase;
	// exclusion wins.
	email := &core.NormalizedEmail{
		Subject:  "How to ace your technical interview",
		From:     "digest@careersite.example",
		BodyText: "Top tips this week. Click unsubscribe to stop receiving this.",
	}

	excluded, reason := c.Exclude(email)
	assert.True(t, excluded)
	assert.Equal(t, "newsletter", reason)
}

func TestPersonalSenderDenylist(t *testing.T) {
	c := newTestClassifier()
	email := &core.NormalizedEmail{
		Subject:  "Did you get the job offer?",
		From:     "Mom <mom@family.net>",
		BodyText: "So proud of you!",
	}

	excluded, reason := c.Exclude(email)
	assert.True(t, excluded)
	assert.Equal(t, "personal-sender", reason)
}

func TestJobAlertExclusion(t *testing.T) {
	c := newTestClassifier()
	email := &core.NormalizedEmail{
		Subject:  "Job alert: 12 new jobs matching your profile",
		From:     "alerts@jobboard.example",
		BodyText: "Backend Engineer at Acme and more.",
	}

	excluded, reason := c.Exclude(email)
	assert.True(t, excluded)
	assert.Equal(t, "job-alert", reason)
}

func TestWeakOfferSuppressedOnPromotionalSubject(t *testing.T) {
	c := newTestClassifier()
	email := &core.NormalizedEmail{
		Subject:  "A special offer just for you",
		From:     "deals@vendor.example",
		BodyText: "We are pleased to extend this compensation package of savings.",
	}

	result := c.Classify(email)
	assert.Nil(t, result)
}

func TestOfferOnPlainSubjectMatches(t *testing.T) {
	c := newTestClassifier()
	email := &core.NormalizedEmail{
		Subject:  "Your offer from Acme",
		From:     "recruiting@acme.example",
		BodyText: "We are pleased to extend an offer for the role of Backend Engineer.",
	}

	result := c.Classify(email)
	require.NotNil(t, result)
	assert.Equal(t, core.CategoryOffer, result.Label)
}

func TestInterviewOutranksOffer(t *testing.T) {
	c := newTestClassifier()

	// Content matching both categories resolves by rule order
	email := &core.NormalizedEmail{
		Subject:  "Next steps",
		From:     "recruiting@acme.example",
		BodyText: "Before we extend an offer we would like to schedule an interview.",
	}

	result := c.Classify(email)
	require.NotNil(t, result)
	assert.Equal(t, core.CategoryInterview, result.Label)
}

func TestOutboundApplicationHeuristic(t *testing.T) {
	c := newTestClassifier()
	email := &core.NormalizedEmail{
		Subject:  "Backend Engineer role",
		From:     "Me <me@example.com>",
		BodyText: "Hello, I am applying for the Backend Engineer position. Please find my resume attached.",
	}

	result := c.Classify(email)
	require.NotNil(t, result)
	assert.Equal(t, core.CategoryApplication, result.Label)
	assert.Equal(t, "outbound-application", result.Method)
}

func TestRejectionPhrase(t *testing.T) {
	c := newTestClassifier()
	email := &core.NormalizedEmail{
		Subject:  "Your application to Acme",
		From:     "careers@acme.example",
		BodyText: "We regret to inform you that we have decided to move forward with other candidates.",
	}

	result := c.Classify(email)
	require.NotNil(t, result)
	assert.Equal(t, core.CategoryRejection, result.Label)
}

func TestNoMatchReturnsNil(t *testing.T) {
	c := newTestClassifier()
	email := &core.NormalizedEmail{
		Subject:  "Lunch tomorrow?",
		From:     "friend@example.org",
		BodyText: "Want to grab lunch at noon?",
	}

	excluded, _ := c.Exclude(email)
	require.False(t, excluded)
	assert.Nil(t, c.Classify(email))
}

func TestMatchCustomKeyword(t *testing.T) {
	email := &core.NormalizedEmail{
		Subject:  "Freelance contract renewal",
		From:     "client@smallco.example",
		BodyText: "Attached is the renewed freelance agreement.",
	}
	customRules := []core.CustomLabelRule{
		{LabelName: "Clients", Keywords: []string{"freelance"}, Enabled: true},
	}

	result := MatchCustom(email, customRules)
	require.NotNil(t, result)
	assert.Equal(t, "Clients", result.Label)
	assert.Equal(t, "custom-rule", result.Method)
}

func TestMatchCustomDisabledRuleIgnored(t *testing.T) {
	email := &core.NormalizedEmail{
		Subject: "Freelance work",
		From:    "client@smallco.example",
	}
	customRules := []core.CustomLabelRule{
		{LabelName: "Clients", Keywords: []string{"freelance"}, Enabled: false},
	}

	assert.Nil(t, MatchCustom(email, customRules))
}

func TestMatchCustomSender(t *testing.T) {
	email := &core.NormalizedEmail{
		Subject: "Weekly sync",
		From:    "pm@agency.example",
	}
	customRules := []core.CustomLabelRule{
		{LabelName: "Agency", Senders: []string{"@agency.example"}, Enabled: true},
	}

	result := MatchCustom(email, customRules)
	require.NotNil(t, result)
	assert.Equal(t, "Agency", result.Label)
}

// Package triage provides a simple, deterministic, concurrency-safe
// rule-based classifier for incoming customer messages. It is intentionally
// small and dependency-free, but engineered with production-grade ergonomics:
//
//   - No logging in the library (callers decide how/what to log)
//   - Clear, documented types and functional options (Option pattern)
//   - Immutable, read-only classifier after construction (safe for
//     concurrent use)
//   - Deterministic precedence between cue classes
//   - Sensible default cue lists tuned for support traffic
//
// Classification precedence is fixed: question cues win over sentiment cues,
// negative sentiment wins over positive, and anything unrecognized falls back
// to a query so a human-facing flow can still respond.
package triage

import (
	"regexp"
	"strings"
)

// Classification labels the intent of a customer message.
type Classification string

// The three supported message classes.
const (
	PositiveFeedback Classification = "POSITIVE_FEEDBACK"
	NegativeFeedback Classification = "NEGATIVE_FEEDBACK"
	Query            Classification = "QUERY"
)

// ticketIDRE matches the first standalone 6-digit sequence in a message.
var ticketIDRE = regexp.MustCompile(`\b(\d{6})\b`)

// ExtractTicketID returns the first 6-digit sequence found in the message.
// The second return value is false when no such sequence exists.
func ExtractTicketID(message string) (string, bool) {
	m := ticketIDRE.FindStringSubmatch(message)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ----------------------------------------------------------------------------
// Options

// Option customizes classifier construction.
type Option func(*config)

type config struct {
	questionCues []string
	negativeCues []string
	positiveCues []string
}

func defaultConfig() config {
	return config{
		questionCues: []string{
			"how", "when", "what", "where", "why", "status", "ticket",
			"help", "can you", "could you",
		},
		negativeCues: []string{
			"not happy", "unhappy", "angry", "bad", "worst", "terrible",
			"horrible", "complain", "complaint", "issue", "problem",
			"frustrated", "disappointed", "did not work", "didn't work",
			"didnt work", "money deducted", "debited but",
		},
		positiveCues: []string{
			"thank you", "thanks", "great", "awesome", "good service",
			"well done", "happy", "satisfied", "love the service",
		},
	}
}

// WithQuestionCues replaces the default question cue list. Empty entries are
// dropped; an entirely empty list disables question detection (the "?" check
// still applies).
func WithQuestionCues(cues []string) Option {
	return func(c *config) { c.questionCues = normalizeCues(cues) }
}

// WithNegativeCues replaces the default negative-sentiment cue list.
func WithNegativeCues(cues []string) Option {
	return func(c *config) { c.negativeCues = normalizeCues(cues) }
}

// WithPositiveCues replaces the default positive-sentiment cue list.
func WithPositiveCues(cues []string) Option {
	return func(c *config) { c.positiveCues = normalizeCues(cues) }
}

func normalizeCues(cues []string) []string {
	out := make([]string, 0, len(cues))
	for _, cue := range cues {
		cue = strings.ToLower(strings.TrimSpace(cue))
		if cue != "" {
			out = append(out, cue)
		}
	}
	return out
}

// ----------------------------------------------------------------------------
// Classifier

// Classifier assigns a Classification to customer messages using substring
// cues. It is immutable after construction and safe for concurrent use.
type Classifier struct {
	cfg config
}

// NewClassifier builds a Classifier with default cue lists, optionally
// customized via options.
func NewClassifier(opts ...Option) *Classifier {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Classifier{cfg: cfg}
}

// Classify labels a customer message.
//
// Precedence:
//  1. A question mark or any question cue → Query.
//  2. Any negative-sentiment cue → NegativeFeedback.
//  3. Any positive-sentiment cue → PositiveFeedback.
//  4. Fallback → Query.
func (c *Classifier) Classify(message string) Classification {
	msg := strings.TrimSpace(message)
	lower := strings.ToLower(msg)

	if strings.Contains(msg, "?") || containsAny(lower, c.cfg.questionCues) {
		return Query
	}
	if containsAny(lower, c.cfg.negativeCues) {
		return NegativeFeedback
	}
	if containsAny(lower, c.cfg.positiveCues) {
		return PositiveFeedback
	}
	return Query
}

// containsAny reports whether lower contains any of the (lowercase) cues.
func containsAny(lower string, cues []string) bool {
	for _, cue := range cues {
		if strings.Contains(lower, cue) {
			return true
		}
	}
	return false
}

// Package moderation evaluates turn text against an ordered list of safety
// rules. The first matching rule determines the reason code and severity.
// Flags are advisory: they mark content for human review, never block it.
package moderation

import (
	"regexp"
	"strings"

	"backend/internal/models"
)

// Reason codes for flagged content.
const (
	ReasonSelfHarm           = "self_harm"
	ReasonViolence           = "violence"
	ReasonHateSpeech         = "hate_speech"
	ReasonSexualContent      = "sexual_content"
	ReasonBullying           = "bullying"
	ReasonDrugs              = "drugs"
	ReasonPersonalInfo       = "personal_info"
	ReasonAcademicDishonesty = "academic_dishonesty"
	ReasonProfanity          = "profanity"
	ReasonOversizeMessage    = "oversize_message"
	ReasonSpam               = "spam"
	ReasonOffTopic           = "off_topic"
)

// SafetySignal is the moderation verdict for a single turn.
type SafetySignal struct {
	Flagged  bool   `json:"flagged"`
	Reason   string `json:"reason,omitempty"`
	Severity string `json:"severity,omitempty"`
}

type rule struct {
	reason   string
	severity string
	patterns []*regexp.Regexp
}

// Filter holds the compiled rule list. Stateless and safe for concurrent use.
type Filter struct {
	rules         []rule
	maxMessageLen int
}

// NewFilter compiles the default safety ruleset.
func NewFilter() *Filter {
	return &Filter{
		rules:         compiledRules,
		maxMessageLen: 2000,
	}
}

// Evaluate runs the prioritized checks over the text. No match means not
// flagged.
func (f *Filter) Evaluate(text string) SafetySignal {
	lower := strings.ToLower(strings.TrimSpace(text))
	if len(lower) < 2 {
		return SafetySignal{}
	}

	for _, r := range f.rules {
		for _, p := range r.patterns {
			if p.MatchString(lower) {
				return SafetySignal{Flagged: true, Reason: r.reason, Severity: r.severity}
			}
		}
	}

	if count := profanityCount(lower); count >= 2 {
		return SafetySignal{Flagged: true, Reason: ReasonProfanity, Severity: models.SeverityMedium}
	}

	if len(text) > f.maxMessageLen {
		return SafetySignal{Flagged: true, Reason: ReasonOversizeMessage, Severity: models.SeverityMedium}
	}

	if isSpamLike(text, lower) {
		return SafetySignal{Flagged: true, Reason: ReasonSpam, Severity: models.SeverityLow}
	}

	for _, p := range offTopicPatterns {
		if p.MatchString(lower) {
			return SafetySignal{Flagged: true, Reason: ReasonOffTopic, Severity: models.SeverityMedium}
		}
	}

	return SafetySignal{}
}

func profanityCount(lower string) int {
	count := 0
	for _, word := range profanityWords {
		if strings.Contains(lower, word) {
			count++
		}
	}
	return count
}

// hasRepeatedRune reports whether any rune occurs five or more times in
// a row.
func hasRepeatedRune(s string) bool {
	var prev rune
	run := 0
	for _, r := range s {
		if r == prev {
			run++
			if run >= 5 {
				return true
			}
		} else {
			prev = r
			run = 1
		}
	}
	return false
}

func isSpamLike(original, lower string) bool {
	// Repetitive content: long message built from very few distinct words.
	words := strings.Fields(lower)
	if len(lower) > 20 {
		distinct := make(map[string]struct{}, len(words))
		for _, w := range words {
			distinct[w] = struct{}{}
		}
		if len(distinct) < 3 {
			return true
		}
	}

	if strings.Count(original, "?") > 5 {
		return true
	}
	if len(original) > 10 && original == strings.ToUpper(original) && original != lower {
		return true
	}
	return hasRepeatedRune(lower)
}

// Package classifier labels conversation turns along the topic, sentiment
// and question-type axes. The rule-based implementation is deterministic:
// the same text and ruleset always produce the same labels.
package classifier

import (
	"strings"

	"go.uber.org/zap"

	"backend/internal/models"
)

// Classifier turns one conversation turn's text into a label set. The
// pipeline depends on this interface so rule sets or small models can be
// swapped without touching ingestion.
type Classifier interface {
	Classify(text, role string) models.Labels
}

// TopicFallback is assigned when no vocabulary keyword matches.
const TopicFallback = "general"

// DegradedLabels is the label set used when classification fails
// internally. Ingestion always completes with these rather than erroring.
func DegradedLabels() models.Labels {
	return models.Labels{
		Topic:        "unknown",
		Sentiment:    models.SentimentNeutral,
		QuestionType: models.QuestionOther,
	}
}

type topicRule struct {
	name     string
	keywords map[string]struct{}
}

// RuleClassifier is the default keyword/lexicon classifier.
type RuleClassifier struct {
	topics []topicRule
	logger *zap.Logger
}

// NewRuleClassifier builds a classifier from the default vocabulary merged
// with extra topics from configuration. Extra keywords for an existing
// topic extend it; new topic names are appended in sorted order so the
// ruleset stays deterministic regardless of map iteration.
func NewRuleClassifier(extraTopics map[string][]string, logger *zap.Logger) *RuleClassifier {
	c := &RuleClassifier{logger: logger}

	for _, t := range defaultTopics {
		c.addTopic(t.name, t.keywords)
	}
	for _, name := range sortedKeys(extraTopics) {
		c.addTopic(name, extraTopics[name])
	}

	return c
}

func (c *RuleClassifier) addTopic(name string, keywords []string) {
	for i := range c.topics {
		if c.topics[i].name == name {
			for _, kw := range keywords {
				c.topics[i].keywords[strings.ToLower(kw)] = struct{}{}
			}
			return
		}
	}
	rule := topicRule{name: name, keywords: make(map[string]struct{}, len(keywords))}
	for _, kw := range keywords {
		rule.keywords[strings.ToLower(kw)] = struct{}{}
	}
	c.topics = append(c.topics, rule)
}

// Classify labels the text. Empty or whitespace-only text yields neutral
// sentiment and the fallback topic rather than an error.
func (c *RuleClassifier) Classify(text, role string) models.Labels {
	trimmed := strings.TrimSpace(text)
	words := tokenize(trimmed)

	labels := models.Labels{
		Topic:        c.classifyTopic(words),
		Sentiment:    classifySentiment(words),
		QuestionType: models.QuestionNone,
	}
	if role == models.RoleStudent {
		labels.QuestionType = classifyQuestionType(strings.ToLower(trimmed), words)
	}
	return labels
}

// classifyTopic picks the topic with the most keyword hits. Ties go to the
// earlier topic in ruleset order; zero hits means the fallback.
func (c *RuleClassifier) classifyTopic(words []string) string {
	best := TopicFallback
	bestScore := 0
	for _, rule := range c.topics {
		score := 0
		for _, w := range words {
			if _, ok := rule.keywords[w]; ok {
				score++
			}
		}
		if score > bestScore {
			best = rule.name
			bestScore = score
		}
	}
	return best
}

func classifySentiment(words []string) string {
	positive, negative := 0, 0
	for _, w := range words {
		if _, ok := positiveLexicon[w]; ok {
			positive++
		}
		if _, ok := negativeLexicon[w]; ok {
			negative++
		}
	}
	switch {
	case positive > negative:
		return models.SentimentPositive
	case negative > positive:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

// classifyQuestionType applies only to student-authored turns.
func classifyQuestionType(lower string, words []string) string {
	if len(words) == 0 {
		return models.QuestionOther
	}

	for _, marker := range openEndedMarkers {
		if strings.Contains(lower, marker) {
			return models.QuestionOpenEnded
		}
	}

	first := words[0]
	if _, ok := factualLeads[first]; ok {
		return models.QuestionFactual
	}
	if strings.HasSuffix(strings.TrimSpace(lower), "?") {
		return models.QuestionFactual
	}

	return models.QuestionOther
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r != '\''
	})
}

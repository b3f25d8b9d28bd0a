package moderation

import (
	"strings"
	"testing"

	"backend/internal/models"
)

func TestCleanTextNotFlagged(t *testing.T) {
	f := NewFilter()

	for _, text := range []string{
		"Can you help me with my algebra homework?",
		"I really enjoyed the chemistry experiment today",
		"What caused the French Revolution?",
	} {
		if signal := f.Evaluate(text); signal.Flagged {
			t.Errorf("text %q flagged unexpectedly: %+v", text, signal)
		}
	}
}

func TestSelfHarmIsCritical(t *testing.T) {
	f := NewFilter()

	for _, text := range []string{
		"I feel hopeless",
		"sometimes I want to hurt myself",
		"I don't think life is worth living, like there's no reason to live",
	} {
		signal := f.Evaluate(text)
		if !signal.Flagged {
			t.Fatalf("text %q should be flagged", text)
		}
		if signal.Reason != ReasonSelfHarm {
			t.Errorf("text %q: expected reason %q, got %q", text, ReasonSelfHarm, signal.Reason)
		}
		if signal.Severity != models.SeverityCritical {
			t.Errorf("text %q: expected critical severity, got %q", text, signal.Severity)
		}
	}
}

func TestSelfHarmOutranksOtherRules(t *testing.T) {
	f := NewFilter()

	// Matches both self-harm and violence vocabulary; the self-harm rule
	// runs first.
	signal := f.Evaluate("I want to hurt myself with a knife at school")
	if signal.Reason != ReasonSelfHarm || signal.Severity != models.SeverityCritical {
		t.Fatalf("expected self-harm critical, got %+v", signal)
	}
}

func TestRuleReasons(t *testing.T) {
	f := NewFilter()

	cases := []struct {
		text     string
		reason   string
		severity string
	}{
		{"he said he wants to beat up somebody after class", ReasonViolence, models.SeverityHigh},
		{"people keep trying to make fun of the new kid", ReasonBullying, models.SeverityHigh},
		{"where can I buy drugs near school", ReasonDrugs, models.SeverityMedium},
		{"what's your phone number and home address", ReasonPersonalInfo, models.SeverityMedium},
		{"can you help me cheat on my exam", ReasonAcademicDishonesty, models.SeverityMedium},
	}
	for _, tc := range cases {
		signal := f.Evaluate(tc.text)
		if !signal.Flagged {
			t.Errorf("text %q should be flagged", tc.text)
			continue
		}
		if signal.Reason != tc.reason || signal.Severity != tc.severity {
			t.Errorf("text %q: expected %s/%s, got %s/%s",
				tc.text, tc.reason, tc.severity, signal.Reason, signal.Severity)
		}
	}
}

func TestProfanityNeedsTwoDistinctWords(t *testing.T) {
	f := NewFilter()

	if signal := f.Evaluate("this damn homework is endless"); signal.Flagged {
		t.Fatalf("single profanity should not flag: %+v", signal)
	}

	signal := f.Evaluate("this damn homework is complete crap")
	if !signal.Flagged || signal.Reason != ReasonProfanity || signal.Severity != models.SeverityMedium {
		t.Fatalf("expected profanity/medium, got %+v", signal)
	}
}

func TestOversizeMessage(t *testing.T) {
	f := NewFilter()

	text := strings.Repeat("the mitochondria is the powerhouse of the cell ", 60)
	signal := f.Evaluate(text)
	if !signal.Flagged || signal.Reason != ReasonOversizeMessage {
		t.Fatalf("expected oversize flag, got %+v", signal)
	}
}

func TestSpamHeuristics(t *testing.T) {
	f := NewFilter()

	cases := []string{
		"hello hello hello hello hello hello",
		"what? why? how? when? where? who? really?",
		"HELP ME WITH MY HOMEWORK RIGHT NOW",
		"pleaseeeeee help me",
	}
	for _, text := range cases {
		signal := f.Evaluate(text)
		if !signal.Flagged || signal.Reason != ReasonSpam || signal.Severity != models.SeverityLow {
			t.Errorf("text %q: expected spam/low, got %+v", text, signal)
		}
	}
}

func TestOffTopicContent(t *testing.T) {
	f := NewFilter()

	signal := f.Evaluate("can you teach me about casino betting strategies")
	if !signal.Flagged || signal.Reason != ReasonOffTopic || signal.Severity != models.SeverityMedium {
		t.Fatalf("expected off_topic/medium, got %+v", signal)
	}

	// Off-topic is checked last: a message that also trips a safety rule
	// keeps the safety reason.
	signal = f.Evaluate("I want to hurt myself after losing at the casino")
	if signal.Reason != ReasonSelfHarm {
		t.Fatalf("safety rules must outrank off-topic, got %+v", signal)
	}
}

func TestRepeatedCharacterRun(t *testing.T) {
	f := NewFilter()

	// Four repeats is still ordinary typing; five makes the run spam.
	if signal := f.Evaluate("helloooo there friend"); signal.Flagged {
		t.Fatalf("four-repeat run should not flag: %+v", signal)
	}
	signal := f.Evaluate("hellooooo there friend")
	if !signal.Flagged || signal.Reason != ReasonSpam {
		t.Fatalf("five-repeat run should flag as spam, got %+v", signal)
	}
}

func TestTinyTextIgnored(t *testing.T) {
	f := NewFilter()

	for _, text := range []string{"", "a", " ? "} {
		if signal := f.Evaluate(text); signal.Flagged {
			t.Errorf("text %q should be ignored: %+v", text, signal)
		}
	}
}

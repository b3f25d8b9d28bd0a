package moderation

import (
	"regexp"

	"backend/internal/models"
)

// Rules are ordered by priority: the first match wins. Self-harm outranks
// everything else so a message hitting several rules is routed to the most
// urgent review queue.
var compiledRules = []rule{
	{
		reason:   ReasonSelfHarm,
		severity: models.SeverityCritical,
		patterns: compile(
			`\b(kill\s+myself|hurt\s+myself|harm\s+myself|cut\s+myself|end\s+my\s+life|take\s+my\s+life)\b`,
			`\b(suicide|self\s*harm|overdose)\b`,
			`\b(want\s+to\s+die|better\s+off\s+dead|not\s+worth\s+living|ending\s+it\s+all)\b`,
			`\b(hopeless|worthless|no\s+reason\s+to\s+live|nothing\s+matters\s+anymore)\b`,
		),
	},
	{
		reason:   ReasonViolence,
		severity: models.SeverityHigh,
		patterns: compile(
			`\b(kill|hurt|shoot|stab|attack|bomb)\s+(someone|somebody|him|her|them|people)\b`,
			`\b(threaten\s+to\s+kill|going\s+to\s+shoot|planning\s+to\s+hurt)\b`,
			`\b(weapon|gun|knife|bomb|explosive)\b.*\b(school|teacher|student|classmate)\b`,
			`\b(beat\s+up|punch|hit)\b.*\b(someone|somebody|them|him|her)\b`,
		),
	},
	{
		reason:   ReasonHateSpeech,
		severity: models.SeverityHigh,
		patterns: compile(
			`\b(hate|despise|loathe)\b.*\b(people|group|religion|race|gender|community|minority)\b`,
			`\b(racist|sexist|homophobic|transphobic)\b`,
			`\b(kill\s+all|destroy\s+all|eliminate\s+all)\b.*\b(people|group|race|religion)\b`,
			`\b(inferior|superior)\b.*\b(race|people|group)\b`,
		),
	},
	{
		reason:   ReasonSexualContent,
		severity: models.SeverityHigh,
		patterns: compile(
			`\b(porn|pornography|nude|naked|sexual)\b.*\b(video|photo|image|picture|content)\b`,
			`\b(sexting|nude\s+photo)\b`,
		),
	},
	{
		reason:   ReasonBullying,
		severity: models.SeverityHigh,
		patterns: compile(
			`\b(bully|harass|intimidate|threaten)\b.*\b(someone|somebody|student|classmate)\b`,
			`\b(spread\s+rumors|make\s+fun\s+of)\b`,
			`\b(exclude|ostracize)\b.*\b(someone|somebody|student|classmate)\b`,
		),
	},
	{
		reason:   ReasonDrugs,
		severity: models.SeverityMedium,
		patterns: compile(
			`\b(buy\s+drugs|sell\s+drugs|get\s+high|smoke\s+weed|do\s+drugs|drug\s+dealer)\b`,
			`\b(marijuana|cocaine|heroin|meth|ecstasy|lsd)\b.*\b(buy|sell|use|take|try)\b`,
			`\b(alcohol|beer|wine|drunk|drinking)\b.*\b(underage|minor|teen)\b`,
		),
	},
	{
		reason:   ReasonPersonalInfo,
		severity: models.SeverityMedium,
		patterns: compile(
			`\b(phone\s+number|home\s+address|social\s+security)\b`,
			`\b(credit\s+card|bank\s+account|password|login)\b`,
			`\b(personal\s+information|private\s+details)\b.*\b(share|give|tell)\b`,
		),
	},
	{
		reason:   ReasonAcademicDishonesty,
		severity: models.SeverityMedium,
		patterns: compile(
			`\b(cheat\s+on\s+(a\s+|my\s+|this\s+|the\s+)?(test|exam|quiz)|copy\s+homework|plagiarize|steal\s+answers)\b`,
			`\b(buy\s+essay|essay\s+service|test\s+answers\s+online)\b`,
			`\b(help\s+me\s+cheat|let\s+me\s+cheat)\b`,
		),
	},
}

// offTopicPatterns catch education-inappropriate requests that carry no
// safety risk of their own. Checked last, after every safety rule and
// heuristic.
var offTopicPatterns = compile(
	`\b(gambling|casino|betting|poker\s+money|lottery\s+numbers)\b`,
	`\b(illegal\s+activities|how\s+to\s+steal|how\s+to\s+shoplift)\b`,
)

var profanityWords = []string{
	"fuck", "shit", "damn", "bitch", "bastard", "crap", "piss", "dick",
	"whore", "slut",
}

func compile(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}
	return compiled
}

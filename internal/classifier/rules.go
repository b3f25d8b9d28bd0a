package classifier

import "sort"

// Default subject vocabulary. The list is ordered: ties in keyword hits
// resolve to the earlier topic.
var defaultTopics = []struct {
	name     string
	keywords []string
}{
	{"math", []string{
		"math", "algebra", "geometry", "calculus", "equation", "fraction",
		"number", "multiply", "divide", "subtract", "decimal", "percent",
		"triangle", "graph", "probability",
	}},
	{"science", []string{
		"science", "biology", "chemistry", "physics", "atom", "molecule",
		"cell", "energy", "gravity", "planet", "experiment", "species",
		"climate", "photosynthesis", "electricity",
	}},
	{"history", []string{
		"history", "war", "revolution", "ancient", "empire", "president",
		"civilization", "century", "historical", "dynasty", "colonial",
	}},
	{"writing", []string{
		"writing", "essay", "grammar", "paragraph", "sentence", "poem",
		"story", "novel", "vocabulary", "spelling", "literature", "reading",
	}},
	{"coding", []string{
		"code", "coding", "programming", "python", "javascript", "computer",
		"algorithm", "function", "variable", "software", "website", "robot",
	}},
	{"arts", []string{
		"art", "music", "painting", "drawing", "instrument", "theater",
		"dance", "song", "sculpture", "photography",
	}},
	{"life_skills", []string{
		"career", "money", "budget", "health", "exercise", "friendship",
		"goal", "habit", "teamwork",
	}},
}

var positiveLexicon = toSet([]string{
	"love", "like", "great", "awesome", "fun", "cool", "happy", "excited",
	"amazing", "good", "best", "wonderful", "thanks", "thank", "enjoy",
	"interesting", "curious", "yes", "exciting", "helpful", "fantastic",
})

var negativeLexicon = toSet([]string{
	"hate", "boring", "hard", "difficult", "confused", "confusing", "stuck",
	"bad", "worst", "sad", "angry", "frustrated", "annoying", "stupid",
	"hopeless", "tired", "worried", "scared", "can't", "never", "impossible",
})

// openEndedMarkers indicate exploratory questions; checked before the
// factual leads because "why" questions often start with "what".
var openEndedMarkers = []string{
	"why ", "why?", "how would", "how could", "how might", "what if",
	"what do you think", "explain", "imagine", "compare", "describe how",
	"tell me about",
}

var factualLeads = toSet([]string{
	"what", "when", "where", "who", "which", "how", "is", "are", "was",
	"were", "does", "do", "did", "can", "could", "will",
})

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package intent

import (
	"strings"
	"unicode/utf8"
)

// Intent is the classified purpose of a user message.
type Intent string

const (
	Restaurant    Intent = "restaurant"
	Activity      Intent = "activity"
	GeneralTravel Intent = "general-travel"
)

// All lists every intent. Adding one needs both a rule here and a registry entry.
var All = []Intent{Restaurant, Activity, GeneralTravel}

// Parse maps a stored label back to an Intent. Unknown labels become GeneralTravel.
func Parse(raw string) Intent {
	switch Intent(strings.ToLower(strings.TrimSpace(raw))) {
	case Restaurant:
		return Restaurant
	case Activity:
		return Activity
	default:
		return GeneralTravel
	}
}

const (
	scoreThreshold = 2
	phraseBoost    = 5
	templeBoost    = 3
	longKeyword    = 5 // keywords longer than this many runes weigh 2
)

// Hint carries the only pieces of history classification is allowed to see.
type Hint struct {
	Previous       Intent
	NewDestination bool
}

// Decision is the classification result with the scores that produced it.
type Decision struct {
	Intent        Intent
	RestaurantPts int
	ActivityPts   int
	Reason        string
}

// Classify returns the intent for text without conversational history.
func Classify(text string) Intent {
	return ClassifyWithHint(text, Hint{}).Intent
}

// ClassifyWithHint classifies text and lets a prior intent carry over when the
// message is a short follow-up without a signal of its own.
func ClassifyWithHint(text string, hint Hint) Decision {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return Decision{Intent: GeneralTravel, Reason: "empty"}
	}

	for _, rule := range compoundRules {
		if rule.matches(normalized) {
			return Decision{Intent: rule.intent, Reason: "compound"}
		}
	}

	food := scoreKeywords(normalized, restaurantKeywords) + scorePhrases(normalized, restaurantPhrases)
	act := scoreKeywords(normalized, activityKeywords) + scorePhrases(normalized, activityPhrases)
	if containsTerm(normalized, "วัด") || containsTerm(normalized, "temple") {
		act += templeBoost
	}

	decision := Decision{Intent: GeneralTravel, RestaurantPts: food, ActivityPts: act, Reason: "score"}
	switch {
	case food > act && food >= scoreThreshold:
		decision.Intent = Restaurant
	case act > food && act >= scoreThreshold:
		decision.Intent = Activity
	default:
		decision.Reason = "below-threshold"
	}

	if decision.Intent == GeneralTravel && hint.Previous != "" && hint.Previous != GeneralTravel &&
		!hint.NewDestination && isFollowUp(normalized) {
		decision.Intent = hint.Previous
		decision.Reason = "follow-up"
	}
	return decision
}

type compoundRule struct {
	intent Intent
	all    []string
}

func (r compoundRule) matches(normalized string) bool {
	for _, word := range r.all {
		if !containsTerm(normalized, word) {
			return false
		}
	}
	return true
}

func scoreKeywords(normalized string, keywords []string) int {
	score := 0
	for _, word := range keywords {
		if containsTerm(normalized, word) {
			score += keywordWeight(word)
		}
	}
	return score
}

func keywordWeight(word string) int {
	if utf8.RuneCountInString(word) > longKeyword {
		return 2
	}
	return 1
}

func scorePhrases(normalized string, phrases []string) int {
	score := 0
	for _, phrase := range phrases {
		if containsTerm(normalized, phrase) {
			score += phraseBoost
		}
	}
	return score
}

func isFollowUp(normalized string) bool {
	if len(strings.Fields(normalized)) <= 5 {
		return true
	}
	for _, marker := range followUpMarkers {
		if containsTerm(normalized, marker) {
			return true
		}
	}
	return false
}

// containsTerm reports whether term occurs in normalized. Thai has no word
// separators, so Thai terms match anywhere; ASCII terms must start a word,
// which keeps "eat" out of "great" and "theater" but still finds "restaurants".
func containsTerm(normalized, term string) bool {
	if !isASCII(term) {
		return strings.Contains(normalized, term)
	}
	for offset := 0; ; {
		i := strings.Index(normalized[offset:], term)
		if i < 0 {
			return false
		}
		at := offset + i
		if at == 0 || !isWordByte(normalized[at-1]) {
			return true
		}
		offset = at + 1
	}
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func isWordByte(b byte) bool {
	return b == '_' || ('a' <= b && b <= 'z') || ('0' <= b && b <= '9')
}

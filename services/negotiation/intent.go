// File: services/negotiation/intent.go
package negotiation

import (
	"regexp"
	"strconv"
	"strings"
)

var exitWords = []string{"goodbye", "good bye", "exit", "quit", "stop", "cancel", "never mind", "nevermind"}

// IsExit detects an explicit end-of-conversation request.
func IsExit(text string) bool {
	t := strings.ToLower(text)
	for _, w := range exitWords {
		if strings.Contains(t, w) {
			return true
		}
	}
	return false
}

var rejectionPhrases = []string{
	"none of these", "none of those", "none work", "neither works",
	"don't work", "doesn't work for me", "no, ", "nope",
}

// IsRejection detects the user turning down every presented option.
func IsRejection(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "no" {
		return true
	}
	for _, p := range rejectionPhrases {
		if strings.Contains(t, p) {
			return true
		}
	}
	return false
}

var affirmativePhrases = []string{"sounds good", "works for me", "that works", "perfect", "let's do", "book it", "go ahead"}

// IsAffirmative detects plain agreement with whatever was just offered.
func IsAffirmative(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	switch t {
	case "yes", "yeah", "yep", "sure", "ok", "okay":
		return true
	}
	for _, p := range affirmativePhrases {
		if strings.Contains(t, p) {
			return true
		}
	}
	return false
}

var scheduleLookupPhrases = []string{
	"do i have", "what's on", "whats on", "am i busy", "anything on", "my schedule", "calendar for",
}

// IsScheduleLookup detects a calendar-view question rather than a booking
// request.
func IsScheduleLookup(text string) bool {
	t := strings.ToLower(text)
	for _, p := range scheduleLookupPhrases {
		if strings.Contains(t, p) {
			return true
		}
	}
	return false
}

var greetingWords = []string{"hello", "hey", "good morning", "good afternoon", "good evening", "hi"}

// IsGreeting detects a bare salutation with no scheduling content.
func IsGreeting(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "hi" || t == "hey" || t == "hello" || t == "yo" {
		return true
	}
	if len(t) > 30 {
		return false
	}
	for _, w := range greetingWords {
		if strings.HasPrefix(t, w) {
			return true
		}
	}
	return false
}

var schedulingKeywords = []string{"schedule", "meeting", "book", "plan", "appointment", "call"}

// HasSchedulingIntent detects whether an opening utterance is about booking.
func HasSchedulingIntent(text string) bool {
	t := strings.ToLower(text)
	for _, k := range schedulingKeywords {
		if strings.Contains(t, k) {
			return true
		}
	}
	return false
}

// Ordinals before cardinals: "the second one" must resolve to 2, not 1.
var ordinalWords = []struct {
	re *regexp.Regexp
	n  int
}{
	{regexp.MustCompile(`\bfirst\b`), 1},
	{regexp.MustCompile(`\bsecond\b`), 2},
	{regexp.MustCompile(`\bthird\b`), 3},
	{regexp.MustCompile(`\bfourth\b`), 4},
	{regexp.MustCompile(`\bfifth\b`), 5},
	{regexp.MustCompile(`\bfive\b`), 5},
	{regexp.MustCompile(`\bfour\b`), 4},
	{regexp.MustCompile(`\bthree\b`), 3},
	{regexp.MustCompile(`\btwo\b`), 2},
	{regexp.MustCompile(`\bone\b`), 1},
}

var digitRe = regexp.MustCompile(`\b(\d+)\b`)

// ExtractOptionNumber pulls an option selection out of speech like
// "option 2", "the second one", or a bare digit. Zero means none found.
// Number words match on word boundaries so "none" never reads as "one".
func ExtractOptionNumber(text string) int {
	t := strings.ToLower(text)
	if m := digitRe.FindStringSubmatch(t); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	for _, ord := range ordinalWords {
		if ord.re.MatchString(t) {
			return ord.n
		}
	}
	return 0
}

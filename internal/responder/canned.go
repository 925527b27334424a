// Package responder produces conversational replies for queries the router
// cannot classify: a Gemini-backed responder, a canned keyword responder used
// in demo mode, and decorators for fallback and caching.
package responder

import (
	"context"
	"strings"
)

type cannedRule struct {
	any   []string // at least one must appear; ignored when empty
	all   []string
	reply string
}

// cannedRules are evaluated in order; the first hit wins.
var cannedRules = []cannedRule{
	{all: []string{"weather", "temperature"}, reply: "I can help you check the weather and temperature for any location. What city would you like to know about?"},
	{all: []string{"weather"}, reply: "I can provide weather information for any location. Please specify which city you'd like to know about."},
	{all: []string{"temperature"}, reply: "I can check the current temperature for you. Which location are you interested in?"},
	{all: []string{"rain"}, reply: "I can check if it's raining in a specific location. Where would you like me to check?"},
	{any: []string{"hello", "hi"}, reply: "Hello! I'm a weather assistant. I can help you check the weather, temperature, and rain status for any location."},
}

const defaultCannedReply = "I'm a weather assistant. I can help you with weather information, temperature checks, and rain status for any location. How can I assist you today?"

func (r cannedRule) matches(lower string) bool {
	for _, kw := range r.all {
		if !strings.Contains(lower, kw) {
			return false
		}
	}
	if len(r.any) == 0 {
		return true
	}
	for _, kw := range r.any {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// CannedReply picks a keyword-templated reply for text. It never returns "".
func CannedReply(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range cannedRules {
		if rule.matches(lower) {
			return rule.reply
		}
	}
	return defaultCannedReply
}

// Canned answers with CannedReply and never fails.
type Canned struct{}

// Respond implements router.Responder.
func (Canned) Respond(_ context.Context, text string) (string, error) {
	return CannedReply(text), nil
}

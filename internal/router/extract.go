package router

import (
	"regexp"
	"strings"
)

// UnknownLocation is substituted by the router when extraction finds nothing.
// Extract never returns it.
const UnknownLocation = "unknown location"

// minLocationLen is the shortest accepted candidate, exclusive.
const minLocationLen = 2

// placePattern captures one word, or two when a second follows ("New York").
const placePattern = `(\w+(?:\s+\w+)?)`

// patternRule pairs a matcher with the capture group holding the place.
type patternRule struct {
	re    *regexp.Regexp
	group int
}

// locationRules run most specific first. The bare "in X" rule is anchored to the
// end of the query so incidental prepositional phrases are not captured.
var locationRules = []patternRule{
	{re: regexp.MustCompile(`(?i)weather\s+in\s+` + placePattern), group: 1},
	{re: regexp.MustCompile(`(?i)temperature\s+in\s+` + placePattern), group: 1},
	{re: regexp.MustCompile(`(?i)raining\s+in\s+` + placePattern), group: 1},
	{re: regexp.MustCompile(`(?i)rain\s+in\s+` + placePattern), group: 1},
	{re: regexp.MustCompile(`(?i)\b(?:weather|temperature|rain)\s+(?:for|at)\s+` + placePattern), group: 1},
	{re: regexp.MustCompile(`(?i)\bin\s+` + placePattern + `[\s?.!]*$`), group: 1},
}

// stoplist holds words that are never locations.
var stoplist = map[string]bool{
	"the": true, "is": true, "it": true, "today": true, "now": true, "current": true,
	"like": true, "does": true, "will": true, "are": true, "and": true, "or": true,
}

// Extract returns the location named in query, or false when no rule yields an
// acceptable candidate. Only the first match of each rule is considered; a
// rejected candidate moves evaluation on to the next rule.
func Extract(query string) (string, bool) {
	for _, rule := range locationRules {
		m := rule.re.FindStringSubmatch(query)
		if len(m) <= rule.group {
			continue
		}
		candidate := strings.TrimSpace(m[rule.group])
		if acceptLocation(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func acceptLocation(candidate string) bool {
	if len(candidate) <= minLocationLen {
		return false
	}
	return !stoplist[strings.ToLower(candidate)]
}

// IsStopword reports whether word is on the stoplist (case-insensitive).
func IsStopword(word string) bool {
	return stoplist[strings.ToLower(strings.TrimSpace(word))]
}

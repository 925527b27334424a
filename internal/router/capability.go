package router

import "strings"

// Capability names the handler a query is routed to.
type Capability string

const (
	CapabilityNone        Capability = "none"
	CapabilityWeather     Capability = "weather"
	CapabilityTemperature Capability = "temperature"
	CapabilityRain        Capability = "rain"
)

// String implements fmt.Stringer.
func (c Capability) String() string {
	if c == "" {
		return string(CapabilityNone)
	}
	return string(c)
}

// classifyRule is one row of the classification decision table. A rule fires
// when every keyword in all appears, at least one keyword in any appears (if any
// is non-empty), and no keyword in none appears.
type classifyRule struct {
	all    []string
	any    []string
	none   []string
	result Capability
}

// classifyRules is evaluated top to bottom; the first rule that fires wins.
// Weather outranks temperature when both are mentioned, and a weather query that
// also mentions rain falls through to the rain rule.
var classifyRules = []classifyRule{
	{all: []string{"weather", "temperature"}, result: CapabilityWeather},
	{all: []string{"weather"}, none: []string{"temperature", "rain"}, result: CapabilityWeather},
	{all: []string{"temperature"}, none: []string{"weather"}, result: CapabilityTemperature},
	{any: []string{"rain", "raining"}, result: CapabilityRain},
}

func (r classifyRule) matches(lower string) bool {
	for _, kw := range r.all {
		if !strings.Contains(lower, kw) {
			return false
		}
	}
	if len(r.any) > 0 {
		found := false
		for _, kw := range r.any {
			if strings.Contains(lower, kw) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, kw := range r.none {
		if strings.Contains(lower, kw) {
			return false
		}
	}
	return true
}

// Classify maps a query to exactly one capability. It is total: the empty
// query and anything without a keyword hit classify as CapabilityNone.
func Classify(query string) Capability {
	lower := strings.ToLower(query)
	for _, rule := range classifyRules {
		if rule.matches(lower) {
			return rule.result
		}
	}
	return CapabilityNone
}

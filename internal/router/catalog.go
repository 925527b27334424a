package router

import "strings"

// Tool describes one capability as a named tool.
type Tool struct {
	Name        string
	Description string
	Capability  Capability
}

// Tools lists every capability in display order.
var Tools = []Tool{
	{Name: "get_weather", Description: "Get comprehensive weather information for a location", Capability: CapabilityWeather},
	{Name: "get_temperature", Description: "Get current temperature for a location", Capability: CapabilityTemperature},
	{Name: "check_rain", Description: "Check if it's currently raining in a location", Capability: CapabilityRain},
}

// ExampleQueries are routed by `weatheragent --examples`.
var ExampleQueries = []string{
	"Hello! What can you help me with?",
	"What's the weather in London?",
	"What's the temperature in New York?",
	"Is it raining in Tokyo?",
	"Tell me about the weather in Paris",
}

var helpQueries = []string{
	"What's the weather in London?",
	"What's the temperature in New York?",
	"Is it raining in Tokyo?",
}

// ToolByName looks up a tool by its name.
func ToolByName(name string) (Tool, bool) {
	for _, t := range Tools {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}

// ToolsHelp renders the tool list with example queries.
func ToolsHelp() string {
	var b strings.Builder
	b.WriteString("Available tools:\n")
	for _, t := range Tools {
		b.WriteString("- " + t.Name + ": " + t.Description + "\n")
	}
	b.WriteString("\nExample queries:\n")
	for i, q := range helpQueries {
		b.WriteString("- '" + q + "'")
		if i < len(helpQueries)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/weatheragent/internal/config"
	"github.com/hpungsan/weatheragent/internal/router"
)

// runCLI runs the app with the given args and stdin, returning stdout and stderr.
func runCLI(t *testing.T, cfg *config.Config, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := newCLIApp(cfg, strings.NewReader(stdin), &stdout, &stderr)
	err := app.Run(append([]string{"weatheragent"}, args...))
	return stdout.String(), stderr.String(), err
}

func demoConfig() *config.Config {
	return config.DefaultConfig()
}

func TestIsHelpOrVersion(t *testing.T) {
	assert.True(t, isHelpOrVersion([]string{"weatheragent", "--help"}))
	assert.True(t, isHelpOrVersion([]string{"weatheragent", "-v"}))
	assert.True(t, isHelpOrVersion([]string{"weatheragent", "help"}))
	assert.False(t, isHelpOrVersion([]string{"weatheragent"}))
	assert.False(t, isHelpOrVersion([]string{"weatheragent", "chat"}))
}

func TestHelp_MentionsAskForCommandNames(t *testing.T) {
	out, _, err := runCLI(t, demoConfig(), "", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "weatheragent ask <query>")

	// A bare command name runs the command, ask routes it as a query.
	out, _, err = runCLI(t, demoConfig(), "", "tools")
	require.NoError(t, err)
	assert.Contains(t, out, "Available tools:")

	out, _, err = runCLI(t, demoConfig(), "", "ask", "tools")
	require.NoError(t, err)
	assert.NotContains(t, out, "Available tools:")
}

func TestRoot_SingleQuery(t *testing.T) {
	out, errOut, err := runCLI(t, demoConfig(), "", "What's", "the", "weather", "in", "London?")
	require.NoError(t, err)

	assert.Equal(t, "Weather in London: 23°C, Sunny, Humidity: 40%, Not raining\n", out)
	assert.Contains(t, errOut, "WARNING: GOOGLE_AISTUDIO_API_KEY environment variable is not set.")
	assert.Contains(t, errOut, "Running in demo mode with simulated AI responses.")
}

func TestRoot_Examples(t *testing.T) {
	for _, flag := range []string{"--examples", "-e"} {
		t.Run(flag, func(t *testing.T) {
			out, _, err := runCLI(t, demoConfig(), "", flag)
			require.NoError(t, err)

			assert.True(t, strings.HasPrefix(out, "=== Weather Agent Demo Examples ===\n\n"))
			assert.Equal(t, len(router.ExampleQueries), strings.Count(out, "Example Query: "))
			assert.Equal(t, len(router.ExampleQueries), strings.Count(out, "Agent Response: "))
			assert.Contains(t, out, "Example Query: Is it raining in Tokyo?\nAgent Response: It is currently raining in Tokyo\n")
			assert.Contains(t, out, "Agent Response: Weather in Paris: 26°C, Overcast, Humidity: 64%, Not raining\n")
		})
	}
}

func TestExamplesCommand(t *testing.T) {
	out, _, err := runCLI(t, demoConfig(), "", "examples")
	require.NoError(t, err)
	assert.Contains(t, out, "Example Query: Hello! What can you help me with?\nAgent Response: Hello! I'm a weather assistant.")
}

func TestAsk(t *testing.T) {
	out, _, err := runCLI(t, demoConfig(), "", "ask", "Is", "it", "raining", "in", "Tokyo?")
	require.NoError(t, err)
	assert.Equal(t, "It is currently raining in Tokyo\n", out)
}

func TestAsk_JSON(t *testing.T) {
	out, errOut, err := runCLI(t, demoConfig(), "", "ask", "--json", "What's the weather?")
	require.NoError(t, err)
	assert.Empty(t, errOut, "--json keeps the demo warning out of the way")

	var got AskOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	_, idErr := ulid.Parse(got.ID)
	assert.NoError(t, idErr)
	assert.Equal(t, "weather", got.Capability)
	assert.Equal(t, router.UnknownLocation, got.Location)
	assert.True(t, got.Clarification)
	assert.Equal(t, router.Clarification(router.CapabilityWeather), got.Response)
}

func TestAsk_NoQuery(t *testing.T) {
	_, _, err := runCLI(t, demoConfig(), "", "ask")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[INVALID_REQUEST] query is required")
}

func TestTools(t *testing.T) {
	out, _, err := runCLI(t, demoConfig(), "", "tools")
	require.NoError(t, err)
	assert.Equal(t, router.ToolsHelp()+"\n", out)
}

func TestChat(t *testing.T) {
	input := "help\n\n   \nWhat's the weather?\nHello, how are you?\nweather in Oslo\nQUIT\nnever read\n"
	out, _, err := runCLI(t, demoConfig(), input, "chat")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "=== Weather Agent Interactive Session ===\n"))
	assert.Contains(t, out, "Type 'help' for available commands, or 'quit' to exit.\n")
	assert.Contains(t, out, "You: Weather Agent: Available tools:\n- get_weather:")
	assert.Contains(t, out, "Weather Agent: "+router.Clarification(router.CapabilityWeather)+"\n")
	assert.Contains(t, out, "Weather Agent: Hello! I'm a weather assistant.")
	assert.Contains(t, out, "Weather Agent: Weather in Oslo: ")
	assert.True(t, strings.HasSuffix(out, "Weather Agent: Goodbye! Have a great day!\n"))
	assert.NotContains(t, out, "never read")
}

func TestChat_EOFEndsSession(t *testing.T) {
	out, _, err := runCLI(t, demoConfig(), "Is it raining in Tokyo?\n", "chat")
	require.NoError(t, err)
	assert.Contains(t, out, "Weather Agent: It is currently raining in Tokyo\n")
	assert.NotContains(t, out, "Goodbye")
}

func TestRoot_NoArgsStartsChat(t *testing.T) {
	out, _, err := runCLI(t, demoConfig(), "exit\n")
	require.NoError(t, err)
	assert.Contains(t, out, "=== Weather Agent Interactive Session ===")
	assert.Contains(t, out, "Goodbye!")
}

func TestSetup_InvalidLogFormat(t *testing.T) {
	cfg := demoConfig()
	cfg.LogFormat = "xml"

	_, _, err := runCLI(t, cfg, "", "tools")
	require.Error(t, err)
}

func TestRoot_UsesGeminiWhenKeySet(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		_, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"Hi! Ask me about **rain**."}]}}]}`)
	}))
	defer srv.Close()

	cfg := demoConfig()
	cfg.APIKey = "test-key"
	cfg.BaseURL = srv.URL

	out, errOut, err := runCLI(t, cfg, "", "ask", "Hello there")
	require.NoError(t, err)
	assert.Equal(t, "Hi! Ask me about rain.\n", out, "markdown is flattened by default")
	assert.NotContains(t, errOut, "WARNING")

	// Capability queries never reach the backend.
	out, _, err = runCLI(t, cfg, "", "ask", "weather in Oslo")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Weather in Oslo: "))
	assert.EqualValues(t, 1, requests.Load())
}

func TestRoot_GeminiFailureFallsBackToCanned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`)
	}))
	defer srv.Close()

	cfg := demoConfig()
	cfg.APIKey = "bad-key"
	cfg.BaseURL = srv.URL

	out, _, err := runCLI(t, cfg, "", "ask", "Hello, how are you?")
	require.NoError(t, err)
	assert.Equal(t, "Hello! I'm a weather assistant. I can help you check the weather, temperature, and rain status for any location.\n", out)
}

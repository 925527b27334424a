package config

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hpungsan/weatheragent/internal/errors"
)

// Environment variables read by ApplyEnv.
const (
	EnvAPIKey         = "GOOGLE_AISTUDIO_API_KEY"
	EnvModel          = "WEATHERAGENT_MODEL"
	EnvBaseURL        = "WEATHERAGENT_API_BASE_URL"
	EnvRequestTimeout = "WEATHERAGENT_REQUEST_TIMEOUT"
	EnvLogLevel       = "WEATHERAGENT_LOG_LEVEL"
	EnvLogFormat      = "WEATHERAGENT_LOG_FORMAT"
	EnvHTTPAddr       = "WEATHERAGENT_HTTP_ADDR"
)

// Config holds application configuration.
type Config struct {
	// APIKey authenticates against Google AI Studio. Empty means demo mode:
	// the responder answers with canned text and never calls the backend.
	APIKey string `json:"api_key,omitempty"`

	// Model is the Gemini model used for conversational answers.
	Model string `json:"model,omitempty"`

	// BaseURL overrides the Gemini API endpoint, e.g. for a proxy.
	BaseURL string `json:"base_url,omitempty"`

	// RequestTimeoutSeconds bounds one backend call, connect through read.
	RequestTimeoutSeconds int `json:"request_timeout_seconds,omitempty"`

	// RequestsPerSecond caps outbound backend calls. 0 means unlimited.
	RequestsPerSecond *float64 `json:"requests_per_second,omitempty"`

	// CacheSize is the number of backend answers kept in memory. 0 disables the cache.
	CacheSize *int `json:"cache_size,omitempty"`

	// PlainText strips markdown from backend answers before they reach the terminal.
	PlainText *bool `json:"plain_text,omitempty"`

	LogLevel  string `json:"log_level,omitempty"`
	LogFormat string `json:"log_format,omitempty"`

	// HTTPAddr is the listen address for `weatheragent serve`.
	HTTPAddr string `json:"http_addr,omitempty"`

	ShutdownTimeoutSeconds int `json:"shutdown_timeout_seconds,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	rps := 2.0
	cacheSize := 256
	plain := true
	return &Config{
		Model:                  "gemini-2.0-flash",
		RequestTimeoutSeconds:  60,
		RequestsPerSecond:      &rps,
		CacheSize:              &cacheSize,
		PlainText:              &plain,
		LogLevel:               "warn",
		LogFormat:              "console",
		HTTPAddr:               ":8080",
		ShutdownTimeoutSeconds: 10,
	}
}

// RequestTimeout returns the backend call timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// ShutdownTimeout returns the HTTP drain timeout as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// RequestRate returns the outbound request cap, 0 (unlimited) when unset.
func (c *Config) RequestRate() float64 {
	if c.RequestsPerSecond == nil {
		return 0
	}
	return *c.RequestsPerSecond
}

// CacheEntries returns the configured cache size, 0 when unset.
func (c *Config) CacheEntries() int {
	if c.CacheSize == nil {
		return 0
	}
	return *c.CacheSize
}

// PlainTextEnabled reports whether backend markdown is flattened.
func (c *Config) PlainTextEnabled() bool {
	return c.PlainText != nil && *c.PlainText
}

// DemoMode reports whether no API key is configured.
func (c *Config) DemoMode() bool {
	return strings.TrimSpace(c.APIKey) == ""
}

// Load loads configuration from baseDir/config.json, then applies environment
// overrides and validates the result.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.weatheragent.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithRepo loads configuration from both the global directory and the nearest
// .weatheragent/config.json found by walking upward from startDir.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Environment variables win over both.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	cfg := Merge(Merge(DefaultConfig(), global), repo)
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindRepoConfig walks upward from startDir to find the nearest .weatheragent/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	if startDir == "" {
		return ""
	}
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".weatheragent", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// ApplyEnv overlays environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv(EnvAPIKey)); v != "" {
		cfg.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvModel)); v != "" {
		cfg.Model = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBaseURL)); v != "" {
		cfg.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvRequestTimeout)); v != "" {
		secs, err := parseSeconds(v)
		if err != nil {
			return errors.NewInvalidRequest(fmt.Sprintf("invalid %s: %v", EnvRequestTimeout, err))
		}
		cfg.RequestTimeoutSeconds = secs
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvHTTPAddr)); v != "" {
		cfg.HTTPAddr = v
	}
	return nil
}

// parseSeconds accepts either a bare integer ("30") or a Go duration ("30s", "1m").
func parseSeconds(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	return int(d / time.Second), nil
}

// Validate rejects configurations the responder or servers cannot run with.
func Validate(cfg *Config) error {
	if cfg.RequestTimeoutSeconds <= 0 {
		return errors.NewInvalidRequest("request_timeout_seconds must be positive")
	}
	if cfg.RequestRate() < 0 {
		return errors.NewInvalidRequest("requests_per_second must be non-negative")
	}
	if cfg.CacheEntries() < 0 {
		return errors.NewInvalidRequest("cache_size must be non-negative")
	}
	if cfg.ShutdownTimeoutSeconds <= 0 {
		return errors.NewInvalidRequest("shutdown_timeout_seconds must be positive")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return errors.NewInvalidRequest("model is required")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errors.NewInvalidRequest(fmt.Sprintf("unknown log_level %q", cfg.LogLevel))
	}
	switch cfg.LogFormat {
	case "json", "console":
	default:
		return errors.NewInvalidRequest(fmt.Sprintf("unknown log_format %q", cfg.LogFormat))
	}
	return nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the path is empty or the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.APIKey = firstNonEmpty(overlay.APIKey, base.APIKey)
	result.Model = firstNonEmpty(overlay.Model, base.Model)
	result.BaseURL = firstNonEmpty(overlay.BaseURL, base.BaseURL)
	result.LogLevel = firstNonEmpty(overlay.LogLevel, base.LogLevel)
	result.LogFormat = firstNonEmpty(overlay.LogFormat, base.LogFormat)
	result.HTTPAddr = firstNonEmpty(overlay.HTTPAddr, base.HTTPAddr)

	result.RequestTimeoutSeconds = overlay.RequestTimeoutSeconds
	if result.RequestTimeoutSeconds == 0 {
		result.RequestTimeoutSeconds = base.RequestTimeoutSeconds
	}

	result.ShutdownTimeoutSeconds = overlay.ShutdownTimeoutSeconds
	if result.ShutdownTimeoutSeconds == 0 {
		result.ShutdownTimeoutSeconds = base.ShutdownTimeoutSeconds
	}

	// Pointers: overlay wins whenever set, so an explicit 0 or false sticks.
	result.RequestsPerSecond = overlay.RequestsPerSecond
	if result.RequestsPerSecond == nil {
		result.RequestsPerSecond = base.RequestsPerSecond
	}
	result.CacheSize = overlay.CacheSize
	if result.CacheSize == nil {
		result.CacheSize = base.CacheSize
	}
	result.PlainText = overlay.PlainText
	if result.PlainText == nil {
		result.PlainText = base.PlainText
	}

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

package mcp

import (
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/hpungsan/weatheragent/internal/config"
	"github.com/hpungsan/weatheragent/internal/router"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"get_weather": {
		def:     capabilityToolDef(router.CapabilityWeather),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.capabilityHandler(router.CapabilityWeather) },
	},
	"get_temperature": {
		def:     capabilityToolDef(router.CapabilityTemperature),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.capabilityHandler(router.CapabilityTemperature) },
	},
	"check_rain": {
		def:     capabilityToolDef(router.CapabilityRain),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.capabilityHandler(router.CapabilityRain) },
	},
	"ask": {
		def:     askToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAsk },
	},
}

// capabilityToolDef builds the definition for a catalog tool.
func capabilityToolDef(c router.Capability) mcp.Tool {
	for _, t := range router.Tools {
		if t.Capability == c {
			return mcp.NewTool(t.Name,
				mcp.WithDescription(t.Description),
				mcp.WithString("location",
					mcp.Required(),
					mcp.Description("City or place name, e.g. \"London\" or \"New York\""),
				),
				mcp.WithReadOnlyHintAnnotation(true),
			)
		}
	}
	panic("no catalog tool for capability " + c.String())
}

var askToolDef = mcp.NewTool("ask",
	mcp.WithDescription("Ask the weather agent a free-text question. Weather, temperature, and rain questions that name a place are answered directly; anything else gets a conversational reply."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("The question, e.g. \"Is it raining in Tokyo?\""),
	),
	mcp.WithReadOnlyHintAnnotation(true),
)

// AllToolNames returns every tool name, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates an MCP server exposing the weather tools.
// Tools listed in cfg.DisabledTools are not registered.
func NewServer(rt Router, cfg *config.Config, logger *zap.Logger, version string) *server.MCPServer {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := server.NewMCPServer(
		"weatheragent",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	h := NewHandlers(rt, logger)

	if unknown := ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		logger.Warn("ignoring unknown disabled tools", zap.Strings("tools", unknown))
	}
	disabled := make(map[string]bool, len(cfg.DisabledTools))
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for _, name := range AllToolNames() {
		if disabled[name] {
			continue
		}
		entry := toolRegistry[name]
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(rt Router, cfg *config.Config, logger *zap.Logger, version string) error {
	s := NewServer(rt, cfg, logger, version)
	return server.ServeStdio(s)
}

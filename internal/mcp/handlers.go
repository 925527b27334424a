package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/hpungsan/weatheragent/internal/errors"
	"github.com/hpungsan/weatheragent/internal/router"
)

// Router is the part of router.Router the handlers need.
type Router interface {
	Resolve(ctx context.Context, query string) router.Result
	Invoke(ctx context.Context, capability router.Capability, location string) router.Result
}

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	router Router
	logger *zap.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(rt Router, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{router: rt, logger: logger}
}

// LocationRequest represents the arguments for the capability tools.
type LocationRequest struct {
	Location string `json:"location"`
}

// AskRequest represents the arguments for ask. A missing query is the empty query.
type AskRequest struct {
	Query string `json:"query"`
}

// ToolResponse is the JSON body of every successful tool call.
type ToolResponse struct {
	ID            string `json:"id"`
	Capability    string `json:"capability"`
	Location      string `json:"location,omitempty"`
	Clarification bool   `json:"clarification"`
	Response      string `json:"response"`
}

// capabilityHandler answers one capability for the location argument. A
// missing location yields the clarification prompt, not an error.
func (h *Handlers) capabilityHandler(c router.Capability) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		input, err := decode[LocationRequest](req)
		if err != nil {
			return errorResult(errors.NewInvalidRequest(err.Error())), nil
		}
		return h.respond(h.router.Invoke(ctx, c, input.Location))
	}
}

// HandleAsk routes a free-text query.
func (h *Handlers) HandleAsk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AskRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return h.respond(h.router.Resolve(ctx, input.Query))
}

func (h *Handlers) respond(res router.Result) (*mcp.CallToolResult, error) {
	if res.Err != nil {
		if errors.Is(res.Err, errors.ErrInvalidRequest) {
			return errorResult(res.Err), nil
		}
		h.logger.Warn("tool call answered with apology",
			zap.String("capability", res.Capability.String()),
			zap.Error(res.Err))
	}

	return successResult(ToolResponse{
		ID:            ulid.Make().String(),
		Capability:    res.Capability.String(),
		Location:      res.Location,
		Clarification: res.Clarification(),
		Response:      res.Text,
	})
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are never exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if aErr, ok := errors.As(err); ok && aErr.Code != errors.ErrInternal {
		errorObj := map[string]any{
			"code":    aErr.Code,
			"message": strings.TrimSpace(aErr.Message),
			"status":  aErr.Status,
		}
		if aErr.Details != nil {
			errorObj["details"] = aErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}

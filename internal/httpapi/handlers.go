package httpapi

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/hpungsan/weatheragent/internal/errors"
	"github.com/hpungsan/weatheragent/internal/router"
)

// maxBodyBytes caps the /ask request body.
const maxBodyBytes = 64 << 10

// Router is the part of router.Router the handlers need.
type Router interface {
	Resolve(ctx context.Context, query string) router.Result
}

// AskRequest is the POST /ask body. A missing or null query is the empty query.
type AskRequest struct {
	Query string `json:"query"`
}

// AskResponse is the POST /ask reply.
type AskResponse struct {
	ID            string `json:"id"`
	Capability    string `json:"capability"`
	Location      string `json:"location,omitempty"`
	Clarification bool   `json:"clarification"`
	Response      string `json:"response"`
}

// ToolInfo describes one capability tool in GET /tools.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Capability  string `json:"capability"`
}

type handlers struct {
	router  Router
	logger  *zap.Logger
	version string
}

func (h *handlers) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			writeError(w, errors.NewInvalidRequest(fmt.Sprintf("request body exceeds %d bytes", maxBodyBytes)))
			return
		}
		writeError(w, errors.NewInvalidRequest("malformed JSON body: "+err.Error()))
		return
	}
	res := h.router.Resolve(r.Context(), req.Query)
	if res.Err != nil {
		h.logger.Warn("ask answered with apology",
			zap.String("capability", res.Capability.String()),
			zap.Error(res.Err))
	}

	writeJSON(w, http.StatusOK, AskResponse{
		ID:            ulid.Make().String(),
		Capability:    res.Capability.String(),
		Location:      res.Location,
		Clarification: res.Clarification(),
		Response:      res.Text,
	})
}

func (h *handlers) handleTools(w http.ResponseWriter, _ *http.Request) {
	tools := make([]ToolInfo, 0, len(router.Tools))
	for _, t := range router.Tools {
		tools = append(tools, ToolInfo{Name: t.Name, Description: t.Description, Capability: t.Capability.String()})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tools":    tools,
		"examples": router.ExampleQueries,
	})
}

func (h *handlers) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]string{"status": "healthy"}
	if h.version != "" {
		body["version"] = h.version
	}
	writeJSON(w, http.StatusOK, body)
}

// writeError writes a coded error body. Internal details are never exposed.
func writeError(w http.ResponseWriter, err error) {
	aErr, ok := errors.As(err)
	if !ok || aErr.Code == errors.ErrInternal {
		aErr = &errors.AgentError{Code: errors.ErrInternal, Status: http.StatusInternalServerError, Message: "an internal error occurred"}
	}
	errorObj := map[string]any{
		"code":    aErr.Code,
		"message": aErr.Message,
		"status":  aErr.Status,
	}
	if aErr.Details != nil {
		errorObj["details"] = aErr.Details
	}
	writeJSON(w, aErr.Status, map[string]any{"error": errorObj})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}

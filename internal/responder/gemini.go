package responder

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/hpungsan/weatheragent/internal/errors"
	"github.com/hpungsan/weatheragent/internal/observability"
)

// DefaultModel is used when GeminiConfig.Model is empty.
const DefaultModel = "gemini-2.0-flash"

// SystemInstruction tells the backend what kind of assistant it is.
const SystemInstruction = "You are a helpful weather assistant. You answer questions about the weather, " +
	"temperature, and rain in a city. When the user has not named a city, ask which one they mean. " +
	"Keep replies short."

const backendName = "gemini"

// GeminiConfig configures a Gemini responder.
type GeminiConfig struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint. Empty means the public endpoint.
	BaseURL    string
	HTTPClient *http.Client
	// Timeout applies when the caller's context has no deadline.
	Timeout time.Duration
	// RequestsPerSecond caps outbound calls. Zero or less means unlimited.
	RequestsPerSecond float64
	// PlainText strips markdown from replies.
	PlainText bool
	Logger    *zap.Logger
	Metrics   *observability.Metrics
}

// Gemini answers free text through the Gemini generateContent API.
type Gemini struct {
	client    *genai.Client
	model     string
	timeout   time.Duration
	limiter   *rate.Limiter
	plainText bool
	genConfig *genai.GenerateContentConfig
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// NewGemini creates a Gemini responder. A missing API key is a
// BACKEND_MISCONFIGURED error; callers fall back to Canned instead.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.NewBackendMisconfigured("Gemini API key is required")
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  cfg.HTTPClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, errors.NewBackendMisconfigured(fmt.Sprintf("create Gemini client: %v", err))
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Gemini{
		client:    client,
		model:     model,
		timeout:   cfg.Timeout,
		limiter:   rate.NewLimiter(limit, 1),
		plainText: cfg.PlainText,
		genConfig: &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(SystemInstruction, genai.RoleUser),
		},
		logger:  logger,
		metrics: cfg.Metrics,
	}, nil
}

// Model returns the model name requests are sent to.
func (g *Gemini) Model() string {
	return g.model
}

// Respond implements router.Responder. An empty reply is returned as "" with
// no error.
func (g *Gemini) Respond(ctx context.Context, text string) (string, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	if err := g.limiter.Wait(ctx); err != nil {
		g.record("error", 0)
		return "", errors.NewBackendUnavailable(backendName, fmt.Errorf("rate limit: %w", err))
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(text), g.genConfig)
	elapsed := time.Since(start)
	if err != nil {
		g.record("error", elapsed)
		g.logger.Warn("gemini request failed", zap.String("model", g.model), zap.Duration("elapsed", elapsed), zap.Error(err))
		return "", errors.NewBackendUnavailable(backendName, err)
	}

	reply := strings.TrimSpace(resp.Text())
	if reply == "" {
		g.record("empty", elapsed)
		return "", nil
	}
	g.record("success", elapsed)
	g.logger.Debug("gemini reply", zap.String("model", g.model), zap.Duration("elapsed", elapsed), zap.Int("reply_len", len(reply)))

	if g.plainText {
		reply = PlainText(reply)
	}
	return reply, nil
}

func (g *Gemini) record(outcome string, elapsed time.Duration) {
	if g.metrics == nil {
		return
	}
	g.metrics.BackendRequests.WithLabelValues(outcome).Inc()
	if elapsed > 0 {
		g.metrics.BackendDuration.Observe(elapsed.Seconds())
	}
}

package responder

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/hpungsan/weatheragent/internal/observability"
	"github.com/hpungsan/weatheragent/internal/router"
)

// Fallback serves canned replies whenever the primary responder is absent,
// fails, or answers with nothing. It never returns an error.
type Fallback struct {
	primary router.Responder
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewFallback wraps primary. A nil primary means demo mode.
func NewFallback(primary router.Responder, logger *zap.Logger, metrics *observability.Metrics) *Fallback {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fallback{primary: primary, logger: logger, metrics: metrics}
}

// Demo reports whether every reply is canned.
func (f *Fallback) Demo() bool {
	return f.primary == nil
}

// Respond implements router.Responder.
func (f *Fallback) Respond(ctx context.Context, text string) (string, error) {
	if f.primary == nil {
		f.count("demo")
		return CannedReply(text), nil
	}

	reply, err := f.primary.Respond(ctx, text)
	if err != nil {
		f.logger.Warn("responder failed, using canned reply", zap.Error(err))
		f.count("error")
		return CannedReply(text), nil
	}
	if strings.TrimSpace(reply) == "" {
		f.logger.Warn("responder returned empty reply, using canned reply")
		f.count("empty")
		return CannedReply(text), nil
	}
	return reply, nil
}

func (f *Fallback) count(reason string) {
	if f.metrics != nil {
		f.metrics.Fallbacks.WithLabelValues(reason).Inc()
	}
}

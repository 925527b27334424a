package observability

import (
	"go.uber.org/zap"

	"github.com/hpungsan/weatheragent/internal/router"
)

// RouteObserver logs every routing decision and records it in Metrics.
type RouteObserver struct {
	logger  *zap.Logger
	metrics *Metrics
}

// NewRouteObserver creates a router.Observer. Either argument may be nil.
func NewRouteObserver(logger *zap.Logger, metrics *Metrics) *RouteObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RouteObserver{logger: logger, metrics: metrics}
}

// ObserveRoute implements router.Observer.
func (o *RouteObserver) ObserveRoute(e router.RouteEvent) {
	fields := []zap.Field{
		zap.String("capability", e.Capability.String()),
		zap.String("outcome", string(e.Outcome)),
		zap.Duration("duration", e.Duration),
	}
	if e.Location != "" {
		fields = append(fields, zap.String("location", e.Location))
	}

	if e.Err != nil {
		o.logger.Warn("route failed", append(fields, zap.Error(e.Err))...)
	} else {
		o.logger.Debug("route", fields...)
	}

	if o.metrics == nil {
		return
	}
	o.metrics.RoutesTotal.WithLabelValues(e.Capability.String(), string(e.Outcome)).Inc()
	o.metrics.RouteDuration.WithLabelValues(e.Capability.String()).Observe(e.Duration.Seconds())
}

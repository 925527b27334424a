package observability

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hpungsan/weatheragent/internal/router"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level, format string
		wantLevel     zapcore.Level
	}{
		{level: "debug", format: "json", wantLevel: zapcore.DebugLevel},
		{level: "INFO", format: "console", wantLevel: zapcore.InfoLevel},
		{level: "warn", format: "", wantLevel: zapcore.WarnLevel},
		{level: "error", format: "Console", wantLevel: zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		logger, err := NewLogger(tt.level, tt.format)
		require.NoError(t, err, "%s/%s", tt.level, tt.format)
		assert.Equal(t, tt.wantLevel, logger.Level())
	}
}

func TestNewLogger_Invalid(t *testing.T) {
	_, err := NewLogger("loud", "json")
	assert.Error(t, err)

	_, err = NewLogger("info", "xml")
	assert.Error(t, err)
}

func TestNewMetrics_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.RoutesTotal.WithLabelValues("weather", "handled").Inc()
	m.BackendDuration.Observe(0.2)

	count, err := testutil.GatherAndCount(reg, "weatheragent_routes_total", "weatheragent_backend_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.Panics(t, func() { NewMetrics(reg) }, "double registration must panic")
}

func TestRouteObserver_RecordsMetrics(t *testing.T) {
	m := NewMetricsForTesting()
	obs := NewRouteObserver(nil, m)

	obs.ObserveRoute(router.RouteEvent{Capability: router.CapabilityWeather, Location: "London", Outcome: router.OutcomeHandled, Duration: time.Millisecond})
	obs.ObserveRoute(router.RouteEvent{Capability: router.CapabilityWeather, Location: router.UnknownLocation, Outcome: router.OutcomeClarified})
	obs.ObserveRoute(router.RouteEvent{Capability: router.CapabilityWeather, Location: "London", Outcome: router.OutcomeHandled})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RoutesTotal.WithLabelValues("weather", "handled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RoutesTotal.WithLabelValues("weather", "clarified")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RouteDuration))
}

func TestRouteObserver_Logs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	obs := NewRouteObserver(zap.New(core), nil)

	obs.ObserveRoute(router.RouteEvent{Capability: router.CapabilityNone, Outcome: router.OutcomeDelegated})
	obs.ObserveRoute(router.RouteEvent{Capability: router.CapabilityRain, Location: "Tokyo", Outcome: router.OutcomeFailed, Err: errors.New("down")})

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)

	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "delegated", entries[0].ContextMap()["outcome"])
	assert.NotContains(t, entries[0].ContextMap(), "location")

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "Tokyo", entries[1].ContextMap()["location"])
	assert.True(t, strings.Contains(entries[1].ContextMap()["error"].(string), "down"))
}

func TestRouteObserver_ThroughRouter(t *testing.T) {
	m := NewMetricsForTesting()
	r := router.New(nil, nil, router.WithObserver(NewRouteObserver(zap.NewNop(), m)))

	// No location, so neither collaborator is touched.
	r.Route(t.Context(), "What's the weather?")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RoutesTotal.WithLabelValues("weather", "clarified")))
}

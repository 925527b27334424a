package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/hpungsan/weatheragent/internal/config"
	"github.com/hpungsan/weatheragent/internal/observability"
	"github.com/hpungsan/weatheragent/internal/provider"
	"github.com/hpungsan/weatheragent/internal/responder"
	"github.com/hpungsan/weatheragent/internal/router"
)

// runtime is everything a command needs, built once per invocation.
type runtime struct {
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *observability.Metrics
	router   *router.Router
	demo     bool
}

// newRuntime wires logger, metrics, responder chain, and router from cfg.
// Without an API key the responder chain is canned replies only.
func newRuntime(ctx context.Context, cfg *config.Config, debug bool) (*runtime, error) {
	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	logger, err := observability.NewLogger(level, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(reg)

	var primary router.Responder
	if !cfg.DemoMode() {
		gemini, err := responder.NewGemini(ctx, responder.GeminiConfig{
			APIKey:            cfg.APIKey,
			Model:             cfg.Model,
			BaseURL:           cfg.BaseURL,
			Timeout:           cfg.RequestTimeout(),
			RequestsPerSecond: cfg.RequestRate(),
			PlainText:         cfg.PlainTextEnabled(),
			Logger:            logger,
			Metrics:           metrics,
		})
		if err != nil {
			return nil, err
		}
		primary = gemini
		if n := cfg.CacheEntries(); n > 0 {
			primary = responder.NewCached(gemini, n, metrics)
		}
		logger.Debug("gemini responder ready", zap.String("model", gemini.Model()), zap.Int("cache_size", cfg.CacheEntries()))
	}
	fallback := responder.NewFallback(primary, logger, metrics)

	rt := router.New(provider.NewMock(), fallback,
		router.WithObserver(observability.NewRouteObserver(logger, metrics)))

	return &runtime{
		logger:   logger,
		registry: reg,
		metrics:  metrics,
		router:   rt,
		demo:     fallback.Demo(),
	}, nil
}

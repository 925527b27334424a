// Package router decides, from free text, which weather capability a query asks
// for and which location it names, and degrades to a conversational responder
// when no capability applies.
//
// A Router holds only its collaborators and never mutates them, so one Router
// is safe for concurrent use by any number of callers.
package router

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hpungsan/weatheragent/internal/errors"
)

// Apology is returned whenever a collaborator fails.
const Apology = "I apologize, but I encountered an error while processing your request. Please try again."

// clarifications prompt the user for a location, one per capability.
var clarifications = map[Capability]string{
	CapabilityWeather:     "I'd be happy to check the weather for you! Please specify which location you're interested in.",
	CapabilityTemperature: "I can check the temperature for you! Please let me know which location you're interested in.",
	CapabilityRain:        "I can check if it's raining for you! Please specify which location you'd like me to check.",
}

// Clarification returns the prompt used when a query names no location.
func Clarification(c Capability) string {
	return clarifications[c]
}

// CapabilityProvider answers capability queries for a resolved location.
type CapabilityProvider interface {
	Weather(ctx context.Context, location string) (string, error)
	Temperature(ctx context.Context, location string) (string, error)
	Rain(ctx context.Context, location string) (string, error)
}

// Responder produces conversational text for queries no capability claims.
type Responder interface {
	Respond(ctx context.Context, text string) (string, error)
}

// Outcome records how a query was answered.
type Outcome string

const (
	OutcomeHandled   Outcome = "handled"
	OutcomeClarified Outcome = "clarified"
	OutcomeDelegated Outcome = "delegated"
	OutcomeFailed    Outcome = "failed"
)

// Result is the full routing decision for one query.
type Result struct {
	Capability Capability `json:"capability"`
	// Location is the argument passed to the provider, or UnknownLocation.
	// Empty for delegated queries.
	Location string  `json:"location,omitempty"`
	Outcome  Outcome `json:"outcome"`
	Text     string  `json:"response"`
	Err      error   `json:"-"`
}

// Clarification reports whether the result asks the user for a location.
func (r Result) Clarification() bool {
	return r.Outcome == OutcomeClarified
}

// RouteEvent is handed to the Observer once per routed query.
type RouteEvent struct {
	Capability Capability
	Location   string
	Outcome    Outcome
	Duration   time.Duration
	Err        error
}

// Observer receives routing events. Implementations must be safe for concurrent use.
type Observer interface {
	ObserveRoute(RouteEvent)
}

type nopObserver struct{}

func (nopObserver) ObserveRoute(RouteEvent) {}

// Router dispatches queries to a CapabilityProvider or a Responder.
type Router struct {
	provider  CapabilityProvider
	responder Responder
	observer  Observer
	clock     clockwork.Clock
}

// Option configures a Router.
type Option func(*Router)

// WithObserver installs an observability hook.
func WithObserver(o Observer) Option {
	return func(r *Router) {
		if o != nil {
			r.observer = o
		}
	}
}

// WithClock sets the clock used to time routing. Tests pass a fake clock.
func WithClock(c clockwork.Clock) Option {
	return func(r *Router) {
		if c != nil {
			r.clock = c
		}
	}
}

// New creates a Router over the given collaborators.
func New(provider CapabilityProvider, responder Responder, opts ...Option) *Router {
	r := &Router{
		provider:  provider,
		responder: responder,
		observer:  nopObserver{},
		clock:     clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route answers query with user-facing text. It never returns an empty string
// and never fails; collaborator errors surface as Apology.
func (r *Router) Route(ctx context.Context, query string) string {
	return r.Resolve(ctx, query).Text
}

// Resolve runs the full routing decision and reports how it was reached.
func (r *Router) Resolve(ctx context.Context, query string) Result {
	start := r.clock.Now()

	var res Result
	capability := Classify(query)
	if capability == CapabilityNone {
		res = r.delegate(ctx, query)
	} else {
		location, ok := Extract(query)
		if !ok {
			location = UnknownLocation
		}
		res = r.dispatch(ctx, capability, location)
	}

	r.observe(res, start)
	return res
}

// Invoke answers a capability query for a location the caller already has,
// such as an MCP tool argument. An empty location is treated as missing.
func (r *Router) Invoke(ctx context.Context, capability Capability, location string) Result {
	start := r.clock.Now()

	location = strings.TrimSpace(location)
	if location == "" {
		location = UnknownLocation
	}

	var res Result
	if _, known := clarifications[capability]; !known {
		res = failed(capability, location, errors.NewInvalidRequest(fmt.Sprintf("unknown capability %q", capability)))
	} else {
		res = r.dispatch(ctx, capability, location)
	}

	r.observe(res, start)
	return res
}

func (r *Router) delegate(ctx context.Context, query string) Result {
	text, err := r.call(func() (string, error) {
		return r.responder.Respond(ctx, query)
	}, "responder")
	if err != nil {
		return failed(CapabilityNone, "", err)
	}
	return Result{Capability: CapabilityNone, Outcome: OutcomeDelegated, Text: text}
}

func (r *Router) dispatch(ctx context.Context, capability Capability, location string) Result {
	if location == UnknownLocation {
		return Result{
			Capability: capability,
			Location:   location,
			Outcome:    OutcomeClarified,
			Text:       clarifications[capability],
		}
	}

	text, err := r.call(func() (string, error) {
		switch capability {
		case CapabilityWeather:
			return r.provider.Weather(ctx, location)
		case CapabilityTemperature:
			return r.provider.Temperature(ctx, location)
		default:
			return r.provider.Rain(ctx, location)
		}
	}, capability.String())
	if err != nil {
		return failed(capability, location, err)
	}
	return Result{Capability: capability, Location: location, Outcome: OutcomeHandled, Text: text}
}

// call runs a collaborator, converting panics and empty answers into errors.
func (r *Router) call(fn func() (string, error), who string) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			text = ""
			err = errors.NewInternal(fmt.Errorf("%s panicked: %v", who, p))
		}
	}()

	text, err = fn()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.NewInternal(fmt.Errorf("%s returned empty text", who))
	}
	return text, nil
}

func (r *Router) observe(res Result, start time.Time) {
	r.observer.ObserveRoute(RouteEvent{
		Capability: res.Capability,
		Location:   res.Location,
		Outcome:    res.Outcome,
		Duration:   r.clock.Since(start),
		Err:        res.Err,
	})
}

func failed(capability Capability, location string, err error) Result {
	return Result{
		Capability: capability,
		Location:   location,
		Outcome:    OutcomeFailed,
		Text:       Apology,
		Err:        err,
	}
}

package meter

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hkniberg/meter/internal/relay"
	"github.com/hkniberg/meter/pkg/delivery"
	"github.com/hkniberg/meter/pkg/lifecycle"
	"github.com/hkniberg/meter/pkg/log"
)

type (
	// Source produces ticks. See relay.Source.
	Source = relay.Source
	// Display shows the count to a human. See relay.Display.
	Display = relay.Display
	// HTTPClient is satisfied by *http.Client.
	HTTPClient = delivery.HTTPClient
	// State is the lifecycle state of a Meter.
	State = lifecycle.State
)

// Lifecycle states.
const (
	StateStopped  = lifecycle.StateStopped
	StateStarting = lifecycle.StateStarting
	StateRunning  = lifecycle.StateRunning
	StateStopping = lifecycle.StateStopping
	StateCrashed  = lifecycle.StateCrashed
)

// Option configures optional behavior of a Meter.
type Option func(*options)

type options struct {
	httpClient HTTPClient
	logger     log.Logger
	source     Source
	display    Display
	registerer prometheus.Registerer
	observer   lifecycle.Observer
}

// WithHTTPClient sets the client used to reach the collector.
func WithHTTPClient(c HTTPClient) Option {
	return func(o *options) { o.httpClient = c }
}

// WithLogger sets the logger. Without it nothing is logged.
func WithLogger(l log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithSource sets the tick source, overriding Config.Simulate.
func WithSource(s Source) Option {
	return func(o *options) { o.source = s }
}

// WithDisplay shows every persisted tick on d.
func WithDisplay(d Display) Option {
	return func(o *options) { o.display = d }
}

// WithMetrics registers delivery and relay collectors on r.
func WithMetrics(r prometheus.Registerer) Option {
	return func(o *options) { o.registerer = r }
}

// WithStateObserver is called after every lifecycle state change.
func WithStateObserver(fn func(previous, current State, reason string)) Option {
	return func(o *options) { o.observer = fn }
}

package meter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/hkniberg/meter/internal/relay"
	"github.com/hkniberg/meter/internal/source"
	"github.com/hkniberg/meter/pkg/counter"
	"github.com/hkniberg/meter/pkg/delivery"
	"github.com/hkniberg/meter/pkg/lifecycle"
	"github.com/hkniberg/meter/pkg/log"
)

// Meter counts ticks and delivers them to a collector. Use New to create
// one, then Start to begin relaying.
type Meter struct {
	config  Config
	counter *counter.File
	relay   *relay.Relay
	manager *lifecycle.Manager
	logger  log.Logger

	mu     sync.Mutex
	done   chan struct{}
	runErr error
}

// New creates a Meter in StateStopped. Returns an error if the
// configuration is invalid or no tick source is available.
func New(cfg Config, opts ...Option) (*Meter, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{httpClient: &http.Client{}}
	for _, opt := range opts {
		opt(&o)
	}
	logger := log.OrNoop(o.logger)

	src := o.source
	if src == nil {
		if cfg.Simulate <= 0 {
			return nil, errors.New("no tick source: set Simulate or use WithSource")
		}
		src = source.Simulated{Interval: cfg.Simulate, Logger: logger}
	}

	var (
		deliveryMetrics *delivery.Metrics
		relayMetrics    *relay.Metrics
	)
	if o.registerer != nil {
		deliveryMetrics = delivery.NewMetrics(o.registerer)
		relayMetrics = relay.NewMetrics(o.registerer)
	}

	client, err := delivery.New(delivery.Config{
		ServerURL: cfg.ServerURL,
		Timeout:   cfg.ServerTimeout,
		Retry:     cfg.Retry,
		Verbose:   cfg.Verbose,
	},
		delivery.WithHTTPClient(o.httpClient),
		delivery.WithLogger(logger),
		delivery.WithMetrics(deliveryMetrics),
	)
	if err != nil {
		return nil, err
	}

	ctr := counter.NewFile(cfg.StoragePath)
	r, err := relay.New(relay.Config{
		MeterName:                cfg.MeterName,
		MinSendInterval:          cfg.MinSendInterval,
		MaxBatchSize:             cfg.MaxBatchSize,
		MaxEventsPerNotification: cfg.MaxEventsPerNotification,
	}, ctr, client, src,
		relay.WithDisplay(o.display),
		relay.WithLogger(logger),
		relay.WithMetrics(relayMetrics),
	)
	if err != nil {
		return nil, err
	}

	return &Meter{
		config:  cfg,
		counter: ctr,
		relay:   r,
		manager: lifecycle.NewManager(logger, o.observer),
		logger:  logger,
	}, nil
}

// Start begins relaying in the background and returns immediately.
// Returns ErrAlreadyRunning if the meter is already started.
func (m *Meter) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.manager.CanStart() {
		return lifecycle.ErrAlreadyRunning
	}
	if err := m.manager.TransitionTo(StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.manager.SetCancel(cancel)
	done := make(chan struct{})
	m.done = done
	m.runErr = nil

	m.manager.Go(runCtx, "relay", func(ctx context.Context) error {
		defer close(done)
		if err := m.manager.TransitionTo(StateRunning, "relay starting"); err != nil {
			return nil
		}
		err := m.relay.Run(ctx)
		m.mu.Lock()
		m.runErr = err
		m.mu.Unlock()
		return err
	})
	return nil
}

// Stop cancels the relay, waits for its final flush and returns nil on a
// graceful shutdown or ErrShutdownTimeout.
func (m *Meter) Stop() error {
	m.mu.Lock()
	if !m.manager.CanStop() {
		m.mu.Unlock()
		return lifecycle.ErrNotRunning
	}
	if err := m.manager.TransitionTo(StateStopping, "Stop() called"); err != nil {
		m.mu.Unlock()
		return err
	}
	m.manager.Cancel()
	m.mu.Unlock()

	err := m.manager.WaitWithTimeout(m.config.ShutdownTimeout)
	if err != nil {
		_ = m.manager.TransitionTo(StateCrashed, "shutdown timeout")
		return err
	}
	_ = m.manager.TransitionTo(StateStopped, "graceful shutdown")
	return nil
}

// Done is closed when the relay of the current run exits, either because
// the meter was stopped or because its source ended. It is nil before the
// first Start.
func (m *Meter) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done
}

// Err returns the error the last run ended with, if any. A run that ended
// because it was stopped reports context.Canceled.
func (m *Meter) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runErr
}

// Status returns the current lifecycle state.
func (m *Meter) Status() State {
	return m.manager.State()
}

// Count returns the durable tick count.
func (m *Meter) Count() uint64 {
	return m.counter.Count()
}

// Pending returns the number of ticks not yet delivered.
func (m *Meter) Pending() int {
	return m.relay.Pending()
}

// Flush sends pending ticks now instead of waiting for the send interval.
func (m *Meter) Flush(ctx context.Context) error {
	if err := m.relay.Flush(ctx); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

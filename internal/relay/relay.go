package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hkniberg/meter/pkg/batch"
	"github.com/hkniberg/meter/pkg/delivery"
	"github.com/hkniberg/meter/pkg/log"
	"github.com/hkniberg/meter/pkg/notification"
)

// DefaultShutdownFlushTimeout bounds the final flush after the run context
// is cancelled.
const DefaultShutdownFlushTimeout = 10 * time.Second

// Config contains the relay settings.
type Config struct {
	MeterName                string
	MinSendInterval          time.Duration
	MaxBatchSize             int
	MaxEventsPerNotification int
	ShutdownFlushTimeout     time.Duration
}

// Validate checks the settings.
func (c Config) Validate() error {
	if c.MeterName == "" {
		return errors.New("meter name is required")
	}
	if c.MinSendInterval <= 0 {
		return fmt.Errorf("min send interval must be > 0, got %s", c.MinSendInterval)
	}
	if c.MaxBatchSize <= 0 {
		return fmt.Errorf("max batch size must be > 0, got %d", c.MaxBatchSize)
	}
	if c.MaxEventsPerNotification < 0 {
		return fmt.Errorf("max events per notification must be >= 0, got %d", c.MaxEventsPerNotification)
	}
	return nil
}

// Option configures optional collaborators of a Relay.
type Option func(*Relay)

// WithDisplay shows every persisted tick on d.
func WithDisplay(d Display) Option {
	return func(r *Relay) {
		if d != nil {
			r.display = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(r *Relay) { r.logger = log.OrNoop(l) }
}

// WithMetrics records ticks and flushes on m.
func WithMetrics(m *Metrics) Option {
	return func(r *Relay) { r.metrics = m }
}

// Relay persists ticks from a source and forwards them to the collector.
type Relay struct {
	cfg     Config
	counter Counter
	sender  Sender
	source  Source
	display Display
	logger  log.Logger
	metrics *Metrics

	pending *batch.Buffer[notification.Event]
	flushMu sync.Mutex
	// failing is set while flushes fail; guarded by flushMu.
	failing bool
	now     func() time.Time
}

// New creates a relay. The counter, sender and source are required.
func New(cfg Config, counter Counter, sender Sender, source Source, opts ...Option) (*Relay, error) {
	if cfg.ShutdownFlushTimeout <= 0 {
		cfg.ShutdownFlushTimeout = DefaultShutdownFlushTimeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("relay config: %w", err)
	}
	if counter == nil || sender == nil || source == nil {
		return nil, errors.New("relay: counter, sender and source are required")
	}

	r := &Relay{
		cfg:     cfg,
		counter: counter,
		sender:  sender,
		source:  source,
		display: noopDisplay{},
		logger:  log.NewNoopLogger(),
		pending: batch.NewBuffer[notification.Event](cfg.MinSendInterval),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run flushes leftovers, then relays ticks until ctx is cancelled or the
// source ends. A final flush runs before Run returns.
func (r *Relay) Run(ctx context.Context) error {
	r.logger.Info("relay starting",
		log.String("meter", r.cfg.MeterName),
		log.Uint64("count", r.counter.Count()),
		log.Duration("min_send_interval", r.cfg.MinSendInterval),
	)
	r.display.ShowTicks(r.cfg.MeterName, r.counter.Count())

	// Ticks keep being counted while leftovers are sent.
	srcCtx, stopSource := context.WithCancel(ctx)
	defer stopSource()
	srcDone := make(chan error, 1)
	go func() {
		srcDone <- r.source.Run(srcCtx, r.HandleTick)
	}()

	_ = r.Flush(ctx)

	ticker := time.NewTicker(pollInterval(r.cfg.MinSendInterval))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			stopSource()
			<-srcDone
			r.shutdownFlush(ctx)
			return ctx.Err()

		case err := <-srcDone:
			r.shutdownFlush(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("tick source: %w", err)
			}
			r.logger.Info("tick source finished")
			return nil

		case <-ticker.C:
			if r.pending.ShouldSend() {
				_ = r.Flush(ctx)
			}
		}
	}
}

// HandleTick persists one tick and queues it for delivery. A tick that
// cannot be persisted is logged and dropped.
func (r *Relay) HandleTick() {
	count, err := r.counter.Increment()
	if err != nil {
		r.metrics.observeDropped()
		r.logger.Error("failed to persist tick, dropping it", log.Err(err))
		return
	}

	r.pending.Add(notification.Event{Time: r.now().UTC(), Count: count})
	r.metrics.observeTick(count, r.pending.Len())
	r.logger.Debug("tick", log.Uint64("count", count))
	r.display.ShowTicks(r.cfg.MeterName, count)
}

// Flush sends everything queued. Only one flush runs at a time. Events
// that were not delivered are requeued ahead of newer ticks and the
// delivery error is returned.
func (r *Relay) Flush(ctx context.Context) error {
	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	events := r.pending.Drain()
	if len(events) == 0 {
		return nil
	}

	ns := notification.Pack(r.cfg.MeterName, events, r.cfg.MaxEventsPerNotification)
	err := r.sender.SendBatches(ctx, ns, r.cfg.MaxBatchSize)
	if err == nil {
		r.metrics.observeFlush(true, r.pending.Len())
		fields := []log.Field{
			log.Int("events", len(events)),
			log.Int("notifications", len(ns)),
		}
		if r.failing {
			r.failing = false
			r.logger.Info("delivery recovered, ticks delivered", fields...)
		} else {
			r.logger.Debug("ticks delivered", fields...)
		}
		return nil
	}
	r.failing = true

	requeue := events
	var ue *delivery.UndeliveredError
	if errors.As(err, &ue) {
		requeue = eventsOf(ue.Undelivered)
	}
	r.pending.Requeue(requeue)
	r.metrics.observeFlush(false, r.pending.Len())

	r.logger.Warn("flush incomplete, keeping ticks for next send",
		log.Int("requeued_events", len(requeue)),
		log.Int("pending", r.pending.Len()),
		log.Err(err),
	)
	return err
}

// Pending returns the number of events waiting to be delivered.
func (r *Relay) Pending() int {
	return r.pending.Len()
}

func (r *Relay) shutdownFlush(ctx context.Context) {
	if !r.pending.HasPending() {
		return
	}
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.ShutdownFlushTimeout)
	defer cancel()
	if err := r.Flush(flushCtx); err != nil {
		r.logger.Error("final flush failed, undelivered ticks are lost from the queue",
			log.Int("pending", r.pending.Len()),
			log.Err(err),
		)
	}
}

func eventsOf(ns []notification.Notification) []notification.Event {
	var events []notification.Event
	for _, n := range ns {
		events = append(events, n.Events...)
	}
	return events
}

// pollInterval is how often the run loop checks whether a send is due.
func pollInterval(minSend time.Duration) time.Duration {
	p := minSend / 4
	if p < 10*time.Millisecond {
		p = 10 * time.Millisecond
	}
	if p > time.Second {
		p = time.Second
	}
	return p
}

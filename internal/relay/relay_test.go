package relay

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/hkniberg/meter/pkg/counter"
	"github.com/hkniberg/meter/pkg/delivery"
	"github.com/hkniberg/meter/pkg/log"
	"github.com/hkniberg/meter/pkg/notification"
)

// fakeSender records what it was asked to send and fails on demand.
type fakeSender struct {
	mu    sync.Mutex
	calls [][]notification.Notification
	fail  func(ns []notification.Notification) error
}

func (s *fakeSender) SendBatches(_ context.Context, ns []notification.Notification, _ int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, ns)
	if s.fail != nil {
		return s.fail(ns)
	}
	return nil
}

func (s *fakeSender) Calls() [][]notification.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]notification.Notification{}, s.calls...)
}

func (s *fakeSender) sentCounts() []uint64 {
	var counts []uint64
	for _, ns := range s.Calls() {
		for _, n := range ns {
			for _, e := range n.Events {
				counts = append(counts, e.Count)
			}
		}
	}
	return counts
}

// brokenCounter never persists.
type brokenCounter struct{}

func (brokenCounter) Count() uint64              { return 0 }
func (brokenCounter) Increment() (uint64, error) { return 0, errors.New("read-only file system") }

// scriptedSource emits n ticks, then blocks until ctx is done or ends
// with err.
type scriptedSource struct {
	n     int
	block bool
	err   error
}

func (s scriptedSource) Run(ctx context.Context, onTick func()) error {
	for i := 0; i < s.n; i++ {
		onTick()
	}
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.err
}

type recordingDisplay struct {
	mu     sync.Mutex
	counts []uint64
}

func (d *recordingDisplay) ShowTicks(_ string, count uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.counts = append(d.counts, count)
}

// recordingLogger keeps "level: message" lines.
type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) add(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+": "+msg)
}

func (l *recordingLogger) Debug(msg string, _ ...log.Field) { l.add("debug", msg) }
func (l *recordingLogger) Info(msg string, _ ...log.Field)  { l.add("info", msg) }
func (l *recordingLogger) Warn(msg string, _ ...log.Field)  { l.add("warn", msg) }
func (l *recordingLogger) Error(msg string, _ ...log.Field) { l.add("error", msg) }

func (l *recordingLogger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string{}, l.lines...)
}

func testConfig() Config {
	return Config{
		MeterName:                "test-meter",
		MinSendInterval:          time.Hour,
		MaxBatchSize:             10,
		MaxEventsPerNotification: 2,
	}
}

func newTestRelay(t *testing.T, c Counter, s Sender, src Source, opts ...Option) *Relay {
	t.Helper()
	r, err := New(testConfig(), c, s, src, opts...)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return r
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"no meter name", func(c *Config) { c.MeterName = "" }, false},
		{"zero send interval", func(c *Config) { c.MinSendInterval = 0 }, false},
		{"negative send interval", func(c *Config) { c.MinSendInterval = -time.Second }, false},
		{"zero batch size", func(c *Config) { c.MaxBatchSize = 0 }, false},
		{"unlimited events", func(c *Config) { c.MaxEventsPerNotification = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err == nil) != tt.ok {
				t.Errorf("Validate() error = %v, ok %v", err, tt.ok)
			}
		})
	}
}

func TestHandleTick_PersistsAndQueues(t *testing.T) {
	c := counter.NewFile(t.TempDir() + "/count")
	d := &recordingDisplay{}
	r := newTestRelay(t, c, &fakeSender{}, scriptedSource{}, WithDisplay(d))

	r.HandleTick()
	r.HandleTick()

	if got := c.Count(); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}
	if r.Pending() != 2 {
		t.Errorf("Pending() = %d, want 2", r.Pending())
	}
	if len(d.counts) != 2 || d.counts[1] != 2 {
		t.Errorf("display saw %v, want [1 2]", d.counts)
	}
}

func TestHandleTick_DropsUnpersistedTick(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	s := &fakeSender{}
	r := newTestRelay(t, brokenCounter{}, s, scriptedSource{}, WithMetrics(m))

	r.HandleTick()

	if r.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", r.Pending())
	}
	if err := r.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}
	if len(s.Calls()) != 0 {
		t.Errorf("a dropped tick must not be sent, got %d calls", len(s.Calls()))
	}
	if got := testutil.ToFloat64(m.dropped); got != 1 {
		t.Errorf("dropped = %v, want 1", got)
	}
}

func TestFlush_PacksEvents(t *testing.T) {
	s := &fakeSender{}
	r := newTestRelay(t, counter.NewFile(t.TempDir()+"/count"), s, scriptedSource{})

	for i := 0; i < 5; i++ {
		r.HandleTick()
	}
	if err := r.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}

	calls := s.Calls()
	if len(calls) != 1 {
		t.Fatalf("SendBatches calls = %d, want 1", len(calls))
	}
	if len(calls[0]) != 3 {
		t.Errorf("notifications = %d, want 3 (2+2+1 events)", len(calls[0]))
	}
	for _, n := range calls[0] {
		if n.MeterName != "test-meter" {
			t.Errorf("MeterName = %q", n.MeterName)
		}
	}
	if r.Pending() != 0 {
		t.Errorf("Pending() = %d after successful flush", r.Pending())
	}
}

func TestFlush_RequeuesUndelivered(t *testing.T) {
	s := &fakeSender{}
	r := newTestRelay(t, counter.NewFile(t.TempDir()+"/count"), s, scriptedSource{})

	for i := 0; i < 5; i++ {
		r.HandleTick()
	}

	// First notification delivered, the other two are not.
	s.fail = func(ns []notification.Notification) error {
		return &delivery.UndeliveredError{Delivered: 1, Undelivered: ns[1:], Err: delivery.ErrExhausted}
	}
	if err := r.Flush(context.Background()); !errors.Is(err, delivery.ErrExhausted) {
		t.Fatalf("Flush() error = %v, want ErrExhausted", err)
	}
	if r.Pending() != 3 {
		t.Fatalf("Pending() = %d, want 3", r.Pending())
	}

	// A newer tick lands behind the requeued ones.
	r.HandleTick()
	s.fail = nil
	if err := r.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}

	last := s.Calls()[1]
	var counts []uint64
	for _, n := range last {
		for _, e := range n.Events {
			counts = append(counts, e.Count)
		}
	}
	want := []uint64{3, 4, 5, 6}
	if len(counts) != len(want) {
		t.Fatalf("resent counts = %v, want %v", counts, want)
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Fatalf("resent counts = %v, want %v", counts, want)
		}
	}
}

func TestFlush_RequeuesAllOnOtherErrors(t *testing.T) {
	s := &fakeSender{fail: func([]notification.Notification) error { return errors.New("boom") }}
	r := newTestRelay(t, counter.NewFile(t.TempDir()+"/count"), s, scriptedSource{})

	r.HandleTick()
	r.HandleTick()
	_ = r.Flush(context.Background())

	if r.Pending() != 2 {
		t.Errorf("Pending() = %d, want 2", r.Pending())
	}
}

func TestFlush_Empty(t *testing.T) {
	s := &fakeSender{}
	r := newTestRelay(t, counter.NewFile(t.TempDir()+"/count"), s, scriptedSource{})

	if err := r.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}
	if len(s.Calls()) != 0 {
		t.Errorf("calls = %d, want 0", len(s.Calls()))
	}
}

func TestRun_FlushesWhenSourceEnds(t *testing.T) {
	s := &fakeSender{}
	r := newTestRelay(t, counter.NewFile(t.TempDir()+"/count"), s, scriptedSource{n: 3})

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	got := s.sentCounts()
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("sent counts = %v, want [1 2 3]", got)
	}
}

func TestRun_FlushesOnShutdown(t *testing.T) {
	s := &fakeSender{}
	r := newTestRelay(t, counter.NewFile(t.TempDir()+"/count"), s, scriptedSource{n: 2, block: true})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	deadline := time.Now().Add(time.Second)
	for r.Pending() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}

	if got := s.sentCounts(); len(got) != 2 {
		t.Errorf("sent counts = %v, want 2 events", got)
	}
}

func TestRun_PeriodicFlush(t *testing.T) {
	s := &fakeSender{}
	cfg := testConfig()
	cfg.MinSendInterval = 20 * time.Millisecond
	r, err := New(cfg, counter.NewFile(t.TempDir()+"/count"), s, scriptedSource{n: 1, block: true})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for len(s.Calls()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := s.sentCounts(); len(got) != 1 || got[0] != 1 {
		t.Fatalf("sent counts = %v, want [1] before shutdown", got)
	}
}

func TestRun_StartupFlushSendsLeftovers(t *testing.T) {
	s := &fakeSender{fail: func([]notification.Notification) error { return errors.New("offline") }}
	r := newTestRelay(t, counter.NewFile(t.TempDir()+"/count"), s, scriptedSource{})

	r.HandleTick()
	_ = r.Flush(context.Background())
	s.fail = nil

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if r.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", r.Pending())
	}
	if len(s.Calls()) != 2 {
		t.Errorf("calls = %d, want 2", len(s.Calls()))
	}
}

func TestNew_RequiresCollaborators(t *testing.T) {
	if _, err := New(testConfig(), nil, &fakeSender{}, scriptedSource{}); err == nil {
		t.Error("New() without counter should fail")
	}
}

func TestRun_SourceErrorIsWrappedAfterFinalFlush(t *testing.T) {
	errSensor := errors.New("sensor unplugged")
	s := &fakeSender{}
	r := newTestRelay(t, counter.NewFile(t.TempDir()+"/count"), s, scriptedSource{n: 2, err: errSensor})

	err := r.Run(context.Background())
	if !errors.Is(err, errSensor) {
		t.Fatalf("Run() error = %v, want %v", err, errSensor)
	}
	if !strings.HasPrefix(err.Error(), "tick source: ") {
		t.Errorf("Run() error = %q, want tick source prefix", err)
	}
	if got := s.sentCounts(); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("sent counts = %v, want [1 2]", got)
	}
	if r.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", r.Pending())
	}
}

func TestFlush_QuietUnlessRecovering(t *testing.T) {
	logger := &recordingLogger{}
	s := &fakeSender{}
	r := newTestRelay(t, counter.NewFile(t.TempDir()+"/count"), s, scriptedSource{}, WithLogger(logger))

	r.HandleTick()
	if err := r.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}

	s.fail = func([]notification.Notification) error { return errors.New("offline") }
	r.HandleTick()
	_ = r.Flush(context.Background())

	s.fail = nil
	if err := r.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}

	var infos []string
	for _, line := range logger.Lines() {
		if strings.HasPrefix(line, "info: ") {
			infos = append(infos, line)
		}
	}
	want := []string{"info: delivery recovered, ticks delivered"}
	if len(infos) != 1 || infos[0] != want[0] {
		t.Errorf("info lines = %v, want %v", infos, want)
	}
}

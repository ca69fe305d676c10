package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hkniberg/meter/pkg/log"
)

// Common lifecycle errors.
var (
	ErrNotRunning      = errors.New("not running")
	ErrAlreadyRunning  = errors.New("already running")
	ErrShutdownTimeout = errors.New("shutdown timeout")
)

// ShutdownTimeout is the default maximum time to wait for graceful shutdown.
const ShutdownTimeout = 30 * time.Second

// Manager owns the state machine and the workers started under it.
type Manager struct {
	mu       sync.RWMutex
	state    State
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	logger   log.Logger
	observer Observer
}

// NewManager creates a manager in StateStopped. observer may be nil.
func NewManager(logger log.Logger, observer Observer) *Manager {
	return &Manager{
		state:    StateStopped,
		logger:   log.OrNoop(logger),
		observer: observer,
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// TransitionTo moves to newState. Moving out of a stopped or crashed state
// to anything but Starting returns ErrNotRunning; any other invalid move
// returns ErrAlreadyRunning.
func (m *Manager) TransitionTo(newState State, reason string) error {
	m.mu.Lock()
	old := m.state
	if !CanTransition(old, newState) {
		m.mu.Unlock()
		if old == StateStopped || old == StateCrashed {
			return fmt.Errorf("%s -> %s: %w", old, newState, ErrNotRunning)
		}
		return fmt.Errorf("%s -> %s: %w", old, newState, ErrAlreadyRunning)
	}
	m.state = newState
	m.mu.Unlock()

	if m.observer != nil {
		m.observer(old, newState, reason)
	}

	m.logger.Info("state transition",
		log.String("from", old.String()),
		log.String("to", newState.String()),
		log.String("reason", reason),
	)
	return nil
}

// CanStart returns true if the component may be started.
func (m *Manager) CanStart() bool {
	s := m.State()
	return s == StateStopped || s == StateCrashed
}

// CanStop returns true if the component may be stopped.
func (m *Manager) CanStop() bool {
	s := m.State()
	return s == StateRunning || s == StateStarting
}

// SetCancel stores the cancel function used by Cancel.
func (m *Manager) SetCancel(cancel context.CancelFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancel = cancel
}

// Cancel triggers graceful shutdown of every worker.
func (m *Manager) Cancel() {
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Go runs fn in a tracked worker goroutine. If fn returns an error other
// than a context cancellation, the manager moves to StateCrashed.
func (m *Manager) Go(ctx context.Context, name string, fn func(context.Context) error) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		err := fn(ctx)
		if err == nil || errors.Is(err, context.Canceled) {
			return
		}
		m.logger.Error("worker failed", log.String("worker", name), log.Err(err))
		_ = m.TransitionTo(StateCrashed, name+": "+err.Error())
	}()
}

// WaitWithTimeout waits for all workers to finish. Returns
// ErrShutdownTimeout if they are still running after timeout.
func (m *Manager) WaitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		m.logger.Warn("shutdown timeout, forcing exit",
			log.Duration("timeout", timeout),
		)
		return ErrShutdownTimeout
	}
}

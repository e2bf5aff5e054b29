// Package scheduler debounces preview re-renders.
//
// A Scheduler keeps at most one pending timer. OnSourceChanged restarts it,
// so a burst of edits collapses into a single render once the session has
// been quiet for the debounce window. Reload and Restart bypass the window.
package scheduler

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Trigger names what caused a render
type Trigger string

const (
	TriggerDebounce Trigger = "debounce"
	TriggerReload   Trigger = "reload"
	TriggerRestart  Trigger = "restart"
)

// Options configures a Scheduler
type Options struct {
	Debounce   time.Duration
	AutoReload bool
	Yield      time.Duration // Gap between Stop and the render in Restart
}

// DefaultOptions returns the preview defaults
func DefaultOptions() Options {
	return Options{
		Debounce:   500 * time.Millisecond,
		AutoReload: true,
		Yield:      10 * time.Millisecond,
	}
}

// Scheduler coordinates render and stop calls for one preview session
type Scheduler struct {
	render func(Trigger)
	stop   func()
	logger *zap.Logger

	mu     sync.Mutex
	opts   Options
	timer  *time.Timer
	seq    uint64
	closed bool
}

// New creates a scheduler. render must read the latest buffer state itself.
func New(render func(Trigger), stop func(), opts Options, logger *zap.Logger) *Scheduler {
	if opts.Debounce < 0 {
		opts.Debounce = 0
	}
	if opts.Yield < 0 {
		opts.Yield = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		render: render,
		stop:   stop,
		logger: logger,
		opts:   opts,
	}
}

// OnSourceChanged restarts the debounce window. It returns false, doing
// nothing, when auto-reload is off or the scheduler is closed.
func (s *Scheduler) OnSourceChanged() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || !s.opts.AutoReload {
		return false
	}
	s.armLocked(s.opts.Debounce, TriggerDebounce)
	return true
}

// Reload cancels any pending timer and renders immediately
func (s *Scheduler) Reload() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.cancelLocked()
	s.mu.Unlock()

	s.render(TriggerReload)
}

// Restart stops the sandbox, then renders after the configured yield
func (s *Scheduler) Restart() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.cancelLocked()
	s.mu.Unlock()

	s.stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.armLocked(s.opts.Yield, TriggerRestart)
	}
}

// Stop cancels any pending timer and stops the sandbox
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.cancelLocked()
	s.mu.Unlock()

	s.stop()
}

// Close cancels any pending timer permanently. Later calls are no-ops.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cancelLocked()
}

// SetAutoReload toggles debounced reloads. Disabling drops a pending timer.
func (s *Scheduler) SetAutoReload(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.AutoReload = enabled
	if !enabled {
		s.cancelLocked()
	}
}

// SetDebounce changes the window used by subsequent OnSourceChanged calls
func (s *Scheduler) SetDebounce(d time.Duration) {
	if d < 0 {
		d = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.Debounce = d
}

// Options returns the current settings
func (s *Scheduler) Options() Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts
}

// Pending reports whether a render is scheduled
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

func (s *Scheduler) armLocked(d time.Duration, trigger Trigger) {
	s.cancelLocked()
	seq := s.seq
	s.timer = time.AfterFunc(d, func() { s.fire(seq, trigger) })
}

// cancelLocked invalidates the pending timer even if it already fired
func (s *Scheduler) cancelLocked() {
	s.seq++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Scheduler) fire(seq uint64, trigger Trigger) {
	s.mu.Lock()
	if s.closed || seq != s.seq {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()

	s.logger.Debug("Scheduled render firing", zap.String("trigger", string(trigger)))
	s.render(trigger)
}

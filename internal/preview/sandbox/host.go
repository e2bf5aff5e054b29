package sandbox

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/codelab/internal/preview/viewport"
)

// Host owns at most one live sandbox instance at a time
type Host struct {
	cfg    Config
	sink   Sink
	logger *zap.Logger

	mu         sync.Mutex
	current    *Instance
	generation uint64
	state      State
	renderedAt time.Time
	closed     bool
}

// NewHost creates a sandbox host that posts messages to sink
func NewHost(cfg Config, sink Sink, logger *zap.Logger) *Host {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.MaxTimers <= 0 {
		cfg.MaxTimers = DefaultConfig().MaxTimers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Host{
		cfg:    cfg,
		sink:   sink,
		logger: logger,
		state:  StateIdle,
	}
}

// Render discards the current instance and executes document in a fresh one.
// It returns the new generation, or 0 once the host is closed.
func (h *Host) Render(document string, vp viewport.Profile) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return 0
	}
	if h.current != nil {
		h.current.stop()
	}

	h.generation++
	inst := newInstance(h.generation, h.cfg, vp, h.sink, h.logger)
	h.current = inst
	h.state = StateRendering
	h.renderedAt = time.Now()

	h.sink.Attach(h.generation)
	inst.start(document)

	h.logger.Debug("Sandbox render started",
		zap.String("instance", inst.ID().String()),
		zap.Uint64("generation", h.generation),
		zap.String("viewport", vp.Name),
	)
	return h.generation
}

// MarkLoaded moves a rendering host to Running if generation is current.
// It returns the time since the render began.
func (h *Host) MarkLoaded(generation uint64) (time.Duration, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.current == nil || generation != h.generation || h.state != StateRendering {
		return 0, false
	}
	h.state = StateRunning
	return time.Since(h.renderedAt), true
}

// Stop discards the current instance. Calling Stop while idle is a no-op.
func (h *Host) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopLocked()
}

func (h *Host) stopLocked() *Instance {
	inst := h.current
	if inst != nil {
		inst.stop()
		h.current = nil
	}
	h.sink.Detach()
	h.state = StateIdle
	return inst
}

// State returns the lifecycle state
func (h *Host) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Running reports whether the current instance finished loading
func (h *Host) Running() bool {
	return h.State() == StateRunning
}

// Generation returns the generation of the latest render
func (h *Host) Generation() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.generation
}

// Current returns the live instance, or nil
func (h *Host) Current() *Instance {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Close stops the host permanently and waits briefly for the last instance
func (h *Host) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	inst := h.stopLocked()
	h.mu.Unlock()

	if inst == nil {
		return
	}
	select {
	case <-inst.Exited():
	case <-time.After(h.cfg.Timeout):
		h.logger.Warn("Sandbox instance did not exit in time", zap.String("instance", inst.ID().String()))
	}
}

package preview

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/codelab/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/codelab/internal/preview/document"
	"github.com/GriffinCanCode/codelab/internal/preview/viewport"
)

// Manager tracks open preview sessions
type Manager struct {
	sessions sync.Map // map[string]*Session
	count    int
	mu       sync.Mutex
	cfg      Config
	logger   *zap.Logger
	metrics  *monitoring.Metrics
}

// NewManager creates a session manager with the given defaults
func NewManager(cfg Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{cfg: cfg, logger: logger}
}

// WithMetrics adds metrics tracking to the manager
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// Create opens a session over the initial buffers. Nothing renders until
// the first edit, Reload or Restart.
func (m *Manager) Create(initial document.Buffers, opts CreateOptions) (*Session, error) {
	cfg := m.cfg
	if opts.Viewport != "" {
		vp, err := viewport.Lookup(opts.Viewport)
		if err != nil {
			return nil, err
		}
		cfg.Viewport = vp.Name
	}
	if opts.AutoReload != nil {
		cfg.AutoReload = *opts.AutoReload
	}
	if opts.DebounceMs != nil {
		if *opts.DebounceMs < 0 {
			return nil, fmt.Errorf("debounce must not be negative: %d", *opts.DebounceMs)
		}
		cfg.Debounce = time.Duration(*opts.DebounceMs) * time.Millisecond
	}

	s := newSession(cfg, initial, m.logger, m.metrics)
	m.sessions.Store(s.ID.String(), s)
	m.adjust(1)

	m.logger.Info("Preview session created",
		zap.String("preview", s.ID.String()),
		zap.String("viewport", cfg.Viewport),
		zap.Bool("auto_reload", cfg.AutoReload),
	)
	return s, nil
}

// Get returns an open session
func (m *Manager) Get(sessionID string) (*Session, error) {
	value, ok := m.sessions.Load(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return value.(*Session), nil
}

// List returns open sessions in creation order
func (m *Manager) List() []*Session {
	var out []*Session
	m.sessions.Range(func(_, value interface{}) bool {
		out = append(out, value.(*Session))
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Close closes and forgets a session
func (m *Manager) Close(sessionID string) error {
	value, ok := m.sessions.LoadAndDelete(sessionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	value.(*Session).Close()
	m.adjust(-1)
	return nil
}

// CloseAll closes every session, used on shutdown
func (m *Manager) CloseAll() {
	for _, s := range m.List() {
		_ = m.Close(s.ID.String())
	}
}

// Broadcast applies one buffer change to every open session and returns how
// many sessions scheduled a render
func (m *Manager) Broadcast(kind document.Kind, text string) int {
	scheduled := 0
	for _, s := range m.List() {
		ok, err := s.UpdateBuffer(kind, text)
		if err != nil {
			m.logger.Debug("Buffer change not applied",
				zap.String("preview", s.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if ok {
			scheduled++
		}
	}
	return scheduled
}

// Count returns the number of open sessions
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

func (m *Manager) adjust(delta int) {
	m.mu.Lock()
	m.count += delta
	count := m.count
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.SetPreviewSessionsActive(count)
	}
}

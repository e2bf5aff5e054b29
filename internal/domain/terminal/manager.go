package terminal

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/codelab/internal/infrastructure/monitoring"
)

// Manager tracks open terminal sessions over one shared workspace
type Manager struct {
	sessions sync.Map // map[string]*Session
	count    int
	mu       sync.Mutex
	cfg      Config
	files    Files
	logger   *zap.Logger
	metrics  *monitoring.Metrics
}

// NewManager creates a terminal session manager
func NewManager(cfg Config, files Files, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{cfg: cfg, files: files, logger: logger}
}

// WithMetrics adds metrics tracking to the manager
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// Create opens a new interpreter session
func (m *Manager) Create() *Session {
	s := NewSession(m.cfg, m.files, m.logger).WithMetrics(m.metrics)
	m.sessions.Store(s.ID.String(), s)
	m.adjust(1)
	m.logger.Info("Terminal session created", zap.String("terminal", s.ID.String()))
	return s
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

// CloseAll closes every session
func (m *Manager) CloseAll() {
	for _, s := range m.List() {
		_ = m.Close(s.ID.String())
	}
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
		m.metrics.SetTerminalSessionsActive(count)
	}
}

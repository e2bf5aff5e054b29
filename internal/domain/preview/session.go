package preview

import (
	"sort"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/GriffinCanCode/codelab/internal/domain/editor"
	"github.com/GriffinCanCode/codelab/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/codelab/internal/preview/bridge"
	"github.com/GriffinCanCode/codelab/internal/preview/document"
	"github.com/GriffinCanCode/codelab/internal/preview/sandbox"
	"github.com/GriffinCanCode/codelab/internal/preview/scheduler"
	"github.com/GriffinCanCode/codelab/internal/preview/viewport"
	"github.com/GriffinCanCode/codelab/internal/shared/buffer"
	"github.com/GriffinCanCode/codelab/internal/shared/fanout"
	"github.com/GriffinCanCode/codelab/internal/shared/id"
)

const latencyWindow = 256

// Session is one open preview panel
type Session struct {
	ID        id.PreviewID `json:"id"`
	CreatedAt time.Time    `json:"created_at"`

	logger  *zap.Logger
	metrics *monitoring.Metrics
	policy  *bluemonday.Policy

	mu        sync.RWMutex
	buffers   document.Buffers
	viewport  viewport.Profile
	editor    editor.Options
	console   *buffer.Log[Entry]
	latencies *buffer.Log[float64]
	renders   int
	closed    bool

	// Serialises snapshot+render so the newest buffers always render last
	renderMu sync.Mutex

	host      *sandbox.Host
	bridge    *bridge.Bridge
	scheduler *scheduler.Scheduler
	events    *fanout.Hub[Event]
}

func newSession(cfg Config, initial document.Buffers, logger *zap.Logger, metrics *monitoring.Metrics) *Session {
	vp, err := viewport.Lookup(cfg.Viewport)
	if err != nil {
		vp = viewport.Default()
	}

	sessionID := id.NewPreviewID()
	s := &Session{
		ID:        sessionID,
		CreatedAt: time.Now(),
		logger:    logger.With(zap.String("preview", sessionID.String())),
		metrics:   metrics,
		policy:    bluemonday.StrictPolicy(),
		buffers:   initial,
		viewport:  vp,
		editor:    cfg.Editor,
		console:   buffer.NewLog[Entry](cfg.ConsoleCap),
		latencies: buffer.NewLog[float64](latencyWindow),
		events:    fanout.New[Event](64),
	}

	s.bridge = bridge.New(s.handle, bridge.Options{
		OnDrop: s.onDrop,
		Logger: s.logger,
	})
	s.host = sandbox.NewHost(cfg.Sandbox, s.bridge, s.logger)
	s.scheduler = scheduler.New(s.render, s.stopSandbox, scheduler.Options{
		Debounce:   cfg.Debounce,
		AutoReload: cfg.AutoReload,
		Yield:      cfg.Yield,
	}, s.logger)

	return s
}

// UpdateBuffer replaces one buffer and schedules a debounced render.
// It returns whether a render was scheduled.
func (s *Session) UpdateBuffer(kind document.Kind, text string) (bool, error) {
	if kind != document.KindMarkup && kind != document.KindStyle && kind != document.KindScript {
		return false, ErrUnsupportedKind
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrSessionClosed
	}
	s.buffers = s.buffers.With(kind, text)
	s.mu.Unlock()

	return s.scheduler.OnSourceChanged(), nil
}

// Buffers returns the current source buffers
func (s *Session) Buffers() document.Buffers {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buffers
}

// Document returns the document the next render would execute
func (s *Session) Document() string {
	return document.Synthesize(s.Buffers())
}

// SetViewport selects the profile used by the next render
func (s *Session) SetViewport(name string) (viewport.Profile, error) {
	vp, err := viewport.Lookup(name)
	if err != nil {
		return viewport.Profile{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return viewport.Profile{}, ErrSessionClosed
	}
	s.viewport = vp
	return vp, nil
}

// SetAutoReload toggles debounced renders on edit
func (s *Session) SetAutoReload(enabled bool) {
	s.scheduler.SetAutoReload(enabled)
}

// SetDebounce changes the quiet period before an automatic render
func (s *Session) SetDebounce(d time.Duration) {
	s.scheduler.SetDebounce(d)
}

// ApplyEditorOptions merges editor option updates and returns the result
func (s *Session) ApplyEditorOptions(update map[string]interface{}) editor.Options {
	s.mu.Lock()
	defer s.mu.Unlock()

	opts, ignored := s.editor.Apply(update)
	if len(ignored) > 0 {
		s.logger.Debug("Ignored editor options", zap.Strings("keys", ignored))
	}
	s.editor = opts
	return opts
}

// EditorOptions returns the current editor options
func (s *Session) EditorOptions() editor.Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.editor
}

// Reload renders immediately, bypassing the debounce window
func (s *Session) Reload() error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	s.scheduler.Reload()
	return nil
}

// Restart tears the sandbox down, then renders a fresh instance
func (s *Session) Restart() error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	s.scheduler.Restart()
	return nil
}

// Stop cancels any pending render and clears the sandbox
func (s *Session) Stop() error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	s.scheduler.Stop()
	return nil
}

// Running reports whether the sandbox finished loading
func (s *Session) Running() bool {
	return s.host.Running()
}

// Settings returns the user-adjustable state
func (s *Session) Settings() Settings {
	opts := s.scheduler.Options()

	s.mu.RLock()
	vp := s.viewport
	s.mu.RUnlock()

	settings := Settings{
		Viewport:   vp,
		AutoReload: opts.AutoReload,
		DebounceMs: int(opts.Debounce / time.Millisecond),
		Running:    s.host.Running(),
		State:      s.host.State().String(),
		Generation: s.host.Generation(),
	}
	if inst := s.host.Current(); inst != nil {
		settings.Instance = inst.ID().String()
	}
	return settings
}

// Console returns the retained console entries, oldest first
func (s *Session) Console() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.console.Items()
}

// ClearConsole empties the console log
func (s *Session) ClearConsole() {
	s.mu.Lock()
	s.console.Clear()
	s.mu.Unlock()

	s.events.Publish(Event{Type: EventCleared, Generation: s.host.Generation()})
}

// Subscribe streams session events until cancel is called or the session closes
func (s *Session) Subscribe() (<-chan Event, func()) {
	return s.events.Subscribe()
}

// Relay accepts a boundary message forwarded by a browser-side frame.
// It takes the same path as messages posted from the sandbox, so a frame
// tagged with an old generation is dropped.
func (s *Session) Relay(generation uint64, raw []byte) {
	s.bridge.Post(generation, "relay", raw)
}

// Stats summarises render latency and console usage
func (s *Session) Stats() Stats {
	s.mu.RLock()
	samples := s.latencies.Items()
	st := Stats{
		Renders:       s.renders,
		Loads:         len(samples),
		ConsoleLen:    s.console.Len(),
		ConsoleEvicts: s.console.Evicted(),
	}
	s.mu.RUnlock()

	if len(samples) == 0 {
		return st
	}
	sort.Float64s(samples)
	st.MeanMs = stat.Mean(samples, nil)
	if len(samples) > 1 {
		st.StdDevMs = stat.StdDev(samples, nil)
	}
	st.P50Ms = stat.Quantile(0.5, stat.Empirical, samples, nil)
	st.P95Ms = stat.Quantile(0.95, stat.Empirical, samples, nil)
	return st
}

// Close releases the sandbox and pending timers. Safe to call repeatedly.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.scheduler.Close()
	s.host.Close()
	s.bridge.Close()
	s.events.Close()
	s.logger.Info("Preview session closed")
}

func (s *Session) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// render synthesizes the latest buffers and hands them to the sandbox
func (s *Session) render(trigger scheduler.Trigger) {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	doc := document.Synthesize(s.buffers)
	vp := s.viewport
	s.renders++
	s.mu.Unlock()

	gen := s.host.Render(doc, vp)
	if gen == 0 {
		return
	}
	if s.metrics != nil {
		s.metrics.RecordRender(string(trigger))
	}
	s.logger.Debug("Preview rendered",
		zap.String("trigger", string(trigger)),
		zap.Uint64("generation", gen),
		zap.String("viewport", vp.Name),
	)
	s.events.Publish(Event{Type: EventStatus, State: sandbox.StateRendering.String(), Generation: gen})
}

func (s *Session) stopSandbox() {
	s.host.Stop()
	s.events.Publish(Event{Type: EventStatus, State: sandbox.StateIdle.String(), Generation: s.host.Generation()})
}

// handle runs on the bridge goroutine for current-generation messages only
func (s *Session) handle(env bridge.Envelope) {
	switch env.Message.Type {
	case bridge.TypeConsole:
		entry := Entry{
			Timestamp: time.Now(),
			Level:     env.Message.Level,
			Message:   env.Message.Message,
			Display:   s.policy.Sanitize(env.Message.Message),
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		s.console.Append(entry)
		s.mu.Unlock()

		if s.metrics != nil {
			s.metrics.RecordConsoleEntry(string(entry.Level))
		}
		s.events.Publish(Event{Type: EventConsole, Entry: &entry, Running: s.host.Running(), Generation: env.Generation})

	case bridge.TypeLoaded:
		latency, ok := s.host.MarkLoaded(env.Generation)
		if !ok {
			return
		}

		s.mu.Lock()
		s.latencies.Append(float64(latency) / float64(time.Millisecond))
		s.mu.Unlock()

		if s.metrics != nil {
			s.metrics.ObserveRenderLatency(latency)
		}
		s.events.Publish(Event{Type: EventStatus, State: sandbox.StateRunning.String(), Running: true, Generation: env.Generation})
	}
}

func (s *Session) onDrop(reason bridge.DropReason) {
	if s.metrics != nil {
		s.metrics.RecordBridgeDrop(string(reason))
	}
}

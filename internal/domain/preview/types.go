package preview

import (
	"errors"
	"time"

	"github.com/GriffinCanCode/codelab/internal/domain/editor"
	"github.com/GriffinCanCode/codelab/internal/preview/bridge"
	"github.com/GriffinCanCode/codelab/internal/preview/sandbox"
	"github.com/GriffinCanCode/codelab/internal/preview/viewport"
)

var (
	ErrSessionNotFound = errors.New("preview session not found")
	ErrSessionClosed   = errors.New("preview session closed")
	ErrUnsupportedKind = errors.New("buffer kind does not take part in the preview")
)

// Entry is one console line relayed from the sandbox
type Entry struct {
	Timestamp time.Time    `json:"timestamp"`
	Level     bridge.Level `json:"level"`
	Message   string       `json:"message"`
	Display   string       `json:"display"` // Message sanitized for HTML display
}

// EventType identifies a session event
type EventType string

const (
	EventConsole EventType = "console"
	EventStatus  EventType = "status"
	EventCleared EventType = "cleared"
)

// Event is pushed to session subscribers
type Event struct {
	Type       EventType `json:"type"`
	Entry      *Entry    `json:"entry,omitempty"`
	State      string    `json:"state,omitempty"`
	Running    bool      `json:"running"`
	Generation uint64    `json:"generation"`
}

// Settings is the user-adjustable session state
type Settings struct {
	Viewport   viewport.Profile `json:"viewport"`
	AutoReload bool             `json:"auto_reload"`
	DebounceMs int              `json:"debounce_ms"`
	Running    bool             `json:"running"`
	State      string           `json:"state"`
	Generation uint64           `json:"generation"`
	Instance   string           `json:"instance,omitempty"` // live sandbox instance, empty when stopped
}

// Config holds the defaults applied to new sessions
type Config struct {
	Viewport   string
	AutoReload bool
	Debounce   time.Duration
	Yield      time.Duration
	ConsoleCap int
	Sandbox    sandbox.Config
	Editor     editor.Options
}

// DefaultConfig returns the standard preview defaults
func DefaultConfig() Config {
	return Config{
		Viewport:   viewport.DefaultName,
		AutoReload: true,
		Debounce:   500 * time.Millisecond,
		Yield:      10 * time.Millisecond,
		ConsoleCap: 100,
		Sandbox:    sandbox.DefaultConfig(),
		Editor:     editor.Defaults(),
	}
}

// CreateOptions overrides Config for a single session
type CreateOptions struct {
	Viewport   string `json:"viewport,omitempty"`
	AutoReload *bool  `json:"auto_reload,omitempty"`
	DebounceMs *int   `json:"debounce_ms,omitempty"`
}

// Stats summarises render-to-load latency for a session
type Stats struct {
	Renders       int     `json:"renders"`
	Loads         int     `json:"loads"`
	MeanMs        float64 `json:"mean_ms"`
	StdDevMs      float64 `json:"stddev_ms"`
	P50Ms         float64 `json:"p50_ms"`
	P95Ms         float64 `json:"p95_ms"`
	ConsoleLen    int     `json:"console_len"`
	ConsoleEvicts int     `json:"console_evicted"`
}

package sandbox

import (
	"time"
)

// Config defines sandbox configuration
type Config struct {
	Timeout          time.Duration // Per script or timer callback
	MaxCallStackSize int
	MaxTimers        int  // Pending timers per instance
	EnableDOM        bool // Expose the document proxy
}

// DefaultConfig returns the configuration used by preview sessions
func DefaultConfig() Config {
	return Config{
		Timeout:          5 * time.Second,
		MaxCallStackSize: 1024,
		MaxTimers:        1000,
		EnableDOM:        true,
	}
}

// State is the host lifecycle state
type State int

const (
	StateIdle State = iota
	StateRendering
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRendering:
		return "rendering"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}

// Sink receives messages posted from inside the sandbox.
// *bridge.Bridge implements it.
type Sink interface {
	Attach(generation uint64)
	Detach()
	Post(generation uint64, source string, raw interface{})
}


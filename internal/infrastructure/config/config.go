package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Preview   PreviewConfig
	Terminal  TerminalConfig
	Workspace WorkspaceConfig
	Editor    EditorConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// PreviewConfig holds live preview defaults.
type PreviewConfig struct {
	DebounceMs    int           `envconfig:"PREVIEW_DEBOUNCE_MS" default:"500"`
	AutoReload    bool          `envconfig:"PREVIEW_AUTO_RELOAD" default:"true"`
	Viewport      string        `envconfig:"PREVIEW_VIEWPORT" default:"Desktop"`
	ConsoleCap    int           `envconfig:"PREVIEW_CONSOLE_CAP" default:"100"`
	ScriptTimeout time.Duration `envconfig:"PREVIEW_SCRIPT_TIMEOUT" default:"5s"`
	RestartYield  time.Duration `envconfig:"PREVIEW_RESTART_YIELD" default:"10ms"`
}

// TerminalConfig holds command interpreter settings.
type TerminalConfig struct {
	ExecDelay     time.Duration `envconfig:"TERMINAL_EXEC_DELAY" default:"800ms"`
	ScrollbackCap int           `envconfig:"TERMINAL_SCROLLBACK_CAP" default:"500"`
	WorkDir       string        `envconfig:"TERMINAL_WORKDIR" default:"/home/student/project"`
}

// WorkspaceConfig holds the on-disk workspace location.
type WorkspaceConfig struct {
	Dir   string `envconfig:"WORKSPACE_DIR" default:""`
	Watch bool   `envconfig:"WORKSPACE_WATCH" default:"true"`
}

// EditorConfig points at the editor options file.
type EditorConfig struct {
	OptionsFile string `envconfig:"EDITOR_OPTIONS_FILE" default:""`
}

// Debounce returns the preview debounce window.
func (p PreviewConfig) Debounce() time.Duration {
	return time.Duration(p.DebounceMs) * time.Millisecond
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	if c.Preview.DebounceMs < 0 {
		return fmt.Errorf("PREVIEW_DEBOUNCE_MS must not be negative: %d", c.Preview.DebounceMs)
	}
	if c.Preview.ConsoleCap < 2 {
		return fmt.Errorf("PREVIEW_CONSOLE_CAP must be at least 2: %d", c.Preview.ConsoleCap)
	}
	if c.Terminal.ScrollbackCap < 2 {
		return fmt.Errorf("TERMINAL_SCROLLBACK_CAP must be at least 2: %d", c.Terminal.ScrollbackCap)
	}
	if c.Preview.ScriptTimeout <= 0 {
		return fmt.Errorf("PREVIEW_SCRIPT_TIMEOUT must be positive: %s", c.Preview.ScriptTimeout)
	}
	return nil
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Preview: PreviewConfig{
			DebounceMs:    500,
			AutoReload:    true,
			Viewport:      "Desktop",
			ConsoleCap:    100,
			ScriptTimeout: 5 * time.Second,
			RestartYield:  10 * time.Millisecond,
		},
		Terminal: TerminalConfig{
			ExecDelay:     800 * time.Millisecond,
			ScrollbackCap: 500,
			WorkDir:       "/home/student/project",
		},
		Workspace: WorkspaceConfig{
			Watch: true,
		},
	}
}

// Package config provides 12-factor configuration management for the codelab server.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//   - Preview: Debounce, auto-reload, viewport, console cap, script timeout
//   - Terminal: Simulated execution delay, scrollback cap, working directory
//   - Workspace: Directory to load files from and whether to watch it
//   - Editor: Optional TOML file with editor options
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - PREVIEW_DEBOUNCE_MS, PREVIEW_AUTO_RELOAD, PREVIEW_VIEWPORT,
//     PREVIEW_CONSOLE_CAP, PREVIEW_SCRIPT_TIMEOUT, PREVIEW_RESTART_YIELD
//   - TERMINAL_EXEC_DELAY, TERMINAL_SCROLLBACK_CAP, TERMINAL_WORKDIR
//   - WORKSPACE_DIR, WORKSPACE_WATCH
//   - EDITOR_OPTIONS_FILE
package config

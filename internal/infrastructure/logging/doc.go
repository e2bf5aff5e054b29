// Package logging provides structured logging using uber/zap.
//
// Two output modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Preview and terminal sessions log through child loggers carrying their
// session ID, so a single session's activity can be filtered out of the
// combined stream. Console output relayed from a sandbox is logged at debug
// level only.
//
// Example Usage:
//
//	logger, err := logging.New(logging.Config{Level: "debug", Development: true})
//	logger.Info("Server starting", zap.String("port", "8000"))
//	logger.SetLevel("debug") // at runtime, e.g. on SIGUSR1
package logging

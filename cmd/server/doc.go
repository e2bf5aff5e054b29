// Package main is the entry point for the codelab backend server.
//
// The server hosts live preview sessions, which render HTML, CSS and
// JavaScript buffers in a sandboxed JavaScript runtime, and terminal
// sessions backed by a simulated command interpreter.
//
// The server provides:
//   - REST API for preview, terminal and workspace operations
//   - WebSocket streams of console output and terminal results
//   - Prometheus metrics on /metrics
//   - Rate limiting and CORS
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Serve a project directory
//	./server -port 8000 -workspace ./project
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main

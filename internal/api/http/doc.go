// Package http exposes preview sessions, terminal sessions and the
// workspace over a JSON API.
//
// Routes:
//   - /api/preview/sessions: create, inspect, edit and drive preview sessions
//   - /api/preview/viewports: the viewport profile registry
//   - /api/terminal/sessions: create sessions and submit command lines
//   - /api/workspace: list and edit workspace files
//   - /api/stats, /health: process status
//
// Errors are returned as {"error": message}. Unknown sessions and files map
// to 404, invalid input to 400, and busy or closed sessions to 409.
package http

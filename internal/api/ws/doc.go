// Package ws streams preview and terminal session events over WebSocket.
//
// Endpoints:
//   - /api/stream/preview/:id: console entries and status changes; accepts
//     boundary messages relayed from a browser frame, tagged with generation
//   - /api/stream/terminal/:id: terminal output; accepts input lines
//
// Every connection starts with a "hello" frame carrying the session state,
// then one JSON frame per event.
package ws

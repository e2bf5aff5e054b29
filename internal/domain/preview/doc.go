// Package preview manages live preview sessions.
//
// A Session ties together the pieces of one open preview panel:
//
//   - the current markup, style and script buffers
//   - a sandbox.Host that executes the synthesized document
//   - a bridge.Bridge that relays console output and the load signal
//   - a scheduler.Scheduler that debounces edits into renders
//   - a bounded console log and an event hub for live subscribers
//
// Sessions are created and looked up through a Manager. Closing a session
// cancels its pending render, stops its sandbox and drops any message still
// in flight from it.
package preview

// Package client is the Go client for a codelab server.
//
// Requests go through resty on top of a retrying transport, so connection
// errors and 5xx responses are retried with backoff. A circuit breaker
// guards every call: once the server keeps failing, calls fail fast with
// resilience.ErrCircuitOpen until the cooldown passes. Refusals such as a
// busy terminal (409) or a missing session (404) are returned as *APIError
// and do not count against the breaker.
//
// Terminal output is streamed over WebSocket with StreamTerminal.
package client

// Package server assembles the codelab backend: configuration, logging,
// metrics, the workspace and its watcher, session managers, middleware and
// routes.
package server

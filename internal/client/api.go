package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/GriffinCanCode/codelab/internal/domain/editor"
	"github.com/GriffinCanCode/codelab/internal/domain/preview"
	"github.com/GriffinCanCode/codelab/internal/domain/terminal"
	"github.com/GriffinCanCode/codelab/internal/domain/workspace"
	"github.com/GriffinCanCode/codelab/internal/preview/document"
	"github.com/GriffinCanCode/codelab/internal/preview/viewport"
)

// Health is the server's health report
type Health struct {
	Status           string  `json:"status"`
	PreviewSessions  int     `json:"preview_sessions"`
	TerminalSessions int     `json:"terminal_sessions"`
	WorkspaceFiles   int     `json:"workspace_files"`
	UptimeSeconds    float64 `json:"uptime_seconds"`
}

// Viewports lists the selectable preview sizes
type Viewports struct {
	Viewports []viewport.Profile `json:"viewports"`
	Default   string             `json:"default"`
}

// Files lists the workspace
type Files struct {
	Files  []workspace.File `json:"files"`
	Active string           `json:"active"`
}

// PutFileResult reports a stored file and how many previews re-rendered
type PutFileResult struct {
	File             workspace.File `json:"file"`
	PreviewsRendered int            `json:"previews_rendered"`
}

// Preview is one preview session
type Preview struct {
	ID        string           `json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	Settings  preview.Settings `json:"settings"`
	Buffers   document.Buffers `json:"buffers"`
	Editor    editor.Options   `json:"editor"`
}

// CreatePreview opens a preview. Nil buffers start from the workspace.
type CreatePreview struct {
	Buffers *document.Buffers `json:"buffers,omitempty"`
	preview.CreateOptions
}

// Console is a preview's retained console
type Console struct {
	Entries []preview.Entry `json:"entries"`
	Running bool            `json:"running"`
}

// Health fetches the server health report
func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	err := c.do(ctx, call{method: http.MethodGet, path: "/health", out: &out})
	return out, err
}

// Viewports lists viewport profiles in display order
func (c *Client) Viewports(ctx context.Context) (Viewports, error) {
	var out Viewports
	err := c.do(ctx, call{method: http.MethodGet, path: "/api/preview/viewports", out: &out})
	return out, err
}

// Files lists workspace files
func (c *Client) Files(ctx context.Context) (Files, error) {
	var out Files
	err := c.do(ctx, call{method: http.MethodGet, path: "/api/workspace/files", out: &out})
	return out, err
}

// File fetches one workspace file
func (c *Client) File(ctx context.Context, name string) (workspace.File, error) {
	var out workspace.File
	err := c.do(ctx, call{method: http.MethodGet, path: filePath(name), out: &out})
	return out, err
}

// PutFile creates or replaces a workspace file
func (c *Client) PutFile(ctx context.Context, name, content string) (PutFileResult, error) {
	var out PutFileResult
	err := c.do(ctx, call{
		method: http.MethodPut,
		path:   filePath(name),
		body:   map[string]string{"content": content},
		out:    &out,
	})
	return out, err
}

// DeleteFile removes a workspace file
func (c *Client) DeleteFile(ctx context.Context, name string) error {
	return c.do(ctx, call{method: http.MethodDelete, path: filePath(name), want: http.StatusNoContent})
}

// SetActiveFile selects the file `run` executes
func (c *Client) SetActiveFile(ctx context.Context, name string) error {
	return c.do(ctx, call{
		method: http.MethodPut,
		path:   "/api/workspace/active",
		body:   map[string]string{"name": name},
	})
}

// CreatePreview opens a preview session
func (c *Client) CreatePreview(ctx context.Context, req CreatePreview) (Preview, error) {
	var out Preview
	err := c.do(ctx, call{method: http.MethodPost, path: "/api/preview/sessions", body: req, out: &out, want: http.StatusCreated})
	return out, err
}

// Preview fetches one preview session
func (c *Client) Preview(ctx context.Context, id string) (Preview, error) {
	var out Preview
	err := c.do(ctx, call{method: http.MethodGet, path: previewPath(id, ""), out: &out})
	return out, err
}

// Previews lists open preview sessions
func (c *Client) Previews(ctx context.Context) ([]Preview, error) {
	var out struct {
		Sessions []Preview `json:"sessions"`
	}
	err := c.do(ctx, call{method: http.MethodGet, path: "/api/preview/sessions", out: &out})
	return out.Sessions, err
}

// ClosePreview closes a preview session
func (c *Client) ClosePreview(ctx context.Context, id string) error {
	return c.do(ctx, call{method: http.MethodDelete, path: previewPath(id, ""), want: http.StatusNoContent})
}

// UpdateBuffer replaces one source buffer and reports whether a render was scheduled
func (c *Client) UpdateBuffer(ctx context.Context, id string, kind document.Kind, text string) (bool, error) {
	var out struct {
		Scheduled bool `json:"scheduled"`
	}
	err := c.do(ctx, call{
		method: http.MethodPut,
		path:   previewPath(id, "/buffers/"+url.PathEscape(string(kind))),
		body:   map[string]string{"text": text},
		out:    &out,
	})
	return out.Scheduled, err
}

// Reload renders immediately
func (c *Client) Reload(ctx context.Context, id string) (preview.Settings, error) {
	return c.lifecycle(ctx, id, "reload")
}

// Restart tears the sandbox down and renders a fresh instance
func (c *Client) Restart(ctx context.Context, id string) (preview.Settings, error) {
	return c.lifecycle(ctx, id, "restart")
}

// Stop clears the sandbox
func (c *Client) Stop(ctx context.Context, id string) (preview.Settings, error) {
	return c.lifecycle(ctx, id, "stop")
}

func (c *Client) lifecycle(ctx context.Context, id, op string) (preview.Settings, error) {
	var out preview.Settings
	err := c.do(ctx, call{method: http.MethodPost, path: previewPath(id, "/"+op), out: &out, want: http.StatusAccepted})
	return out, err
}

// SetViewport selects the viewport of the next render
func (c *Client) SetViewport(ctx context.Context, id, name string) (viewport.Profile, error) {
	var out viewport.Profile
	err := c.do(ctx, call{
		method: http.MethodPut,
		path:   previewPath(id, "/viewport"),
		body:   map[string]string{"name": name},
		out:    &out,
	})
	return out, err
}

// Console fetches the retained console entries
func (c *Client) Console(ctx context.Context, id string) (Console, error) {
	var out Console
	err := c.do(ctx, call{method: http.MethodGet, path: previewPath(id, "/console"), out: &out})
	return out, err
}

// ClearConsole empties a preview's console
func (c *Client) ClearConsole(ctx context.Context, id string) error {
	return c.do(ctx, call{method: http.MethodDelete, path: previewPath(id, "/console"), want: http.StatusNoContent})
}

// PreviewStats fetches render latency statistics
func (c *Client) PreviewStats(ctx context.Context, id string) (preview.Stats, error) {
	var out preview.Stats
	err := c.do(ctx, call{method: http.MethodGet, path: previewPath(id, "/stats"), out: &out})
	return out, err
}

// CreateTerminal opens an interpreter session
func (c *Client) CreateTerminal(ctx context.Context) (terminal.Snapshot, error) {
	var out terminal.Snapshot
	err := c.do(ctx, call{method: http.MethodPost, path: "/api/terminal/sessions", out: &out, want: http.StatusCreated})
	return out, err
}

// Terminal fetches a terminal snapshot
func (c *Client) Terminal(ctx context.Context, id string) (terminal.Snapshot, error) {
	var out terminal.Snapshot
	err := c.do(ctx, call{method: http.MethodGet, path: terminalPath(id, ""), out: &out})
	return out, err
}

// CloseTerminal closes an interpreter session
func (c *Client) CloseTerminal(ctx context.Context, id string) error {
	return c.do(ctx, call{method: http.MethodDelete, path: terminalPath(id, ""), want: http.StatusNoContent})
}

// Submit runs one line. A busy terminal answers with a conflict.
func (c *Client) Submit(ctx context.Context, id, line string) (terminal.Snapshot, error) {
	var out terminal.Snapshot
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   terminalPath(id, "/commands"),
		body:   map[string]string{"line": line},
		out:    &out,
		want:   http.StatusAccepted,
	})
	return out, err
}

func filePath(name string) string {
	return "/api/workspace/files/" + url.PathEscape(name)
}

func previewPath(id, suffix string) string {
	return "/api/preview/sessions/" + url.PathEscape(id) + suffix
}

func terminalPath(id, suffix string) string {
	return "/api/terminal/sessions/" + url.PathEscape(id) + suffix
}

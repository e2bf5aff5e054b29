package http

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/codelab/internal/domain/preview"
	"github.com/GriffinCanCode/codelab/internal/domain/terminal"
	"github.com/GriffinCanCode/codelab/internal/domain/workspace"
	"github.com/GriffinCanCode/codelab/internal/infrastructure/monitoring"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testAPI struct {
	router    *gin.Engine
	handlers  *Handlers
	previews  *preview.Manager
	terminals *terminal.Manager
	workspace *workspace.Workspace
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	ws := workspace.New()
	for _, f := range [][2]string{
		{"index.html", "<h1>Hello</h1>"},
		{"style.css", "h1{color:red}"},
		{"script.js", "console.log('ready')"},
		{"main.py", "print('hi')"},
	} {
		_, err := ws.Put(f[0], f[1])
		require.NoError(t, err)
	}

	metrics := monitoring.NewMetrics()

	previewCfg := preview.DefaultConfig()
	previewCfg.Debounce = 20 * time.Millisecond
	previewCfg.Yield = time.Millisecond
	previews := preview.NewManager(previewCfg, nil).WithMetrics(metrics)

	termCfg := terminal.DefaultConfig()
	termCfg.ExecDelay = 50 * time.Millisecond
	terminals := terminal.NewManager(termCfg, ws, nil).WithMetrics(metrics)

	t.Cleanup(func() {
		previews.CloseAll()
		terminals.CloseAll()
	})

	h := NewHandlers(previews, terminals, ws, metrics, nil)
	router := gin.New()
	h.Register(router)

	return &testAPI{router: router, handlers: h, previews: previews, terminals: terminals, workspace: ws}
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := sonic.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), v))
}

func (a *testAPI) createPreview(t *testing.T, body interface{}) PreviewView {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/preview/sessions", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var view PreviewView
	decode(t, w, &view)
	return view
}

func TestRootAndHealth(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "online")

	w = api.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var health map[string]interface{}
	decode(t, w, &health)
	assert.Equal(t, "healthy", health["status"])
	assert.EqualValues(t, 4, health["workspace_files"])
}

func TestListViewports(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/api/preview/viewports", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Viewports []struct {
			Name   string `json:"name"`
			Width  int    `json:"width"`
			Height int    `json:"height"`
		} `json:"viewports"`
		Default string `json:"default"`
	}
	decode(t, w, &body)
	require.Len(t, body.Viewports, 4)
	assert.Equal(t, "Desktop", body.Default)
	assert.Equal(t, "Mobile", body.Viewports[0].Name)
	assert.Equal(t, 375, body.Viewports[0].Width)
}

func TestPreviewRenderFromWorkspace(t *testing.T) {
	api := newTestAPI(t)
	view := api.createPreview(t, nil)

	assert.Equal(t, "<h1>Hello</h1>", view.Buffers.Markup)
	assert.False(t, view.Settings.Running)

	w := api.do(t, http.MethodPost, "/api/preview/sessions/"+view.ID+"/reload", nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	var console struct {
		Entries []preview.Entry `json:"entries"`
		Running bool            `json:"running"`
	}
	require.Eventually(t, func() bool {
		w := api.do(t, http.MethodGet, "/api/preview/sessions/"+view.ID+"/console", nil)
		decode(t, w, &console)
		return console.Running && len(console.Entries) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "ready", console.Entries[0].Message)

	w = api.do(t, http.MethodDelete, "/api/preview/sessions/"+view.ID+"/console", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = api.do(t, http.MethodGet, "/api/preview/sessions/"+view.ID+"/console", nil)
	decode(t, w, &console)
	assert.Empty(t, console.Entries)
}

func TestPreviewCreateOptions(t *testing.T) {
	api := newTestAPI(t)

	view := api.createPreview(t, map[string]interface{}{
		"buffers":     map[string]string{"markup": "<p>own</p>"},
		"viewport":    "tablet",
		"auto_reload": false,
		"debounce_ms": 100,
	})
	assert.Equal(t, "<p>own</p>", view.Buffers.Markup)
	assert.Empty(t, view.Buffers.Script)
	assert.Equal(t, "Tablet", view.Settings.Viewport.Name)
	assert.False(t, view.Settings.AutoReload)
	assert.Equal(t, 100, view.Settings.DebounceMs)

	w := api.do(t, http.MethodPost, "/api/preview/sessions", map[string]interface{}{"viewport": "watch"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPreviewErrors(t *testing.T) {
	api := newTestAPI(t)
	view := api.createPreview(t, nil)
	base := "/api/preview/sessions/" + view.ID

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"unknown session", http.MethodGet, "/api/preview/sessions/prev_missing", nil, http.StatusNotFound},
		{"unknown session reload", http.MethodPost, "/api/preview/sessions/prev_missing/reload", nil, http.StatusNotFound},
		{"unsupported kind", http.MethodPut, base + "/buffers/python", map[string]string{"text": "x"}, http.StatusBadRequest},
		{"unknown viewport", http.MethodPut, base + "/viewport", map[string]string{"name": "Watch"}, http.StatusBadRequest},
		{"missing viewport name", http.MethodPut, base + "/viewport", map[string]string{}, http.StatusBadRequest},
		{"negative debounce", http.MethodPut, base + "/settings", map[string]int{"debounce_ms": -5}, http.StatusBadRequest},
		{"close unknown", http.MethodDelete, "/api/preview/sessions/prev_missing", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestPreviewBufferAndSettings(t *testing.T) {
	api := newTestAPI(t)
	view := api.createPreview(t, nil)
	base := "/api/preview/sessions/" + view.ID

	w := api.do(t, http.MethodPut, base+"/buffers/css", map[string]string{"text": "p{}"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"scheduled":true}`, w.Body.String())

	w = api.do(t, http.MethodPut, base+"/settings", map[string]interface{}{"auto_reload": false, "debounce_ms": 250})
	require.Equal(t, http.StatusOK, w.Code)
	var settings preview.Settings
	decode(t, w, &settings)
	assert.False(t, settings.AutoReload)
	assert.Equal(t, 250, settings.DebounceMs)

	w = api.do(t, http.MethodPut, base+"/buffers/style", map[string]string{"text": "p{margin:0}"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"scheduled":false}`, w.Body.String())

	w = api.do(t, http.MethodPut, base+"/viewport", map[string]string{"name": "Mobile"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"width":375`)

	w = api.do(t, http.MethodGet, base, nil)
	decode(t, w, &view)
	assert.Equal(t, "p{margin:0}", view.Buffers.Style)
	assert.Equal(t, "Mobile", view.Settings.Viewport.Name)
}

func TestPreviewEditorOptions(t *testing.T) {
	api := newTestAPI(t)
	view := api.createPreview(t, nil)
	base := "/api/preview/sessions/" + view.ID + "/editor"

	w := api.do(t, http.MethodPatch, base, map[string]interface{}{
		"fontSize": 18,
		"minimap":  map[string]bool{"enabled": true},
		"cursor":   "block",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var opts map[string]interface{}
	decode(t, w, &opts)
	assert.EqualValues(t, 18, opts["font_size"])
	assert.Equal(t, true, opts["minimap"])
	assert.NotContains(t, opts, "cursor")
}

func TestPreviewDocumentIsCompressed(t *testing.T) {
	api := newTestAPI(t)
	view := api.createPreview(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/preview/sessions/"+view.ID+"/document", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")

	zr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(body), "<h1>Hello</h1>")
	assert.Contains(t, string(body), "h1{color:red}")

	plain := api.do(t, http.MethodGet, "/api/preview/sessions/"+view.ID+"/document", nil)
	assert.Empty(t, plain.Header().Get("Content-Encoding"))
	assert.Contains(t, plain.Body.String(), "console.log('ready')")
}

func TestPreviewLifecycleAndStats(t *testing.T) {
	api := newTestAPI(t)
	view := api.createPreview(t, nil)
	base := "/api/preview/sessions/" + view.ID

	w := api.do(t, http.MethodPost, base+"/restart", nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	require.Eventually(t, func() bool {
		var stats preview.Stats
		decode(t, api.do(t, http.MethodGet, base+"/stats", nil), &stats)
		return stats.Loads == 1
	}, 2*time.Second, 10*time.Millisecond)

	w = api.do(t, http.MethodPost, base+"/stop", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	var settings preview.Settings
	decode(t, w, &settings)
	assert.False(t, settings.Running)

	w = api.do(t, http.MethodGet, "/api/preview/sessions", nil)
	assert.Contains(t, w.Body.String(), `"count":1`)

	w = api.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Zero(t, api.previews.Count())
}

func TestTerminalSubmit(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/api/terminal/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var snap terminal.Snapshot
	decode(t, w, &snap)
	base := "/api/terminal/sessions/" + snap.ID.String()

	w = api.do(t, http.MethodPost, base+"/commands", map[string]string{"line": "cat index.html"})
	require.Equal(t, http.StatusAccepted, w.Code)
	decode(t, w, &snap)
	assert.Equal(t, []string{"$ cat index.html", "<h1>Hello</h1>"}, snap.Scrollback)

	w = api.do(t, http.MethodPost, base+"/commands", map[string]string{"line": "run main.py"})
	require.Equal(t, http.StatusAccepted, w.Code)
	decode(t, w, &snap)
	assert.True(t, snap.Busy)

	w = api.do(t, http.MethodPost, base+"/commands", map[string]string{"line": "pwd"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(t, http.MethodPost, base+"/commands", map[string]string{"line": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	require.Eventually(t, func() bool {
		decode(t, api.do(t, http.MethodGet, base, nil), &snap)
		return !snap.Busy
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "hi", snap.Scrollback[len(snap.Scrollback)-1])

	w = api.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = api.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWorkspaceFiles(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/api/workspace/files", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Files  []workspace.File `json:"files"`
		Active string           `json:"active"`
	}
	decode(t, w, &list)
	require.Len(t, list.Files, 4)
	assert.Equal(t, "index.html", list.Active)

	w = api.do(t, http.MethodGet, "/api/workspace/files/missing.js", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(t, http.MethodPut, "/api/workspace/active", map[string]string{"name": "nope.py"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = api.do(t, http.MethodPut, "/api/workspace/active", map[string]string{"name": "main.py"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodPut, "/api/workspace/files/notes.md", map[string]string{"content": "# notes"})
	require.Equal(t, http.StatusOK, w.Code)
	w = api.do(t, http.MethodGet, "/api/workspace/files/notes.md", nil)
	assert.Contains(t, w.Body.String(), `"language":"markdown"`)

	w = api.do(t, http.MethodDelete, "/api/workspace/files/notes.md", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = api.do(t, http.MethodDelete, "/api/workspace/files/notes.md", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWorkspaceEditsReachPreviews(t *testing.T) {
	api := newTestAPI(t)
	view := api.createPreview(t, nil)

	w := api.do(t, http.MethodPut, "/api/workspace/files/style.css", map[string]string{"content": "h1{color:blue}"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"previews_rendered":1`)

	s, err := api.previews.Get(view.ID)
	require.NoError(t, err)
	assert.Equal(t, "h1{color:blue}", s.Buffers().Style)

	// A second stylesheet does not feed the preview
	w = api.do(t, http.MethodPut, "/api/workspace/files/extra.css", map[string]string{"content": "p{}"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"previews_rendered":0`)
	assert.Equal(t, "h1{color:blue}", s.Buffers().Style)
}

func TestWorkspaceRemovalsReachPreviews(t *testing.T) {
	tests := []struct {
		name   string
		extra  [][2]string
		remove string
		markup string
		style  string
	}{
		{
			name:   "next file of the kind takes over",
			extra:  [][2]string{{"other.html", "<p>second</p>"}},
			remove: "index.html",
			markup: "<p>second</p>",
			style:  "h1{color:red}",
		},
		{
			name:   "last file of the kind empties the buffer",
			remove: "style.css",
			markup: "<h1>Hello</h1>",
			style:  "",
		},
		{
			name:   "file that does not feed the preview changes nothing",
			extra:  [][2]string{{"other.html", "<p>second</p>"}},
			remove: "other.html",
			markup: "<h1>Hello</h1>",
			style:  "h1{color:red}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t)
			for _, f := range tt.extra {
				_, err := api.workspace.Put(f[0], f[1])
				require.NoError(t, err)
			}
			view := api.createPreview(t, nil)

			w := api.do(t, http.MethodDelete, "/api/workspace/files/"+tt.remove, nil)
			require.Equal(t, http.StatusNoContent, w.Code)

			s, err := api.previews.Get(view.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.markup, s.Buffers().Markup)
			assert.Equal(t, tt.style, s.Buffers().Style)
			assert.Equal(t, api.workspace.Buffers().Markup, s.Buffers().Markup)
		})
	}
}

func TestStats(t *testing.T) {
	api := newTestAPI(t)
	api.createPreview(t, nil)
	api.do(t, http.MethodPost, "/api/terminal/sessions", nil)

	w := api.do(t, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var snap monitoring.MetricsSnapshot
	decode(t, w, &snap)
	assert.Equal(t, int64(1), snap.ActivePreviews)
	assert.Equal(t, int64(1), snap.ActiveTerminals)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{preview.ErrSessionNotFound, http.StatusNotFound},
		{terminal.ErrSessionNotFound, http.StatusNotFound},
		{workspace.ErrFileNotFound, http.StatusNotFound},
		{workspace.ErrInvalidName, http.StatusBadRequest},
		{preview.ErrUnsupportedKind, http.StatusBadRequest},
		{terminal.ErrEmptyCommand, http.StatusBadRequest},
		{fmt.Errorf("submit: %w", terminal.ErrEmptyCommand), http.StatusBadRequest},
		{terminal.ErrBusy, http.StatusConflict},
		{fmt.Errorf("submit: %w", terminal.ErrBusy), http.StatusConflict},
		{terminal.ErrSessionClosed, http.StatusConflict},
		{preview.ErrSessionClosed, http.StatusConflict},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(strings.ReplaceAll(tt.err.Error(), " ", "_"), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

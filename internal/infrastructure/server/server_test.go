package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/codelab/internal/api/middleware"
	"github.com/GriffinCanCode/codelab/internal/domain/preview"
	"github.com/GriffinCanCode/codelab/internal/infrastructure/config"
	"github.com/GriffinCanCode/codelab/internal/infrastructure/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Logging.Development = true
	cfg.RateLimit.Enabled = false
	cfg.Preview.DebounceMs = 20
	cfg.Terminal.ExecDelay = 10 * time.Millisecond
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	s, err := newServer(cfg, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func get(s *Server, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestServerRoutes(t *testing.T) {
	s := newTestServer(t, testConfig())

	w := get(s, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	w = get(s, "/api/workspace/files")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "index.html")
	assert.Equal(t, 4, s.Workspace().Len())

	w = get(s, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "codelab_http_requests_total")
}

func TestServerRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.RequestsPerSecond = 1
	cfg.RateLimit.Burst = 1
	s := newTestServer(t, cfg)

	assert.Equal(t, http.StatusOK, get(s, "/health").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(s, "/health").Code)
}

func TestServerBadWorkspace(t *testing.T) {
	cfg := testConfig()
	cfg.Workspace.Dir = filepath.Join(t.TempDir(), "missing")
	cfg.Workspace.Watch = false

	_, err := newServer(cfg, logging.NewNop())
	assert.Error(t, err)
}

func TestServerEditorOptionsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "editor.toml")
	require.NoError(t, os.WriteFile(path, []byte("font_size = 20\ntheme = \"light\"\n"), 0o644))

	cfg := testConfig()
	cfg.Editor.OptionsFile = path
	s := newTestServer(t, cfg)

	session, err := s.previews.Create(s.Workspace().Buffers(), preview.CreateOptions{})
	require.NoError(t, err)
	assert.Equal(t, 20, session.EditorOptions().FontSize)
	assert.Equal(t, "light", session.EditorOptions().Theme)
}

func TestWatchedEditsReachPreviews(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<p>disk</p>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "style.css"), []byte("p{}"), 0o644))

	cfg := testConfig()
	cfg.Workspace.Dir = dir
	cfg.Workspace.Watch = true
	s := newTestServer(t, cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/preview/sessions", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	sessions := s.previews.List()
	require.Len(t, sessions, 1)
	assert.Equal(t, "<p>disk</p>", sessions[0].Buffers().Markup)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "style.css"), []byte("p{color:green}"), 0o644))
	assert.Eventually(t, func() bool {
		return sessions[0].Buffers().Style == "p{color:green}"
	}, 3*time.Second, 20*time.Millisecond)
}

func TestToggleDebug(t *testing.T) {
	s := newTestServer(t, testConfig())

	assert.Equal(t, "debug", s.ToggleDebug())
	assert.Equal(t, "info", s.ToggleDebug())
}

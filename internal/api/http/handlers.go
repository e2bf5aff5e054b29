package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/codelab/internal/domain/preview"
	"github.com/GriffinCanCode/codelab/internal/domain/terminal"
	"github.com/GriffinCanCode/codelab/internal/domain/workspace"
	"github.com/GriffinCanCode/codelab/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/codelab/internal/preview/viewport"
)

const version = "0.3.0"

// Handlers contains all HTTP handlers
type Handlers struct {
	previews  *preview.Manager
	terminals *terminal.Manager
	workspace *workspace.Workspace
	metrics   *monitoring.Metrics
	logger    *zap.Logger
	compress  func(http.Handler) http.HandlerFunc
	started   time.Time
}

// NewHandlers creates a new handler set
func NewHandlers(
	previews *preview.Manager,
	terminals *terminal.Manager,
	ws *workspace.Workspace,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	compress, err := gzhttp.NewWrapper(gzhttp.MinSize(512))
	if err != nil {
		compress = gzhttp.GzipHandler
	}
	return &Handlers{
		previews:  previews,
		terminals: terminals,
		workspace: ws,
		metrics:   metrics,
		logger:    logger,
		compress:  compress,
		started:   time.Now(),
	}
}

// Register mounts every route on router
func (h *Handlers) Register(router gin.IRouter) {
	router.GET("/", h.Root)
	router.GET("/health", h.Health)

	api := router.Group("/api")
	api.GET("/stats", h.Stats)
	api.GET("/preview/viewports", h.ListViewports)

	previews := api.Group("/preview/sessions")
	previews.POST("", h.CreatePreview)
	previews.GET("", h.ListPreviews)
	previews.GET("/:id", h.GetPreview)
	previews.DELETE("/:id", h.ClosePreview)
	previews.PUT("/:id/buffers/:kind", h.UpdateBuffer)
	previews.POST("/:id/reload", h.ReloadPreview)
	previews.POST("/:id/restart", h.RestartPreview)
	previews.POST("/:id/stop", h.StopPreview)
	previews.PUT("/:id/viewport", h.SetViewport)
	previews.PUT("/:id/settings", h.UpdateSettings)
	previews.GET("/:id/editor", h.GetEditorOptions)
	previews.PATCH("/:id/editor", h.UpdateEditorOptions)
	previews.GET("/:id/console", h.GetConsole)
	previews.DELETE("/:id/console", h.ClearConsole)
	previews.GET("/:id/document", h.GetDocument)
	previews.GET("/:id/stats", h.GetPreviewStats)

	terminals := api.Group("/terminal/sessions")
	terminals.POST("", h.CreateTerminal)
	terminals.GET("", h.ListTerminals)
	terminals.GET("/:id", h.GetTerminal)
	terminals.DELETE("/:id", h.CloseTerminal)
	terminals.POST("/:id/commands", h.SubmitCommand)

	files := api.Group("/workspace")
	files.GET("/files", h.ListFiles)
	files.GET("/files/:name", h.GetFile)
	files.PUT("/files/:name", h.PutFile)
	files.DELETE("/files/:name", h.DeleteFile)
	files.PUT("/active", h.SetActiveFile)
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	respond(c, http.StatusOK, gin.H{
		"status":  "online",
		"service": "codelab",
		"version": version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	respond(c, http.StatusOK, gin.H{
		"status":            "healthy",
		"preview_sessions":  h.previews.Count(),
		"terminal_sessions": h.terminals.Count(),
		"workspace_files":   h.workspace.Len(),
		"uptime_seconds":    time.Since(h.started).Seconds(),
	})
}

// Stats returns a JSON view of the process metrics
func (h *Handlers) Stats(c *gin.Context) {
	if h.metrics == nil {
		respondError(c, http.StatusServiceUnavailable, "metrics disabled")
		return
	}
	respond(c, http.StatusOK, h.metrics.Snapshot())
}

// ListViewports returns the viewport profiles in display order
func (h *Handlers) ListViewports(c *gin.Context) {
	respond(c, http.StatusOK, gin.H{
		"viewports": viewport.All(),
		"default":   viewport.DefaultName,
	})
}

// respond writes v as JSON using sonic
func respond(c *gin.Context, status int, v interface{}) {
	body, err := sonic.Marshal(v)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(status, "application/json; charset=utf-8", body)
}

func respondError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// fail maps domain errors onto HTTP status codes
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	respondError(c, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, preview.ErrSessionNotFound),
		errors.Is(err, terminal.ErrSessionNotFound),
		errors.Is(err, workspace.ErrFileNotFound):
		return http.StatusNotFound
	case errors.Is(err, viewport.ErrUnknownViewport),
		errors.Is(err, preview.ErrUnsupportedKind),
		errors.Is(err, workspace.ErrInvalidName),
		errors.Is(err, terminal.ErrEmptyCommand):
		return http.StatusBadRequest
	case errors.Is(err, preview.ErrSessionClosed),
		errors.Is(err, terminal.ErrSessionClosed),
		errors.Is(err, terminal.ErrBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

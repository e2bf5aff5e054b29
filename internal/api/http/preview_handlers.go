package http

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/codelab/internal/domain/editor"
	"github.com/GriffinCanCode/codelab/internal/domain/preview"
	"github.com/GriffinCanCode/codelab/internal/preview/document"
)

// CreatePreviewRequest opens a session. Buffers default to the workspace.
type CreatePreviewRequest struct {
	Buffers *document.Buffers `json:"buffers,omitempty"`
	preview.CreateOptions
}

// PreviewView is the JSON form of a session
type PreviewView struct {
	ID        string           `json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	Settings  preview.Settings `json:"settings"`
	Buffers   document.Buffers `json:"buffers"`
	Editor    editor.Options   `json:"editor"`
}

func previewView(s *preview.Session) PreviewView {
	return PreviewView{
		ID:        s.ID.String(),
		CreatedAt: s.CreatedAt,
		Settings:  s.Settings(),
		Buffers:   s.Buffers(),
		Editor:    s.EditorOptions(),
	}
}

// CreatePreview opens a preview session
func (h *Handlers) CreatePreview(c *gin.Context) {
	var req CreatePreviewRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
	}

	initial := h.workspace.Buffers()
	if req.Buffers != nil {
		initial = *req.Buffers
	}

	s, err := h.previews.Create(initial, req.CreateOptions)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	respond(c, http.StatusCreated, previewView(s))
}

// ListPreviews lists open preview sessions
func (h *Handlers) ListPreviews(c *gin.Context) {
	sessions := h.previews.List()
	views := make([]PreviewView, len(sessions))
	for i, s := range sessions {
		views[i] = previewView(s)
	}
	respond(c, http.StatusOK, gin.H{"sessions": views, "count": len(views)})
}

// GetPreview returns one session
func (h *Handlers) GetPreview(c *gin.Context) {
	s, ok := h.preview(c)
	if !ok {
		return
	}
	respond(c, http.StatusOK, previewView(s))
}

// ClosePreview closes a session
func (h *Handlers) ClosePreview(c *gin.Context) {
	if err := h.previews.Close(c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateBufferRequest replaces one buffer
type UpdateBufferRequest struct {
	Text string `json:"text"`
}

// UpdateBuffer replaces a buffer and schedules a debounced render
func (h *Handlers) UpdateBuffer(c *gin.Context) {
	s, ok := h.preview(c)
	if !ok {
		return
	}

	var req UpdateBufferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	scheduled, err := s.UpdateBuffer(document.ParseKind(c.Param("kind")), req.Text)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"scheduled": scheduled})
}

// ReloadPreview renders immediately
func (h *Handlers) ReloadPreview(c *gin.Context) {
	h.lifecycle(c, (*preview.Session).Reload)
}

// RestartPreview tears down and renders a fresh sandbox
func (h *Handlers) RestartPreview(c *gin.Context) {
	h.lifecycle(c, (*preview.Session).Restart)
}

// StopPreview clears the sandbox
func (h *Handlers) StopPreview(c *gin.Context) {
	h.lifecycle(c, (*preview.Session).Stop)
}

func (h *Handlers) lifecycle(c *gin.Context, op func(*preview.Session) error) {
	s, ok := h.preview(c)
	if !ok {
		return
	}
	if err := op(s); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusAccepted, s.Settings())
}

// SetViewportRequest selects a viewport profile by name
type SetViewportRequest struct {
	Name string `json:"name" binding:"required"`
}

// SetViewport changes the viewport used by the next render
func (h *Handlers) SetViewport(c *gin.Context) {
	s, ok := h.preview(c)
	if !ok {
		return
	}

	var req SetViewportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	vp, err := s.SetViewport(req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, vp)
}

// UpdateSettingsRequest adjusts the reload behaviour
type UpdateSettingsRequest struct {
	AutoReload *bool `json:"auto_reload"`
	DebounceMs *int  `json:"debounce_ms"`
}

// UpdateSettings toggles auto reload and the debounce window
func (h *Handlers) UpdateSettings(c *gin.Context) {
	s, ok := h.preview(c)
	if !ok {
		return
	}

	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.DebounceMs != nil && *req.DebounceMs < 0 {
		respondError(c, http.StatusBadRequest, "debounce_ms must not be negative")
		return
	}

	if req.AutoReload != nil {
		s.SetAutoReload(*req.AutoReload)
	}
	if req.DebounceMs != nil {
		s.SetDebounce(time.Duration(*req.DebounceMs) * time.Millisecond)
	}
	respond(c, http.StatusOK, s.Settings())
}

// GetEditorOptions returns the session's editor options
func (h *Handlers) GetEditorOptions(c *gin.Context) {
	s, ok := h.preview(c)
	if !ok {
		return
	}
	respond(c, http.StatusOK, s.EditorOptions())
}

// UpdateEditorOptions merges an option object; unknown keys are ignored
func (h *Handlers) UpdateEditorOptions(c *gin.Context) {
	s, ok := h.preview(c)
	if !ok {
		return
	}

	var update map[string]interface{}
	if err := c.ShouldBindJSON(&update); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	respond(c, http.StatusOK, s.ApplyEditorOptions(update))
}

// GetConsole returns the retained console entries
func (h *Handlers) GetConsole(c *gin.Context) {
	s, ok := h.preview(c)
	if !ok {
		return
	}
	entries := s.Console()
	respond(c, http.StatusOK, gin.H{
		"entries": entries,
		"running": s.Running(),
	})
}

// ClearConsole empties the console
func (h *Handlers) ClearConsole(c *gin.Context) {
	s, ok := h.preview(c)
	if !ok {
		return
	}
	s.ClearConsole()
	c.Status(http.StatusNoContent)
}

// GetDocument serves the synthesized document, gzip-compressed when the
// client accepts it
func (h *Handlers) GetDocument(c *gin.Context) {
	s, ok := h.preview(c)
	if !ok {
		return
	}

	doc := s.Document()
	h.compress(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, doc)
	})).ServeHTTP(c.Writer, c.Request)
}

// GetPreviewStats returns render latency statistics
func (h *Handlers) GetPreviewStats(c *gin.Context) {
	s, ok := h.preview(c)
	if !ok {
		return
	}
	respond(c, http.StatusOK, s.Stats())
}

func (h *Handlers) preview(c *gin.Context) (*preview.Session, bool) {
	s, err := h.previews.Get(c.Param("id"))
	if err != nil {
		fail(c, err)
		return nil, false
	}
	return s, true
}

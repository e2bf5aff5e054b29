package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/codelab/internal/domain/workspace"
)

// ListFiles lists workspace files in registration order
func (h *Handlers) ListFiles(c *gin.Context) {
	active, _ := h.workspace.Active()
	respond(c, http.StatusOK, gin.H{
		"files":  h.workspace.Files(),
		"active": active.Name,
	})
}

// GetFile returns one file
func (h *Handlers) GetFile(c *gin.Context) {
	f, ok := h.workspace.Get(c.Param("name"))
	if !ok {
		fail(c, workspace.ErrFileNotFound)
		return
	}
	respond(c, http.StatusOK, f)
}

// PutFileRequest replaces a file's content
type PutFileRequest struct {
	Content string `json:"content"`
}

// PutFile creates or replaces a file. When the file feeds the preview,
// every open preview session receives the change.
func (h *Handlers) PutFile(c *gin.Context) {
	var req PutFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	f, err := h.workspace.Put(c.Param("name"), req.Content)
	if err != nil {
		fail(c, err)
		return
	}

	scheduled := h.Propagate(f)
	respond(c, http.StatusOK, gin.H{
		"file":              f,
		"previews_rendered": scheduled,
	})
}

// DeleteFile removes a file. When the file fed the preview, sessions fall
// back to the next file of its kind, or to empty text when none is left.
func (h *Handlers) DeleteFile(c *gin.Context) {
	name := c.Param("name")
	f, ok := h.workspace.Get(name)
	fed := ok && h.workspace.Feeds(name)

	if err := h.workspace.Remove(name); err != nil {
		fail(c, err)
		return
	}
	if fed {
		h.propagateRemoval(f)
	}
	c.Status(http.StatusNoContent)
}

// SetActiveFileRequest selects the file `run` executes
type SetActiveFileRequest struct {
	Name string `json:"name" binding:"required"`
}

// SetActiveFile selects the active file
func (h *Handlers) SetActiveFile(c *gin.Context) {
	var req SetActiveFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.workspace.SetActive(req.Name); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"active": req.Name})
}

// Propagate forwards a changed workspace file to the preview sessions when
// it is the file that feeds its kind. It returns the number of sessions
// that scheduled a render.
func (h *Handlers) Propagate(f workspace.File) int {
	if !h.workspace.Feeds(f.Name) {
		return 0
	}
	scheduled := h.previews.Broadcast(f.Kind, f.Content)
	h.logger.Debug("Workspace change propagated",
		zap.String("file", f.Name),
		zap.String("kind", string(f.Kind)),
		zap.Int("previews", scheduled),
	)
	return scheduled
}

func (h *Handlers) propagateRemoval(f workspace.File) int {
	text := h.workspace.Buffers().Text(f.Kind)
	scheduled := h.previews.Broadcast(f.Kind, text)
	h.logger.Debug("Workspace removal propagated",
		zap.String("file", f.Name),
		zap.String("kind", string(f.Kind)),
		zap.Int("previews", scheduled),
	)
	return scheduled
}

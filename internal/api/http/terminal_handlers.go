package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/codelab/internal/domain/terminal"
)

// CreateTerminal opens an interpreter session
func (h *Handlers) CreateTerminal(c *gin.Context) {
	s := h.terminals.Create()
	respond(c, http.StatusCreated, s.Snapshot())
}

// ListTerminals lists open interpreter sessions
func (h *Handlers) ListTerminals(c *gin.Context) {
	sessions := h.terminals.List()
	snapshots := make([]terminal.Snapshot, len(sessions))
	for i, s := range sessions {
		snapshots[i] = s.Snapshot()
	}
	respond(c, http.StatusOK, gin.H{"sessions": snapshots, "count": len(snapshots)})
}

// GetTerminal returns history, scrollback and busy state
func (h *Handlers) GetTerminal(c *gin.Context) {
	s, err := h.terminals.Get(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, s.Snapshot())
}

// CloseTerminal closes a session
func (h *Handlers) CloseTerminal(c *gin.Context) {
	if err := h.terminals.Close(c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SubmitCommandRequest is one line typed into the terminal
type SubmitCommandRequest struct {
	Line string `json:"line"`
}

// SubmitCommand runs a line. Output arrives on the stream, or in the
// snapshot returned here for immediate commands.
func (h *Handlers) SubmitCommand(c *gin.Context) {
	s, err := h.terminals.Get(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	var req SubmitCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.Send(req.Line); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusAccepted, s.Snapshot())
}

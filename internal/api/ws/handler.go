package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/codelab/internal/domain/preview"
	"github.com/GriffinCanCode/codelab/internal/domain/terminal"
	"github.com/GriffinCanCode/codelab/internal/infrastructure/monitoring"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev
	},
}

// Handler manages WebSocket connections
type Handler struct {
	previews  *preview.Manager
	terminals *terminal.Manager
	metrics   *monitoring.Metrics
	logger    *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(previews *preview.Manager, terminals *terminal.Manager, metrics *monitoring.Metrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		previews:  previews,
		terminals: terminals,
		metrics:   metrics,
		logger:    logger,
	}
}

// Register mounts the stream endpoints
func (h *Handler) Register(router gin.IRouter) {
	router.GET("/api/stream/preview/:id", h.PreviewStream)
	router.GET("/api/stream/terminal/:id", h.TerminalStream)
}

// PreviewHello is the first frame of a preview stream
type PreviewHello struct {
	ConnectionID string           `json:"connection_id"`
	SessionID    string           `json:"session_id"`
	Settings     preview.Settings `json:"settings"`
	Console      []preview.Entry  `json:"console"`
}

// PreviewStream streams one preview session's events
func (h *Handler) PreviewStream(c *gin.Context) {
	s, err := h.previews.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	conn := newConn(ws, h.metrics, h.logger.With(zap.String("preview", s.ID.String())))
	defer conn.release()

	events, cancel := s.Subscribe()
	defer cancel()

	if err := conn.send("hello", PreviewHello{
		ConnectionID: conn.id,
		SessionID:    s.ID.String(),
		Settings:     s.Settings(),
		Console:      s.Console(),
	}); err != nil {
		return
	}

	stop := make(chan struct{})
	defer close(stop)
	go pump(conn, events, "event", stop)

	for {
		data, in, err := conn.read()
		if err != nil {
			conn.logger.Debug("Preview stream closed", zap.Error(err))
			return
		}

		switch in.Type {
		case "ping":
			_ = conn.send("pong", nil)
		case "reload":
			h.control(conn, s.Reload)
		case "restart":
			h.control(conn, s.Restart)
		case "stop":
			h.control(conn, s.Stop)
		default:
			// Boundary messages relayed from the browser frame; the bridge
			// drops anything malformed or from another generation
			s.Relay(in.Generation, data)
		}
	}
}

func (h *Handler) control(conn *conn, op func() error) {
	if err := op(); err != nil {
		_ = conn.sendError(err.Error())
	}
}

// TerminalStream streams one terminal session and accepts input lines
func (h *Handler) TerminalStream(c *gin.Context) {
	s, err := h.terminals.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	conn := newConn(ws, h.metrics, h.logger.With(zap.String("terminal", s.ID.String())))
	defer conn.release()

	events, cancel := s.Subscribe()
	defer cancel()

	if err := conn.send("hello", gin.H{
		"connection_id": conn.id,
		"session":       s.Snapshot(),
	}); err != nil {
		return
	}

	stop := make(chan struct{})
	defer close(stop)
	go pump(conn, events, "event", stop)

	for {
		_, in, err := conn.read()
		if err != nil {
			conn.logger.Debug("Terminal stream closed", zap.Error(err))
			return
		}

		switch in.Type {
		case "ping":
			_ = conn.send("pong", nil)
		case "input":
			if err := s.Send(in.Line); err != nil {
				_ = conn.sendError(err.Error())
			}
		default:
			_ = conn.sendError("unknown message type")
		}
	}
}

package ws

import (
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/codelab/internal/infrastructure/monitoring"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
)

// Frame is the envelope of every server-sent message
type Frame struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// inbound is the part of a client frame needed for routing
type inbound struct {
	Type       string `json:"type"`
	Generation uint64 `json:"generation"`
	Line       string `json:"line"`
}

var inboundTypes = map[string]bool{
	"ping": true, "reload": true, "restart": true, "stop": true,
	"input": true, "console": true, "loaded": true,
}

// label bounds the metric label set to known frame types
func label(msgType string) string {
	if inboundTypes[msgType] {
		return msgType
	}
	return "other"
}

// conn serialises writes to one WebSocket
type conn struct {
	id      string
	ws      *websocket.Conn
	metrics *monitoring.Metrics
	logger  *zap.Logger

	mu sync.Mutex
}

func newConn(ws *websocket.Conn, metrics *monitoring.Metrics, logger *zap.Logger) *conn {
	connID := uuid.NewString()
	c := &conn{
		id:      connID,
		ws:      ws,
		metrics: metrics,
		logger:  logger.With(zap.String("conn", connID)),
	}

	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	if metrics != nil {
		metrics.IncWSConnections()
	}
	return c
}

func (c *conn) send(msgType string, data interface{}) error {
	return c.write(Frame{Type: msgType, Data: data, Timestamp: time.Now().Unix()})
}

func (c *conn) sendError(msg string) error {
	return c.write(Frame{Type: "error", Message: msg, Timestamp: time.Now().Unix()})
}

func (c *conn) write(f Frame) error {
	payload, err := sonic.Marshal(f)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.RecordWSMessage("out", f.Type)
	}
	return nil
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// read returns the next text frame and its routing fields
func (c *conn) read() ([]byte, inbound, error) {
	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			return nil, inbound{}, err
		}
		if kind != websocket.TextMessage {
			continue
		}

		var in inbound
		if err := sonic.Unmarshal(data, &in); err != nil {
			in = inbound{Type: "invalid"}
		}
		if c.metrics != nil {
			c.metrics.RecordWSMessage("in", label(in.Type))
		}
		return data, in, nil
	}
}

// pump forwards events until the channel closes or stop is closed, pinging
// the client in between
func pump[T any](c *conn, events <-chan T, msgType string, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case ev, ok := <-events:
			if !ok {
				c.close(websocket.CloseGoingAway, "session closed")
				return
			}
			if err := c.send(msgType, ev); err != nil {
				c.logger.Debug("WebSocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}

func (c *conn) close(code int, reason string) {
	c.mu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
	c.mu.Unlock()
	_ = c.ws.Close()
}

func (c *conn) release() {
	_ = c.ws.Close()
	if c.metrics != nil {
		c.metrics.DecWSConnections()
	}
}

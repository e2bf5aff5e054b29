package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/codelab/internal/domain/terminal"
)

const streamWriteWait = 5 * time.Second

// frame is the server's stream envelope
type frame struct {
	Type    string                 `json:"type"`
	Data    sonic.NoCopyRawMessage `json:"data,omitempty"`
	Message string                 `json:"message,omitempty"`
}

// TerminalUpdate is one frame from a terminal stream: an event, or an
// error message when the server refused an input line
type TerminalUpdate struct {
	Event terminal.Event
	Error string
}

// TerminalStream is a live connection to one terminal session
type TerminalStream struct {
	ws       *websocket.Conn
	snapshot terminal.Snapshot
	updates  chan TerminalUpdate
	logger   *zap.Logger

	writeMu sync.Mutex
	closed  chan struct{}
	once    sync.Once
}

// StreamTerminal connects to a terminal session's stream. It returns once
// the server's hello frame has arrived.
func (c *Client) StreamTerminal(ctx context.Context, id string) (*TerminalStream, error) {
	target := wsURL(c.base) + "/api/stream/terminal/" + id
	header := http.Header{"User-Agent": []string{userAgent}}

	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return nil, &APIError{Status: resp.StatusCode, Message: "stream refused"}
		}
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}

	var hello struct {
		ConnectionID string            `json:"connection_id"`
		Session      terminal.Snapshot `json:"session"`
	}
	f, err := readFrame(ws)
	if err == nil && f.Type != "hello" {
		err = fmt.Errorf("expected hello frame, got %q", f.Type)
	}
	if err == nil {
		err = sonic.Unmarshal(f.Data, &hello)
	}
	if err != nil {
		_ = ws.Close()
		return nil, err
	}

	s := &TerminalStream{
		ws:       ws,
		snapshot: hello.Session,
		updates:  make(chan TerminalUpdate, 32),
		logger:   c.logger.With(zap.String("connection", hello.ConnectionID)),
		closed:   make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

// Snapshot is the session state when the stream connected
func (s *TerminalStream) Snapshot() terminal.Snapshot {
	return s.snapshot
}

// Updates delivers frames until the stream ends
func (s *TerminalStream) Updates() <-chan TerminalUpdate {
	return s.updates
}

// Send submits one input line
func (s *TerminalStream) Send(line string) error {
	return s.write(map[string]string{"type": "input", "line": line})
}

// Close ends the stream
func (s *TerminalStream) Close() error {
	var err error
	s.once.Do(func() {
		close(s.closed)
		s.writeMu.Lock()
		_ = s.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(streamWriteWait))
		s.writeMu.Unlock()
		err = s.ws.Close()
	})
	return err
}

func (s *TerminalStream) write(v interface{}) error {
	payload, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.ws.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return s.ws.WriteMessage(websocket.TextMessage, payload)
}

func (s *TerminalStream) readLoop() {
	defer close(s.updates)

	for {
		f, err := readFrame(s.ws)
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !s.isClosed() {
				s.logger.Debug("Terminal stream ended", zap.Error(err))
			}
			return
		}

		var update TerminalUpdate
		switch f.Type {
		case "event":
			if err := sonic.Unmarshal(f.Data, &update.Event); err != nil {
				s.logger.Debug("Dropped malformed event", zap.Error(err))
				continue
			}
		case "error":
			update.Error = f.Message
		default:
			continue
		}

		select {
		case s.updates <- update:
		case <-s.closed:
			return
		}
	}
}

func (s *TerminalStream) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func readFrame(ws *websocket.Conn) (frame, error) {
	kind, data, err := ws.ReadMessage()
	if err != nil {
		return frame{}, err
	}
	if kind != websocket.TextMessage {
		return frame{}, errors.New("unexpected binary frame")
	}
	var f frame
	if err := sonic.Unmarshal(data, &f); err != nil {
		return frame{}, fmt.Errorf("decode frame: %w", err)
	}
	return f, nil
}

func wsURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return base
	}
}

package bridge

import (
	"github.com/bytedance/sonic"
)

// Type is the kind of a sandbox-to-host message
type Type string

const (
	TypeConsole Type = "console"
	TypeLoaded  Type = "loaded"
)

// Level is a console severity
type Level string

const (
	LevelLog   Level = "log"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Valid reports whether l is one of the relayed console levels
func (l Level) Valid() bool {
	return l == LevelLog || l == LevelWarn || l == LevelError
}

// Message is one decoded boundary message
type Message struct {
	Type    Type   `json:"type"`
	Level   Level  `json:"level,omitempty"`
	Message string `json:"message,omitempty"`
}

// Envelope tags a message with the sandbox instance that emitted it
type Envelope struct {
	Generation uint64  `json:"generation"`
	Source     string  `json:"source,omitempty"`
	Message    Message `json:"message"`
}

// Decode validates a raw value posted from inside the sandbox.
//
// Accepted inputs are the object exported from the JavaScript VM
// (map[string]interface{}), or a JSON document as []byte or string.
// Anything that is not one of the two known message shapes is rejected.
func Decode(raw interface{}) (Message, bool) {
	switch v := raw.(type) {
	case map[string]interface{}:
		return fromMap(v)
	case []byte:
		return DecodeJSON(v)
	case string:
		return DecodeJSON([]byte(v))
	case Message:
		return v, v.valid()
	default:
		return Message{}, false
	}
}

// DecodeJSON decodes a JSON boundary message
func DecodeJSON(data []byte) (Message, bool) {
	var m Message
	if err := sonic.Unmarshal(data, &m); err != nil {
		return Message{}, false
	}
	return m, m.valid()
}

func fromMap(v map[string]interface{}) (Message, bool) {
	typ, _ := v["type"].(string)
	m := Message{Type: Type(typ)}
	if m.Type == TypeConsole {
		level, _ := v["level"].(string)
		m.Level = Level(level)
		switch msg := v["message"].(type) {
		case string:
			m.Message = msg
		case nil:
		default:
			return Message{}, false
		}
	}
	return m, m.valid()
}

func (m Message) valid() bool {
	switch m.Type {
	case TypeConsole:
		return m.Level.Valid()
	case TypeLoaded:
		return true
	default:
		return false
	}
}

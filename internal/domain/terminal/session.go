package terminal

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/codelab/internal/domain/workspace"
	"github.com/GriffinCanCode/codelab/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/codelab/internal/shared/buffer"
	"github.com/GriffinCanCode/codelab/internal/shared/fanout"
	"github.com/GriffinCanCode/codelab/internal/shared/id"
)

var (
	ErrSessionNotFound = errors.New("terminal session not found")
	ErrSessionClosed   = errors.New("terminal session closed")
	ErrBusy            = errors.New("terminal is busy")
	ErrEmptyCommand    = errors.New("empty command")
)

const helpText = `Available commands:
  help              Show this help
  run [file]        Run the active file, or the named file
  python <code>     Run Python code
  node <code>       Run JavaScript code
  ls [pattern]      List files
  cat <file>        Print a file
  pwd               Print the working directory
  echo <text>       Print text
  date              Print the current date and time
  clear             Clear the screen`

const dateLayout = "Mon Jan _2 15:04:05 MST 2006"

// Files is the view of the workspace the interpreter needs
type Files interface {
	Files() []workspace.File
	Get(name string) (workspace.File, bool)
	Active() (workspace.File, bool)
}

// Config configures terminal sessions
type Config struct {
	ExecDelay     time.Duration
	ScrollbackCap int
	HistoryCap    int
	WorkDir       string
}

// DefaultConfig returns the standard terminal settings
func DefaultConfig() Config {
	return Config{
		ExecDelay:     800 * time.Millisecond,
		ScrollbackCap: 500,
		HistoryCap:    200,
		WorkDir:       "/home/student/project",
	}
}

// EventType identifies a terminal event
type EventType string

const (
	EventOutput  EventType = "output"
	EventBusy    EventType = "busy"
	EventCleared EventType = "cleared"
)

// Event is pushed to terminal subscribers
type Event struct {
	Type  EventType `json:"type"`
	Lines []string  `json:"lines,omitempty"`
	Busy  bool      `json:"busy"`
}

// Snapshot is a copy of the session state
type Snapshot struct {
	ID         id.TerminalID `json:"id"`
	History    []string      `json:"history"`
	Scrollback []string      `json:"scrollback"`
	Busy       bool          `json:"busy"`
}

// outcome is what a handler produced: immediate text, or a delayed job
type outcome struct {
	text   string
	silent bool
	job    func() string
}

type handlerFunc func(s *Session, cmd Command) outcome

// Session is one interpreter with its history and scrollback
type Session struct {
	ID        id.TerminalID
	CreatedAt time.Time

	cfg       Config
	files     Files
	executors map[string]Executor
	handlers  map[string]handlerFunc
	verbs     []string
	now       func() time.Time
	logger    *zap.Logger
	metrics   *monitoring.Metrics

	mu         sync.Mutex
	history    *buffer.Log[string]
	scrollback *buffer.Log[string]
	busy       bool
	closed     bool

	events *fanout.Hub[Event]
}

// NewSession creates an interpreter over files
func NewSession(cfg Config, files Files, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultConfig()
	if cfg.WorkDir == "" {
		cfg.WorkDir = defaults.WorkDir
	}
	if cfg.ScrollbackCap <= 0 {
		cfg.ScrollbackCap = defaults.ScrollbackCap
	}
	if cfg.HistoryCap <= 0 {
		cfg.HistoryCap = defaults.HistoryCap
	}

	sessionID := id.NewTerminalID()
	s := &Session{
		ID:        sessionID,
		CreatedAt: time.Now(),
		cfg:       cfg,
		files:     files,
		executors: map[string]Executor{
			"python":     Python(),
			"javascript": JavaScript(),
		},
		now:        time.Now,
		logger:     logger.With(zap.String("terminal", sessionID.String())),
		history:    buffer.NewLog[string](cfg.HistoryCap),
		scrollback: buffer.NewLog[string](cfg.ScrollbackCap),
		events:     fanout.New[Event](64),
	}
	s.handlers = map[string]handlerFunc{
		"help":   (*Session).help,
		"run":    (*Session).run,
		"python": (*Session).python,
		"node":   (*Session).node,
		"ls":     (*Session).ls,
		"cat":    (*Session).cat,
		"pwd":    (*Session).pwd,
		"echo":   (*Session).echo,
		"date":   (*Session).date,
		"clear":  (*Session).clear,
	}
	s.verbs = []string{"help", "run", "python", "node", "ls", "cat", "pwd", "echo", "date", "clear"}
	return s
}

// WithMetrics adds metrics tracking to the session
func (s *Session) WithMetrics(metrics *monitoring.Metrics) *Session {
	s.metrics = metrics
	return s
}

// Submit runs one input line. It returns false, with no effect, when the
// session is busy, closed, or the line is blank.
func (s *Session) Submit(line string) bool {
	return s.Send(line) == nil
}

// Send is Submit reporting why a line was refused: ErrBusy, ErrSessionClosed
// or ErrEmptyCommand.
func (s *Session) Send(line string) error {
	line = strings.TrimSpace(line)

	s.mu.Lock()
	if s.closed || s.busy {
		err := ErrBusy
		if s.closed {
			err = ErrSessionClosed
		}
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.IncCommandsRejected()
		}
		return err
	}

	cmd := Parse(line)
	if cmd.Verb == "" {
		s.mu.Unlock()
		return ErrEmptyCommand
	}
	s.history.Append(line)

	handler, known := s.handlers[cmd.Verb]
	label := cmd.Verb
	if !known {
		handler = (*Session).unknown
		label = "unknown"
	}
	timer := monitoring.NewTimer(s.metrics, label)

	echo := "$ " + line
	out := handler(s, cmd)

	if cmd.Verb == "clear" {
		s.mu.Unlock()
		timer.Stop("success")
		s.events.Publish(Event{Type: EventCleared})
		return nil
	}

	s.scrollback.Append(echo)
	lines := []string{echo}
	if out.job == nil {
		if !out.silent {
			s.scrollback.Append(out.text)
			lines = append(lines, out.text)
		}
		s.mu.Unlock()
		timer.Stop(status(known))
		s.events.Publish(Event{Type: EventOutput, Lines: lines})
		return nil
	}

	s.busy = true
	s.mu.Unlock()

	s.events.Publish(Event{Type: EventOutput, Lines: lines, Busy: true})
	go s.complete(out.job, timer)
	return nil
}

// complete waits out the simulated delay and appends the result
func (s *Session) complete(job func() string, timer *monitoring.Timer) {
	if s.cfg.ExecDelay > 0 {
		time.Sleep(s.cfg.ExecDelay)
	}
	text := job()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Debug("Discarding result for closed terminal")
		return
	}
	s.scrollback.Append(text)
	s.busy = false
	s.mu.Unlock()

	timer.Stop("success")
	s.events.Publish(Event{Type: EventOutput, Lines: []string{text}, Busy: false})
}

// Busy reports whether a simulated execution is outstanding
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Scrollback returns the terminal output, oldest first
func (s *Session) Scrollback() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrollback.Items()
}

// History returns accepted input lines, oldest first
func (s *Session) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Items()
}

// Snapshot copies the session state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:         s.ID,
		History:    s.history.Items(),
		Scrollback: s.scrollback.Items(),
		Busy:       s.busy,
	}
}

// Subscribe streams terminal events until cancel or Close
func (s *Session) Subscribe() (<-chan Event, func()) {
	return s.events.Subscribe()
}

// Close discards the session. An in-flight execution finishes its delay but
// its result is dropped.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.events.Close()
}

func status(known bool) string {
	if known {
		return "success"
	}
	return "not_found"
}

func (s *Session) help(Command) outcome {
	return outcome{text: helpText}
}

func (s *Session) run(cmd Command) outcome {
	var (
		f  workspace.File
		ok bool
	)
	if len(cmd.Args) == 0 {
		if f, ok = s.files.Active(); !ok {
			return outcome{text: "No file is open"}
		}
	} else {
		name := cmd.Rest
		if f, ok = s.files.Get(name); !ok {
			return outcome{text: fmt.Sprintf("File '%s' not found", name)}
		}
	}

	exec, supported := s.executors[f.Language]
	if !supported {
		return outcome{text: fmt.Sprintf("Cannot run %s files", f.Language)}
	}
	content := f.Content
	return outcome{job: func() string { return exec.Execute(content) }}
}

func (s *Session) python(cmd Command) outcome {
	return s.inline(s.executors["python"], cmd)
}

func (s *Session) node(cmd Command) outcome {
	return s.inline(s.executors["javascript"], cmd)
}

func (s *Session) inline(exec Executor, cmd Command) outcome {
	code := cmd.Rest
	if code == "" {
		return outcome{text: "Error: no code provided"}
	}
	return outcome{job: func() string { return exec.Execute(code) }}
}

func (s *Session) ls(cmd Command) outcome {
	pattern := cmd.Rest
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return outcome{text: fmt.Sprintf("ls: invalid pattern '%s'", pattern)}
	}

	var lines []string
	for _, f := range s.files.Files() {
		if pattern != "" {
			if matched, _ := doublestar.Match(pattern, f.Name); !matched {
				continue
			}
		}
		lines = append(lines, fmt.Sprintf("%s (%s)", f.Name, f.Language))
	}
	if len(lines) == 0 {
		return outcome{text: "No files"}
	}
	return outcome{text: strings.Join(lines, "\n")}
}

func (s *Session) cat(cmd Command) outcome {
	if len(cmd.Args) == 0 {
		return outcome{text: "Usage: cat <file>"}
	}
	name := cmd.Rest
	f, ok := s.files.Get(name)
	if !ok {
		return outcome{text: fmt.Sprintf("File '%s' not found", name)}
	}
	return outcome{text: f.Content}
}

func (s *Session) pwd(Command) outcome {
	return outcome{text: s.cfg.WorkDir}
}

func (s *Session) echo(cmd Command) outcome {
	return outcome{text: cmd.Text()}
}

func (s *Session) date(Command) outcome {
	return outcome{text: s.now().Format(dateLayout)}
}

// clear runs with s.mu held
func (s *Session) clear(Command) outcome {
	s.scrollback.Clear()
	return outcome{silent: true}
}

func (s *Session) unknown(cmd Command) outcome {
	text := "command not found: " + cmd.Verb
	if matches := fuzzy.Find(cmd.Verb, s.verbs); len(matches) > 0 {
		text += fmt.Sprintf("\nDid you mean '%s'?", matches[0].Str)
	}
	return outcome{text: text}
}

package sandbox

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/GriffinCanCode/codelab/internal/preview/viewport"
	"github.com/GriffinCanCode/codelab/internal/shared/id"
)

const (
	timeoutReason = "execution timeout exceeded"
	stopReason    = "sandbox stopped"
	minInterval   = 4 * time.Millisecond
)

// environmentPrelude installs event targets on window and returns the
// function that attaches the same methods to element proxies. Element
// listener lists are keyed per node on the Go side so every proxy of one
// node shares them. Element listener failures surface as window errors;
// window listener failures are swallowed.
const environmentPrelude = `(function (g) {
  function fire(target, listeners, event, report) {
    if (event.target === undefined) event.target = target;
    var list = (listeners[event.type] || []).slice();
    var handler = target['on' + event.type];
    if (typeof handler === 'function') list.push(handler);
    for (var i = 0; i < list.length; i++) {
      try { list[i].call(target, event); } catch (e) { if (report) report(e); }
    }
    return true;
  }
  function attach(target, listeners, report) {
    target.addEventListener = function (type, fn) {
      if (typeof fn !== 'function') return;
      var list = (listeners[type] = listeners[type] || []);
      if (list.indexOf(fn) < 0) list.push(fn);
    };
    target.removeEventListener = function (type, fn) {
      var list = listeners[type];
      if (!list) return;
      var i = list.indexOf(fn);
      if (i >= 0) list.splice(i, 1);
    };
    target.dispatchEvent = function (event) {
      return fire(target, listeners, event, report);
    };
  }
  g.Event = function (type) { this.type = String(type); };
  attach(g, {}, null);
  var report = function (e) {
    var event = new g.Event('error');
    event.message = 'Uncaught ' + String(e);
    event.error = e;
    g.dispatchEvent(event);
  };
  return function (el, listeners) {
    attach(el, listeners, report);
    el.click = function () { return el.dispatchEvent(new g.Event('click')); };
  };
})(this);`

// Instance is one isolated execution of a document
type Instance struct {
	id         id.InstanceID
	generation uint64
	cfg        Config
	viewport   viewport.Profile
	sink       Sink
	logger     *zap.Logger

	vm         *goja.Runtime
	dom        *DOM
	dispatchFn goja.Callable
	attachFn   goja.Callable

	jobs     chan func()
	done     chan struct{}
	exited   chan struct{}
	stopOnce sync.Once

	// Owned by the loop goroutine
	timers    map[int64]*time.Timer
	nextTimer int64
	listeners map[*html.Node]*goja.Object
}

func newInstance(generation uint64, cfg Config, vp viewport.Profile, sink Sink, logger *zap.Logger) *Instance {
	instanceID := id.NewInstanceID()
	return &Instance{
		id:         instanceID,
		generation: generation,
		cfg:        cfg,
		viewport:   vp,
		sink:       sink,
		logger:     logger.With(zap.String("instance", instanceID.String()), zap.Uint64("generation", generation)),
		vm:         goja.New(),
		jobs:       make(chan func(), 64),
		done:       make(chan struct{}),
		exited:     make(chan struct{}),
		timers:     make(map[int64]*time.Timer),
		listeners:  make(map[*html.Node]*goja.Object),
	}
}

// ID returns the instance identity
func (i *Instance) ID() id.InstanceID {
	return i.id
}

// Generation returns the render generation this instance belongs to
func (i *Instance) Generation() uint64 {
	return i.generation
}

// Exited is closed once the event loop has returned
func (i *Instance) Exited() <-chan struct{} {
	return i.exited
}

func (i *Instance) start(document string) {
	scripts, root, err := parseDocument(document)
	if err != nil {
		i.logger.Warn("Failed to parse preview document", zap.Error(err))
	}
	if i.cfg.EnableDOM && root != nil {
		i.dom = NewDOM(root)
	}
	go i.run(scripts)
}

func (i *Instance) stop() {
	i.stopOnce.Do(func() {
		close(i.done)
		i.vm.Interrupt(stopReason)
	})
}

func (i *Instance) stopped() bool {
	select {
	case <-i.done:
		return true
	default:
		return false
	}
}

func (i *Instance) run(scripts []script) {
	defer close(i.exited)
	defer i.clearTimers()

	if err := i.setupGlobals(); err != nil {
		i.logger.Error("Failed to set up sandbox globals", zap.Error(err))
		return
	}

	for _, s := range scripts {
		if i.stopped() {
			return
		}
		src := s
		if err := i.guard(func() error {
			_, err := i.vm.RunScript(src.name, src.source)
			return err
		}); err != nil {
			i.reportError(err)
		}
	}

	if i.stopped() {
		return
	}
	i.dispatch("load", nil)

	for {
		select {
		case <-i.done:
			return
		case job := <-i.jobs:
			job()
		}
	}
}

// setupGlobals configures the window environment and removes dangerous globals
func (i *Instance) setupGlobals() error {
	vm := i.vm
	if i.cfg.MaxCallStackSize > 0 {
		vm.SetMaxCallStackSize(i.cfg.MaxCallStackSize)
	}

	for _, name := range []string{"require", "process", "module", "exports"} {
		if err := vm.Set(name, goja.Undefined()); err != nil {
			return err
		}
	}

	global := vm.GlobalObject()
	parent := vm.NewObject()
	if err := parent.Set("postMessage", i.postMessage); err != nil {
		return err
	}

	console := vm.NewObject()
	for _, level := range []string{"log", "warn", "error", "info"} {
		if err := console.Set(level, i.makeConsoleFunc(level)); err != nil {
			return err
		}
	}

	screen := vm.NewObject()
	_ = screen.Set("width", i.viewport.Width)
	_ = screen.Set("height", i.viewport.Height)

	globals := map[string]interface{}{
		"window":        global,
		"self":          global,
		"parent":        parent,
		"top":           parent,
		"console":       console,
		"screen":        screen,
		"innerWidth":    i.viewport.Width,
		"innerHeight":   i.viewport.Height,
		"setTimeout":    func(call goja.FunctionCall) goja.Value { return i.schedule(call, false) },
		"setInterval":   func(call goja.FunctionCall) goja.Value { return i.schedule(call, true) },
		"clearTimeout":  i.clearTimer,
		"clearInterval": i.clearTimer,
	}
	for name, value := range globals {
		if err := vm.Set(name, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", name, err)
		}
	}

	attach, err := vm.RunString(environmentPrelude)
	if err != nil {
		return fmt.Errorf("failed to install event prelude: %w", err)
	}
	attachFn, ok := goja.AssertFunction(attach)
	if !ok {
		return errors.New("event prelude returned no attach function")
	}
	i.attachFn = attachFn
	fn, ok := goja.AssertFunction(vm.Get("dispatchEvent"))
	if !ok {
		return errors.New("dispatchEvent not installed")
	}
	i.dispatchFn = fn

	if i.dom != nil {
		if err := vm.Set("document", i.documentProxy()); err != nil {
			return err
		}
	}
	return nil
}

// guard runs fn with the per-run timeout and clears any interrupt afterwards
func (i *Instance) guard(fn func() error) error {
	var mu sync.Mutex
	finished := false
	timer := time.AfterFunc(i.cfg.Timeout, func() {
		mu.Lock()
		defer mu.Unlock()
		if !finished {
			i.vm.Interrupt(timeoutReason)
		}
	})

	err := fn()

	mu.Lock()
	finished = true
	mu.Unlock()
	timer.Stop()

	if i.stopped() {
		return nil
	}
	i.vm.ClearInterrupt()
	return err
}

// reportError dispatches an uncaught failure as a window error event
func (i *Instance) reportError(err error) {
	msg := errorMessage(err)
	i.logger.Debug("Uncaught sandbox error", zap.String("message", msg))
	i.dispatch("error", map[string]interface{}{"message": msg})
}

func (i *Instance) dispatch(eventType string, props map[string]interface{}) {
	if i.dispatchFn == nil {
		return
	}
	event := i.vm.NewObject()
	_ = event.Set("type", eventType)
	for k, v := range props {
		_ = event.Set(k, v)
	}
	if err := i.guard(func() error {
		_, err := i.dispatchFn(i.vm.GlobalObject(), event)
		return err
	}); err != nil {
		i.logger.Debug("Event dispatch failed", zap.String("event", eventType), zap.Error(err))
	}
}

func errorMessage(err error) string {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return fmt.Sprintf("Script interrupted: %v", interrupted.Value())
	}
	var ex *goja.Exception
	if errors.As(err, &ex) {
		if v := ex.Value(); v != nil {
			return "Uncaught " + v.String()
		}
	}
	return err.Error()
}

func (i *Instance) postMessage(call goja.FunctionCall) goja.Value {
	if i.stopped() {
		return goja.Undefined()
	}
	i.sink.Post(i.generation, i.id.String(), call.Argument(0).Export())
	return goja.Undefined()
}

// makeConsoleFunc creates the sandbox-local console behaviour
func (i *Instance) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for n, arg := range call.Arguments {
			parts[n] = arg.String()
		}
		i.logger.Debug("sandbox console",
			zap.String("level", level),
			zap.String("message", strings.Join(parts, " ")),
		)
		return goja.Undefined()
	}
}

func (i *Instance) schedule(call goja.FunctionCall, repeat bool) goja.Value {
	fn, ok := goja.AssertFunction(call.Argument(0))
	if !ok || len(i.timers) >= i.cfg.MaxTimers {
		return i.vm.ToValue(0)
	}

	delay := time.Duration(call.Argument(1).ToInteger()) * time.Millisecond
	if delay < 0 {
		delay = 0
	}
	if repeat && delay < minInterval {
		delay = minInterval
	}

	var args []goja.Value
	if len(call.Arguments) > 2 {
		args = append(args, call.Arguments[2:]...)
	}

	i.nextTimer++
	timerID := i.nextTimer

	var fire func()
	fire = func() {
		if _, live := i.timers[timerID]; !live {
			return
		}
		if repeat {
			i.timers[timerID] = time.AfterFunc(delay, func() { i.enqueue(fire) })
		} else {
			delete(i.timers, timerID)
		}
		if err := i.guard(func() error {
			_, err := fn(goja.Undefined(), args...)
			return err
		}); err != nil {
			i.reportError(err)
		}
	}
	i.timers[timerID] = time.AfterFunc(delay, func() { i.enqueue(fire) })

	return i.vm.ToValue(timerID)
}

func (i *Instance) clearTimer(call goja.FunctionCall) goja.Value {
	timerID := call.Argument(0).ToInteger()
	if t, ok := i.timers[timerID]; ok {
		t.Stop()
		delete(i.timers, timerID)
	}
	return goja.Undefined()
}

func (i *Instance) enqueue(job func()) {
	select {
	case i.jobs <- job:
	case <-i.done:
	}
}

func (i *Instance) clearTimers() {
	for timerID, t := range i.timers {
		t.Stop()
		delete(i.timers, timerID)
	}
}

// documentProxy exposes read queries over the parsed markup
func (i *Instance) documentProxy() *goja.Object {
	vm := i.vm
	document := vm.NewObject()

	first := func(selector string) goja.Value {
		els := i.dom.Query(selector)
		if len(els) == 0 {
			return goja.Null()
		}
		return i.elementProxy(els[0])
	}
	all := func(selector string) goja.Value {
		els := i.dom.Query(selector)
		items := make([]interface{}, len(els))
		for n, el := range els {
			items[n] = i.elementProxy(el)
		}
		return vm.NewArray(items...)
	}

	_ = document.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		return first(call.Argument(0).String())
	})
	_ = document.Set("querySelectorAll", func(call goja.FunctionCall) goja.Value {
		return all(call.Argument(0).String())
	})
	_ = document.Set("getElementById", func(call goja.FunctionCall) goja.Value {
		return first(fmt.Sprintf("[id=%q]", call.Argument(0).String()))
	})
	_ = document.Set("getElementsByClassName", func(call goja.FunctionCall) goja.Value {
		classes := strings.Fields(call.Argument(0).String())
		if len(classes) == 0 {
			return vm.NewArray()
		}
		return all("." + strings.Join(classes, "."))
	})
	_ = document.Set("getElementsByTagName", func(call goja.FunctionCall) goja.Value {
		return all(call.Argument(0).String())
	})
	_ = document.Set("title", i.dom.Title())
	_ = document.Set("body", first("body"))

	return document
}

func (i *Instance) elementProxy(el *Element) *goja.Object {
	obj := i.vm.NewObject()
	_ = obj.Set("tagName", el.TagName())
	_ = obj.Set("id", el.ID())
	_ = obj.Set("className", el.ClassName())
	_ = obj.Set("getAttribute", func(name string) string {
		return el.GetAttribute(name)
	})
	_ = obj.Set("setAttribute", func(name, value string) {
		el.SetAttribute(name, value)
	})
	i.accessor(obj, "textContent", el.TextContent, el.SetTextContent)
	i.accessor(obj, "innerText", el.TextContent, el.SetTextContent)
	i.accessor(obj, "innerHTML", el.InnerHTML, el.SetInnerHTML)
	i.attachEvents(obj, el)
	return obj
}

// attachEvents gives obj the event target methods of its node
func (i *Instance) attachEvents(obj *goja.Object, el *Element) {
	if i.attachFn == nil {
		return
	}
	node := el.Node()
	listeners, ok := i.listeners[node]
	if !ok {
		listeners = i.vm.NewObject()
		i.listeners[node] = listeners
	}
	if _, err := i.attachFn(goja.Undefined(), obj, listeners); err != nil {
		i.logger.Debug("Failed to attach element events", zap.Error(err))
	}
}

func (i *Instance) accessor(obj *goja.Object, name string, get func() string, set func(string)) {
	getter := i.vm.ToValue(func(goja.FunctionCall) goja.Value {
		return i.vm.ToValue(get())
	})
	setter := i.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		set(call.Argument(0).String())
		return goja.Undefined()
	})
	_ = obj.DefineAccessorProperty(name, getter, setter, goja.FLAG_TRUE, goja.FLAG_TRUE)
}

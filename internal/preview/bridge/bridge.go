// Package bridge carries messages from a sandbox instance to its preview
// session.
//
// Each preview session owns one Bridge. Messages are queued and delivered to
// the session's handler in emission order on a single goroutine. Every
// message is stamped with the generation of the sandbox instance that posted
// it; only the generation currently attached is delivered, so messages from a
// replaced or stopped instance are dropped even if they were already queued.
package bridge

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// DropReason labels why a message was not delivered
type DropReason string

const (
	DropMalformed DropReason = "malformed"
	DropStale     DropReason = "stale"
	DropClosed    DropReason = "closed"
)

// Handler receives delivered envelopes
type Handler func(Envelope)

// DropFunc observes dropped messages
type DropFunc func(reason DropReason)

// Bridge is a FIFO, generation-filtered channel from sandbox to host
type Bridge struct {
	handler Handler
	onDrop  DropFunc
	logger  *zap.Logger

	queue      chan Envelope
	done       chan struct{}
	exited     chan struct{}
	generation atomic.Uint64
	closeOnce  sync.Once
}

// Options configures a Bridge
type Options struct {
	QueueSize int
	OnDrop    DropFunc
	Logger    *zap.Logger
}

// New creates a bridge and starts its delivery goroutine
func New(handler Handler, opts Options) *Bridge {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	b := &Bridge{
		handler: handler,
		onDrop:  opts.OnDrop,
		logger:  opts.Logger,
		queue:   make(chan Envelope, opts.QueueSize),
		done:    make(chan struct{}),
		exited:  make(chan struct{}),
	}
	go b.deliver()
	return b
}

// Attach makes generation the only one whose messages are delivered
func (b *Bridge) Attach(generation uint64) {
	b.generation.Store(generation)
}

// Detach stops delivery for every generation until the next Attach
func (b *Bridge) Detach() {
	b.generation.Store(0)
}

// Generation returns the attached generation, or 0 when detached
func (b *Bridge) Generation() uint64 {
	return b.generation.Load()
}

// Post decodes raw and queues it for delivery. Malformed messages are
// dropped. Post blocks while the queue is full, unless the bridge closes.
func (b *Bridge) Post(generation uint64, source string, raw interface{}) {
	msg, ok := Decode(raw)
	if !ok {
		b.drop(DropMalformed)
		b.logger.Debug("Dropped malformed sandbox message",
			zap.Uint64("generation", generation),
			zap.String("source", source),
		)
		return
	}

	env := Envelope{Generation: generation, Source: source, Message: msg}
	select {
	case <-b.done:
		b.drop(DropClosed)
	default:
		select {
		case b.queue <- env:
		case <-b.done:
			b.drop(DropClosed)
		}
	}
}

// Close stops delivery and discards queued messages. Safe to call repeatedly.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() {
		b.Detach()
		close(b.done)
	})
	<-b.exited
}

func (b *Bridge) deliver() {
	defer close(b.exited)
	for {
		select {
		case <-b.done:
			return
		case env := <-b.queue:
			if env.Generation == 0 || env.Generation != b.generation.Load() {
				b.drop(DropStale)
				b.logger.Debug("Dropped stale sandbox message",
					zap.Uint64("generation", env.Generation),
					zap.Uint64("current", b.generation.Load()),
					zap.String("type", string(env.Message.Type)),
				)
				continue
			}
			b.handler(env)
		}
	}
}

func (b *Bridge) drop(reason DropReason) {
	if b.onDrop != nil {
		b.onDrop(reason)
	}
}

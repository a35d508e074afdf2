package socket

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"docshell/internal/logging"
)

// Event names understood by sockets and brokers.
const (
	EventConnect    = "connect"
	EventDisconnect = "disconnect"
	EventMessage    = "message"
)

// Listener receives event arguments.
type Listener func(args ...any)

// Option configures a Socket.
type Option func(*Socket)

// WithLogger sets the socket logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Socket) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Socket is one end of an in-process realtime channel.
type Socket struct {
	broker *Broker
	logger *slog.Logger

	client registry[Listener]
	server registry[Listener]

	mu        sync.Mutex
	connected bool
	id        string

	qmu      sync.Mutex
	queue    []func()
	draining bool
}

// New creates a socket and schedules its connect. Listeners registered
// before the connect fires still observe it. broker may be nil.
func New(broker *Broker, opts ...Option) *Socket {
	s := &Socket{broker: broker, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "socket")
	return s.Connect()
}

// Connect marks the socket connected under a fresh id and schedules the
// connect notifications.
func (s *Socket) Connect() *Socket {
	id := uuid.NewString()
	s.mu.Lock()
	s.connected = true
	s.id = id
	s.mu.Unlock()

	s.enqueue(func() {
		if !s.current(id) {
			return
		}
		s.logger.Debug("socket connected", logging.String("socket_id", id))
		s.trigger(EventConnect)
		if s.broker != nil {
			s.broker.publish(EventConnect, Event{Socket: s})
		}
	})
	return s
}

// Open is an alias for Connect.
func (s *Socket) Open() *Socket {
	return s.Connect()
}

// Disconnect clears the connected state and notifies local and broker
// listeners synchronously.
func (s *Socket) Disconnect() *Socket {
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()

	s.trigger(EventDisconnect)
	if s.broker != nil {
		s.broker.publish(EventDisconnect, Event{Socket: s})
	}
	return s
}

// Close is an alias for Disconnect.
func (s *Socket) Close() *Socket {
	return s.Disconnect()
}

// Compress is accepted for API compatibility and does nothing.
func (s *Socket) Compress(bool) *Socket {
	return s
}

// Connected reports whether the socket is connected.
func (s *Socket) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// ID returns the id assigned by the most recent connect.
func (s *Socket) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// On registers a client listener. The returned function removes it.
func (s *Socket) On(event string, fn Listener) func() {
	return s.client.add(event, fn, false)
}

// Once registers a client listener that fires at most once.
func (s *Socket) Once(event string, fn Listener) func() {
	return s.client.add(event, fn, true)
}

// Off removes every client listener for event.
func (s *Socket) Off(event string) *Socket {
	s.client.clear(event)
	return s
}

// RemoveAllListeners removes client listeners for the given events, or all
// of them when none are named.
func (s *Socket) RemoveAllListeners(events ...string) *Socket {
	if len(events) == 0 {
		s.client.clear("")
		return s
	}
	for _, event := range events {
		s.client.clear(event)
	}
	return s
}

// Emit queues event for the server listeners. Delivery happens on the
// socket's dispatcher, after Emit returns, in call order. Emits while
// disconnected are dropped.
func (s *Socket) Emit(event string, args ...any) *Socket {
	if !s.Connected() {
		s.logger.Debug("emit dropped while disconnected", logging.String("event", event))
		return s
	}
	s.enqueue(func() {
		for _, fn := range s.server.take(event) {
			fn(args...)
		}
	})
	return s
}

// Send is Emit("message", args...).
func (s *Socket) Send(args ...any) *Socket {
	return s.Emit(EventMessage, args...)
}

// Server returns the server-side view of the socket.
func (s *Socket) Server() ServerSide {
	return ServerSide{s: s}
}

// Flush waits until everything queued on the dispatcher before the call has
// been delivered.
func (s *Socket) Flush(ctx context.Context) error {
	done := make(chan struct{})
	s.enqueue(func() { close(done) })
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ServerSide is the backend's handle on a socket.
type ServerSide struct {
	s *Socket
}

// On registers a listener for events the client emits.
func (v ServerSide) On(event string, fn Listener) func() {
	return v.s.server.add(event, fn, false)
}

// Off removes every server listener for event.
func (v ServerSide) Off(event string) {
	v.s.server.clear(event)
}

// Emit delivers event to the client listeners before returning.
func (v ServerSide) Emit(event string, args ...any) {
	v.s.trigger(event, args...)
}

// Listeners reports how many server listeners are registered for event.
func (v ServerSide) Listeners(event string) int {
	return v.s.server.count(event)
}

func (s *Socket) trigger(event string, args ...any) {
	for _, fn := range s.client.take(event) {
		fn(args...)
	}
}

func (s *Socket) current(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected && s.id == id
}

func (s *Socket) enqueue(fn func()) {
	s.qmu.Lock()
	s.queue = append(s.queue, fn)
	if s.draining {
		s.qmu.Unlock()
		return
	}
	s.draining = true
	s.qmu.Unlock()
	go s.drain()
}

// drain runs queued work until the queue is empty. At most one drain runs
// per socket, which keeps delivery serial and ordered.
func (s *Socket) drain() {
	for {
		s.qmu.Lock()
		if len(s.queue) == 0 {
			s.draining = false
			s.qmu.Unlock()
			return
		}
		fn := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.qmu.Unlock()
		s.run(fn)
	}
}

func (s *Socket) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("socket listener panicked", logging.Any("panic", r))
		}
	}()
	fn()
}

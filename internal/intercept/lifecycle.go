package intercept

import (
	"errors"
	"fmt"
	"sync"
)

// ReadyState mirrors the browser request readiness values.
type ReadyState int

const (
	Unsent ReadyState = iota
	Opened
	HeadersReceived
	Loading
	Done
)

func (s ReadyState) String() string {
	switch s {
	case Unsent:
		return "unsent"
	case Opened:
		return "opened"
	case HeadersReceived:
		return "headers-received"
	case Loading:
		return "loading"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("ready-state(%d)", int(s))
	}
}

// Lifecycle event names.
const (
	EventLoadStart        = "loadstart"
	EventReadyStateChange = "readystatechange"
	EventProgress         = "progress"
	EventLoad             = "load"
	EventError            = "error"
	EventLoadEnd          = "loadend"
)

// Event is one lifecycle notification.
type Event struct {
	Type             string
	ReadyState       ReadyState
	LengthComputable bool
	Loaded           int64
	Total            int64
}

// ErrInvalidTransition reports an out-of-order lifecycle step.
var ErrInvalidTransition = errors.New("invalid lifecycle transition")

// Lifecycle is the response state machine a Call exposes. Each method is one
// transition and emits the matching events.
type Lifecycle struct {
	mu    sync.Mutex
	state ReadyState
	emit  func(Event)
}

// NewLifecycle returns a machine in the Unsent state. emit receives every
// event synchronously.
func NewLifecycle(emit func(Event)) *Lifecycle {
	if emit == nil {
		emit = func(Event) {}
	}
	return &Lifecycle{emit: emit}
}

// State returns the current ready state.
func (l *Lifecycle) State() ReadyState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Open resets the machine to Opened. It is valid from any state.
func (l *Lifecycle) Open() {
	l.set(Opened)
	l.emit(Event{Type: EventReadyStateChange, ReadyState: Opened})
}

// LoadStart announces that the request was sent.
func (l *Lifecycle) LoadStart() error {
	if err := l.require(Opened); err != nil {
		return err
	}
	l.emit(Event{Type: EventLoadStart, ReadyState: Opened})
	return nil
}

// HeadersReceived moves Opened to HeadersReceived.
func (l *Lifecycle) HeadersReceived() error {
	return l.advance(Opened, HeadersReceived)
}

// Loading moves HeadersReceived to Loading.
func (l *Lifecycle) Loading() error {
	return l.advance(HeadersReceived, Loading)
}

// Progress reports body progress while Loading.
func (l *Lifecycle) Progress(loaded, total int64) error {
	if err := l.require(Loading); err != nil {
		return err
	}
	l.emit(Event{Type: EventProgress, ReadyState: Loading, LengthComputable: total > 0, Loaded: loaded, Total: total})
	return nil
}

// Complete finishes a successful response: Done, load, loadend.
func (l *Lifecycle) Complete() error {
	if err := l.advance(Loading, Done); err != nil {
		return err
	}
	l.emit(Event{Type: EventLoad, ReadyState: Done})
	l.emit(Event{Type: EventLoadEnd, ReadyState: Done})
	return nil
}

// Fail finishes a failed response from any in-flight state: Done, error,
// loadend.
func (l *Lifecycle) Fail() error {
	l.mu.Lock()
	if l.state == Unsent || l.state == Done {
		from := l.state
		l.mu.Unlock()
		return fmt.Errorf("%w: fail from %s", ErrInvalidTransition, from)
	}
	l.state = Done
	l.mu.Unlock()
	l.emit(Event{Type: EventReadyStateChange, ReadyState: Done})
	l.emit(Event{Type: EventError, ReadyState: Done})
	l.emit(Event{Type: EventLoadEnd, ReadyState: Done})
	return nil
}

func (l *Lifecycle) set(state ReadyState) {
	l.mu.Lock()
	l.state = state
	l.mu.Unlock()
}

func (l *Lifecycle) require(state ReadyState) error {
	if got := l.State(); got != state {
		return fmt.Errorf("%w: in %s, want %s", ErrInvalidTransition, got, state)
	}
	return nil
}

func (l *Lifecycle) advance(from, to ReadyState) error {
	l.mu.Lock()
	if l.state != from {
		got := l.state
		l.mu.Unlock()
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, got, to)
	}
	l.state = to
	l.mu.Unlock()
	l.emit(Event{Type: EventReadyStateChange, ReadyState: to})
	return nil
}

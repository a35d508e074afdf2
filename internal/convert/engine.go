package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"docshell/internal/logging"
)

// Backend executes the converter against a staged workspace.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string
	// Load prepares the converter. It is called once per engine bootstrap
	// and must be safe to call again after a failure.
	Load(ctx context.Context) error
	// WorkingDir maps a host workspace directory to the path the converter
	// sees.
	WorkingDir(host string) string
	// Run converts ws.FileFrom into ws.FileTo as described by params.xml.
	// Errors wrapping ErrWorkerFault terminate the engine; any other error
	// is logged and the call resolves with whatever output exists.
	Run(ctx context.Context, ws Workspace) error
}

// Converter is the subset of Engine used by callers.
type Converter interface {
	Convert(ctx context.Context, req Request) (Result, error)
}

type engineState int

const (
	stateIdle engineState = iota
	stateBooting
	stateRunning
	stateTerminated
)

type job struct {
	id  uint64
	req Request
}

type reply struct {
	result Result
	err    error
}

type bootCall struct {
	done chan struct{}
	err  error
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTempDir sets the parent directory for per-call workspaces.
func WithTempDir(dir string) Option {
	return func(e *Engine) {
		e.tempDir = dir
	}
}

// WithSharedAssets supplies fonts and themes staged into every conversion
// whose request carries none of its own.
func WithSharedAssets(fonts, themes map[string][]byte) Option {
	return func(e *Engine) {
		e.fonts = cloneAssets(fonts)
		e.themes = cloneAssets(themes)
	}
}

// Engine serialises conversions onto a single worker goroutine.
type Engine struct {
	backend Backend
	logger  *slog.Logger
	tempDir string
	fonts   map[string][]byte
	themes  map[string][]byte

	mu      sync.Mutex
	state   engineState
	boot    *bootCall
	jobs    chan job
	stop    chan struct{}
	cancel  context.CancelFunc
	nextID  uint64
	pending map[uint64]chan reply
}

// NewEngine constructs an engine. Nothing is loaded until the first Convert
// or Init call.
func NewEngine(backend Backend, opts ...Option) *Engine {
	e := &Engine{
		backend: backend,
		logger:  logging.NewNop(),
		pending: make(map[uint64]chan reply),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(logging.String(logging.FieldComponent, "converter"), logging.String("backend", backend.Name()))
	return e
}

// Init boots the engine, waiting for an in-progress bootstrap if one exists.
// It also restarts an engine stopped by Terminate or a worker fault.
func (e *Engine) Init(ctx context.Context) error {
	return e.ensure(ctx, true)
}

// IsInitialized reports whether the worker is running.
func (e *Engine) IsInitialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == stateRunning
}

// Convert runs one conversion. Inputs are copied before they reach the
// worker. ctx bounds the caller's wait only; a conversion already handed to
// the worker runs to completion and its result is discarded.
func (e *Engine) Convert(ctx context.Context, req Request) (Result, error) {
	if req.passthrough() {
		return Result{Output: cloneBytes(req.Data), Media: map[string][]byte{}}, nil
	}
	if err := e.ensure(ctx, false); err != nil {
		return Result{}, err
	}
	req = req.clone()

	e.mu.Lock()
	if e.state != stateRunning {
		e.mu.Unlock()
		return Result{}, ErrTerminated
	}
	e.nextID++
	id := e.nextID
	ch := make(chan reply, 1)
	e.pending[id] = ch
	jobs, stop := e.jobs, e.stop
	e.mu.Unlock()

	select {
	case jobs <- job{id: id, req: req}:
	case <-stop:
	case <-ctx.Done():
		e.forget(id)
		return Result{}, ctx.Err()
	}

	select {
	case r := <-ch:
		return r.result, r.err
	case <-ctx.Done():
		e.forget(id)
		return Result{}, ctx.Err()
	}
}

// Terminate stops the worker and rejects every pending call with
// ErrTerminated. Later calls fail until Init is called again.
func (e *Engine) Terminate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == stateRunning {
		e.stopWorkerLocked()
	}
	e.boot = nil
	e.state = stateTerminated
	e.rejectLocked(ErrTerminated)
	e.logger.Debug("converter terminated")
}

// Close terminates the engine and releases backend resources.
func (e *Engine) Close(ctx context.Context) error {
	e.Terminate()
	if closer, ok := e.backend.(interface{ Close(context.Context) error }); ok {
		return closer.Close(ctx)
	}
	return nil
}

func (e *Engine) ensure(ctx context.Context, restart bool) error {
	e.mu.Lock()
	switch e.state {
	case stateRunning:
		e.mu.Unlock()
		return nil
	case stateTerminated:
		if !restart {
			e.mu.Unlock()
			return ErrTerminated
		}
	}
	b := e.boot
	if b == nil {
		b = &bootCall{done: make(chan struct{})}
		e.boot = b
		e.state = stateBooting
		go e.bootstrap(b)
	}
	e.mu.Unlock()

	select {
	case <-b.done:
		return b.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) bootstrap(b *bootCall) {
	err := e.backend.Load(context.Background())

	e.mu.Lock()
	switch {
	case e.boot != b:
		b.err = ErrTerminated
	case err != nil:
		e.boot = nil
		e.state = stateIdle
		b.err = fmt.Errorf("%w: %w", ErrBootstrap, err)
		e.logger.Warn("converter bootstrap failed", logging.Error(err))
	default:
		e.boot = nil
		e.state = stateRunning
		e.startWorkerLocked()
		e.logger.Debug("converter ready")
	}
	e.mu.Unlock()
	close(b.done)
}

func (e *Engine) startWorkerLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	e.jobs = make(chan job)
	e.stop = make(chan struct{})
	e.cancel = cancel
	go e.work(ctx, e.jobs, e.stop)
}

func (e *Engine) stopWorkerLocked() {
	if e.stop != nil {
		close(e.stop)
		e.cancel()
	}
	e.jobs, e.stop, e.cancel = nil, nil, nil
}

func (e *Engine) work(ctx context.Context, jobs <-chan job, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case j := <-jobs:
			res, err := e.execute(ctx, j.req)
			if errors.Is(err, ErrWorkerFault) {
				e.fault(stop, err)
				return
			}
			e.deliver(j.id, reply{result: res, err: err})
		}
	}
}

func (e *Engine) execute(ctx context.Context, req Request) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrWorkerFault, r)
		}
	}()

	if e.tempDir != "" {
		if err := os.MkdirAll(e.tempDir, 0o755); err != nil {
			return Result{}, fmt.Errorf("create temp dir: %w", err)
		}
	}
	if req.Fonts == nil {
		req.Fonts = e.fonts
	}
	if req.Themes == nil {
		req.Themes = e.themes
	}
	ws, err := stage(e.tempDir, e.backend.WorkingDir, req)
	if err != nil {
		return Result{}, err
	}
	defer ws.cleanup()

	started := time.Now()
	if err := e.backend.Run(ctx, ws); err != nil {
		if errors.Is(err, ErrWorkerFault) {
			return Result{}, err
		}
		e.logger.Warn("converter run failed",
			logging.String("from", ws.FileFrom),
			logging.String("to", ws.FileTo),
			logging.Error(err),
		)
	}

	res, err = ws.collect()
	if err != nil {
		e.logger.Warn("collect converter output", logging.Error(err))
	}
	if res.Output == nil {
		e.logger.Info("converter produced no output",
			logging.String("from", ws.FileFrom),
			logging.String("to", ws.FileTo),
		)
		return res, nil
	}
	e.logger.Debug("conversion finished",
		logging.Int("output_bytes", len(res.Output)),
		logging.Int("media_files", len(res.Media)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return res, nil
}

// fault terminates the engine after a worker failure. stop identifies the
// worker incarnation so a fault from a superseded worker is ignored.
func (e *Engine) fault(stop <-chan struct{}, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stop != stop {
		return
	}
	e.logger.Error("converter worker fault", logging.Error(err))
	e.stopWorkerLocked()
	e.state = stateTerminated
	e.rejectLocked(err)
}

func (e *Engine) deliver(id uint64, r reply) {
	e.mu.Lock()
	ch, ok := e.pending[id]
	delete(e.pending, id)
	e.mu.Unlock()
	if ok {
		ch <- r
	}
}

func (e *Engine) forget(id uint64) {
	e.mu.Lock()
	delete(e.pending, id)
	e.mu.Unlock()
}

func (e *Engine) rejectLocked(err error) {
	for id, ch := range e.pending {
		ch <- reply{err: err}
		delete(e.pending, id)
	}
}

package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// Executor abstracts command execution for testability.
type Executor interface {
	LookPath(file string) (string, error)
	Run(ctx context.Context, binary string, args []string, dir string) ([]byte, error)
}

// ProcessOption configures a ProcessBackend.
type ProcessOption func(*ProcessBackend)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) ProcessOption {
	return func(b *ProcessBackend) {
		if exec != nil {
			b.exec = exec
		}
	}
}

// ProcessBackend runs a native x2t binary.
type ProcessBackend struct {
	binary string
	exec   Executor

	mu       sync.Mutex
	resolved string
}

// NewProcessBackend constructs a backend for the named x2t binary.
func NewProcessBackend(binary string, opts ...ProcessOption) (*ProcessBackend, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("x2t binary required")
	}
	b := &ProcessBackend{binary: binary, exec: commandExecutor{}}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func (b *ProcessBackend) Name() string { return "process" }

// Load resolves the binary on PATH.
func (b *ProcessBackend) Load(context.Context) error {
	path, err := b.exec.LookPath(b.binary)
	if err != nil {
		return fmt.Errorf("locate %s: %w", b.binary, err)
	}
	b.mu.Lock()
	b.resolved = path
	b.mu.Unlock()
	return nil
}

func (b *ProcessBackend) WorkingDir(host string) string { return host }

// Run invokes x2t with the workspace params.xml. A binary that has vanished
// since Load is reported as a worker fault.
func (b *ProcessBackend) Run(ctx context.Context, ws Workspace) error {
	b.mu.Lock()
	binary := b.resolved
	b.mu.Unlock()
	if binary == "" {
		return fmt.Errorf("%w: x2t not loaded", ErrWorkerFault)
	}

	output, err := b.exec.Run(ctx, binary, []string{ws.ParamsPath()}, ws.Dir)
	if err == nil {
		return nil
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %w", ErrWorkerFault, err)
	}
	detail := strings.TrimSpace(string(output))
	if detail == "" {
		return fmt.Errorf("x2t: %w", err)
	}
	return fmt.Errorf("x2t: %w: %s", err, detail)
}

type commandExecutor struct{}

func (commandExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, dir string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Dir = dir
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.Bytes(), err
}

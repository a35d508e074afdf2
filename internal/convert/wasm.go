package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
)

// wasmRoot is where the workspace is mounted inside the guest.
const wasmRoot = "/working"

// WasmBackend hosts a WASI build of x2t under wazero. The module is compiled
// once and instantiated fresh for every conversion, so no guest state
// carries over between calls.
type WasmBackend struct {
	path     string
	cacheDir string

	mu       sync.Mutex
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
}

// NewWasmBackend constructs a backend for the module at path. cacheDir, when
// set, persists compiled machine code across runs.
func NewWasmBackend(path, cacheDir string) (*WasmBackend, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("x2t wasm module path required")
	}
	return &WasmBackend{path: path, cacheDir: strings.TrimSpace(cacheDir)}, nil
}

func (b *WasmBackend) Name() string { return "wasm" }

// Load compiles the module. Repeated calls after success are no-ops.
func (b *WasmBackend) Load(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.compiled != nil {
		return nil
	}

	binary, err := os.ReadFile(b.path)
	if err != nil {
		return fmt.Errorf("read wasm module: %w", err)
	}

	cfg := wazero.NewRuntimeConfig()
	if b.cacheDir != "" {
		cache, err := wazero.NewCompilationCacheWithDir(b.cacheDir)
		if err != nil {
			return fmt.Errorf("open compilation cache: %w", err)
		}
		cfg = cfg.WithCompilationCache(cache)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, cfg)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		_ = rt.Close(ctx)
		return fmt.Errorf("instantiate wasi: %w", err)
	}
	compiled, err := rt.CompileModule(ctx, binary)
	if err != nil {
		_ = rt.Close(ctx)
		return fmt.Errorf("compile wasm module: %w", err)
	}
	b.runtime = rt
	b.compiled = compiled
	return nil
}

func (b *WasmBackend) WorkingDir(string) string { return wasmRoot }

// Run instantiates the module with the workspace mounted at /working and
// x2t's usual argv. A non-zero exit is returned as an ordinary error.
func (b *WasmBackend) Run(ctx context.Context, ws Workspace) error {
	b.mu.Lock()
	rt, compiled := b.runtime, b.compiled
	b.mu.Unlock()
	if compiled == nil {
		return fmt.Errorf("%w: wasm module not loaded", ErrWorkerFault)
	}

	var stderr bytes.Buffer
	cfg := wazero.NewModuleConfig().
		WithName("").
		WithArgs("x2t", ws.ParamsPath()).
		WithFSConfig(wazero.NewFSConfig().WithDirMount(ws.Dir, wasmRoot)).
		WithStdout(io.Discard).
		WithStderr(&stderr).
		WithSysWalltime().
		WithSysNanotime()

	mod, err := rt.InstantiateModule(ctx, compiled, cfg)
	if mod != nil {
		_ = mod.Close(ctx)
	}
	if err == nil {
		return nil
	}
	var exitErr *sys.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.ExitCode() == 0 {
			return nil
		}
		return fmt.Errorf("x2t exited with code %d: %s", exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
	}
	return fmt.Errorf("x2t trapped: %w", err)
}

// Close releases the runtime and compiled module.
func (b *WasmBackend) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.runtime == nil {
		return nil
	}
	err := b.runtime.Close(ctx)
	b.runtime, b.compiled = nil, nil
	return err
}

package convert

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeBackend struct {
	mu      sync.Mutex
	loadErr error
	loads   atomic.Int32
	gate    chan struct{}
	run     func(ws Workspace) error
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Load(context.Context) error {
	f.loads.Add(1)
	f.mu.Lock()
	gate, err := f.gate, f.loadErr
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return err
}

func (f *fakeBackend) WorkingDir(host string) string { return host }

func (f *fakeBackend) Run(_ context.Context, ws Workspace) error {
	f.mu.Lock()
	run := f.run
	f.mu.Unlock()
	if run == nil {
		return nil
	}
	return run(ws)
}

func (f *fakeBackend) setRun(run func(ws Workspace) error) {
	f.mu.Lock()
	f.run = run
	f.mu.Unlock()
}

func writeOutput(ws Workspace, data string) error {
	return os.WriteFile(filepath.Join(ws.Dir, ws.FileTo), []byte(data), 0o600)
}

func (e *Engine) pendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestConvertPassthroughReturnsIdenticalBytes(t *testing.T) {
	backend := &fakeBackend{}
	engine := NewEngine(backend, WithTempDir(t.TempDir()))

	input := []byte("%PDF-1.7 original bytes")
	res, err := engine.Convert(context.Background(), Request{Data: input, FileFrom: "doc.pdf", FileTo: "out.PDF"})
	if err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}
	if !bytes.Equal(res.Output, input) {
		t.Fatalf("passthrough output = %q, want %q", res.Output, input)
	}
	input[0] = 'X'
	if res.Output[0] != '%' {
		t.Fatal("passthrough output aliases the input buffer")
	}
	if backend.loads.Load() != 0 {
		t.Fatal("passthrough must not bootstrap the backend")
	}
}

func TestConvertStagesWorkspace(t *testing.T) {
	backend := &fakeBackend{}
	backend.setRun(func(ws Workspace) error {
		input, err := os.ReadFile(filepath.Join(ws.Dir, ws.FileFrom))
		if err != nil {
			return err
		}
		if string(input) != "source" {
			t.Errorf("staged input = %q", input)
		}
		params, err := os.ReadFile(filepath.Join(ws.Dir, paramsFile))
		if err != nil {
			return err
		}
		for _, want := range []string{
			"<TaskQueueDataConvert",
			"<m_sFileFrom>" + filepath.Join(ws.Dir, "doc.docx") + "</m_sFileFrom>",
			"<m_sFileTo>" + filepath.Join(ws.Dir, "Editor.bin") + "</m_sFileTo>",
			"<m_bIsNoBase64>false</m_bIsNoBase64>",
		} {
			if !strings.Contains(string(params), want) {
				t.Errorf("params.xml missing %q:\n%s", want, params)
			}
		}
		if _, err := os.Stat(filepath.Join(ws.Dir, mediaDir, "image1.png")); err != nil {
			t.Errorf("expected staged media: %v", err)
		}
		if err := os.WriteFile(filepath.Join(ws.Dir, mediaDir, "image2.png"), []byte("png2"), 0o600); err != nil {
			return err
		}
		return writeOutput(ws, "binary")
	})
	tmp := t.TempDir()
	engine := NewEngine(backend, WithTempDir(tmp))

	res, err := engine.Convert(context.Background(), Request{
		Data:     []byte("source"),
		FileFrom: "doc.docx",
		FileTo:   "Editor.bin",
		Media:    map[string][]byte{"image1.png": []byte("png1")},
	})
	if err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}
	if string(res.Output) != "binary" {
		t.Fatalf("output = %q", res.Output)
	}
	if got := res.MediaNames(); len(got) != 2 || got[0] != "image1.png" || got[1] != "image2.png" {
		t.Fatalf("media names = %v", got)
	}
	entries, _ := os.ReadDir(tmp)
	if len(entries) != 0 {
		t.Fatalf("workspace not cleaned up: %d entries left", len(entries))
	}
}

func TestConvertWithoutOutputResolvesNil(t *testing.T) {
	backend := &fakeBackend{}
	backend.setRun(func(Workspace) error { return errors.New("corrupt input") })
	engine := NewEngine(backend, WithTempDir(t.TempDir()))

	res, err := engine.Convert(context.Background(), Request{Data: []byte("junk"), FileFrom: "doc.docx", FileTo: "Editor.bin"})
	if err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}
	if res.Output != nil {
		t.Fatalf("expected nil output, got %q", res.Output)
	}
}

func TestBootstrapIsShared(t *testing.T) {
	gate := make(chan struct{})
	backend := &fakeBackend{gate: gate}
	backend.setRun(func(ws Workspace) error { return writeOutput(ws, "ok") })
	engine := NewEngine(backend, WithTempDir(t.TempDir()))

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Convert(context.Background(), Request{Data: []byte("x"), FileFrom: "a.docx", FileTo: "b.bin"})
			errs <- err
		}()
	}
	waitFor(t, func() bool { return backend.loads.Load() > 0 })
	close(gate)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Convert returned error: %v", err)
		}
	}
	if got := backend.loads.Load(); got != 1 {
		t.Fatalf("Load called %d times, want 1", got)
	}
	if !engine.IsInitialized() {
		t.Fatal("engine should report initialized")
	}
}

func TestBootstrapFailureIsRetried(t *testing.T) {
	backend := &fakeBackend{loadErr: errors.New("module missing")}
	engine := NewEngine(backend, WithTempDir(t.TempDir()))

	_, err := engine.Convert(context.Background(), Request{Data: []byte("x"), FileFrom: "a.docx", FileTo: "b.bin"})
	if !errors.Is(err, ErrBootstrap) {
		t.Fatalf("expected ErrBootstrap, got %v", err)
	}

	backend.mu.Lock()
	backend.loadErr = nil
	backend.mu.Unlock()
	if err := engine.Init(context.Background()); err != nil {
		t.Fatalf("Init after failure: %v", err)
	}
	if got := backend.loads.Load(); got != 2 {
		t.Fatalf("Load called %d times, want 2", got)
	}
}

func TestWorkerFaultRejectsPendingCalls(t *testing.T) {
	release := make(chan struct{})
	backend := &fakeBackend{}
	backend.setRun(func(Workspace) error {
		<-release
		panic("converter crashed")
	})
	engine := NewEngine(backend, WithTempDir(t.TempDir()))
	if err := engine.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	errs := make(chan error, 2)
	for range 2 {
		go func() {
			_, err := engine.Convert(context.Background(), Request{Data: []byte("x"), FileFrom: "a.docx", FileTo: "b.bin"})
			errs <- err
		}()
	}
	waitFor(t, func() bool { return engine.pendingCount() == 2 })
	close(release)

	for range 2 {
		if err := <-errs; !errors.Is(err, ErrWorkerFault) {
			t.Fatalf("expected ErrWorkerFault, got %v", err)
		}
	}
	if engine.IsInitialized() {
		t.Fatal("engine must not restart on its own")
	}
	if _, err := engine.Convert(context.Background(), Request{Data: []byte("x"), FileFrom: "a.docx", FileTo: "b.bin"}); !errors.Is(err, ErrTerminated) {
		t.Fatalf("expected ErrTerminated after fault, got %v", err)
	}

	backend.setRun(func(ws Workspace) error { return writeOutput(ws, "ok") })
	if err := engine.Init(context.Background()); err != nil {
		t.Fatalf("re-Init: %v", err)
	}
	res, err := engine.Convert(context.Background(), Request{Data: []byte("x"), FileFrom: "a.docx", FileTo: "b.bin"})
	if err != nil || string(res.Output) != "ok" {
		t.Fatalf("convert after re-Init = %q, %v", res.Output, err)
	}
}

func TestBackendFaultErrorTerminates(t *testing.T) {
	backend := &fakeBackend{}
	backend.setRun(func(Workspace) error { return ErrWorkerFault })
	engine := NewEngine(backend, WithTempDir(t.TempDir()))

	_, err := engine.Convert(context.Background(), Request{Data: []byte("x"), FileFrom: "a.docx", FileTo: "b.bin"})
	if !errors.Is(err, ErrWorkerFault) {
		t.Fatalf("expected ErrWorkerFault, got %v", err)
	}
	if engine.IsInitialized() {
		t.Fatal("engine should be terminated")
	}
}

func TestTerminateRejectsPendingCalls(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	backend := &fakeBackend{}
	backend.setRun(func(Workspace) error {
		<-release
		return nil
	})
	engine := NewEngine(backend, WithTempDir(t.TempDir()))
	if err := engine.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	errs := make(chan error, 2)
	for range 2 {
		go func() {
			_, err := engine.Convert(context.Background(), Request{Data: []byte("x"), FileFrom: "a.docx", FileTo: "b.bin"})
			errs <- err
		}()
	}
	waitFor(t, func() bool { return engine.pendingCount() == 2 })
	engine.Terminate()

	for range 2 {
		if err := <-errs; !errors.Is(err, ErrTerminated) {
			t.Fatalf("expected ErrTerminated, got %v", err)
		}
	}
}

func TestConvertHonoursCallerContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	backend := &fakeBackend{}
	backend.setRun(func(Workspace) error {
		<-release
		return nil
	})
	engine := NewEngine(backend, WithTempDir(t.TempDir()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := engine.Convert(ctx, Request{Data: []byte("x"), FileFrom: "a.docx", FileTo: "b.bin"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if engine.pendingCount() != 0 {
		t.Fatal("abandoned call left in pending map")
	}
}

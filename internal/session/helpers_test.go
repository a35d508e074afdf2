package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"docshell/internal/blobstore"
	"docshell/internal/convert"
	"docshell/internal/protocol"
	"docshell/internal/socket"
)

type fakeConverter struct {
	mu    sync.Mutex
	calls []convert.Request
	fn    func(convert.Request) (convert.Result, error)
}

func (f *fakeConverter) Convert(_ context.Context, req convert.Request) (convert.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	fn := f.fn
	f.mu.Unlock()
	if fn == nil {
		return convert.Result{Output: []byte("converted:" + req.FileTo)}, nil
	}
	return fn(req)
}

func (f *fakeConverter) setFn(fn func(convert.Request) (convert.Result, error)) {
	f.mu.Lock()
	f.fn = fn
	f.mu.Unlock()
}

func (f *fakeConverter) reset() {
	f.mu.Lock()
	f.calls = nil
	f.mu.Unlock()
}

func (f *fakeConverter) requests() []convert.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]convert.Request(nil), f.calls...)
}

type memDownloader struct {
	mu    sync.Mutex
	names []string
	files [][]byte
}

func (d *memDownloader) Download(_ context.Context, name string, data []byte) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.names = append(d.names, name)
	d.files = append(d.files, append([]byte(nil), data...))
	return "/downloads/" + name, nil
}

func (d *memDownloader) snapshot() ([]string, [][]byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.names...), append([][]byte(nil), d.files...)
}

// recorder collects the server messages delivered to a client socket.
type recorder struct {
	mu   sync.Mutex
	msgs []protocol.ServerMessage
}

func (r *recorder) listen(args ...any) {
	if len(args) == 0 {
		return
	}
	msg, ok := args[0].(protocol.ServerMessage)
	if !ok {
		return
	}
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
}

func (r *recorder) messages() []protocol.ServerMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]protocol.ServerMessage(nil), r.msgs...)
}

func (r *recorder) types() []string {
	msgs := r.messages()
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Type()
	}
	return out
}

func (r *recorder) documentOpens(kind string) []protocol.DocumentStatus {
	var out []protocol.DocumentStatus
	for _, m := range r.messages() {
		if doc, ok := m.(protocol.DocumentOpen); ok && doc.Data.Type == kind {
			out = append(out, doc.Data)
		}
	}
	return out
}

type harness struct {
	conv   *fakeConverter
	blobs  *blobstore.Store
	dl     *memDownloader
	ctrl   *Controller
	sock   *socket.Socket
	client *recorder
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		conv:   &fakeConverter{},
		blobs:  blobstore.New(""),
		dl:     &memDownloader{},
		client: &recorder{},
	}
	opts = append([]Option{WithDownloader(h.dl), WithSaveNotifyDelay(0)}, opts...)
	h.ctrl = New(h.conv, h.blobs, opts...)
	t.Cleanup(h.ctrl.Close)
	if err := h.ctrl.PrepareTemplates(context.Background()); err != nil {
		t.Fatalf("PrepareTemplates: %v", err)
	}
	h.conv.reset()
	return h
}

// connect binds a fresh client socket with a message recorder attached
// before the controller sends anything.
func (h *harness) connect(t *testing.T) {
	t.Helper()
	h.sock = socket.New(nil)
	h.sock.On(socket.EventMessage, h.client.listen)
	if err := h.sock.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	h.ctrl.HandleConnect(h.sock)
}

func (h *harness) auth(t *testing.T) protocol.DocumentStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.ctrl.HandleMessage(ctx, `{"type":"auth","docid":"x"}`); err != nil {
		t.Fatalf("HandleMessage(auth): %v", err)
	}
	opens := h.client.documentOpens("open")
	if len(opens) == 0 {
		t.Fatalf("no documentOpen after auth; got %v", h.client.types())
	}
	return opens[len(opens)-1]
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

func waitLoad(t *testing.T, c *Controller) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.Wait(ctx)
}

package intercept_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"testing"

	"docshell/internal/blobstore"
	"docshell/internal/intercept"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

// fakeNetwork answers every request with the method, path and body echoed
// back.
func fakeNetwork(hits *int) http.RoundTripper {
	return roundTripFunc(func(req *http.Request) (*http.Response, error) {
		*hits++
		body, _ := io.ReadAll(req.Body)
		text := fmt.Sprintf("%s %s %s", req.Method, req.URL.Path, body)
		return &http.Response{
			Status:     "201 Created",
			StatusCode: http.StatusCreated,
			Header:     http.Header{"Content-Type": {"text/plain"}},
			Body:       io.NopCloser(strings.NewReader(text)),
			Request:    req,
		}, nil
	})
}

type observed struct {
	status  int
	text    string
	url     string
	events  []string
	mocked  bool
	sendErr error
}

func run(t *testing.T, registry *intercept.Registry, base http.RoundTripper, configure func(*intercept.Call)) observed {
	t.Helper()
	call := intercept.NewCall(registry, intercept.WithBase(base))
	var events []string
	for _, name := range []string{
		intercept.EventLoadStart, intercept.EventReadyStateChange, intercept.EventProgress,
		intercept.EventLoad, intercept.EventError, intercept.EventLoadEnd,
	} {
		call.AddEventListener(name, func(ev intercept.Event) {
			if ev.Type == intercept.EventReadyStateChange {
				events = append(events, fmt.Sprintf("%s(%d)", ev.Type, ev.ReadyState))
				return
			}
			events = append(events, ev.Type)
		})
	}
	call.Open(http.MethodPost, "http://editor.local/upload/abc")
	if configure != nil {
		configure(call)
	}
	err := call.Send(context.Background(), []byte("payload"))
	return observed{
		status:  call.Status(),
		text:    call.ResponseText(),
		url:     call.ResponseURL(),
		events:  events,
		mocked:  call.Mocked(),
		sendErr: err,
	}
}

var successEvents = []string{
	"readystatechange(1)",
	"loadstart",
	"readystatechange(2)",
	"readystatechange(3)",
	"progress",
	"readystatechange(4)",
	"load",
	"loadend",
}

func TestMockedResponseLifecycle(t *testing.T) {
	registry := intercept.NewRegistry(nil)
	var seen *intercept.Request
	registry.Use(func(_ context.Context, req *intercept.Request) (*intercept.Response, error) {
		seen = req
		return intercept.NewResponse(http.StatusOK, []byte("synthetic"), "text/plain"), nil
	})
	hits := 0

	got := run(t, registry, fakeNetwork(&hits), func(c *intercept.Call) {
		if err := c.SetRequestHeader("X-Token", "t1"); err != nil {
			t.Fatalf("SetRequestHeader: %v", err)
		}
	})
	if got.sendErr != nil {
		t.Fatalf("Send: %v", got.sendErr)
	}
	if hits != 0 {
		t.Fatal("claimed request reached the network")
	}
	if !got.mocked || got.status != http.StatusOK || got.text != "synthetic" {
		t.Fatalf("unexpected result %+v", got)
	}
	if got.url != "http://editor.local/upload/abc" {
		t.Fatalf("response url = %q", got.url)
	}
	if !slices.Equal(got.events, successEvents) {
		t.Fatalf("events = %v", got.events)
	}
	if seen.Header.Get("X-Token") != "t1" || string(seen.Body) != "payload" || seen.Method != http.MethodPost {
		t.Fatalf("middleware saw incomplete request: %+v", seen)
	}
}

func TestFallthroughIsIndistinguishable(t *testing.T) {
	declining := intercept.NewRegistry(nil)
	declining.Use(func(context.Context, *intercept.Request) (*intercept.Response, error) { return nil, nil })
	declining.Use(func(context.Context, *intercept.Request) (*intercept.Response, error) { return nil, nil })

	failing := intercept.NewRegistry(nil)
	failing.Use(func(context.Context, *intercept.Request) (*intercept.Response, error) {
		return nil, errors.New("middleware bug")
	})

	panicking := intercept.NewRegistry(nil)
	panicking.Use(func(context.Context, *intercept.Request) (*intercept.Response, error) { panic("boom") })

	baseHits := 0
	baseline := run(t, intercept.NewRegistry(nil), fakeNetwork(&baseHits), nil)
	if baseline.sendErr != nil || baseline.text != "POST /upload/abc payload" || baseline.status != http.StatusCreated {
		t.Fatalf("baseline = %+v", baseline)
	}

	for name, registry := range map[string]*intercept.Registry{
		"declining": declining,
		"failing":   failing,
		"panicking": panicking,
	} {
		t.Run(name, func(t *testing.T) {
			hits := 0
			got := run(t, registry, fakeNetwork(&hits), nil)
			if hits != 1 {
				t.Fatalf("network hits = %d, want 1", hits)
			}
			if got.mocked {
				t.Fatal("request reported as mocked")
			}
			if got.status != baseline.status || got.text != baseline.text || got.url != baseline.url || got.sendErr != nil {
				t.Fatalf("got %+v, want %+v", got, baseline)
			}
			if !slices.Equal(got.events, baseline.events) {
				t.Fatalf("events = %v, want %v", got.events, baseline.events)
			}
		})
	}
}

func TestBlobStoreLeavesForeignBlobPathsToNetwork(t *testing.T) {
	store := blobstore.New(blobstore.DefaultBase, blobstore.WithHosts("editor.local"))
	live := store.Put([]byte("asset"), "text/plain")
	registry := intercept.NewRegistry(nil)
	registry.Use(store.Middleware())

	for _, raw := range []string{
		"https://github.test/owner/repo/blob/main/sample.docx",
		"https://github.test" + live,
		"http://editor.local/blob/unknown-id",
	} {
		hits := 0
		call := intercept.NewCall(registry, intercept.WithBase(fakeNetwork(&hits)))
		call.Open(http.MethodGet, raw)
		if err := call.Send(context.Background(), nil); err != nil {
			t.Fatalf("%s: Send: %v", raw, err)
		}
		if hits != 1 || call.Mocked() || call.Status() != http.StatusCreated {
			t.Fatalf("%s: hits=%d mocked=%v status=%d", raw, hits, call.Mocked(), call.Status())
		}
	}
}

func TestFirstClaimWinsAndMiddlewareGetsCopies(t *testing.T) {
	registry := intercept.NewRegistry(nil)
	registry.Use(func(_ context.Context, req *intercept.Request) (*intercept.Response, error) {
		req.Body[0] = 'X'
		req.Header.Set("X-Mutated", "1")
		return nil, nil
	})
	registry.Use(func(_ context.Context, req *intercept.Request) (*intercept.Response, error) {
		if string(req.Body) != "payload" || req.Header.Get("X-Mutated") != "" {
			return nil, errors.New("saw mutated request")
		}
		return intercept.NewResponse(http.StatusOK, []byte("second"), ""), nil
	})
	registry.Use(func(context.Context, *intercept.Request) (*intercept.Response, error) {
		return intercept.NewResponse(http.StatusOK, []byte("third"), ""), nil
	})

	hits := 0
	got := run(t, registry, fakeNetwork(&hits), nil)
	if got.text != "second" {
		t.Fatalf("response = %q, want second", got.text)
	}
}

func TestResponseDecoding(t *testing.T) {
	tests := []struct {
		name     string
		typ      intercept.ResponseType
		body     string
		ctype    string
		check    func(t *testing.T, value any)
		wantText string
	}{
		{
			name: "json",
			typ:  intercept.ResponseJSON,
			body: `{"status": "ok", "n": 2}`,
			check: func(t *testing.T, value any) {
				m, ok := value.(map[string]any)
				if !ok || m["status"] != "ok" || m["n"] != float64(2) {
					t.Fatalf("json value = %#v", value)
				}
			},
			wantText: `{"n":2,"status":"ok"}`,
		},
		{
			name: "arraybuffer",
			typ:  intercept.ResponseArrayBuffer,
			body: "\x00\x01bin",
			check: func(t *testing.T, value any) {
				if b, ok := value.([]byte); !ok || string(b) != "\x00\x01bin" {
					t.Fatalf("arraybuffer value = %#v", value)
				}
			},
			wantText: "\x00\x01bin",
		},
		{
			name:  "blob",
			typ:   intercept.ResponseBlob,
			body:  "png",
			ctype: "image/png",
			check: func(t *testing.T, value any) {
				if b, ok := value.(intercept.Blob); !ok || b.Type != "image/png" || string(b.Data) != "png" {
					t.Fatalf("blob value = %#v", value)
				}
			},
			wantText: "png",
		},
		{
			name: "document",
			typ:  intercept.ResponseDocument,
			body: `<?xml version="1.0"?><root a="1"><item>one</item><item>two</item></root>`,
			check: func(t *testing.T, value any) {
				node, ok := value.(*intercept.Node)
				if !ok || node.XMLName.Local != "root" || len(node.Children) != 2 {
					t.Fatalf("document value = %#v", value)
				}
				if item := node.Find("item"); item == nil || item.Text != "one" {
					t.Fatalf("Find(item) = %#v", item)
				}
			},
			wantText: `<?xml version="1.0"?><root a="1"><item>one</item><item>two</item></root>`,
		},
		{
			name: "text",
			typ:  intercept.ResponseText,
			body: "plain",
			check: func(t *testing.T, value any) {
				if value != "plain" {
					t.Fatalf("text value = %#v", value)
				}
			},
			wantText: "plain",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := intercept.NewRegistry(nil)
			registry.Use(func(context.Context, *intercept.Request) (*intercept.Response, error) {
				return intercept.NewResponse(http.StatusOK, []byte(tt.body), tt.ctype), nil
			})
			call := intercept.NewCall(registry)
			call.Open(http.MethodGet, "http://editor.local/x")
			call.SetResponseType(tt.typ)
			if err := call.Send(context.Background(), nil); err != nil {
				t.Fatalf("Send: %v", err)
			}
			tt.check(t, call.Response())
			if call.ResponseText() != tt.wantText {
				t.Fatalf("ResponseText = %q, want %q", call.ResponseText(), tt.wantText)
			}
			if call.ReadyState() != intercept.Done {
				t.Fatalf("ready state = %s", call.ReadyState())
			}
		})
	}
}

func TestDecodeFailureEndsWithError(t *testing.T) {
	registry := intercept.NewRegistry(nil)
	registry.Use(func(context.Context, *intercept.Request) (*intercept.Response, error) {
		return intercept.NewResponse(http.StatusOK, []byte("{not json"), "application/json"), nil
	})
	hits := 0
	got := run(t, registry, fakeNetwork(&hits), func(c *intercept.Call) {
		c.SetResponseType(intercept.ResponseJSON)
	})
	if got.sendErr == nil {
		t.Fatal("expected decode error")
	}
	want := []string{
		"readystatechange(1)",
		"loadstart",
		"readystatechange(2)",
		"readystatechange(3)",
		"readystatechange(4)",
		"error",
		"loadend",
	}
	if !slices.Equal(got.events, want) {
		t.Fatalf("events = %v, want %v", got.events, want)
	}
}

func TestSendRequiresOpen(t *testing.T) {
	call := intercept.NewCall(intercept.NewRegistry(nil))
	if err := call.SetRequestHeader("A", "b"); !errors.Is(err, intercept.ErrNotOpened) {
		t.Fatalf("SetRequestHeader error = %v", err)
	}
	if err := call.Send(context.Background(), nil); !errors.Is(err, intercept.ErrNotOpened) {
		t.Fatalf("Send error = %v", err)
	}
}

func TestNetworkErrorEndsWithError(t *testing.T) {
	base := roundTripFunc(func(*http.Request) (*http.Response, error) { return nil, errors.New("offline") })
	call := intercept.NewCall(intercept.NewRegistry(nil), intercept.WithBase(base))
	var events []string
	call.AddEventListener(intercept.EventError, func(intercept.Event) { events = append(events, "error") })
	call.AddEventListener(intercept.EventLoadEnd, func(intercept.Event) { events = append(events, "loadend") })
	call.Open(http.MethodGet, "http://example.invalid/")
	if err := call.Send(context.Background(), nil); err == nil {
		t.Fatal("expected network error")
	}
	if !slices.Equal(events, []string{"error", "loadend"}) {
		t.Fatalf("events = %v", events)
	}
}

package intercept

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"

	"docshell/internal/logging"
)

// ErrNotOpened is returned by Call methods used before Open.
var ErrNotOpened = errors.New("call not opened")

// CallOption configures a Call.
type CallOption func(*Call)

// WithBase sets the round tripper used for requests no middleware claims.
func WithBase(rt http.RoundTripper) CallOption {
	return func(c *Call) {
		if rt != nil {
			c.base = rt
		}
	}
}

// WithCallLogger sets the call logger.
func WithCallLogger(logger *slog.Logger) CallOption {
	return func(c *Call) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Call is a single browser-style request: Open, SetRequestHeader any number
// of times, then Send. The request is only assembled at Send, once the body
// is known.
type Call struct {
	registry *Registry
	base     http.RoundTripper
	logger   *slog.Logger

	mu              sync.Mutex
	opened          bool
	method          string
	url             string
	header          http.Header
	responseType    ResponseType
	withCredentials bool
	listeners       map[string][]func(Event)

	lifecycle    *Lifecycle
	mocked       bool
	status       int
	statusText   string
	response     any
	responseText string
	responseURL  string
}

// NewCall returns an unopened call bound to registry.
func NewCall(registry *Registry, opts ...CallOption) *Call {
	c := &Call{
		registry:  registry,
		base:      http.DefaultTransport,
		logger:    logging.NewNop(),
		header:    http.Header{},
		listeners: make(map[string][]func(Event)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.lifecycle = NewLifecycle(c.dispatch)
	return c
}

// AddEventListener subscribes to lifecycle events such as "load".
func (c *Call) AddEventListener(event string, fn func(Event)) {
	c.mu.Lock()
	c.listeners[event] = append(c.listeners[event], fn)
	c.mu.Unlock()
}

// Open starts a new request, discarding headers and results from any
// previous use of the call.
func (c *Call) Open(method, rawURL string) {
	c.mu.Lock()
	c.opened = true
	c.method = method
	c.url = rawURL
	c.header = http.Header{}
	c.mocked = false
	c.status, c.statusText = 0, ""
	c.response, c.responseText, c.responseURL = nil, "", ""
	c.mu.Unlock()
	c.lifecycle.Open()
}

// SetRequestHeader appends a request header value.
func (c *Call) SetRequestHeader(name, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.opened {
		return ErrNotOpened
	}
	c.header.Add(name, value)
	return nil
}

// SetResponseType selects body decoding. It must be set before Send.
func (c *Call) SetResponseType(t ResponseType) {
	c.mu.Lock()
	c.responseType = t
	c.mu.Unlock()
}

// SetWithCredentials marks the request as credentialed.
func (c *Call) SetWithCredentials(v bool) {
	c.mu.Lock()
	c.withCredentials = v
	c.mu.Unlock()
}

// Send assembles the request and offers it to the middleware. A claimed
// request is answered synthetically; otherwise it is sent through the base
// round tripper. Both paths drive the same lifecycle. A transport or decode
// failure ends the lifecycle with an error event and is also returned.
func (c *Call) Send(ctx context.Context, body []byte) error {
	c.mu.Lock()
	if !c.opened {
		c.mu.Unlock()
		return ErrNotOpened
	}
	method, rawURL, header := c.method, c.url, c.header.Clone()
	withCredentials := c.withCredentials
	c.opened = false
	c.mu.Unlock()

	req, err := NewRequest(method, rawURL, body)
	if err == nil {
		req.Header = header
		req.WithCredentials = withCredentials
		if resp := c.registry.Dispatch(ctx, req); resp != nil {
			c.mu.Lock()
			c.mocked = true
			c.mu.Unlock()
			return c.deliver(resp)
		}
	} else {
		c.logger.Debug("request not representable, skipping middleware", logging.Error(err))
	}
	return c.sendNative(ctx, method, rawURL, header, body)
}

func (c *Call) sendNative(ctx context.Context, method, rawURL string, header http.Header, body []byte) error {
	if err := c.lifecycle.LoadStart(); err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(body))
	if err != nil {
		_ = c.lifecycle.Fail()
		return fmt.Errorf("build request: %w", err)
	}
	if body == nil {
		httpReq.Body = http.NoBody
	}
	httpReq.Header = header
	httpResp, err := c.base.RoundTrip(httpReq)
	if err != nil {
		_ = c.lifecycle.Fail()
		return fmt.Errorf("send request: %w", err)
	}
	resp, err := responseFromHTTP(httpResp)
	if err != nil {
		_ = c.lifecycle.Fail()
		return err
	}
	return c.progress(resp)
}

// deliver replays the lifecycle of an asynchronous request for a synthetic
// response.
func (c *Call) deliver(resp *Response) error {
	if err := c.lifecycle.LoadStart(); err != nil {
		return err
	}
	return c.progress(resp)
}

func (c *Call) progress(resp *Response) error {
	if err := c.lifecycle.HeadersReceived(); err != nil {
		return err
	}
	if err := c.lifecycle.Loading(); err != nil {
		return err
	}

	c.mu.Lock()
	responseType := c.responseType
	c.mu.Unlock()
	value, err := decode(responseType, resp)
	if err != nil {
		c.logger.Warn("response decode failed", logging.String("url", resp.URL), logging.Error(err))
		_ = c.lifecycle.Fail()
		return err
	}

	c.mu.Lock()
	c.status = resp.Status
	c.statusText = resp.StatusText
	c.response = value
	c.responseText = responseText(value, resp.Body)
	c.responseURL = resp.URL
	c.mu.Unlock()

	if err := c.lifecycle.Progress(100, 100); err != nil {
		return err
	}
	return c.lifecycle.Complete()
}

// responseText matches what a browser exposes: the text itself for string
// results and a JSON rendering for decoded JSON values. Binary and document
// results expose the raw body text.
func responseText(value any, body []byte) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte, Blob, *Node:
		return string(body)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return string(body)
		}
		return string(data)
	}
}

func (c *Call) dispatch(ev Event) {
	c.mu.Lock()
	fns := slices.Clone(c.listeners[ev.Type])
	c.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// ReadyState returns the lifecycle state.
func (c *Call) ReadyState() ReadyState { return c.lifecycle.State() }

// Mocked reports whether middleware answered the last Send.
func (c *Call) Mocked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mocked
}

// Status returns the response status code.
func (c *Call) Status() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// StatusText returns the response status text.
func (c *Call) StatusText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusText
}

// Response returns the decoded response body.
func (c *Call) Response() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.response
}

// ResponseText returns the response body as text.
func (c *Call) ResponseText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.responseText
}

// ResponseURL returns the final response URL.
func (c *Call) ResponseURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.responseURL
}

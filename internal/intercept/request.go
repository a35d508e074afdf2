package intercept

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Request is the canonical form of an outgoing request handed to
// middleware.
type Request struct {
	Method          string
	URL             *url.URL
	Header          http.Header
	Body            []byte
	WithCredentials bool
}

// NewRequest builds a Request, defaulting the method to GET.
func NewRequest(method, rawURL string, body []byte) (*Request, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("parse request url: %w", err)
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}
	return &Request{Method: method, URL: u, Header: http.Header{}, Body: body}, nil
}

// FromHTTP converts an inbound or outbound http.Request. The body is read
// fully and restored on req so it can still be sent.
func FromHTTP(req *http.Request) (*Request, error) {
	var body []byte
	if req.Body != nil && req.Body != http.NoBody {
		data, err := io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		body = data
		req.Body = io.NopCloser(bytes.NewReader(data))
	}
	u := *req.URL
	return &Request{
		Method: req.Method,
		URL:    &u,
		Header: req.Header.Clone(),
		Body:   body,
	}, nil
}

// Clone returns a deep copy so middleware cannot affect one another.
func (r *Request) Clone() *Request {
	out := *r
	if r.URL != nil {
		u := *r.URL
		out.URL = &u
	}
	out.Header = r.Header.Clone()
	if out.Header == nil {
		out.Header = http.Header{}
	}
	if r.Body != nil {
		out.Body = bytes.Clone(r.Body)
	}
	return &out
}

// Path returns the URL path, or "" when no URL is set.
func (r *Request) Path() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.Path
}

// Query returns the first value of a query parameter.
func (r *Request) Query(key string) string {
	if r.URL == nil {
		return ""
	}
	return r.URL.Query().Get(key)
}

// String is the URL in string form.
func (r *Request) String() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.String()
}

// Response is a synthetic or captured HTTP response.
type Response struct {
	Status     int
	StatusText string
	Header     http.Header
	Body       []byte
	URL        string
}

// NewResponse builds a response with the given content type.
func NewResponse(status int, body []byte, contentType string) *Response {
	header := http.Header{}
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	return &Response{
		Status:     status,
		StatusText: http.StatusText(status),
		Header:     header,
		Body:       body,
	}
}

// JSON builds a response carrying v encoded as JSON.
func JSON(status int, v any) (*Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return NewResponse(status, body, "application/json"), nil
}

// Write copies the response onto w.
func (r *Response) Write(w http.ResponseWriter) error {
	for key, values := range r.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(r.Body)))
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, err := w.Write(r.Body)
	return err
}

// HTTP converts the response into an *http.Response answering req.
func (r *Response) HTTP(req *http.Request) *http.Response {
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	text := r.StatusText
	if text == "" {
		text = http.StatusText(status)
	}
	header := r.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, text),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(r.Body)),
		ContentLength: int64(len(r.Body)),
		Request:       req,
	}
}

func responseFromHTTP(resp *http.Response) (*Response, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	out := &Response{
		Status:     resp.StatusCode,
		StatusText: strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))),
		Header:     resp.Header.Clone(),
		Body:       body,
	}
	if resp.Request != nil && resp.Request.URL != nil {
		out.URL = resp.Request.URL.String()
	}
	return out, nil
}

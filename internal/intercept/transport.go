package intercept

import (
	"bytes"
	"io"
	"net/http"
)

// Transport is an http.RoundTripper that consults a Registry before sending.
type Transport struct {
	Registry *Registry
	// Base handles requests no middleware claims. Nil means
	// http.DefaultTransport.
	Base http.RoundTripper
}

// RoundTrip implements http.RoundTripper. The caller's request is never
// modified; its body is consumed and closed.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	out := req.Clone(req.Context())
	canonical, err := FromHTTP(out)
	if err != nil {
		return nil, err
	}
	if resp := t.Registry.Dispatch(req.Context(), canonical); resp != nil {
		return resp.HTTP(req), nil
	}
	if canonical.Body != nil {
		out.ContentLength = int64(len(canonical.Body))
		out.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(canonical.Body)), nil
		}
	}
	return base.RoundTrip(out)
}

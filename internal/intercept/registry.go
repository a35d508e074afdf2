package intercept

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"docshell/internal/logging"
)

// Middleware answers a request or declines it by returning a nil response.
// A returned error is logged and the request falls through.
type Middleware func(ctx context.Context, req *Request) (*Response, error)

// Registry is an ordered middleware list.
type Registry struct {
	logger *slog.Logger

	mu         sync.RWMutex
	middleware []Middleware
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logging.NewComponentLogger(logger, "intercept")}
}

// Use appends middleware.
func (r *Registry) Use(mw Middleware) {
	if mw == nil {
		return
	}
	r.mu.Lock()
	r.middleware = append(r.middleware, mw)
	r.mu.Unlock()
}

// Clear removes all middleware.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.middleware = nil
	r.mu.Unlock()
}

// Len reports how many middleware are registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.middleware)
}

// Dispatch runs middleware in registration order, each on its own copy of
// req, and returns the first response. It returns nil when nothing claims
// the request or when a middleware fails.
func (r *Registry) Dispatch(ctx context.Context, req *Request) *Response {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	chain := append([]Middleware(nil), r.middleware...)
	r.mu.RUnlock()

	for _, mw := range chain {
		resp, err := r.invoke(ctx, mw, req.Clone())
		if err != nil {
			r.logger.Warn("middleware failed, falling through",
				logging.String("method", req.Method),
				logging.String("url", req.String()),
				logging.Error(err),
			)
			return nil
		}
		if resp != nil {
			if resp.URL == "" {
				resp.URL = req.String()
			}
			return resp
		}
	}
	return nil
}

func (r *Registry) invoke(ctx context.Context, mw Middleware, req *Request) (resp *Response, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			resp, err = nil, fmt.Errorf("middleware panic: %v", rec)
		}
	}()
	return mw(ctx, req)
}

package blobstore

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"

	"docshell/internal/intercept"
)

// DefaultBase is the URL prefix used when none is configured.
const DefaultBase = "/blob/"

// ErrNotFound reports an unknown or revoked blob URL.
var ErrNotFound = errors.New("blob not found")

type blob struct {
	data        []byte
	contentType string
}

// Store holds blobs keyed by id.
type Store struct {
	base  string
	hosts map[string]bool

	mu    sync.RWMutex
	blobs map[string]blob
}

// Option configures a Store.
type Option func(*Store)

// WithHosts names the hosts whose URLs the middleware may answer, as
// "host" or "host:port". Relative URLs are always the store's own.
func WithHosts(hosts ...string) Option {
	return func(s *Store) {
		for _, h := range hosts {
			if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
				s.hosts[h] = true
			}
		}
	}
}

// New returns a store minting URLs under base.
func New(base string, opts ...Option) *Store {
	base = strings.TrimSpace(base)
	if base == "" {
		base = DefaultBase
	}
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	s := &Store{base: base, hosts: make(map[string]bool), blobs: make(map[string]blob)}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Base returns the URL prefix.
func (s *Store) Base() string { return s.base }

// Put stores a copy of data and returns its URL.
func (s *Store) Put(data []byte, contentType string) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.blobs[id] = blob{data: bytes.Clone(data), contentType: contentType}
	s.mu.Unlock()
	return s.base + id
}

// Resolve returns the bytes behind rawURL.
func (s *Store) Resolve(rawURL string) ([]byte, error) {
	b, ok := s.lookup(s.idOf(rawURL))
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(b.data), nil
}

// Revoke releases rawURL. Revoking an unknown URL is a no-op.
func (s *Store) Revoke(rawURL string) {
	id := s.idOf(rawURL)
	if id == "" {
		return
	}
	s.mu.Lock()
	delete(s.blobs, id)
	s.mu.Unlock()
}

// Len reports how many blobs are live.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

// Middleware answers GET requests for live blob URLs on the store's own
// hosts. Unknown or revoked ids and foreign hosts are declined.
func (s *Store) Middleware() intercept.Middleware {
	return func(_ context.Context, req *intercept.Request) (*intercept.Response, error) {
		if req.Method != http.MethodGet || req.URL == nil || !s.ownsHost(req.URL) {
			return nil, nil
		}
		b, ok := s.lookup(s.idOfPath(req.URL.Path))
		if !ok {
			return nil, nil
		}
		return intercept.NewResponse(http.StatusOK, bytes.Clone(b.data), contentTypeOr(b.contentType)), nil
	}
}

// ServeBlob writes the blob with the given id.
func (s *Store) ServeBlob(w http.ResponseWriter, id string) {
	b, ok := s.lookup(id)
	if !ok {
		http.Error(w, ErrNotFound.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", contentTypeOr(b.contentType))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(b.data)
}

func (s *Store) lookup(id string) (blob, bool) {
	if id == "" {
		return blob{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[id]
	return b, ok
}

// idOf extracts the id from a URL or path minted by this store. Absolute
// URLs are accepted when their path starts with the base.
func (s *Store) idOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return s.idOfPath(u.Path)
}

func (s *Store) idOfPath(p string) string {
	id, ok := strings.CutPrefix(p, s.base)
	if !ok || id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}

func (s *Store) ownsHost(u *url.URL) bool {
	if u.Host == "" {
		return true
	}
	host := strings.ToLower(u.Host)
	return s.hosts[host] || s.hosts[strings.ToLower(u.Hostname())]
}

func contentTypeOr(ct string) string {
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}

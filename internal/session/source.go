package session

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// Source yields the raw bytes of a document to open.
type Source interface {
	Name() string
	Bytes(ctx context.Context) ([]byte, error)
}

// BytesSource is an in-memory document.
type BytesSource struct {
	FileName string
	Data     []byte
}

func (s BytesSource) Name() string { return s.FileName }

func (s BytesSource) Bytes(context.Context) ([]byte, error) { return s.Data, nil }

// FileSource reads a document from disk.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return filepath.Base(s.Path) }

func (s FileSource) Bytes(context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, Wrap(ErrSource, "session", "read file", s.Path, err)
	}
	return data, nil
}

// Fetcher retrieves a document by URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher fetches with an http.Client. A nil Client uses
// http.DefaultClient.
type HTTPFetcher struct {
	Client *http.Client
}

func (f HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, Wrap(ErrSource, "session", "fetch", url, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, Wrap(ErrSource, "session", "fetch", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, Wrap(ErrSource, "session", "fetch", fmt.Sprintf("%s: status %d", url, resp.StatusCode), nil)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Wrap(ErrSource, "session", "fetch", url, err)
	}
	return data, nil
}

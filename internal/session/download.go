package session

import (
	"context"
	"errors"
	"path/filepath"

	"docshell/internal/fileutil"
	"docshell/internal/textutil"
)

// Downloader delivers an exported document to the user.
type Downloader interface {
	Download(ctx context.Context, name string, data []byte) (string, error)
}

// DirDownloader saves exports into a directory, never overwriting an
// existing file.
type DirDownloader struct {
	Dir string
}

func (d DirDownloader) Download(_ context.Context, name string, data []byte) (string, error) {
	if d.Dir == "" {
		return "", errors.New("download directory not configured")
	}
	clean := textutil.SanitizeFileName(name)
	if clean == "" {
		clean = "document"
	}
	path := fileutil.UniquePath(filepath.Join(d.Dir, clean))
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

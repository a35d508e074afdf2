package session

import (
	"bytes"
	"mime"
	"path"
	"strconv"
	"strings"
	"sync"

	"docshell/internal/blobstore"
	"docshell/internal/protocol"
)

type asset struct {
	data []byte
	url  string
}

// assetMap pairs each derived asset with a live blob URL. A URL is revoked
// before its entry is replaced or removed.
type assetMap struct {
	blobs *blobstore.Store

	mu      sync.Mutex
	entries map[string]asset
}

func newAssetMap(blobs *blobstore.Store) *assetMap {
	return &assetMap{blobs: blobs, entries: make(map[string]asset)}
}

// add stores data under stem+ext, or stem-N+ext when that name is taken,
// and returns the chosen name and its URL. Existing entries are never
// replaced.
func (m *assetMap) add(stem, ext string, data []byte, contentType string) (string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := stem + ext
	for n := 1; ; n++ {
		if _, taken := m.entries[name]; !taken {
			break
		}
		name = stem + "-" + strconv.Itoa(n) + ext
	}
	return name, m.setLocked(name, data, contentType)
}

func (m *assetMap) setLocked(name string, data []byte, contentType string) string {
	if old, ok := m.entries[name]; ok {
		m.blobs.Revoke(old.url)
	}
	data = bytes.Clone(data)
	url := m.blobs.Put(data, contentType)
	m.entries[name] = asset{data: data, url: url}
	return url
}

// replace swaps the whole map for a freshly converted document.
func (m *assetMap) replace(primary []byte, media map[string][]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearLocked()
	m.setLocked(protocol.PrimaryAsset, primary, "")
	for name, data := range media {
		m.setLocked(protocol.MediaPrefix+name, data, contentTypeFor(name))
	}
}

// reset revokes every URL and empties the map.
func (m *assetMap) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearLocked()
}

func (m *assetMap) clearLocked() {
	for name, a := range m.entries {
		m.blobs.Revoke(a.url)
		delete(m.entries, name)
	}
}

// urls returns name → URL for every asset.
func (m *assetMap) urls() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.entries))
	for name, a := range m.entries {
		out[name] = a.url
	}
	return out
}

func (m *assetMap) get(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.entries[name]
	if !ok {
		return nil, false
	}
	return bytes.Clone(a.data), true
}

// media returns the media assets keyed by bare file name, the form the
// converter expects in its media folder.
func (m *assetMap) media() map[string][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]byte)
	for name, a := range m.entries {
		if bare, ok := strings.CutPrefix(name, protocol.MediaPrefix); ok {
			out[bare] = a.data
		}
	}
	return out
}

func contentTypeFor(name string) string {
	return mime.TypeByExtension(path.Ext(name))
}

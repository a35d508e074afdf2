package session

import (
	"bytes"
	"sync"

	"github.com/google/uuid"
)

// accumulator collects the chunks of a multi-part download-as request.
type accumulator struct {
	mu    sync.Mutex
	id    string
	parts [][]byte
}

// start discards anything collected so far and begins a new sequence with
// chunk.
func (a *accumulator) start(chunk []byte) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.id = "_" + uuid.NewString()[:8]
	a.parts = [][]byte{bytes.Clone(chunk)}
	return a.id
}

func (a *accumulator) add(chunk []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.parts = append(a.parts, bytes.Clone(chunk))
}

// finish returns the concatenated chunks in arrival order and clears them.
// The sequence id survives so it can be reported back.
func (a *accumulator) finish() (string, []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	data := bytes.Join(a.parts, nil)
	a.parts = nil
	return a.id, data
}

func (a *accumulator) current() (string, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.id, len(a.parts)
}

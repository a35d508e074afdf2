package socket

import "sync"

type entry[F any] struct {
	id   uint64
	fn   F
	once bool
}

// registry is an event name to listener list map. Listeners run outside the
// lock, so they may register or remove listeners themselves.
type registry[F any] struct {
	mu        sync.Mutex
	next      uint64
	listeners map[string][]entry[F]
}

func (r *registry[F]) add(event string, fn F, once bool) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listeners == nil {
		r.listeners = make(map[string][]entry[F])
	}
	r.next++
	id := r.next
	r.listeners[event] = append(r.listeners[event], entry[F]{id: id, fn: fn, once: once})
	return func() { r.remove(event, id) }
}

func (r *registry[F]) remove(event string, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.listeners[event]
	for i, e := range list {
		if e.id == id {
			r.listeners[event] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(r.listeners[event]) == 0 {
		delete(r.listeners, event)
	}
}

// clear drops the listeners for event, or every listener when event is empty.
func (r *registry[F]) clear(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if event == "" {
		r.listeners = nil
		return
	}
	delete(r.listeners, event)
}

// take returns the current listeners for event and drops the once entries.
func (r *registry[F]) take(event string) []F {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.listeners[event]
	if len(list) == 0 {
		return nil
	}
	fns := make([]F, 0, len(list))
	kept := list[:0:0]
	for _, e := range list {
		fns = append(fns, e.fn)
		if !e.once {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		delete(r.listeners, event)
	} else {
		r.listeners[event] = kept
	}
	return fns
}

func (r *registry[F]) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners[event])
}

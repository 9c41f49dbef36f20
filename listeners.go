package mq

import (
	"sync"

	"github.com/google/uuid"
)

// ListenerHandle identifies a registered listener so it can be removed.
type ListenerHandle = string

type listenerEntry struct {
	handle  ListenerHandle
	filter  string
	handler MessageHandler
}

// listenerRegistry maps topic filters to callbacks. It is owned by the
// Client, not the session, so it survives reconnects unchanged.
type listenerRegistry struct {
	mu      sync.Mutex
	entries []*listenerEntry
}

func newListenerRegistry() *listenerRegistry {
	return &listenerRegistry{}
}

func (r *listenerRegistry) add(filter string, handler MessageHandler) ListenerHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	handle := uuid.NewString()
	r.entries = append(r.entries, &listenerEntry{handle: handle, filter: filter, handler: handler})
	return handle
}

func (r *listenerRegistry) remove(handle ListenerHandle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.handle == handle {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

// dispatch invokes every listener whose filter matches msg.Topic. It runs
// on the session loop, synchronously with packet arrival: a handler that
// blocks delays every subsequent packet, so callers needing real work
// should hand off to their own goroutine. It never performs the protocol
// acknowledgement itself — the caller (session engine) emits PUBACK/PUBREC
// independently so a misbehaving handler can never withhold an ack.
func (r *listenerRegistry) dispatch(msg Message) {
	r.mu.Lock()
	matching := make([]*listenerEntry, 0, len(r.entries))
	for _, e := range r.entries {
		if matchTopic(e.filter, msg.Topic) {
			matching = append(matching, e)
		}
	}
	r.mu.Unlock()

	for _, e := range matching {
		e.handler(msg)
	}
}

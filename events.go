package mq

import "sync"

// Event names for the lifecycle event bus.
const (
	EventConnect    = "connect"
	EventDisconnect = "disconnect"
	EventMessage    = "message"
	EventError      = "error"
)

// EventHandler receives an event's payload: nil for connect, the session's
// termination reason (an error) for disconnect, a Message for "message", an
// error for "error", and the decoded packet
// itself for per-packet-type events keyed by a packets.PacketNames entry
// (e.g. "CONNACK", "PUBLISH") — one such event is emitted for every inbound
// packet the session decodes.
type EventHandler func(payload any)

// eventBus is a synchronous observer registry keyed by event name: it fans
// a named event out to every subscriber in registration order. Emission
// happens inline with the state transition that caused it, so no event can
// survive a terminal disconnect or arrive out of order.
type eventBus struct {
	mu       sync.Mutex
	handlers map[string][]EventHandler
}

func newEventBus() *eventBus {
	return &eventBus{handlers: make(map[string][]EventHandler)}
}

func (b *eventBus) on(event string, h EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], h)
}

func (b *eventBus) emit(event string, payload any) {
	b.mu.Lock()
	handlers := append([]EventHandler(nil), b.handlers[event]...)
	b.mu.Unlock()

	for _, h := range handlers {
		h(payload)
	}
}

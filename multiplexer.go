package mq

import (
	"sync"

	"github.com/google/uuid"
)

const identifierSpace = 1 << 16 // ids are a uint16; 0 is reserved

// identifierPool allocates packet identifiers from [1, 65535] using
// lowest-free-first, backed by a bitmap over [1, 65535] with a cursor
// tracking the lowest bit that might still be free. Deterministic, so
// allocation order is a testable property.
type identifierPool struct {
	words  [identifierSpace / 64]uint64
	cursor int // lowest bit index that might be free; advanced lazily
}

func newIdentifierPool() *identifierPool {
	p := &identifierPool{cursor: 1}
	p.words[0] |= 1 // bit 0 (identifier 0) is permanently reserved
	return p
}

func (p *identifierPool) allocate() (uint16, error) {
	for i := p.cursor; i < identifierSpace; i++ {
		word, bit := i/64, uint(i%64)
		if p.words[word]&(1<<bit) == 0 {
			p.words[word] |= 1 << bit
			p.cursor = i + 1
			return uint16(i), nil
		}
	}
	return 0, ErrNoFreeIdentifier
}

func (p *identifierPool) release(id uint16) {
	i := int(id)
	word, bit := i/64, uint(i%64)
	p.words[word] &^= 1 << bit
	if i < p.cursor {
		p.cursor = i
	}
}

func (p *identifierPool) reset() {
	*p = *newIdentifierPool()
}

// registeredFlow pairs a flow with its bookkeeping in the multiplexer.
type registeredFlow struct {
	id          flowID
	f           flow
	packetID    uint16
	hasPacketID bool
}

// multiplexer is the flow multiplexer (C4): it owns packet-identifier
// allocation and routes inbound packets to the first flow (in insertion
// order) whose accept() matches. It runs exclusively on the session loop
// goroutine, so it needs no internal locking of its own; the mutex here
// only protects the rarely-contended external read in activeFlowCount used
// by tests and diagnostics.
type multiplexer struct {
	mu    sync.Mutex
	ids   *identifierPool
	flows []*registeredFlow
	byID  map[flowID]*registeredFlow
}

func newMultiplexer() *multiplexer {
	return &multiplexer{
		ids:  newIdentifierPool(),
		byID: make(map[flowID]*registeredFlow),
	}
}

// register allocates a packet identifier if the flow needs one, calls
// start(), and — if start succeeds — adds the flow to the ordered registry.
// It returns the flow's id and the initial packet to send, if any.
func (m *multiplexer) register(f flow) (flowID, packet, error) {
	rf := &registeredFlow{id: uuid.NewString(), f: f}

	if f.WantsIdentifier() {
		id, err := m.ids.allocate()
		if err != nil {
			return "", nil, err
		}
		rf.packetID = id
		rf.hasPacketID = true
		f.SetIdentifier(id)
	}

	send, err := f.Start()
	if err != nil {
		if rf.hasPacketID {
			m.ids.release(rf.packetID)
		}
		return "", nil, err
	}

	m.mu.Lock()
	m.flows = append(m.flows, rf)
	m.byID[rf.id] = rf
	m.mu.Unlock()

	return rf.id, send, nil
}

// dispatch offers pkt to each active flow in insertion order and stops at
// the first match. It returns matched=false when no flow claims the
// packet, in which case the caller routes it to listeners or session
// events instead.
func (m *multiplexer) dispatch(pkt packet) (matched bool, send packet, done bool) {
	m.mu.Lock()
	flows := append([]*registeredFlow(nil), m.flows...)
	m.mu.Unlock()

	for _, rf := range flows {
		if rf.f.Accept(pkt) {
			send, done = rf.f.Next(pkt)
			if done {
				m.remove(rf.id)
			}
			return true, send, done
		}
	}
	return false, nil, false
}

// stop removes the flow identified by id, releasing its packet identifier
// and failing it with ErrFlowStopped. It reports whether the flow existed.
func (m *multiplexer) stop(id flowID) bool {
	rf := m.remove(id)
	if rf == nil {
		return false
	}
	rf.f.Fail(ErrFlowStopped)
	return true
}

// abortAll fails every active flow with err and clears the registry; used
// on session teardown.
func (m *multiplexer) abortAll(err error) {
	m.mu.Lock()
	flows := m.flows
	m.flows = nil
	m.byID = make(map[flowID]*registeredFlow)
	m.ids.reset()
	m.mu.Unlock()

	for _, rf := range flows {
		rf.f.Fail(err)
	}
}

func (m *multiplexer) remove(id flowID) *registeredFlow {
	m.mu.Lock()
	defer m.mu.Unlock()

	rf, ok := m.byID[id]
	if !ok {
		return nil
	}
	delete(m.byID, id)
	for i, candidate := range m.flows {
		if candidate.id == id {
			m.flows = append(m.flows[:i], m.flows[i+1:]...)
			break
		}
	}
	if rf.hasPacketID {
		m.ids.release(rf.packetID)
	}
	return rf
}

func (m *multiplexer) activeFlowCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.flows)
}

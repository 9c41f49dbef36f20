package mq

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeFlow is a minimal Flow used to drive the multiplexer in isolation,
// without pulling in a real packet exchange.
type fakeFlow struct {
	wantsID  bool
	id       uint16
	startPkt packet
	startErr error
	accepts  func(pkt packet) bool
	nextSend packet
	nextDone bool
	failed   error
}

func (f *fakeFlow) WantsIdentifier() bool   { return f.wantsID }
func (f *fakeFlow) SetIdentifier(id uint16) { f.id = id }
func (f *fakeFlow) Start() (packet, error)  { return f.startPkt, f.startErr }
func (f *fakeFlow) Accept(pkt packet) bool {
	if f.accepts == nil {
		return false
	}
	return f.accepts(pkt)
}
func (f *fakeFlow) Next(pkt packet) (packet, bool) { return f.nextSend, f.nextDone }
func (f *fakeFlow) Fail(err error)                 { f.failed = err }

func TestIdentifierPoolAllocatesLowestFreeFirst(t *testing.T) {
	pool := newIdentifierPool()

	first, err := pool.allocate()
	require.NoError(t, err)
	require.EqualValues(t, 1, first)

	second, err := pool.allocate()
	require.NoError(t, err)
	require.EqualValues(t, 2, second)

	pool.release(first)
	third, err := pool.allocate()
	require.NoError(t, err)
	require.EqualValues(t, 1, third, "released identifier should be the next one handed out")
}

func TestIdentifierPoolExhaustion(t *testing.T) {
	pool := newIdentifierPool()
	for i := 0; i < identifierSpace-1; i++ {
		_, err := pool.allocate()
		require.NoError(t, err)
	}
	_, err := pool.allocate()
	require.ErrorIs(t, err, ErrNoFreeIdentifier)
}

func TestMultiplexerRegisterAllocatesIdentifierOnlyWhenWanted(t *testing.T) {
	m := newMultiplexer()

	noID := &fakeFlow{wantsID: false}
	id, _, err := m.register(noID)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.EqualValues(t, 0, noID.id)

	wantsID := &fakeFlow{wantsID: true}
	_, _, err = m.register(wantsID)
	require.NoError(t, err)
	require.EqualValues(t, 1, wantsID.id)
}

func TestMultiplexerRegisterReleasesIdentifierOnStartFailure(t *testing.T) {
	m := newMultiplexer()
	failing := &fakeFlow{wantsID: true, startErr: ErrProtocolViolation}
	_, _, err := m.register(failing)
	require.ErrorIs(t, err, ErrProtocolViolation)
	require.Equal(t, 0, m.activeFlowCount())

	// the released identifier should be handed out again
	next := &fakeFlow{wantsID: true}
	_, _, err = m.register(next)
	require.NoError(t, err)
	require.EqualValues(t, 1, next.id)
}

func TestMultiplexerDispatchHonorsInsertionOrder(t *testing.T) {
	m := newMultiplexer()

	var order []string
	mkFlow := func(name string, accept bool) *fakeFlow {
		return &fakeFlow{
			accepts: func(pkt packet) bool {
				if accept {
					order = append(order, name)
				}
				return accept
			},
			nextDone: true,
		}
	}

	first := mkFlow("first", false)
	second := mkFlow("second", true)
	third := mkFlow("third", true)

	_, _, err := m.register(first)
	require.NoError(t, err)
	_, _, err = m.register(second)
	require.NoError(t, err)
	_, _, err = m.register(third)
	require.NoError(t, err)

	matched, _, done := m.dispatch(nil)
	require.True(t, matched)
	require.True(t, done)
	require.Equal(t, []string{"second"}, order, "only the first matching flow in insertion order is offered the packet")
}

func TestMultiplexerDispatchNoMatch(t *testing.T) {
	m := newMultiplexer()
	f := &fakeFlow{accepts: func(packet) bool { return false }}
	_, _, err := m.register(f)
	require.NoError(t, err)

	matched, _, done := m.dispatch(nil)
	require.False(t, matched)
	require.False(t, done)
}

func TestMultiplexerStopFailsFlowAndFreesIdentifier(t *testing.T) {
	m := newMultiplexer()
	f := &fakeFlow{wantsID: true}
	id, _, err := m.register(f)
	require.NoError(t, err)

	require.True(t, m.stop(id))
	require.ErrorIs(t, f.failed, ErrFlowStopped)
	require.Equal(t, 0, m.activeFlowCount())

	require.False(t, m.stop(id), "stopping an already-removed flow reports false")
}

func TestMultiplexerAbortAllFailsEveryFlow(t *testing.T) {
	m := newMultiplexer()
	a := &fakeFlow{}
	b := &fakeFlow{wantsID: true}
	_, _, err := m.register(a)
	require.NoError(t, err)
	_, _, err = m.register(b)
	require.NoError(t, err)

	m.abortAll(ErrSessionClosed)
	require.ErrorIs(t, a.failed, ErrSessionClosed)
	require.ErrorIs(t, b.failed, ErrSessionClosed)
	require.Equal(t, 0, m.activeFlowCount())

	// identifier pool should be reset: a fresh registration starting at 1
	c := &fakeFlow{wantsID: true}
	_, _, err = m.register(c)
	require.NoError(t, err)
	require.EqualValues(t, 1, c.id)
}

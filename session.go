package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gonzalop/mq/internal/packets"
)

// sessionState is the session engine's top-level state.
type sessionState int

const (
	stateIdle sessionState = iota
	stateConnecting
	stateAwaitingConnack
	stateReady
	stateDisconnecting
	stateDisconnected
	stateFailed
)

func (s sessionState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateConnecting:
		return "connecting"
	case stateAwaitingConnack:
		return "awaiting_connack"
	case stateReady:
		return "ready"
	case stateDisconnecting:
		return "disconnecting"
	case stateDisconnected:
		return "disconnected"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// inboundEvent is what the reader pump hands to the session loop: either a
// decoded packet or a terminal read/decode error.
type inboundEvent struct {
	pkt packet
	err error
}

// session is one attempt's worth of engine state: a session is created by
// Client.Connect (or by the reconnect controller) and destroyed on terminal
// disconnect. It is owned by a single goroutine: every field below is
// mutated only by the goroutine running loop(); every other goroutine
// talks to it over cmdCh.
type session struct {
	cfg       *ClientConfig
	connReq   ConnectRequest
	listeners *listenerRegistry
	events    *eventBus
	logger    *slog.Logger

	transport Transport
	mux       *multiplexer

	cmdCh     chan func(*session)
	inboundCh chan inboundEvent
	outboundCh chan packet

	state       sessionState
	readyFlag   atomic.Bool
	doneFlag    atomic.Bool
	connectTok  *connectFlow
	done        chan struct{}
	terminalErr error

	connectDelayTimer *time.Timer
	keepAliveTimer    *time.Timer
	missedPongs       int
	activePing        *pingFlow
}

func newSession(cfg *ClientConfig, req ConnectRequest, listeners *listenerRegistry, events *eventBus) *session {
	return &session{
		cfg:        cfg,
		connReq:    req,
		listeners:  listeners,
		events:     events,
		logger:     cfg.Logger,
		mux:        newMultiplexer(),
		cmdCh:      make(chan func(*session), 8),
		inboundCh:  make(chan inboundEvent, 8),
		outboundCh: make(chan packet, 8),
		done:       make(chan struct{}),
	}
}

// attach dials a transport, starts the reader/writer pumps and the session
// loop under a shared errgroup so any one's fatal error unwinds the other
// two deterministically. It blocks until the session reaches a terminal state.
func (s *session) attach(ctx context.Context) error {
	transport, err := s.cfg.Transport(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	s.transport = transport
	s.state = stateConnecting

	// transport_open: queue the initial CONNECT immediately, before the
	// loop goroutine starts and takes ownership of the session state.
	s.connectTok = newConnectFlow(s.connReq)
	flowID, sendPkt, regErr := s.mux.register(s.connectTok)
	_ = flowID
	if regErr != nil {
		s.terminate(regErr)
	} else {
		s.state = stateAwaitingConnack
		s.enqueueOutbound(sendPkt)
		s.armConnectDelay()
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error { return s.readerPump(gctx) })
	group.Go(func() error { return s.writerPump(gctx) })
	group.Go(func() error { return s.loop(gctx) })

	err = group.Wait()
	if err != nil && s.terminalErr == nil {
		s.terminalErr = err
	}
	return s.terminalErr
}

func (s *session) readerPump(ctx context.Context) error {
	buf := make([]byte, 4096)
	var fr packets.Reader
	for {
		n, readErr := s.transport.Read(buf)
		if n > 0 {
			fr.Feed(buf[:n])
			for {
				pkt, ok, decErr := fr.Next()
				if decErr != nil {
					s.sendInbound(ctx, inboundEvent{err: wrapDecodeError(decErr)})
					return decErr
				}
				if !ok {
					break
				}
				s.sendInbound(ctx, inboundEvent{pkt: pkt})
			}
		}
		if readErr != nil {
			s.sendInbound(ctx, inboundEvent{err: fmt.Errorf("%w: %v", ErrTransport, readErr)})
			return readErr
		}
	}
}

// wrapDecodeError classifies a packet-decode failure. An unrecognized fixed-
// header type nibble is a protocol-level violation the session should treat
// as an unexpected packet rather than a framing error; a protocol violation
// reported by the decoder stays a protocol violation; everything else is a
// malformed packet. Every wrap keeps the underlying decoder error in the
// chain.
func wrapDecodeError(decErr error) error {
	if errors.Is(decErr, packets.ErrUnknownPacketType) {
		return fmt.Errorf("%w: %w", ErrUnexpectedPacket, decErr)
	}
	if errors.Is(decErr, packets.ErrProtocolViolation) {
		return fmt.Errorf("%w: %w", ErrProtocolViolation, decErr)
	}
	return fmt.Errorf("%w: %w", ErrMalformedPacket, decErr)
}

func (s *session) sendInbound(ctx context.Context, ev inboundEvent) {
	select {
	case s.inboundCh <- ev:
	case <-ctx.Done():
	}
}

func (s *session) writerPump(ctx context.Context) error {
	for {
		select {
		case pkt, ok := <-s.outboundCh:
			if !ok {
				return nil
			}
			if _, err := s.cfg.PacketWriter(s.transport, pkt); err != nil {
				return fmt.Errorf("%w: %v", ErrTransport, err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// loop is the owner goroutine: it is the only code that reads or writes
// session/multiplexer/listener-dispatch state.
func (s *session) loop(ctx context.Context) error {
	defer s.stopTimers()

	for {
		select {
		case cmd := <-s.cmdCh:
			cmd(s)
		case ev := <-s.inboundCh:
			if ev.err != nil {
				s.terminate(ev.err)
			} else {
				s.handleInbound(ev.pkt)
			}
		case <-s.connectDelayTimerChan():
			s.onConnectDelayTimeout()
		case <-s.keepAliveTimerChan():
			s.onKeepAliveTick()
		case <-ctx.Done():
			if s.terminalErr == nil {
				s.terminate(fmt.Errorf("%w: %v", ErrTransport, ctx.Err()))
			}
		}

		if s.doneFlag.Load() {
			return s.terminalErr
		}
	}
}

func (s *session) connectDelayTimerChan() <-chan time.Time {
	if s.connectDelayTimer == nil {
		return nil
	}
	return s.connectDelayTimer.C
}

func (s *session) keepAliveTimerChan() <-chan time.Time {
	if s.keepAliveTimer == nil {
		return nil
	}
	return s.keepAliveTimer.C
}

func (s *session) armConnectDelay() {
	if s.cfg.ConnectDelay <= 0 {
		return
	}
	s.connectDelayTimer = time.NewTimer(s.cfg.ConnectDelay)
}

func (s *session) onConnectDelayTimeout() {
	if s.state != stateAwaitingConnack {
		return
	}
	s.logger.Warn("mq: no CONNACK within connect delay, resending CONNECT")
	pkt, _ := s.connectTok.Start()
	s.enqueueOutbound(pkt)
	s.connectDelayTimer.Reset(s.cfg.ConnectDelay)
}

func (s *session) armKeepAlive() {
	if s.cfg.KeepAlive <= 0 {
		return
	}
	s.keepAliveTimer = time.NewTimer(s.cfg.KeepAlive)
}

func (s *session) onKeepAliveTick() {
	if s.state != stateReady {
		return
	}
	if s.activePing != nil {
		s.missedPongs++
		if s.missedPongs >= 2 {
			s.terminate(fmt.Errorf("%w: keep-alive: two consecutive missed PINGRESP", ErrTransport))
			return
		}
	}
	s.activePing = newPingFlow()
	_, pkt, err := s.mux.register(s.activePing)
	if err == nil {
		s.enqueueOutbound(pkt)
	}
	s.keepAliveTimer.Reset(s.cfg.KeepAlive)
}

func (s *session) stopTimers() {
	if s.connectDelayTimer != nil {
		s.connectDelayTimer.Stop()
	}
	if s.keepAliveTimer != nil {
		s.keepAliveTimer.Stop()
	}
}

func (s *session) enqueueOutbound(pkt packet) {
	if pkt == nil {
		return
	}
	select {
	case s.outboundCh <- pkt:
	case <-s.done:
	}
}

// handleInbound routes one decoded packet according to the session's
// current state.
func (s *session) handleInbound(pkt packet) {
	s.emitPacketEvent(pkt)
	switch s.state {
	case stateAwaitingConnack:
		matched, send, done := s.mux.dispatch(pkt)
		if !matched {
			s.terminate(fmt.Errorf("%w: received %T while awaiting CONNACK", ErrUnexpectedPacket, pkt))
			return
		}
		s.enqueueOutbound(send)
		if done {
			s.onConnackResolved()
		}
	case stateReady, stateDisconnecting:
		if _, ok := pkt.(*packets.PingrespPacket); ok && s.activePing != nil {
			s.missedPongs = 0
		}
		matched, send, _ := s.mux.dispatch(pkt)
		s.enqueueOutbound(send)
		if matched {
			return
		}
		s.dispatchUnmatched(pkt)
	default:
		// Packets arriving after termination are ignored; the transport is
		// being torn down.
	}
}

// emitPacketEvent emits an observability event named after the inbound
// packet's type (e.g. "CONNACK", "PUBLISH"), keyed by packets.PacketNames.
// This fires for every decoded inbound packet, independent of whether a flow
// or listener ultimately claims it.
func (s *session) emitPacketEvent(pkt packet) {
	name, ok := packets.PacketNames[pkt.Type()]
	if !ok {
		return
	}
	s.events.emit(name, pkt)
}

func (s *session) onConnackResolved() {
	_, err := s.connectTok.token.Result()
	if err != nil {
		s.terminate(err)
		return
	}
	s.state = stateReady
	s.readyFlag.Store(true)
	if s.connectDelayTimer != nil {
		s.connectDelayTimer.Stop()
		s.connectDelayTimer = nil
	}
	s.armKeepAlive()
	s.events.emit(EventConnect, nil)
}

func (s *session) dispatchUnmatched(pkt packet) {
	switch p := pkt.(type) {
	case *packets.PublishPacket:
		s.handlePublish(p)
	case *packets.PingrespPacket:
		// Unsolicited PINGRESP: ignore.
	default:
		s.events.emit(EventError, fmt.Errorf("%w: unsolicited %T", ErrUnexpectedPacket, pkt))
	}
}

func (s *session) handlePublish(p *packets.PublishPacket) {
	switch QoS(p.QoS) {
	case AtLeastOnce:
		s.enqueueOutbound(&packets.PubackPacket{PacketID: p.PacketID})
	case ExactlyOnce:
		s.enqueueOutbound(&packets.PubrecPacket{PacketID: p.PacketID})
	}

	msg := Message{
		Topic:     p.Topic,
		Payload:   p.Payload,
		QoS:       QoS(p.QoS),
		Retained:  p.Retain,
		Duplicate: p.Dup,
	}
	s.listeners.dispatch(msg)
	s.events.emit(EventMessage, msg)
}

// terminate moves the session to its terminal state exactly once, aborting
// every active flow with ErrSessionClosed and emitting the 'error'/
// 'disconnect' events.
func (s *session) terminate(reason error) {
	if s.doneFlag.Load() {
		return
	}
	s.doneFlag.Store(true)
	s.readyFlag.Store(false)
	s.terminalErr = reason
	s.state = stateDisconnected

	s.mux.abortAll(fmt.Errorf("%w: %v", ErrSessionClosed, reason))

	if reason != nil && !errors.Is(reason, ErrSoftDisconnect) && !errors.Is(reason, ErrForcedDisconnect) {
		s.events.emit(EventError, reason)
	}
	s.events.emit(EventDisconnect, reason)

	if s.transport != nil {
		_ = s.transport.Close()
	}
	close(s.outboundCh)
	close(s.done)
}

// requestDisconnect is invoked via cmdCh by Client.Disconnect.
func (s *session) requestDisconnect(force bool) {
	if s.doneFlag.Load() {
		return
	}
	if force {
		s.terminate(ErrForcedDisconnect)
		return
	}
	s.state = stateDisconnecting
	s.enqueueOutbound(&packets.DisconnectPacket{})
	s.terminate(ErrSoftDisconnect)
}

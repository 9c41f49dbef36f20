package mq

import "github.com/gonzalop/mq/internal/packets"

// packet is a local alias so the rest of this package can talk about wire
// packets without every file importing internal/packets directly.
type packet = packets.Packet

// Packet is the exported name for the same alias, used at the StartFlow
// boundary so a caller-supplied Flow can read and build wire packets
// without reaching into internal/packets.
type Packet = packets.Packet

// flowID identifies a flow independent of any packet identifier it may
// also hold; generated with google/uuid so it stays stable and comparable
// across a reconnect even though the underlying packet identifier pool is
// reset with every new session.
type flowID = string

// FlowID is the exported name for flowID, returned by StartFlow.
type FlowID = flowID

// Flow is the capability set every protocol exchange implements: the
// multiplexer (C4) stores flows as a homogeneous sequence and never knows
// the concrete exchange it drives. It is exported so StartFlow (the
// generic escape hatch) can accept caller-authored exchanges alongside the
// built-in connect/publish/subscribe/unsubscribe/ping flows, which all
// implement it too.
type Flow interface {
	// WantsIdentifier reports whether this flow needs a packet identifier
	// allocated before Start() is called (PUBLISH QoS>0, SUBSCRIBE,
	// UNSUBSCRIBE do; CONNECT and PINGREQ do not).
	WantsIdentifier() bool

	// SetIdentifier assigns the packet identifier the multiplexer
	// allocated for this flow. Only called when WantsIdentifier is true.
	SetIdentifier(id uint16)

	// Start returns the initial packet to send when the flow is
	// registered, or nil if the flow only reacts to an inbound packet.
	Start() (Packet, error)

	// Accept decides whether pkt belongs to this flow.
	Accept(pkt Packet) bool

	// Next is called with a just-accepted packet. It may return a packet
	// to send and/or signal completion via done.
	Next(pkt Packet) (send Packet, done bool)

	// Fail aborts the flow with err (stop_flow, session teardown, or a
	// session-boundary error). When it is called it is the last call the
	// flow receives; a flow that completes through Next is never failed.
	Fail(err error)
}

// flow is the internal name used throughout the package; every built-in
// exchange implements it by implementing Flow.
type flow = Flow

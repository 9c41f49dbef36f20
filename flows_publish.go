package mq

import "github.com/gonzalop/mq/internal/packets"

// PublishResult is returned by Publish once delivery for the requested QoS
// has been acknowledged (or immediately, for QoS 0).
type PublishResult struct {
	PacketID uint16
}

// PublishRequest describes an outbound application message.
type PublishRequest struct {
	Topic   string
	Payload []byte
	QoS     QoS
	Retain  bool
	Dup     bool
}

// publishFlow drives the PUBLISH acknowledgement handshake for QoS 1
// (single PUBACK) and QoS 2 (PUBREC, PUBREL, PUBCOMP). QoS 0 publishes
// complete on send and never become a flow.
type publishFlow struct {
	req   PublishRequest
	id    uint16
	stage uint8 // 0: awaiting PUBREC/PUBACK, 1: awaiting PUBCOMP
	token *Token[PublishResult]
}

func newPublishFlow(req PublishRequest) *publishFlow {
	return &publishFlow{req: req, token: newToken[PublishResult]()}
}

func (f *publishFlow) WantsIdentifier() bool   { return true }
func (f *publishFlow) SetIdentifier(id uint16) { f.id = id }

func (f *publishFlow) Start() (packet, error) {
	return &packets.PublishPacket{
		Dup:      f.req.Dup,
		QoS:      uint8(f.req.QoS),
		Retain:   f.req.Retain,
		Topic:    f.req.Topic,
		PacketID: f.id,
		Payload:  f.req.Payload,
	}, nil
}

func (f *publishFlow) Accept(pkt packet) bool {
	switch f.req.QoS {
	case AtLeastOnce:
		p, ok := pkt.(*packets.PubackPacket)
		return ok && p.PacketID == f.id
	case ExactlyOnce:
		if f.stage == 0 {
			p, ok := pkt.(*packets.PubrecPacket)
			return ok && p.PacketID == f.id
		}
		p, ok := pkt.(*packets.PubcompPacket)
		return ok && p.PacketID == f.id
	default:
		return false
	}
}

func (f *publishFlow) Next(pkt packet) (packet, bool) {
	switch f.req.QoS {
	case AtLeastOnce:
		f.token.complete(PublishResult{PacketID: f.id}, nil)
		return nil, true
	case ExactlyOnce:
		if f.stage == 0 {
			f.stage = 1
			return &packets.PubrelPacket{PacketID: f.id}, false
		}
		f.token.complete(PublishResult{PacketID: f.id}, nil)
		return nil, true
	default:
		return nil, true
	}
}

func (f *publishFlow) Fail(err error) {
	f.token.complete(PublishResult{}, err)
}

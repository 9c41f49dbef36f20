package mq

import "github.com/gonzalop/mq/internal/packets"

// Subscription is one (filter, requested QoS) pair in a SUBSCRIBE request.
type Subscription struct {
	Filter string
	QoS    QoS
}

// SubscribeResult carries the granted QoS (or failure marker 0x80 per
// entry) returned by SUBACK.
type SubscribeResult struct {
	GrantedQoS []uint8
}

type subscribeFlow struct {
	subs  []Subscription
	id    uint16
	token *Token[SubscribeResult]
}

func newSubscribeFlow(subs []Subscription) *subscribeFlow {
	return &subscribeFlow{subs: subs, token: newToken[SubscribeResult]()}
}

func (f *subscribeFlow) WantsIdentifier() bool   { return true }
func (f *subscribeFlow) SetIdentifier(id uint16) { f.id = id }

func (f *subscribeFlow) Start() (packet, error) {
	topics := make([]string, len(f.subs))
	qos := make([]uint8, len(f.subs))
	for i, s := range f.subs {
		topics[i] = s.Filter
		qos[i] = uint8(s.QoS)
	}
	return &packets.SubscribePacket{PacketID: f.id, Topics: topics, QoS: qos}, nil
}

func (f *subscribeFlow) Accept(pkt packet) bool {
	p, ok := pkt.(*packets.SubackPacket)
	return ok && p.PacketID == f.id
}

func (f *subscribeFlow) Next(pkt packet) (packet, bool) {
	suback := pkt.(*packets.SubackPacket)
	f.token.complete(SubscribeResult{GrantedQoS: suback.ReturnCodes}, nil)
	return nil, true
}

func (f *subscribeFlow) Fail(err error) {
	f.token.complete(SubscribeResult{}, err)
}

// UnsubscribeResult completes an Unsubscribe once UNSUBACK arrives.
type UnsubscribeResult struct{}

type unsubscribeFlow struct {
	filters []string
	id      uint16
	token   *Token[UnsubscribeResult]
}

func newUnsubscribeFlow(filters []string) *unsubscribeFlow {
	return &unsubscribeFlow{filters: filters, token: newToken[UnsubscribeResult]()}
}

func (f *unsubscribeFlow) WantsIdentifier() bool   { return true }
func (f *unsubscribeFlow) SetIdentifier(id uint16) { f.id = id }

func (f *unsubscribeFlow) Start() (packet, error) {
	return &packets.UnsubscribePacket{PacketID: f.id, Topics: f.filters}, nil
}

func (f *unsubscribeFlow) Accept(pkt packet) bool {
	p, ok := pkt.(*packets.UnsubackPacket)
	return ok && p.PacketID == f.id
}

func (f *unsubscribeFlow) Next(pkt packet) (packet, bool) {
	f.token.complete(UnsubscribeResult{}, nil)
	return nil, true
}

func (f *unsubscribeFlow) Fail(err error) {
	f.token.complete(UnsubscribeResult{}, err)
}

package mq

import "github.com/gonzalop/mq/internal/packets"

// pingFlow drives a single PINGREQ/PINGRESP exchange started by each
// keep-alive tick.
type pingFlow struct {
	token *Token[struct{}]
}

func newPingFlow() *pingFlow {
	return &pingFlow{token: newToken[struct{}]()}
}

func (f *pingFlow) WantsIdentifier() bool   { return false }
func (f *pingFlow) SetIdentifier(id uint16) {}

func (f *pingFlow) Start() (packet, error) {
	return &packets.PingreqPacket{}, nil
}

func (f *pingFlow) Accept(pkt packet) bool {
	_, ok := pkt.(*packets.PingrespPacket)
	return ok
}

func (f *pingFlow) Next(pkt packet) (packet, bool) {
	f.token.complete(struct{}{}, nil)
	return nil, true
}

func (f *pingFlow) Fail(err error) {
	f.token.complete(struct{}{}, err)
}

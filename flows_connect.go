package mq

import "github.com/gonzalop/mq/internal/packets"

// connackResult is the value a connectFlow's Token completes with.
type connackResult struct {
	SessionPresent bool
}

// connectFlow drives the CONNECT/CONNACK handshake.
// It never wants a packet identifier: CONNECT/CONNACK carry none.
type connectFlow struct {
	req   ConnectRequest
	token *Token[connackResult]
}

func newConnectFlow(req ConnectRequest) *connectFlow {
	return &connectFlow{req: req, token: newToken[connackResult]()}
}

func (f *connectFlow) WantsIdentifier() bool   { return false }
func (f *connectFlow) SetIdentifier(id uint16) {}

func (f *connectFlow) Start() (packet, error) {
	return f.connectPacket(), nil
}

// connectPacket builds the CONNECT packet from the request. Called both for
// the initial send and for the connect-delay retry, which must re-emit a
// byte-identical packet.
func (f *connectFlow) connectPacket() *packets.ConnectPacket {
	pkt := &packets.ConnectPacket{
		ProtocolName:  "MQTT",
		ProtocolLevel: 4,
		CleanSession:  f.req.Clean,
		ClientID:      f.req.ClientID,
		KeepAlive:     uint16(f.req.KeepAlive.Seconds()),
	}
	if f.req.HasCredential {
		pkt.UsernameFlag = true
		pkt.Username = f.req.Username
		pkt.PasswordFlag = f.req.Password != ""
		pkt.Password = f.req.Password
	}
	if f.req.Will != nil {
		pkt.WillFlag = true
		pkt.WillTopic = f.req.Will.Topic
		pkt.WillMessage = f.req.Will.Payload
		pkt.WillQoS = uint8(f.req.Will.QoS)
		pkt.WillRetain = f.req.Will.Retain
	}
	return pkt
}

func (f *connectFlow) Accept(pkt packet) bool {
	_, ok := pkt.(*packets.ConnackPacket)
	return ok
}

func (f *connectFlow) Next(pkt packet) (packet, bool) {
	connack := pkt.(*packets.ConnackPacket)
	if err := connackError(connack.ReturnCode); err != nil {
		f.token.complete(connackResult{}, err)
		return nil, true
	}
	f.token.complete(connackResult{SessionPresent: connack.SessionPresent}, nil)
	return nil, true
}

func (f *connectFlow) Fail(err error) {
	f.token.complete(connackResult{}, err)
}

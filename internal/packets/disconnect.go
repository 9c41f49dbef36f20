package packets

import "io"

// DisconnectPacket represents an MQTT DISCONNECT control packet. It carries
// no variable header or payload in v3.1.1.
type DisconnectPacket struct{}

// Type returns the packet type.
func (p *DisconnectPacket) Type() uint8 { return DISCONNECT }

// Encode serializes the DISCONNECT packet into dst.
func (p *DisconnectPacket) Encode(dst []byte) ([]byte, error) {
	header := FixedHeader{PacketType: DISCONNECT, RemainingLength: 0}
	return header.appendBytes(dst), nil
}

// WriteTo writes the DISCONNECT packet to the writer.
func (p *DisconnectPacket) WriteTo(w io.Writer) (int64, error) {
	return writePacket(w, p)
}

// DecodeDisconnect decodes a DISCONNECT packet (no payload).
func DecodeDisconnect(buf []byte) (*DisconnectPacket, error) {
	return &DisconnectPacket{}, nil
}

package packets

import (
	"encoding/binary"
	"fmt"
	"io"
)

// PubcompPacket represents an MQTT PUBCOMP control packet (QoS 2, step 3).
type PubcompPacket struct {
	PacketID uint16
}

// Type returns the packet type.
func (p *PubcompPacket) Type() uint8 { return PUBCOMP }

// Encode serializes the PUBCOMP packet into dst.
func (p *PubcompPacket) Encode(dst []byte) ([]byte, error) {
	header := FixedHeader{PacketType: PUBCOMP, RemainingLength: 2}
	dst = header.appendBytes(dst)
	return binary.BigEndian.AppendUint16(dst, p.PacketID), nil
}

// WriteTo writes the PUBCOMP packet to the writer.
func (p *PubcompPacket) WriteTo(w io.Writer) (int64, error) {
	return writePacket(w, p)
}

// DecodePubcomp decodes a PUBCOMP packet from the buffer.
func DecodePubcomp(buf []byte) (*PubcompPacket, error) {
	if len(buf) != 2 {
		return nil, fmt.Errorf("%w: PUBCOMP must be exactly 2 bytes, got %d", ErrMalformedPacket, len(buf))
	}
	return &PubcompPacket{PacketID: binary.BigEndian.Uint16(buf[0:2])}, nil
}

package packets

import (
	"encoding/binary"
	"fmt"
	"io"
)

// PubrecPacket represents an MQTT PUBREC control packet (QoS 2, step 1).
type PubrecPacket struct {
	PacketID uint16
}

// Type returns the packet type.
func (p *PubrecPacket) Type() uint8 { return PUBREC }

// Encode serializes the PUBREC packet into dst.
func (p *PubrecPacket) Encode(dst []byte) ([]byte, error) {
	header := FixedHeader{PacketType: PUBREC, RemainingLength: 2}
	dst = header.appendBytes(dst)
	return binary.BigEndian.AppendUint16(dst, p.PacketID), nil
}

// WriteTo writes the PUBREC packet to the writer.
func (p *PubrecPacket) WriteTo(w io.Writer) (int64, error) {
	return writePacket(w, p)
}

// DecodePubrec decodes a PUBREC packet from the buffer.
func DecodePubrec(buf []byte) (*PubrecPacket, error) {
	if len(buf) != 2 {
		return nil, fmt.Errorf("%w: PUBREC must be exactly 2 bytes, got %d", ErrMalformedPacket, len(buf))
	}
	return &PubrecPacket{PacketID: binary.BigEndian.Uint16(buf[0:2])}, nil
}

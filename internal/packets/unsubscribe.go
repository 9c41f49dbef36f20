package packets

import (
	"encoding/binary"
	"fmt"
	"io"
)

// UnsubscribePacket represents an MQTT UNSUBSCRIBE control packet.
type UnsubscribePacket struct {
	PacketID uint16
	Topics   []string
}

// Type returns the packet type.
func (p *UnsubscribePacket) Type() uint8 { return UNSUBSCRIBE }

// Encode serializes the UNSUBSCRIBE packet into dst.
func (p *UnsubscribePacket) Encode(dst []byte) ([]byte, error) {
	payloadLen := 0
	topicBytesList := make([][]byte, len(p.Topics))
	for i, topic := range p.Topics {
		tb := encodeString(topic)
		topicBytesList[i] = tb
		payloadLen += len(tb)
	}

	header := FixedHeader{
		PacketType:      UNSUBSCRIBE,
		Flags:           0x02,
		RemainingLength: 2 + payloadLen,
	}
	dst = header.appendBytes(dst)
	dst = binary.BigEndian.AppendUint16(dst, p.PacketID)

	for _, tb := range topicBytesList {
		dst = append(dst, tb...)
	}

	return dst, nil
}

// WriteTo writes the UNSUBSCRIBE packet to the writer.
func (p *UnsubscribePacket) WriteTo(w io.Writer) (int64, error) {
	return writePacket(w, p)
}

// DecodeUnsubscribe decodes an UNSUBSCRIBE packet from the buffer and its
// fixed header. The reserved bits in the fixed header flags must be exactly
// 0x02.
func DecodeUnsubscribe(buf []byte, header *FixedHeader) (*UnsubscribePacket, error) {
	if header.Flags != 0x02 {
		return nil, fmt.Errorf("%w: UNSUBSCRIBE reserved flags must be 0x02, got %#x", ErrMalformedPacket, header.Flags)
	}
	if len(buf) < 2 {
		return nil, fmt.Errorf("%w: buffer too short for UNSUBSCRIBE", ErrMalformedPacket)
	}

	pkt := &UnsubscribePacket{}
	offset := 0

	pkt.PacketID = binary.BigEndian.Uint16(buf[offset : offset+2])
	offset += 2

	for offset < len(buf) {
		topic, n, err := decodeString(buf[offset:])
		if err != nil {
			return nil, fmt.Errorf("%w: topic filter: %v", ErrMalformedPacket, err)
		}
		offset += n
		pkt.Topics = append(pkt.Topics, topic)
	}

	if len(pkt.Topics) == 0 {
		return nil, fmt.Errorf("%w: UNSUBSCRIBE must contain at least one topic filter", ErrProtocolViolation)
	}

	return pkt, nil
}

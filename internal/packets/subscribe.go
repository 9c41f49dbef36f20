package packets

import (
	"encoding/binary"
	"fmt"
	"io"
)

// SubscribePacket represents an MQTT SUBSCRIBE control packet.
type SubscribePacket struct {
	PacketID uint16
	Topics   []string
	QoS      []uint8 // QoS level requested for each topic
}

// Type returns the packet type.
func (p *SubscribePacket) Type() uint8 { return SUBSCRIBE }

// Encode serializes the SUBSCRIBE packet into dst.
func (p *SubscribePacket) Encode(dst []byte) ([]byte, error) {
	payloadLen := 0
	topicBytesList := make([][]byte, len(p.Topics))
	for i, topic := range p.Topics {
		tb := encodeString(topic)
		topicBytesList[i] = tb
		payloadLen += len(tb) + 1 // topic + requested QoS byte
	}

	header := FixedHeader{
		PacketType:      SUBSCRIBE,
		Flags:           0x02,
		RemainingLength: 2 + payloadLen,
	}
	dst = header.appendBytes(dst)
	dst = binary.BigEndian.AppendUint16(dst, p.PacketID)

	for i, tb := range topicBytesList {
		dst = append(dst, tb...)
		qos := uint8(QoS0)
		if i < len(p.QoS) {
			qos = p.QoS[i]
		}
		dst = append(dst, qos&0x03)
	}

	return dst, nil
}

// WriteTo writes the SUBSCRIBE packet to the writer.
func (p *SubscribePacket) WriteTo(w io.Writer) (int64, error) {
	return writePacket(w, p)
}

// DecodeSubscribe decodes a SUBSCRIBE packet from the buffer and its fixed
// header. The reserved bits in the fixed header flags must be exactly 0x02.
func DecodeSubscribe(buf []byte, header *FixedHeader) (*SubscribePacket, error) {
	if header.Flags != 0x02 {
		return nil, fmt.Errorf("%w: SUBSCRIBE reserved flags must be 0x02, got %#x", ErrMalformedPacket, header.Flags)
	}
	if len(buf) < 2 {
		return nil, fmt.Errorf("%w: buffer too short for SUBSCRIBE", ErrMalformedPacket)
	}

	pkt := &SubscribePacket{}
	offset := 0

	pkt.PacketID = binary.BigEndian.Uint16(buf[offset : offset+2])
	offset += 2

	for offset < len(buf) {
		topic, n, err := decodeString(buf[offset:])
		if err != nil {
			return nil, fmt.Errorf("%w: topic filter: %v", ErrMalformedPacket, err)
		}
		offset += n

		if offset >= len(buf) {
			return nil, fmt.Errorf("%w: missing requested QoS byte", ErrMalformedPacket)
		}
		qos := buf[offset] & 0x03
		offset++

		pkt.Topics = append(pkt.Topics, topic)
		pkt.QoS = append(pkt.QoS, qos)
	}

	if len(pkt.Topics) == 0 {
		return nil, fmt.Errorf("%w: SUBSCRIBE must contain at least one topic filter", ErrProtocolViolation)
	}

	return pkt, nil
}

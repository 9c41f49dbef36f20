package packets

import (
	"encoding/binary"
	"fmt"
	"io"
)

// PublishPacket represents an MQTT PUBLISH control packet.
type PublishPacket struct {
	// Fixed header flags
	Dup    bool
	QoS    uint8
	Retain bool

	// Variable header
	Topic    string
	PacketID uint16 // only present if QoS > 0

	// Payload
	Payload []byte
}

// Type returns the packet type.
func (p *PublishPacket) Type() uint8 { return PUBLISH }

// Encode serializes the PUBLISH packet into dst.
func (p *PublishPacket) Encode(dst []byte) ([]byte, error) {
	if p.QoS == QoS0 && p.Dup {
		return nil, fmt.Errorf("%w: DUP must be 0 for QoS 0 PUBLISH", ErrProtocolViolation)
	}

	topicLen := 2 + len(p.Topic)
	variableHeaderLen := topicLen
	if p.QoS > 0 {
		variableHeaderLen += 2
	}

	var flags uint8
	if p.Dup {
		flags |= 0x08
	}
	flags |= (p.QoS & 0x03) << 1
	if p.Retain {
		flags |= 0x01
	}

	header := FixedHeader{
		PacketType:      PUBLISH,
		Flags:           flags,
		RemainingLength: variableHeaderLen + len(p.Payload),
	}
	dst = header.appendBytes(dst)

	dst = appendString(dst, p.Topic)
	if p.QoS > 0 {
		dst = binary.BigEndian.AppendUint16(dst, p.PacketID)
	}

	return append(dst, p.Payload...), nil
}

// WriteTo writes the PUBLISH packet to the writer.
func (p *PublishPacket) WriteTo(w io.Writer) (int64, error) {
	return writePacket(w, p)
}

// DecodePublish decodes a PUBLISH packet from the buffer and its fixed header.
func DecodePublish(buf []byte, fixedHeader *FixedHeader) (*PublishPacket, error) {
	pkt := &PublishPacket{
		Dup:    fixedHeader.Flags&0x08 != 0,
		QoS:    (fixedHeader.Flags >> 1) & 0x03,
		Retain: fixedHeader.Flags&0x01 != 0,
	}

	if pkt.QoS == QoS0 && pkt.Dup {
		return nil, fmt.Errorf("%w: DUP must be 0 for QoS 0 PUBLISH", ErrProtocolViolation)
	}
	if pkt.QoS > QoS2 {
		return nil, fmt.Errorf("%w: invalid QoS %d in PUBLISH", ErrMalformedPacket, pkt.QoS)
	}

	offset := 0
	topic, n, err := decodeString(buf[offset:])
	if err != nil {
		return nil, fmt.Errorf("%w: topic: %v", ErrMalformedPacket, err)
	}
	pkt.Topic = topic
	offset += n

	if pkt.QoS > 0 {
		if offset+2 > len(buf) {
			return nil, fmt.Errorf("%w: missing packet id", ErrMalformedPacket)
		}
		pkt.PacketID = binary.BigEndian.Uint16(buf[offset : offset+2])
		offset += 2
	}

	pkt.Payload = append([]byte(nil), buf[offset:]...)

	return pkt, nil
}

package packets

import (
	"errors"
	"io"
)

// errNeedMore signals that a buffer does not yet hold enough bytes to
// decode a value; callers (the frame reader) treat this as "wait for the
// next chunk", not a terminal error.
var errNeedMore = errors.New("packets: need more data")

// FixedHeader represents the fixed header present in all MQTT control
// packets: [PacketType + Flags (1 byte)][Remaining Length (1-4 bytes)].
type FixedHeader struct {
	PacketType      uint8
	Flags           uint8
	RemainingLength int
}

// appendBytes appends the encoded fixed header to dst.
func (h *FixedHeader) appendBytes(dst []byte) []byte {
	dst = append(dst, (h.PacketType<<4)|(h.Flags&0x0F))
	return appendVarInt(dst, h.RemainingLength)
}

// WriteTo writes the fixed header to the writer.
func (h *FixedHeader) WriteTo(w io.Writer) (int64, error) {
	var buf [5]byte
	out := h.appendBytes(buf[:0])
	n, err := w.Write(out)
	return int64(n), err
}

// parseFixedHeader decodes a fixed header from the front of buf.
// Returns the header, the number of bytes consumed, and errNeedMore if buf
// doesn't yet hold a complete header.
func parseFixedHeader(buf []byte) (FixedHeader, int, error) {
	if len(buf) < 1 {
		return FixedHeader{}, 0, errNeedMore
	}

	firstByte := buf[0]
	packetType := firstByte >> 4
	if packetType == RESERVED || packetType > DISCONNECT {
		return FixedHeader{}, 0, ErrUnknownPacketType
	}

	remainingLength, n, err := decodeVarIntBuf(buf[1:])
	if err != nil {
		return FixedHeader{}, 0, err
	}

	return FixedHeader{
		PacketType:      packetType,
		Flags:           firstByte & 0x0F,
		RemainingLength: remainingLength,
	}, 1 + n, nil
}

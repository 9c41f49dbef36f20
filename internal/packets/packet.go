package packets

import "io"

// Packet is the interface that all MQTT control packets must implement.
type Packet interface {
	// Type returns the MQTT control packet type.
	Type() uint8

	// WriteTo writes the packet to the writer.
	// It returns the number of bytes written and any error encountered.
	WriteTo(w io.Writer) (int64, error)
}

// byteEncoder is implemented by packets that serialize to a flat buffer;
// WriteTo for these packets is a thin wrapper over Encode using a pooled
// buffer, so the fixed-header/variable-header/payload layout lives in one
// place per packet type instead of being duplicated across Encode/WriteTo.
type byteEncoder interface {
	Encode(dst []byte) ([]byte, error)
}

// writePacket is the shared WriteTo implementation for every packet type
// in this package.
func writePacket(w io.Writer, p byteEncoder) (int64, error) {
	bufPtr := GetBuffer(256)
	defer PutBuffer(bufPtr)

	data, err := p.Encode((*bufPtr)[:0])
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

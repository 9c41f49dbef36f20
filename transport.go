package mq

import (
	"context"
	"io"
)

// Transport is the bidirectional byte duplex the engine consumes. The core
// never dials a socket itself; callers supply a TransportFactory that
// produces one of these per connection attempt. Close must unblock any
// in-flight Read so the reader pump can observe EOF.
type Transport interface {
	io.Reader
	io.Writer
	io.Closer
}

// TransportFactory produces a fresh Transport for each connect/reconnect
// attempt. ctx is cancelled if the attempt is abandoned (e.g. the client is
// closed while dialing).
type TransportFactory func(ctx context.Context) (Transport, error)

// PacketWriter serializes an outbound packet to the transport. Overriding
// it is a test hook (ClientConfig.PacketWriter); production code uses
// defaultPacketWriter, which defers to the packet's own WriteTo method.
type PacketWriter func(w io.Writer, pkt packet) (int64, error)

func defaultPacketWriter(w io.Writer, pkt packet) (int64, error) {
	return pkt.WriteTo(w)
}

package packets

import "errors"

// Codec-level errors.
var (
	// ErrMalformedPacket is returned when bytes cannot be parsed as a
	// well-formed MQTT control packet.
	ErrMalformedPacket = errors.New("malformed packet")

	// ErrMalformedLength is returned when the Remaining Length variable
	// byte integer exceeds the 4-byte / 268,435,455 limit.
	ErrMalformedLength = errors.New("malformed remaining length")

	// ErrProtocolViolation is returned when a peer violates an MQTT rule
	// that isn't a framing error (e.g. DUP set on a QoS 0 PUBLISH).
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrUnknownPacketType is returned for a fixed-header type nibble this
	// codec does not recognize.
	ErrUnknownPacketType = errors.New("unknown packet type")

	// ErrInvalidConnect is returned by ConnectPacket.WriteTo when the
	// packet violates a CONNECT-specific encoding rule (e.g. an empty
	// client ID with CleanSession false).
	ErrInvalidConnect = errors.New("invalid connect packet")
)

package packets

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func encodeAndDecode(t *testing.T, pkt Packet) Packet {
	t.Helper()
	var buf bytes.Buffer
	_, err := pkt.WriteTo(&buf)
	require.NoError(t, err)

	header, headerLen, err := parseFixedHeader(buf.Bytes())
	require.NoError(t, err)
	remaining := buf.Bytes()[headerLen : headerLen+header.RemainingLength]

	decoded, err := decodePacket(&header, remaining)
	require.NoError(t, err)
	return decoded
}

func TestConnectRoundTrip(t *testing.T) {
	pkt := &ConnectPacket{
		ProtocolName:  "MQTT",
		ProtocolLevel: 4,
		CleanSession:  true,
		ClientID:      "client-1",
		KeepAlive:     60,
		UsernameFlag:  true,
		Username:      "alice",
		PasswordFlag:  true,
		Password:      "s3cret",
		WillFlag:      true,
		WillTopic:     "clients/client-1/status",
		WillMessage:   []byte("offline"),
		WillQoS:       1,
		WillRetain:    true,
	}

	got := encodeAndDecode(t, pkt).(*ConnectPacket)
	require.Equal(t, pkt.ClientID, got.ClientID)
	require.Equal(t, pkt.Username, got.Username)
	require.Equal(t, pkt.Password, got.Password)
	require.Equal(t, pkt.WillTopic, got.WillTopic)
	require.Equal(t, pkt.WillMessage, got.WillMessage)
	require.True(t, got.CleanSession)
	require.True(t, got.WillRetain)
}

func TestConnectRejectsEmptyClientIDWithoutCleanSession(t *testing.T) {
	pkt := &ConnectPacket{ProtocolName: "MQTT", ProtocolLevel: 4, CleanSession: false}
	_, err := pkt.Encode(nil)
	require.ErrorIs(t, err, ErrInvalidConnect)
}

func TestConnackRoundTrip(t *testing.T) {
	pkt := &ConnackPacket{SessionPresent: true, ReturnCode: ConnRefusedNotAuthorized}
	got := encodeAndDecode(t, pkt).(*ConnackPacket)
	require.True(t, got.SessionPresent)
	require.EqualValues(t, ConnRefusedNotAuthorized, got.ReturnCode)
}

func TestConnackRejectsWrongLength(t *testing.T) {
	_, err := DecodeConnack([]byte{0x00})
	require.ErrorIs(t, err, ErrMalformedPacket)
}

func TestPublishRoundTripQoS1(t *testing.T) {
	pkt := &PublishPacket{
		QoS:      QoS1,
		Topic:    "sensors/temp",
		PacketID: 42,
		Payload:  []byte("21.5"),
	}
	got := encodeAndDecode(t, pkt).(*PublishPacket)
	require.Equal(t, pkt.Topic, got.Topic)
	require.EqualValues(t, 42, got.PacketID)
	require.Equal(t, pkt.Payload, got.Payload)
}

func TestPublishRejectsDupOnQoS0Encode(t *testing.T) {
	pkt := &PublishPacket{QoS: QoS0, Dup: true, Topic: "a"}
	_, err := pkt.Encode(nil)
	require.ErrorIs(t, err, ErrProtocolViolation)
}

func TestPublishRejectsDupOnQoS0Decode(t *testing.T) {
	header := &FixedHeader{PacketType: PUBLISH, Flags: 0x08}
	buf := appendString(nil, "a")
	_, err := DecodePublish(buf, header)
	require.ErrorIs(t, err, ErrProtocolViolation)
}

func TestPublishRejectsInvalidQoS(t *testing.T) {
	header := &FixedHeader{PacketType: PUBLISH, Flags: 0x06} // QoS bits = 3
	buf := appendString(nil, "a")
	_, err := DecodePublish(buf, header)
	require.ErrorIs(t, err, ErrMalformedPacket)
}

func TestSubscribeRoundTrip(t *testing.T) {
	pkt := &SubscribePacket{
		PacketID: 7,
		Topics:   []string{"a/+", "b/#"},
		QoS:      []uint8{0, 1},
	}
	got := encodeAndDecode(t, pkt).(*SubscribePacket)
	require.EqualValues(t, 7, got.PacketID)
	require.Equal(t, pkt.Topics, got.Topics)
	require.Equal(t, pkt.QoS, got.QoS)
}

func TestSubscribeRejectsEmptyTopicList(t *testing.T) {
	buf := make([]byte, 2) // packet id only, no topics
	header := &FixedHeader{PacketType: SUBSCRIBE, Flags: 0x02}
	_, err := DecodeSubscribe(buf, header)
	require.ErrorIs(t, err, ErrProtocolViolation)
}

func TestSubscribeRejectsBadReservedFlags(t *testing.T) {
	buf := make([]byte, 2)
	header := &FixedHeader{PacketType: SUBSCRIBE, Flags: 0x00}
	_, err := DecodeSubscribe(buf, header)
	require.ErrorIs(t, err, ErrMalformedPacket)
}

func TestSubackRoundTrip(t *testing.T) {
	pkt := &SubackPacket{PacketID: 7, ReturnCodes: []uint8{SubackQoS1, SubackFailure}}
	got := encodeAndDecode(t, pkt).(*SubackPacket)
	require.Equal(t, pkt.ReturnCodes, got.ReturnCodes)
}

func TestUnsubscribeRejectsEmptyTopicList(t *testing.T) {
	buf := make([]byte, 2)
	header := &FixedHeader{PacketType: UNSUBSCRIBE, Flags: 0x02}
	_, err := DecodeUnsubscribe(buf, header)
	require.ErrorIs(t, err, ErrProtocolViolation)
}

func TestUnsubscribeRejectsBadReservedFlags(t *testing.T) {
	buf := make([]byte, 2)
	header := &FixedHeader{PacketType: UNSUBSCRIBE, Flags: 0x0a}
	_, err := DecodeUnsubscribe(buf, header)
	require.ErrorIs(t, err, ErrMalformedPacket)
}

func TestPubrelRejectsBadReservedFlags(t *testing.T) {
	buf := make([]byte, 2)
	header := &FixedHeader{PacketType: PUBREL, Flags: 0x00}
	_, err := DecodePubrel(buf, header)
	require.ErrorIs(t, err, ErrMalformedPacket)
}

func TestPubackPubrecPubrelPubcompRoundTrip(t *testing.T) {
	for _, pkt := range []Packet{
		&PubackPacket{PacketID: 9},
		&PubrecPacket{PacketID: 9},
		&PubrelPacket{PacketID: 9},
		&PubcompPacket{PacketID: 9},
	} {
		got := encodeAndDecode(t, pkt)
		switch p := got.(type) {
		case *PubackPacket:
			require.EqualValues(t, 9, p.PacketID)
		case *PubrecPacket:
			require.EqualValues(t, 9, p.PacketID)
		case *PubrelPacket:
			require.EqualValues(t, 9, p.PacketID)
		case *PubcompPacket:
			require.EqualValues(t, 9, p.PacketID)
		}
	}
}

func TestPingreqPingrespDisconnectRoundTrip(t *testing.T) {
	require.IsType(t, &PingreqPacket{}, encodeAndDecode(t, &PingreqPacket{}))
	require.IsType(t, &PingrespPacket{}, encodeAndDecode(t, &PingrespPacket{}))
	require.IsType(t, &DisconnectPacket{}, encodeAndDecode(t, &DisconnectPacket{}))
}

func TestVarIntRoundTrip(t *testing.T) {
	for _, v := range []int{0, 1, 127, 128, 16383, 16384, 2097151, 2097152, MaxRemainingLength} {
		buf := appendVarInt(nil, v)
		got, n, err := decodeVarIntBuf(buf)
		require.NoError(t, err)
		require.Equal(t, len(buf), n)
		require.Equal(t, v, got)
	}
}

func TestVarIntRejectsFifthContinuationByte(t *testing.T) {
	buf := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	_, _, err := decodeVarIntBuf(buf)
	require.ErrorIs(t, err, ErrMalformedLength)
}

func TestParseFixedHeaderNeedsMoreData(t *testing.T) {
	_, _, err := parseFixedHeader(nil)
	require.ErrorIs(t, err, errNeedMore)
}

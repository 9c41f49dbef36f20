package mq

import (
	"log/slog"
	"time"
)

// ClientConfig holds the immutable configuration a Client is built from.
// It is assembled by functional Options and never mutated after NewClient
// returns.
type ClientConfig struct {
	Transport    TransportFactory
	PacketWriter PacketWriter

	AutoReconnect  bool
	ReconnectOpts  ReconnectConfig
	ConnectDelay   time.Duration
	KeepAlive      time.Duration
	ConnectRequest ConnectRequest

	MaxTopicLength    int
	MaxPayloadSize    int
	MaxIncomingPacket int

	Logger *slog.Logger
}

// ReconnectConfig customizes the reconnect controller (C7). A zero value
// selects DefaultReconnectStrategy's own defaults.
type ReconnectConfig struct {
	Strategy         ReconnectStrategy
	MaxAttempts      int
	Interval         time.Duration
	ReconnectUnready bool
}

// ConnectRequest is the CONNECT payload a session negotiates on attach.
type ConnectRequest struct {
	ClientID      string
	Clean         bool
	KeepAlive     time.Duration
	Username      string
	Password      string
	HasCredential bool
	Will          *Will
}

// Will describes the Last Will and Testament message.
type Will struct {
	Topic   string
	Payload []byte
	QoS     QoS
	Retain  bool
}

// Option configures a ClientConfig during NewClient.
type Option func(*ClientConfig)

func defaultConfig() *ClientConfig {
	return &ClientConfig{
		PacketWriter: defaultPacketWriter,
		AutoReconnect: true,
		KeepAlive:    60 * time.Second,
		ConnectDelay: 0,
		ConnectRequest: ConnectRequest{
			Clean:     true,
			KeepAlive: 60 * time.Second,
		},
		Logger: slog.New(slog.NewTextHandler(discardWriter{}, nil)),
	}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// WithTransport sets the duplex factory used for every connect/reconnect
// attempt. Required.
func WithTransport(f TransportFactory) Option {
	return func(c *ClientConfig) { c.Transport = f }
}

// WithPacketWriter overrides the packet encoder, a test hook for injecting
// malformed or delayed writes.
func WithPacketWriter(w PacketWriter) Option {
	return func(c *ClientConfig) { c.PacketWriter = w }
}

// WithClientID sets the CONNECT client identifier.
func WithClientID(id string) Option {
	return func(c *ClientConfig) { c.ConnectRequest.ClientID = id }
}

// WithCleanSession sets the CONNECT clean-session flag (default true).
func WithCleanSession(clean bool) Option {
	return func(c *ClientConfig) { c.ConnectRequest.Clean = clean }
}

// WithCredentials sets the CONNECT username/password.
func WithCredentials(username, password string) Option {
	return func(c *ClientConfig) {
		c.ConnectRequest.Username = username
		c.ConnectRequest.Password = password
		c.ConnectRequest.HasCredential = true
	}
}

// WithWill sets the CONNECT Last Will and Testament.
func WithWill(w Will) Option {
	return func(c *ClientConfig) { c.ConnectRequest.Will = &w }
}

// WithKeepAlive sets the keep-alive interval. Zero disables the keep-alive
// timer entirely.
func WithKeepAlive(d time.Duration) Option {
	return func(c *ClientConfig) {
		c.KeepAlive = d
		c.ConnectRequest.KeepAlive = d
	}
}

// WithConnectDelay sets how long the engine waits for CONNACK before
// re-sending an identical CONNECT.
func WithConnectDelay(d time.Duration) Option {
	return func(c *ClientConfig) { c.ConnectDelay = d }
}

// WithAutoReconnect enables or disables the reconnect controller (enabled
// with DefaultReconnectStrategy by default).
func WithAutoReconnect(enabled bool) Option {
	return func(c *ClientConfig) { c.AutoReconnect = enabled }
}

// WithReconnectStrategy installs a custom reconnect-strategy oracle.
func WithReconnectStrategy(s ReconnectStrategy) Option {
	return func(c *ClientConfig) {
		c.AutoReconnect = true
		c.ReconnectOpts.Strategy = s
	}
}

// WithMaxReconnectAttempts bounds DefaultReconnectStrategy's attempt count.
func WithMaxReconnectAttempts(n int) Option {
	return func(c *ClientConfig) { c.ReconnectOpts.MaxAttempts = n }
}

// WithReconnectUnready sets ReconnectConfig.ReconnectUnready (default
// false). No component reads the flag: with either setting,
// DefaultReconnectStrategy retries failures before the first successful
// CONNACK and bounds them by MaxAttempts.
func WithReconnectUnready(unready bool) Option {
	return func(c *ClientConfig) { c.ReconnectOpts.ReconnectUnready = unready }
}

// WithLogger overrides the client's structured logger (default discards).
func WithLogger(l *slog.Logger) Option {
	return func(c *ClientConfig) { c.Logger = l }
}

// WithMaxTopicLength overrides DefaultMaxTopicLength.
func WithMaxTopicLength(n int) Option {
	return func(c *ClientConfig) { c.MaxTopicLength = n }
}

// WithMaxPayloadSize overrides DefaultMaxPayloadSize.
func WithMaxPayloadSize(n int) Option {
	return func(c *ClientConfig) { c.MaxPayloadSize = n }
}

// WithMaxIncomingPacket sets ClientConfig.MaxIncomingPacket. The session
// does not read it: inbound packets are bounded only by
// packets.MaxIncomingPacketSize (16 MiB), which the frame reader enforces.
func WithMaxIncomingPacket(n int) Option {
	return func(c *ClientConfig) { c.MaxIncomingPacket = n }
}

// Package mq implements an MQTT 3.1.1 client engine: a session state
// machine, a flow multiplexer for in-flight PUBLISH/SUBSCRIBE/UNSUBSCRIBE
// exchanges, a reconnecting connection controller, and a listener registry
// that survives reconnects.
//
// # Quick start
//
//	client, err := mq.NewClient(
//	    mq.WithTransport(dialTCP("localhost:1883")),
//	    mq.WithClientID("sensor-1"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := client.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Disconnect(ctx, false)
//
//	tok, err := client.Publish(ctx, mq.PublishRequest{
//	    Topic:   "sensors/temperature",
//	    Payload: []byte("22.5"),
//	    QoS:     mq.AtLeastOnce,
//	})
//	if err == nil {
//	    _, err = tok.Wait(ctx)
//	}
//
// # Subscribing
//
//	client.Listen("sensors/+/temperature", func(msg mq.Message) {
//	    fmt.Printf("%s: %s\n", msg.Topic, msg.Payload)
//	})
//	tok, err := client.Subscribe(ctx, []mq.Subscription{
//	    {Filter: "sensors/+/temperature", QoS: mq.AtLeastOnce},
//	})
//
// # Reconnection
//
// A Client retries dropped connections with DefaultReconnectStrategy unless
// WithAutoReconnect(false) or a custom ReconnectStrategy is supplied via
// WithReconnectStrategy. Listeners and configuration survive every
// reconnect; in-flight flows do not and are failed with ErrSessionClosed.
//
// # Transport
//
// The engine never dials a socket itself. Callers supply a TransportFactory
// producing a Transport (an io.Reader/io.Writer/io.Closer) for each
// connect/reconnect attempt, which makes the engine testable over
// net.Pipe or any other duplex.
package mq

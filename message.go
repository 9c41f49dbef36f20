package mq

// Message represents an MQTT message delivered to a listener on a matching
// topic.
type Message struct {
	Topic     string
	Payload   []byte
	QoS       QoS
	Retained  bool
	Duplicate bool
}

// MessageHandler is invoked once per matching listener for every inbound
// PUBLISH. A handler must never block the engine for long: it runs
// synchronously on the session loop's dispatch path in arrival order, so a
// slow handler delays every other packet. Handlers that need to do real
// work should hand off to their own goroutine.
type MessageHandler func(Message)

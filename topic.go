package mq

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// matchTopic reports whether topic matches filter under standard MQTT
// wildcard semantics: '+' matches exactly one level, '#' matches the
// remainder of the topic and must be the last level of filter.
func matchTopic(filter, topic string) bool {
	// MQTT-4.7.2-1: filters starting with a wildcard never match topics
	// starting with '$'.
	if strings.HasPrefix(topic, "$") && (strings.HasPrefix(filter, "+") || strings.HasPrefix(filter, "#")) {
		return false
	}

	filterLevels := strings.Split(filter, "/")
	topicLevels := strings.Split(topic, "/")

	for i, fl := range filterLevels {
		if fl == "#" {
			return true
		}
		if i >= len(topicLevels) {
			return false
		}
		if fl != "+" && fl != topicLevels[i] {
			return false
		}
	}

	return len(filterLevels) == len(topicLevels)
}

// MQTT spec limits used when a ClientConfig leaves the topic-length or
// payload-size limit unset. DefaultMaxIncomingPacket and MaxClientIDLength
// are not consulted by the engine.
const (
	DefaultMaxTopicLength    = 65535
	DefaultMaxPayloadSize    = 268435455
	DefaultMaxIncomingPacket = 268435455
	MaxClientIDLength        = 23
)

func getLimit(configured, defaultLimit int) int {
	if configured > 0 {
		return configured
	}
	return defaultLimit
}

// validatePublishTopic validates a topic name used for PUBLISH. Publish
// topics must not contain wildcards.
func validatePublishTopic(topic string, cfg *ClientConfig) error {
	if topic == "" {
		return fmt.Errorf("mq: topic cannot be empty")
	}
	if len(topic) > getLimit(cfg.MaxTopicLength, DefaultMaxTopicLength) {
		return fmt.Errorf("mq: topic length %d exceeds maximum", len(topic))
	}
	if strings.ContainsAny(topic, "+#") {
		return fmt.Errorf("mq: topic contains a wildcard character, which is not allowed in PUBLISH")
	}
	if strings.Contains(topic, "\x00") {
		return fmt.Errorf("mq: topic contains a null byte")
	}
	if !utf8.ValidString(topic) {
		return fmt.Errorf("mq: topic is not valid UTF-8")
	}
	return nil
}

// validateSubscribeTopic validates a topic filter used for SUBSCRIBE, where
// '+' and '#' wildcards are permitted but constrained to whole levels.
func validateSubscribeTopic(filter string, cfg *ClientConfig) error {
	if filter == "" {
		return fmt.Errorf("mq: topic filter cannot be empty")
	}
	if len(filter) > getLimit(cfg.MaxTopicLength, DefaultMaxTopicLength) {
		return fmt.Errorf("mq: topic filter length %d exceeds maximum", len(filter))
	}
	if strings.Contains(filter, "\x00") {
		return fmt.Errorf("mq: topic filter contains a null byte")
	}
	if !utf8.ValidString(filter) {
		return fmt.Errorf("mq: topic filter is not valid UTF-8")
	}

	parts := strings.Split(filter, "/")
	for i, part := range parts {
		if strings.Contains(part, "+") && part != "+" {
			return fmt.Errorf("mq: single-level wildcard '+' must occupy an entire topic level")
		}
		if strings.Contains(part, "#") {
			if part != "#" {
				return fmt.Errorf("mq: multi-level wildcard '#' must occupy an entire topic level")
			}
			if i != len(parts)-1 {
				return fmt.Errorf("mq: multi-level wildcard '#' must be the last level")
			}
		}
	}
	return nil
}

// validatePayload validates an outbound PUBLISH payload size.
func validatePayload(payload []byte, cfg *ClientConfig) error {
	if len(payload) > getLimit(cfg.MaxPayloadSize, DefaultMaxPayloadSize) {
		return fmt.Errorf("mq: payload size %d exceeds maximum", len(payload))
	}
	return nil
}

package protocol

import (
	"strconv"
	"strings"
)

// Reserved service topics. Anything under ServicePrefix is a control topic
// and is never routed as a user channel.
const (
	ServicePrefix = "emitter/"
	KeygenTopic   = "emitter/keygen/"
	PresenceTopic = "emitter/presence/"
	LinkTopic     = "emitter/link/"
	ErrorTopic    = "emitter/error/"
	MeTopic       = "emitter/me/"
)

const (
	// OptionRetain asks the broker to retain the published message.
	OptionRetain = "+r"
	// OptionAtLeastOnce publishes or subscribes with QoS 1.
	OptionAtLeastOnce = "+1"
)

// IsServiceTopic reports whether topic lies under the reserved service prefix.
func IsServiceTopic(topic string) bool {
	return strings.HasPrefix(topic, ServicePrefix)
}

// WithTTL sets the time to live, in seconds, of a stored message.
func WithTTL(seconds int) string {
	return "ttl=" + strconv.Itoa(seconds)
}

// WithLast requests the last n stored messages on subscribe.
func WithLast(n int) string {
	return "last=" + strconv.Itoa(n)
}

// WithFrom requests stored messages published at or after unix time from.
func WithFrom(from int64) string {
	return "from=" + strconv.FormatInt(from, 10)
}

// WithUntil requests stored messages published at or before unix time until.
func WithUntil(until int64) string {
	return "until=" + strconv.FormatInt(until, 10)
}

// WithoutEcho suppresses delivery of the client's own publishes back to it.
func WithoutEcho() string {
	return "me=0"
}

// WithRetain is the OptionRetain flag.
func WithRetain() string {
	return OptionRetain
}

// WithAtLeastOnce is the OptionAtLeastOnce flag.
func WithAtLeastOnce() string {
	return OptionAtLeastOnce
}

// Header extracts the MQTT delivery flags from options. qos is 0 or 1.
func Header(options []string) (qos byte, retain bool) {
	for _, o := range options {
		switch o {
		case OptionRetain:
			retain = true
		case OptionAtLeastOnce:
			qos = 1
		}
	}
	return qos, retain
}

// FormatChannel builds "<key>/<channel>/[?options]".
func FormatChannel(key, channel string, options ...string) string {
	return strings.Trim(key, "/") + "/" + strings.Trim(channel, "/") + "/" + formatOptions(options)
}

// FormatShare builds "<key>/$share/<group>/<channel>/[?options]".
func FormatShare(key, channel, group string, options ...string) string {
	return strings.Trim(key, "/") + "/$share/" + strings.Trim(group, "/") + "/" +
		strings.Trim(channel, "/") + "/" + formatOptions(options)
}

// FormatLink builds the "<channel>/[?options]" form carried inside a link request.
func FormatLink(channel string, options ...string) string {
	return strings.Trim(channel, "/") + "/" + formatOptions(options)
}

func formatOptions(options []string) string {
	kept := make([]string, 0, len(options))
	for _, o := range options {
		if o == "" || o[0] == '+' {
			continue
		}
		kept = append(kept, o)
	}
	if len(kept) == 0 {
		return ""
	}
	return "?" + strings.Join(kept, "&")
}

package transport

import "context"

// QoS is the MQTT delivery guarantee.
type QoS byte

const (
	// AtMostOnce is fire-and-forget delivery; publishes get no identifier.
	AtMostOnce QoS = 0
	// AtLeastOnce is acknowledged delivery; publishes get a packet identifier.
	AtLeastOnce QoS = 1
)

// MessageHandler receives every inbound message.
type MessageHandler func(topic string, payload []byte)

// Hooks are the callbacks a transport invokes. Nil fields are skipped.
type Hooks struct {
	// OnMessage is called for each inbound message, one at a time.
	OnMessage MessageHandler

	// OnConnect is called after each successful (re)connection.
	OnConnect func()

	// OnConnectionLost is called when an established connection drops.
	OnConnectionLost func(err error)
}

// Transport is the connection a client publishes and subscribes through.
type Transport interface {
	// SetHooks installs the callbacks. Must be called before Connect.
	SetHooks(hooks Hooks)

	// Connect establishes the connection.
	Connect(ctx context.Context) error

	// Disconnect closes the connection.
	Disconnect(ctx context.Context) error

	// IsConnected reports whether the connection is currently up.
	IsConnected() bool

	// Publish sends payload to topic and returns once the transport has
	// accepted it (for AtLeastOnce, once the broker has acknowledged it).
	// The returned identifier is 0 when the transport assigned none.
	Publish(ctx context.Context, topic string, payload []byte, qos QoS, retain bool) (uint16, error)

	// PublishNotify is Publish with an assigned callback that receives the
	// packet identifier as soon as it is allocated and before the
	// acknowledgement is awaited. A reply correlated by that identifier may
	// arrive before PublishNotify returns. assigned may be nil.
	PublishNotify(ctx context.Context, topic string, payload []byte, qos QoS, retain bool, assigned func(id uint16)) (uint16, error)

	// Subscribe registers interest in a topic filter.
	Subscribe(ctx context.Context, filter string, qos QoS) error

	// Unsubscribe removes interest in a topic filter.
	Unsubscribe(ctx context.Context, filter string) error
}

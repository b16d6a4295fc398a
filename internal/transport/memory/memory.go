package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/rmacdonaldsmith/emitter-go/internal/routingtable"
	"github.com/rmacdonaldsmith/emitter-go/pkg/protocol"
	"github.com/rmacdonaldsmith/emitter-go/pkg/transport"
)

var (
	// ErrNotConnected is returned for operations attempted before Connect
	ErrNotConnected = errors.New("transport is not connected")
	// ErrEmptyTopic is returned when publishing to or subscribing on an empty topic
	ErrEmptyTopic = errors.New("topic cannot be empty")
)

// Record is one message accepted by Publish.
type Record struct {
	ID      uint16
	Topic   string
	Payload []byte
	QoS     transport.QoS
	Retain  bool
}

// Transport implements transport.Transport in memory. Publishes are kept in
// an ordered log, packet identifiers are assigned to AtLeastOnce publishes
// the way a broker connection would, and Deliver injects inbound messages.
// It is safe for concurrent use.
type Transport struct {
	mu        sync.Mutex
	hooks     transport.Hooks
	connected bool
	echo      bool
	nextID    uint16
	published []Record
	filters   map[string]string // filter -> channel pattern
	channels  *routingtable.ReverseTrie[string]
	failNext  error

	// deliverMu serializes inbound delivery like a real connection does.
	deliverMu sync.Mutex
}

// Option configures a Transport.
type Option func(*Transport)

// WithEcho delivers user-channel publishes back to the transport when a
// subscribed filter matches, mirroring the broker's default echo.
func WithEcho() Option {
	return func(t *Transport) {
		t.echo = true
	}
}

// NewTransport creates a disconnected in-memory transport.
func NewTransport(opts ...Option) *Transport {
	t := &Transport{
		filters:  make(map[string]string),
		channels: routingtable.NewReverseTrie[string](),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SetHooks installs the callbacks.
func (t *Transport) SetHooks(hooks transport.Hooks) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hooks = hooks
}

// Connect marks the transport connected and fires OnConnect.
func (t *Transport) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	t.connected = true
	onConnect := t.hooks.OnConnect
	t.mu.Unlock()

	if onConnect != nil {
		onConnect()
	}
	return nil
}

// Disconnect marks the transport disconnected. Subscriptions are kept.
func (t *Transport) Disconnect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected = false
	return nil
}

// IsConnected reports whether Connect has been called since the last disconnect.
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// Publish appends a record to the log. AtLeastOnce publishes get the next
// 16-bit identifier, skipping 0 on wrap-around.
func (t *Transport) Publish(ctx context.Context, topic string, payload []byte, qos transport.QoS, retain bool) (uint16, error) {
	return t.PublishNotify(ctx, topic, payload, qos, retain, nil)
}

// PublishNotify is Publish that passes the identifier to assigned once the
// record is logged and before any echo is delivered.
func (t *Transport) PublishNotify(ctx context.Context, topic string, payload []byte, qos transport.QoS, retain bool, assigned func(id uint16)) (uint16, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if topic == "" {
		return 0, ErrEmptyTopic
	}

	t.mu.Lock()
	if err := t.checkLocked(); err != nil {
		t.mu.Unlock()
		return 0, err
	}

	var id uint16
	if qos > transport.AtMostOnce {
		t.nextID++
		if t.nextID == 0 {
			t.nextID = 1
		}
		id = t.nextID
	}

	t.published = append(t.published, Record{
		ID:      id,
		Topic:   topic,
		Payload: append([]byte(nil), payload...),
		QoS:     qos,
		Retain:  retain,
	})

	var echoTo string
	if t.echo && !protocol.IsServiceTopic(topic) {
		if channel := channelOf(topic); len(t.channels.Match(channel)) > 0 {
			echoTo = channel
		}
	}
	t.mu.Unlock()

	if assigned != nil {
		assigned(id)
	}
	if echoTo != "" {
		t.Deliver(echoTo, payload)
	}
	return id, nil
}

// Subscribe records the filter.
func (t *Transport) Subscribe(ctx context.Context, filter string, qos transport.QoS) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if filter == "" {
		return ErrEmptyTopic
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkLocked(); err != nil {
		return err
	}

	channel := channelOf(filter)
	t.filters[filter] = channel
	t.channels.Register(channel, filter)
	return nil
}

// Unsubscribe forgets the filter. Unknown filters are ignored.
func (t *Transport) Unsubscribe(ctx context.Context, filter string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkLocked(); err != nil {
		return err
	}

	if channel, ok := t.filters[filter]; ok {
		delete(t.filters, filter)
		t.channels.Unregister(channel)
	}
	return nil
}

// Deliver hands an inbound message to the OnMessage hook, as if the broker
// had sent it. Deliveries are serialized.
func (t *Transport) Deliver(topic string, payload []byte) {
	t.mu.Lock()
	onMessage := t.hooks.OnMessage
	t.mu.Unlock()

	if onMessage == nil {
		return
	}

	t.deliverMu.Lock()
	defer t.deliverMu.Unlock()
	onMessage(topic, payload)
}

// DropConnection simulates an unexpected connection loss.
func (t *Transport) DropConnection(err error) {
	t.mu.Lock()
	t.connected = false
	onLost := t.hooks.OnConnectionLost
	t.mu.Unlock()

	if onLost != nil {
		onLost(err)
	}
}

// FailNext makes the next Publish, Subscribe or Unsubscribe return err.
func (t *Transport) FailNext(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failNext = err
}

// Published returns a copy of the publish log, oldest first.
func (t *Transport) Published() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Record(nil), t.published...)
}

// LastPublished returns the most recent record.
func (t *Transport) LastPublished() (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.published) == 0 {
		return Record{}, false
	}
	return t.published[len(t.published)-1], true
}

// Subscriptions returns the current filters in sorted order.
func (t *Transport) Subscriptions() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	filters := make([]string, 0, len(t.filters))
	for f := range t.filters {
		filters = append(filters, f)
	}
	sort.Strings(filters)
	return filters
}

func (t *Transport) checkLocked() error {
	if err := t.failNext; err != nil {
		t.failNext = nil
		return err
	}
	if !t.connected {
		return ErrNotConnected
	}
	return nil
}

// channelOf strips the key, share group and options from an address,
// leaving the channel as the broker would deliver it.
func channelOf(address string) string {
	if i := strings.IndexByte(address, '?'); i >= 0 {
		address = address[:i]
	}
	parts := strings.SplitN(strings.Trim(address, "/"), "/", 2)
	if len(parts) < 2 {
		return ""
	}
	rest := parts[1]
	if strings.HasPrefix(rest, "$share/") {
		share := strings.SplitN(rest, "/", 3)
		if len(share) < 3 {
			return ""
		}
		rest = share[2]
	}
	return rest + "/"
}

// Verify that Transport implements the Transport interface at compile time
var _ transport.Transport = (*Transport)(nil)

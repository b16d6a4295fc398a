package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/rmacdonaldsmith/emitter-go/pkg/transport"
)

// ErrNotConnected is returned for operations attempted while disconnected
var ErrNotConnected = errors.New("not connected to broker")

// Transport implements transport.Transport over an MQTT 3.1.1 connection
// managed by the Eclipse Paho client. Inbound messages arrive on Paho's
// default publish handler, in order, and are forwarded to the OnMessage hook.
type Transport struct {
	mu     sync.RWMutex
	config Config
	client paho.Client
	hooks  transport.Hooks
	logger *zap.Logger
}

// NewTransport creates a transport for the given configuration. It does not connect.
func NewTransport(config Config) (*Transport, error) {
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mqtt config: %w", err)
	}

	t := &Transport{
		config: config,
		logger: config.Logger.Named("mqtt"),
	}

	opts := paho.NewClientOptions().
		SetClientID(config.ClientID).
		SetProtocolVersion(4).
		SetCleanSession(true).
		SetOrderMatters(true).
		SetAutoReconnect(config.AutoReconnect).
		SetMaxReconnectInterval(config.ReconnectDelay).
		SetConnectTimeout(config.ConnectTimeout).
		SetDefaultPublishHandler(t.onMessage).
		SetOnConnectHandler(t.onConnect).
		SetConnectionLostHandler(t.onConnectionLost)

	for _, b := range config.Brokers {
		opts.AddBroker(b)
	}
	if config.Username != "" {
		opts.SetUsername(config.Username)
		opts.SetPassword(config.Password)
	}
	if config.TLSConfig != nil {
		opts.SetTLSConfig(config.TLSConfig)
	}

	t.client = paho.NewClient(opts)
	return t, nil
}

// SetHooks installs the callbacks.
func (t *Transport) SetHooks(hooks transport.Hooks) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hooks = hooks
}

// Connect dials the first reachable broker.
func (t *Transport) Connect(ctx context.Context) error {
	if err := wait(ctx, t.client.Connect()); err != nil {
		return fmt.Errorf("connect to %v: %w", t.config.Brokers, err)
	}
	return nil
}

// Disconnect closes the connection, waiting at most QuiesceTime for in-flight work.
func (t *Transport) Disconnect(ctx context.Context) error {
	if !t.client.IsConnectionOpen() {
		return nil
	}

	quiesce := t.config.QuiesceTime
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < quiesce {
			if remaining < 0 {
				remaining = 0
			}
			quiesce = remaining
		}
	}
	t.client.Disconnect(uint(quiesce.Milliseconds()))
	t.logger.Info("disconnected")
	return nil
}

// IsConnected reports whether the connection is currently up.
func (t *Transport) IsConnected() bool {
	return t.client.IsConnectionOpen()
}

// Publish sends payload and returns the packet identifier Paho assigned.
func (t *Transport) Publish(ctx context.Context, topic string, payload []byte, qos transport.QoS, retain bool) (uint16, error) {
	return t.PublishNotify(ctx, topic, payload, qos, retain, nil)
}

// PublishNotify hands Paho's packet identifier to assigned before waiting on
// the PUBACK. Paho allocates the identifier inside Client.Publish.
func (t *Transport) PublishNotify(ctx context.Context, topic string, payload []byte, qos transport.QoS, retain bool, assigned func(id uint16)) (uint16, error) {
	if !t.client.IsConnectionOpen() {
		return 0, ErrNotConnected
	}

	token := t.client.Publish(topic, byte(qos), retain, payload)

	var id uint16
	if pt, ok := token.(*paho.PublishToken); ok {
		id = pt.MessageID()
	}
	if assigned != nil {
		assigned(id)
	}

	if err := wait(ctx, token); err != nil {
		return id, fmt.Errorf("publish to %s: %w", topic, err)
	}
	return id, nil
}

// Subscribe registers a filter. Messages are delivered through the default handler.
func (t *Transport) Subscribe(ctx context.Context, filter string, qos transport.QoS) error {
	if !t.client.IsConnectionOpen() {
		return ErrNotConnected
	}
	if err := wait(ctx, t.client.Subscribe(filter, byte(qos), nil)); err != nil {
		return fmt.Errorf("subscribe to %s: %w", filter, err)
	}
	return nil
}

// Unsubscribe removes a filter.
func (t *Transport) Unsubscribe(ctx context.Context, filter string) error {
	if !t.client.IsConnectionOpen() {
		return ErrNotConnected
	}
	if err := wait(ctx, t.client.Unsubscribe(filter)); err != nil {
		return fmt.Errorf("unsubscribe from %s: %w", filter, err)
	}
	return nil
}

func (t *Transport) onMessage(_ paho.Client, msg paho.Message) {
	t.mu.RLock()
	handler := t.hooks.OnMessage
	t.mu.RUnlock()

	if handler == nil {
		t.logger.Debug("dropping inbound message, no handler", zap.String("topic", msg.Topic()))
		return
	}
	handler(msg.Topic(), msg.Payload())
}

func (t *Transport) onConnect(_ paho.Client) {
	t.logger.Info("connected", zap.Strings("brokers", t.config.Brokers))

	t.mu.RLock()
	hook := t.hooks.OnConnect
	t.mu.RUnlock()
	if hook != nil {
		hook()
	}
}

func (t *Transport) onConnectionLost(_ paho.Client, err error) {
	t.logger.Warn("connection lost", zap.Error(err), zap.Bool("autoReconnect", t.config.AutoReconnect))

	t.mu.RLock()
	hook := t.hooks.OnConnectionLost
	t.mu.RUnlock()
	if hook != nil {
		hook(err)
	}
}

// wait blocks until the token completes or ctx is done.
func wait(ctx context.Context, token paho.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Verify that Transport implements the Transport interface at compile time
var _ transport.Transport = (*Transport)(nil)

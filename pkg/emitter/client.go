package emitter

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/rmacdonaldsmith/emitter-go/internal/metrics"
	"github.com/rmacdonaldsmith/emitter-go/internal/router"
	"github.com/rmacdonaldsmith/emitter-go/internal/transport/mqtt"
	"github.com/rmacdonaldsmith/emitter-go/pkg/protocol"
	"github.com/rmacdonaldsmith/emitter-go/pkg/transport"
)

// Handler types. A returned error is reported to the OnError callback.
type (
	MessageHandler  = router.MessageHandler
	PresenceHandler = router.PresenceHandler
	KeygenHandler   = router.KeygenHandler
	LinkHandler     = router.LinkHandler
	MeHandler       = router.MeHandler
	ErrorHandler    = router.ErrorHandler
)

const closeTimeout = 5 * time.Second

// Client is a connection to the emitter service.
type Client struct {
	mu     sync.RWMutex
	config *Config

	transport transport.Transport
	router    *router.Router
	metrics   *metrics.Metrics
	logger    *zap.Logger

	// subscriptions maps wire-level filters to the key and channel they serve.
	subscriptions map[string]subscription

	onConnect    func()
	onDisconnect func(error)

	closed bool
}

// NewClient creates a client backed by an MQTT connection. It does not connect.
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	t, err := mqtt.NewTransport(config.transportConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}
	return NewClientWithTransport(config, t)
}

// NewClientWithTransport creates a client over an existing transport.
func NewClientWithTransport(config *Config, t transport.Transport) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if t == nil {
		return nil, fmt.Errorf("transport cannot be nil")
	}
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	c := &Client{
		config:        config,
		transport:     t,
		logger:        config.Logger.Named("emitter").With(zap.String("clientId", config.ClientID)),
		subscriptions: make(map[string]subscription),
	}

	m, err := metrics.New(config.Registerer, config.ClientID, func() float64 {
		return float64(c.router.Pending())
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	c.metrics = m

	c.router = router.New(router.Config{
		Logger:             config.Logger,
		Metrics:            m,
		RequestTTL:         config.RequestTTL,
		MaxPendingRequests: config.MaxPendingRequests,
	})

	t.SetHooks(transport.Hooks{
		OnMessage:        c.router.HandleMessage,
		OnConnect:        c.handleConnect,
		OnConnectionLost: c.handleConnectionLost,
	})
	return c, nil
}

// Connect opens the connection to the broker.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if err := c.transport.Connect(ctx); err != nil {
		return err
	}
	c.logger.Info("connected", zap.String("broker", c.config.Broker))
	return nil
}

// Disconnect closes the connection. Handlers and pending requests are kept,
// so a later Connect resumes where this one left off.
func (c *Client) Disconnect(ctx context.Context) error {
	return c.transport.Disconnect(ctx)
}

// IsConnected reports whether the connection is up.
func (c *Client) IsConnected() bool {
	return c.transport.IsConnected()
}

// Close unsubscribes every channel, disconnects, drops pending keygen and link
// requests and releases the client's metrics. The client cannot be used
// afterwards.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	filters := make([]string, 0, len(c.subscriptions))
	for f := range c.subscriptions {
		filters = append(filters, f)
	}
	c.subscriptions = make(map[string]subscription)
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	var err error
	if c.transport.IsConnected() {
		sort.Strings(filters)
		for _, f := range filters {
			err = multierr.Append(err, c.transport.Unsubscribe(ctx, f))
		}
	}
	err = multierr.Append(err, c.transport.Disconnect(ctx))
	c.router.DropPending()
	c.metrics.Unregister()
	return err
}

// OnMessage sets the handler for channel messages no subscription handler matched.
func (c *Client) OnMessage(handler MessageHandler) {
	c.router.SetDefaultMessageHandler(handler)
}

// OnPresence sets the handler for presence events no presence handler matched.
func (c *Client) OnPresence(handler PresenceHandler) {
	c.router.SetDefaultPresenceHandler(handler)
}

// OnMe sets the handler for replies to Me.
func (c *Client) OnMe(handler MeHandler) {
	c.router.SetMeHandler(handler)
}

// OnError sets the callback for asynchronous failures. Without one they are dropped.
func (c *Client) OnError(handler ErrorHandler) {
	c.router.SetErrorHandler(handler)
}

// OnConnect sets a callback run after every successful (re)connection.
func (c *Client) OnConnect(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConnect = fn
}

// OnDisconnect sets a callback run when the connection is lost unexpectedly.
func (c *Client) OnDisconnect(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDisconnect = fn
}

// PendingRequests returns the number of keygen and link requests awaiting a reply.
func (c *Client) PendingRequests() int {
	return c.router.Pending()
}

// Subscriptions returns the channel patterns with a registered handler.
func (c *Client) Subscriptions() []string {
	patterns := c.router.Channels()
	sort.Strings(patterns)
	return patterns
}

func (c *Client) handleConnect() {
	c.mu.RLock()
	fn := c.onConnect
	c.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (c *Client) handleConnectionLost(err error) {
	c.logger.Warn("connection lost", zap.Error(err))

	c.mu.RLock()
	fn := c.onDisconnect
	c.mu.RUnlock()
	if fn != nil {
		fn(err)
	}
}

func (c *Client) checkOpen() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	return nil
}

// resolveKey substitutes the default key for an empty one.
func (c *Client) resolveKey(key string) (string, error) {
	if key != "" {
		return key, nil
	}
	if c.config.DefaultKey == "" {
		return "", ErrNoDefaultKey
	}
	return c.config.DefaultKey, nil
}

// prepare runs the synchronous checks shared by key-taking operations.
func (c *Client) prepare(key, channel string) (string, error) {
	if err := c.checkOpen(); err != nil {
		return "", err
	}
	key, err := c.resolveKey(key)
	if err != nil {
		return "", err
	}
	if channel == "" {
		return "", ErrEmptyChannel
	}
	return key, nil
}

// request publishes a JSON body on a service topic. assigned, if non-nil,
// receives the packet identifier before the acknowledgement is awaited.
func (c *Client) request(ctx context.Context, topic, kind string, body any, qos transport.QoS, assigned func(id uint16)) (uint16, error) {
	payload, err := protocol.Encode(body)
	if err != nil {
		return 0, err
	}
	id, err := c.transport.PublishNotify(ctx, topic, payload, qos, false, assigned)
	if err != nil {
		return id, fmt.Errorf("%s request: %w", kind, err)
	}
	c.metrics.Published(kind)
	return id, nil
}

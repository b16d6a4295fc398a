package emitter

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/rmacdonaldsmith/emitter-go/internal/transport/mqtt"
)

const (
	// DefaultBroker is the public emitter.io endpoint.
	DefaultBroker = "tcp://api.emitter.io:8080"
	// DefaultSecureBroker is the public emitter.io TLS endpoint.
	DefaultSecureBroker = "ssl://api.emitter.io:443"
)

var (
	// ErrInvalidBroker is returned when the broker URL cannot be used
	ErrInvalidBroker = errors.New("invalid broker address")
	// ErrInvalidLimits is returned for negative request limits
	ErrInvalidLimits = errors.New("request TTL and max pending requests cannot be negative")
)

// Config represents configuration for a Client
type Config struct {
	// Broker is the MQTT endpoint, e.g. "tcp://host:8080", "ssl://host:443" or "wss://host/".
	// Empty selects DefaultBroker or DefaultSecureBroker depending on Secure.
	Broker string
	Secure bool

	// DefaultKey is used by every operation called with an empty key.
	DefaultKey string

	// ClientID identifies the MQTT session. Empty generates a random one.
	ClientID string
	Username string
	Password string

	AutoReconnect  bool
	ReconnectDelay time.Duration
	ConnectTimeout time.Duration

	// RequestTTL drops keygen and link requests that get no reply in time.
	// Zero keeps them until a reply arrives.
	RequestTTL time.Duration
	// MaxPendingRequests bounds outstanding keygen and link requests.
	// Zero is unbounded.
	MaxPendingRequests int

	Logger     *zap.Logger
	Registerer prometheus.Registerer
}

// NewConfig creates a new Client configuration with safe defaults
func NewConfig(broker, defaultKey string) *Config {
	config := &Config{
		Broker:        broker,
		DefaultKey:    defaultKey,
		AutoReconnect: true,
	}
	config.SetDefaults()
	return config
}

// SetDefaults sets sensible default values for unset configuration fields
func (c *Config) SetDefaults() {
	if c.Broker == "" {
		if c.Secure {
			c.Broker = DefaultSecureBroker
		} else {
			c.Broker = DefaultBroker
		}
	}
	if c.ClientID == "" {
		c.ClientID = uuid.NewString()
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = 2 * time.Second
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if err := mqtt.ValidateBroker(c.Broker); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBroker, err)
	}
	if c.RequestTTL < 0 || c.MaxPendingRequests < 0 {
		return ErrInvalidLimits
	}
	return nil
}

// WithSecure switches an unset or default broker to the TLS endpoint
func (c *Config) WithSecure() *Config {
	c.Secure = true
	if c.Broker == "" || c.Broker == DefaultBroker {
		c.Broker = DefaultSecureBroker
	}
	return c
}

// WithClientID sets the MQTT client identifier
func (c *Config) WithClientID(id string) *Config {
	c.ClientID = id
	return c
}

// WithCredentials sets the MQTT username and password
func (c *Config) WithCredentials(username, password string) *Config {
	c.Username = username
	c.Password = password
	return c
}

// WithAutoReconnect enables or disables reconnection after connection loss
func (c *Config) WithAutoReconnect(enabled bool, delay time.Duration) *Config {
	c.AutoReconnect = enabled
	if delay > 0 {
		c.ReconnectDelay = delay
	}
	return c
}

// WithConnectTimeout sets how long a connection attempt may take
func (c *Config) WithConnectTimeout(timeout time.Duration) *Config {
	c.ConnectTimeout = timeout
	return c
}

// WithRequestLimits bounds pending keygen and link requests
func (c *Config) WithRequestLimits(ttl time.Duration, maxPending int) *Config {
	c.RequestTTL = ttl
	c.MaxPendingRequests = maxPending
	return c
}

// WithLogger sets the logger
func (c *Config) WithLogger(logger *zap.Logger) *Config {
	c.Logger = logger
	return c
}

// WithRegisterer sets where metrics are registered
func (c *Config) WithRegisterer(reg prometheus.Registerer) *Config {
	c.Registerer = reg
	return c
}

func (c *Config) transportConfig() mqtt.Config {
	return mqtt.Config{
		Brokers:        []string{c.Broker},
		ClientID:       c.ClientID,
		Username:       c.Username,
		Password:       c.Password,
		AutoReconnect:  c.AutoReconnect,
		ReconnectDelay: c.ReconnectDelay,
		ConnectTimeout: c.ConnectTimeout,
		Logger:         c.Logger,
	}
}

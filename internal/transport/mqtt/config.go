package mqtt

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrNoBrokers is returned when no broker address is configured
	ErrNoBrokers = errors.New("at least one broker address is required")
	// ErrEmptyClientID is returned when the client ID is empty
	ErrEmptyClientID = errors.New("client ID cannot be empty")
)

// Config holds configuration for the Paho-backed transport.
type Config struct {
	// Brokers are tried in order, e.g. "ssl://api.emitter.io:443" or "wss://host/".
	// The scheme selects TCP, TLS or WebSocket.
	Brokers []string

	ClientID string
	Username string
	Password string

	// TLSConfig overrides the default TLS settings for ssl/tls/wss brokers.
	TLSConfig *tls.Config

	AutoReconnect  bool
	ReconnectDelay time.Duration
	ConnectTimeout time.Duration

	// QuiesceTime bounds how long Disconnect waits for in-flight work.
	QuiesceTime time.Duration

	Logger *zap.Logger
}

var supportedSchemes = map[string]bool{
	"tcp": true, "mqtt": true, "ssl": true, "tls": true, "mqtts": true, "ws": true, "wss": true,
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if len(c.Brokers) == 0 {
		return ErrNoBrokers
	}
	for _, b := range c.Brokers {
		if err := ValidateBroker(b); err != nil {
			return err
		}
	}
	if c.ClientID == "" {
		return ErrEmptyClientID
	}
	return nil
}

// SetDefaults sets sensible default values for unset configuration fields
func (c *Config) SetDefaults() {
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = 2 * time.Second
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.QuiesceTime <= 0 {
		c.QuiesceTime = 250 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// ValidateBroker checks that broker is a URL with a supported scheme and a host.
func ValidateBroker(broker string) error {
	u, err := url.Parse(broker)
	if err != nil {
		return fmt.Errorf("invalid broker %q: %w", broker, err)
	}
	if !supportedSchemes[u.Scheme] {
		return fmt.Errorf("invalid broker %q: unsupported scheme %q", broker, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid broker %q: missing host", broker)
	}
	return nil
}

package emitter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	config := NewConfig("tcp://localhost:8080", "key")

	assert.Equal(t, "tcp://localhost:8080", config.Broker)
	assert.Equal(t, "key", config.DefaultKey)
	assert.True(t, config.AutoReconnect)
	assert.NotEmpty(t, config.ClientID, "a random client id is generated")
	assert.Equal(t, 2*time.Second, config.ReconnectDelay)
	assert.Equal(t, 10*time.Second, config.ConnectTimeout)
	assert.NotNil(t, config.Logger)
	require.NoError(t, config.Validate())
}

func TestConfig_DefaultBroker(t *testing.T) {
	plain := &Config{}
	plain.SetDefaults()
	assert.Equal(t, DefaultBroker, plain.Broker)

	secure := &Config{Secure: true}
	secure.SetDefaults()
	assert.Equal(t, DefaultSecureBroker, secure.Broker)

	assert.Equal(t, DefaultSecureBroker, NewConfig("", "").WithSecure().Broker)
	assert.Equal(t, "wss://custom/", NewConfig("wss://custom/", "").WithSecure().Broker)
}

func TestConfig_ClientIDsAreUnique(t *testing.T) {
	assert.NotEqual(t, NewConfig("", "").ClientID, NewConfig("", "").ClientID)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{"valid", func(*Config) {}, nil},
		{"bad scheme", func(c *Config) { c.Broker = "http://localhost" }, ErrInvalidBroker},
		{"no host", func(c *Config) { c.Broker = "tcp://" }, ErrInvalidBroker},
		{"negative ttl", func(c *Config) { c.RequestTTL = -time.Second }, ErrInvalidLimits},
		{"negative max", func(c *Config) { c.MaxPendingRequests = -1 }, ErrInvalidLimits},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := NewConfig("tcp://localhost:8080", "")
			tt.modify(config)

			err := config.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestConfig_Builders(t *testing.T) {
	config := NewConfig("tcp://localhost:8080", "k").
		WithClientID("me").
		WithCredentials("user", "pass").
		WithAutoReconnect(false, 5*time.Second).
		WithConnectTimeout(time.Second).
		WithRequestLimits(time.Minute, 100)

	assert.Equal(t, "me", config.ClientID)
	assert.Equal(t, "user", config.Username)
	assert.Equal(t, "pass", config.Password)
	assert.False(t, config.AutoReconnect)
	assert.Equal(t, 5*time.Second, config.ReconnectDelay)
	assert.Equal(t, time.Second, config.ConnectTimeout)
	assert.Equal(t, time.Minute, config.RequestTTL)
	assert.Equal(t, 100, config.MaxPendingRequests)

	tc := config.transportConfig()
	assert.Equal(t, []string{"tcp://localhost:8080"}, tc.Brokers)
	assert.Equal(t, "me", tc.ClientID)
	assert.Equal(t, "user", tc.Username)
}

func TestNewClient_MQTT(t *testing.T) {
	client, err := NewClient(NewConfig("tcp://127.0.0.1:1", "k"))
	require.NoError(t, err)
	assert.False(t, client.IsConnected())
	assert.NoError(t, client.Close())

	_, err = NewClient(nil)
	assert.Error(t, err)

	_, err = NewClient(NewConfig("bogus://x", ""))
	assert.ErrorIs(t, err, ErrInvalidBroker)
}

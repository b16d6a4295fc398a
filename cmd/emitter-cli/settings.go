package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rmacdonaldsmith/emitter-go/pkg/emitter"
)

// settings are the connection parameters shared by every command
type settings struct {
	Broker   string        `yaml:"broker"`
	Key      string        `yaml:"key"`
	ClientID string        `yaml:"client_id"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Secure   bool          `yaml:"secure"`
	Timeout  time.Duration `yaml:"timeout"`
}

// loadProfile reads a YAML profile. An empty path yields empty settings.
func loadProfile(path string) (settings, error) {
	var s settings
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("failed to read profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("invalid profile %s: %w", path, err)
	}
	return s, nil
}

// resolveSettings layers profile, environment and explicitly set flags.
func resolveSettings(path string, lookupEnv func(string) (string, bool), flags settings, changed func(string) bool) (settings, error) {
	s, err := loadProfile(path)
	if err != nil {
		return s, err
	}

	env := func(name string, dst *string) {
		if v, ok := lookupEnv(name); ok && v != "" {
			*dst = v
		}
	}
	env("EMITTER_BROKER", &s.Broker)
	env("EMITTER_KEY", &s.Key)
	env("EMITTER_CLIENT_ID", &s.ClientID)
	env("EMITTER_USERNAME", &s.Username)
	env("EMITTER_PASSWORD", &s.Password)
	if v, ok := lookupEnv("EMITTER_SECURE"); ok {
		s.Secure = v == "1" || v == "true"
	}

	if changed("broker") {
		s.Broker = flags.Broker
	}
	if changed("key") {
		s.Key = flags.Key
	}
	if changed("client-id") {
		s.ClientID = flags.ClientID
	}
	if changed("username") {
		s.Username = flags.Username
	}
	if changed("password") {
		s.Password = flags.Password
	}
	if changed("secure") {
		s.Secure = flags.Secure
	}
	if changed("timeout") || s.Timeout <= 0 {
		s.Timeout = flags.Timeout
	}
	if s.Timeout <= 0 {
		s.Timeout = 10 * time.Second
	}
	return s, nil
}

func (s settings) clientConfig() *emitter.Config {
	config := &emitter.Config{
		Broker:        s.Broker,
		Secure:        s.Secure,
		DefaultKey:    s.Key,
		ClientID:      s.ClientID,
		Username:      s.Username,
		Password:      s.Password,
		AutoReconnect: true,
	}
	config.SetDefaults()
	return config.WithConnectTimeout(s.Timeout)
}

// Package transport defines the pub/sub connection the client is layered on.
//
// A Transport is an MQTT-capable connection: it publishes, subscribes, and
// delivers inbound (topic, payload) pairs to a single callback. The wire
// protocol, TLS, WebSocket framing, and reconnection are its concern; the
// client only relies on the contract below.
//
// Implementations live under internal/transport:
//   - mqtt:   a broker connection backed by the Eclipse Paho client
//   - memory: an in-process loopback used in tests and offline examples
//
// Inbound delivery is serialized per connection. Hooks must be installed
// before Connect.
package transport

package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// KeygenRequest asks the service to derive a channel key from a secret key.
type KeygenRequest struct {
	Key     string `json:"key"`
	Channel string `json:"channel"`
	Type    string `json:"type"`
	TTL     int    `json:"ttl"` // seconds, 0 = no expiry
}

// KeygenResponse is the reply on KeygenTopic.
type KeygenResponse struct {
	Status    int    `json:"status"`
	RequestID uint16 `json:"requestId"`
	Key       string `json:"key,omitempty"`
	Channel   string `json:"channel,omitempty"`
}

// PresenceRequest subscribes to, unsubscribes from, or polls presence on a channel.
type PresenceRequest struct {
	Key     string `json:"key"`
	Channel string `json:"channel"`
	Status  bool   `json:"status"`  // request a full member snapshot
	Changes *bool  `json:"changes"` // nil leaves the change subscription untouched
}

// Presence event kinds.
const (
	PresenceStatus      = "status"
	PresenceSubscribe   = "subscribe"
	PresenceUnsubscribe = "unsubscribe"
)

// PresenceEvent is a presence notification on PresenceTopic.
type PresenceEvent struct {
	Time    int64       `json:"time"`
	Event   string      `json:"event"`
	Channel string      `json:"channel"`
	Who     PresenceWho `json:"who"`
}

// PresenceInfo identifies one channel member.
type PresenceInfo struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
}

// PresenceWho holds the members carried by a presence event. Status events
// carry an array, join/leave events a single object; both decode here.
type PresenceWho []PresenceInfo

// UnmarshalJSON accepts either a single member object or an array of them.
func (w *PresenceWho) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*w = nil
		return nil
	case data[0] == '{':
		var one PresenceInfo
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*w = PresenceWho{one}
		return nil
	default:
		var many []PresenceInfo
		if err := json.Unmarshal(data, &many); err != nil {
			return err
		}
		*w = many
		return nil
	}
}

// LinkRequest creates a short alias for a channel.
type LinkRequest struct {
	Key       string `json:"key"`
	Channel   string `json:"channel"` // channel plus options, see FormatLink
	Name      string `json:"name"`
	Subscribe bool   `json:"subscribe"`
}

// LinkResponse is the reply on LinkTopic.
type LinkResponse struct {
	Status    int    `json:"status"`
	RequestID uint16 `json:"requestId"`
	Name      string `json:"name,omitempty"`
	Channel   string `json:"channel,omitempty"`
}

// ErrorEvent is the body published on ErrorTopic.
type ErrorEvent struct {
	Status    int    `json:"status"`
	Message   string `json:"message"`
	RequestID uint16 `json:"requestId,omitempty"`
}

// MeResponse describes the current connection.
type MeResponse struct {
	ID    string            `json:"id"`
	Links map[string]string `json:"links,omitempty"`
}

// Encode serializes a request body.
func Encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return b, nil
}

// Decode parses a reply body into a new T.
func Decode[T any](payload []byte) (*T, error) {
	v := new(T)
	if err := json.Unmarshal(payload, v); err != nil {
		return nil, fmt.Errorf("decode %T: %w", v, err)
	}
	return v, nil
}

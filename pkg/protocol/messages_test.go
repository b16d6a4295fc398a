package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresenceRequest_ChangesNullable(t *testing.T) {
	changes := true

	b, err := Encode(PresenceRequest{Key: "k", Channel: "lobby", Status: true, Changes: &changes})
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"k","channel":"lobby","status":true,"changes":true}`, string(b))

	b, err = Encode(PresenceRequest{Key: "k", Channel: "lobby", Status: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"k","channel":"lobby","status":true,"changes":null}`, string(b))
}

func TestKeygenRequest_Encode(t *testing.T) {
	b, err := Encode(KeygenRequest{Key: "secret", Channel: "chat/#/", Type: (AccessRead | AccessWrite).String(), TTL: 3600})
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"secret","channel":"chat/#/","type":"rw","ttl":3600}`, string(b))
}

func TestLinkRequest_Encode(t *testing.T) {
	b, err := Encode(LinkRequest{Key: "k", Channel: FormatLink("chat", WithTTL(10)), Name: "a0", Subscribe: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"k","channel":"chat/?ttl=10","name":"a0","subscribe":true}`, string(b))
}

func TestDecodeKeygenResponse(t *testing.T) {
	resp, err := Decode[KeygenResponse]([]byte(`{"status":200,"requestId":7,"key":"derived","channel":"chat/"}`))
	require.NoError(t, err)
	assert.Equal(t, StatusOK, resp.Status)
	assert.Equal(t, uint16(7), resp.RequestID)
	assert.Equal(t, "derived", resp.Key)
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode[KeygenResponse]([]byte(`{"status":`))
	assert.Error(t, err)
}

func TestPresenceEvent_WhoShapes(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    PresenceWho
	}{
		{
			name:    "status array",
			payload: `{"time":1,"event":"status","channel":"lobby/","who":[{"id":"a","username":"ann"},{"id":"b"}]}`,
			want:    PresenceWho{{ID: "a", Username: "ann"}, {ID: "b"}},
		},
		{
			name:    "join object",
			payload: `{"time":2,"event":"subscribe","channel":"lobby/","who":{"id":"c","username":"cat"}}`,
			want:    PresenceWho{{ID: "c", Username: "cat"}},
		},
		{
			name:    "null",
			payload: `{"time":3,"event":"unsubscribe","channel":"lobby/","who":null}`,
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Decode[PresenceEvent]([]byte(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, "lobby/", ev.Channel)
			assert.Equal(t, tt.want, ev.Who)
		})
	}
}

func TestPresenceEvent_BadWho(t *testing.T) {
	_, err := Decode[PresenceEvent]([]byte(`{"channel":"x","who":"nobody"}`))
	assert.Error(t, err)
}

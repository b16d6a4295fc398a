package emitter

import (
	"context"

	"go.uber.org/zap"

	"github.com/rmacdonaldsmith/emitter-go/internal/metrics"
	"github.com/rmacdonaldsmith/emitter-go/pkg/protocol"
	"github.com/rmacdonaldsmith/emitter-go/pkg/transport"
)

// PresenceSubscribe asks for join and leave events on channel. When status is
// true the current members are also sent. A non-nil handler receives events
// for channel; otherwise they go to the OnPresence handler.
func (c *Client) PresenceSubscribe(ctx context.Context, key, channel string, status bool, handler PresenceHandler) error {
	key, err := c.prepare(key, channel)
	if err != nil {
		return err
	}
	if handler != nil {
		c.router.RegisterPresence(channel, handler)
	}

	changes := true
	_, err = c.request(ctx, protocol.PresenceTopic, metrics.KindPresence, &protocol.PresenceRequest{
		Key:     key,
		Channel: channel,
		Status:  status,
		Changes: &changes,
	}, transport.AtLeastOnce, nil)
	return err
}

// PresenceUnsubscribe stops presence events for channel and removes its handler.
func (c *Client) PresenceUnsubscribe(ctx context.Context, key, channel string) error {
	key, err := c.prepare(key, channel)
	if err != nil {
		return err
	}
	c.router.UnregisterPresence(channel)

	changes := false
	_, err = c.request(ctx, protocol.PresenceTopic, metrics.KindPresence, &protocol.PresenceRequest{
		Key:     key,
		Channel: channel,
		Changes: &changes,
	}, transport.AtMostOnce, nil)
	return err
}

// PresenceStatus requests the current members of channel once, without
// changing any event subscription.
func (c *Client) PresenceStatus(ctx context.Context, key, channel string, handler PresenceHandler) error {
	key, err := c.prepare(key, channel)
	if err != nil {
		return err
	}
	if handler != nil {
		c.router.RegisterPresence(channel, handler)
	}

	_, err = c.request(ctx, protocol.PresenceTopic, metrics.KindPresence, &protocol.PresenceRequest{
		Key:     key,
		Channel: channel,
		Status:  true,
	}, transport.AtMostOnce, nil)
	return err
}

// GenerateKey asks the service to derive a channel key. req.Key is the secret
// key; empty uses the default key. handler runs once with the reply and a
// failure status goes to OnError instead. The returned identifier is the
// requestId the reply will carry.
func (c *Client) GenerateKey(ctx context.Context, req protocol.KeygenRequest, handler KeygenHandler) (uint16, error) {
	if handler == nil {
		return 0, ErrNilHandler
	}
	key, err := c.prepare(req.Key, req.Channel)
	if err != nil {
		return 0, err
	}
	req.Key = key

	id, err := c.request(ctx, protocol.KeygenTopic, metrics.KindKeygen, &req, transport.AtLeastOnce, func(id uint16) {
		if !c.router.ExpectKeygen(id, handler) {
			c.logger.Warn("keygen request has no packet identifier, reply cannot be correlated",
				zap.String("channel", req.Channel))
		}
	})
	if err != nil {
		c.router.CancelRequest(id)
		return 0, err
	}
	return id, nil
}

// Link creates a short alias name for channel. With subscribe set the client
// is also subscribed through the link. handler, if non-nil, runs once with the reply.
func (c *Client) Link(ctx context.Context, key, channel, name string, subscribe bool, handler LinkHandler, options ...string) (uint16, error) {
	key, err := c.prepare(key, channel)
	if err != nil {
		return 0, err
	}
	if name == "" {
		return 0, ErrEmptyChannel
	}

	id, err := c.request(ctx, protocol.LinkTopic, metrics.KindLink, &protocol.LinkRequest{
		Key:       key,
		Channel:   protocol.FormatLink(channel, options...),
		Name:      name,
		Subscribe: subscribe,
	}, transport.AtLeastOnce, func(id uint16) {
		if handler != nil {
			c.router.ExpectLink(id, handler)
		}
	})
	if err != nil {
		c.router.CancelRequest(id)
		return 0, err
	}
	return id, nil
}

// Me asks the service for information about this connection. The reply is
// delivered to the OnMe handler.
func (c *Client) Me(ctx context.Context) (uint16, error) {
	if err := c.checkOpen(); err != nil {
		return 0, err
	}
	id, err := c.transport.Publish(ctx, protocol.MeTopic, nil, transport.AtLeastOnce, false)
	if err != nil {
		return 0, err
	}
	c.metrics.Published(metrics.KindMe)
	return id, nil
}

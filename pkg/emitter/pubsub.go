package emitter

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/rmacdonaldsmith/emitter-go/internal/metrics"
	"github.com/rmacdonaldsmith/emitter-go/pkg/protocol"
	"github.com/rmacdonaldsmith/emitter-go/pkg/transport"
)

// Publish sends payload to channel. An empty key uses the default key.
// The "+1" and "+r" options select QoS 1 and retain; other options are
// appended to the topic (see protocol.WithTTL and friends). The returned
// identifier is 0 for QoS 0 publishes.
func (c *Client) Publish(ctx context.Context, key, channel string, payload []byte, options ...string) (uint16, error) {
	key, err := c.prepare(key, channel)
	if err != nil {
		return 0, err
	}

	qos, retain := protocol.Header(options)
	id, err := c.transport.Publish(ctx, protocol.FormatChannel(key, channel, options...), payload, transport.QoS(qos), retain)
	if err != nil {
		return 0, err
	}
	c.metrics.Published(metrics.KindChannel)
	return id, nil
}

// PublishWithLink sends payload to a link created with Link.
func (c *Client) PublishWithLink(ctx context.Context, link string, payload []byte, options ...string) (uint16, error) {
	if err := c.checkOpen(); err != nil {
		return 0, err
	}
	if link == "" {
		return 0, ErrEmptyChannel
	}

	qos, retain := protocol.Header(options)
	id, err := c.transport.Publish(ctx, link, payload, transport.QoS(qos), retain)
	if err != nil {
		return 0, err
	}
	c.metrics.Published(metrics.KindLink)
	return id, nil
}

// Subscribe registers handler for channel, which may contain "+" wildcards,
// and subscribes to it. A nil handler subscribes without registering one, so
// messages reach the OnMessage handler. Re-subscribing replaces the handler.
func (c *Client) Subscribe(ctx context.Context, key, channel string, handler MessageHandler, options ...string) error {
	key, err := c.prepare(key, channel)
	if err != nil {
		return err
	}
	return c.subscribe(ctx, protocol.FormatChannel(key, channel, options...), key, channel, handler, options)
}

// SubscribeWithGroup joins share group so each message on channel is
// delivered to only one member of the group.
func (c *Client) SubscribeWithGroup(ctx context.Context, key, channel, group string, handler MessageHandler, options ...string) error {
	key, err := c.prepare(key, channel)
	if err != nil {
		return err
	}
	if group == "" {
		return ErrEmptyChannel
	}
	return c.subscribe(ctx, protocol.FormatShare(key, channel, group, options...), key, channel, handler, options)
}

// subscription is the key and trimmed channel a wire filter was built from.
type subscription struct {
	key     string
	channel string
}

func (c *Client) subscribe(ctx context.Context, filter, key, channel string, handler MessageHandler, options []string) (err error) {
	if handler != nil {
		previous, hadPrevious := c.router.ChannelHandler(channel)
		c.router.RegisterChannel(channel, handler)
		defer func() {
			if err == nil {
				return
			}
			if hadPrevious {
				c.router.RegisterChannel(channel, previous)
			} else {
				c.router.UnregisterChannel(channel)
			}
		}()
	}

	qos, _ := protocol.Header(options)
	if err = c.transport.Subscribe(ctx, filter, transport.QoS(qos)); err != nil {
		return err
	}

	c.mu.Lock()
	c.subscriptions[filter] = subscription{key: key, channel: strings.Trim(channel, "/")}
	c.mu.Unlock()

	c.logger.Debug("subscribed", zap.String("channel", channel))
	return nil
}

// Unsubscribe removes the handler for channel and unsubscribes every filter
// that was subscribed for key and channel, including ones carrying options or
// a share group.
func (c *Client) Unsubscribe(ctx context.Context, key, channel string) (err error) {
	key, err = c.prepare(key, channel)
	if err != nil {
		return err
	}

	c.router.UnregisterChannel(channel)

	want := subscription{key: key, channel: strings.Trim(channel, "/")}
	c.mu.Lock()
	var filters []string
	for f, sub := range c.subscriptions {
		if sub == want {
			filters = append(filters, f)
		}
	}
	c.mu.Unlock()

	if len(filters) == 0 {
		filters = []string{protocol.FormatChannel(key, channel)}
	}
	sort.Strings(filters)

	for _, f := range filters {
		if uerr := c.transport.Unsubscribe(ctx, f); uerr != nil {
			err = multierr.Append(err, uerr)
			continue
		}
		c.mu.Lock()
		delete(c.subscriptions, f)
		c.mu.Unlock()
	}
	return err
}

// Package emitter is a client for the emitter.io publish/subscribe service.
//
// A Client wraps an MQTT connection. Channel handlers are registered by
// pattern, where "+" matches exactly one segment, and every handler whose
// pattern matches an inbound channel is invoked. Service requests such as
// key generation and link creation are correlated with their replies by MQTT
// packet identifier and answered through the handler passed with the request.
//
// Basic usage:
//
//	client, err := emitter.NewClient(emitter.NewConfig("tcp://localhost:8080", key))
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	client.Subscribe(ctx, "", "chat/+", func(topic string, payload []byte) error {
//	    fmt.Printf("%s: %s\n", topic, payload)
//	    return nil
//	})
//	client.Publish(ctx, "", "chat/general", []byte("hello"))
//
// Failures that occur while processing inbound messages (undecodable replies,
// non-success statuses, handler errors and panics) never surface from the
// calls that caused them. They are delivered to the OnError callback and are
// dropped when none is set.
package emitter

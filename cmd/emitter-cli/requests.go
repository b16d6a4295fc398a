package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rmacdonaldsmith/emitter-go/pkg/emitter"
	"github.com/rmacdonaldsmith/emitter-go/pkg/protocol"
)

// awaitReply connects, runs send, and waits for one reply or a failure
// reported through OnError.
func awaitReply[T any](ctx context.Context, send func(ctx context.Context, client *emitter.Client, reply chan<- *T) error) (*T, error) {
	client, err := connect(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, active.Timeout)
	defer cancel()

	reply := make(chan *T, 1)
	failed := make(chan error, 1)
	client.OnError(func(err error) {
		select {
		case failed <- err:
		default:
		}
	})

	if err := send(ctx, client, reply); err != nil {
		return nil, err
	}

	select {
	case r := <-reply:
		return r, nil
	case err := <-failed:
		return nil, err
	case <-ctx.Done():
		return nil, fmt.Errorf("no reply: %w", ctx.Err())
	}
}

func deliver[T any](reply chan<- *T) func(*T) error {
	return func(v *T) error {
		select {
		case reply <- v:
		default:
		}
		return nil
	}
}

func newKeygenCommand() *cobra.Command {
	var (
		req    protocol.KeygenRequest
		access string
	)

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a channel key from a secret key",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Type = protocol.ParseAccess(access).String()
			if req.Type == "" {
				return fmt.Errorf("invalid access %q, use letters from rwslpex", access)
			}
			return runKeygen(contextOf(cmd), cmd.OutOrStdout(), req)
		},
	}

	cmd.Flags().StringVar(&req.Key, "secret", "", "Secret key (defaults to --key)")
	cmd.Flags().StringVar(&req.Channel, "channel", "", "Channel the key grants access to (required)")
	cmd.Flags().StringVar(&access, "access", "rw", "Access letters: r w s l p e x")
	cmd.Flags().IntVar(&req.TTL, "ttl", 0, "Key lifetime in seconds, 0 for no expiry")
	if err := cmd.MarkFlagRequired("channel"); err != nil {
		panic(fmt.Sprintf("Failed to mark channel as required: %v", err))
	}

	return cmd
}

func runKeygen(ctx context.Context, out io.Writer, req protocol.KeygenRequest) error {
	resp, err := awaitReply(ctx, func(ctx context.Context, client *emitter.Client, reply chan<- *protocol.KeygenResponse) error {
		_, err := client.GenerateKey(ctx, req, deliver(reply))
		return err
	})
	if err != nil {
		return fmt.Errorf("keygen failed: %w", err)
	}

	fmt.Fprintf(out, "Key: %s\nChannel: %s\n", resp.Key, resp.Channel)
	return nil
}

func newLinkCommand() *cobra.Command {
	var (
		channel   string
		name      string
		subscribe bool
		ttl       int
	)

	cmd := &cobra.Command{
		Use:   "link",
		Short: "Create a short link name for a channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			var options []string
			if ttl > 0 {
				options = append(options, protocol.WithTTL(ttl))
			}
			return runLink(contextOf(cmd), cmd.OutOrStdout(), channel, name, subscribe, options)
		},
	}

	cmd.Flags().StringVar(&channel, "channel", "", "Channel to link (required)")
	cmd.Flags().StringVar(&name, "name", "", "Link name (required)")
	cmd.Flags().BoolVar(&subscribe, "subscribe", false, "Subscribe through the link")
	cmd.Flags().IntVar(&ttl, "ttl", 0, "TTL applied to messages published via the link")
	cmd.MarkFlagsRequiredTogether("channel", "name")
	if err := cmd.MarkFlagRequired("channel"); err != nil {
		panic(fmt.Sprintf("Failed to mark channel as required: %v", err))
	}

	return cmd
}

func runLink(ctx context.Context, out io.Writer, channel, name string, subscribe bool, options []string) error {
	resp, err := awaitReply(ctx, func(ctx context.Context, client *emitter.Client, reply chan<- *protocol.LinkResponse) error {
		_, err := client.Link(ctx, "", channel, name, subscribe, deliver(reply), options...)
		return err
	})
	if err != nil {
		return fmt.Errorf("link failed: %w", err)
	}

	fmt.Fprintf(out, "Link %s -> %s\n", resp.Name, resp.Channel)
	return nil
}

func newMeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show information about this connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMe(contextOf(cmd), cmd.OutOrStdout())
		},
	}
}

func runMe(ctx context.Context, out io.Writer) error {
	resp, err := awaitReply(ctx, func(ctx context.Context, client *emitter.Client, reply chan<- *protocol.MeResponse) error {
		client.OnMe(deliver(reply))
		_, err := client.Me(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("me failed: %w", err)
	}

	fmt.Fprintf(out, "ID: %s\n", resp.ID)
	for name, channel := range resp.Links {
		fmt.Fprintf(out, "Link %s -> %s\n", name, channel)
	}
	return nil
}

func newPresenceCommand() *cobra.Command {
	var (
		channel string
		watch   bool
	)

	cmd := &cobra.Command{
		Use:   "presence",
		Short: "Show who is subscribed to a channel",
		Long: `Print the current subscribers of a channel. With --watch, keep printing
join and leave events until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !watch {
				return runPresenceStatus(contextOf(cmd), cmd.OutOrStdout(), channel)
			}
			ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runPresenceWatch(ctx, cmd.OutOrStdout(), channel)
		},
	}

	cmd.Flags().StringVar(&channel, "channel", "", "Channel to inspect (required)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Stream join and leave events")
	if err := cmd.MarkFlagRequired("channel"); err != nil {
		panic(fmt.Sprintf("Failed to mark channel as required: %v", err))
	}

	return cmd
}

func runPresenceStatus(ctx context.Context, out io.Writer, channel string) error {
	event, err := awaitReply(ctx, func(ctx context.Context, client *emitter.Client, reply chan<- *protocol.PresenceEvent) error {
		return client.PresenceStatus(ctx, "", channel, deliver(reply))
	})
	if err != nil {
		return fmt.Errorf("presence failed: %w", err)
	}

	printPresence(out, event)
	return nil
}

// runPresenceWatch blocks until ctx is done.
func runPresenceWatch(ctx context.Context, out io.Writer, channel string) error {
	client, err := connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	reqCtx, cancel := context.WithTimeout(ctx, active.Timeout)
	defer cancel()
	err = client.PresenceSubscribe(reqCtx, "", channel, true, func(event *protocol.PresenceEvent) error {
		printPresence(out, event)
		return nil
	})
	if err != nil {
		return fmt.Errorf("presence failed: %w", err)
	}

	<-ctx.Done()
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

func printPresence(out io.Writer, event *protocol.PresenceEvent) {
	fmt.Fprintf(out, "%s %s (%d)\n", event.Event, event.Channel, len(event.Who))
	for _, who := range event.Who {
		if who.Username != "" {
			fmt.Fprintf(out, "  %s %s\n", who.ID, who.Username)
		} else {
			fmt.Fprintf(out, "  %s\n", who.ID)
		}
	}
}

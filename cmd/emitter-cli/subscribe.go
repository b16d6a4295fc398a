package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rmacdonaldsmith/emitter-go/pkg/protocol"
)

type subscribeOptions struct {
	channels []string
	group    string
	last     int
}

func newSubscribeCommand() *cobra.Command {
	var opts subscribeOptions

	cmd := &cobra.Command{
		Use:   "subscribe",
		Short: "Print messages from one or more channels",
		Long: `Subscribe to channels and print every message received until interrupted.
Channels may contain '+' to match any single segment. Press Ctrl+C to stop.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSubscribe(ctx, cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.channels, "channel", nil, "Channel to subscribe to (repeatable, required)")
	cmd.Flags().StringVar(&opts.group, "group", "", "Join this share group")
	cmd.Flags().IntVar(&opts.last, "last", 0, "Replay the last N stored messages")
	if err := cmd.MarkFlagRequired("channel"); err != nil {
		panic(fmt.Sprintf("Failed to mark channel as required: %v", err))
	}

	return cmd
}

// runSubscribe blocks until ctx is done.
func runSubscribe(ctx context.Context, out io.Writer, opts subscribeOptions) error {
	client, err := connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	printMessage := func(topic string, payload []byte) error {
		_, err := fmt.Fprintf(out, "%s %s\n", topic, payload)
		return err
	}
	client.OnMessage(printMessage)

	var options []string
	if opts.last > 0 {
		options = append(options, protocol.WithLast(opts.last))
	}

	for _, channel := range opts.channels {
		reqCtx, cancel := context.WithTimeout(ctx, active.Timeout)
		if opts.group != "" {
			err = client.SubscribeWithGroup(reqCtx, "", channel, opts.group, printMessage, options...)
		} else {
			err = client.Subscribe(reqCtx, "", channel, printMessage, options...)
		}
		cancel()
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
		}
		logger.Info("subscribed", zap.String("channel", channel))
	}

	<-ctx.Done()
	return nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

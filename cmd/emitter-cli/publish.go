package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rmacdonaldsmith/emitter-go/pkg/protocol"
)

type publishOptions struct {
	channel string
	link    string
	payload string
	ttl     int
	retain  bool
	qos1    bool
}

func newPublishCommand() *cobra.Command {
	var opts publishOptions

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a message to a channel or link",
		Long: `Publish a message to a channel using the default key, or to a link
created with 'emitter-cli link'. Exactly one of --channel or --link is required.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(contextOf(cmd), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.channel, "channel", "", "Channel to publish to")
	cmd.Flags().StringVar(&opts.link, "link", "", "Link name to publish to")
	cmd.Flags().StringVar(&opts.payload, "payload", "", "Message payload")
	cmd.Flags().IntVar(&opts.ttl, "ttl", 0, "Store the message for this many seconds")
	cmd.Flags().BoolVar(&opts.retain, "retain", false, "Retain the message")
	cmd.Flags().BoolVar(&opts.qos1, "qos1", false, "Publish at least once")
	cmd.MarkFlagsMutuallyExclusive("channel", "link")
	cmd.MarkFlagsOneRequired("channel", "link")

	return cmd
}

func (o publishOptions) options() []string {
	var options []string
	if o.ttl > 0 {
		options = append(options, protocol.WithTTL(o.ttl))
	}
	if o.retain {
		options = append(options, protocol.WithRetain())
	}
	if o.qos1 {
		options = append(options, protocol.WithAtLeastOnce())
	}
	return options
}

func runPublish(ctx context.Context, out io.Writer, opts publishOptions) error {
	client, err := connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, active.Timeout)
	defer cancel()

	var id uint16
	if opts.link != "" {
		id, err = client.PublishWithLink(ctx, opts.link, []byte(opts.payload), opts.options()...)
	} else {
		id, err = client.Publish(ctx, "", opts.channel, []byte(opts.payload), opts.options()...)
	}
	if err != nil {
		return fmt.Errorf("failed to publish: %w", err)
	}

	fmt.Fprintf(out, "Published %d bytes", len(opts.payload))
	if id != 0 {
		fmt.Fprintf(out, " (packet %d)", id)
	}
	fmt.Fprintln(out)
	return nil
}

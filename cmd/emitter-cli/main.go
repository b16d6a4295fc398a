package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rmacdonaldsmith/emitter-go/pkg/emitter"
)

var (
	// Global flags
	profilePath string
	flagValues  settings
	verbose     bool

	// Resolved settings and logger, set by initialize
	active settings
	logger *zap.Logger

	// newClient builds the client for a command; tests swap in a memory transport.
	newClient = func(config *emitter.Config) (*emitter.Client, error) {
		return emitter.NewClient(config)
	}
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "emitter-cli",
		Short: "emitter.io command line client",
		Long: `emitter-cli publishes and subscribes to emitter.io channels and issues
service requests (key generation, presence, links) from the command line.

Settings are read from a YAML profile, then EMITTER_* environment variables,
then flags, with later sources taking precedence.`,
		PersistentPreRunE: initialize,
		SilenceUsage:      true,
	}

	rootCmd.PersistentFlags().StringVar(&profilePath, "profile", "", "YAML profile with connection settings")
	rootCmd.PersistentFlags().StringVar(&flagValues.Broker, "broker", "", "Broker URL, e.g. tcp://localhost:8080")
	rootCmd.PersistentFlags().StringVar(&flagValues.Key, "key", "", "Default channel key")
	rootCmd.PersistentFlags().StringVar(&flagValues.ClientID, "client-id", "", "MQTT client ID (random if empty)")
	rootCmd.PersistentFlags().StringVar(&flagValues.Username, "username", "", "MQTT username")
	rootCmd.PersistentFlags().StringVar(&flagValues.Password, "password", "", "MQTT password")
	rootCmd.PersistentFlags().BoolVar(&flagValues.Secure, "secure", false, "Use the TLS endpoint")
	rootCmd.PersistentFlags().DurationVar(&flagValues.Timeout, "timeout", 10*time.Second, "Connect and request timeout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newPublishCommand())
	rootCmd.AddCommand(newSubscribeCommand())
	rootCmd.AddCommand(newKeygenCommand())
	rootCmd.AddCommand(newPresenceCommand())
	rootCmd.AddCommand(newLinkCommand())
	rootCmd.AddCommand(newMeCommand())

	return rootCmd
}

// initialize resolves settings and sets up logging for every subcommand
func initialize(cmd *cobra.Command, args []string) error {
	// Skip for help commands
	if cmd.Name() == "help" || cmd.Parent() == nil {
		return nil
	}

	resolved, err := resolveSettings(profilePath, os.LookupEnv, flagValues, cmd.Flags().Changed)
	if err != nil {
		return err
	}
	active = resolved

	if verbose {
		logger, err = zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
	} else {
		logger = zap.NewNop()
	}
	return nil
}

// connect creates a client from the active settings and connects it
func connect(ctx context.Context) (*emitter.Client, error) {
	config := active.clientConfig().WithLogger(logger)

	client, err := newClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, active.Timeout)
	defer cancel()
	if err := client.Connect(connectCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", config.Broker, err)
	}

	client.OnError(func(err error) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	})
	return client, nil
}

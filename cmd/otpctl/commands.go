package main

import (
	"cmp"
	"os"
	"time"

	"github.com/shandysiswandi/otpbridge/internal/retriever/client"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	server string
	token  string
}

func (o *rootOptions) client() *client.Client {
	return client.New(o.server, o.token)
}

func buildRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "otpctl",
		Short: "otpctl - drive an otpbridge SMS listener",
		Long: `otpctl talks to an otpbridge server: start and stop the SMS listener,
wait for a one-time code, inspect status and follow outcomes live.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.server, "server",
		cmp.Or(os.Getenv("OTPCTL_SERVER"), "http://localhost:8080"), "Base URL of the otpbridge server")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("OTPCTL_TOKEN"), "Bearer token for the server")

	rootCmd.AddCommand(
		buildStartCmd(opts),
		buildWaitCmd(opts),
		buildStopCmd(opts),
		buildStatusCmd(opts),
		buildHashCmd(opts),
		buildSimulateCmd(opts),
		buildWatchCmd(opts),
	)

	return rootCmd
}

func buildStartCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start listening without waiting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStart(cmd, opts.client())
		},
	}
}

func buildWaitCmd(opts *rootOptions) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Start listening and print the received code",
		Example: `  # Wait with the server default timeout
  otpctl wait

  # Give up after 90 seconds
  otpctl wait --timeout 90s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWait(cmd, opts.client(), timeout)
		},
	}
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 0, "Maximum wait (0 uses the server default)")
	return cmd
}

func buildStopCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop listening",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStop(cmd, opts.client())
		},
	}
}

func buildStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show listener status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, opts.client())
		},
	}
}

func buildHashCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hash",
		Short: "Print the app hash to append to outgoing SMS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHash(cmd, opts.client())
		},
	}
}

func buildSimulateCmd(opts *rootOptions) *cobra.Command {
	var in simulateFlags
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Publish a synthetic SMS delivery (simulator must be enabled)",
		Example: `  # Deliver a generated code
  otpctl simulate

  # Deliver a fixed code
  otpctl simulate --code 482917

  # Deliver a platform timeout
  otpctl simulate --status TIMEOUT`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSimulate(cmd, opts.client(), in)
		},
	}
	cmd.Flags().StringVar(&in.code, "code", "", "Code to embed in the message")
	cmd.Flags().StringVar(&in.message, "message", "", "Full message text, overrides --code")
	cmd.Flags().StringVar(&in.status, "status", "", "Platform status name (SUCCESS, TIMEOUT, API_NOT_CONNECTED)")
	return cmd
}

func buildWatchCmd(opts *rootOptions) *cobra.Command {
	var autoStart bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow listener outcomes until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, opts.client(), autoStart)
		},
	}
	cmd.Flags().BoolVar(&autoStart, "auto-start", false, "Start listening right away and again after every outcome")
	return cmd
}

package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
)

const defaultServer = "http://localhost:8080"

type rootOptions struct {
	server  string
	timeout time.Duration
	now     func() time.Time
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{now: time.Now}

	cmd := &cobra.Command{
		Use:           "otpshare",
		Short:         "Share one-time codes through expiring links.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	server := os.Getenv("OTPSHARE_SERVER")
	if server == "" {
		server = defaultServer
	}
	cmd.PersistentFlags().StringVar(&opts.server, "server", server, "PowerOTP server base URL (env OTPSHARE_SERVER)")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "request timeout")

	cmd.AddCommand(newCreateCmd(opts), newRedeemCmd(opts))
	return cmd
}

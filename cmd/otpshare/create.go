package main

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/sifan077/PowerOTP/config"
	"github.com/sifan077/PowerOTP/internal/codegen"
	"github.com/sifan077/PowerOTP/internal/http/handler"
	"github.com/spf13/cobra"
)

type createOptions struct {
	secret    string
	period    uint
	digits    int
	algorithm string
	expiresIn string
	burn      bool
}

func newCreateCmd(root *rootOptions) *cobra.Command {
	opts := &createOptions{}
	presets := lo.Keys(config.ExpiryPresets)
	slices.Sort(presets)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Generate codes locally and publish them behind a share link.",
		Long: `Generate a run of TOTP codes from the secret on this machine and upload
only the codes. The secret is never sent to the server.

Example:
  otpshare create --secret JBSWY3DPEHPK3PXP --expires-in 1h --burn=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			validFor, ok := config.ExpiryPresets[opts.expiresIn]
			if !ok {
				return fmt.Errorf("--expires-in must be one of %s", strings.Join(presets, ", "))
			}

			seq, err := codegen.Generate(codegen.Options{
				Secret:    opts.secret,
				Period:    opts.period,
				Digits:    opts.digits,
				Algorithm: opts.algorithm,
			}, root.now(), validFor)
			if err != nil {
				return err
			}

			burn := opts.burn
			resp, err := newShareClient(root.server, root.timeout).create(handler.CreateShareRequest{
				Codes:            seq.Codes,
				Period:           seq.Period,
				StartTime:        seq.Start,
				ExpiresIn:        opts.expiresIn,
				BurnAfterReading: &burn,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, resp.URL)
			fmt.Fprintf(cmd.ErrOrStderr(), "id %s, %d codes, expires in %s, burn after reading %t\n",
				resp.ID, len(seq.Codes), validFor.Round(time.Minute), burn)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.secret, "secret", "", "base32 TOTP secret")
	f.UintVar(&opts.period, "period", 30, "code period in seconds")
	f.IntVar(&opts.digits, "digits", 6, "code length (6 or 8)")
	f.StringVar(&opts.algorithm, "algorithm", "SHA1", "HMAC algorithm (SHA1, SHA256, SHA512)")
	f.StringVar(&opts.expiresIn, "expires-in", config.DefaultExpiryPreset, "link lifetime: "+strings.Join(presets, ", "))
	f.BoolVar(&opts.burn, "burn", true, "allow the link to be opened only once")
	_ = cmd.MarkFlagRequired("secret")

	return cmd
}

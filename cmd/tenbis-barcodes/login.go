package main

import (
	"fmt"
	"os"

	"github.com/dvloznov/tenbis-barcodes/internal/session"
	"github.com/spf13/cobra"
)

func newLoginCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in with a one-time password and print the session cookie",
		Long: `Runs the SMS one-time-password login and prints the Cookie header value.
Store it as auth.cookie (or TENBIS_COOKIE) to skip the login on later runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts, cmd.Flags().Changed)
			if err != nil {
				return err
			}
			if err := setupLogger(cmd, cfg.LogLevel); err != nil {
				return err
			}

			client, err := newTenbisClient(cfg)
			if err != nil {
				return err
			}

			provider := session.NewOTPProvider(client, newStdinPrompter(os.Stdin, os.Stderr), cfg.Auth.Email)
			cred, err := provider.Credential(cmd.Context())
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cred.Value)
			return nil
		},
	}
}

package main

import (
	"fmt"

	"github.com/dvloznov/tenbis-barcodes/internal/config"
	"github.com/dvloznov/tenbis-barcodes/internal/logger"
	"github.com/spf13/cobra"
)

// options are the command-line overrides shared by every command.
type options struct {
	configPath string
	email      string
	token      string
	months     int
	output     string
	sendEmail  bool
	logLevel   string
	progress   bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "tenbis-barcodes",
		Short: "Download unused Shufersal coupons bought through 10bis",
		Long: `Collects the last months of 10bis orders, keeps the Shufersal ones,
downloads the barcode image of every unused coupon into the output
directory and prints how much credit is left.

The output directory is deleted and recreated on every run.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, opts)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "tenbis-barcodes.yaml", "Path to a YAML or TOML config file")
	pf.StringVarP(&opts.email, "email", "e", "", "10bis account email for the one-time-password login")
	pf.StringVarP(&opts.token, "token", "t", "", "user-token copied from a logged in browser session")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	f := root.Flags()
	f.IntVarP(&opts.months, "months", "m", 0, "Number of months to look back")
	f.StringVarP(&opts.output, "output", "o", "", "Directory to write barcode images to (recreated on every run)")
	f.BoolVar(&opts.sendEmail, "send-email", false, "Email the barcodes to yourself when the run finishes")
	f.BoolVar(&opts.progress, "progress", true, "Show a progress indicator on stderr")

	fetch := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch and download unused coupons (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, opts)
		},
	}
	fetch.Flags().AddFlagSet(f)

	root.AddCommand(fetch, newLoginCmd(opts))
	return root
}

// loadConfig reads the config file, then environment overrides, then the
// flags the user actually set.
func loadConfig(opts *options, changed func(name string) bool) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("loadConfig: %w", err)
	}
	applyFlags(cfg, opts, changed)
	return cfg, nil
}

func applyFlags(cfg *config.Config, opts *options, changed func(name string) bool) {
	if changed("email") {
		cfg.Auth.Email = opts.email
	}
	if changed("token") {
		cfg.Auth.Token = opts.token
	}
	if changed("months") {
		cfg.Pipeline.MonthsBack = opts.months
	}
	if changed("output") {
		cfg.Pipeline.OutputDir = opts.output
	}
	if changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if changed("send-email") && opts.sendEmail {
		cfg.SMTP.Enabled = true
	}

	// Mail defaults to the account's own address.
	if cfg.SMTP.Enabled {
		if cfg.SMTP.From == "" {
			cfg.SMTP.From = cfg.Auth.Email
		}
		if cfg.SMTP.Username == "" {
			cfg.SMTP.Username = cfg.SMTP.From
		}
		if cfg.SMTP.To == "" {
			cfg.SMTP.To = cfg.SMTP.From
		}
	}
}

// setupLogger applies the configured level to the context logger.
func setupLogger(cmd *cobra.Command, level string) error {
	ctx := cmd.Context()
	log, err := logger.WithLevel(logger.FromContext(ctx), level)
	if err != nil {
		return fmt.Errorf("setupLogger: %w", err)
	}
	cmd.SetContext(logger.WithContext(ctx, log))
	return nil
}

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/dvloznov/tenbis-barcodes/internal/archive"
	"github.com/dvloznov/tenbis-barcodes/internal/config"
	"github.com/dvloznov/tenbis-barcodes/internal/domain"
	infra "github.com/dvloznov/tenbis-barcodes/internal/infra/bigquery"
	"github.com/dvloznov/tenbis-barcodes/internal/logger"
	"github.com/dvloznov/tenbis-barcodes/internal/metrics"
	"github.com/dvloznov/tenbis-barcodes/internal/notify"
	"github.com/dvloznov/tenbis-barcodes/internal/pipeline"
	"github.com/dvloznov/tenbis-barcodes/internal/session"
	"github.com/dvloznov/tenbis-barcodes/internal/tenbis"
	"github.com/spf13/cobra"
	"google.golang.org/api/option"
)

const pushTimeout = 10 * time.Second

func runFetch(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(opts, cmd.Flags().Changed)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := setupLogger(cmd, cfg.LogLevel); err != nil {
		return err
	}
	ctx := cmd.Context()
	log := logger.FromContext(ctx)

	client, err := newTenbisClient(cfg)
	if err != nil {
		return err
	}

	provider := session.Select(cfg.Auth.Token, cfg.Auth.Cookie, cfg.Auth.Email, client, newStdinPrompter(os.Stdin, os.Stderr))
	cred, err := provider.Credential(ctx)
	if err != nil {
		return fmt.Errorf("runFetch: obtaining session: %w", err)
	}
	client = client.WithCredential(cred)

	rec := metrics.NewRecorder()
	deps := coreDeps(cfg, client, rec)

	closers, err := addPublishers(ctx, cfg, &deps)
	defer func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warn().Err(err).Msg("Failed to close client")
			}
		}
	}()
	if err != nil {
		return err
	}

	base := domain.Run{
		VendorID:   cfg.Vendor.RestaurantID,
		VendorName: cfg.Vendor.Name,
		Currency:   cfg.Vendor.Currency,
	}
	state := pipeline.NewPipelineState(base, cfg.Pipeline.MonthsBack, cfg.Pipeline.OutputDir)

	log.Info().
		Str("run_id", state.Run.ID).
		Int("months_back", cfg.Pipeline.MonthsBack).
		Str("output_dir", cfg.Pipeline.OutputDir).
		Int("workers", cfg.Pipeline.Workers).
		Msg("Starting barcode run")

	stop := func() {}
	if opts.progress {
		stop = startProgress(ctx, os.Stderr, 200*time.Millisecond)
	}
	runErr := pipeline.NewBarcodePipeline(deps).Execute(ctx, state)
	stop()

	printReport(cmd.OutOrStdout(), state)

	if cfg.Metrics.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
		if err := rec.Push(pushCtx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
			log.Warn().Err(err).Msg("Failed to push metrics")
		}
		cancel()
	}

	return runErr
}

func newTenbisClient(cfg *config.Config) (*tenbis.Client, error) {
	return tenbis.New(tenbis.Options{
		WebBaseURL:     cfg.API.WebBaseURL,
		APIBaseURL:     cfg.API.APIBaseURL,
		Culture:        cfg.API.Culture,
		UICulture:      cfg.API.UICulture,
		RequestTimeout: cfg.API.RequestTimeout.Duration,
		HTTPClient:     &http.Client{},
	})
}

func coreDeps(cfg *config.Config, client *tenbis.Client, rec *metrics.Recorder) pipeline.Deps {
	workers := cfg.Pipeline.Workers
	return pipeline.Deps{
		Collector: pipeline.NewCollector(client, pipeline.CollectorConfig{
			VendorID:      cfg.Vendor.RestaurantID,
			Workers:       workers,
			FailurePolicy: cfg.Pipeline.CollectFailurePolicy,
		}, rec),
		Resolver: pipeline.NewResolver(client, pipeline.ResolverConfig{
			Workers: workers,
			Filter:  domain.FilterFor(cfg.Vendor.ExcludeCanceled),
		}, rec),
		Downloader: pipeline.NewDownloader(client, pipeline.DownloaderConfig{
			Workers: workers,
			Timeout: cfg.Pipeline.DownloadTimeout.Duration,
		}, rec),
		Recorder: rec,
	}
}

// addPublishers wires the optional archive, export and notify steps that the
// config enables. The returned closers run even when an error is returned.
func addPublishers(ctx context.Context, cfg *config.Config, deps *pipeline.Deps) ([]func() error, error) {
	var closers []func() error

	if cfg.Archive.Bucket != "" {
		store, err := archive.NewGCSStore(ctx, cfg.Archive.Bucket, clientOptions(cfg.Archive.CredentialsFile)...)
		if err != nil {
			return closers, err
		}
		closers = append(closers, store.Close)
		deps.Archiver = archive.NewMirror(store, archivePrefix(cfg.Archive.Prefix))
	}

	if cfg.Export.ProjectID != "" {
		exp, err := infra.NewExporter(ctx, cfg.Export.ProjectID, cfg.Export.Dataset, clientOptions(cfg.Export.CredentialsFile)...)
		if err != nil {
			return closers, err
		}
		closers = append(closers, exp.Close)
		deps.Exporter = exp
	}

	if n := buildNotifier(cfg); n != nil {
		deps.Notifier = n
	}
	return closers, nil
}

// archivePrefix keeps the mirror out of the bucket root, which it would
// otherwise own entirely.
func archivePrefix(prefix string) string {
	if prefix == "" {
		return "barcodes"
	}
	return prefix
}

func buildNotifier(cfg *config.Config) notify.Notifier {
	var notifiers notify.Multi

	if cfg.SMTP.Enabled {
		dialer := notify.NewDialer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password)
		notifiers = append(notifiers, notify.NewSMTPNotifier(dialer, notify.SMTPConfig{
			From:    cfg.SMTP.From,
			To:      notify.SplitAddresses(cfg.SMTP.To),
			Subject: cfg.SMTP.Subject,
		}))
	}
	if cfg.Notion.Enabled {
		client := notify.NewNotionClient(cfg.Notion.Token)
		notifiers = append(notifiers, notify.NewNotionNotifier(client, cfg.Notion.DatabaseID, cfg.Vendor.Currency))
	}

	switch len(notifiers) {
	case 0:
		return nil
	case 1:
		return notifiers[0]
	default:
		return notifiers
	}
}

func clientOptions(credentialsFile string) []option.ClientOption {
	if credentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(credentialsFile)}
}

// printReport writes the summary of whatever the run managed to produce.
func printReport(w io.Writer, state *pipeline.PipelineState) {
	if state.Run.Report == "" {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprint(w, state.Run.Report)
	if state.Download.Written > 0 {
		fmt.Fprintf(w, "\nBarcodes saved to %s\n", state.Run.OutputDir)
	}
}

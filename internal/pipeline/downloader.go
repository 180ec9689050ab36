package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dvloznov/tenbis-barcodes/internal/domain"
	"github.com/dvloznov/tenbis-barcodes/internal/logger"
	"github.com/dvloznov/tenbis-barcodes/internal/metrics"
)

// DefaultDownloadTimeout bounds a single image download.
const DefaultDownloadTimeout = 60 * time.Second

// DownloaderConfig tunes the Downloader.
type DownloaderConfig struct {
	Workers int
	Timeout time.Duration
}

// DownloadResult lists the images written by one Download call.
type DownloadResult struct {
	Written int
	Files   []string // sorted
}

// Downloader saves barcode images to a local directory.
type Downloader struct {
	fetcher ImageFetcher
	cfg     DownloaderConfig
	rec     *metrics.Recorder
}

// NewDownloader creates a Downloader. rec may be nil.
func NewDownloader(fetcher ImageFetcher, cfg DownloaderConfig, rec *metrics.Recorder) *Downloader {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultDownloadTimeout
	}
	return &Downloader{fetcher: fetcher, cfg: cfg, rec: rec}
}

// Download removes outputDir, recreates it empty and writes one image per
// record as outputDir/FileName(). Records sharing a file name are fetched
// once. Failed downloads are logged and leave no file behind. A rejected
// credential aborts the stage.
func (d *Downloader) Download(ctx context.Context, records []domain.CouponRecord, outputDir string) (DownloadResult, error) {
	log := logger.ForStage(ctx, StageDownload)

	if err := resetDir(outputDir); err != nil {
		return DownloadResult{}, fmt.Errorf("Download: %w: %w", domain.ErrOutputDir, err)
	}

	seen := make(map[string]bool, len(records))
	var unique []domain.CouponRecord
	for _, rec := range records {
		name := rec.FileName()
		if seen[name] {
			log.Debug().Str("file", name).Int64("order_id", rec.OrderID).Msg("Duplicate barcode file, skipping")
			continue
		}
		seen[name] = true
		unique = append(unique, rec)
	}

	save := func(ctx context.Context, rec domain.CouponRecord) (string, error) {
		path := filepath.Join(outputDir, rec.FileName())
		return path, d.downloadOne(ctx, rec.ImageURL, path)
	}

	results, err := fanOut(ctx, d.cfg.Workers, unique, save, credentialRejected)
	if err != nil {
		return DownloadResult{}, fmt.Errorf("Download: %w", err)
	}

	var res DownloadResult
	for i, r := range results {
		if r.err != nil {
			log.Warn().Err(r.err).
				Int64("order_id", unique[i].OrderID).
				Str("barcode_number", unique[i].BarcodeNumber).
				Msg("Failed to download barcode image")
			d.rec.Task(StageDownload, metrics.OutcomeFailed)
			continue
		}
		d.rec.Task(StageDownload, metrics.OutcomeOK)
		res.Files = append(res.Files, r.value)
	}
	sort.Strings(res.Files)
	res.Written = len(res.Files)

	log.Info().
		Str("output_dir", outputDir).
		Int("written", res.Written).
		Int("requested", len(unique)).
		Msg("Downloaded barcode images")

	return res, nil
}

func (d *Downloader) downloadOne(ctx context.Context, url, path string) (err error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	body, err := d.fetcher.FetchImage(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	if _, err = io.Copy(f, body); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// resetDir empties dir by removing and recreating it. The current directory
// and the filesystem root are refused.
func resetDir(dir string) error {
	clean := filepath.Clean(dir)
	if dir == "" || clean == "." || clean == string(filepath.Separator) {
		return fmt.Errorf("refusing to reset %q", dir)
	}
	if err := os.RemoveAll(clean); err != nil {
		return err
	}
	return os.MkdirAll(clean, 0o755)
}

package archive

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dvloznov/tenbis-barcodes/internal/domain"
	"github.com/dvloznov/tenbis-barcodes/internal/logger"
)

// SummaryObject is the name of the report object written next to the images.
const SummaryObject = "summary.txt"

// Mirror makes prefix/ in the store match the run's output directory: the
// images and the report are uploaded, anything else under the prefix is
// deleted.
type Mirror struct {
	store  ObjectStore
	prefix string
}

// NewMirror creates a Mirror writing under prefix.
func NewMirror(store ObjectStore, prefix string) *Mirror {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &Mirror{store: store, prefix: prefix}
}

// Archive implements the pipeline's Archiver.
func (m *Mirror) Archive(ctx context.Context, run *domain.Run) error {
	log := logger.FromContext(ctx)

	byFile := make(map[string]domain.CouponRecord, len(run.Coupons))
	for _, c := range run.Coupons {
		byFile[c.FileName()] = c
	}

	keep := make(map[string]bool, len(run.Files)+1)
	for _, file := range run.Files {
		base := filepath.Base(file)
		name := m.prefix + base
		if err := m.uploadFile(ctx, file, name, couponMetadata(run.ID, byFile[base])); err != nil {
			return fmt.Errorf("Archive: %w", err)
		}
		keep[name] = true
	}

	summaryName := m.prefix + SummaryObject
	meta := map[string]string{"run_id": run.ID}
	if err := m.store.Upload(ctx, summaryName, strings.NewReader(run.Report), "text/plain; charset=utf-8", meta); err != nil {
		return fmt.Errorf("Archive: %w", err)
	}
	keep[summaryName] = true

	existing, err := m.store.List(ctx, m.prefix)
	if err != nil {
		return fmt.Errorf("Archive: %w", err)
	}

	var deleted int
	for _, name := range existing {
		if keep[name] {
			continue
		}
		if err := m.store.Delete(ctx, name); err != nil {
			return fmt.Errorf("Archive: %w", err)
		}
		deleted++
	}

	log.Info().
		Str("prefix", m.prefix).
		Int("uploaded", len(keep)).
		Int("deleted", deleted).
		Msg("Archived barcodes")
	return nil
}

func (m *Mirror) uploadFile(ctx context.Context, file, name string, meta map[string]string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("open file %q: %w", file, err)
	}
	defer f.Close()

	return m.store.Upload(ctx, name, f, contentType(name), meta)
}

func contentType(name string) string {
	if strings.EqualFold(path.Ext(name), domain.ImageExtension) {
		return "image/png"
	}
	return "application/octet-stream"
}

func couponMetadata(runID string, c domain.CouponRecord) map[string]string {
	meta := map[string]string{"run_id": runID}
	if c.BarcodeNumber == "" {
		return meta
	}
	meta["order_id"] = strconv.FormatInt(c.OrderID, 10)
	meta["barcode_number"] = c.BarcodeNumber
	meta["amount"] = c.Amount.String()
	meta["valid_date"] = c.ValidDate
	return meta
}

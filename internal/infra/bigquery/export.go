package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/tenbis-barcodes/internal/domain"
	"github.com/dvloznov/tenbis-barcodes/internal/logger"
	"google.golang.org/api/option"
)

const (
	// DefaultDataset is used when the config leaves the dataset empty.
	DefaultDataset = "tenbis"

	runsTable    = "barcode_runs"
	couponsTable = "barcode_coupons"
)

// RowInserter streams rows into one table. *bigquery.Inserter satisfies it.
type RowInserter interface {
	Put(ctx context.Context, src interface{}) error
}

// Exporter appends every finished run to the barcode_runs and
// barcode_coupons tables.
type Exporter struct {
	client   *bigquery.Client
	inserter func(table string) RowInserter
}

// NewExporter creates an Exporter for projectID/dataset.
func NewExporter(ctx context.Context, projectID, dataset string, opts ...option.ClientOption) (*Exporter, error) {
	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewExporter: creating client: %w", err)
	}
	if dataset == "" {
		dataset = DefaultDataset
	}

	ds := client.Dataset(dataset)
	return &Exporter{
		client: client,
		inserter: func(table string) RowInserter {
			return ds.Table(table).Inserter()
		},
	}, nil
}

// NewExporterWithInserter creates an Exporter that writes through inserter.
func NewExporterWithInserter(inserter func(table string) RowInserter) *Exporter {
	return &Exporter{inserter: inserter}
}

// Close closes the BigQuery client connection.
func (e *Exporter) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// Export implements the pipeline's Exporter.
func (e *Exporter) Export(ctx context.Context, run *domain.Run) error {
	log := logger.FromContext(ctx)

	runRow, couponRows := RowsFromRun(run)

	if err := e.inserter(runsTable).Put(ctx, runRow); err != nil {
		return fmt.Errorf("Export: inserting run row: %w", err)
	}

	if len(couponRows) > 0 {
		if err := e.inserter(couponsTable).Put(ctx, couponRows); err != nil {
			return fmt.Errorf("Export: inserting coupon rows: %w", err)
		}
	}

	log.Info().
		Str("run_id", run.ID).
		Int("coupon_rows", len(couponRows)).
		Msg("Exported run to BigQuery")
	return nil
}

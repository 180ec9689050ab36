package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/tenbis-barcodes/internal/domain"
	"github.com/dvloznov/tenbis-barcodes/internal/logger"
	"github.com/dvloznov/tenbis-barcodes/internal/metrics"
)

// CollectorConfig tunes the Collector.
type CollectorConfig struct {
	VendorID      int64
	Workers       int
	FailurePolicy domain.FailurePolicy
}

// Collector gathers the vendor's transactions over a lookback window.
type Collector struct {
	source TransactionSource
	cfg    CollectorConfig
	rec    *metrics.Recorder
}

// NewCollector creates a Collector. rec may be nil.
func NewCollector(source TransactionSource, cfg CollectorConfig, rec *metrics.Recorder) *Collector {
	if !cfg.FailurePolicy.Valid() {
		cfg.FailurePolicy = domain.SkipFailures
	}
	return &Collector{source: source, cfg: cfg, rec: rec}
}

// Collect fetches months 0, -1, ..., -(monthsBack-1) concurrently and returns
// the vendor's transactions in month order. A rejected credential always
// aborts; other month failures follow the configured policy.
func (c *Collector) Collect(ctx context.Context, monthsBack int) ([]domain.Transaction, error) {
	log := logger.ForStage(ctx, StageCollect)

	if monthsBack <= 0 {
		return nil, fmt.Errorf("Collect: %d: %w", monthsBack, domain.ErrInvalidMonths)
	}

	biases := make([]int, monthsBack)
	for i := range biases {
		biases[i] = -i
	}

	fatal := func(err error) bool {
		return c.cfg.FailurePolicy == domain.AbortOnFailure || credentialRejected(err)
	}

	results, err := fanOut(ctx, c.cfg.Workers, biases, c.source.MonthlyOrders, fatal)
	if err != nil {
		return nil, fmt.Errorf("Collect: %w", err)
	}

	var txs []domain.Transaction
	for i, r := range results {
		if r.err != nil {
			log.Warn().Err(r.err).
				Int("date_bias", biases[i]).
				Msg("Failed to fetch transactions for month, skipping")
			c.rec.Task(StageCollect, metrics.OutcomeFailed)
			continue
		}
		c.rec.Task(StageCollect, metrics.OutcomeOK)

		for _, tx := range r.value {
			if tx.RestaurantID == c.cfg.VendorID {
				txs = append(txs, tx)
			}
		}
	}

	log.Info().
		Int("months", monthsBack).
		Int("transactions", len(txs)).
		Int64("vendor_id", c.cfg.VendorID).
		Msg("Collected vendor transactions")

	return txs, nil
}

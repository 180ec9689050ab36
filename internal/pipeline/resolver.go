package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/tenbis-barcodes/internal/domain"
	"github.com/dvloznov/tenbis-barcodes/internal/logger"
	"github.com/dvloznov/tenbis-barcodes/internal/metrics"
)

// ResolverConfig tunes the Resolver.
type ResolverConfig struct {
	Workers int
	Filter  domain.CouponFilter // nil keeps unused, non-canceled coupons
}

// Resolver turns transactions into the coupons worth downloading.
type Resolver struct {
	source CouponSource
	cfg    ResolverConfig
	rec    *metrics.Recorder
}

// NewResolver creates a Resolver. rec may be nil.
func NewResolver(source CouponSource, cfg ResolverConfig, rec *metrics.Recorder) *Resolver {
	if cfg.Filter == nil {
		cfg.Filter = domain.UnusedNotCanceled
	}
	return &Resolver{source: source, cfg: cfg, rec: rec}
}

// Resolve fetches every order's coupon concurrently. Failed orders are logged
// and contribute nothing, except a rejected credential which aborts. The
// result keeps transaction order, holds only coupons the filter accepts and
// never holds a coupon without an image URL.
func (r *Resolver) Resolve(ctx context.Context, txs []domain.Transaction) ([]domain.CouponRecord, error) {
	log := logger.ForStage(ctx, StageResolve)

	fetch := func(ctx context.Context, tx domain.Transaction) (domain.CouponRecord, error) {
		return r.source.OrderCoupon(ctx, tx.OrderID)
	}
	results, err := fanOut(ctx, r.cfg.Workers, txs, fetch, credentialRejected)
	if err != nil {
		return nil, fmt.Errorf("Resolve: %w", err)
	}

	var coupons []domain.CouponRecord
	var dropped int
	for i, res := range results {
		orderID := txs[i].OrderID

		switch {
		case errors.Is(res.err, domain.ErrMissingBarcode):
			log.Debug().Int64("order_id", orderID).Msg("Order has no barcode")
			r.rec.Task(StageResolve, metrics.OutcomeSkipped)
			continue
		case res.err != nil:
			log.Warn().Err(res.err).Int64("order_id", orderID).Msg("Failed to fetch order details")
			r.rec.Task(StageResolve, metrics.OutcomeFailed)
			continue
		}
		r.rec.Task(StageResolve, metrics.OutcomeOK)

		c := res.value
		if !r.cfg.Filter(c) {
			continue
		}
		if c.ImageURL == "" {
			log.Warn().
				Err(domain.ErrEmptyImageURL).
				Int64("order_id", orderID).
				Str("barcode_number", c.BarcodeNumber).
				Msg("Skipping a corrupt barcode without url")
			dropped++
			continue
		}
		coupons = append(coupons, c)
	}

	log.Info().
		Int("orders", len(txs)).
		Int("coupons", len(coupons)).
		Int("corrupt", dropped).
		Msg("Resolved unused coupons")

	return coupons, nil
}

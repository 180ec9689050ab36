package pipeline

import (
	"github.com/dvloznov/tenbis-barcodes/internal/domain"
	"github.com/shopspring/decimal"
)

// Summarize totals the vendor transactions and the unused coupons kept by
// the Resolver. The used amount is whatever the unused coupons do not cover.
func Summarize(txs []domain.Transaction, coupons []domain.CouponRecord) domain.Summary {
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.Total)
	}

	unused := decimal.Zero
	for _, c := range coupons {
		unused = unused.Add(c.Amount)
	}

	return domain.Summary{
		TotalCount:   len(txs),
		TotalAmount:  total,
		UnusedCount:  len(coupons),
		UnusedAmount: unused,
		UsedAmount:   total.Sub(unused),
	}
}

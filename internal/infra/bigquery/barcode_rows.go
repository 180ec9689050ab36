package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/tenbis-barcodes/internal/domain"
)

type RunRow struct {
	RunID      string    `bigquery:"run_id"`      // REQUIRED
	VendorID   int64     `bigquery:"vendor_id"`   // REQUIRED
	VendorName string    `bigquery:"vendor_name"` // NULLABLE
	Currency   string    `bigquery:"currency"`    // NULLABLE
	MonthsBack int64     `bigquery:"months_back"` // REQUIRED
	StartedTS  time.Time `bigquery:"started_ts"`  // REQUIRED

	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE

	TotalCount   int64    `bigquery:"total_count"`   // REQUIRED
	TotalAmount  *big.Rat `bigquery:"total_amount"`  // NUMERIC
	UnusedCount  int64    `bigquery:"unused_count"`  // REQUIRED
	UnusedAmount *big.Rat `bigquery:"unused_amount"` // NUMERIC
	UsedAmount   *big.Rat `bigquery:"used_amount"`   // NUMERIC
	FilesWritten int64    `bigquery:"files_written"` // REQUIRED
}

type CouponRow struct {
	RunID         string            `bigquery:"run_id"`         // REQUIRED
	OrderID       int64             `bigquery:"order_id"`       // REQUIRED
	BarcodeNumber string            `bigquery:"barcode_number"` // REQUIRED
	Amount        *big.Rat          `bigquery:"amount"`         // NUMERIC
	ValidDateRaw  string            `bigquery:"valid_date_raw"` // NULLABLE
	ValidDate     bigquery.NullDate `bigquery:"valid_date"`     // NULLABLE
	OrderStatus   string            `bigquery:"order_status"`   // NULLABLE
	ImageURL      string            `bigquery:"image_url"`      // NULLABLE
	FileName      string            `bigquery:"file_name"`      // NULLABLE
}

// RowsFromRun converts a finished run into its summary row and one row per
// unused coupon.
func RowsFromRun(run *domain.Run) (*RunRow, []*CouponRow) {
	s := run.Summary
	rr := &RunRow{
		RunID:        run.ID,
		VendorID:     run.VendorID,
		VendorName:   run.VendorName,
		Currency:     run.Currency,
		MonthsBack:   int64(run.MonthsBack),
		StartedTS:    run.StartedAt,
		TotalCount:   int64(s.TotalCount),
		TotalAmount:  s.TotalAmount.Rat(),
		UnusedCount:  int64(s.UnusedCount),
		UnusedAmount: s.UnusedAmount.Rat(),
		UsedAmount:   s.UsedAmount.Rat(),
		FilesWritten: int64(len(run.Files)),
	}
	if !run.FinishedAt.IsZero() {
		rr.FinishedTS = bigquery.NullTimestamp{Timestamp: run.FinishedAt, Valid: true}
	}

	coupons := make([]*CouponRow, 0, len(run.Coupons))
	for _, c := range run.Coupons {
		row := &CouponRow{
			RunID:         run.ID,
			OrderID:       c.OrderID,
			BarcodeNumber: c.BarcodeNumber,
			Amount:        c.Amount.Rat(),
			ValidDateRaw:  c.ValidDate,
			OrderStatus:   c.OrderStatus,
			ImageURL:      c.ImageURL,
			FileName:      c.FileName(),
		}
		if d, err := c.ValidOn(); err == nil {
			row.ValidDate = bigquery.NullDate{Date: d, Valid: true}
		}
		coupons = append(coupons, row)
	}
	return rr, coupons
}

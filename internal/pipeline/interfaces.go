package pipeline

import (
	"context"
	"io"

	"github.com/dvloznov/tenbis-barcodes/internal/domain"
)

// TransactionSource returns one month of the transaction report.
// dateBias is the month offset: 0 is the current month, -1 the previous one.
type TransactionSource interface {
	MonthlyOrders(ctx context.Context, dateBias int) ([]domain.Transaction, error)
}

// CouponSource returns the coupon attached to one order. Orders without a
// coupon return domain.ErrMissingBarcode.
type CouponSource interface {
	OrderCoupon(ctx context.Context, orderID int64) (domain.CouponRecord, error)
}

// ImageFetcher opens a barcode image for reading. The caller closes it.
type ImageFetcher interface {
	FetchImage(ctx context.Context, url string) (io.ReadCloser, error)
}

// Archiver copies a finished run somewhere durable.
type Archiver interface {
	Archive(ctx context.Context, run *domain.Run) error
}

// Exporter writes a finished run to an analytics store.
type Exporter interface {
	Export(ctx context.Context, run *domain.Run) error
}

package pipeline

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/dvloznov/tenbis-barcodes/internal/domain"
	"github.com/dvloznov/tenbis-barcodes/internal/notify"
	"github.com/shopspring/decimal"
)

// MockTransactionSource is a TransactionSource for tests.
type MockTransactionSource struct {
	MonthlyOrdersFunc func(ctx context.Context, dateBias int) ([]domain.Transaction, error)
}

func (m *MockTransactionSource) MonthlyOrders(ctx context.Context, dateBias int) ([]domain.Transaction, error) {
	if m.MonthlyOrdersFunc != nil {
		return m.MonthlyOrdersFunc(ctx, dateBias)
	}
	return nil, nil
}

// MockCouponSource is a CouponSource for tests.
type MockCouponSource struct {
	OrderCouponFunc func(ctx context.Context, orderID int64) (domain.CouponRecord, error)
}

func (m *MockCouponSource) OrderCoupon(ctx context.Context, orderID int64) (domain.CouponRecord, error) {
	if m.OrderCouponFunc != nil {
		return m.OrderCouponFunc(ctx, orderID)
	}
	return domain.CouponRecord{}, domain.ErrMissingBarcode
}

// MockImageFetcher is an ImageFetcher for tests.
type MockImageFetcher struct {
	FetchImageFunc func(ctx context.Context, url string) (io.ReadCloser, error)
}

func (m *MockImageFetcher) FetchImage(ctx context.Context, url string) (io.ReadCloser, error) {
	if m.FetchImageFunc != nil {
		return m.FetchImageFunc(ctx, url)
	}
	return io.NopCloser(strings.NewReader("PNG:" + url)), nil
}

// MockArchiver is an Archiver for tests.
type MockArchiver struct {
	ArchiveFunc func(ctx context.Context, run *domain.Run) error
}

func (m *MockArchiver) Archive(ctx context.Context, run *domain.Run) error {
	if m.ArchiveFunc != nil {
		return m.ArchiveFunc(ctx, run)
	}
	return nil
}

// MockExporter is an Exporter for tests.
type MockExporter struct {
	ExportFunc func(ctx context.Context, run *domain.Run) error
}

func (m *MockExporter) Export(ctx context.Context, run *domain.Run) error {
	if m.ExportFunc != nil {
		return m.ExportFunc(ctx, run)
	}
	return nil
}

// MockNotifier records the messages it receives.
type MockNotifier struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (m *MockNotifier) Notify(ctx context.Context, msg notify.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *MockNotifier) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func tx(orderID, restaurantID int64, total string) domain.Transaction {
	return domain.Transaction{OrderID: orderID, RestaurantID: restaurantID, Total: dec(total)}
}

func unusedCoupon(orderID int64, barcode, amount string) domain.CouponRecord {
	return domain.CouponRecord{
		OrderID:       orderID,
		ImageURL:      "https://img.example.com/" + barcode + ".png",
		Amount:        dec(amount),
		ValidDate:     "31/12/2025",
		BarcodeNumber: barcode,
		OrderStatus:   "Delivered",
	}
}

// errReader fails after returning some bytes.
type errReader struct {
	sent bool
}

func (r *errReader) Read(p []byte) (int, error) {
	if !r.sent {
		r.sent = true
		return copy(p, "PARTIAL"), nil
	}
	return 0, io.ErrUnexpectedEOF
}

func (r *errReader) Close() error { return nil }

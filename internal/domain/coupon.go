package domain

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// StatusCanceled is the order status the vendor reports for canceled orders.
const StatusCanceled = "Canceled"

// ImageExtension is appended to every downloaded barcode file.
const ImageExtension = ".png"

// validDateLayouts are tried in order by ValidOn.
var validDateLayouts = []string{"02/01/2006", "2/1/2006", "02/01/06", "2006-01-02"}

// CouponRecord is the barcode metadata attached to a single order.
type CouponRecord struct {
	OrderID       int64
	ImageURL      string
	Amount        decimal.Decimal
	ValidDate     string // as formatted by the vendor, e.g. "31/12/2025"
	BarcodeNumber string
	Used          bool
	OrderStatus   string
}

// FileName returns "{barcode}_{validDate}_{amount}.png" with every "/" in the
// valid date replaced by "_". Two records with the same barcode, date and
// amount always map to the same name.
func (c CouponRecord) FileName() string {
	return fmt.Sprintf("%s_%s_%s%s",
		c.BarcodeNumber,
		strings.ReplaceAll(c.ValidDate, "/", "_"),
		c.Amount.String(),
		ImageExtension,
	)
}

// Canceled reports whether the order behind the coupon was canceled.
func (c CouponRecord) Canceled() bool {
	return strings.EqualFold(strings.TrimSpace(c.OrderStatus), StatusCanceled)
}

// ValidOn parses ValidDate into a calendar date.
func (c CouponRecord) ValidOn() (civil.Date, error) {
	raw := strings.TrimSpace(c.ValidDate)
	for _, layout := range validDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return civil.DateOf(t), nil
		}
	}
	return civil.Date{}, fmt.Errorf("ValidOn: unrecognized date %q", c.ValidDate)
}

// CouponFilter decides whether a resolved coupon is kept.
type CouponFilter func(CouponRecord) bool

// Unused keeps coupons that have not been redeemed.
func Unused(c CouponRecord) bool {
	return !c.Used
}

// UnusedNotCanceled keeps unredeemed coupons whose order was not canceled.
func UnusedNotCanceled(c CouponRecord) bool {
	return !c.Used && !c.Canceled()
}

// FilterFor returns the coupon filter for the given canceled-order policy.
func FilterFor(excludeCanceled bool) CouponFilter {
	if excludeCanceled {
		return UnusedNotCanceled
	}
	return Unused
}

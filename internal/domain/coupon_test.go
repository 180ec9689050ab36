package domain

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

func TestCouponRecord_FileName(t *testing.T) {
	tests := []struct {
		name   string
		coupon CouponRecord
		want   string
	}{
		{
			name:   "slashes in date become underscores",
			coupon: CouponRecord{BarcodeNumber: "9900123", ValidDate: "31/12/2025", Amount: decimal.NewFromInt(40)},
			want:   "9900123_31_12_2025_40.png",
		},
		{
			name:   "date without slashes is untouched",
			coupon: CouponRecord{BarcodeNumber: "77", ValidDate: "2025-12-31", Amount: decimal.NewFromInt(100)},
			want:   "77_2025-12-31_100.png",
		},
		{
			name:   "other characters are preserved",
			coupon: CouponRecord{BarcodeNumber: "A-1", ValidDate: "1/2/25 x", Amount: decimal.RequireFromString("25.5")},
			want:   "A-1_1_2_25 x_25.5.png",
		},
		{
			name:   "trailing zeros are normalized",
			coupon: CouponRecord{BarcodeNumber: "5", ValidDate: "01/01/2026", Amount: decimal.RequireFromString("30.00")},
			want:   "5_01_01_2026_30.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.coupon.FileName(); got != tt.want {
				t.Errorf("FileName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCouponRecord_FileNameIsDeterministic(t *testing.T) {
	a := CouponRecord{OrderID: 1, BarcodeNumber: "123", ValidDate: "05/06/2025", Amount: decimal.NewFromInt(20), ImageURL: "https://a"}
	b := CouponRecord{OrderID: 2, BarcodeNumber: "123", ValidDate: "05/06/2025", Amount: decimal.NewFromInt(20), ImageURL: "https://b"}

	if a.FileName() != b.FileName() {
		t.Errorf("same (barcode, date, amount) produced %q and %q", a.FileName(), b.FileName())
	}
}

func TestCouponRecord_ValidOn(t *testing.T) {
	tests := []struct {
		in      string
		want    civil.Date
		wantErr bool
	}{
		{"31/12/2025", civil.Date{Year: 2025, Month: 12, Day: 31}, false},
		{"1/2/2026", civil.Date{Year: 2026, Month: 2, Day: 1}, false},
		{"2026-03-04", civil.Date{Year: 2026, Month: 3, Day: 4}, false},
		{" 05/06/2025 ", civil.Date{Year: 2025, Month: 6, Day: 5}, false},
		{"soon", civil.Date{}, true},
		{"", civil.Date{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := CouponRecord{ValidDate: tt.in}.ValidOn()
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidOn(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ValidOn(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFilterFor(t *testing.T) {
	unused := CouponRecord{Used: false, OrderStatus: "Delivered"}
	used := CouponRecord{Used: true, OrderStatus: "Delivered"}
	canceled := CouponRecord{Used: false, OrderStatus: "Canceled"}

	strict := FilterFor(true)
	lenient := FilterFor(false)

	if !strict(unused) || !lenient(unused) {
		t.Error("unused, delivered coupon should pass both filters")
	}
	if strict(used) || lenient(used) {
		t.Error("used coupon should fail both filters")
	}
	if strict(canceled) {
		t.Error("canceled coupon should fail the strict filter")
	}
	if !lenient(canceled) {
		t.Error("canceled coupon should pass the lenient filter")
	}
}

func TestCouponRecord_Canceled(t *testing.T) {
	for _, status := range []string{"Canceled", "canceled", " Canceled "} {
		if !(CouponRecord{OrderStatus: status}).Canceled() {
			t.Errorf("Canceled() = false for %q", status)
		}
	}
	if (CouponRecord{OrderStatus: "Cancelled by user"}).Canceled() {
		t.Error("Canceled() should only match the exact status")
	}
}

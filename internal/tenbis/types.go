package tenbis

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dvloznov/tenbis-barcodes/internal/domain"
	"github.com/shopspring/decimal"
)

// envelope is the {"Data": ...} wrapper used by the NextApi endpoints.
type envelope[T any] struct {
	Data T `json:"Data"`
}

type localeFields struct {
	Culture   string `json:"culture"`
	UICulture string `json:"uiCulture"`
}

type transactionsRequest struct {
	localeFields
	DateBias string `json:"dateBias"`
}

type transactionsReport struct {
	OrderList []OrderSummary `json:"orderList"`
}

// OrderSummary is one row of the monthly transaction report.
type OrderSummary struct {
	OrderID        int64           `json:"orderId"`
	RestaurantID   int64           `json:"restaurantId"`
	RestaurantName string          `json:"restaurantName"`
	Total          decimal.Decimal `json:"total"`
}

// Transaction converts the row into a domain transaction.
func (o OrderSummary) Transaction(dateBias int) domain.Transaction {
	return domain.Transaction{
		OrderID:      o.OrderID,
		RestaurantID: o.RestaurantID,
		Total:        o.Total,
		DateBias:     dateBias,
	}
}

// Order is the order detail returned by /api/v1/Orders/{id}.
type Order struct {
	OrderID     int64    `json:"orderId"`
	OrderStatus string   `json:"orderStatus"`
	Barcode     *Barcode `json:"barcode"`
}

// Barcode is the coupon object nested in an order.
type Barcode struct {
	Used          bool            `json:"used"`
	BarCodeImgURL string          `json:"barCodeImgUrl"`
	Amount        decimal.Decimal `json:"amount"`
	ValidDate     string          `json:"validDate"`
	BarCodeNumber flexString      `json:"barCodeNumber"`
	OrderStatus   string          `json:"orderStatus"`
}

// Coupon converts the order detail into a coupon record. Orders without a
// barcode return domain.ErrMissingBarcode.
func (o *Order) Coupon(orderID int64) (domain.CouponRecord, error) {
	if o.Barcode == nil {
		return domain.CouponRecord{}, fmt.Errorf("order %d: %w", orderID, domain.ErrMissingBarcode)
	}
	status := o.OrderStatus
	if status == "" {
		status = o.Barcode.OrderStatus
	}
	return domain.CouponRecord{
		OrderID:       orderID,
		ImageURL:      o.Barcode.BarCodeImgURL,
		Amount:        o.Barcode.Amount,
		ValidDate:     o.Barcode.ValidDate,
		BarcodeNumber: string(o.Barcode.BarCodeNumber),
		Used:          o.Barcode.Used,
		OrderStatus:   status,
	}, nil
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("barcode number: %w", err)
	}
	*f = flexString(n.String())
	return nil
}

type requestCodeRequest struct {
	localeFields
	Email string `json:"email"`
}

type requestCodeResponse struct {
	CodeAuthenticationData struct {
		AuthenticationToken string `json:"authenticationToken"`
	} `json:"codeAuthenticationData"`
}

type verifyCodeRequest struct {
	localeFields
	Email               string `json:"email"`
	AuthenticationToken string `json:"authenticationToken"`
	AuthenticationCode  string `json:"authenticationCode"`
}

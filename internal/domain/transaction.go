package domain

import "github.com/shopspring/decimal"

// Transaction is one order summary from the monthly transaction report,
// already narrowed to the target vendor.
type Transaction struct {
	OrderID      int64
	RestaurantID int64
	Total        decimal.Decimal
	DateBias     int // month offset it was fetched under (0 = current month)
}

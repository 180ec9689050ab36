package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Summary aggregates one run's transactions and unused coupons.
type Summary struct {
	TotalCount   int
	TotalAmount  decimal.Decimal
	UnusedCount  int
	UnusedAmount decimal.Decimal
	UsedAmount   decimal.Decimal
}

// Render formats the summary as the multi-line report printed at the end of a run.
func (s Summary) Render(vendor, currency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total %s coupons: %d\n", vendor, s.TotalCount)
	fmt.Fprintf(&b, "Total amount of coupons: %s\n", s.TotalAmount.String())
	fmt.Fprintf(&b, "Used %s %s\n\n", s.UsedAmount.String(), currency)
	fmt.Fprintf(&b, "Unused coupons left: %d\n", s.UnusedCount)
	fmt.Fprintf(&b, "Unused coupons amount: %s %s\n", s.UnusedAmount.String(), currency)
	return b.String()
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Run is everything one fetch produced. Optional publishers (archive,
// export, notify) consume it after the core stages finish.
type Run struct {
	ID         string
	VendorID   int64
	VendorName string
	Currency   string
	MonthsBack int
	StartedAt  time.Time
	FinishedAt time.Time

	Transactions []Transaction
	Coupons      []CouponRecord
	Files        []string // absolute or dir-relative paths of written images
	OutputDir    string

	Summary Summary
	Report  string
}

// NewRunID returns a fresh identifier for a run.
func NewRunID() string {
	return uuid.NewString()
}

// Package notify delivers the downloaded barcodes once a run finishes.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/tenbis-barcodes/internal/domain"
)

// Message is what a run hands to its notifiers.
type Message struct {
	Summary string                // rendered report
	Files   []string              // paths of the written barcode images
	Coupons []domain.CouponRecord // unused coupons behind Files
}

// Notifier delivers a Message somewhere outside the process.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Multi fans a message out to several notifiers. Every notifier is tried;
// the failures are joined.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for i, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("notifier %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

package domain

import "errors"

var (
	// ErrUnauthorized means the remote rejected the session credential.
	// It is fatal for the run.
	ErrUnauthorized = errors.New("credential rejected by remote")

	// ErrNoCredential means no token, cookie or login email was supplied.
	ErrNoCredential = errors.New("no session credential available")

	// ErrUnexpectedStatus is returned for non-2xx responses other than auth failures.
	ErrUnexpectedStatus = errors.New("unexpected response status")

	// ErrMissingBarcode means an order detail carried no coupon object.
	ErrMissingBarcode = errors.New("order has no barcode")

	// ErrEmptyImageURL marks a coupon whose image url is missing or
	// malformed. The resolver drops such coupons and the client refuses to
	// fetch them.
	ErrEmptyImageURL = errors.New("barcode has no image url")

	// ErrOutputDir means the output directory could not be recreated.
	ErrOutputDir = errors.New("cannot prepare output directory")

	// ErrInvalidMonths is returned when the lookback window is not positive.
	ErrInvalidMonths = errors.New("months back must be positive")

	// ErrInvalidConfig wraps configuration validation failures.
	ErrInvalidConfig = errors.New("invalid configuration")
)

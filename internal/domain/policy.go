package domain

// FailurePolicy decides what a failed month does to collection.
type FailurePolicy string

const (
	// SkipFailures logs the failed month and continues with the rest.
	SkipFailures FailurePolicy = "skip"
	// AbortOnFailure stops collection at the first failed month.
	AbortOnFailure FailurePolicy = "abort"
)

// Valid reports whether p is a known policy.
func (p FailurePolicy) Valid() bool {
	return p == SkipFailures || p == AbortOnFailure
}

package btree

import "errors"

// Error taxonomy surfaced at the index's API boundary (spec §7). Routine,
// caller-recoverable failures, never panics.
var (
	// ErrBadOpcodes is returned by StartScan when lowOp/highOp are not one
	// of the recognized comparison operators.
	ErrBadOpcodes = errors.New("btree: lowOp must be GT/GTE and highOp must be LT/LTE")

	// ErrBadScanrange is returned by StartScan when highVal < lowVal.
	ErrBadScanrange = errors.New("btree: high bound is less than low bound")

	// ErrScanNotInitialized is returned by ScanNext/EndScan when called
	// outside of a scan.
	ErrScanNotInitialized = errors.New("btree: no scan in progress")

	// ErrIndexScanCompleted is returned by ScanNext once the high bound or
	// the last leaf has been passed.
	ErrIndexScanCompleted = errors.New("btree: scan has no more entries")

	// ErrValidationFailed is a sentinel used internally to unwind a failed
	// Validate walk; Validate itself reports failure via its bool return.
	ErrValidationFailed = errors.New("btree: structural invariant violated")
)

package settlement

import "errors"

// Sentinel kinds for settlement errors.
var (
	ErrSource = errors.New("settlement source failed")
	ErrLedger = errors.New("settlement ledger failed")
	// ErrDuplicateCredit is returned by a Ledger when the credit key is taken.
	ErrDuplicateCredit = errors.New("credit already recorded")
)

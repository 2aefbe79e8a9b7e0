package repository

import (
	"errors"

	"github.com/okian/prizeboard/internal/domain/settlement"
)

// Sentinel kinds for repository errors.
var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnknownDriver     = errors.New("unknown store driver")
	ErrEntryMoved        = errors.New("submission belongs to another contest")
	ErrPayoutProcessed   = errors.New("payout already processed")
	// ErrDuplicateCredit matches settlement.ErrDuplicateCredit.
	ErrDuplicateCredit = settlement.ErrDuplicateCredit
)

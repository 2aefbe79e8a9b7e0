package tiers

import "errors"

// Sentinel kinds for tier errors.
var (
	ErrTierConflict = errors.New("prize tier conflict")
	ErrInvalidTier  = errors.New("invalid prize tier")
)

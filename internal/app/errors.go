package service

import (
	"errors"

	"github.com/okian/prizeboard/internal/adapters/mq/queue"
	"github.com/okian/prizeboard/internal/adapters/repository"
	"github.com/okian/prizeboard/internal/domain/model"
	"github.com/okian/prizeboard/internal/domain/tiers"
)

// Sentinel kinds for service errors. Several alias lower layers so callers
// only need this package to classify failures.
var (
	ErrNotStarted        = errors.New("service not started")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidRank       = errors.New("invalid rank")
	ErrNoPrize           = errors.New("no prize for rank")
	ErrNotFound          = repository.ErrNotFound
	ErrInsufficientFunds = repository.ErrInsufficientFunds
	ErrPayoutProcessed   = repository.ErrPayoutProcessed
	ErrEntryMoved        = repository.ErrEntryMoved
	ErrTierConflict      = tiers.ErrTierConflict
	ErrInvalidTier       = tiers.ErrInvalidTier
	ErrUnknownKind       = model.ErrUnknownKind
	ErrQueueFull         = queue.ErrFull
)

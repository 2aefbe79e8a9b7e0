// Package settlement credits prizes to the participants holding prize-winning
// ranks once a contest has ended.
package settlement

import (
	"context"
	"time"

	"github.com/okian/prizeboard/internal/domain/model"
)

// ContestSource reads the contests, tiers and entries a settlement needs.
type ContestSource interface {
	// EndedContests returns contests whose deadline is before now.
	EndedContests(ctx context.Context, now time.Time) ([]model.Contest, error)
	PrizeTiers(ctx context.Context, contestID string) ([]model.PrizeTier, error)
	ApprovedEntries(ctx context.Context, contestID string) ([]model.Entry, error)
}

// Ledger stores wallet credits keyed by CreditKey.
type Ledger interface {
	HasCredit(ctx context.Context, key model.CreditKey) (bool, error)
	// RecordCredit must reject a second credit for the same key with an
	// error matching ErrDuplicateCredit.
	RecordCredit(ctx context.Context, tx model.Transaction) error
}

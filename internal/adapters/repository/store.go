// Package repository persists contests, entries, prize tiers and the wallet
// ledger. MemoryStore keeps everything in process; SQLStore uses database/sql
// with sqlite or postgres.
package repository

import (
	"context"
	"time"

	"github.com/okian/prizeboard/internal/domain/model"
	"github.com/okian/prizeboard/internal/domain/settlement"
)

// ContestStore holds contests, their prize tiers and submissions.
type ContestStore interface {
	settlement.ContestSource

	// Contest returns ErrNotFound for unknown ids.
	Contest(ctx context.Context, id string) (model.Contest, error)
	SaveContest(ctx context.Context, c model.Contest) error
	// ReplacePrizeTiers swaps the full tier set of a contest.
	ReplacePrizeTiers(ctx context.Context, contestID string, tiers []model.PrizeTier) error

	// Entry returns ErrNotFound for unknown submissions.
	Entry(ctx context.Context, submissionID string) (model.Entry, error)
	// UpsertEntry inserts or updates by SubmissionID. New entries are ordered
	// after existing ones; updates keep their position. A submission stays in
	// the contest it was first stored under: ErrEntryMoved otherwise.
	UpsertEntry(ctx context.Context, e model.Entry) error
}

// Ledger is the append-only wallet transaction log and the payout requests
// drawn against it.
type Ledger interface {
	settlement.Ledger

	// Transactions lists a participant's rows, oldest first.
	Transactions(ctx context.Context, participantID string) ([]model.Transaction, error)

	// CreatePayout stores a pending payout if the balance less other pending
	// payouts covers it, otherwise it returns ErrInsufficientFunds.
	CreatePayout(ctx context.Context, p model.Payout) error
	// Payout returns ErrNotFound for unknown ids.
	Payout(ctx context.Context, id string) (model.Payout, error)
	// Payouts lists a participant's payouts, oldest first.
	Payouts(ctx context.Context, participantID string) ([]model.Payout, error)
	// ApprovePayout completes a pending payout and appends debit for its
	// amount in one step. Processed payouts give ErrPayoutProcessed.
	ApprovePayout(ctx context.Context, id string, debit model.Transaction) (model.Payout, error)
	// RejectPayout closes a pending payout without touching the balance.
	RejectPayout(ctx context.Context, id string, at time.Time) (model.Payout, error)
}

// Store is the full persistence surface used by the service.
type Store interface {
	ContestStore
	Ledger
	Close() error
}

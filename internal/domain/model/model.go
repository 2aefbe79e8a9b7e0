// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// LeaderboardKind names one of the two independent ranking dimensions of a contest.
type LeaderboardKind string

const (
	Engagement LeaderboardKind = "engagement"
	Creativity LeaderboardKind = "creativity"
)

// Kinds lists every leaderboard kind in settlement order.
var Kinds = []LeaderboardKind{Engagement, Creativity}

// ParseKind parses a leaderboard kind case-insensitively.
func ParseKind(s string) (LeaderboardKind, error) {
	switch LeaderboardKind(strings.ToLower(strings.TrimSpace(s))) {
	case Engagement:
		return Engagement, nil
	case Creativity:
		return Creativity, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// String implements fmt.Stringer.
func (k LeaderboardKind) String() string { return string(k) }

// EntryStatus is the moderation state of a submission.
type EntryStatus string

const (
	StatusPending  EntryStatus = "pending"
	StatusApproved EntryStatus = "approved"
	StatusRejected EntryStatus = "rejected"
)

// Entry is a contest submission with its engagement counters and scores.
// A nil score means the submission has not been scored for that dimension.
type Entry struct {
	SubmissionID    string      `json:"submission_id"`
	ParticipantID   string      `json:"participant_id"`
	ContestID       string      `json:"contest_id"`
	Status          EntryStatus `json:"status"`
	EngagementScore *float64    `json:"engagement_score,omitempty"`
	CreativityScore *float64    `json:"creativity_score,omitempty"`
	Likes           int64       `json:"likes"`
	Comments        int64       `json:"comments"`
	Shares          int64       `json:"shares"`
	Views           int64       `json:"views"` // not counted in the engagement score
}

// Score returns the entry's score for kind and whether it is set. NaN counts
// as unset.
func (e Entry) Score(kind LeaderboardKind) (float64, bool) {
	var p *float64
	switch kind {
	case Engagement:
		p = e.EngagementScore
	case Creativity:
		p = e.CreativityScore
	}
	if p == nil || math.IsNaN(*p) {
		return 0, false
	}
	return *p, true
}

// EngagementScore derives the engagement metric from raw counters.
func EngagementScore(likes, comments, shares int64) float64 {
	return float64(likes + 2*comments + 3*shares)
}

// Float returns a pointer to v, for populating optional scores.
func Float(v float64) *float64 { return &v }

// PrizeTier maps a rank range of one leaderboard to a payout amount.
type PrizeTier struct {
	ID        string          `json:"id"`
	ContestID string          `json:"contest_id"`
	Kind      LeaderboardKind `json:"leaderboard_kind"`
	Label     string          `json:"label"`
	RankMin   int             `json:"rank_min"`
	RankMax   int             `json:"rank_max"`
	Amount    float64         `json:"amount"`
}

// Contest is a brand-run contest with a submission deadline.
type Contest struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Brand          string    `json:"brand"`
	Status         string    `json:"status"`
	Deadline       time.Time `json:"deadline"`
	EngagementPool float64   `json:"engagement_pool"`
	CreativityPool float64   `json:"creativity_pool"`
}

// Ended reports whether the contest deadline is strictly before now.
func (c Contest) Ended(now time.Time) bool {
	return c.Deadline.Before(now)
}

// TransactionType is the ledger side of a wallet transaction.
type TransactionType string

const (
	Credit TransactionType = "credit"
	Debit  TransactionType = "debit"
)

// Reasons recorded on wallet transactions.
const (
	ReasonContestPrize = "Contest Prize"
	ReasonPayout       = "Payout"
)

// CreditKey identifies a prize credit for idempotent settlement.
type CreditKey struct {
	ParticipantID string
	ContestID     string
	Kind          LeaderboardKind
	PrizeTierID   string
}

// String renders the key in a stable form, usable as a cache or dedupe key.
func (k CreditKey) String() string {
	return k.ParticipantID + "|" + k.ContestID + "|" + string(k.Kind) + "|" + k.PrizeTierID
}

// Transaction is a wallet ledger row. Prize credits carry the contest,
// leaderboard, rank and tier they were issued for; payouts leave them empty.
type Transaction struct {
	ID            string          `json:"id"`
	ParticipantID string          `json:"participant_id"`
	Type          TransactionType `json:"type"`
	Amount        float64         `json:"amount"`
	Reason        string          `json:"reason"`
	ContestID     string          `json:"contest_id,omitempty"`
	Kind          LeaderboardKind `json:"leaderboard_kind,omitempty"`
	Rank          int             `json:"rank,omitempty"`
	PrizeTierID   string          `json:"prize_tier_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Key returns the idempotency key of a prize credit.
func (t Transaction) Key() CreditKey {
	return CreditKey{
		ParticipantID: t.ParticipantID,
		ContestID:     t.ContestID,
		Kind:          t.Kind,
		PrizeTierID:   t.PrizeTierID,
	}
}

// PayoutStatus tracks a payout request through admin review.
type PayoutStatus string

const (
	PayoutPending   PayoutStatus = "pending"
	PayoutCompleted PayoutStatus = "completed"
	PayoutRejected  PayoutStatus = "rejected"
)

// Payout is a participant's request to withdraw from their wallet. The
// wallet is only debited when an admin approves it.
type Payout struct {
	ID            string       `json:"id"`
	ParticipantID string       `json:"participant_id"`
	Amount        float64      `json:"amount"`
	Status        PayoutStatus `json:"status"`
	RequestedAt   time.Time    `json:"requested_at"`
	ProcessedAt   *time.Time   `json:"processed_at,omitempty"`
	// TransactionID is the debit written on approval.
	TransactionID string `json:"transaction_id,omitempty"`
}

// Pending sums the amounts of payouts still awaiting review.
func Pending(payouts []Payout) float64 {
	var total float64
	for _, p := range payouts {
		if p.Status == PayoutPending {
			total += p.Amount
		}
	}
	return total
}

// SettlementJob asks a worker to settle one contest.
type SettlementJob struct {
	ContestID  string
	Trigger    string // "schedule", "api" or "cli"
	EnqueuedAt time.Time
}

// Balance sums credits minus debits.
func Balance(txs []Transaction) float64 {
	var total float64
	for _, tx := range txs {
		switch tx.Type {
		case Credit:
			total += tx.Amount
		case Debit:
			total -= tx.Amount
		}
	}
	return total
}

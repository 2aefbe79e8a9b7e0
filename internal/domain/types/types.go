// Package types contains read models returned by the service to its callers.
package types

import (
	"github.com/okian/prizeboard/internal/domain/model"
	"github.com/okian/prizeboard/internal/domain/ranking"
	"github.com/okian/prizeboard/internal/domain/tiers"
)

// Standing is one leaderboard row with the prize its rank would win.
type Standing struct {
	Rank          int      `json:"rank"`
	ParticipantID string   `json:"participant_id"`
	SubmissionID  string   `json:"submission_id"`
	Score         float64  `json:"score"`
	Prize         *float64 `json:"prize,omitempty"`
	TierLabel     string   `json:"tier_label,omitempty"`
}

// Leaderboard is a ranked view of one contest leaderboard.
type Leaderboard struct {
	ContestID string     `json:"contest_id"`
	Kind      string     `json:"kind"`
	Total     int        `json:"total"`
	Standings []Standing `json:"standings"`
}

// NewStandings pairs ranked entries with their possible prize.
func NewStandings(ranked []ranking.RankedEntry, resolved []tiers.Resolved) []Standing {
	out := make([]Standing, len(ranked))
	for i, r := range ranked {
		out[i] = Standing{
			Rank:          r.Rank,
			ParticipantID: r.Entry.ParticipantID,
			SubmissionID:  r.Entry.SubmissionID,
			Score:         r.Score,
		}
		if t, ok := tiers.Lookup(resolved, r.Rank); ok {
			amount := t.Amount
			out[i].Prize = &amount
			out[i].TierLabel = t.Label
		}
	}
	return out
}

// TierSet is the resolved tier configuration of one leaderboard.
type TierSet struct {
	ContestID string           `json:"contest_id"`
	Kind      string           `json:"kind"`
	Tiers     []tiers.Resolved `json:"tiers"`
	Dropped   []tiers.Dropped  `json:"dropped,omitempty"`
	TotalPool float64          `json:"total_pool"`
}

// RankPrize answers what a single rank would win.
type RankPrize struct {
	ContestID string  `json:"contest_id"`
	Kind      string  `json:"kind"`
	Rank      int     `json:"rank"`
	Amount    float64 `json:"amount"`
	TierID    string  `json:"tier_id"`
	TierLabel string  `json:"tier_label"`
}

// Wallet is a participant's balance and history. Available is the balance
// less payouts awaiting review.
type Wallet struct {
	ParticipantID string              `json:"participant_id"`
	Balance       float64             `json:"balance"`
	Available     float64             `json:"available"`
	Transactions  []model.Transaction `json:"transactions"`
	Payouts       []model.Payout      `json:"payouts"`
}

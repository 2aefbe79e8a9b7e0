package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/prizeboard/internal/domain/model"
	"github.com/okian/prizeboard/internal/domain/types"
	"github.com/okian/prizeboard/pkg/logger"
	"github.com/okian/prizeboard/pkg/metrics"
)

// Wallet returns a participant's balance, transaction history and payout
// requests. Available is the balance less pending payouts.
func (s *Service) Wallet(ctx context.Context, participantID string) (types.Wallet, error) {
	if strings.TrimSpace(participantID) == "" {
		return types.Wallet{}, fmt.Errorf("%w: participant id is required", ErrInvalidInput)
	}
	txs, err := s.store.Transactions(ctx, participantID)
	if err != nil {
		return types.Wallet{}, err
	}
	payouts, err := s.store.Payouts(ctx, participantID)
	if err != nil {
		return types.Wallet{}, err
	}
	if txs == nil {
		txs = []model.Transaction{}
	}
	if payouts == nil {
		payouts = []model.Payout{}
	}
	balance := model.Balance(txs)
	return types.Wallet{
		ParticipantID: participantID,
		Balance:       balance,
		Available:     balance - model.Pending(payouts),
		Transactions:  txs,
		Payouts:       payouts,
	}, nil
}

func recordPayoutFailure(err error) {
	switch {
	case errors.Is(err, ErrInsufficientFunds):
		metrics.RecordPayout("insufficient_funds")
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrPayoutProcessed):
		metrics.RecordPayout("invalid")
	default:
		metrics.RecordPayout("error")
	}
}

// RequestPayout opens a pending payout for amount. The wallet is debited
// only when an admin approves it.
func (s *Service) RequestPayout(ctx context.Context, participantID string, amount float64) (model.Payout, error) {
	if strings.TrimSpace(participantID) == "" {
		return model.Payout{}, fmt.Errorf("%w: participant id is required", ErrInvalidInput)
	}
	if !(amount > 0) {
		metrics.RecordPayout("invalid")
		return model.Payout{}, fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}

	p := model.Payout{
		ID:            uuid.NewString(),
		ParticipantID: participantID,
		Amount:        amount,
		Status:        model.PayoutPending,
		RequestedAt:   s.now().UTC(),
	}
	if err := s.store.CreatePayout(ctx, p); err != nil {
		recordPayoutFailure(err)
		return model.Payout{}, err
	}

	metrics.RecordPayout("requested")
	s.logger.Info(ctx, "payout requested",
		logger.String("payout_id", p.ID),
		logger.String("participant_id", participantID),
		logger.Float64("amount", amount))
	return p, nil
}

// ApprovePayout completes a pending payout and debits the wallet.
func (s *Service) ApprovePayout(ctx context.Context, payoutID string) (model.Payout, error) {
	if strings.TrimSpace(payoutID) == "" {
		return model.Payout{}, fmt.Errorf("%w: payout id is required", ErrInvalidInput)
	}
	debit := model.Transaction{
		ID:        uuid.NewString(),
		Type:      model.Debit,
		Reason:    model.ReasonPayout,
		CreatedAt: s.now().UTC(),
	}
	p, err := s.store.ApprovePayout(ctx, payoutID, debit)
	if err != nil {
		recordPayoutFailure(err)
		return model.Payout{}, err
	}

	metrics.RecordPayout("approved")
	s.logger.Info(ctx, "payout approved",
		logger.String("payout_id", p.ID),
		logger.String("participant_id", p.ParticipantID),
		logger.String("transaction_id", p.TransactionID),
		logger.Float64("amount", p.Amount))
	return p, nil
}

// RejectPayout closes a pending payout and releases its reservation.
func (s *Service) RejectPayout(ctx context.Context, payoutID string) (model.Payout, error) {
	if strings.TrimSpace(payoutID) == "" {
		return model.Payout{}, fmt.Errorf("%w: payout id is required", ErrInvalidInput)
	}
	p, err := s.store.RejectPayout(ctx, payoutID, s.now().UTC())
	if err != nil {
		recordPayoutFailure(err)
		return model.Payout{}, err
	}

	metrics.RecordPayout("rejected")
	s.logger.Info(ctx, "payout rejected",
		logger.String("payout_id", p.ID),
		logger.String("participant_id", p.ParticipantID))
	return p, nil
}

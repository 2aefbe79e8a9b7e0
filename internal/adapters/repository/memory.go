package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/prizeboard/internal/domain/model"
	"github.com/okian/prizeboard/pkg/metrics"
)

// MemoryStore implements Store with maps guarded by a RWMutex.
type MemoryStore struct {
	mu sync.RWMutex

	contests map[string]model.Contest
	tiers    map[string][]model.PrizeTier
	entries  map[string]model.Entry
	order    map[string][]string // contest id -> submission ids in insertion order

	txs     map[string][]model.Transaction // participant id -> rows
	credits map[model.CreditKey]struct{}

	payouts     map[string]model.Payout
	payoutOrder map[string][]string // participant id -> payout ids
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		contests: make(map[string]model.Contest),
		tiers:    make(map[string][]model.PrizeTier),
		entries:  make(map[string]model.Entry),
		order:    make(map[string][]string),
		txs:      make(map[string][]model.Transaction),
		credits:  make(map[model.CreditKey]struct{}),

		payouts:     make(map[string]model.Payout),
		payoutOrder: make(map[string][]string),
	}
}

func observeQuery(start time.Time) {
	metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
}

func observeUpdate(start time.Time) {
	metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Microseconds()) / 1000)
}

// EndedContests implements settlement.ContestSource.
func (s *MemoryStore) EndedContests(_ context.Context, now time.Time) ([]model.Contest, error) {
	defer observeQuery(time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Contest, 0)
	for _, c := range s.contests {
		if c.Ended(now) {
			out = append(out, c)
		}
	}
	sortContests(out)
	return out, nil
}

// PrizeTiers implements settlement.ContestSource.
func (s *MemoryStore) PrizeTiers(_ context.Context, contestID string) ([]model.PrizeTier, error) {
	defer observeQuery(time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]model.PrizeTier(nil), s.tiers[contestID]...), nil
}

// ApprovedEntries implements settlement.ContestSource.
func (s *MemoryStore) ApprovedEntries(_ context.Context, contestID string) ([]model.Entry, error) {
	defer observeQuery(time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.order[contestID]
	out := make([]model.Entry, 0, len(ids))
	for _, id := range ids {
		if e := s.entries[id]; e.Status == model.StatusApproved {
			out = append(out, e)
		}
	}
	return out, nil
}

// Contest implements ContestStore.
func (s *MemoryStore) Contest(_ context.Context, id string) (model.Contest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contests[id]
	if !ok {
		return model.Contest{}, fmt.Errorf("contest %s: %w", id, ErrNotFound)
	}
	return c, nil
}

// SaveContest implements ContestStore.
func (s *MemoryStore) SaveContest(_ context.Context, c model.Contest) error {
	defer observeUpdate(time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	s.contests[c.ID] = c
	return nil
}

// ReplacePrizeTiers implements ContestStore.
func (s *MemoryStore) ReplacePrizeTiers(_ context.Context, contestID string, tiers []model.PrizeTier) error {
	defer observeUpdate(time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contests[contestID]; !ok {
		return fmt.Errorf("contest %s: %w", contestID, ErrNotFound)
	}
	s.tiers[contestID] = append([]model.PrizeTier(nil), tiers...)
	return nil
}

// Entry implements ContestStore.
func (s *MemoryStore) Entry(_ context.Context, submissionID string) (model.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[submissionID]
	if !ok {
		return model.Entry{}, fmt.Errorf("submission %s: %w", submissionID, ErrNotFound)
	}
	return e, nil
}

// UpsertEntry implements ContestStore.
func (s *MemoryStore) UpsertEntry(_ context.Context, e model.Entry) error {
	defer observeUpdate(time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contests[e.ContestID]; !ok {
		return fmt.Errorf("contest %s: %w", e.ContestID, ErrNotFound)
	}
	prev, ok := s.entries[e.SubmissionID]
	switch {
	case !ok:
		s.order[e.ContestID] = append(s.order[e.ContestID], e.SubmissionID)
	case prev.ContestID != e.ContestID:
		return fmt.Errorf("submission %s is in contest %s: %w", e.SubmissionID, prev.ContestID, ErrEntryMoved)
	}
	s.entries[e.SubmissionID] = e
	return nil
}

// HasCredit implements settlement.Ledger.
func (s *MemoryStore) HasCredit(_ context.Context, key model.CreditKey) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.credits[key]
	return ok, nil
}

// RecordCredit implements settlement.Ledger.
func (s *MemoryStore) RecordCredit(_ context.Context, tx model.Transaction) error {
	defer observeUpdate(time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tx.Key()
	if _, ok := s.credits[key]; ok {
		return fmt.Errorf("credit %s: %w", key, ErrDuplicateCredit)
	}
	tx.Type = model.Credit
	s.credits[key] = struct{}{}
	s.txs[tx.ParticipantID] = append(s.txs[tx.ParticipantID], tx)
	return nil
}

// Transactions implements Ledger.
func (s *MemoryStore) Transactions(_ context.Context, participantID string) ([]model.Transaction, error) {
	defer observeQuery(time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]model.Transaction(nil), s.txs[participantID]...), nil
}

func (s *MemoryStore) pendingLocked(participantID string) float64 {
	var total float64
	for _, id := range s.payoutOrder[participantID] {
		if p := s.payouts[id]; p.Status == model.PayoutPending {
			total += p.Amount
		}
	}
	return total
}

// CreatePayout implements Ledger.
func (s *MemoryStore) CreatePayout(_ context.Context, p model.Payout) error {
	defer observeUpdate(time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	available := model.Balance(s.txs[p.ParticipantID]) - s.pendingLocked(p.ParticipantID)
	if p.Amount > available {
		return fmt.Errorf("payout %.2f against available %.2f: %w", p.Amount, available, ErrInsufficientFunds)
	}
	p.Status = model.PayoutPending
	s.payouts[p.ID] = p
	s.payoutOrder[p.ParticipantID] = append(s.payoutOrder[p.ParticipantID], p.ID)
	return nil
}

// Payout implements Ledger.
func (s *MemoryStore) Payout(_ context.Context, id string) (model.Payout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.payouts[id]
	if !ok {
		return model.Payout{}, fmt.Errorf("payout %s: %w", id, ErrNotFound)
	}
	return p, nil
}

// Payouts implements Ledger.
func (s *MemoryStore) Payouts(_ context.Context, participantID string) ([]model.Payout, error) {
	defer observeQuery(time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.payoutOrder[participantID]
	out := make([]model.Payout, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.payouts[id])
	}
	return out, nil
}

// pendingPayoutLocked returns the payout if it still awaits review.
func (s *MemoryStore) pendingPayoutLocked(id string) (model.Payout, error) {
	p, ok := s.payouts[id]
	if !ok {
		return model.Payout{}, fmt.Errorf("payout %s: %w", id, ErrNotFound)
	}
	if p.Status != model.PayoutPending {
		return model.Payout{}, fmt.Errorf("payout %s is %s: %w", id, p.Status, ErrPayoutProcessed)
	}
	return p, nil
}

// ApprovePayout implements Ledger.
func (s *MemoryStore) ApprovePayout(_ context.Context, id string, debit model.Transaction) (model.Payout, error) {
	defer observeUpdate(time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.pendingPayoutLocked(id)
	if err != nil {
		return model.Payout{}, err
	}
	if balance := model.Balance(s.txs[p.ParticipantID]); p.Amount > balance {
		return model.Payout{}, fmt.Errorf("debit %.2f against balance %.2f: %w", p.Amount, balance, ErrInsufficientFunds)
	}

	debit.ParticipantID, debit.Amount, debit.Type = p.ParticipantID, p.Amount, model.Debit
	s.txs[p.ParticipantID] = append(s.txs[p.ParticipantID], debit)

	at := debit.CreatedAt
	p.Status, p.ProcessedAt, p.TransactionID = model.PayoutCompleted, &at, debit.ID
	s.payouts[id] = p
	return p, nil
}

// RejectPayout implements Ledger.
func (s *MemoryStore) RejectPayout(_ context.Context, id string, at time.Time) (model.Payout, error) {
	defer observeUpdate(time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.pendingPayoutLocked(id)
	if err != nil {
		return model.Payout{}, err
	}
	p.Status, p.ProcessedAt = model.PayoutRejected, &at
	s.payouts[id] = p
	return p, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/prizeboard/internal/domain/model"
	"github.com/okian/prizeboard/internal/domain/settlement"
	"github.com/okian/prizeboard/pkg/logger"
	"github.com/okian/prizeboard/pkg/metrics"
)

// SettleContest credits the prizes of one contest now. It implements
// worker.Settler and is also used directly by the CLI.
func (s *Service) SettleContest(ctx context.Context, contestID string) (settlement.Report, error) {
	dist, _, err := s.pipeline()
	if err != nil {
		return settlement.Report{}, err
	}
	c, err := s.store.Contest(ctx, contestID)
	if err != nil {
		return settlement.Report{}, err
	}
	if !c.Ended(s.now()) {
		return settlement.Report{}, fmt.Errorf("%w: contest %s has not ended", ErrInvalidInput, contestID)
	}
	return dist.DistributeContest(ctx, c)
}

// SettleAll synchronously settles every ended contest in turn.
func (s *Service) SettleAll(ctx context.Context) (settlement.Report, error) {
	dist, _, err := s.pipeline()
	if err != nil {
		return settlement.Report{}, err
	}
	return dist.DistributeAll(ctx, s.now())
}

// EndedContests lists contests past their deadline.
func (s *Service) EndedContests(ctx context.Context) ([]model.Contest, error) {
	return s.store.EndedContests(ctx, s.now())
}

// EnqueueSettlement queues one contest for asynchronous settlement. It
// returns false without error when the contest is already queued or running.
func (s *Service) EnqueueSettlement(ctx context.Context, contestID, trigger string) (bool, error) {
	_, q, err := s.pipeline()
	if err != nil {
		return false, err
	}
	if s.deduper.SeenAndRecord(ctx, contestID) {
		metrics.RecordSettlementDeduped()
		s.logger.Debug(ctx, "settlement already in flight", logger.String("contest_id", contestID))
		return false, nil
	}

	job := model.SettlementJob{ContestID: contestID, Trigger: trigger, EnqueuedAt: s.now().UTC()}
	if err := q.Enqueue(ctx, job); err != nil {
		s.deduper.Unrecord(ctx, contestID)
		return false, err
	}
	return true, nil
}

// EnqueueEnded queues every ended contest. On backpressure it stops and
// returns how many were queued so far.
func (s *Service) EnqueueEnded(ctx context.Context, trigger string) (int, error) {
	contests, err := s.EndedContests(ctx)
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, c := range contests {
		ok, err := s.EnqueueSettlement(ctx, c.ID, trigger)
		if err != nil {
			if errors.Is(err, ErrQueueFull) {
				return queued, err
			}
			return queued, fmt.Errorf("enqueue %s: %w", c.ID, err)
		}
		if ok {
			queued++
		}
	}
	return queued, nil
}

package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/prizeboard/internal/domain/model"
	"github.com/okian/prizeboard/internal/domain/ranking"
	"github.com/okian/prizeboard/internal/domain/tiers"
	"github.com/okian/prizeboard/pkg/logger"
	"github.com/okian/prizeboard/pkg/metrics"
)

// Report summarises a settlement run. On error it holds what was done
// before the failure.
type Report struct {
	Contests int     `json:"contests"`
	Issued   int     `json:"issued"`
	Skipped  int     `json:"skipped"`
	Dropped  int     `json:"dropped_tiers"`
	Amount   float64 `json:"amount"`
}

func (r *Report) add(o Report) {
	r.Contests += o.Contests
	r.Issued += o.Issued
	r.Skipped += o.Skipped
	r.Dropped += o.Dropped
	r.Amount += o.Amount
}

// Distributor credits prizes for ended contests. It is safe to run
// repeatedly and concurrently: each CreditKey is written at most once.
type Distributor struct {
	source ContestSource
	ledger Ledger
	log    logger.Logger
	now    func() time.Time
}

// NewDistributor creates a Distributor over the given ports.
func NewDistributor(source ContestSource, ledger Ledger, opts ...Option) *Distributor {
	d := &Distributor{
		source: source,
		ledger: ledger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = logger.Get().Named("settlement")
	}
	return d
}

// DistributeAll settles every contest that ended before now.
func (d *Distributor) DistributeAll(ctx context.Context, now time.Time) (Report, error) {
	var total Report

	contests, err := d.source.EndedContests(ctx, now)
	if err != nil {
		return total, fmt.Errorf("%w: ended contests: %w", ErrSource, err)
	}

	for _, c := range contests {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		rep, err := d.DistributeContest(ctx, c)
		total.add(rep)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// DistributeContest settles both leaderboards of one contest.
func (d *Distributor) DistributeContest(ctx context.Context, contest model.Contest) (rep Report, err error) {
	start := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
			metrics.RecordErrorByComponent("settlement", "distribute")
		}
		metrics.RecordSettlementRun(result, float64(time.Since(start).Milliseconds()))
	}()

	configured, err := d.source.PrizeTiers(ctx, contest.ID)
	if err != nil {
		return rep, fmt.Errorf("%w: tiers for %s: %w", ErrSource, contest.ID, err)
	}
	entries, err := d.source.ApprovedEntries(ctx, contest.ID)
	if err != nil {
		return rep, fmt.Errorf("%w: entries for %s: %w", ErrSource, contest.ID, err)
	}

	rep.Contests = 1
	for _, kind := range model.Kinds {
		if err = d.distributeKind(ctx, contest, kind, configured, entries, &rep); err != nil {
			return rep, err
		}
	}

	d.log.Info(ctx, "contest settled",
		logger.String("contest_id", contest.ID),
		logger.Int("issued", rep.Issued),
		logger.Int("skipped", rep.Skipped),
		logger.Float64("amount", rep.Amount),
	)
	return rep, nil
}

func (d *Distributor) distributeKind(
	ctx context.Context,
	contest model.Contest,
	kind model.LeaderboardKind,
	configured []model.PrizeTier,
	entries []model.Entry,
	rep *Report,
) error {
	res := tiers.ResolveKind(configured, kind)
	for _, dr := range res.Dropped {
		rep.Dropped++
		metrics.RecordTierDropped(string(kind), string(dr.Reason))
		d.log.Warn(ctx, "prize tier dropped",
			logger.String("contest_id", contest.ID),
			logger.String("kind", string(kind)),
			logger.String("tier_id", dr.Tier.ID),
			logger.String("label", dr.Tier.Label),
			logger.String("reason", string(dr.Reason)),
		)
	}

	ranked := ranking.Rank(entries, kind)
	for _, t := range res.Tiers {
		for r := t.RankMin; r <= t.RankMax && r <= len(ranked); r++ {
			if err := d.credit(ctx, contest.ID, kind, t, ranked[r-1], rep); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Distributor) credit(
	ctx context.Context,
	contestID string,
	kind model.LeaderboardKind,
	t tiers.Resolved,
	re ranking.RankedEntry,
	rep *Report,
) error {
	key := model.CreditKey{
		ParticipantID: re.Entry.ParticipantID,
		ContestID:     contestID,
		Kind:          kind,
		PrizeTierID:   t.ID,
	}

	exists, err := d.ledger.HasCredit(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: lookup %s: %w", ErrLedger, key, err)
	}
	if exists {
		rep.Skipped++
		metrics.RecordCreditSkipped(string(kind))
		return nil
	}

	tx := model.Transaction{
		ID:            uuid.NewString(),
		ParticipantID: key.ParticipantID,
		Type:          model.Credit,
		Amount:        t.Amount,
		Reason:        model.ReasonContestPrize,
		ContestID:     contestID,
		Kind:          kind,
		Rank:          re.Rank,
		PrizeTierID:   t.ID,
		CreatedAt:     d.now().UTC(),
	}
	if err := d.ledger.RecordCredit(ctx, tx); err != nil {
		if errors.Is(err, ErrDuplicateCredit) {
			rep.Skipped++
			metrics.RecordCreditSkipped(string(kind))
			return nil
		}
		return fmt.Errorf("%w: record %s: %w", ErrLedger, key, err)
	}

	rep.Issued++
	rep.Amount += t.Amount
	metrics.RecordCreditIssued(string(kind), t.Amount)
	d.log.Debug(ctx, "prize credited",
		logger.String("participant_id", key.ParticipantID),
		logger.String("contest_id", contestID),
		logger.String("kind", string(kind)),
		logger.Int("rank", re.Rank),
		logger.Float64("amount", t.Amount),
	)
	return nil
}

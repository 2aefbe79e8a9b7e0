package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/prizeboard/internal/domain/model"
	"github.com/okian/prizeboard/internal/domain/ranking"
	"github.com/okian/prizeboard/internal/domain/tiers"
	"github.com/okian/prizeboard/internal/domain/types"
	"github.com/okian/prizeboard/pkg/logger"
	"github.com/okian/prizeboard/pkg/metrics"
)

// Leaderboard ranks a contest's approved entries for kind and attaches the
// prize each rank would win. limit <= 0 means the configured maximum.
func (s *Service) Leaderboard(ctx context.Context, contestID, kind string, limit int) (types.Leaderboard, error) {
	k, err := model.ParseKind(kind)
	if err != nil {
		return types.Leaderboard{}, err
	}
	if _, err := s.store.Contest(ctx, contestID); err != nil {
		return types.Leaderboard{}, err
	}
	entries, err := s.store.ApprovedEntries(ctx, contestID)
	if err != nil {
		return types.Leaderboard{}, err
	}
	configured, err := s.store.PrizeTiers(ctx, contestID)
	if err != nil {
		return types.Leaderboard{}, err
	}
	metrics.RecordLeaderboardQuery(k.String())

	if limit <= 0 || limit > s.maxLeaderboardLimit {
		limit = s.maxLeaderboardLimit
	}
	ranked := ranking.Rank(entries, k)
	res := tiers.ResolveKind(configured, k)

	return types.Leaderboard{
		ContestID: contestID,
		Kind:      k.String(),
		Total:     len(ranked),
		Standings: types.NewStandings(ranking.Top(ranked, limit), res.Tiers),
	}, nil
}

// ResolvedTiers returns the effective tiers of one leaderboard.
func (s *Service) ResolvedTiers(ctx context.Context, contestID, kind string) (types.TierSet, error) {
	k, err := model.ParseKind(kind)
	if err != nil {
		return types.TierSet{}, err
	}
	if _, err := s.store.Contest(ctx, contestID); err != nil {
		return types.TierSet{}, err
	}
	configured, err := s.store.PrizeTiers(ctx, contestID)
	if err != nil {
		return types.TierSet{}, err
	}
	res := tiers.ResolveKind(configured, k)
	return types.TierSet{
		ContestID: contestID,
		Kind:      k.String(),
		Tiers:     res.Tiers,
		Dropped:   res.Dropped,
		TotalPool: tiers.TotalPool(res.Tiers),
	}, nil
}

// PrizeForRank answers what rank would win on one leaderboard.
func (s *Service) PrizeForRank(ctx context.Context, contestID, kind string, rank int) (types.RankPrize, error) {
	if rank < 1 {
		return types.RankPrize{}, fmt.Errorf("%w: %d", ErrInvalidRank, rank)
	}
	set, err := s.ResolvedTiers(ctx, contestID, kind)
	if err != nil {
		return types.RankPrize{}, err
	}
	t, ok := tiers.Lookup(set.Tiers, rank)
	if !ok {
		return types.RankPrize{}, fmt.Errorf("%w: rank %d", ErrNoPrize, rank)
	}
	return types.RankPrize{
		ContestID: contestID,
		Kind:      set.Kind,
		Rank:      rank,
		Amount:    t.Amount,
		TierID:    t.ID,
		TierLabel: t.Label,
	}, nil
}

// SaveContest creates or updates a contest.
func (s *Service) SaveContest(ctx context.Context, c model.Contest) error {
	c.ID = strings.TrimSpace(c.ID)
	if c.ID == "" {
		return fmt.Errorf("%w: contest id is required", ErrInvalidInput)
	}
	if c.Deadline.IsZero() {
		return fmt.Errorf("%w: contest deadline is required", ErrInvalidInput)
	}
	return s.store.SaveContest(ctx, c)
}

// ReplacePrizeTiers validates and stores the full tier set of a contest.
// Group tiers are stored with the rank range they resolve to. The stored
// tiers are returned.
func (s *Service) ReplacePrizeTiers(ctx context.Context, contestID string, in []model.PrizeTier) ([]model.PrizeTier, error) {
	if _, err := s.store.Contest(ctx, contestID); err != nil {
		return nil, err
	}

	out := make([]model.PrizeTier, len(in))
	for i, t := range in {
		if strings.TrimSpace(t.Label) == "" {
			return nil, fmt.Errorf("%w: tier %d has no label", ErrInvalidTier, i)
		}
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		t.ContestID = contestID
		out[i] = t
	}
	if err := tiers.Validate(out); err != nil {
		return nil, err
	}

	bounds := make(map[string]tiers.Resolved, len(out))
	for _, k := range model.Kinds {
		for _, r := range tiers.ResolveKind(out, k).Tiers {
			bounds[r.ID] = r
		}
	}
	for i := range out {
		if r, ok := bounds[out[i].ID]; ok && r.Group {
			out[i].RankMin, out[i].RankMax = r.RankMin, r.RankMax
		}
	}

	if err := s.store.ReplacePrizeTiers(ctx, contestID, out); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "prize tiers replaced",
		logger.String("contest_id", contestID), logger.Int("tiers", len(out)))
	return out, nil
}

// Contest returns one contest.
func (s *Service) Contest(ctx context.Context, contestID string) (model.Contest, error) {
	return s.store.Contest(ctx, contestID)
}

// Entry returns one submission.
func (s *Service) Entry(ctx context.Context, submissionID string) (model.Entry, error) {
	return s.store.Entry(ctx, submissionID)
}

func validCounters(likes, comments, shares, views int64) error {
	if likes < 0 || comments < 0 || shares < 0 || views < 0 {
		return fmt.Errorf("%w: negative engagement counter", ErrInvalidInput)
	}
	return nil
}

// UpsertEntry stores a submission. The engagement score is always derived
// from the counters. On update an unset status or creativity score keeps
// the stored value. A new entry without a status is pending. A submission
// cannot change contest.
func (s *Service) UpsertEntry(ctx context.Context, e model.Entry) error {
	if e.SubmissionID == "" || e.ParticipantID == "" || e.ContestID == "" {
		return fmt.Errorf("%w: submission, participant and contest ids are required", ErrInvalidInput)
	}
	if err := validCounters(e.Likes, e.Comments, e.Shares, e.Views); err != nil {
		return err
	}
	if e.CreativityScore != nil {
		if _, ok := e.Score(model.Creativity); !ok || *e.CreativityScore < 0 {
			return fmt.Errorf("%w: creativity score %v", ErrInvalidInput, *e.CreativityScore)
		}
	}

	prev, err := s.store.Entry(ctx, e.SubmissionID)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return err
	case prev.ContestID != e.ContestID:
		return fmt.Errorf("%w: submission %s belongs to contest %s: %w",
			ErrInvalidInput, e.SubmissionID, prev.ContestID, ErrEntryMoved)
	default:
		if e.Status == "" {
			e.Status = prev.Status
		}
		if e.CreativityScore == nil {
			e.CreativityScore = prev.CreativityScore
		}
	}
	if e.Status == "" {
		e.Status = model.StatusPending
	}
	e.EngagementScore = model.Float(model.EngagementScore(e.Likes, e.Comments, e.Shares))
	return s.store.UpsertEntry(ctx, e)
}

// UpdateEngagement replaces a submission's counters and derived engagement
// score, leaving every other field as stored.
func (s *Service) UpdateEngagement(ctx context.Context, submissionID string, likes, comments, shares, views int64) (model.Entry, error) {
	if err := validCounters(likes, comments, shares, views); err != nil {
		return model.Entry{}, err
	}
	e, err := s.store.Entry(ctx, submissionID)
	if err != nil {
		return model.Entry{}, err
	}
	e.Likes, e.Comments, e.Shares, e.Views = likes, comments, shares, views
	e.EngagementScore = model.Float(model.EngagementScore(likes, comments, shares))
	if err := s.store.UpsertEntry(ctx, e); err != nil {
		return model.Entry{}, err
	}
	return e, nil
}

// SetCreativityScore records a judge's creativity score for a submission.
func (s *Service) SetCreativityScore(ctx context.Context, submissionID string, score float64) error {
	if !(score >= 0) {
		return fmt.Errorf("%w: creativity score %v", ErrInvalidInput, score)
	}
	e, err := s.store.Entry(ctx, submissionID)
	if err != nil {
		return err
	}
	e.CreativityScore = model.Float(score)
	return s.store.UpsertEntry(ctx, e)
}

// ApproveEntry marks a submission approved so it is ranked.
func (s *Service) ApproveEntry(ctx context.Context, submissionID string) error {
	e, err := s.store.Entry(ctx, submissionID)
	if err != nil {
		return err
	}
	e.Status = model.StatusApproved
	return s.store.UpsertEntry(ctx, e)
}

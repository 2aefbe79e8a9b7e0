// Package tiers resolves configured prize tiers into non-overlapping rank
// ranges and answers rank-to-prize lookups against the result.
//
// Individual tiers ("1st Place", "2nd Place") claim the rank range they were
// configured with. Group tiers, whose label contains "Top N", are placed
// directly after the highest rank already claimed, so their stored bounds are
// ignored. Any tier that would share a rank with an earlier one is dropped.
package tiers

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"

	"github.com/okian/prizeboard/internal/domain/model"
)

// DefaultGroupSize is used when a group label carries no usable number.
const DefaultGroupSize = 10

// MaxGroupSize is the largest N a "Top N" label may name.
const MaxGroupSize = 10_000

var groupLabel = regexp.MustCompile(`(?i)top\s*(\d+)`)

// DropReason explains why a tier did not make it into a resolution.
type DropReason string

const (
	ReasonOverlap      DropReason = "overlap"
	ReasonInvalidRange DropReason = "invalid_range"
)

// Resolved is a prize tier with its effective rank bounds.
type Resolved struct {
	model.PrizeTier
	Group bool `json:"group"`
}

// Dropped is a tier that was skipped during resolution.
type Dropped struct {
	Tier   model.PrizeTier `json:"tier"`
	Reason DropReason      `json:"reason"`
	// Effective bounds the tier would have claimed.
	RankMin int `json:"rank_min"`
	RankMax int `json:"rank_max"`
}

// Resolution is the outcome of resolving one leaderboard's tiers.
// Tiers are in claim order: individual tiers by RankMin, then group tiers.
type Resolution struct {
	Tiers   []Resolved `json:"tiers"`
	Dropped []Dropped  `json:"dropped,omitempty"`
}

// IsGroup reports whether label names a group tier.
func IsGroup(label string) bool {
	return groupLabel.MatchString(label)
}

// GroupSize extracts N from a "Top N" label, falling back to DefaultGroupSize
// when the label has no positive number. N above MaxGroupSize is an error.
func GroupSize(label string) (int, error) {
	m := groupLabel.FindStringSubmatch(label)
	if len(m) < 2 {
		return DefaultGroupSize, nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return DefaultGroupSize, nil
	}
	if err != nil || n > MaxGroupSize {
		return 0, fmt.Errorf("%w: %q names more than %d ranks", ErrInvalidTier, label, MaxGroupSize)
	}
	if n <= 0 {
		return DefaultGroupSize, nil
	}
	return n, nil
}

// ResolveKind resolves only the tiers configured for kind.
func ResolveKind(all []model.PrizeTier, kind model.LeaderboardKind) Resolution {
	filtered := make([]model.PrizeTier, 0, len(all))
	for _, t := range all {
		if t.Kind == kind {
			filtered = append(filtered, t)
		}
	}
	return Resolve(filtered)
}

// Resolve places the tiers of a single leaderboard onto disjoint rank ranges.
// The input is not modified; the same input always yields the same result.
func Resolve(in []model.PrizeTier) Resolution {
	var (
		res        Resolution
		used       rangeSet
		individual []model.PrizeTier
		groups     []model.PrizeTier
	)

	for _, t := range in {
		if IsGroup(t.Label) {
			groups = append(groups, t)
		} else {
			individual = append(individual, t)
		}
	}

	sort.SliceStable(individual, func(i, j int) bool {
		return individual[i].RankMin < individual[j].RankMin
	})

	for _, t := range individual {
		lo, hi := t.RankMin, t.RankMax
		if hi < lo {
			hi = lo
		}
		if lo < 1 {
			res.drop(t, ReasonInvalidRange, lo, hi)
			continue
		}
		res.claim(&used, t, lo, hi, false)
	}

	for _, t := range groups {
		lo := used.max() + 1
		n, err := GroupSize(t.Label)
		if err != nil || lo < 1 || lo > math.MaxInt-n {
			res.drop(t, ReasonInvalidRange, lo, lo)
			continue
		}
		res.claim(&used, t, lo, lo+n-1, true)
	}

	return res
}

func (r *Resolution) claim(used *rangeSet, t model.PrizeTier, lo, hi int, group bool) {
	if used.intersects(lo, hi) {
		r.drop(t, ReasonOverlap, lo, hi)
		return
	}
	used.add(lo, hi)
	t.RankMin, t.RankMax = lo, hi
	r.Tiers = append(r.Tiers, Resolved{PrizeTier: t, Group: group})
}

func (r *Resolution) drop(t model.PrizeTier, reason DropReason, lo, hi int) {
	r.Dropped = append(r.Dropped, Dropped{Tier: t, Reason: reason, RankMin: lo, RankMax: hi})
}

// Validate resolves each leaderboard's tiers and fails when any tier would be
// dropped: ErrTierConflict for overlaps, ErrInvalidTier for unusable ranges.
func Validate(all []model.PrizeTier) error {
	for _, t := range all {
		if t.Kind != model.Engagement && t.Kind != model.Creativity {
			return fmt.Errorf("%w: tier %q: %w", ErrInvalidTier, t.Label, model.ErrUnknownKind)
		}
		if t.Amount < 0 {
			return fmt.Errorf("%w: tier %q has negative amount", ErrInvalidTier, t.Label)
		}
	}
	for _, kind := range model.Kinds {
		res := ResolveKind(all, kind)
		if len(res.Dropped) == 0 {
			continue
		}
		d := res.Dropped[0]
		if d.Reason == ReasonInvalidRange {
			return fmt.Errorf("%w: %s tier %q has no usable rank range", ErrInvalidTier, kind, d.Tier.Label)
		}
		return fmt.Errorf("%w: %s tier %q (%s, ranks %d-%d) and %d more",
			ErrTierConflict, kind, d.Tier.Label, d.Reason, d.RankMin, d.RankMax, len(res.Dropped)-1)
	}
	return nil
}

// TotalPool is the sum paid out if every resolved rank is filled.
func TotalPool(resolved []Resolved) float64 {
	var total float64
	for _, t := range resolved {
		total += float64(t.RankMax-t.RankMin+1) * t.Amount
	}
	return total
}

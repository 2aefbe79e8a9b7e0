// Package ranking orders contest entries into a leaderboard for one kind.
package ranking

import (
	"sort"

	"github.com/okian/prizeboard/internal/domain/model"
)

// RankedEntry is an entry with its 1-based leaderboard position.
type RankedEntry struct {
	Rank  int         `json:"rank"`
	Score float64     `json:"score"`
	Entry model.Entry `json:"-"`
}

// Rank drops entries without a score for kind and orders the rest by score,
// highest first. Equal scores keep their input order. Ranks are 1..N with no
// gaps or ties. entries is not modified.
func Rank(entries []model.Entry, kind model.LeaderboardKind) []RankedEntry {
	out := make([]RankedEntry, 0, len(entries))
	for _, e := range entries {
		score, ok := e.Score(kind)
		if !ok {
			continue
		}
		out = append(out, RankedEntry{Score: score, Entry: e})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})

	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// Top returns at most n leading entries. n <= 0 returns all of them.
func Top(ranked []RankedEntry, n int) []RankedEntry {
	if n <= 0 || n >= len(ranked) {
		return ranked
	}
	return ranked[:n]
}

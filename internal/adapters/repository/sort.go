package repository

import (
	"sort"

	"github.com/okian/prizeboard/internal/domain/model"
)

// sortContests orders by deadline, then id, so settlement runs are reproducible.
func sortContests(cs []model.Contest) {
	sort.Slice(cs, func(i, j int) bool {
		if !cs[i].Deadline.Equal(cs[j].Deadline) {
			return cs[i].Deadline.Before(cs[j].Deadline)
		}
		return cs[i].ID < cs[j].ID
	})
}

package tiers

// Lookup returns the first resolved tier whose range contains rank.
func Lookup(resolved []Resolved, rank int) (Resolved, bool) {
	for _, t := range resolved {
		if rank >= t.RankMin && rank <= t.RankMax {
			return t, true
		}
	}
	return Resolved{}, false
}

// PrizeForRank returns the amount for rank, or false when no tier covers it.
func PrizeForRank(resolved []Resolved, rank int) (float64, bool) {
	t, ok := Lookup(resolved, rank)
	if !ok {
		return 0, false
	}
	return t.Amount, true
}

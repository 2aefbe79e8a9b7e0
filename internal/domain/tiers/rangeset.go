package tiers

import "sort"

type interval struct {
	lo, hi int
}

// rangeSet is a sorted set of disjoint, non-adjacent closed rank intervals.
type rangeSet struct {
	spans []interval
}

// index returns the position of the first span whose hi is >= lo.
func (s *rangeSet) index(lo int) int {
	return sort.Search(len(s.spans), func(i int) bool { return s.spans[i].hi >= lo })
}

// intersects reports whether any rank in [lo, hi] is already claimed.
func (s *rangeSet) intersects(lo, hi int) bool {
	i := s.index(lo)
	return i < len(s.spans) && s.spans[i].lo <= hi
}

// add claims [lo, hi], merging with overlapping or adjacent spans.
func (s *rangeSet) add(lo, hi int) {
	i := s.index(lo - 1)
	j := i
	for j < len(s.spans) && s.spans[j].lo <= hi+1 {
		if s.spans[j].lo < lo {
			lo = s.spans[j].lo
		}
		if s.spans[j].hi > hi {
			hi = s.spans[j].hi
		}
		j++
	}
	merged := interval{lo: lo, hi: hi}
	s.spans = append(s.spans[:i], append([]interval{merged}, s.spans[j:]...)...)
}

// max returns the highest claimed rank, or 0 when empty.
func (s *rangeSet) max() int {
	if len(s.spans) == 0 {
		return 0
	}
	return s.spans[len(s.spans)-1].hi
}

func (s *rangeSet) len() int { return len(s.spans) }

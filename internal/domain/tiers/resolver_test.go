package tiers_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/prizeboard/internal/domain/model"
	"github.com/okian/prizeboard/internal/domain/tiers"
	. "github.com/smartystreets/goconvey/convey"
)

func tier(id, label string, lo, hi int, amount float64) model.PrizeTier {
	return model.PrizeTier{
		ID:        id,
		ContestID: "c1",
		Kind:      model.Engagement,
		Label:     label,
		RankMin:   lo,
		RankMax:   hi,
		Amount:    amount,
	}
}

func bounds(res tiers.Resolution) [][2]int {
	out := make([][2]int, 0, len(res.Tiers))
	for _, t := range res.Tiers {
		out = append(out, [2]int{t.RankMin, t.RankMax})
	}
	return out
}

func TestGroupLabels(t *testing.T) {
	Convey("Given tier labels", t, func() {
		Convey("Then labels containing Top N are groups in any case", func() {
			So(tiers.IsGroup("Top 10"), ShouldBeTrue)
			So(tiers.IsGroup("top5"), ShouldBeTrue)
			So(tiers.IsGroup("Runner-ups (TOP 25)"), ShouldBeTrue)
			So(tiers.IsGroup("1st Place"), ShouldBeFalse)
			So(tiers.IsGroup("Top performers"), ShouldBeFalse)
		})

		Convey("Then the group size is parsed from the label", func() {
			for label, want := range map[string]int{"Top 25": 25, "top3": 3, "Top 10000": tiers.MaxGroupSize} {
				n, err := tiers.GroupSize(label)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, want)
			}
		})

		Convey("Then a missing or zero number falls back to the default size", func() {
			for _, label := range []string{"Top 0", "Winners"} {
				n, err := tiers.GroupSize(label)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, tiers.DefaultGroupSize)
			}
		})

		Convey("Then a size beyond the limit is invalid", func() {
			for _, label := range []string{"Top 10001", "Top 9223372036854775807", "Top 99999999999999999999"} {
				_, err := tiers.GroupSize(label)
				So(errors.Is(err, tiers.ErrInvalidTier), ShouldBeTrue)
			}
		})
	})
}

func TestResolve(t *testing.T) {
	Convey("Given an empty tier list", t, func() {
		res := tiers.Resolve(nil)

		Convey("Then nothing is resolved or dropped", func() {
			So(res.Tiers, ShouldBeEmpty)
			So(res.Dropped, ShouldBeEmpty)
		})
	})

	Convey("Given a winner tier and a Top 10 group", t, func() {
		in := []model.PrizeTier{
			tier("t2", "Top 10", 1, 10, 100),
			tier("t1", "1st Place", 1, 1, 500),
		}
		res := tiers.Resolve(in)

		Convey("Then the group is placed after the winner", func() {
			So(bounds(res), ShouldResemble, [][2]int{{1, 1}, {2, 11}})
			So(res.Tiers[0].ID, ShouldEqual, "t1")
			So(res.Tiers[1].ID, ShouldEqual, "t2")
			So(res.Tiers[1].Group, ShouldBeTrue)
			So(res.Dropped, ShouldBeEmpty)
		})

		Convey("Then the input is not modified", func() {
			So(in[0].RankMin, ShouldEqual, 1)
			So(in[0].RankMax, ShouldEqual, 10)
		})
	})

	Convey("Given two tiers claiming rank 1", t, func() {
		res := tiers.Resolve([]model.PrizeTier{
			tier("a", "1st Place", 1, 1, 500),
			tier("b", "Champion", 1, 1, 400),
		})

		Convey("Then only the first survives", func() {
			So(res.Tiers, ShouldHaveLength, 1)
			So(res.Tiers[0].ID, ShouldEqual, "a")
			So(res.Dropped, ShouldHaveLength, 1)
			So(res.Dropped[0].Tier.ID, ShouldEqual, "b")
			So(res.Dropped[0].Reason, ShouldEqual, tiers.ReasonOverlap)
		})
	})

	Convey("Given an individual range that partially overlaps an earlier one", t, func() {
		res := tiers.Resolve([]model.PrizeTier{
			tier("a", "Podium", 1, 3, 300),
			tier("b", "Bronze and beyond", 3, 5, 100),
			tier("c", "6th Place", 6, 6, 50),
		})

		Convey("Then the overlapping tier is skipped, not re-packed", func() {
			So(bounds(res), ShouldResemble, [][2]int{{1, 3}, {6, 6}})
			So(res.Dropped, ShouldHaveLength, 1)
			So(res.Dropped[0].Tier.ID, ShouldEqual, "b")
		})
	})

	Convey("Given individual tiers out of order with a gap", t, func() {
		res := tiers.Resolve([]model.PrizeTier{
			tier("g", "Top 5", 0, 0, 10),
			tier("c", "3rd Place", 3, 3, 100),
			tier("a", "1st Place", 1, 1, 300),
		})

		Convey("Then individual tiers sort by rank and the group follows the highest used rank", func() {
			So(bounds(res), ShouldResemble, [][2]int{{1, 1}, {3, 3}, {4, 8}})
			So(res.Tiers[0].ID, ShouldEqual, "a")
		})
	})

	Convey("Given several group tiers", t, func() {
		res := tiers.Resolve([]model.PrizeTier{
			tier("top5", "Top 5", 0, 0, 50),
			tier("w", "Winner", 1, 1, 1000),
			tier("top10", "Top 10", 0, 0, 20),
		})

		Convey("Then groups stack in their original order", func() {
			So(bounds(res), ShouldResemble, [][2]int{{1, 1}, {2, 6}, {7, 16}})
			So(res.Tiers[1].ID, ShouldEqual, "top5")
			So(res.Tiers[2].ID, ShouldEqual, "top10")
		})
	})

	Convey("Given only a group tier", t, func() {
		res := tiers.Resolve([]model.PrizeTier{tier("g", "Top 3", 7, 9, 10)})

		Convey("Then it starts at rank 1 regardless of stored bounds", func() {
			So(bounds(res), ShouldResemble, [][2]int{{1, 3}})
		})
	})

	Convey("Given malformed individual tiers", t, func() {
		res := tiers.Resolve([]model.PrizeTier{
			tier("bad", "Zeroth", 0, 2, 10),
			tier("inv", "2nd Place", 2, 1, 20),
		})

		Convey("Then a non-positive minimum is dropped and an inverted range collapses", func() {
			So(bounds(res), ShouldResemble, [][2]int{{2, 2}})
			So(res.Dropped, ShouldHaveLength, 1)
			So(res.Dropped[0].Reason, ShouldEqual, tiers.ReasonInvalidRange)
		})
	})

	Convey("Given a group tier naming more ranks than an int holds", t, func() {
		in := []model.PrizeTier{
			tier("a", "1st Place", 1, 1, 500),
			tier("b", "Top 9223372036854775807", 0, 0, 1),
			tier("c", "Top 3", 0, 0, 50),
		}
		res := tiers.Resolve(in)

		Convey("Then it is dropped and later groups still stack after the winner", func() {
			So(bounds(res), ShouldResemble, [][2]int{{1, 1}, {2, 4}})
			So(res.Dropped, ShouldHaveLength, 1)
			So(res.Dropped[0].Tier.ID, ShouldEqual, "b")
			So(res.Dropped[0].Reason, ShouldEqual, tiers.ReasonInvalidRange)
			So(tiers.TotalPool(res.Tiers), ShouldEqual, 650)
		})

		Convey("Then validation rejects the set", func() {
			So(errors.Is(tiers.Validate(in), tiers.ErrInvalidTier), ShouldBeTrue)
		})
	})

	Convey("Given a group after an individual tier ending at the largest rank", t, func() {
		res := tiers.Resolve([]model.PrizeTier{
			tier("a", "Everyone", 1, math.MaxInt, 1),
			tier("g", "Top 5", 0, 0, 10),
		})

		Convey("Then the group has no room and is dropped", func() {
			So(bounds(res), ShouldResemble, [][2]int{{1, math.MaxInt}})
			So(res.Dropped, ShouldHaveLength, 1)
			So(res.Dropped[0].Reason, ShouldEqual, tiers.ReasonInvalidRange)
		})
	})

	Convey("Given the same input twice", t, func() {
		in := []model.PrizeTier{
			tier("a", "1st Place", 1, 1, 500),
			tier("g", "Top 10", 0, 0, 50),
			tier("b", "1st again", 1, 1, 10),
		}

		Convey("Then resolution is deterministic", func() {
			So(tiers.Resolve(in), ShouldResemble, tiers.Resolve(in))
		})
	})
}

func TestResolveKind(t *testing.T) {
	Convey("Given tiers for both leaderboards", t, func() {
		e := tier("e1", "1st Place", 1, 1, 500)
		c := tier("c1", "1st Place", 1, 1, 300)
		c.Kind = model.Creativity

		Convey("Then each leaderboard resolves independently", func() {
			eng := tiers.ResolveKind([]model.PrizeTier{e, c}, model.Engagement)
			cre := tiers.ResolveKind([]model.PrizeTier{e, c}, model.Creativity)
			So(eng.Tiers, ShouldHaveLength, 1)
			So(eng.Tiers[0].ID, ShouldEqual, "e1")
			So(cre.Tiers, ShouldHaveLength, 1)
			So(cre.Tiers[0].ID, ShouldEqual, "c1")
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given a clean configuration", t, func() {
		err := tiers.Validate([]model.PrizeTier{
			tier("a", "1st Place", 1, 1, 500),
			tier("g", "Top 10", 0, 0, 50),
		})

		Convey("Then it passes", func() {
			So(err, ShouldBeNil)
		})
	})

	Convey("Given colliding tiers", t, func() {
		err := tiers.Validate([]model.PrizeTier{
			tier("a", "1st Place", 1, 1, 500),
			tier("b", "Champion", 1, 1, 400),
		})

		Convey("Then it reports a conflict", func() {
			So(errors.Is(err, tiers.ErrTierConflict), ShouldBeTrue)
		})
	})

	Convey("Given a tier with a negative amount", t, func() {
		err := tiers.Validate([]model.PrizeTier{tier("a", "1st Place", 1, 1, -5)})

		Convey("Then it is invalid", func() {
			So(errors.Is(err, tiers.ErrInvalidTier), ShouldBeTrue)
		})
	})

	Convey("Given a tier with an unknown leaderboard", t, func() {
		bad := tier("a", "1st Place", 1, 1, 5)
		bad.Kind = "votes"
		err := tiers.Validate([]model.PrizeTier{bad})

		Convey("Then it is invalid", func() {
			So(errors.Is(err, tiers.ErrInvalidTier), ShouldBeTrue)
			So(errors.Is(err, model.ErrUnknownKind), ShouldBeTrue)
		})
	})
}

func TestTotalPool(t *testing.T) {
	Convey("Given a winner and a Top 10 group", t, func() {
		res := tiers.Resolve([]model.PrizeTier{
			tier("a", "1st Place", 1, 1, 500),
			tier("g", "Top 10", 0, 0, 50),
		})

		Convey("Then the pool counts every rank in each range", func() {
			So(tiers.TotalPool(res.Tiers), ShouldEqual, 1000)
		})
	})
}

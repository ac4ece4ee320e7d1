package rank_test

import (
	"testing"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/rank"
	. "github.com/smartystreets/goconvey/convey"
)

func entry(id string, pts int) model.ResolvedEntry {
	return model.ResolvedEntry{Identity: id, Points: pts, Verified: true}
}

func TestMerge(t *testing.T) {
	Convey("Given an empty ledger", t, func() {
		ledger := map[string]int{}

		Convey("When merging placements 1, 2 and 3 for A, B and C", func() {
			ranked := rank.Merge(ledger, []model.ResolvedEntry{
				entry("A", 10), entry("B", 8), entry("C", 6),
			})

			Convey("Then the ordering is A, B, C with their scores", func() {
				So(ranked, ShouldHaveLength, 3)
				So(ranked[0].Identity, ShouldEqual, "A")
				So(ranked[0].Score, ShouldEqual, 10)
				So(ranked[1].Identity, ShouldEqual, "B")
				So(ranked[1].Score, ShouldEqual, 8)
				So(ranked[2].Identity, ShouldEqual, "C")
				So(ranked[2].Score, ShouldEqual, 6)
			})

			Convey("Then every entrant's change equals its new position", func() {
				for i, e := range ranked {
					So(e.NewEntrant, ShouldBeTrue)
					So(e.Change, ShouldEqual, i)
				}
			})
		})
	})

	Convey("Given a ledger with A at 10 and B at 8", t, func() {
		ledger := map[string]int{"A": 10, "B": 8}

		Convey("When awarding C two points and A six points", func() {
			ranked := rank.Merge(ledger, []model.ResolvedEntry{
				entry("C", 2), entry("A", 6),
			})

			Convey("Then scores accumulate additively", func() {
				So(ledger, ShouldResemble, map[string]int{"A": 16, "B": 8, "C": 2})
			})

			Convey("Then A and B keep their ranks with zero change", func() {
				So(ranked[0].Identity, ShouldEqual, "A")
				So(ranked[0].Change, ShouldEqual, 0)
				So(ranked[1].Identity, ShouldEqual, "B")
				So(ranked[1].Change, ShouldEqual, 0)
			})

			Convey("Then C enters at rank 3 with change 2", func() {
				So(ranked[2].Identity, ShouldEqual, "C")
				So(ranked[2].NewEntrant, ShouldBeTrue)
				So(ranked[2].Change, ShouldEqual, 2)
			})
		})

		Convey("When an identity not in the batch is overtaken", func() {
			ranked := rank.Merge(ledger, []model.ResolvedEntry{entry("B", 6)})

			Convey("Then the overtaken identity shows a negative change", func() {
				So(ranked[0].Identity, ShouldEqual, "B")
				So(ranked[0].Score, ShouldEqual, 14)
				So(ranked[0].Change, ShouldEqual, 1)
				So(ranked[1].Identity, ShouldEqual, "A")
				So(ranked[1].Change, ShouldEqual, -1)
			})
		})

		Convey("When merging an empty batch", func() {
			ranked := rank.Merge(ledger, nil)

			Convey("Then the ledger and ordering are unchanged", func() {
				So(ledger, ShouldResemble, map[string]int{"A": 10, "B": 8})
				So(ranked[0].Change, ShouldEqual, 0)
				So(ranked[1].Change, ShouldEqual, 0)
			})
		})
	})

	Convey("Given identities with equal scores", t, func() {
		ledger := map[string]int{"zed": 6, "amy": 6, "mia": 6}

		Convey("When snapshotting", func() {
			ranked := rank.Snapshot(ledger)

			Convey("Then ties order by identity ascending", func() {
				So(ranked[0].Identity, ShouldEqual, "amy")
				So(ranked[1].Identity, ShouldEqual, "mia")
				So(ranked[2].Identity, ShouldEqual, "zed")
			})
		})

		Convey("When merging twice from the same state", func() {
			other := map[string]int{"zed": 6, "amy": 6, "mia": 6}
			first := rank.Merge(ledger, []model.ResolvedEntry{entry("mia", 2)})
			second := rank.Merge(other, []model.ResolvedEntry{entry("mia", 2)})

			Convey("Then the ordering is deterministic", func() {
				So(first, ShouldResemble, second)
			})
		})
	})

	Convey("Given a batch with an unverified identity", t, func() {
		ledger := map[string]int{"A": 4}

		Convey("When merging", func() {
			ranked := rank.Merge(ledger, []model.ResolvedEntry{
				{Identity: "ghost", Points: 10, Verified: false},
			})

			Convey("Then the points still count and the row is flagged", func() {
				So(ranked[0].Identity, ShouldEqual, "ghost")
				So(ranked[0].Score, ShouldEqual, 10)
				So(ranked[0].Unverified, ShouldBeTrue)
				So(ranked[1].Unverified, ShouldBeFalse)
			})
		})
	})
}

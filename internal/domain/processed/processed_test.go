package processed_test

import (
	"testing"

	"github.com/okian/podium/internal/domain/processed"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSet(t *testing.T) {
	Convey("Given a set restored from persisted ids", t, func() {
		set := processed.New([]int64{77, 12})

		Convey("Then persisted ids are seen and others are not", func() {
			So(set.Seen(12), ShouldBeTrue)
			So(set.Seen(77), ShouldBeTrue)
			So(set.Seen(13), ShouldBeFalse)
			So(set.Dirty(), ShouldBeFalse)
		})

		Convey("When recording a new id", func() {
			set.Record(99)

			Convey("Then it becomes seen and the set needs a flush", func() {
				So(set.Seen(99), ShouldBeTrue)
				So(set.Dirty(), ShouldBeTrue)
				So(set.Len(), ShouldEqual, 3)
			})

			Convey("Then ids persist in ascending order", func() {
				So(set.IDs(), ShouldResemble, []int64{12, 77, 99})
			})
		})

		Convey("When recording an id that is already seen", func() {
			set.Record(77)

			Convey("Then nothing changes", func() {
				So(set.Dirty(), ShouldBeFalse)
				So(set.Len(), ShouldEqual, 2)
			})
		})
	})

	Convey("Given an empty set", t, func() {
		set := processed.New(nil)

		Convey("Then it is clean and empty", func() {
			So(set.Len(), ShouldEqual, 0)
			So(set.Dirty(), ShouldBeFalse)
			So(set.IDs(), ShouldHaveLength, 0)
		})
	})
}

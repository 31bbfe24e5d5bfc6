package guard_test

import (
	"testing"
	"time"

	guard "github.com/stackerlabs/stacker/internal/domain/guard"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPolicy_MaxAllowed(t *testing.T) {
	Convey("Given a default policy", t, func() {
		p := guard.New()

		Convey("Then a short run gets the base allowance", func() {
			// 3s / 200ms = 15 base points, above the allowance floor
			So(p.MaxAllowed(3*time.Second), ShouldEqual, 150)
			// 1s / 200ms = 5 base points, lifted to the floor of 10
			So(p.MaxAllowed(1*time.Second), ShouldEqual, 100)
			So(p.MaxAllowed(0), ShouldEqual, 100)
		})

		Convey("Then the ceiling grows with elapsed time", func() {
			So(p.MaxAllowed(60*time.Second), ShouldEqual, 3000)
			So(p.MaxAllowed(120*time.Second), ShouldBeGreaterThan, p.MaxAllowed(60*time.Second))
		})
	})
}

func TestPolicy_Plausible(t *testing.T) {
	Convey("Given a default policy", t, func() {
		p := guard.New()

		Convey("When a run claims a score at the ceiling", func() {
			So(p.Plausible(4*time.Second, 200), ShouldBeTrue)
		})

		Convey("When a run claims a score above the ceiling", func() {
			So(p.Plausible(4*time.Second, 201), ShouldBeFalse)
			So(p.Plausible(4*time.Second, 500_000), ShouldBeFalse)
		})

		Convey("When a run claims zero", func() {
			So(p.Plausible(4*time.Second, 0), ShouldBeTrue)
		})
	})
}

func TestPolicy_Options(t *testing.T) {
	Convey("Given a policy with custom options", t, func() {
		p := guard.New(
			guard.WithMultiplier(20),
			guard.WithBaseAllowance(5),
			guard.WithMsPerPoint(100),
		)

		Convey("Then the configured values drive the ceiling", func() {
			So(p.Multiplier(), ShouldEqual, 20)
			// 2s / 100ms = 20 base points * 20 multiplier
			So(p.MaxAllowed(2*time.Second), ShouldEqual, 400)
			// floor of 5 base points
			So(p.MaxAllowed(0), ShouldEqual, 100)
		})

		Convey("Then non-positive option values are ignored", func() {
			q := guard.New(guard.WithMultiplier(0), guard.WithMsPerPoint(-1))
			So(q.Multiplier(), ShouldEqual, 10)
			So(q.MaxAllowed(3*time.Second), ShouldEqual, 150)
		})
	})
}

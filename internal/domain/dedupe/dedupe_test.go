package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	dedupe "github.com/stackerlabs/stacker/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSeenSet(t *testing.T) {
	Convey("Given a new seen set", t, func() {
		ctx := context.Background()

		Convey("When recording a fresh ID", func() {
			d := dedupe.NewSeenSet()
			seen := d.SeenAndRecord(ctx, "session-1")

			Convey("Then it is newly recorded", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And recording it again reports a replay", func() {
				So(d.SeenAndRecord(ctx, "session-1"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When unrecording a consumed ID", func() {
			d := dedupe.NewSeenSet()
			d.SeenAndRecord(ctx, "session-1")
			d.Unrecord(ctx, "session-1")

			Convey("Then the ID may be consumed again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "session-1"), ShouldBeFalse)
			})
		})

		Convey("When unrecording an unknown ID", func() {
			d := dedupe.NewSeenSet()
			d.Unrecord(ctx, "never-seen")

			Convey("Then nothing changes", func() {
				So(d.Size(), ShouldEqual, 0)
			})
		})
	})
}

func TestSeenSetCapacity(t *testing.T) {
	Convey("Given a seen set bounded to 3 entries", t, func() {
		ctx := context.Background()
		d := dedupe.NewSeenSet(dedupe.WithMaxSize(3))

		for i := 0; i < 3; i++ {
			So(d.SeenAndRecord(ctx, fmt.Sprintf("id-%d", i)), ShouldBeFalse)
		}

		Convey("When a fourth ID arrives", func() {
			So(d.SeenAndRecord(ctx, "id-3"), ShouldBeFalse)

			Convey("Then the size stays bounded", func() {
				So(d.Size(), ShouldEqual, 3)
			})

			Convey("And the oldest ID was evicted", func() {
				So(d.SeenAndRecord(ctx, "id-0"), ShouldBeFalse)
			})

			Convey("And recent IDs are still remembered", func() {
				So(d.SeenAndRecord(ctx, "id-2"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "id-3"), ShouldBeTrue)
			})
		})
	})
}

func TestSeenSetTTL(t *testing.T) {
	Convey("Given a seen set with a 30s TTL and a fake clock", t, func() {
		ctx := context.Background()
		now := time.Unix(1700000000, 0)
		var mu sync.Mutex
		clock := func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return now
		}
		advance := func(d time.Duration) {
			mu.Lock()
			now = now.Add(d)
			mu.Unlock()
		}

		d := dedupe.NewSeenSet(dedupe.WithTTL(30*time.Second), dedupe.WithNowFunc(clock))

		Convey("When an ID ages past the TTL", func() {
			So(d.SeenAndRecord(ctx, "old"), ShouldBeFalse)
			advance(time.Minute)

			Convey("Then it is forgotten", func() {
				So(d.SeenAndRecord(ctx, "old"), ShouldBeFalse)
			})
		})

		Convey("When an ID is younger than the TTL", func() {
			So(d.SeenAndRecord(ctx, "fresh"), ShouldBeFalse)
			advance(10 * time.Second)

			Convey("Then it is still a replay", func() {
				So(d.SeenAndRecord(ctx, "fresh"), ShouldBeTrue)
			})
		})
	})
}

func TestSeenSetConcurrency(t *testing.T) {
	Convey("Given concurrent recorders of the same ID", t, func() {
		ctx := context.Background()
		d := dedupe.NewSeenSet()

		const goroutines = 32
		var wg sync.WaitGroup
		var firstClaims sync.Map
		claims := 0
		var mu sync.Mutex

		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				if !d.SeenAndRecord(ctx, "contested") {
					firstClaims.Store(n, true)
					mu.Lock()
					claims++
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()

		Convey("Then exactly one goroutine wins the first claim", func() {
			So(claims, ShouldEqual, 1)
			So(d.Size(), ShouldEqual, 1)
		})
	})
}

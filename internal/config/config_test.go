package config_test

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/stackerlabs/stacker/internal/config"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.MinSessionMs, convey.ShouldEqual, 3000)
			convey.So(cfg.GuardMultiplier, convey.ShouldEqual, 10)
			convey.So(cfg.StoreBackend, convey.ShouldEqual, "memory")
			convey.So(cfg.SeenSessionCap, convey.ShouldEqual, 50_000)
			convey.So(cfg.ResolveQueueSize, convey.ShouldEqual, 10_000)
		})
	})
}

package config_test

import (
	"testing"
	"time"

	"github.com/okian/ehb/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.CounterBackend, convey.ShouldEqual, config.BackendMemory)
			convey.So(cfg.DatabaseDriver, convey.ShouldEqual, "sqlite")
			convey.So(cfg.NotifySubject, convey.ShouldEqual, "ehb.franchise.flagged")
			convey.So(cfg.RewardBaseRate, convey.ShouldEqual, 0.05)
			convey.So(cfg.RedisTimeout(), convey.ShouldEqual, 250*time.Millisecond)
			convey.So(cfg.ShutdownTimeout(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given rate limit overrides", t, func() {
		cfg := config.New()
		cfg.RateLimits["strict"] = config.RateLimit{WindowMS: 30_000, Max: 10}

		convey.Convey("Then they should convert to profile overrides", func() {
			ps := cfg.RateLimitProfiles()
			convey.So(ps, convey.ShouldHaveLength, 1)
			convey.So(ps[0].Name, convey.ShouldEqual, "strict")
			convey.So(ps[0].Window, convey.ShouldEqual, 30*time.Second)
			convey.So(ps[0].Max, convey.ShouldEqual, 10)
		})
	})
}

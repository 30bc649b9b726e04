package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/irr/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Backend, convey.ShouldEqual, config.BackendFile)
			convey.So(cfg.ComparisonBasis, convey.ShouldEqual, "question")
			convey.So(cfg.MinSharedArticles, convey.ShouldEqual, 1)
			convey.So(cfg.LowConfidenceArticles, convey.ShouldEqual, 5)
			convey.So(cfg.FetchTimeout, convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.ExclusionMarkers, convey.ShouldContain, "[calibration]")
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a config with an invalid value", t, func() {
		cases := map[string]func(*config.Config){
			"empty addr":       func(c *config.Config) { c.Addr = "" },
			"unknown backend":  func(c *config.Config) { c.Backend = "mongo" },
			"missing dsn":      func(c *config.Config) { c.Backend = config.BackendSQLite; c.SQLiteDSN = "" },
			"unknown basis":    func(c *config.Config) { c.ComparisonBasis = "median" },
			"zero pair min":    func(c *config.Config) { c.MinSharedArticles = 0 },
			"tiny confidence":  func(c *config.Config) { c.LowConfidenceArticles = 1 },
			"inverted bands":   func(c *config.Config) { c.QualityHigh, c.QualityModerate = 0.4, 0.6 },
			"no fetch timeout": func(c *config.Config) { c.FetchTimeout = 0 },
			"empty queue":      func(c *config.Config) { c.QueueSize = 0 },
			"negative workers": func(c *config.Config) { c.Workers = -1 },
			"no drain timeout": func(c *config.Config) { c.DrainTimeout = 0 },
		}

		for name, mutate := range cases {
			cfg := config.New(context.Background())
			mutate(cfg)

			convey.Convey("Then validation fails for "+name, func() {
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})
}

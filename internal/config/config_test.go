package config_test

import (
	"runtime"
	"testing"

	"github.com/okian/thehub/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.StoreDriver, convey.ShouldEqual, config.StoreYAML)
			convey.So(cfg.StorePath, convey.ShouldEqual, "configs/catalog.yaml")
			convey.So(cfg.EnrichmentWorkers, convey.ShouldEqual, runtime.NumCPU()*2)
			convey.So(cfg.EnrichmentQueueSize, convey.ShouldEqual, 1024)
			convey.So(cfg.UnknownCategoryName, convey.ShouldEqual, "Categoría desconocida")
			convey.So(cfg.ValidateRuleQuestions, convey.ShouldBeTrue)
			convey.So(cfg.CORSAllowedOrigins, convey.ShouldResemble, []string{"*"})
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

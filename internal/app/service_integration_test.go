package service_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/thehub/internal/adapters/catalog/cache"
	"github.com/okian/thehub/internal/adapters/repository"
	service "github.com/okian/thehub/internal/app"
	"github.com/okian/thehub/internal/domain/model"
	"github.com/okian/thehub/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service over the sample configuration", t, func() {
		seed := filepath.Join("..", "..", "configs", "catalog.yaml")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		stores := []struct {
			name string
			open func() repository.Store
		}{
			{"yaml", func() repository.Store {
				return repository.NewYAMLStore(seed, repository.WithLogger(logger.Nop()))
			}},
			{"sqlite", func() repository.Store {
				s, err := repository.OpenSQLite(filepath.Join(t.TempDir(), "thehub.db"), repository.WithLogger(logger.Nop()))
				So(err, ShouldBeNil)
				So(s.Migrate(ctx), ShouldBeNil)
				snap, err := repository.ReadSnapshotFile(seed)
				So(err, ShouldBeNil)
				So(s.Import(ctx, snap), ShouldBeNil)
				return s
			}},
		}

		for _, st := range stores {
			Convey("When backed by the "+st.name+" store", func() {
				svc := service.New(
					service.WithStore(st.open()),
					service.WithCatalog(cache.New(mockCatalog{}, cache.WithMaxSize(16))),
					service.WithWorkerCount(2),
					service.WithQueueSize(8),
				)
				So(svc.Start(ctx), ShouldBeNil)
				defer svc.Stop()

				Convey("Then a running questionnaire yields hydration units", func() {
					recs, err := svc.Recommend(ctx, model.Answers{
						"running_distance": model.Text("30"),
						"intensity":        model.Text("high"),
					}, "running")
					So(err, ShouldBeNil)
					So(recs, ShouldHaveLength, 1)
					So(recs[0].CategoryName, ShouldEqual, "Hidratación")
					So(recs[0].TotalAmount, ShouldEqual, 90)
					So(recs[0].Products, ShouldHaveLength, 2)
					So(recs[0].Products[0].ProductID, ShouldEqual, "electrolyte-tabs")
					So(recs[0].Products[0].QuantityRecommended, ShouldEqual, 5)
					So(recs[0].Products[1].QuantityRecommended, ShouldEqual, 9)
					So(recs[0].Products[1].VariantID, ShouldNotBeEmpty)
				})

				Convey("Then a cycling answer uses the generated question key", func() {
					recs, err := svc.Recommend(ctx, model.Answers{
						"tiempo_de_salida_en_bici": model.Number(90),
						"intensity":                model.Text("medium"),
					}, "cycling")
					So(err, ShouldBeNil)
					So(recs, ShouldHaveLength, 1)
					So(recs[0].CategoryID, ShouldEqual, "energy")
					So(recs[0].TotalAmount, ShouldAlmostEqual, 3.6, 1e-9)
					So(recs[0].Products[0].ProductID, ShouldEqual, "energy-gel")
					So(recs[0].Products[0].QuantityRecommended, ShouldEqual, 4)
				})

				Convey("Then a triathlon split sums its components", func() {
					recs, err := svc.Recommend(ctx, model.Answers{
						"tri_split": model.MultiTime(map[string]int64{"swim": 30, "bike": 60, "run": 30}),
					}, "triathlon")
					So(err, ShouldBeNil)
					So(recs, ShouldHaveLength, 1)
					So(recs[0].TotalAmount, ShouldEqual, 2)
					So(recs[0].Products[0].QuantityRecommended, ShouldEqual, 1)
				})

				Convey("Then form data lists the configured sports", func() {
					fd, err := svc.FormData(ctx, "triathlon")
					So(err, ShouldBeNil)
					So(fd.Sports, ShouldHaveLength, 3)
					So(fd.Questions, ShouldHaveLength, 2)
					So(fd.Questions[0].Key, ShouldEqual, "intensity")
				})
			})
		}
	})
}

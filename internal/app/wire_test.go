package service_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/p2r3/epochtal/internal/adapters/archive"
	service "github.com/p2r3/epochtal/internal/app"
	"github.com/p2r3/epochtal/internal/config"
	"github.com/p2r3/epochtal/internal/domain/category"
)

func TestFromConfig(t *testing.T) {
	Convey("Given a configured data layout", t, func() {
		root := t.TempDir()
		ctx := context.Background()
		cfg := config.New(ctx)
		cfg.DataDir = filepath.Join(root, "week")
		cfg.ArchiveDir = filepath.Join(root, "archive")
		cfg.ProfilesDir = filepath.Join(root, "profiles")
		cfg.UsersFile = filepath.Join(root, "users.yaml")

		So(archive.WriteMetadata(cfg.DataDir, archive.Metadata{Number: 1, Categories: category.List{{Name: "main"}}}), ShouldBeNil)
		So(os.WriteFile(cfg.UsersFile, []byte("- steamid: \"9\"\n  name: nine\n"), 0o644), ShouldBeNil)

		Convey("When building the service", func() {
			svc, err := service.FromConfig(ctx, cfg)

			Convey("Then the active period and directory are wired", func() {
				So(err, ShouldBeNil)
				So(svc.Period().Number, ShouldEqual, uint64(1))
				So(svc.GetStats()["competitors"], ShouldEqual, 1)

				_, err := svc.Submit(ctx, service.Submission{SteamID: 9, Category: "main", Time: 3})
				So(err, ShouldBeNil)
			})
		})

		Convey("When the active period has no metadata", func() {
			cfg.DataDir = filepath.Join(root, "empty")
			_, err := service.FromConfig(ctx, cfg)

			Convey("Then building fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

package archive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/p2r3/epochtal/internal/domain/category"
	"github.com/p2r3/epochtal/internal/domain/model"
	"github.com/p2r3/epochtal/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func writePeriod(t *testing.T, root string, number uint64, names ...string) string {
	t.Helper()
	dir := filepath.Join(root, DirName(number))
	list := make(category.List, len(names))
	for i, n := range names {
		list[i] = category.Descriptor{Name: n, Title: n}
	}
	if err := WriteMetadata(dir, Metadata{Number: number, Categories: list}); err != nil {
		t.Fatalf("write metadata: %v", err)
	}
	return dir
}

func TestListPeriods(t *testing.T) {
	Convey("Given an archive with periods out of lexical order", t, func() {
		root := t.TempDir()
		writePeriod(t, root, 10, "main")
		writePeriod(t, root, 2, "main")
		writePeriod(t, root, 9, "main")
		So(os.MkdirAll(filepath.Join(root, "scratch"), 0o755), ShouldBeNil)

		a := New(root, epoch, 0)

		Convey("When listing periods", func() {
			ids, err := a.ListPeriods(context.Background())

			Convey("Then they are ordered by number and stray dirs are skipped", func() {
				So(err, ShouldBeNil)
				So(ids, ShouldResemble, []string{"week2", "week9", "week10"})
			})
		})
	})

	Convey("Given a missing archive directory", t, func() {
		a := New(filepath.Join(t.TempDir(), "absent"), epoch, 0)

		Convey("Then listing yields nothing", func() {
			ids, err := a.ListPeriods(context.Background())
			So(err, ShouldBeNil)
			So(ids, ShouldBeEmpty)
		})
	})
}

func TestPeriod(t *testing.T) {
	Convey("Given an archived period 3", t, func() {
		root := t.TempDir()
		writePeriod(t, root, 3, "main", "lp")
		a := New(root, epoch, 0)
		ctx := context.Background()

		Convey("When opening it", func() {
			p, err := a.Period(ctx, "week3")

			Convey("Then the context carries number, start, offset and registry", func() {
				So(err, ShouldBeNil)
				So(p.ID, ShouldEqual, "week3")
				So(p.Number, ShouldEqual, uint64(3))
				So(p.Start.Equal(epoch.Add(14*24*time.Hour)), ShouldBeTrue)
				So(p.Offset(), ShouldEqual, uint64(1209600))
				So(p.Categories.Names(), ShouldResemble, category.Names{"main", "lp"})
			})

			Convey("Then its ledger round-trips records through weeklog.bin", func() {
				rec := model.Record{SteamID: 42, Category: "lp", Time: 900, Portals: 3, Timestamp: 60}
				So(p.Ledger.Append(ctx, rec), ShouldBeNil)

				info, err := os.Stat(filepath.Join(root, "week3", LedgerFile))
				So(err, ShouldBeNil)
				So(info.Size(), ShouldEqual, int64(17))

				records, err := p.Ledger.ReadAll(ctx)
				So(err, ShouldBeNil)
				So(records, ShouldResemble, []model.Record{rec})
			})
		})

		Convey("When opening an id that escapes the archive", func() {
			_, err := a.Period(ctx, "../week3")

			Convey("Then it is rejected", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When opening a directory without metadata", func() {
			_, err := OpenPeriod(filepath.Join(root, "nothing"), epoch, 0)

			Convey("Then ErrNoMetadata is reported", func() {
				So(errors.Is(err, ErrNoMetadata), ShouldBeTrue)
			})
		})
	})
}

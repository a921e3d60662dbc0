package notes

import (
	"context"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/p2r3/epochtal/internal/domain/model"
)

func TestStore(t *testing.T) {
	Convey("Given a notes sidecar on disk", t, func() {
		path := filepath.Join(t.TempDir(), File)
		ctx := context.Background()
		s, err := Open(path)
		So(err, ShouldBeNil)

		rec := model.Record{SteamID: 76561198012345678, Category: "lp", Time: 100, Portals: 5, Timestamp: 30}

		Convey("When a note is put", func() {
			So(s.Put(ctx, KeyOf(rec), Note{Text: "tas-free", Segmented: true}), ShouldBeNil)

			Convey("Then the annotator reports it", func() {
				note, segmented := s.Annotator()(rec)
				So(note, ShouldEqual, "tas-free")
				So(segmented, ShouldBeTrue)
			})

			Convey("Then reopening the sidecar restores it", func() {
				again, err := Open(path)
				So(err, ShouldBeNil)
				n, ok := again.Get(KeyOf(rec))
				So(ok, ShouldBeTrue)
				So(n, ShouldResemble, Note{Text: "tas-free", Segmented: true})
			})
		})

		Convey("When nothing was put", func() {
			note, segmented := s.Annotator()(rec)

			Convey("Then the run has no metadata", func() {
				So(note, ShouldBeEmpty)
				So(segmented, ShouldBeFalse)
			})
		})

		Convey("When an empty note is put", func() {
			So(s.Put(ctx, KeyOf(rec), Note{}), ShouldBeNil)

			Convey("Then nothing is stored", func() {
				_, ok := s.Get(KeyOf(rec))
				So(ok, ShouldBeFalse)
			})
		})
	})
}

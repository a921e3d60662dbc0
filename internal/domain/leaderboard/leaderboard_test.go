package leaderboard_test

import (
	"errors"
	"testing"
	"time"

	"github.com/p2r3/epochtal/internal/domain/category"
	"github.com/p2r3/epochtal/internal/domain/errs"
	"github.com/p2r3/epochtal/internal/domain/leaderboard"
	"github.com/p2r3/epochtal/internal/domain/model"
	"github.com/p2r3/epochtal/internal/domain/weeklog"
	. "github.com/smartystreets/goconvey/convey"
)

var (
	categories = category.List{
		{Name: "main", Title: "Inbounds"},
		{Name: "lp", Title: "Least Portals", Portals: true},
		{Name: "ppnf", Title: "PPNF", Portals: true},
	}
	periodStart = time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
)

func encode(records ...model.Record) []byte {
	var out []byte
	for _, r := range records {
		frame, err := weeklog.Encode(r, categories)
		if err != nil {
			panic(err)
		}
		out = append(out, frame...)
	}
	return out
}

func TestResolve(t *testing.T) {
	Convey("Given a working log with a tombstone", t, func() {
		records := []model.Record{
			{SteamID: 1, Category: "main", Time: 300, Timestamp: 1},
			{SteamID: 1, Category: "main", Time: 250, Timestamp: 2},
			{SteamID: 2, Category: "main", Time: 400, Timestamp: 3},
			{SteamID: 1, Category: "main", Timestamp: 4},
		}

		Convey("Then the most recent matching record is retracted", func() {
			log := leaderboard.Resolve(records)
			So(log, ShouldResemble, []model.Record{records[0], records[2]})
		})

		Convey("And the input is left untouched", func() {
			_ = leaderboard.Resolve(records)
			So(len(records), ShouldEqual, 4)
			So(records[1].Time, ShouldEqual, uint64(250))
		})
	})

	Convey("Given a tombstone with no standing record", t, func() {
		records := []model.Record{
			{SteamID: 1, Category: "main", Time: 300, Timestamp: 1},
			{SteamID: 9, Category: "main", Timestamp: 2},
			{SteamID: 1, Category: "lp", Timestamp: 3},
		}

		Convey("Then the working log is unchanged", func() {
			So(leaderboard.Resolve(records), ShouldResemble, []model.Record{records[0]})
		})
	})

	Convey("Given two tombstones for the same pair", t, func() {
		records := []model.Record{
			{SteamID: 1, Category: "main", Time: 300, Timestamp: 1},
			{SteamID: 1, Category: "main", Time: 200, Timestamp: 2},
			{SteamID: 1, Category: "main", Timestamp: 3},
			{SteamID: 1, Category: "main", Timestamp: 4},
		}

		Convey("Then both submissions are retracted", func() {
			So(leaderboard.Resolve(records), ShouldBeEmpty)
		})
	})

	Convey("Given a tombstone followed by a resubmission", t, func() {
		records := []model.Record{
			{SteamID: 1, Category: "main", Time: 300, Timestamp: 1},
			{SteamID: 1, Category: "main", Timestamp: 2},
			{SteamID: 1, Category: "main", Time: 280, Timestamp: 3},
		}

		Convey("Then only the resubmission stands", func() {
			So(leaderboard.Resolve(records), ShouldResemble, []model.Record{records[2]})
		})
	})
}

func TestRank(t *testing.T) {
	Convey("Given lp runs with mixed portals and segmentation", t, func() {
		log := []model.Record{
			{SteamID: 1, Category: "lp", Time: 100, Portals: 5, Timestamp: 1},
			{SteamID: 2, Category: "lp", Time: 50, Portals: 5, Timestamp: 2},
			{SteamID: 3, Category: "lp", Time: 10, Portals: 3, Timestamp: 3},
		}
		segmented := map[uint64]bool{2: true}
		annotate := leaderboard.WithAnnotator(func(r model.Record) (string, bool) {
			return "", segmented[r.SteamID]
		})

		Convey("Then fewer portals win, then unsegmented, then time", func() {
			board := leaderboard.Rank(log, periodStart, annotate)
			runs := board["lp"]
			So(len(runs), ShouldEqual, 3)

			So(*runs[0].Portals, ShouldEqual, uint64(3))
			So(runs[0].Time, ShouldEqual, uint64(10))

			So(*runs[1].Portals, ShouldEqual, uint64(5))
			So(runs[1].Segmented, ShouldBeFalse)
			So(runs[1].Time, ShouldEqual, uint64(100))

			So(*runs[2].Portals, ShouldEqual, uint64(5))
			So(runs[2].Segmented, ShouldBeTrue)
			So(runs[2].Time, ShouldEqual, uint64(50))
		})
	})

	Convey("Given non-lp runs with portal counts", t, func() {
		log := []model.Record{
			{SteamID: 1, Category: "ppnf", Time: 900, Portals: 1, Timestamp: 1},
			{SteamID: 2, Category: "ppnf", Time: 300, Portals: 40, Timestamp: 2},
			{SteamID: 3, Category: "ppnf", Time: 600, Portals: 2, Timestamp: 3},
		}

		Convey("Then runs order by time only and portals are dropped", func() {
			runs := leaderboard.Rank(log, periodStart)["ppnf"]
			So(len(runs), ShouldEqual, 3)
			So(runs[0].SteamID, ShouldEqual, uint64(2))
			So(runs[1].SteamID, ShouldEqual, uint64(3))
			So(runs[2].SteamID, ShouldEqual, uint64(1))
			for _, r := range runs {
				So(r.Portals, ShouldBeNil)
				So(r.Segmented, ShouldBeFalse)
			}
		})
	})

	Convey("Given repeated submissions without a tombstone", t, func() {
		log := []model.Record{
			{SteamID: 1, Category: "main", Time: 100, Timestamp: 1},
			{SteamID: 1, Category: "main", Time: 500, Timestamp: 2},
			{SteamID: 2, Category: "main", Time: 300, Timestamp: 3},
		}

		Convey("Then the newest submission stands even if slower", func() {
			runs := leaderboard.Rank(log, periodStart)["main"]
			So(len(runs), ShouldEqual, 2)
			So(runs[0].SteamID, ShouldEqual, uint64(2))
			So(runs[1].SteamID, ShouldEqual, uint64(1))
			So(runs[1].Time, ShouldEqual, uint64(500))
		})
	})

	Convey("Given tied times", t, func() {
		log := []model.Record{
			{SteamID: 1, Category: "main", Time: 100, Timestamp: 1},
			{SteamID: 2, Category: "main", Time: 100, Timestamp: 2},
		}

		Convey("Then the older submission ranks first", func() {
			runs := leaderboard.Rank(log, periodStart)["main"]
			So(runs[0].SteamID, ShouldEqual, uint64(1))
			So(runs[1].SteamID, ShouldEqual, uint64(2))
		})
	})

	Convey("Given a record timestamp", t, func() {
		log := []model.Record{{SteamID: 1, Category: "main", Time: 100, Timestamp: 3600}}

		Convey("Then the run date is absolute", func() {
			run := leaderboard.Rank(log, periodStart)["main"][0]
			So(run.Date.Equal(periodStart.Add(time.Hour)), ShouldBeTrue)
		})
	})

	Convey("Given an annotator with notes", t, func() {
		log := []model.Record{{SteamID: 1, Category: "main", Time: 100, Timestamp: 1}}
		annotate := leaderboard.WithAnnotator(func(model.Record) (string, bool) { return "gg", true })

		Convey("Then notes are attached but segmented stays lp-only", func() {
			run := leaderboard.Rank(log, periodStart, annotate)["main"][0]
			So(run.Note, ShouldEqual, "gg")
			So(run.Segmented, ShouldBeFalse)
		})
	})
}

func TestReconstruct(t *testing.T) {
	Convey("Given an encoded ledger with retractions", t, func() {
		frames := encode(
			model.Record{SteamID: 10, Category: "main", Time: 1000, Timestamp: 1},
			model.Record{SteamID: 11, Category: "main", Time: 900, Timestamp: 2},
			model.Record{SteamID: 12, Category: "lp", Time: 700, Portals: 2, Timestamp: 3},
			model.Record{SteamID: 11, Category: "main", Timestamp: 4},
			model.Record{SteamID: 13, Category: "lp", Time: 800, Portals: 1, Timestamp: 5},
		)

		Convey("Then it reconstructs deterministically", func() {
			first, err := leaderboard.Reconstruct(frames, categories, periodStart)
			So(err, ShouldBeNil)
			second, err := leaderboard.Reconstruct(frames, categories, periodStart)
			So(err, ShouldBeNil)
			So(first, ShouldResemble, second)

			So(len(first["main"]), ShouldEqual, 1)
			So(first["main"][0].SteamID, ShouldEqual, uint64(10))
			So(len(first["lp"]), ShouldEqual, 2)
			So(first["lp"][0].SteamID, ShouldEqual, uint64(13))
		})
	})

	Convey("Given a truncated ledger", t, func() {
		frames := encode(model.Record{SteamID: 10, Category: "main", Time: 1000, Timestamp: 1})

		Convey("Then corruption is surfaced", func() {
			_, err := leaderboard.Reconstruct(frames[:16], categories, periodStart)
			So(errors.Is(err, errs.ErrCorrupt), ShouldBeTrue)
		})
	})

	Convey("Given an empty ledger", t, func() {
		Convey("Then the leaderboard is empty", func() {
			board, err := leaderboard.Reconstruct(nil, categories, periodStart)
			So(err, ShouldBeNil)
			So(board, ShouldBeEmpty)
		})
	})
}

func TestInsert(t *testing.T) {
	Convey("Given an ordered category", t, func() {
		runs := []model.Run{{SteamID: 1, Time: 10}, {SteamID: 2, Time: 30}}

		Convey("Then a middle run lands between", func() {
			runs = leaderboard.Insert(runs, model.Run{SteamID: 3, Time: 20}, "main")
			So(runs[1].SteamID, ShouldEqual, uint64(3))
		})

		Convey("Then a slowest run is appended", func() {
			runs = leaderboard.Insert(runs, model.Run{SteamID: 3, Time: 99}, "main")
			So(runs[2].SteamID, ShouldEqual, uint64(3))
		})
	})
}

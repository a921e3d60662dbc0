package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/p2r3/epochtal/internal/adapters/archive"
	"github.com/p2r3/epochtal/internal/adapters/competitor"
	"github.com/p2r3/epochtal/internal/adapters/notes"
	"github.com/p2r3/epochtal/internal/adapters/repository"
	service "github.com/p2r3/epochtal/internal/app"
	"github.com/p2r3/epochtal/internal/domain/category"
	"github.com/p2r3/epochtal/internal/domain/errs"
	"github.com/p2r3/epochtal/internal/domain/model"
	"github.com/p2r3/epochtal/internal/domain/profile"
	"github.com/p2r3/epochtal/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const (
	alice uint64 = 76561198000000001
	bob   uint64 = 76561198000000002
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *service.Service
	profiles *repository.ProfileStore
	start    time.Time
}

// newFixture lays out archived weeks 1 and 2 and an active week 3.
func newFixture(t *testing.T, opts ...service.Option) fixture {
	t.Helper()
	root := t.TempDir()
	ctx := context.Background()
	categories := category.List{{Name: "main"}, {Name: "lp", Portals: true}}

	archiveDir := filepath.Join(root, "archive")
	for number, runs := range map[uint64][]model.Record{
		1: {{SteamID: alice, Category: "main", Time: 500, Portals: 10, Timestamp: 100}},
		2: {
			{SteamID: alice, Category: "lp", Time: 900, Portals: 4, Timestamp: 50},
			{SteamID: bob, Category: "main", Time: 400, Portals: 8, Timestamp: 60},
		},
	} {
		dir := filepath.Join(archiveDir, archive.DirName(number))
		if err := archive.WriteMetadata(dir, archive.Metadata{Number: number, Categories: categories}); err != nil {
			t.Fatalf("write metadata: %v", err)
		}
		p, err := archive.OpenPeriod(dir, epoch, 0)
		if err != nil {
			t.Fatalf("open period: %v", err)
		}
		for _, r := range runs {
			if err := p.Ledger.Append(ctx, r); err != nil {
				t.Fatalf("seed period: %v", err)
			}
		}
	}

	dataDir := filepath.Join(root, "data")
	if err := archive.WriteMetadata(dataDir, archive.Metadata{Number: 3, Categories: categories}); err != nil {
		t.Fatalf("write metadata: %v", err)
	}
	active, err := archive.OpenPeriod(dataDir, epoch, 0)
	if err != nil {
		t.Fatalf("open active: %v", err)
	}
	sidecar, err := notes.Open(filepath.Join(dataDir, notes.File))
	if err != nil {
		t.Fatalf("open notes: %v", err)
	}

	profiles := repository.NewProfileStore(filepath.Join(root, "profiles"))
	now := active.Start.Add(90 * time.Second)
	base := []service.Option{
		service.WithDirectory(competitor.NewStatic(alice, bob)),
		service.WithProfileStore(profiles),
		service.WithNotes(sidecar),
		service.WithWorkerCount(2),
		service.WithClock(func() time.Time { return now }),
	}
	svc := service.New(active, archive.New(archiveDir, epoch, 0), append(base, opts...)...)
	return fixture{svc: svc, profiles: profiles, start: active.Start}
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a new service", t, func() {
		f := newFixture(t)

		Convey("When getting stats before starting", func() {
			stats := f.svc.GetStats()

			Convey("Then it reports the active period", func() {
				So(stats["started"], ShouldEqual, false)
				So(stats["period"], ShouldEqual, "data")
				So(stats["periodNumber"], ShouldEqual, uint64(3))
				So(stats["competitors"], ShouldEqual, 2)
			})
		})

		Convey("When starting and stopping", func() {
			ctx := context.Background()
			So(f.svc.Start(ctx), ShouldBeNil)
			So(f.svc.Start(ctx), ShouldBeNil)
			So(f.svc.GetStats()["started"], ShouldEqual, true)
			f.svc.Stop()

			Convey("Then it is marked as stopped", func() {
				So(f.svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_Submit(t *testing.T) {
	Convey("Given a service over an active period", t, func() {
		f := newFixture(t)
		ctx := context.Background()

		Convey("When a valid run is submitted", func() {
			rec, err := f.svc.Submit(ctx, service.Submission{SteamID: alice, Category: "main", Time: 700, Portals: 9})

			Convey("Then it is stamped relative to the period start", func() {
				So(err, ShouldBeNil)
				So(rec.Timestamp, ShouldEqual, uint64(90))
				So(f.svc.GetStats()["frames"], ShouldEqual, 1)
			})
		})

		Convey("When required fields are missing", func() {
			_, noID := f.svc.Submit(ctx, service.Submission{Category: "main", Time: 1})
			_, noCategory := f.svc.Submit(ctx, service.Submission{SteamID: alice, Time: 1})
			_, noTime := f.svc.Submit(ctx, service.Submission{SteamID: alice, Category: "main"})

			Convey("Then ERR_ARGS is returned", func() {
				So(errs.Code(noID), ShouldEqual, "ERR_ARGS")
				So(errs.Code(noCategory), ShouldEqual, "ERR_ARGS")
				So(errs.Code(noTime), ShouldEqual, "ERR_ARGS")
			})
		})

		Convey("When time and portals wrap to a retraction", func() {
			_, err := f.svc.Submit(ctx, service.Submission{SteamID: alice, Category: "main", Time: 300})
			So(err, ShouldBeNil)
			_, wrapped := f.svc.Submit(ctx, service.Submission{SteamID: alice, Category: "main", Time: 1 << 32, Portals: 256})

			Convey("Then it is rejected and the earlier run stands", func() {
				So(errs.Code(wrapped), ShouldEqual, "ERR_ARGS")
				So(f.svc.GetStats()["frames"], ShouldEqual, 1)
				runs, err := f.svc.CategoryLeaderboard(ctx, "main")
				So(err, ShouldBeNil)
				So(len(runs), ShouldEqual, 1)
				So(runs[0].Time, ShouldEqual, uint64(300))
			})
		})

		Convey("When the category or competitor is unknown", func() {
			_, badCategory := f.svc.Submit(ctx, service.Submission{SteamID: alice, Category: "inbounds", Time: 1})
			_, badCompetitor := f.svc.Submit(ctx, service.Submission{SteamID: 5, Category: "main", Time: 1})

			Convey("Then the matching kinds are returned and nothing is written", func() {
				So(errs.Code(badCategory), ShouldEqual, "ERR_CATEGORY")
				So(errs.Code(badCompetitor), ShouldEqual, "ERR_STEAMID")
				So(f.svc.GetStats()["frames"], ShouldEqual, 0)
			})
		})
	})
}

func TestService_Leaderboard(t *testing.T) {
	Convey("Given submissions in the active period", t, func() {
		f := newFixture(t)
		ctx := context.Background()

		_, err := f.svc.Submit(ctx, service.Submission{SteamID: alice, Category: "lp", Time: 50, Portals: 5, Segmented: true, Note: "seg"})
		So(err, ShouldBeNil)
		_, err = f.svc.Submit(ctx, service.Submission{SteamID: bob, Category: "lp", Time: 100, Portals: 5})
		So(err, ShouldBeNil)

		Convey("When reading the leaderboard", func() {
			board, err := f.svc.Leaderboard(ctx)

			Convey("Then notes and segmentation shape the lp order", func() {
				So(err, ShouldBeNil)
				runs := board["lp"]
				So(len(runs), ShouldEqual, 2)
				So(runs[0].SteamID, ShouldEqual, bob)
				So(runs[1].SteamID, ShouldEqual, alice)
				So(runs[1].Note, ShouldEqual, "seg")
				So(runs[1].Segmented, ShouldBeTrue)
				So(runs[1].Date.Equal(f.start.Add(90*time.Second)), ShouldBeTrue)
			})
		})

		Convey("When bob retracts his run", func() {
			So(f.svc.Retract(ctx, bob, "lp"), ShouldBeNil)
			runs, err := f.svc.CategoryLeaderboard(ctx, "lp")

			Convey("Then only alice remains", func() {
				So(err, ShouldBeNil)
				So(len(runs), ShouldEqual, 1)
				So(runs[0].SteamID, ShouldEqual, alice)
			})
		})

		Convey("When reading a category without runs", func() {
			runs, err := f.svc.CategoryLeaderboard(ctx, "main")

			Convey("Then it is empty, not missing", func() {
				So(err, ShouldBeNil)
				So(runs, ShouldNotBeNil)
				So(runs, ShouldBeEmpty)
			})
		})

		Convey("When reading an unknown category", func() {
			_, err := f.svc.CategoryLeaderboard(ctx, "nope")

			Convey("Then ERR_CATEGORY is returned", func() {
				So(errs.Code(err), ShouldEqual, "ERR_CATEGORY")
			})
		})

		Convey("When removing by timestamp", func() {
			missing := f.svc.RemoveByTimestamp(ctx, 12345)
			err := f.svc.RemoveByTimestamp(ctx, 90)
			runs, _ := f.svc.CategoryLeaderboard(ctx, "lp")

			Convey("Then the first matching record goes and a miss is ERR_TIMESTAMP", func() {
				So(errs.Code(missing), ShouldEqual, "ERR_TIMESTAMP")
				So(err, ShouldBeNil)
				So(len(runs), ShouldEqual, 1)
				So(runs[0].SteamID, ShouldEqual, bob)
			})
		})
	})
}

func TestService_Profile(t *testing.T) {
	Convey("Given archived weeks 1 and 2", t, func() {
		f := newFixture(t)
		ctx := context.Background()

		Convey("When compacting alice", func() {
			p, err := f.svc.Profile(ctx, alice)
			So(err, ShouldBeNil)
			records, err := p.Records()

			Convey("Then her history is on the absolute timeline", func() {
				So(err, ShouldBeNil)
				So(p.Categories, ShouldResemble, category.Names{"main", "lp"})
				So(records, ShouldResemble, []model.ProfileRecord{
					{Category: "main", Time: 500, Portals: 10, Timestamp: 100},
					{Category: "lp", Time: 900, Portals: 4, Timestamp: 604800 + 50},
				})
			})

			Convey("Then the profile is persisted", func() {
				stored, found, err := f.profiles.Load(ctx, alice)
				So(err, ShouldBeNil)
				So(found, ShouldBeTrue)
				So(stored.Data, ShouldResemble, p.Data)
			})
		})

		Convey("When compacting an unknown competitor", func() {
			_, err := f.svc.Profile(ctx, 99)
			_, found, _ := f.profiles.Load(ctx, 99)

			Convey("Then ERR_STEAMID is returned and nothing is written", func() {
				So(errs.Code(err), ShouldEqual, "ERR_STEAMID")
				So(found, ShouldBeFalse)
			})
		})
	})
}

func TestService_StoredProfile(t *testing.T) {
	Convey("Given a service with a profile store", t, func() {
		f := newFixture(t)
		ctx := context.Background()

		Convey("When nothing was ever compacted", func() {
			p, err := f.svc.StoredProfile(ctx, alice)

			Convey("Then it reads as no history", func() {
				So(err, ShouldBeNil)
				So(p.SteamID, ShouldEqual, alice)
				So(p.Categories, ShouldResemble, category.Names{})
				So(len(p.Data), ShouldEqual, 0)
			})
		})

		Convey("When an empty stream is stored", func() {
			So(f.profiles.Save(ctx, profile.Profile{SteamID: bob, Categories: category.Names{"main"}}), ShouldBeNil)
			p, err := f.svc.StoredProfile(ctx, bob)
			records, recErr := p.Records()

			Convey("Then it also reads as no history", func() {
				So(err, ShouldBeNil)
				So(p.Categories, ShouldResemble, category.Names{})
				So(len(p.Data), ShouldEqual, 0)
				So(recErr, ShouldBeNil)
				So(len(records), ShouldEqual, 0)
			})
		})

		Convey("When alice was compacted", func() {
			built, err := f.svc.Profile(ctx, alice)
			So(err, ShouldBeNil)
			p, err := f.svc.StoredProfile(ctx, alice)

			Convey("Then the persisted pair is returned", func() {
				So(err, ShouldBeNil)
				So(p.Categories, ShouldResemble, built.Categories)
				So(p.Data, ShouldResemble, built.Data)
			})
		})

		Convey("When the competitor is unknown", func() {
			_, err := f.svc.StoredProfile(ctx, 99)

			Convey("Then ERR_STEAMID is returned", func() {
				So(errs.Code(err), ShouldEqual, "ERR_STEAMID")
			})
		})
	})
}

func TestService_CompactAll(t *testing.T) {
	Convey("Given a service", t, func() {
		f := newFixture(t)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("When compacting before start", func() {
			_, err := f.svc.CompactAll(ctx)

			Convey("Then ErrNotStarted is returned", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})

		Convey("When compacting a started service", func() {
			So(f.svc.Start(ctx), ShouldBeNil)
			defer f.svc.Stop()
			summary, err := f.svc.CompactAll(ctx)

			Convey("Then every competitor is compacted", func() {
				So(err, ShouldBeNil)
				So(summary, ShouldResemble, service.CompactionSummary{Compacted: 2})
				_, found, _ := f.profiles.Load(ctx, bob)
				So(found, ShouldBeTrue)
			})
		})
	})
}
